package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"scholar-console/internal/api"
)

func (c *cli) tenantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tenants",
		Aliases: []string{"orgs"},
		Short:   "List, create, select and delete organizations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.Services.Tenants.FetchTenants(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(map[string]any{"tenants": list, "currentTenant": c.app.Store.State().Tenant.Current})
		},
	}

	var req api.TenantRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an organization and select it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := c.app.Services.Tenants.CreateTenant(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(t)
		},
	}
	create.Flags().StringVar(&req.Name, "name", "", "organization name")
	create.Flags().StringVar(&req.Email, "email", "", "organization email")

	use := &cobra.Command{
		Use:   "use <tenant-id>",
		Short: "Select the organization later commands act on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(c.app.Store.State().Tenant.Tenants) == 0 {
				if _, err := c.app.Services.Tenants.FetchTenants(cmd.Context()); err != nil {
					return err
				}
			}
			t, err := c.app.Services.Tenants.Select(args[0])
			if err != nil {
				return err
			}
			return c.print(t)
		},
	}

	del := &cobra.Command{
		Use:   "delete <tenant-id>",
		Short: "Delete an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Services.Tenants.DeleteTenant(cmd.Context(), args[0]); err != nil {
				return err
			}
			return c.print(map[string]any{"deleted": args[0], "currentTenant": c.app.Store.State().Tenant.Current})
		},
	}

	cmd.AddCommand(create, use, del)
	return cmd
}

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show counts and recent replies for the selected organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				g     errgroup.Group
				stats api.TenantDashboard
				inbox []api.IncomingEmail
			)
			g.Go(func() (err error) {
				stats, err = c.app.Services.Tenants.FetchDashboard(ctx, "")
				return err
			})
			g.Go(func() (err error) {
				inbox, err = c.app.Services.Tenants.FetchIncomingEmails(ctx, "")
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			return c.print(map[string]any{"dashboard": stats, "incomingEmails": inbox})
		},
	}
}
