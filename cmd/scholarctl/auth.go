package main

import (
	"os"

	"github.com/spf13/cobra"

	"scholar-console/internal/api"
	"scholar-console/internal/auth"
)

func (c *cli) loginCmd() *cobra.Command {
	var req api.AuthenticationRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and load your organizations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("SCHOLAR_PASSWORD")
			}
			sess, err := c.app.Services.Auth.Login(cmd.Context(), req)
			if err != nil {
				return err
			}
			tenants, err := c.app.Services.Tenants.FetchTenants(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(map[string]any{
				"userId":        sess.UserID,
				"email":         sess.Email,
				"tenants":       tenants,
				"currentTenant": c.app.Store.State().Tenant.Current,
			})
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password (default $SCHOLAR_PASSWORD)")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var in auth.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("SCHOLAR_PASSWORD")
			}
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}
			sess, err := c.app.Services.Auth.Register(cmd.Context(), in)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"userId": sess.UserID, "signedIn": c.app.Store.IsAuthenticated()})
		},
	}
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "account email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (default $SCHOLAR_PASSWORD)")
	cmd.Flags().StringVar(&in.ConfirmPassword, "confirm-password", "", "password confirmation (defaults to --password)")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the selected organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.app.Services.Auth.Logout(cmd.Context())
			return c.print(map[string]any{"signedIn": false})
		},
	}
}
