package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"scholar-console/internal/api"
	"scholar-console/internal/campaigns"
)

var scheduleLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"}

func parseScheduleTime(s string) (time.Time, error) {
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date-time", s)
}

func readBody(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

func (c *cli) campaignsCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List and run email campaigns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.app.Services.Campaigns.FetchCampaigns(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&size, "size", 0, "page size")

	req := campaigns.NewRequest()
	var bodyFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a draft campaign for a parsed CV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bodyFile != "" {
				body, err := readBody(bodyFile)
				if err != nil {
					return err
				}
				req.BodyTemplate = body
			}
			camp, err := c.app.Services.Campaigns.CreateCampaign(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(camp)
		},
	}
	create.Flags().StringVar(&req.CVID, "cv", "", "CV id")
	create.Flags().StringVar(&req.Name, "name", "", "campaign name")
	create.Flags().StringVar(&req.Subject, "subject", "", "email subject")
	create.Flags().StringVar(&bodyFile, "body-file", "", "body template file, - for stdin")
	create.Flags().Float64Var(&req.MinMatchScore, "min-score", campaigns.DefaultMinMatchScore, "minimum match score (0-1)")

	show := &cobra.Command{
		Use:   "show <campaign-id>",
		Short: "Show one campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			camp, err := c.app.Services.Campaigns.FetchCampaign(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(camp)
		},
	}

	var at string
	schedule := &cobra.Command{
		Use:   "schedule <campaign-id>",
		Short: "Schedule a campaign for later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseScheduleTime(at)
			if err != nil {
				return err
			}
			id, err := c.app.Services.Campaigns.ScheduleCampaign(cmd.Context(), args[0], when)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"id": id, "scheduledAt": when.Format(time.RFC3339)})
		},
	}
	schedule.Flags().StringVar(&at, "at", "", "local date-time, e.g. 2026-11-02T09:30")
	_ = schedule.MarkFlagRequired("at")

	var wait bool
	execute := &cobra.Command{
		Use:   "execute <campaign-id>",
		Short: "Start generating drafts for a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.execute(cmd, args[0], wait)
		},
	}
	execute.Flags().BoolVar(&wait, "wait", false, "wait until every draft is generated")

	cancel := &cobra.Command{
		Use:   "cancel <campaign-id>",
		Short: "Cancel a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.app.Services.Campaigns.CancelCampaign(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"id": id, "status": api.CampaignCancelled})
		},
	}

	var logPage, logSize int
	logs := &cobra.Command{
		Use:   "logs <campaign-id>",
		Short: "List the per-recipient emails of a campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.Services.Campaigns.FetchCampaignLogs(cmd.Context(), args[0], logPage, logSize)
			if err != nil {
				return err
			}
			return c.print(map[string]any{"logs": p, "generated": api.CountGenerated(p.Content)})
		},
	}
	logs.Flags().IntVar(&logPage, "page", 0, "zero-based page")
	logs.Flags().IntVar(&logSize, "size", 0, "page size")

	cmd.AddCommand(create, show, schedule, execute, cancel, logs)
	return cmd
}

// execute starts generation, then optionally polls the logs until every
// recipient has a generated body.
func (c *cli) execute(cmd *cobra.Command, id string, wait bool) error {
	ctx := cmd.Context()
	svc := c.app.Services.Campaigns
	if _, err := svc.ExecuteCampaign(ctx, id); err != nil {
		return err
	}
	camp, err := svc.FetchCampaign(ctx, id)
	if err != nil {
		return err
	}
	if !wait {
		return c.print(camp)
	}
	if _, err := svc.FetchCampaignLogs(ctx, id, 0, 0); err != nil {
		return err
	}
	p, err := svc.NewGenerationPoller(id, camp.TotalRecipients)
	if err != nil {
		return err
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	res, err := p.Wait(ctx)
	if err != nil {
		p.Stop()
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("draft generation did not finish: %w", res.Err)
	}
	return c.print(map[string]any{"campaign": camp, "generated": api.CountGenerated(res.Value.Content)})
}

func (c *cli) draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drafts",
		Aliases: []string{"emails"},
		Short:   "Review, edit and send generated emails",
	}

	show := &cobra.Command{
		Use:   "show <log-id>",
		Short: "Show one email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.app.Services.Campaigns.FetchLog(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"log": l, "generated": api.IsGenerated(l.Body)})
		},
	}

	var bodyFile string
	edit := &cobra.Command{
		Use:   "edit <log-id>",
		Short: "Replace the body of an unsent email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := readBody(bodyFile)
			if err != nil {
				return err
			}
			l, err := c.app.Services.Campaigns.UpdateEmailDraft(cmd.Context(), args[0], body)
			if err != nil {
				return err
			}
			return c.print(l)
		},
	}
	edit.Flags().StringVar(&bodyFile, "body-file", "-", "new body file, - for stdin")

	regenerate := &cobra.Command{
		Use:   "regenerate <log-id>",
		Short: "Generate a fresh body for an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.app.Services.Campaigns.RegenerateDraft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(l)
		},
	}

	var sendBodyFile string
	send := &cobra.Command{
		Use:   "send <log-id>",
		Short: "Send an email, saving an edited body first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := c.app.Services.Campaigns
			var (
				msg string
				err error
			)
			if sendBodyFile == "" {
				msg, err = svc.SendIndividualEmail(ctx, args[0])
			} else {
				var body string
				if body, err = readBody(sendBodyFile); err != nil {
					return err
				}
				msg, err = svc.SendDraft(ctx, args[0], body)
			}
			if err != nil {
				return err
			}
			return c.print(map[string]any{"id": args[0], "result": msg})
		},
	}
	send.Flags().StringVar(&sendBodyFile, "body-file", "", "edited body to save before sending, - for stdin")

	cmd.AddCommand(show, edit, regenerate, send)
	return cmd
}
