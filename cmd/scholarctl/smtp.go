package main

import (
	"os"

	"github.com/spf13/cobra"

	"scholar-console/internal/smtp"
)

func (c *cli) smtpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smtp",
		Short: "Show or change the organization's outgoing mail account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			acct, err := c.app.Services.Smtp.FetchSmtpAccount(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(map[string]any{"account": acct})
		},
	}

	req := smtp.NewRequest(nil)
	set := &cobra.Command{
		Use:   "set",
		Short: "Create or replace the SMTP account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc := c.app.Services.Smtp
			current, err := svc.FetchSmtpAccount(ctx)
			if err != nil {
				return err
			}
			merged := smtp.NewRequest(current)
			if current == nil {
				merged = req
			}
			f := cmd.Flags()
			if f.Changed("email") {
				merged.Email = req.Email
			}
			if f.Changed("host") {
				merged.SmtpHost = req.SmtpHost
			}
			if f.Changed("port") {
				merged.SmtpPort = req.SmtpPort
			}
			if f.Changed("username") {
				merged.Username = req.Username
			}
			if f.Changed("tls") {
				merged.UseTLS = req.UseTLS
			}
			if f.Changed("ssl") {
				merged.UseSSL = req.UseSSL
			}
			if f.Changed("from-name") {
				merged.FromName = req.FromName
			}
			merged.Password = req.Password
			if merged.Password == "" {
				merged.Password = os.Getenv("SCHOLAR_SMTP_PASSWORD")
			}
			acct, err := svc.SaveSmtpAccount(ctx, merged)
			if err != nil {
				return err
			}
			return c.print(acct)
		},
	}
	f := set.Flags()
	f.StringVar(&req.Email, "email", "", "sender address")
	f.StringVar(&req.SmtpHost, "host", "", "SMTP host")
	f.IntVar(&req.SmtpPort, "port", req.SmtpPort, "SMTP port")
	f.StringVar(&req.Username, "username", "", "SMTP username")
	f.StringVar(&req.Password, "password", "", "SMTP password (or $SCHOLAR_SMTP_PASSWORD)")
	f.BoolVar(&req.UseTLS, "tls", req.UseTLS, "use STARTTLS")
	f.BoolVar(&req.UseSSL, "ssl", req.UseSSL, "use implicit TLS")
	f.StringVar(&req.FromName, "from-name", "", "display name")

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Mark the SMTP account inactive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Services.Smtp.DeactivateSmtpAccount(cmd.Context()); err != nil {
				return err
			}
			return c.print(map[string]any{"deactivated": true})
		},
	}

	cmd.AddCommand(set, deactivate)
	return cmd
}
