// Command scholarctl drives the console operations from a terminal. The
// session and tenant selection persist between runs like the web console.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"scholar-console/internal/bootstrap"
	"scholar-console/internal/shared/config"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/shared/validate"
)

type cli struct {
	app     *bootstrap.App
	out     io.Writer
	errOut  io.Writer
	verbose bool
	seen    map[string]bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{out: os.Stdout, errOut: os.Stderr, seen: map[string]bool{}}
	if err := c.root().ExecuteContext(ctx); err != nil {
		c.printError(err)
		os.Exit(1)
	}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "scholarctl",
		Short:         "Manage CVs, matches and outreach campaigns",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !c.verbose {
				telemetry.SetOutput(io.Discard)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app, err := bootstrap.Build(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = app
			for _, n := range app.Store.State().UI.Notifications {
				c.seen[n.ID] = true
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.flushNotifications()
			if c.app != nil {
				c.app.Close()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "write structured logs to stdout")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.tenantsCmd(),
		c.dashboardCmd(),
		c.cvsCmd(),
		c.matchesCmd(),
		c.campaignsCmd(),
		c.draftsCmd(),
		c.smtpCmd(),
	)
	return root
}

// print writes v as indented JSON.
func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// flushNotifications echoes toasts raised during the command.
func (c *cli) flushNotifications() {
	if c.app == nil {
		return
	}
	for _, n := range c.app.Store.State().UI.Notifications {
		if c.seen[n.ID] {
			continue
		}
		c.seen[n.ID] = true
		fmt.Fprintf(c.errOut, "[%s] %s\n", n.Level, n.Message)
	}
}

func (c *cli) printError(err error) {
	var verrs validate.Errors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for f := range verrs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(c.errOut, "%s: %s\n", f, verrs[f])
		}
		return
	}
	fmt.Fprintf(c.errOut, "error: %v\n", err)
}
