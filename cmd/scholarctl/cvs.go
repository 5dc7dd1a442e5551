package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scholar-console/internal/api"
	"scholar-console/internal/matches"
)

func (c *cli) cvsCmd() *cobra.Command {
	var page, size int
	cmd := &cobra.Command{
		Use:   "cvs",
		Short: "List and manage CVs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := c.app.Services.CVs.FetchCVs(cmd.Context(), page, size)
			if err != nil {
				return err
			}
			return c.print(p)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page")
	cmd.Flags().IntVar(&size, "size", 0, "page size")

	var parse, wait bool
	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF or DOCX CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cv, err := c.app.Services.CVs.UploadCV(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			if !parse {
				return c.print(cv)
			}
			return c.parse(cmd, cv.ID, wait)
		},
	}
	upload.Flags().BoolVar(&parse, "parse", false, "start parsing after upload")
	upload.Flags().BoolVar(&wait, "wait", false, "with --parse, wait until parsing finishes")

	var parseWait bool
	parseCmd := &cobra.Command{
		Use:   "parse <cv-id>",
		Short: "Start parsing a CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.parse(cmd, args[0], parseWait)
		},
	}
	parseCmd.Flags().BoolVar(&parseWait, "wait", false, "wait until parsing finishes")

	show := &cobra.Command{
		Use:   "show <cv-id>",
		Short: "Show one CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cv, err := c.app.Services.CVs.FetchCV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"cv": cv, "canFindMatches": api.CanFindMatches(cv)})
		},
	}

	compute := &cobra.Command{
		Use:   "compute-matches <cv-id>",
		Short: "Compute professor matches for a parsed CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.app.Services.CVs.ComputeMatches(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"cvId": id, "computing": true})
		},
	}

	del := &cobra.Command{
		Use:   "delete <cv-id>",
		Short: "Delete a CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.app.Services.CVs.DeleteCV(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"deleted": id})
		},
	}

	cmd.AddCommand(upload, parseCmd, show, compute, del)
	return cmd
}

// parse starts parsing and, when wait is set, polls until the CV reaches a
// terminal status.
func (c *cli) parse(cmd *cobra.Command, cvID string, wait bool) error {
	ctx := cmd.Context()
	if _, err := c.app.Services.CVs.ParseCV(ctx, cvID); err != nil {
		return err
	}
	if !wait {
		return c.print(map[string]any{"cvId": cvID, "parsing": true})
	}
	p, err := c.app.Services.CVs.NewParsePoller(cvID)
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
		return fmt.Errorf("parsing did not finish: %w", res.Err)
	}
	return c.print(res.Value)
}

func (c *cli) matchesCmd() *cobra.Command {
	var (
		minScore float64
		search   string
		page     int
	)
	cmd := &cobra.Command{
		Use:   "matches <cv-id>",
		Short: "List professor matches for a CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if page > 0 && minScore == 0 {
				_, err = c.app.Services.Matches.FetchMatches(ctx, args[0], page, 0)
			} else {
				_, err = c.app.Services.Matches.FetchForView(ctx, args[0], minScore)
			}
			if err != nil {
				return err
			}
			st := c.app.Store.State().Match
			shown := matches.Filter(st.Matches, st.Filters.MinScore, search)
			return c.print(map[string]any{"matches": shown, "total": len(shown), "pagination": st.Pagination})
		},
	}
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "only matches scoring at least this (0-1)")
	cmd.Flags().StringVar(&search, "search", "", "filter by name, email, university, department or keyword")
	cmd.Flags().IntVar(&page, "page", 0, "zero-based page when no score filter is set")

	recompute := &cobra.Command{
		Use:   "recompute <cv-id>",
		Short: "Recompute matches for a CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.app.Services.Matches.RecomputeMatches(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.print(map[string]any{"cvId": id, "computing": true})
		},
	}
	cmd.AddCommand(recompute)
	return cmd
}
