package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ArticleEnricher/internal/app"
	"ArticleEnricher/internal/domain"
)

func newRunCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run retention, discovery and enrichment once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Run(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
				return err
			})
		},
	}
}

func newEnrichCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <article-id>",
		Short: "Fill the missing enrichment fields of one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid article id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Enrich(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "article %d (%s)\n", report.ArticleID, report.Difficulty)
				for _, stage := range domain.Stages {
					fmt.Fprintf(out, "  %-12s done=%d failed=%d\n", stage, report.Completed[stage], report.Failed[stage])
				}
				return nil
			})
		},
	}
}

func newCleanupCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete articles outside the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				report, err := a.Cleanup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d articles, %d failed, %d audio errors\n",
					report.Deleted, report.Failed, report.AudioErrors)
				return nil
			})
		},
	}
}

func newServeCommand(withApp appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler and serve paragraph audio until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.Application) error {
				return a.Serve(ctx)
			})
		},
	}
}
