package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"ArticleEnricher/internal/app"
	"ArticleEnricher/internal/config"
	"ArticleEnricher/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "articleenricher",
		Short:         "Discover reading articles and enrich them for language learners",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	withApp := func(cmd *cobra.Command, fn func(context.Context, *app.Application) error) error {
		cfg := config.Load(strings.TrimSpace(configFlag))
		logger := logging.NewWithFormat(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer application.Close()
		return fn(ctx, application)
	}

	rootCmd.AddCommand(newRunCommand(withApp))
	rootCmd.AddCommand(newEnrichCommand(withApp))
	rootCmd.AddCommand(newCleanupCommand(withApp))
	rootCmd.AddCommand(newServeCommand(withApp))
	return rootCmd
}

type appRunner func(*cobra.Command, func(context.Context, *app.Application) error) error
