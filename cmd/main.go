package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"infobox_scraper/internal/app"
	"infobox_scraper/internal/config"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "infobox-scraper",
	Short:         "Scrape infobox tables from a listing of wiki articles",
	Long:          `Fetches every article linked from a listing page, turns its infobox into a record, normalizes money and date fields, and exports the collection as JSON, BSON and CSV.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, closeFn, err := app.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	report, err := a.Run(ctx)
	if err != nil {
		return err
	}
	for _, skip := range report.Skips {
		logger.Debug("skipped", slog.String("document", skip.String()))
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}
