package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/boozedog/ticketflow/internal/config"
)

var rootCmd = &cobra.Command{
	Use:               "tf",
	Short:             "ticketflow: a local board for OTRS tickets",
	Long:              `Keeps a personal board of OTRS tickets in sync with the queue view, with manual ordering, notes, a done log grouped by day, and an undoable clear.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging loads .env files and installs the slog handler at the
// configured level.
func setupLogging(_ *cobra.Command, _ []string) error {
	dir, err := config.DefaultDir()
	if err != nil {
		return err
	}
	config.LoadEnv(dir)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()})
	slog.SetDefault(slog.New(handler))
	return nil
}
