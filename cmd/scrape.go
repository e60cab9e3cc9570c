package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapeCmd creates the 'scrape' subcommand, which runs one full
// pipeline pass and exits.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run one full scrape of all configured sub-categories",
		Long: `Discovers tender metadata for every configured sub-category, fetches each
unique tender's detail page, and upserts the results into the database.
The process exits once the run completes.`,

		RunE: runScrapeCommand,
	}
}

func runScrapeCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := a.Orchestrator.Run(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info("scrape finished",
		zap.String("run_id", rep.RunID.String()),
		zap.Int("discovered", rep.Discovered),
		zap.Int("saved", rep.Saved),
		zap.Int("failed", rep.Failed),
		zap.Duration("duration", rep.Duration))
	return nil
}
