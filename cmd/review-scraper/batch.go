package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maltedev/maps-review-scraper/internal/batch"
	"github.com/maltedev/maps-review-scraper/internal/export"
	"github.com/maltedev/maps-review-scraper/internal/queue"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Collect reviews for every place listed in a file",
	Long: "Read one place per line as \"name | location\" (lines starting with # are ignored) and " +
		"collect them one after another. A place that fails is recorded and the batch continues.",
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	targets, err := batch.LoadTargets(args[0])
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no places listed in %s", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := openOutputs(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer out.Close()

	service, closeBrowser, err := openCollector(cfg, log)
	if err != nil {
		return err
	}
	defer closeBrowser()

	runner, err := newRunner(cfg, service, queue.NewInMemoryQueue(len(targets)), cfg.Scraper.LedgerPath, out, log)
	if err != nil {
		return err
	}

	for _, target := range targets {
		if _, err := runner.Enqueue(target, 0); err != nil {
			return err
		}
	}
	log.Info("batch started", "places", len(targets))

	rows := runner.Drain(ctx)
	if out.relay != nil {
		if err := out.relay.Flush(ctx); err != nil {
			log.Error("failed to relay events", "error", err)
		}
	}

	export.RenderSummary(cmd.OutOrStdout(), rows)
	log.Info("batch finished", "processed", len(rows), "places", len(targets), "stats", runner.Ledger().GetStats())

	return nil
}
