package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maltedev/maps-review-scraper/internal/batch"
	"github.com/maltedev/maps-review-scraper/internal/export"
	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/queue"
)

var (
	scrapeName     string
	scrapeLocation string
	scrapePreview  int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect the reviews of one place",
	Long:  "Search Google Maps for the place, open its review list, load every review and write them to a CSV file.",
	RunE:  runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeName, "name", "n", "", "Place name (required)")
	scrapeCmd.Flags().StringVarP(&scrapeLocation, "location", "l", "", "City or address that narrows the search")
	scrapeCmd.Flags().IntVar(&scrapePreview, "preview", 5, "Number of reviews to print after collection")
	_ = scrapeCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(scrapeCmd)
}

// lastResult remembers the most recent result for the preview table.
type lastResult struct {
	batch.Collector
	result *models.ScrapeResult
}

func (l *lastResult) Collect(ctx context.Context, target models.Target, locale string) *models.ScrapeResult {
	l.result = l.Collector.Collect(ctx, target, locale)
	return l.result
}

func runScrape(cmd *cobra.Command, _ []string) error {
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

	collector := &lastResult{Collector: service}
	runner, err := newRunner(cfg, collector, queue.NewInMemoryQueue(1), "", out, log)
	if err != nil {
		return err
	}

	if _, err := runner.Enqueue(models.Target{Name: scrapeName, Location: scrapeLocation}, 0); err != nil {
		return err
	}

	rows := runner.Drain(ctx)
	if out.relay != nil {
		if err := out.relay.Flush(ctx); err != nil {
			log.Error("failed to relay events", "error", err)
		}
	}

	w := cmd.OutOrStdout()
	export.RenderSummary(w, rows)
	if collector.result != nil && scrapePreview > 0 {
		export.RenderPreview(w, collector.result, scrapePreview)
	}

	if len(rows) == 0 {
		return ctx.Err()
	}
	if rows[0].Error != "" {
		return fmt.Errorf("no reviews collected for %s: %s", rows[0].Target, rows[0].Error)
	}
	return nil
}
