// Command review-scraper collects Google Maps reviews into CSV datasets.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/maltedev/maps-review-scraper/internal/config"
	"github.com/maltedev/maps-review-scraper/internal/logger"
)

var (
	cfg *config.Config
	log *slog.Logger

	outputDir  string
	maxReviews int
	headful    bool
)

var rootCmd = &cobra.Command{
	Use:   "review-scraper",
	Short: "Collect Google Maps reviews",
	Long: "review-scraper opens a place on Google Maps, scrolls its review list until every " +
		"review is loaded and writes one CSV per place with a column for every review attribute seen.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", "", "Directory for CSV files (overrides OUTPUT_DIR)")
	rootCmd.PersistentFlags().IntVar(&maxReviews, "max-reviews", -1, "Stop after this many reviews, 0 for no cap (overrides SCRAPER_MAX_REVIEWS)")
	rootCmd.PersistentFlags().BoolVar(&headful, "headful", false, "Show the browser window")
}

func setup(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(loaded)

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cfg = loaded
	log = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	return nil
}

func applyFlags(c *config.Config) {
	if outputDir != "" {
		c.Scraper.OutputDir = outputDir
	}
	if maxReviews >= 0 {
		c.Scraper.MaxReviews = maxReviews
	}
	if headful {
		c.Browser.Headless = false
	}
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
