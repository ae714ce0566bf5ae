package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/maps-review-scraper/internal/batch"
	"github.com/maltedev/maps-review-scraper/internal/browser"
	"github.com/maltedev/maps-review-scraper/internal/config"
	"github.com/maltedev/maps-review-scraper/internal/database"
	"github.com/maltedev/maps-review-scraper/internal/events"
	"github.com/maltedev/maps-review-scraper/internal/export"
	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/queue"
	"github.com/maltedev/maps-review-scraper/internal/ratelimit"
	"github.com/maltedev/maps-review-scraper/internal/reviews"
	"github.com/maltedev/maps-review-scraper/internal/storage"
)

func browserOptions(c config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	opts.Timeout = c.Timeout
	opts.ViewportWidth = c.ViewportWidth
	opts.ViewportHeight = c.ViewportHeight
	opts.AcceptLanguage = c.AcceptLanguage
	opts.TimezoneID = c.TimezoneID
	opts.Locale = c.Locale
	opts.ProxyServer = c.ProxyServer
	return opts
}

func serviceOptions(c config.ScraperConfig) reviews.ServiceOptions {
	return reviews.ServiceOptions{
		Collector: reviews.CollectorOptions{
			MaxCycles:        c.MaxCycles,
			MaxReviews:       c.MaxReviews,
			ScrollPause:      c.ScrollPause,
			GrowthTimeout:    c.GrowthTimeout,
			ContainerTimeout: c.ContainerTimeout,
		},
		ConsentTimeout: c.ConsentTimeout,
		LookupTimeout:  c.LookupTimeout,
		SettleDelay:    c.SettleDelay,
	}
}

// newLimiter paces jobs with a jittered delay that backs off after failures,
// capped by the hourly budget.
func newLimiter(c config.ScraperConfig) ratelimit.Chain {
	return ratelimit.Chain{
		ratelimit.NewAdaptiveRateLimiter(c.JobDelayMin, c.JobDelayMax),
		ratelimit.NewHourlyLimiter(c.JobsPerHour, 1),
	}
}

// openCollector launches the browser and returns a review service bound to
// one page, plus a function that shuts the browser down.
func openCollector(c *config.Config, logger *slog.Logger) (*reviews.Service, func(), error) {
	b, err := browser.New(browserOptions(c.Browser))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, nil, err
	}

	driver := browser.NewPageDriver(b, page, c.Scraper.MaxRetries)
	service := reviews.NewService(driver, reviews.DefaultSelectors(), serviceOptions(c.Scraper), logger)

	closeFn := func() {
		if err := b.Close(); err != nil {
			logger.Error("failed to close browser", "error", err)
		}
	}
	return service, closeFn, nil
}

// outputs are the optional destinations a finished result is handed to
// besides the CSV file.
type outputs struct {
	sinks   []batch.Sink
	outbox  *database.OutboxRepository
	relay   *database.Relay
	closers []func()
}

// openOutputs connects PostgreSQL and Redis when enabled. With both enabled
// results go through the outbox and the relay publishes them; with Redis
// alone they are published directly.
func openOutputs(ctx context.Context, c *config.Config, logger *slog.Logger) (*outputs, error) {
	out := &outputs{}

	var db *database.DB
	if c.Database.Enabled {
		var err error
		db, err = database.New(ctx, database.Config{
			DSN:      c.Database.DSN(),
			MaxConns: c.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		out.closers = append(out.closers, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			out.Close()
			return nil, err
		}

		repo := database.NewReviewRepository(db, c.Redis.Stream)
		out.sinks = append(out.sinks, batch.SinkFunc(
			func(ctx context.Context, jobID string, result *models.ScrapeResult, output string) error {
				_, err := repo.SaveResult(ctx, jobID, result, output)
				return err
			}))
		out.outbox = database.NewOutboxRepository(db)
	}

	if c.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		out.closers = append(out.closers, func() { client.Close() })

		if err := client.Ping(ctx).Err(); err != nil {
			out.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		publisher := events.NewRedisPublisher(client, c.Redis.Stream)
		if out.outbox != nil {
			out.relay = database.NewRelay(out.outbox, publisher, logger, database.RelayConfig{})
		} else {
			out.sinks = append(out.sinks, batch.PublishSink(publisher))
		}
	}

	return out, nil
}

func (o *outputs) Close() {
	for i := len(o.closers) - 1; i >= 0; i-- {
		o.closers[i]()
	}
}

// newRunner builds a runner that writes CSVs, keeps the job ledger and hands
// results to the configured outputs.
func newRunner(c *config.Config, collector batch.Collector, q queue.Queue, ledgerPath string, out *outputs, logger *slog.Logger) (*batch.Runner, error) {
	ledger, err := storage.NewJobLedger(ledgerPath)
	if err != nil {
		return nil, err
	}

	return batch.NewRunner(batch.Config{
		Collector: collector,
		Queue:     q,
		Ledger:    ledger,
		Exporter:  export.NewCSVWriter(c.Scraper.OutputDir),
		Limiter:   newLimiter(c.Scraper),
		Sinks:     out.sinks,
		Locale:    c.Scraper.Locale,
		Logger:    logger,
	})
}
