package reviews

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/maps-review-scraper/internal/metrics"
	"github.com/maltedev/maps-review-scraper/internal/models"
)

type State int

const (
	StateInitializing State = iota
	StateHarvesting
	StateAwaitingMore
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateHarvesting:
		return "harvesting"
	case StateAwaitingMore:
		return "awaiting_more"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	ReasonTarget     = "target"
	ReasonExhausted  = "exhausted"
	ReasonStagnation = "stagnation"
	ReasonMaxCycles  = "max_cycles"
	ReasonMaxReviews = "max_reviews"
)

type CollectorOptions struct {
	// MaxCycles bounds the number of harvest cycles.
	MaxCycles int
	// MaxReviews stops harvesting once reached. Zero means no cap.
	MaxReviews int
	// ScrollPause is the settle time after each scroll.
	ScrollPause time.Duration
	// GrowthTimeout bounds the wait for new reviews when the total is unknown.
	GrowthTimeout time.Duration
	// ContainerTimeout bounds the lookup of the scrollable review pane.
	ContainerTimeout time.Duration
}

func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{
		MaxCycles:        400,
		MaxReviews:       1500,
		ScrollPause:      2 * time.Second,
		GrowthTimeout:    5 * time.Second,
		ContainerTimeout: 3 * time.Second,
	}
}

// Outcome is what a finished collection run produced.
type Outcome struct {
	Reviews  []*models.Review
	Universe Universe
	Cycles   int
	Reason   string
}

// Collector drives the scroll-and-harvest loop for one review list. It is
// single use: build a new one per run.
type Collector struct {
	driver    Driver
	selectors Selectors
	opts      CollectorOptions
	policy    termination
	logger    *slog.Logger
	sleep     func(time.Duration)

	extractor *itemExtractor
	state     State
	seen      map[string]struct{}
	reviews   []*models.Review
	universe  Universe
}

// NewCollector builds a collector. expectedTotal selects the termination
// policy: a positive value stops at that many reviews, zero waits for the
// feed to stop growing.
func NewCollector(d Driver, sel Selectors, opts CollectorOptions, expectedTotal int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxCycles < 1 {
		opts.MaxCycles = DefaultCollectorOptions().MaxCycles
	}

	universe := make(Universe)
	logger = logger.With("component", "collector")

	return &Collector{
		driver:    d,
		selectors: sel,
		opts:      opts,
		policy:    newTermination(expectedTotal, opts.GrowthTimeout),
		logger:    logger,
		sleep:     time.Sleep,
		extractor: &itemExtractor{
			driver:    d,
			selectors: sel,
			universe:  universe,
			logger:    logger,
			now:       time.Now,
		},
		state:    StateInitializing,
		seen:     make(map[string]struct{}),
		universe: universe,
	}
}

func (c *Collector) State() State {
	return c.state
}

// Run collects until the termination policy, the stagnation guard or one of
// the ceilings stops it.
func (c *Collector) Run(ctx context.Context) *Outcome {
	out := &Outcome{}

	for cycle := 1; ; cycle++ {
		if cycle > c.opts.MaxCycles {
			out.Reason = ReasonMaxCycles
			break
		}
		out.Cycles = cycle
		metrics.Cycles.Inc()

		c.state = StateHarvesting
		rendered, added := c.harvest(ctx)
		c.logger.Info("harvest cycle finished",
			"cycle", cycle,
			"rendered", rendered,
			"new", added,
			"total", len(c.reviews))

		if c.capped() {
			out.Reason = ReasonMaxReviews
			break
		}
		if c.policy.reached(len(c.reviews)) {
			out.Reason = c.policy.reason()
			break
		}

		c.state = StateAwaitingMore
		c.requestMore(ctx)

		if !c.policy.awaitMore(ctx, c, rendered) {
			out.Reason = c.policy.reason()
			break
		}

		if after := c.renderedCount(ctx); after == rendered {
			c.logger.Info("no new reviews rendered after scroll", "rendered", rendered)
			out.Reason = ReasonStagnation
			break
		}
	}

	c.state = StateTerminated
	metrics.ObserveTermination(out.Reason)
	c.logger.Info("collection finished",
		"reason", out.Reason,
		"cycles", out.Cycles,
		"reviews", len(c.reviews),
		"attributes", len(c.universe))

	out.Reviews = c.reviews
	out.Universe = c.universe
	return out
}

// harvest records every rendered review not seen before. It returns the
// number of rendered reviews and how many were new.
func (c *Collector) harvest(ctx context.Context) (int, int) {
	items, err := c.driver.FindAll(ctx, c.selectors.Item)
	if err != nil {
		c.logger.Warn("failed to list rendered reviews", "error", err)
		return 0, 0
	}

	added := 0
	for i, h := range items {
		if c.capped() {
			break
		}

		id, err := Fingerprint(ctx, c.driver, h, c.selectors.ItemID, i)
		if err != nil {
			metrics.ItemFaults.Inc()
			c.logger.Warn("skipping review until next cycle", "position", i, "error", err)
			continue
		}
		if _, ok := c.seen[id]; ok {
			continue
		}

		review, err := c.extractSafely(ctx, h, id)
		if err != nil {
			metrics.ItemFaults.Inc()
			c.logger.Warn("skipping review", "review_id", id, "position", i, "error", err)
			continue
		}

		c.seen[id] = struct{}{}
		c.reviews = append(c.reviews, review)
		metrics.ReviewsCollected.Inc()
		added++
	}

	return len(items), added
}

func (c *Collector) extractSafely(ctx context.Context, h Handle, id string) (review *models.Review, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during extraction: %v", r)
		}
	}()
	return c.extractor.extract(ctx, h, id)
}

// requestMore scrolls the review pane, falling back to the whole page when
// the pane cannot be found or scrolled, then lets new content render.
func (c *Collector) requestMore(ctx context.Context) {
	container, err := c.driver.FindFirst(ctx, c.selectors.ScrollContainer, c.opts.ContainerTimeout)
	if err == nil {
		err = c.driver.ScrollIntoViewAndExpand(ctx, container)
	}
	if err != nil {
		c.logger.Debug("review pane scroll failed, scrolling page", "error", err)
		if err := c.driver.ScrollPage(ctx); err != nil {
			c.logger.Warn("failed to trigger more reviews", "error", err)
		}
	}

	if c.opts.ScrollPause > 0 {
		c.sleep(c.opts.ScrollPause)
	}
}

func (c *Collector) renderedCount(ctx context.Context) int {
	items, err := c.driver.FindAll(ctx, c.selectors.Item)
	if err != nil {
		return 0
	}
	return len(items)
}

func (c *Collector) capped() bool {
	return c.opts.MaxReviews > 0 && len(c.reviews) >= c.opts.MaxReviews
}
