package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

const (
	searchBaseURL  = "https://www.google.com/maps/search/"
	placeURLMarker = "/maps/place/"
)

var (
	ErrPlaceNotFound      = errors.New("place not found in search results")
	ErrReviewsUnavailable = errors.New("reviews tab could not be opened")
)

// Error codes carried by empty results.
const (
	CodeNavigation         = "navigation_failed"
	CodePlaceNotFound      = "place_not_found"
	CodeReviewsUnavailable = "reviews_unavailable"
)

type ServiceOptions struct {
	Collector      CollectorOptions
	ConsentTimeout time.Duration
	LookupTimeout  time.Duration
	// SettleDelay lets the place page render after navigation and clicks.
	SettleDelay time.Duration
}

func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		Collector:      DefaultCollectorOptions(),
		ConsentTimeout: 5 * time.Second,
		LookupTimeout:  15 * time.Second,
		SettleDelay:    3 * time.Second,
	}
}

// Service runs complete collection jobs against one Driver.
type Service struct {
	driver    Driver
	selectors Selectors
	opts      ServiceOptions
	base      *slog.Logger
	logger    *slog.Logger
	sleep     func(time.Duration)
}

func NewService(d Driver, sel Selectors, opts ServiceOptions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		driver:    d,
		selectors: sel,
		opts:      opts,
		base:      logger,
		logger:    logger.With("component", "review_service"),
		sleep:     time.Sleep,
	}
}

// SearchURL builds the Maps search URL for a target. locale, when set, is
// passed as the interface language.
func SearchURL(target models.Target, locale string) string {
	query := strings.ReplaceAll(target.Query(), " ", "+")
	u := searchBaseURL + url.PathEscape(query)
	if lang := languageOf(locale); lang != "" {
		u += "?hl=" + url.QueryEscape(lang)
	}
	return u
}

func languageOf(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}
	if i := strings.IndexAny(locale, "-_"); i > 0 {
		return locale[:i]
	}
	return locale
}

// Collect gathers every review of the target place. When the place or its
// review list cannot be reached the result is empty and carries the fault;
// Collect itself never fails.
func (s *Service) Collect(ctx context.Context, target models.Target, locale string) *models.ScrapeResult {
	searchURL := SearchURL(target, locale)
	s.logger.Info("collecting reviews", "target", target.String(), "url", searchURL)

	if err := s.openReviews(ctx, searchURL); err != nil {
		code := CodeNavigation
		switch {
		case errors.Is(err, ErrPlaceNotFound):
			code = CodePlaceNotFound
		case errors.Is(err, ErrReviewsUnavailable):
			code = CodeReviewsUnavailable
		}
		s.logger.Warn("review list unreachable", "target", target.String(), "code", code, "error", err)
		return models.EmptyResult(target, code, err.Error(), s.driver.CurrentURL())
	}

	expected := s.expectedTotal(ctx)
	s.logger.Info("review list opened", "target", target.String(), "expected_total", expected)

	collector := NewCollector(s.driver, s.selectors, s.opts.Collector, expected, s.base)
	outcome := collector.Run(ctx)
	dataset := Unify(outcome.Reviews, outcome.Universe)

	return &models.ScrapeResult{
		Target:   target,
		Columns:  dataset.Columns,
		Reviews:  dataset.Reviews,
		Expected: expected,
		Cycles:   outcome.Cycles,
		Success:  true,
	}
}

func (s *Service) openReviews(ctx context.Context, searchURL string) error {
	if err := s.driver.Navigate(ctx, searchURL); err != nil {
		return fmt.Errorf("failed to navigate to search: %w", err)
	}

	s.dismissConsent(ctx)

	if strings.Contains(s.driver.CurrentURL(), placeURLMarker) {
		s.logger.Debug("search landed on place page")
	} else {
		result, err := s.driver.FindFirst(ctx, s.selectors.FirstResult, s.opts.LookupTimeout)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPlaceNotFound, err)
		}
		href, err := s.driver.ReadAttribute(ctx, result, "href")
		if err != nil || href == "" {
			return fmt.Errorf("%w: first result has no link", ErrPlaceNotFound)
		}
		s.logger.Info("multiple results found, following first", "url", href)
		if err := s.driver.Navigate(ctx, href); err != nil {
			return fmt.Errorf("failed to navigate to place: %w", err)
		}
	}
	s.settle()

	tab, err := s.driver.FindFirst(ctx, s.selectors.ReviewsTab, s.opts.LookupTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReviewsUnavailable, err)
	}
	if err := s.driver.Click(ctx, tab); err != nil {
		return fmt.Errorf("%w: %v", ErrReviewsUnavailable, err)
	}
	s.settle()

	return nil
}

func (s *Service) dismissConsent(ctx context.Context) {
	button, err := s.driver.FindFirst(ctx, s.selectors.ConsentButton, s.opts.ConsentTimeout)
	if err != nil {
		return
	}
	if err := s.driver.Click(ctx, button); err != nil {
		s.logger.Debug("failed to dismiss consent dialog", "error", err)
		return
	}
	s.settle()
}

// expectedTotal reads the place's review count. Zero means unknown.
func (s *Service) expectedTotal(ctx context.Context) int {
	h, err := s.driver.FindFirst(ctx, s.selectors.TotalReviews, s.opts.ConsentTimeout)
	if err != nil {
		return 0
	}
	text, err := s.driver.ReadText(ctx, h, "")
	if err != nil {
		return 0
	}
	return ParseTotalReviews(text)
}

func (s *Service) settle() {
	if s.opts.SettleDelay > 0 {
		s.sleep(s.opts.SettleDelay)
	}
}
