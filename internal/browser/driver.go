package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/maps-review-scraper/internal/reviews"
)

const (
	scrollContainerScript = `el => { el.scrollTop = el.scrollHeight }`
	scrollPageScript      = `() => window.scrollTo(0, document.body.scrollHeight)`
)

// PageDriver runs the review engine against one playwright page. Handles it
// returns are playwright.Locator values.
type PageDriver struct {
	browser      *Browser
	page         playwright.Page
	retries      int
	readTimeout  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ reviews.Driver = (*PageDriver)(nil)

func NewPageDriver(b *Browser, page playwright.Page, retries int) *PageDriver {
	return &PageDriver{
		browser:      b,
		page:         page,
		retries:      retries,
		readTimeout:  2 * time.Second,
		pollInterval: 250 * time.Millisecond,
		logger:       slog.Default().With("component", "page_driver"),
	}
}

func (d *PageDriver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("navigating", "url", url)
	return d.browser.NavigateWithRetry(ctx, d.page, url, d.retries)
}

func (d *PageDriver) CurrentURL() string {
	return d.page.URL()
}

func (d *PageDriver) FindFirst(_ context.Context, selector string, timeout time.Duration) (reviews.Handle, error) {
	loc := d.page.Locator(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: milliseconds(timeout),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%w: %s", reviews.ErrTimeout, selector)
		}
		return nil, fmt.Errorf("failed to wait for %s: %w", selector, err)
	}
	return loc, nil
}

func (d *PageDriver) FindAll(_ context.Context, selector string) ([]reviews.Handle, error) {
	locs, err := d.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", selector, err)
	}
	handles := make([]reviews.Handle, 0, len(locs))
	for _, loc := range locs {
		handles = append(handles, loc)
	}
	return handles, nil
}

func (d *PageDriver) FindIn(_ context.Context, h reviews.Handle, selector string) (reviews.Handle, error) {
	loc, err := asLocator(h)
	if err != nil {
		return nil, err
	}
	return d.present(loc.Locator(selector).First(), selector)
}

func (d *PageDriver) Click(_ context.Context, h reviews.Handle) error {
	loc, err := asLocator(h)
	if err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("failed to click: %w", err)
	}
	return nil
}

func (d *PageDriver) ScrollIntoViewAndExpand(_ context.Context, container reviews.Handle) error {
	loc, err := asLocator(container)
	if err != nil {
		return err
	}
	if _, err := loc.Evaluate(scrollContainerScript, nil); err != nil {
		return fmt.Errorf("failed to scroll review pane: %w", err)
	}
	return nil
}

func (d *PageDriver) ScrollPage(_ context.Context) error {
	if _, err := d.page.Evaluate(scrollPageScript); err != nil {
		return fmt.Errorf("failed to scroll page: %w", err)
	}
	return nil
}

func (d *PageDriver) ReadText(_ context.Context, h reviews.Handle, selector string) (string, error) {
	loc, err := asLocator(h)
	if err != nil {
		return "", err
	}
	if selector != "" {
		found, err := d.present(loc.Locator(selector).First(), selector)
		if err != nil {
			return "", err
		}
		loc = found.(playwright.Locator)
	}

	text, err := loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: milliseconds(d.readTimeout),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return text, nil
}

func (d *PageDriver) ReadAttribute(_ context.Context, h reviews.Handle, name string) (string, error) {
	loc, err := asLocator(h)
	if err != nil {
		return "", err
	}
	value, err := loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: milliseconds(d.readTimeout),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	return value, nil
}

func (d *PageDriver) InnerHTML(_ context.Context, h reviews.Handle) (string, error) {
	loc, err := asLocator(h)
	if err != nil {
		return "", err
	}
	html, err := loc.InnerHTML(playwright.LocatorInnerHTMLOptions{
		Timeout: milliseconds(d.readTimeout),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read inner HTML: %w", err)
	}
	return html, nil
}

// WaitUntil polls pred every pollInterval. It reports false when the timeout
// elapses or ctx is done first.
func (d *PageDriver) WaitUntil(ctx context.Context, pred func() bool, timeout time.Duration) bool {
	return poll(ctx, pred, timeout, d.pollInterval)
}

func poll(ctx context.Context, pred func() bool, timeout, interval time.Duration) bool {
	if pred() {
		return true
	}
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return pred()
		case <-ticker.C:
			if pred() {
				return true
			}
		}
	}
}

func (d *PageDriver) present(loc playwright.Locator, selector string) (reviews.Handle, error) {
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", selector, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", reviews.ErrNotFound, selector)
	}
	return loc, nil
}

func asLocator(h reviews.Handle) (playwright.Locator, error) {
	loc, ok := h.(playwright.Locator)
	if !ok || loc == nil {
		return nil, fmt.Errorf("%w: %T", reviews.ErrInvalidHandle, h)
	}
	return loc, nil
}

// milliseconds converts a wait bound for playwright, where zero would mean
// no limit at all.
func milliseconds(d time.Duration) *float64 {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(float64(ms))
}
