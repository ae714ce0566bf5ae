package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

// ErrIncompleteReview rejects a review that lacks a core field.
var ErrIncompleteReview = errors.New("incomplete review")

// itemExtractor turns one rendered review into a models.Review.
type itemExtractor struct {
	driver    Driver
	selectors Selectors
	universe  Universe
	logger    *slog.Logger
	now       func() time.Time
}

func (e *itemExtractor) extract(ctx context.Context, h Handle, id string) (*models.Review, error) {
	name, err := e.driver.ReadText(ctx, h, e.selectors.ReviewerName)
	if err != nil {
		return nil, fmt.Errorf("failed to read reviewer name: %w", err)
	}

	date, err := e.driver.ReadText(ctx, h, e.selectors.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to read review date: %w", err)
	}

	stars, err := e.driver.FindIn(ctx, h, e.selectors.Stars)
	if err != nil {
		return nil, fmt.Errorf("failed to find star rating: %w", err)
	}
	label, err := e.driver.ReadAttribute(ctx, stars, "aria-label")
	if err != nil {
		return nil, fmt.Errorf("failed to read star label: %w", err)
	}

	e.expandText(ctx, h)

	text, err := readOptionalText(ctx, e.driver, h, e.selectors.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to read review text: %w", err)
	}

	info, err := readOptionalText(ctx, e.driver, h, e.selectors.ReviewerInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to read reviewer info: %w", err)
	}
	localGuide, count := ParseReviewerInfo(info)

	response, err := readOptionalText(ctx, e.driver, h, e.selectors.OwnerResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner response: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		response = models.NoOwnerResponse
	}

	review := &models.Review{
		ID:                  id,
		ReviewerName:        strings.TrimSpace(name),
		Date:                strings.TrimSpace(date),
		Rating:              ParseRating(label),
		Text:                strings.TrimSpace(text),
		ReviewerReviewCount: count,
		LocalGuide:          localGuide,
		OwnerResponse:       strings.TrimSpace(response),
		ScrapedAt:           e.now(),
	}
	if problems := review.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteReview, strings.Join(problems, ", "))
	}

	// Attributes go last so a rejected review leaves no keys in the universe.
	attrs := NewAttributeSet(e.universe)
	html, err := e.driver.InnerHTML(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to read review markup: %w", err)
	}
	if err := ExtractAttributes(html, attrs); err != nil {
		return nil, err
	}
	review.Attributes = attrs.Map()

	return review, nil
}

// expandText clicks the "More" button of a truncated review. Failure only
// means the text stays truncated.
func (e *itemExtractor) expandText(ctx context.Context, h Handle) {
	if e.selectors.MoreButton == "" {
		return
	}
	more, err := e.driver.FindIn(ctx, h, e.selectors.MoreButton)
	if err != nil {
		return
	}
	if err := e.driver.Click(ctx, more); err != nil {
		e.logger.Debug("failed to expand review text", "error", err)
	}
}
