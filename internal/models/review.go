package models

import (
	"strings"
	"time"
)

// NoData fills attribute columns a review did not carry.
const NoData = "No data"

// NoOwnerResponse marks reviews the business never answered.
const NoOwnerResponse = "None"

// Review is one harvested review. Attributes holds the optional per-review
// metadata under normalized keys.
type Review struct {
	ID                  string            `json:"review_id"`
	ReviewerName        string            `json:"reviewer_name"`
	Date                string            `json:"review_date"`
	Rating              string            `json:"rating"`
	Text                string            `json:"review_text"`
	ReviewerReviewCount string            `json:"num_reviews"`
	LocalGuide          bool              `json:"local_guide"`
	OwnerResponse       string            `json:"owner_response"`
	ScrapedAt           time.Time         `json:"scrape_timestamp"`
	Attributes          map[string]string `json:"attributes"`
}

// CoreColumns lists the fixed columns every dataset starts with, in output order.
var CoreColumns = []string{
	"review_id",
	"reviewer_name",
	"review_date",
	"rating",
	"review_text",
	"num_reviews",
	"local_guide",
	"owner_response",
	"scrape_timestamp",
}

const timestampLayout = "2006-01-02 15:04:05"

// CoreValues returns the core fields in CoreColumns order.
func (r *Review) CoreValues() []string {
	guide := "N"
	if r.LocalGuide {
		guide = "Y"
	}
	return []string{
		r.ID,
		r.ReviewerName,
		r.Date,
		r.Rating,
		r.Text,
		r.ReviewerReviewCount,
		guide,
		r.OwnerResponse,
		r.ScrapedAt.Format(timestampLayout),
	}
}

// Target identifies the place whose reviews are collected.
type Target struct {
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

// Query is the free-text search used to locate the place.
func (t Target) Query() string {
	return strings.TrimSpace(strings.TrimSpace(t.Name) + " " + strings.TrimSpace(t.Location))
}

func (t Target) String() string {
	if t.Location == "" {
		return t.Name
	}
	return t.Name + " (" + t.Location + ")"
}

type ScrapeResult struct {
	Target   Target    `json:"target"`
	Columns  []string  `json:"columns"`
	Reviews  []*Review `json:"reviews"`
	Expected int       `json:"expected_total,omitempty"`
	Cycles   int       `json:"cycles"`
	Error    *Error    `json:"error,omitempty"`
	Success  bool      `json:"success"`
}

type Error struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	URL     string    `json:"url,omitempty"`
}

// EmptyResult is what a run returns when the place or its review list could
// not be reached.
func EmptyResult(target Target, code, message, url string) *ScrapeResult {
	return &ScrapeResult{
		Target:  target,
		Reviews: make([]*Review, 0),
		Error: &Error{
			Code:    code,
			Message: message,
			Time:    time.Now(),
			URL:     url,
		},
	}
}

// Validate reports missing core fields. An empty list means the review is usable.
func (r *Review) Validate() []string {
	var errors []string

	if r.ID == "" {
		errors = append(errors, "review id is required")
	}

	if r.ReviewerName == "" {
		errors = append(errors, "reviewer name is required")
	}

	if r.ScrapedAt.IsZero() {
		errors = append(errors, "scrape timestamp is required")
	}

	return errors
}
