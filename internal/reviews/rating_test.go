package reviews

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"4.5 stars", "4.5"},
		{"4 stars", "4"},
		{"4.5/5", "4.5"},
		{"5,0 Sterne", "5,0"},
		{"  3 stars ", "3"},
		{"stars", "stars"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRating(tt.label))
		})
	}
}

func TestParseReviewerInfo(t *testing.T) {
	tests := []struct {
		name           string
		info           string
		wantLocalGuide bool
		wantCount      string
	}{
		{
			name:           "local guide",
			info:           "Local Guide · 128 reviews",
			wantLocalGuide: true,
			wantCount:      "128",
		},
		{
			name:      "plain reviewer",
			info:      "12 reviews",
			wantCount: "12",
		},
		{
			name:      "single review",
			info:      "1 review",
			wantCount: "1",
		},
		{
			name:           "photos segment skipped",
			info:           "Local Guide · 1,024 reviews · 310 photos",
			wantLocalGuide: true,
			wantCount:      "1,024",
		},
		{
			name:           "local guide without count",
			info:           "Local Guide",
			wantLocalGuide: true,
		},
		{
			name: "empty",
			info: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			localGuide, count := ParseReviewerInfo(tt.info)
			assert.Equal(t, tt.wantLocalGuide, localGuide)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestParseTotalReviews(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"1,234 reviews", 1234},
		{"(87)", 87},
		{"2.345 Rezensionen", 2345},
		{"12 345 avis", 12345},
		{"No reviews", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTotalReviews(tt.text))
		})
	}
}
