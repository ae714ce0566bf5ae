package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/reviews"
)

var scrapedAt = time.Date(2026, 5, 4, 18, 30, 5, 0, time.UTC)

func sampleResult() *models.ScrapeResult {
	columns := append(append([]string{}, models.CoreColumns...), "Food", "service_type")
	return &models.ScrapeResult{
		Target:  models.Target{Name: "Café Central!", Location: "Wien"},
		Columns: columns,
		Reviews: []*models.Review{
			{
				ID: "r1", ReviewerName: "Anna", Date: "a week ago", Rating: "5",
				Text: "Great, \"really\" great", ReviewerReviewCount: "128", LocalGuide: true,
				OwnerResponse: "Thanks", ScrapedAt: scrapedAt,
				Attributes: map[string]string{"Food": "5", "service_type": "Dine in"},
			},
			{
				ID: "r2", ReviewerName: "Ben", Date: "2 days ago", Rating: "3",
				OwnerResponse: models.NoOwnerResponse, ScrapedAt: scrapedAt,
				Attributes: map[string]string{"Food": models.NoData},
			},
		},
		Success: true,
	}
}

func TestWriteCSV(t *testing.T) {
	result := sampleResult()
	var buf bytes.Buffer

	dataset, err := reviews.NewDataset(result.Columns, result.Reviews)
	require.NoError(t, err)

	require.NoError(t, WriteCSV(&buf, dataset))

	raw := buf.String()
	require.True(t, strings.HasPrefix(raw, utf8BOM))

	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, result.Columns, records[0])
	assert.Equal(t, []string{
		"r1", "Anna", "a week ago", "5", "Great, \"really\" great", "128", "Y", "Thanks",
		"2026-05-04 18:30:05", "5", "Dine in",
	}, records[1])
	assert.Equal(t, "N", records[2][6])
	assert.Equal(t, []string{models.NoData, models.NoData}, records[2][9:])
}

func TestWriteCSV_Rejects(t *testing.T) {
	t.Run("duplicate ids", func(t *testing.T) {
		result := sampleResult()
		result.Reviews[1].ID = "r1"

		dataset, err := reviews.NewDataset(result.Columns, result.Reviews)
		require.NoError(t, err)

		var buf bytes.Buffer
		err = WriteCSV(&buf, dataset)
		assert.ErrorIs(t, err, ErrDuplicateID)
		assert.Zero(t, buf.Len())
	})

	t.Run("short header", func(t *testing.T) {
		result := sampleResult()
		result.Columns = []string{"review_id"}

		_, err := NewCSVWriter(t.TempDir()).Write(result)
		assert.Error(t, err)
	})
}

func TestCSVWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reviews_data")
	w := NewCSVWriter(dir)
	w.now = func() time.Time { return scrapedAt }

	path, err := w.Write(sampleResult())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "reviews_Café Central_20260504_183005.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "review_id,reviewer_name")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCSVWriter_EmptyResult(t *testing.T) {
	dir := t.TempDir()
	w := NewCSVWriter(dir)

	_, err := w.Write(models.EmptyResult(models.Target{Name: "Nowhere"}, "place_not_found", "no results", ""))
	assert.ErrorIs(t, err, ErrNoReviews)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Joe's Pizza", "Joes Pizza"},
		{"Café Central!", "Café Central"},
		{"Burger_Bar 2 ", "Burger_Bar 2"},
		{"../../etc", "etc"},
		{"!!!", "place"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeName(tt.in))
		})
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer

	RenderSummary(&buf, []SummaryRow{
		{Target: "Tartine", Status: "completed", Reviews: 42, Expected: 50, Cycles: 6, Output: "reviews_data/reviews_Tartine.csv"},
		{Target: "Nowhere", Status: "empty", Error: "place_not_found"},
	})

	out := buf.String()
	assert.Contains(t, out, "Tartine")
	assert.Contains(t, out, "place_not_found")
	assert.Contains(t, out, "42")
	assert.Contains(t, strings.ToUpper(out), "TOTAL")
}

func TestRenderPreview(t *testing.T) {
	var buf bytes.Buffer

	RenderPreview(&buf, sampleResult(), 1)

	out := buf.String()
	assert.Contains(t, out, "Anna")
	assert.NotContains(t, out, "Ben")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
}
