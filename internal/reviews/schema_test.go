package reviews

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

func TestUnify(t *testing.T) {
	scrapedAt := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	reviews := []*models.Review{
		{ID: "a", ReviewerName: "Anna", ScrapedAt: scrapedAt, Attributes: map[string]string{"Food": "5"}},
		{ID: "b", ReviewerName: "Ben", ScrapedAt: scrapedAt, Attributes: map[string]string{"service_type": "Take out", "Atmosphere": "4"}},
		{ID: "c", ReviewerName: "Cleo", ScrapedAt: scrapedAt, Attributes: map[string]string{"Vibe.": "leaked", "Food": "3"}},
		{ID: "d", ReviewerName: "Dan", ScrapedAt: scrapedAt},
	}
	universe := Universe{}
	for _, k := range []string{"Food", "service_type", "Atmosphere"} {
		universe.Add(k)
	}

	ds := Unify(reviews, universe)

	t.Run("columns are core plus sorted universe", func(t *testing.T) {
		want := append(append([]string{}, models.CoreColumns...), "Atmosphere", "Food", "service_type")
		assert.Equal(t, want, ds.Columns)
		assert.Equal(t, []string{"Atmosphere", "Food", "service_type"}, ds.AttributeKeys)
	})

	t.Run("every record is rectangular", func(t *testing.T) {
		require.Len(t, ds.Reviews, 4)
		for _, r := range ds.Reviews {
			assert.Len(t, r.Attributes, 3, r.ID)
			for _, k := range ds.AttributeKeys {
				assert.Contains(t, r.Attributes, k)
			}
		}
		assert.Equal(t, map[string]string{"Atmosphere": "No data", "Food": "5", "service_type": "No data"}, ds.Reviews[0].Attributes)
		assert.Equal(t, map[string]string{"Atmosphere": "No data", "Food": "No data", "service_type": "No data"}, ds.Reviews[3].Attributes)
	})

	t.Run("keys outside the universe are dropped", func(t *testing.T) {
		assert.NotContains(t, ds.Reviews[2].Attributes, "Vibe.")
		assert.NotContains(t, ds.Columns, "Vibe.")
	})

	t.Run("encounter order preserved", func(t *testing.T) {
		var ids []string
		for _, r := range ds.Reviews {
			ids = append(ids, r.ID)
		}
		assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	})

	t.Run("inputs untouched", func(t *testing.T) {
		assert.Equal(t, map[string]string{"Food": "5"}, reviews[0].Attributes)
		assert.Nil(t, reviews[3].Attributes)
	})

	t.Run("rows align with columns", func(t *testing.T) {
		rows := ds.Rows()
		require.Len(t, rows, 4)
		for _, row := range rows {
			assert.Len(t, row, len(ds.Columns))
		}
		assert.Equal(t, "Anna", rows[0][1])
		assert.Equal(t, "2026-03-01 12:30:00", rows[0][8])
		assert.Equal(t, []string{"4", "No data", "Take out"}, rows[1][len(models.CoreColumns):])
	})
}

func TestUnify_ExcludesUnacceptedAndCoreKeys(t *testing.T) {
	universe := Universe{}
	universe.Add("Food")
	universe.Add("ab")
	universe.Add("Price..")
	universe.Add("rating")

	ds := Unify(nil, universe)

	assert.Equal(t, []string{"Food"}, ds.AttributeKeys)
	assert.Empty(t, ds.Reviews)
	assert.Empty(t, ds.Rows())
}

func TestNewDataset(t *testing.T) {
	columns := append(append([]string{}, models.CoreColumns...), "Food", "Parking")
	reviews := []*models.Review{
		{ID: "r1", ReviewerName: "Anna", Attributes: map[string]string{"Food": "5"}},
	}

	ds, err := NewDataset(columns, reviews)
	require.NoError(t, err)

	assert.Equal(t, []string{"Food", "Parking"}, ds.AttributeKeys)
	rows := ds.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"5", models.NoData}, rows[0][len(models.CoreColumns):])

	_, err = NewDataset([]string{"review_id"}, nil)
	assert.Error(t, err)
}
