package reviews

import (
	"fmt"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

// Dataset is the rectangular form of a finished run: every review carries
// exactly the attribute columns listed after the core columns.
type Dataset struct {
	Columns       []string
	AttributeKeys []string
	Reviews       []*models.Review
}

// NewDataset wraps reviews under a header that starts with the core columns.
// The remaining columns are attribute keys.
func NewDataset(columns []string, reviews []*models.Review) (*Dataset, error) {
	if len(columns) < len(models.CoreColumns) {
		return nil, fmt.Errorf("header has %d columns, need at least the %d core columns", len(columns), len(models.CoreColumns))
	}
	return &Dataset{
		Columns:       columns,
		AttributeKeys: columns[len(models.CoreColumns):],
		Reviews:       reviews,
	}, nil
}

// Unify backfills every review with every key of the universe, using the
// "No data" sentinel where a review lacked one, and drops attributes outside
// the universe. Reviews keep their encounter order and the inputs are not
// modified.
func Unify(reviews []*models.Review, universe Universe) *Dataset {
	keys := acceptedKeys(universe)

	columns := make([]string, 0, len(models.CoreColumns)+len(keys))
	columns = append(columns, models.CoreColumns...)
	columns = append(columns, keys...)

	out := make([]*models.Review, 0, len(reviews))
	for _, r := range reviews {
		filled := *r
		filled.Attributes = make(map[string]string, len(keys))
		for _, k := range keys {
			if v, ok := r.Attributes[k]; ok {
				filled.Attributes[k] = v
			} else {
				filled.Attributes[k] = models.NoData
			}
		}
		out = append(out, &filled)
	}

	return &Dataset{
		Columns:       columns,
		AttributeKeys: keys,
		Reviews:       out,
	}
}

// acceptedKeys re-applies the key acceptance rule so nothing that bypassed
// the normalizer reaches the header.
func acceptedKeys(universe Universe) []string {
	var keys []string
	for _, k := range universe.Keys() {
		if acceptKey(k) && !isCoreColumn(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func isCoreColumn(key string) bool {
	for _, c := range models.CoreColumns {
		if c == key {
			return true
		}
	}
	return false
}

// Rows renders the dataset as string rows aligned with Columns. A missing
// attribute renders as the "No data" sentinel.
func (d *Dataset) Rows() [][]string {
	rows := make([][]string, 0, len(d.Reviews))
	for _, r := range d.Reviews {
		row := r.CoreValues()
		for _, k := range d.AttributeKeys {
			v, ok := r.Attributes[k]
			if !ok {
				v = models.NoData
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows
}
