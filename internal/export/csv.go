package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/maltedev/maps-review-scraper/internal/models"
	"github.com/maltedev/maps-review-scraper/internal/reviews"
)

// utf8BOM lets spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

const fileTimestampLayout = "20060102_150405"

var (
	ErrNoReviews   = errors.New("no reviews to export")
	ErrDuplicateID = errors.New("duplicate review id")
)

// CSVWriter stores each finished result as one CSV file under dir.
type CSVWriter struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewCSVWriter creates a writer that stores files under dir.
func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default().With("component", "csv_writer"),
	}
}

// Write creates reviews_<name>_<timestamp>.csv and returns its path. Results
// without reviews produce no file.
func (w *CSVWriter) Write(result *models.ScrapeResult) (string, error) {
	if result == nil || len(result.Reviews) == 0 {
		return "", ErrNoReviews
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, FileName(result.Target.Name, w.now()))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	dataset, err := reviews.NewDataset(result.Columns, result.Reviews)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := WriteCSV(f, dataset); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	w.logger.Info("reviews exported", "path", path, "reviews", len(result.Reviews), "columns", len(result.Columns))
	return path, nil
}

// WriteCSV writes a BOM, the header and one row per review.
func WriteCSV(out io.Writer, dataset *reviews.Dataset) error {
	seen := make(map[string]struct{}, len(dataset.Reviews))
	for _, r := range dataset.Reviews {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	if _, err := io.WriteString(out, utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(dataset.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(dataset.Rows()); err != nil {
		return fmt.Errorf("failed to write reviews: %w", err)
	}
	return nil
}

// FileName builds the export file name for a place.
func FileName(name string, at time.Time) string {
	return fmt.Sprintf("reviews_%s_%s.csv", SafeName(name), at.Format(fileTimestampLayout))
}

// SafeName keeps letters, digits, spaces and underscores of a place name.
func SafeName(name string) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' {
			return r
		}
		return -1
	}, name)
	safe = strings.TrimSpace(safe)
	if safe == "" {
		return "place"
	}
	return safe
}
