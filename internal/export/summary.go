package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/maltedev/maps-review-scraper/internal/models"
)

// SummaryRow is one job line of the batch summary.
type SummaryRow struct {
	Target   string
	Status   string
	Reviews  int
	Expected int
	Cycles   int
	Output   string
	Error    string
}

func RenderSummary(w io.Writer, rows []SummaryRow) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Place", "Status", "Reviews", "Expected", "Cycles", "Output / Error"})

	total := 0
	for _, r := range rows {
		detail := r.Output
		if r.Error != "" {
			detail = r.Error
		}
		expected := "?"
		if r.Expected > 0 {
			expected = strconv.Itoa(r.Expected)
		}
		t.AppendRow(table.Row{r.Target, r.Status, r.Reviews, expected, r.Cycles, detail})
		total += r.Reviews
	}

	t.AppendFooter(table.Row{"", "Total", total, "", "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, WidthMax: 60},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// RenderPreview prints the first n reviews of a result with their core fields.
func RenderPreview(w io.Writer, result *models.ScrapeResult, n int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Reviewer", "Date", "Rating", "Guide", "Text"})

	for i, r := range result.Reviews {
		if i >= n {
			break
		}
		guide := "N"
		if r.LocalGuide {
			guide = "Y"
		}
		t.AppendRow(table.Row{r.ID, r.ReviewerName, r.Date, r.Rating, guide, truncate(r.Text, 60)})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func truncate(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
