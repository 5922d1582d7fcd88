package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spacesedan/aspectflow/internal/models"
)

// RenderAggregates prints up to limit aggregate rows as a table. limit <= 0
// prints all of them.
func RenderAggregates(w io.Writer, title, entityColumn string, rows []models.AggregateRow, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)

	header := table.Row{}
	for _, h := range AggregateHeader(entityColumn) {
		header = append(header, h)
	}
	t.AppendHeader(header)

	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	for _, r := range shown {
		t.AppendRow(table.Row{
			r.EntityKey, r.Negative, r.Neutral, r.Positive,
			r.PosNeg, r.PosNeu, r.NegNeu, r.PosAll, r.NegAll,
		})
	}
	if len(shown) < len(rows) {
		t.AppendFooter(table.Row{fmt.Sprintf("... %d more", len(rows)-len(shown))})
	}
	t.Render()
}

// Summary is the run overview printed at the end of `precompute run`.
type Summary struct {
	RunID         string
	Reviews       int
	Dropped       int
	AnnotatedRows int
	Products      int
	Categories    int
	TestLoss      float64
	TestAccuracy  float64
	Taxonomy      string
	Outputs       []string
}

func RenderSummary(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + s.RunID)

	t.AppendRow(table.Row{"Reviews", s.Reviews})
	t.AppendRow(table.Row{"Dropped (invalid embedding)", s.Dropped})
	t.AppendRow(table.Row{"Annotated rows", s.AnnotatedRows})
	t.AppendRow(table.Row{"Products", s.Products})
	t.AppendRow(table.Row{"Categories", s.Categories})
	t.AppendRow(table.Row{"Test loss", fmt.Sprintf("%.4f", s.TestLoss)})
	t.AppendRow(table.Row{"Test accuracy", fmt.Sprintf("%.4f", s.TestAccuracy)})
	t.AppendRow(table.Row{"Aspect taxonomy", s.Taxonomy})
	t.AppendSeparator()
	for _, o := range s.Outputs {
		t.AppendRow(table.Row{"Output", o})
	}
	t.Render()
}
