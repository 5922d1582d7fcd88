package aggregate

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/spacesedan/aspectflow/internal/models"
)

// KeyFunc picks the entity an annotated row is counted under.
type KeyFunc func(models.AnnotatedRow) string

func ProductKey(r models.AnnotatedRow) string  { return r.ProductName }
func CategoryKey(r models.AnnotatedRow) string { return r.PrimaryCategory }

// dedupKey is an annotated row without its aspect label, so each review is
// counted once per entity no matter how many aspects it produced.
type dedupKey struct {
	id        string
	date      int64
	hasDate   bool
	category  string
	product   string
	sentiment string
}

func keyOf(r models.AnnotatedRow) dedupKey {
	k := dedupKey{
		id:        r.ID,
		category:  r.PrimaryCategory,
		product:   r.ProductName,
		sentiment: strings.TrimSpace(r.ModelSentimentLabel),
	}
	if r.ReviewDate != nil {
		k.date = r.ReviewDate.UTC().UnixNano()
		k.hasDate = true
	}
	return k
}

// Aggregate drops the aspect column, de-duplicates, counts the remaining
// rows per entity and sentiment bucket, fills the percentage columns and
// returns the rows sorted by entity key.
func Aggregate(rows []models.AnnotatedRow, key KeyFunc) []models.AggregateRow {
	start := time.Now()

	seen := make(map[dedupKey]struct{}, len(rows))
	byEntity := make(map[string]*models.AggregateRow)
	skipped := 0

	for _, r := range rows {
		k := keyOf(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		s, ok := models.ParseSentiment(k.sentiment)
		if !ok {
			skipped++
			continue
		}

		entity := key(r)
		agg, ok := byEntity[entity]
		if !ok {
			agg = &models.AggregateRow{EntityKey: entity}
			byEntity[entity] = agg
		}
		switch s {
		case models.Negative:
			agg.Negative++
		case models.Neutral:
			agg.Neutral++
		case models.Positive:
			agg.Positive++
		}
	}

	if skipped > 0 {
		slog.Warn("[Aggregate] Skipped rows with unknown sentiment label", slog.Int("count", skipped))
	}

	out := make([]models.AggregateRow, 0, len(byEntity))
	for _, agg := range byEntity {
		FillMetrics(agg)
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityKey < out[j].EntityKey })

	slog.Debug("[Aggregate] Reduced annotated rows",
		slog.Int("rows", len(rows)),
		slog.Int("unique", len(seen)),
		slog.Int("entities", len(out)),
		slog.Duration("elapsed", time.Since(start)))

	return out
}

func ByProduct(rows []models.AnnotatedRow) []models.AggregateRow {
	return Aggregate(rows, ProductKey)
}

func ByCategory(rows []models.AnnotatedRow) []models.AggregateRow {
	return Aggregate(rows, CategoryKey)
}
