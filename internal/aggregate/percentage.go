// Package aggregate reduces annotated review facts to per-entity sentiment
// counts and the relative percentage differences shown on the dashboard.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/spacesedan/aspectflow/internal/models"
)

const noReviews = "0.0% (no reviews)"

// PercentageDiff is the relative difference of num over den as a signed,
// one-decimal percentage. A zero denominator yields a fixed message naming
// the empty bucket instead of dividing.
func PercentageDiff(num, den int, denName string) string {
	if den == 0 {
		if num > 0 {
			return fmt.Sprintf("100.0%% (no %s reviews)", strings.ToLower(denName))
		}
		return noReviews
	}
	return formatPct(num, den)
}

// PercentageVsAll compares one bucket against the sum of the other two.
func PercentageVsAll(row models.AggregateRow, bucket models.Sentiment) string {
	num := row.Count(bucket)
	others := row.Total() - num
	if others == 0 {
		if num > 0 {
			return fmt.Sprintf("100.0%% (all %s reviews)", strings.ToLower(bucket.String()))
		}
		return noReviews
	}
	return formatPct(num, others)
}

// PercentagePair compares two buckets of the same row.
func PercentagePair(row models.AggregateRow, num, den models.Sentiment) string {
	return PercentageDiff(row.Count(num), row.Count(den), den.String())
}

// FillMetrics computes the five percentage columns from the row's own counts.
func FillMetrics(row *models.AggregateRow) {
	row.PosNeg = PercentagePair(*row, models.Positive, models.Negative)
	row.PosNeu = PercentagePair(*row, models.Positive, models.Neutral)
	row.NegNeu = PercentagePair(*row, models.Negative, models.Neutral)
	row.PosAll = PercentageVsAll(*row, models.Positive)
	row.NegAll = PercentageVsAll(*row, models.Negative)
}

func formatPct(num, den int) string {
	pct := float64(num-den) / float64(den) * 100
	return fmt.Sprintf("%+.1f%%", pct)
}
