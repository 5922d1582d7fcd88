package aggregate

import (
	"testing"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPercentagePair(t *testing.T) {
	tests := []struct {
		name     string
		row      models.AggregateRow
		num, den models.Sentiment
		want     string
	}{
		{"zero denominator", models.AggregateRow{Positive: 10, Negative: 0, Neutral: 5}, models.Positive, models.Negative, "100.0% (no negative reviews)"},
		{"zero neutral denominator", models.AggregateRow{Positive: 10}, models.Positive, models.Neutral, "100.0% (no neutral reviews)"},
		{"no reviews", models.AggregateRow{}, models.Positive, models.Negative, "0.0% (no reviews)"},
		{"increase", models.AggregateRow{Positive: 15, Negative: 5}, models.Positive, models.Negative, "+200.0%"},
		{"decrease", models.AggregateRow{Positive: 5, Negative: 15}, models.Positive, models.Negative, "-66.7%"},
		{"equal", models.AggregateRow{Positive: 4, Negative: 4}, models.Positive, models.Negative, "+0.0%"},
		{"zero numerator", models.AggregateRow{Negative: 0, Neutral: 3}, models.Negative, models.Neutral, "-100.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentagePair(tt.row, tt.num, tt.den))
		})
	}
}

func TestPercentageVsAll(t *testing.T) {
	tests := []struct {
		name   string
		row    models.AggregateRow
		bucket models.Sentiment
		want   string
	}{
		{"no reviews", models.AggregateRow{}, models.Positive, "0.0% (no reviews)"},
		{"all positive", models.AggregateRow{Positive: 4}, models.Positive, "100.0% (all positive reviews)"},
		{"all negative", models.AggregateRow{Negative: 2}, models.Negative, "100.0% (all negative reviews)"},
		{"bucket empty, others present", models.AggregateRow{Positive: 3}, models.Negative, "-100.0%"},
		{"mixed", models.AggregateRow{Positive: 6, Negative: 1, Neutral: 2}, models.Positive, "+100.0%"},
		{"minority", models.AggregateRow{Positive: 1, Negative: 2, Neutral: 1}, models.Negative, "+0.0%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentageVsAll(tt.row, tt.bucket))
		})
	}
}

func TestFillMetricsIndependent(t *testing.T) {
	row := models.AggregateRow{Positive: 10, Neutral: 5, Negative: 0}
	FillMetrics(&row)

	assert.Equal(t, "100.0% (no negative reviews)", row.PosNeg)
	assert.Equal(t, "+100.0%", row.PosNeu)
	assert.Equal(t, "-100.0%", row.NegNeu)
	assert.Equal(t, "+100.0%", row.PosAll)
	assert.Equal(t, "-100.0%", row.NegAll)
}

func TestFillMetricsEmptyRow(t *testing.T) {
	var row models.AggregateRow
	FillMetrics(&row)

	for _, v := range []string{row.PosNeg, row.PosNeu, row.NegNeu, row.PosAll, row.NegAll} {
		assert.Equal(t, "0.0% (no reviews)", v)
	}
}
