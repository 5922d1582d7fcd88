package sentiment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/aspectflow/internal/models"
)

type dotSplitter struct{}

func (dotSplitter) Split(text string) []string {
	var out []string
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

type fixedScorer map[string]float64

func (f fixedScorer) Compound(text string) float64 {
	return f[text]
}

func TestSegmenterThresholds(t *testing.T) {
	scorer := fixedScorer{
		"exactly positive": 0.3,
		"very positive":    0.9,
		"barely positive":  0.29,
		"barely negative":  -0.29,
		"exactly negative": -0.3,
		"very negative":    -0.8,
	}
	seg := NewSegmenter(dotSplitter{}, scorer, DefaultPolarityThreshold)

	pros, cons := seg.Segment("exactly positive. barely positive. very negative. barely negative. very positive. exactly negative.")

	assert.Equal(t, "exactly positive very positive", pros)
	assert.Equal(t, "very negative exactly negative", cons)
}

func TestSegmenterDefaultsThreshold(t *testing.T) {
	scorer := fixedScorer{"flat": 0, "mild": 0.1, "strong": 0.5, "sour": -0.1}

	for _, threshold := range []float64{0, -1} {
		seg := NewSegmenter(dotSplitter{}, scorer, threshold)
		pros, cons := seg.Segment("flat. mild. strong. sour.")
		assert.Equal(t, "strong", pros)
		assert.Empty(t, cons)
	}
}

func TestSegmenterEmptyInput(t *testing.T) {
	seg := NewSegmenter(dotSplitter{}, fixedScorer{}, DefaultPolarityThreshold)

	pros, cons := seg.Segment("   ")
	assert.Empty(t, pros)
	assert.Empty(t, cons)
}

func TestSegmenterWithVaderAndPunkt(t *testing.T) {
	splitter, err := NewPunktSplitter()
	require.NoError(t, err)

	seg := NewSegmenter(splitter, NewVaderScorer(), DefaultPolarityThreshold)
	pros, cons := seg.Segment("I love this tablet, the screen is great. The battery is terrible and I hate it. It arrived on Tuesday.")

	assert.Contains(t, pros, "screen is great")
	assert.Contains(t, cons, "battery is terrible")
	assert.NotContains(t, pros, "Tuesday")
	assert.NotContains(t, cons, "Tuesday")
}

func TestVaderScorerRange(t *testing.T) {
	scorer := NewVaderScorer()

	assert.Greater(t, scorer.Compound("this is wonderful and amazing"), 0.3)
	assert.Less(t, scorer.Compound("this is awful and horrible"), -0.3)
	assert.InDelta(t, 0.0, scorer.Compound("the box is brown"), 0.05)
}

func TestSelectBuckets(t *testing.T) {
	tests := []struct {
		sentiment    models.Sentiment
		wantPros     string
		wantCritical string
	}{
		{models.Positive, "pros", ""},
		{models.Negative, "", "cons"},
		{models.Neutral, "pros", "cons"},
	}

	for _, tt := range tests {
		t.Run(tt.sentiment.String(), func(t *testing.T) {
			pros, cons := SelectBuckets(tt.sentiment, "pros", "cons")
			assert.Equal(t, tt.wantPros, pros)
			assert.Equal(t, tt.wantCritical, cons)
		})
	}
}
