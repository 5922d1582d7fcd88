// Package sentiment scores sentence polarity and splits review text into
// its supportive and critical sentences.
package sentiment

import (
	"github.com/jonreiter/govader"
)

// PolarityScorer returns a compound polarity in [-1, 1].
type PolarityScorer interface {
	Compound(text string) float64
}

type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Compound(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}
