package sentiment

import (
	"fmt"
	"strings"

	"github.com/spacesedan/aspectflow/internal/models"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

const DefaultPolarityThreshold = 0.3

// SentenceSplitter finds sentence boundaries.
type SentenceSplitter interface {
	Split(text string) []string
}

type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewPunktSplitter() (*PunktSplitter, error) {
	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load english sentence model: %w", err)
	}
	return &PunktSplitter{tokenizer: tokenizer}, nil
}

func (p *PunktSplitter) Split(text string) []string {
	var out []string
	for _, s := range p.tokenizer.Tokenize(text) {
		if trimmed := strings.TrimSpace(s.Text); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Segmenter groups the sentences of a review into pros and cons by polarity.
// Sentences scoring strictly between -threshold and +threshold are dropped.
type Segmenter struct {
	splitter  SentenceSplitter
	scorer    PolarityScorer
	threshold float64
}

// NewSegmenter uses DefaultPolarityThreshold when threshold is not positive.
func NewSegmenter(splitter SentenceSplitter, scorer PolarityScorer, threshold float64) *Segmenter {
	if threshold <= 0 {
		threshold = DefaultPolarityThreshold
	}
	return &Segmenter{
		splitter:  splitter,
		scorer:    scorer,
		threshold: threshold,
	}
}

// Segment returns the supportive and critical text, each the space-joined
// qualifying sentences. Empty input gives two empty strings.
func (s *Segmenter) Segment(text string) (supportive, critical string) {
	if strings.TrimSpace(text) == "" {
		return "", ""
	}

	var pros, cons []string
	for _, sentence := range s.splitter.Split(text) {
		score := s.scorer.Compound(sentence)
		switch {
		case score >= s.threshold:
			pros = append(pros, sentence)
		case score <= -s.threshold:
			cons = append(cons, sentence)
		}
	}

	return strings.Join(pros, " "), strings.Join(cons, " ")
}

// SelectBuckets keeps the bucket(s) that feed keyphrase extraction for a
// review's rating-derived sentiment.
func SelectBuckets(s models.Sentiment, supportive, critical string) (string, string) {
	switch s {
	case models.Positive:
		return supportive, ""
	case models.Negative:
		return "", critical
	default:
		return supportive, critical
	}
}
