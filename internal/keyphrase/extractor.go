// Package keyphrase picks the few 1-2 word phrases that best summarise a
// piece of review text. Candidates are ranked by embedding similarity to the
// whole text and the final set is chosen with Max Sum Distance so the
// phrases do not repeat each other.
package keyphrase

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/spacesedan/aspectflow/internal/embeddings"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/preprocessing"
)

const (
	DefaultTopN         = 3
	DefaultNrCandidates = 20
	maxNgram            = 2
)

var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

type Extractor struct {
	embedder     embeddings.Embedder
	topN         int
	nrCandidates int
}

func NewExtractor(embedder embeddings.Embedder, topN, nrCandidates int) *Extractor {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if nrCandidates < topN {
		nrCandidates = max(topN, DefaultNrCandidates)
	}
	return &Extractor{
		embedder:     embedder,
		topN:         topN,
		nrCandidates: nrCandidates,
	}
}

// TopN is the per-segment phrase budget.
func (e *Extractor) TopN() int {
	return e.topN
}

// Candidates lists the unique 1- and 2-grams of text after stop words are
// removed, in first-seen order.
func Candidates(text string) []string {
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if !preprocessing.IsStopWord(tok) {
			tokens = append(tokens, tok)
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for n := 1; n <= maxNgram; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			gram := strings.Join(tokens[i:i+n], " ")
			if _, ok := seen[gram]; ok {
				continue
			}
			seen[gram] = struct{}{}
			out = append(out, gram)
		}
	}
	return out
}

// Extract returns up to topN phrases ordered by relevance. Empty or
// degenerate text yields an empty slice and no error.
func (e *Extractor) Extract(ctx context.Context, text string) ([]string, error) {
	candidates := Candidates(text)
	if len(candidates) == 0 {
		return []string{}, nil
	}

	vectors, err := e.embedder.Embed(ctx, append([]string{text}, candidates...))
	if err != nil {
		return nil, fmt.Errorf("failed to embed keyphrase candidates: %w", err)
	}
	if len(vectors) != len(candidates)+1 {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(candidates)+1)
	}

	docVec, candVecs := vectors[0], vectors[1:]
	relevance := make([]float64, len(candidates))
	for i, v := range candVecs {
		relevance[i] = embeddings.CosineSimilarity(docVec, v)
	}

	chosen := maxSumSelection(relevance, candVecs, e.topN, e.nrCandidates)

	phrases := make([]string, len(chosen))
	for i, idx := range chosen {
		phrases[i] = candidates[idx]
	}
	return phrases, nil
}

// ExtractForReview applies the bucket rule: positive reviews use the
// supportive text, negative reviews the critical text, neutral reviews both
// (supportive first).
func (e *Extractor) ExtractForReview(ctx context.Context, s models.Sentiment, supportive, critical string) ([]string, error) {
	switch s {
	case models.Positive:
		return e.Extract(ctx, supportive)
	case models.Negative:
		return e.Extract(ctx, critical)
	}

	pros, err := e.Extract(ctx, supportive)
	if err != nil {
		return nil, err
	}
	cons, err := e.Extract(ctx, critical)
	if err != nil {
		return nil, err
	}

	out := append(pros, cons...)
	if len(out) > 2*e.topN {
		out = out[:2*e.topN]
	}
	return out, nil
}

// maxSumSelection keeps the nrCandidates most relevant candidates and picks
// the topN-subset among them whose pairwise similarity sum is smallest. The
// result is sorted by relevance, most relevant first.
func maxSumSelection(relevance []float64, vectors [][]float64, topN, nrCandidates int) []int {
	order := make([]int, len(relevance))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return relevance[order[a]] > relevance[order[b]]
	})
	if len(order) > nrCandidates {
		order = order[:nrCandidates]
	}

	if len(order) <= topN {
		return order
	}

	pairSim := make([][]float64, len(order))
	for i := range order {
		pairSim[i] = make([]float64, len(order))
		for j := range order {
			if i != j {
				pairSim[i][j] = embeddings.CosineSimilarity(vectors[order[i]], vectors[order[j]])
			}
		}
	}

	best := make([]int, topN)
	combo := make([]int, topN)
	bestSum := 0.0
	found := false

	var walk func(start, depth int, sum float64)
	walk = func(start, depth int, sum float64) {
		if depth == topN {
			if !found || sum < bestSum {
				bestSum = sum
				copy(best, combo)
				found = true
			}
			return
		}
		for i := start; i <= len(order)-(topN-depth); i++ {
			added := 0.0
			for _, prev := range combo[:depth] {
				added += pairSim[prev][i]
			}
			combo[depth] = i
			walk(i+1, depth+1, sum+added)
		}
	}
	walk(0, 0, 0)

	// best holds positions in relevance order, so it is already sorted
	out := make([]int, topN)
	for i, pos := range best {
		out[i] = order[pos]
	}
	return out
}
