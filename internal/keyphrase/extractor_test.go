package keyphrase

import (
	"context"
	"errors"
	"testing"

	"github.com/spacesedan/aspectflow/internal/embeddings/embeddingstest"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"only stop words", "the and is", nil},
		{"single letters dropped", "a b c", nil},
		{"unigrams then bigrams", "the battery and the screen", []string{"battery", "screen", "battery screen"}},
		{"duplicates collapsed", "battery battery", []string{"battery", "battery battery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.text))
		})
	}
}

func TestMaxSumSelection(t *testing.T) {
	relevance := []float64{0.9, 0.8, 0.7}
	vectors := [][]float64{
		{1, 0},
		{1, 0},
		{0, 1},
	}

	got := maxSumSelection(relevance, vectors, 2, 20)
	assert.Equal(t, []int{0, 2}, got)
}

func TestMaxSumSelectionKeepsMostRelevantCandidates(t *testing.T) {
	relevance := []float64{0.1, 0.9, 0.5, 0.7}
	vectors := [][]float64{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

	got := maxSumSelection(relevance, vectors, 3, 3)
	assert.ElementsMatch(t, []int{1, 3, 2}, got)
	assert.Equal(t, []int{1, 3, 2}, got, "sorted by relevance")
}

func TestMaxSumSelectionFewerThanTopN(t *testing.T) {
	got := maxSumSelection([]float64{0.2, 0.6}, [][]float64{{1}, {1}}, 3, 20)
	assert.Equal(t, []int{1, 0}, got)
}

func TestExtract(t *testing.T) {
	ctx := context.Background()
	ex := NewExtractor(embeddingstest.NewHashingEmbedder(32), 3, 20)

	t.Run("empty text", func(t *testing.T) {
		got, err := ex.Extract(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("bounded and drawn from candidates", func(t *testing.T) {
		text := "battery charger screen kindle battery screen"
		got, err := ex.Extract(ctx, text)
		require.NoError(t, err)
		assert.Len(t, got, 3)

		candidates := Candidates(text)
		seen := map[string]bool{}
		for _, p := range got {
			assert.Contains(t, candidates, p)
			assert.False(t, seen[p], "duplicate phrase %q", p)
			seen[p] = true
		}
	})

	t.Run("embedder error", func(t *testing.T) {
		emb := embeddingstest.NewHashingEmbedder(8)
		emb.Err = errors.New("backend down")
		_, err := NewExtractor(emb, 3, 20).Extract(ctx, "battery screen")
		require.Error(t, err)
		assert.ErrorIs(t, err, emb.Err)
	})
}

func TestExtractForReview(t *testing.T) {
	ctx := context.Background()
	emb := embeddingstest.NewHashingEmbedder(32)
	ex := NewExtractor(emb, 2, 20)

	pros := "battery charger screen"
	cons := "kindle sleeve adapter"

	t.Run("positive uses supportive text only", func(t *testing.T) {
		got, err := ex.ExtractForReview(ctx, models.Positive, pros, cons)
		require.NoError(t, err)
		for _, p := range got {
			assert.Contains(t, Candidates(pros), p)
		}
	})

	t.Run("negative uses critical text only", func(t *testing.T) {
		got, err := ex.ExtractForReview(ctx, models.Negative, pros, cons)
		require.NoError(t, err)
		for _, p := range got {
			assert.Contains(t, Candidates(cons), p)
		}
	})

	t.Run("neutral combines both and stays bounded", func(t *testing.T) {
		got, err := ex.ExtractForReview(ctx, models.Neutral, pros, cons)
		require.NoError(t, err)
		assert.Len(t, got, 4)
		assert.LessOrEqual(t, len(got), 2*ex.TopN())
	})

	t.Run("empty buckets", func(t *testing.T) {
		got, err := ex.ExtractForReview(ctx, models.Neutral, "", "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
