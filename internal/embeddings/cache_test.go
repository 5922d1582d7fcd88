package embeddings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/aspectflow/internal/embeddings"
	"github.com/spacesedan/aspectflow/internal/embeddings/embeddingstest"
)

type brokenCache struct{}

func (brokenCache) GetVectors(context.Context, []string) (map[string][]float64, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) StoreVectors(context.Context, map[string][]float64) error {
	return errors.New("connection refused")
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	ctx := context.Background()
	fake := embeddingstest.NewHashingEmbedder(16)
	cache := embeddings.NewMemoryCache()
	cached := embeddings.NewCachedEmbedder(fake, cache, "test")

	first, err := cached.Embed(ctx, []string{"battery life", "screen", "battery life"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), fake.Texts(), "duplicates are embedded once")
	assert.Equal(t, 2, cache.Len())
	assert.Equal(t, first[0], first[2])

	second, err := cached.Embed(ctx, []string{"screen", "price"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), fake.Texts())
	assert.Equal(t, first[1], second[0])
}

func TestCachedEmbedderMatchesBackend(t *testing.T) {
	ctx := context.Background()
	fake := embeddingstest.NewHashingEmbedder(16)
	cached := embeddings.NewCachedEmbedder(fake, embeddings.NewMemoryCache(), "test")
	texts := []string{"fast shipping", "great value", "fast shipping"}

	want, err := fake.Embed(ctx, texts)
	require.NoError(t, err)
	got, err := cached.Embed(ctx, texts)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestCachedEmbedderSurvivesCacheFailures(t *testing.T) {
	fake := embeddingstest.NewHashingEmbedder(16)
	cached := embeddings.NewCachedEmbedder(fake, brokenCache{}, "test")

	vectors, err := cached.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}

func TestCachedEmbedderKeyIsNamespaced(t *testing.T) {
	a := embeddings.NewCachedEmbedder(nil, nil, "model-a")
	b := embeddings.NewCachedEmbedder(nil, nil, "model-b")

	assert.NotEqual(t, a.Key("same text"), b.Key("same text"))
	assert.Equal(t, a.Key("same text"), a.Key("same text"))
}
