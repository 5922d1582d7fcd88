package aspects

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/embeddings/embeddingstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var corpus = []string{
	"battery", "battery life", "charger", "battery",
	"price", "great price", "value", "price",
	"screen", "display", "screen quality", "kindle",
	"shipping", "delivery", "fast shipping", "box",
}

func defaultTaxonomy(t *testing.T) *Taxonomy {
	t.Helper()
	tax, err := ParseTaxonomy(config.DefaultAspectsYAML)
	require.NoError(t, err)
	return tax
}

func TestKMeansSeparatesObviousGroups(t *testing.T) {
	data := mat.NewDense(6, 2, []float64{
		0, 0,
		0.1, 0,
		0, 0.1,
		10, 10,
		10.1, 10,
		10, 10.1,
	})

	res := KMeans(data, KMeansConfig{K: 2, NInit: 3, MaxIter: 100, Seed: 123})

	require.Len(t, res.Assignments, 6)
	assert.Equal(t, res.Assignments[0], res.Assignments[1])
	assert.Equal(t, res.Assignments[0], res.Assignments[2])
	assert.Equal(t, res.Assignments[3], res.Assignments[4])
	assert.Equal(t, res.Assignments[3], res.Assignments[5])
	assert.NotEqual(t, res.Assignments[0], res.Assignments[3])
	assert.InDelta(t, 0.0267, res.Inertia, 0.001)
}

func TestKMeansClampsK(t *testing.T) {
	data := mat.NewDense(2, 1, []float64{1, 2})
	res := KMeans(data, KMeansConfig{K: 12, Seed: 1})

	rows, _ := res.Centroids.Dims()
	assert.Equal(t, 2, rows)
}

func TestClustererDeterministic(t *testing.T) {
	ctx := context.Background()
	opts := ClusterOptions{NumClusters: 4, NInit: 2, MaxIter: 300, Seed: 123}

	first, err := NewClusterer(embeddingstest.NewHashingEmbedder(16), defaultTaxonomy(t), opts).Fit(ctx, corpus)
	require.NoError(t, err)
	second, err := NewClusterer(embeddingstest.NewHashingEmbedder(16), defaultTaxonomy(t), opts).Fit(ctx, corpus)
	require.NoError(t, err)

	assert.Equal(t, first.Labels(corpus), second.Labels(corpus))
}

func TestClustererLabelsWithinTaxonomy(t *testing.T) {
	tax := defaultTaxonomy(t)
	c := NewClusterer(embeddingstest.NewHashingEmbedder(16), tax, ClusterOptions{NumClusters: 12, Seed: 123})

	pm, err := c.Fit(context.Background(), corpus)
	require.NoError(t, err)

	valid := append(tax.Labels(), tax.Fallback)
	for _, label := range pm.Labels(corpus) {
		assert.Contains(t, valid, label)
		assert.NotEqual(t, tax.Fallback, label, "fitted phrases always get a cluster label")
	}
	for _, idx := range c.Assignments() {
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 12)
	}

	assert.Equal(t, "miscellaneous", pm.Label("never seen"))
}

func TestClustererReducesK(t *testing.T) {
	c := NewClusterer(embeddingstest.NewHashingEmbedder(8), defaultTaxonomy(t), ClusterOptions{NumClusters: 12, Seed: 123})

	pm, err := c.Fit(context.Background(), []string{"battery", "price", "battery"})
	require.NoError(t, err)
	assert.Equal(t, 2, pm.Len())
	for _, idx := range c.Assignments() {
		assert.Less(t, idx, 2)
	}
}

func TestClustererEmptyInput(t *testing.T) {
	c := NewClusterer(embeddingstest.NewHashingEmbedder(8), defaultTaxonomy(t), ClusterOptions{Seed: 123})

	pm, err := c.Fit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, pm.Len())
	assert.Equal(t, []string{"miscellaneous"}, pm.Labels([]string{"battery"}))
}

func TestClustererEmbedError(t *testing.T) {
	emb := embeddingstest.NewHashingEmbedder(8)
	emb.Err = errors.New("model unavailable")
	c := NewClusterer(emb, defaultTaxonomy(t), ClusterOptions{Seed: 123})

	_, err := c.Fit(context.Background(), corpus)
	assert.ErrorIs(t, err, emb.Err)
}

func TestArtifactRoundTrip(t *testing.T) {
	c := NewClusterer(embeddingstest.NewHashingEmbedder(16), defaultTaxonomy(t), ClusterOptions{NumClusters: 4, Seed: 123})
	pm, err := c.Fit(context.Background(), corpus)
	require.NoError(t, err)

	art, err := c.Artifact("run-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, art.Encode(&buf))

	decoded, err := DecodeArtifact(&buf)
	require.NoError(t, err)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, int64(123), decoded.Seed)
	assert.Equal(t, "kmeans12-seed123-v1", decoded.TaxonomyVersion)

	centroids, err := decoded.CentroidMatrix()
	require.NoError(t, err)
	rows, cols := centroids.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 16, cols)

	restored, err := decoded.PhraseMap()
	require.NoError(t, err)
	assert.Equal(t, pm.Labels(corpus), restored.Labels(corpus))
}

func TestArtifactBeforeFit(t *testing.T) {
	c := NewClusterer(embeddingstest.NewHashingEmbedder(8), defaultTaxonomy(t), ClusterOptions{})
	_, err := c.Artifact("run")
	assert.Error(t, err)
}

func TestSaveAndLoadArtifact(t *testing.T) {
	c := NewClusterer(embeddingstest.NewHashingEmbedder(8), defaultTaxonomy(t), ClusterOptions{NumClusters: 3, Seed: 7})
	_, err := c.Fit(context.Background(), corpus)
	require.NoError(t, err)

	art, err := c.Artifact("run-2")
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "aspect_clusters.bin")
	require.NoError(t, SaveArtifact(art, path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, art.Assignments, loaded.Assignments)
	assert.FileExists(t, filepath.Join(dir, "aspects.yaml"))
}
