package aspects

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spacesedan/aspectflow/internal/embeddings"
	"gonum.org/v1/gonum/mat"
)

const (
	DefaultNumClusters = 12
	DefaultMaxIter     = 300
	DefaultSeed        = 123
)

type ClusterOptions struct {
	NumClusters        int
	NInit              int
	MaxIter            int
	Seed               int64
	EmbeddingBatchSize int
}

// PhraseMap is the closed phrase -> aspect label mapping learned by Fit.
// Phrases that were not part of the fitted corpus get the fallback label.
type PhraseMap struct {
	labels   map[string]string
	fallback string
}

func NewPhraseMap(labels map[string]string, fallback string) PhraseMap {
	if fallback == "" {
		fallback = DefaultFallbackLabel
	}
	return PhraseMap{labels: labels, fallback: fallback}
}

func (m PhraseMap) Label(phrase string) string {
	if label, ok := m.labels[phrase]; ok {
		return label
	}
	return m.fallback
}

// Labels returns one label per phrase, in order.
func (m PhraseMap) Labels(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = m.Label(p)
	}
	return out
}

func (m PhraseMap) Len() int {
	return len(m.labels)
}

type Clusterer struct {
	embedder embeddings.Embedder
	taxonomy *Taxonomy
	opts     ClusterOptions

	centroids   *mat.Dense
	assignments map[string]int
	phraseMap   PhraseMap
}

func NewClusterer(embedder embeddings.Embedder, taxonomy *Taxonomy, opts ClusterOptions) *Clusterer {
	if opts.NumClusters <= 0 {
		opts.NumClusters = taxonomy.Size()
	}
	if opts.NumClusters > taxonomy.Size() {
		slog.Warn("[Clusterer] More clusters than taxonomy labels, extra clusters map to fallback",
			slog.Int("clusters", opts.NumClusters),
			slog.Int("labels", taxonomy.Size()))
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.NInit <= 0 {
		opts.NInit = 1
	}
	return &Clusterer{
		embedder:  embedder,
		taxonomy:  taxonomy,
		opts:      opts,
		phraseMap: NewPhraseMap(nil, taxonomy.Fallback),
	}
}

// Fit clusters the full phrase multiset (duplicates included, in input order)
// and memorizes the resulting phrase -> label mapping.
func (c *Clusterer) Fit(ctx context.Context, phrases []string) (PhraseMap, error) {
	start := time.Now()

	unique := make([]string, 0, len(phrases))
	seen := make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			unique = append(unique, p)
		}
	}

	if len(unique) == 0 {
		slog.Warn("[Clusterer] No phrases to cluster")
		c.phraseMap = NewPhraseMap(map[string]string{}, c.taxonomy.Fallback)
		c.assignments = map[string]int{}
		return c.phraseMap, nil
	}

	vectors, err := embeddings.EmbedBatched(ctx, c.embedder, unique, c.opts.EmbeddingBatchSize)
	if err != nil {
		return PhraseMap{}, fmt.Errorf("failed to embed phrases: %w", err)
	}

	byPhrase := make(map[string][]float64, len(unique))
	dim := 0
	for i, v := range vectors {
		if dim == 0 && len(v) > 0 {
			dim = len(v)
		}
		if !embeddings.IsValid(v, dim) {
			slog.Warn("[Clusterer] Dropping phrase with invalid embedding", slog.String("phrase", unique[i]))
			continue
		}
		byPhrase[unique[i]] = embeddings.Normalize(v)
	}
	if len(byPhrase) == 0 {
		return PhraseMap{}, fmt.Errorf("no phrase produced a usable embedding")
	}

	var rows []string
	var flat []float64
	for _, p := range phrases {
		if v, ok := byPhrase[p]; ok {
			rows = append(rows, p)
			flat = append(flat, v...)
		}
	}
	data := mat.NewDense(len(rows), dim, flat)

	k := c.opts.NumClusters
	if len(byPhrase) < k {
		slog.Warn("[Clusterer] Fewer distinct phrases than clusters, reducing k",
			slog.Int("requested", k),
			slog.Int("distinct", len(byPhrase)))
		k = len(byPhrase)
	}

	res := KMeans(data, KMeansConfig{
		K:       k,
		NInit:   c.opts.NInit,
		MaxIter: c.opts.MaxIter,
		Seed:    c.opts.Seed,
	})

	assignments := make(map[string]int, len(byPhrase))
	labels := make(map[string]string, len(byPhrase))
	for i, p := range rows {
		assignments[p] = res.Assignments[i]
		labels[p] = c.taxonomy.Label(res.Assignments[i])
	}

	c.centroids = res.Centroids
	c.assignments = assignments
	c.phraseMap = NewPhraseMap(labels, c.taxonomy.Fallback)

	slog.Info("[Clusterer] Fitted aspect clusters",
		slog.Int("phrases", len(phrases)),
		slog.Int("distinct", len(byPhrase)),
		slog.Int("k", k),
		slog.Int("iterations", res.Iterations),
		slog.Float64("inertia", res.Inertia),
		slog.String("taxonomy", c.taxonomy.Version),
		slog.Duration("elapsed", time.Since(start)))

	return c.phraseMap, nil
}

// PhraseMap returns the mapping from the last Fit.
func (c *Clusterer) PhraseMap() PhraseMap {
	return c.phraseMap
}

func (c *Clusterer) Taxonomy() *Taxonomy {
	return c.taxonomy
}

// Assignments returns the cluster index of every fitted phrase.
func (c *Clusterer) Assignments() map[string]int {
	return c.assignments
}
