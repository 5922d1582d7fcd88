package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"
)

// VectorCache stores vectors by key. Get returns only the keys it holds.
type VectorCache interface {
	GetVectors(ctx context.Context, keys []string) (map[string][]float64, error)
	StoreVectors(ctx context.Context, vectors map[string][]float64) error
}

// MemoryCache lives for the whole process and is never invalidated.
type MemoryCache struct {
	mu      sync.RWMutex
	vectors map[string][]float64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{vectors: make(map[string][]float64)}
}

func (m *MemoryCache) GetVectors(_ context.Context, keys []string) (map[string][]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string][]float64, len(keys))
	for _, k := range keys {
		if v, ok := m.vectors[k]; ok {
			found[k] = v
		}
	}
	return found, nil
}

func (m *MemoryCache) StoreVectors(_ context.Context, vectors map[string][]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range vectors {
		m.vectors[k] = v
	}
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

// CachedEmbedder only sends texts the cache does not hold to the backend.
// Cache failures are logged and treated as misses.
type CachedEmbedder struct {
	next      Embedder
	cache     VectorCache
	namespace string
}

func NewCachedEmbedder(next Embedder, cache VectorCache, namespace string) *CachedEmbedder {
	return &CachedEmbedder{
		next:      next,
		cache:     cache,
		namespace: namespace,
	}
}

func (c *CachedEmbedder) Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "aspectflow:emb:" + c.namespace + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.Key(t)
	}

	cached, err := c.cache.GetVectors(ctx, keys)
	if err != nil {
		slog.Warn("[EmbeddingCache] Lookup failed, embedding everything",
			slog.String("error", err.Error()))
		cached = map[string][]float64{}
	}

	out := make([][]float64, len(texts))
	var missing []string
	var missingIdx []int
	seen := make(map[string]int)
	for i, k := range keys {
		if v, ok := cached[k]; ok {
			out[i] = v
			continue
		}
		if _, dup := seen[k]; !dup {
			seen[k] = len(missing)
			missing = append(missing, texts[i])
		}
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}

	fresh := make(map[string][]float64, len(missing))
	for _, i := range missingIdx {
		v := vectors[seen[keys[i]]]
		out[i] = v
		fresh[keys[i]] = v
	}

	if err := c.cache.StoreVectors(ctx, fresh); err != nil {
		slog.Warn("[EmbeddingCache] Failed to store vectors",
			slog.Int("count", len(fresh)),
			slog.String("error", err.Error()))
	}

	return out, nil
}
