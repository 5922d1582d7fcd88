// Package embeddingstest provides a deterministic Embedder for tests.
package embeddingstest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"unicode"
)

// HashingEmbedder hashes each word of a text into a fixed number of buckets.
// Texts sharing words get similar vectors; identical texts get identical ones.
type HashingEmbedder struct {
	Dim   int
	calls atomic.Int64
	texts atomic.Int64
	Err   error
}

func NewHashingEmbedder(dim int) *HashingEmbedder {
	return &HashingEmbedder{Dim: dim}
}

func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	h.calls.Add(1)
	h.texts.Add(int64(len(texts)))
	if h.Err != nil {
		return nil, h.Err
	}

	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float64 {
	v := make([]float64, h.Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New32a()
		f.Write([]byte(w))
		sum := f.Sum32()
		v[int(sum%uint32(h.Dim))] += 1
		// a second, signed bucket keeps unrelated words from colliding completely
		sign := 1.0
		if sum&1 == 1 {
			sign = -1
		}
		v[int((sum/7)%uint32(h.Dim))] += 0.5 * sign
	}
	if len(words) == 0 {
		v[0] = 1e-3
	}
	return v
}

// Calls is the number of Embed invocations.
func (h *HashingEmbedder) Calls() int64 { return h.calls.Load() }

// Texts is the number of texts embedded so far.
func (h *HashingEmbedder) Texts() int64 { return h.texts.Load() }
