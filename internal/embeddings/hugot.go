package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotEmbedder runs a sentence-transformers ONNX model through a hugot
// feature extraction pipeline (mean pooled, not normalised).
type HugotEmbedder struct {
	mu       sync.Mutex
	pipeline *pipelines.FeatureExtractionPipeline
}

func NewHugotEmbedder(session *hugot.Session, modelPath string) (*HugotEmbedder, error) {
	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "sentenceEmbeddingPipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feature extraction pipeline: %w", err)
	}

	slog.Info("[HugotEmbedder] Feature extraction pipeline ready",
		slog.String("model_path", modelPath))

	return &HugotEmbedder{pipeline: pipeline}, nil
}

func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	output, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("feature extraction failed: %w", err)
	}

	vectors := make([][]float64, len(output.Embeddings))
	for i, e := range output.Embeddings {
		vectors[i] = toFloat64(e)
	}

	slog.Debug("[HugotEmbedder] Embedded batch",
		slog.Int("texts", len(texts)),
		slog.Duration("elapsed", time.Since(start)))

	return vectors, nil
}
