package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPipelineConfigDefaults(t *testing.T) {
	cfg := GetPipelineConfig()

	assert.Equal(t, int64(123), cfg.Seed)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, 12, cfg.NumClusters)
	assert.Equal(t, 5, cfg.Epochs)
	assert.Equal(t, 128, cfg.BatchSize)
	assert.InDelta(t, 0.2, cfg.TestSize, 1e-9)
	assert.InDelta(t, 0.1, cfg.ValidationSplit, 1e-9)
	assert.InDelta(t, 0.3, cfg.DropoutRate, 1e-9)
	assert.InDelta(t, 0.3, cfg.PolarityThreshold, 1e-9)
	assert.Equal(t, EmbeddingBackendHugot, cfg.EmbeddingBackend)
	assert.Equal(t, []string{SinkCSV}, cfg.Sinks)
	assert.Positive(t, cfg.Workers)
}

func TestGetPipelineConfigFromEnv(t *testing.T) {
	t.Setenv("SEED", "7")
	t.Setenv("KEYPHRASE_TOP_N", "5")
	t.Setenv("CLASSIFIER_DROPOUT", "0.5")
	t.Setenv("STRIP_MARKDOWN", "true")
	t.Setenv("OUTPUT_SINKS", "CSV, xlsx,,kafka")
	t.Setenv("EMBEDDING_BACKEND", "OpenAI")

	cfg := GetPipelineConfig()

	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 5, cfg.TopN)
	assert.InDelta(t, 0.5, cfg.DropoutRate, 1e-9)
	assert.True(t, cfg.StripMarkdown)
	assert.Equal(t, []string{"csv", "xlsx", "kafka"}, cfg.Sinks)
	assert.True(t, cfg.HasSink(SinkKafka))
	assert.False(t, cfg.HasSink(SinkDynamoDB))
	assert.Equal(t, EmbeddingBackendOpenAI, cfg.EmbeddingBackend)
}

func TestGetPipelineConfigInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("ASPECT_CLUSTERS", "twelve")
	t.Setenv("CLASSIFIER_TEST_SIZE", "a fifth")

	cfg := GetPipelineConfig()

	assert.Equal(t, 12, cfg.NumClusters)
	assert.InDelta(t, 0.2, cfg.TestSize, 1e-9)
}
