package config

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

const (
	SinkCSV      = "csv"
	SinkXLSX     = "xlsx"
	SinkDynamoDB = "dynamodb"
	SinkKafka    = "kafka"

	EmbeddingBackendHugot  = "hugot"
	EmbeddingBackendOpenAI = "openai"
)

type PipelineConfig struct {
	InputPath    string
	OutputDir    string
	TaxonomyPath string
	Workers      int
	Seed         int64

	StripMarkdown     bool
	PolarityThreshold float64
	TopN              int
	NrCandidates      int
	NumClusters       int
	ClusterInit       int
	ClusterMaxIter    int

	TestSize        float64
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	DropoutRate     float64
	LearningRate    float64

	EmbeddingBackend   string
	EmbeddingBatchSize int
	HugotModel         string
	HugotModelDir      string
	OnnxLibraryPath    string
	OpenAIModel        string

	Sinks          []string
	PushgatewayURL string
	LogLevel       string
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Warn("[Config] Invalid integer, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return v
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		slog.Warn("[Config] Invalid float, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Float64("default", defaultValue))
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvList(key string, defaultValue []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func GetPipelineConfig() PipelineConfig {
	return PipelineConfig{
		InputPath:    getEnv("INPUT_PATH", "Datafiniti_Amazon_Consumer_Reviews_of_Amazon_Products_May19.csv"),
		OutputDir:    getEnv("OUTPUT_DIR", "output"),
		TaxonomyPath: getEnv("ASPECT_TAXONOMY_PATH", ""),
		Workers:      getEnvInt("WORKERS", runtime.NumCPU()),
		Seed:         int64(getEnvInt("SEED", 123)),

		StripMarkdown:     getEnvBool("STRIP_MARKDOWN", false),
		PolarityThreshold: getEnvFloat("POLARITY_THRESHOLD", 0.3),
		TopN:              getEnvInt("KEYPHRASE_TOP_N", 3),
		NrCandidates:      getEnvInt("KEYPHRASE_CANDIDATES", 20),
		NumClusters:       getEnvInt("ASPECT_CLUSTERS", 12),
		ClusterInit:       getEnvInt("ASPECT_CLUSTER_INIT", 1),
		ClusterMaxIter:    getEnvInt("ASPECT_CLUSTER_MAX_ITER", 300),

		TestSize:        getEnvFloat("CLASSIFIER_TEST_SIZE", 0.2),
		Epochs:          getEnvInt("CLASSIFIER_EPOCHS", 5),
		BatchSize:       getEnvInt("CLASSIFIER_BATCH_SIZE", 128),
		ValidationSplit: getEnvFloat("CLASSIFIER_VALIDATION_SPLIT", 0.1),
		DropoutRate:     getEnvFloat("CLASSIFIER_DROPOUT", 0.3),
		LearningRate:    getEnvFloat("CLASSIFIER_LEARNING_RATE", 0.001),

		EmbeddingBackend:   strings.ToLower(getEnv("EMBEDDING_BACKEND", EmbeddingBackendHugot)),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 32),
		HugotModel:         getEnv("HUGOT_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		HugotModelDir:      getEnv("HUGOT_MODEL_DIR", "./models"),
		OnnxLibraryPath:    getEnv("ONNX_LIBRARY_PATH", ""),
		OpenAIModel:        getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),

		Sinks:          getEnvList("OUTPUT_SINKS", []string{SinkCSV}),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// HasSink reports whether the named output sink is enabled.
func (c PipelineConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}
