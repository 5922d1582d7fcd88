package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/clients"
	"github.com/spacesedan/aspectflow/internal/clients/kafka_client"
	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/embeddings"
	"github.com/spacesedan/aspectflow/internal/keyphrase"
	"github.com/spacesedan/aspectflow/internal/monitoring"
	"github.com/spacesedan/aspectflow/internal/sentiment"
)

// Services holds the read-only models every stage shares. It is built once
// per process and passed to the pipeline explicitly.
type Services struct {
	Embedder   embeddings.Embedder
	Segmenter  *sentiment.Segmenter
	Extractor  *keyphrase.Extractor
	Normalizer *aspects.Normalizer
	Taxonomy   *aspects.Taxonomy
	Metrics    *monitoring.Metrics
	Sinks      []Sink

	closers []func()
}

// NewServices is the composition root: it connects the configured
// embedding backend, cache and sinks and loads the text models.
func NewServices(ctx context.Context, cfg config.PipelineConfig) (*Services, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	backend, backendCloser, err := newEmbeddingBackend(cfg)
	if err != nil {
		return nil, err
	}
	if backendCloser != nil {
		closers = append(closers, backendCloser)
	}

	var cache embeddings.VectorCache = embeddings.NewMemoryCache()
	if clients.ValkeyEnabled() {
		vc, err := clients.InitValkey()
		if err != nil {
			slog.Warn("[Services] Valkey unavailable, caching embeddings in memory",
				slog.String("error", err.Error()))
		} else {
			cache = vc
			closers = append(closers, clients.CloseValkey)
		}
	}
	namespace := cfg.EmbeddingBackend + ":" + embeddingModel(cfg)
	embedder := embeddings.NewCachedEmbedder(backend, cache, namespace)

	svc, err := NewServicesWithEmbedder(cfg, embedder)
	if err != nil {
		closeAll()
		return nil, err
	}

	sinks, sinkClosers, err := newSinks(ctx, cfg, svc.Taxonomy)
	closers = append(closers, sinkClosers...)
	if err != nil {
		closeAll()
		return nil, err
	}
	svc.Sinks = sinks
	svc.closers = closers

	return svc, nil
}

// NewServicesWithEmbedder builds everything except the embedding backend and
// the output sinks.
func NewServicesWithEmbedder(cfg config.PipelineConfig, embedder embeddings.Embedder) (*Services, error) {
	splitter, err := sentiment.NewPunktSplitter()
	if err != nil {
		return nil, fmt.Errorf("failed to load sentence tokenizer: %w", err)
	}

	normalizer, err := aspects.NewNormalizer()
	if err != nil {
		return nil, err
	}

	taxonomy, err := loadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		return nil, err
	}

	return &Services{
		Embedder:   embedder,
		Segmenter:  sentiment.NewSegmenter(splitter, sentiment.NewVaderScorer(), cfg.PolarityThreshold),
		Extractor:  keyphrase.NewExtractor(embedder, cfg.TopN, cfg.NrCandidates),
		Normalizer: normalizer,
		Taxonomy:   taxonomy,
		Metrics:    monitoring.NewMetrics(),
	}, nil
}

// Close releases clients in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func loadTaxonomy(path string) (*aspects.Taxonomy, error) {
	if path == "" {
		return aspects.ParseTaxonomy(config.DefaultAspectsYAML)
	}
	return aspects.LoadTaxonomy(path)
}

func embeddingModel(cfg config.PipelineConfig) string {
	if cfg.EmbeddingBackend == config.EmbeddingBackendOpenAI {
		return cfg.OpenAIModel
	}
	return cfg.HugotModel
}

func newEmbeddingBackend(cfg config.PipelineConfig) (embeddings.Embedder, func(), error) {
	switch cfg.EmbeddingBackend {
	case config.EmbeddingBackendHugot:
		modelPath, err := clients.EnsureHugotModel(cfg.HugotModel, cfg.HugotModelDir)
		if err != nil {
			return nil, nil, err
		}
		session, err := clients.NewHugotSession(cfg.OnnxLibraryPath)
		if err != nil {
			return nil, nil, err
		}
		destroy := func() {
			if err := session.Destroy(); err != nil {
				slog.Warn("[Services] Failed to destroy hugot session", slog.String("error", err.Error()))
			}
		}
		embedder, err := embeddings.NewHugotEmbedder(session, modelPath)
		if err != nil {
			destroy()
			return nil, nil, err
		}
		return embedder, destroy, nil

	case config.EmbeddingBackendOpenAI:
		client, err := clients.GetOpenAIClient()
		if err != nil {
			return nil, nil, err
		}
		return embeddings.NewOpenAIEmbedder(client, cfg.OpenAIModel), nil, nil
	}

	return nil, nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
}

func newSinks(ctx context.Context, cfg config.PipelineConfig, taxonomy *aspects.Taxonomy) ([]Sink, []func(), error) {
	sinks := []Sink{&ArtifactSink{Dir: cfg.OutputDir}}
	var closers []func()

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkCSV:
			sinks = append(sinks, &CSVSink{Dir: cfg.OutputDir})
		case config.SinkXLSX:
			sinks = append(sinks, &WorkbookSink{Dir: cfg.OutputDir})
		case config.SinkDynamoDB:
			client, err := clients.GetDynamoDBClient(ctx)
			if err != nil {
				return nil, closers, fmt.Errorf("failed to create DynamoDB client: %w", err)
			}
			sinks = append(sinks, &DynamoSink{Store: db.NewAggregateStore(client)})
		case config.SinkKafka:
			kcfg := kafka_client.GetKafkaConfig()
			producer, err := kafka_client.InitKafkaProducer(ctx, kcfg)
			if err != nil {
				return nil, closers, err
			}
			closers = append(closers, producer.Close)
			sinks = append(sinks, &KafkaSink{Producer: producer, Config: kcfg})
		default:
			return nil, closers, fmt.Errorf("unknown output sink %q", name)
		}
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	slog.Info("[Services] Output sinks configured",
		slog.Any("sinks", names),
		slog.String("taxonomy", taxonomy.Version))

	return sinks, closers, nil
}
