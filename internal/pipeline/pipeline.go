// Package pipeline runs the review precompute job: derive training labels,
// train the sentiment classifier, segment opinions, extract and cluster
// aspect phrases, then explode and aggregate the results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/aggregate"
	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/embeddings"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/preprocessing"
	"github.com/spacesedan/aspectflow/internal/sentiment"
	"github.com/spacesedan/aspectflow/internal/utils"
)

const predictBatchSize = 1024

type Options struct {
	Workers            int
	Seed               int64
	StripMarkdown      bool
	EmbeddingBatchSize int
	TestSize           float64
	Classifier         classifier.Config
	Cluster            aspects.ClusterOptions
}

func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		Workers:            cfg.Workers,
		Seed:               cfg.Seed,
		StripMarkdown:      cfg.StripMarkdown,
		EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		TestSize:           cfg.TestSize,
		Classifier: classifier.Config{
			Epochs:          cfg.Epochs,
			BatchSize:       cfg.BatchSize,
			ValidationSplit: cfg.ValidationSplit,
			DropoutRate:     cfg.DropoutRate,
			LearningRate:    cfg.LearningRate,
			Seed:            cfg.Seed,
		},
		Cluster: aspects.ClusterOptions{
			NumClusters:        cfg.NumClusters,
			NInit:              cfg.ClusterInit,
			MaxIter:            cfg.ClusterMaxIter,
			Seed:               cfg.Seed,
			EmbeddingBatchSize: cfg.EmbeddingBatchSize,
		},
	}
}

type Result struct {
	RunID      string
	Reviews    []models.DerivedReview
	Annotated  []models.AnnotatedRow
	Products   []models.AggregateRow
	Categories []models.AggregateRow

	Classifier   *classifier.Network
	History      []classifier.EpochMetrics
	TestLoss     float64
	TestAccuracy float64
	Dropped      int

	// Unsegmented lists reviews with no sentence past the polarity threshold.
	Unsegmented []string

	Clusterer *aspects.Clusterer
	Outputs   []string
}

type Pipeline struct {
	svc  *Services
	opts Options
}

func New(svc *Services, opts Options) *Pipeline {
	return &Pipeline{svc: svc, opts: opts}
}

// Run executes every stage in order. Each stage finishes over the whole
// record set before the next starts; the first failure aborts the run with a
// StageError.
func (p *Pipeline) Run(ctx context.Context, records []models.ReviewRecord) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	slog.Info("[Pipeline] Starting run",
		slog.String("run_id", res.RunID),
		slog.Int("records", len(records)),
		slog.Int("workers", p.opts.Workers))

	stages := []struct {
		name string
		fn   func(context.Context, *Result) error
	}{
		{StageDerive, func(ctx context.Context, res *Result) error { return p.derive(ctx, records, res) }},
		{StageTrain, p.trainClassifier},
		{StageSegment, p.segment},
		{StageKeyphrase, p.extractKeyphrases},
		{StageNormalize, p.normalize},
		{StageCluster, p.cluster},
		{StageAggregate, p.aggregate},
		{StagePersist, p.persist},
	}

	for _, stage := range stages {
		stageStart := time.Now()
		if err := stage.fn(ctx, res); err != nil {
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				return nil, err
			}
			return nil, &StageError{Stage: stage.name, Err: err}
		}
		elapsed := time.Since(stageStart)
		p.svc.Metrics.ObserveStage(stage.name, len(res.Reviews), elapsed)
		slog.Info("[Pipeline] Stage complete",
			slog.String("stage", stage.name),
			slog.Duration("elapsed", elapsed))
	}

	p.svc.Metrics.AnnotatedRows.Set(float64(len(res.Annotated)))
	p.svc.Metrics.LastSuccess.SetToCurrentTime()

	slog.Info("[Pipeline] Run complete",
		slog.String("run_id", res.RunID),
		slog.Int("annotated_rows", len(res.Annotated)),
		slog.Int("products", len(res.Products)),
		slog.Int("categories", len(res.Categories)),
		slog.Duration("elapsed", time.Since(start)))

	return res, nil
}

// derive computes the rating label and the cleaned texts of every record.
func (p *Pipeline) derive(ctx context.Context, records []models.ReviewRecord, res *Result) error {
	reviews, err := utils.ParallelMap(ctx, records, p.opts.Workers, func(_ context.Context, _ int, rec models.ReviewRecord) (models.DerivedReview, error) {
		raw := rec.RawText
		if p.opts.StripMarkdown {
			raw = preprocessing.StripMarkdown(raw)
		}
		cleaned := preprocessing.CleanText(raw)
		return models.DerivedReview{
			Record:            rec,
			TrainingSentiment: preprocessing.RatingToSentiment(rec.RatingStars),
			CleanedText:       cleaned,
			TextForModel:      preprocessing.TextForModel(rec.RawTitle, cleaned),
		}, nil
	})
	if err != nil {
		return err
	}
	res.Reviews = reviews
	return nil
}

// trainClassifier embeds every review, trains the network on the seeded
// train split, scores the test split and labels every review with the
// model's prediction.
func (p *Pipeline) trainClassifier(ctx context.Context, res *Result) error {
	texts := make([]string, len(res.Reviews))
	labels := make([]models.Sentiment, len(res.Reviews))
	for i, r := range res.Reviews {
		texts[i] = r.TextForModel
		labels[i] = r.TrainingSentiment
	}

	embedStart := time.Now()
	vectors, err := embeddings.EmbedBatched(ctx, p.svc.Embedder, texts, p.opts.EmbeddingBatchSize)
	if err != nil {
		return &StageError{Stage: StageEmbed, Err: err}
	}
	p.svc.Metrics.ObserveStage(StageEmbed, len(texts), time.Since(embedStart))

	x, y, kept := classifier.FilterValid(vectors, labels)
	res.Dropped = len(vectors) - len(kept)
	if res.Dropped > 0 {
		p.svc.Metrics.RecordsDropped.WithLabelValues("invalid_embedding").Add(float64(res.Dropped))
		slog.Warn("[Pipeline] Dropped reviews with malformed embeddings", slog.Int("count", res.Dropped))
	}
	if len(x) == 0 {
		return &classifier.TrainingError{Stage: "filter", Err: classifier.ErrNoTrainingRows}
	}

	trainIdx, testIdx := classifier.TrainTestSplit(len(x), p.opts.TestSize, p.opts.Seed)
	trainX, trainY := pick(x, trainIdx), pick(y, trainIdx)
	testX, testY := pick(x, testIdx), pick(y, testIdx)

	net := classifier.NewNetwork(len(x[0]), p.opts.Classifier)
	history, err := net.Fit(trainX, trainY)
	if err != nil {
		return err
	}
	res.History = history

	res.TestLoss, res.TestAccuracy, err = net.Evaluate(testX, testY)
	if err != nil {
		return err
	}
	res.Classifier = net
	p.svc.Metrics.TestAccuracy.Set(res.TestAccuracy)
	p.svc.Metrics.TestLoss.Set(res.TestLoss)
	slog.Info("[Pipeline] Classifier evaluated",
		slog.Int("train", len(trainX)),
		slog.Int("test", len(testX)),
		slog.Float64("test_loss", res.TestLoss),
		slog.Float64("test_accuracy", res.TestAccuracy))

	if err := p.infer(net, vectors, kept, res); err != nil {
		return &StageError{Stage: StageInfer, Err: err}
	}
	return nil
}

// infer labels each review with the classifier's prediction. Reviews whose
// embedding was dropped keep their rating-derived label.
func (p *Pipeline) infer(net *classifier.Network, vectors [][]float64, kept []int, res *Result) error {
	for i := range res.Reviews {
		res.Reviews[i].ModelSentimentLabel = res.Reviews[i].TrainingSentiment.String()
	}

	for _, chunk := range utils.Chunk(kept, predictBatchSize) {
		preds, err := net.Predict(pick(vectors, chunk))
		if err != nil {
			return err
		}
		for j, idx := range chunk {
			res.Reviews[idx].ModelSentimentLabel = preds[j].String()
		}
	}
	return nil
}

type segments struct {
	supportive, critical string
}

func (p *Pipeline) segment(ctx context.Context, res *Result) error {
	silent := utils.NewBatchBuffer[string]()

	segs, err := utils.ParallelMap(ctx, res.Reviews, p.opts.Workers, func(_ context.Context, _ int, r models.DerivedReview) (segments, error) {
		pros, cons := p.svc.Segmenter.Segment(r.CleanedText)
		if pros == "" && cons == "" {
			silent.Add(r.Record.ID)
		}
		return segments{pros, cons}, nil
	})
	if err != nil {
		return err
	}

	for i, s := range segs {
		res.Reviews[i].SupportiveText, res.Reviews[i].CriticalText = sentiment.SelectBuckets(res.Reviews[i].TrainingSentiment, s.supportive, s.critical)
	}

	res.Unsegmented = silent.GetAndClear()
	sort.Strings(res.Unsegmented)
	if n := len(res.Unsegmented); n > 0 {
		p.svc.Metrics.RecordsDropped.WithLabelValues("no_opinion").Add(float64(n))
		slog.Debug("[Pipeline] Reviews without opinionated sentences", slog.Int("count", n))
	}
	return nil
}

func (p *Pipeline) extractKeyphrases(ctx context.Context, res *Result) error {
	phrases, err := utils.ParallelMap(ctx, res.Reviews, p.opts.Workers, func(ctx context.Context, _ int, r models.DerivedReview) ([]string, error) {
		out, err := p.svc.Extractor.ExtractForReview(ctx, r.TrainingSentiment, r.SupportiveText, r.CriticalText)
		if err != nil {
			return nil, fmt.Errorf("review %s: %w", r.Record.ID, err)
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	for i := range res.Reviews {
		res.Reviews[i].Keyphrases = phrases[i]
	}
	return nil
}

func (p *Pipeline) normalize(ctx context.Context, res *Result) error {
	normalized, err := utils.ParallelMap(ctx, res.Reviews, p.opts.Workers, func(_ context.Context, _ int, r models.DerivedReview) ([]string, error) {
		return p.svc.Normalizer.Normalize(r.Keyphrases), nil
	})
	if err != nil {
		return err
	}
	for i := range res.Reviews {
		res.Reviews[i].NormalizedKeyphrases = normalized[i]
	}
	return nil
}

// cluster fits the aspect clusterer on every normalized phrase of the run
// and maps each review's phrases to aspect labels.
func (p *Pipeline) cluster(ctx context.Context, res *Result) error {
	var all []string
	for _, r := range res.Reviews {
		all = append(all, r.NormalizedKeyphrases...)
	}

	clusterer := aspects.NewClusterer(p.svc.Embedder, p.svc.Taxonomy, p.opts.Cluster)
	phraseMap, err := clusterer.Fit(ctx, all)
	if err != nil {
		return err
	}
	res.Clusterer = clusterer

	for i := range res.Reviews {
		labels := phraseMap.Labels(res.Reviews[i].NormalizedKeyphrases)
		res.Reviews[i].AspectLabels = labels
		for _, l := range labels {
			p.svc.Metrics.AspectsAssigned.WithLabelValues(l).Inc()
		}
	}
	return nil
}

func (p *Pipeline) aggregate(_ context.Context, res *Result) error {
	res.Annotated = Explode(res.Reviews)
	res.Products = aggregate.ByProduct(res.Annotated)
	res.Categories = aggregate.ByCategory(res.Annotated)
	return nil
}

func (p *Pipeline) persist(ctx context.Context, res *Result) error {
	for _, sink := range p.svc.Sinks {
		written, err := sink.Write(ctx, res)
		if err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
		res.Outputs = append(res.Outputs, written...)
	}
	return nil
}

// Explode emits one AnnotatedRow per (review, aspect label).
func Explode(reviews []models.DerivedReview) []models.AnnotatedRow {
	rows := make([]models.AnnotatedRow, 0, len(reviews))
	for _, r := range reviews {
		for _, label := range r.AspectLabels {
			rows = append(rows, models.AnnotatedRow{
				ID:                  r.Record.ID,
				ReviewDate:          r.Record.ReviewDate,
				PrimaryCategory:     r.Record.PrimaryCategory,
				ProductName:         r.Record.ProductName,
				AspectLabel:         label,
				ModelSentimentLabel: r.ModelSentimentLabel,
			})
		}
	}
	return rows
}

func pick[T any](items []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}
