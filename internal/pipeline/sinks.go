package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/clients/kafka_client"
	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/output"
)

const (
	ClassifierArtifactFile = "sentiment_model.bin"
	ClusterArtifactFile    = "aspect_clusters.bin"
)

// Sink persists the result of a run somewhere.
type Sink interface {
	Name() string
	Write(ctx context.Context, res *Result) ([]string, error)
}

// CSVSink writes the fact table and both aggregate tables as CSV.
type CSVSink struct {
	Dir string
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(_ context.Context, res *Result) ([]string, error) {
	return WriteTables(s.Dir, res.Annotated, res.Products, res.Categories)
}

// WriteTables writes the three CSV tables into dir and returns their paths.
// annotated may be nil to only rewrite the aggregates.
func WriteTables(dir string, annotated []models.AnnotatedRow, products, categories []models.AggregateRow) ([]string, error) {
	var written []string

	if annotated != nil {
		path := filepath.Join(dir, output.AnnotatedFile)
		if err := output.WriteFile(path, func(w io.Writer) error { return output.WriteAnnotated(w, annotated) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	tables := []struct {
		file, column string
		rows         []models.AggregateRow
	}{
		{output.ProductsFile, "productName", products},
		{output.CategoriesFile, "primaryCategory", categories},
	}
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.file)
		err := output.WriteFile(path, func(w io.Writer) error {
			return output.WriteAggregates(w, tbl.column, tbl.rows)
		})
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// RewriteAggregates regenerates the aggregate outputs of cfg.OutputDir from
// recomputed rows. The workbook is only rewritten when the xlsx sink is on.
func RewriteAggregates(ctx context.Context, cfg config.PipelineConfig, products, categories []models.AggregateRow) ([]string, error) {
	written, err := WriteTables(cfg.OutputDir, nil, products, categories)
	if err != nil {
		return written, err
	}
	if !cfg.HasSink(config.SinkXLSX) {
		return written, nil
	}
	res := &Result{Products: products, Categories: categories}
	paths, err := (&WorkbookSink{Dir: cfg.OutputDir}).Write(ctx, res)
	return append(written, paths...), err
}

type WorkbookSink struct {
	Dir string
}

func (s *WorkbookSink) Name() string { return "xlsx" }

func (s *WorkbookSink) Write(_ context.Context, res *Result) ([]string, error) {
	path := filepath.Join(s.Dir, output.WorkbookFile)
	if err := output.WriteWorkbook(path, res.Products, res.Categories); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// ArtifactSink saves the trained classifier and clustering model. It is
// always configured.
type ArtifactSink struct {
	Dir string
}

func (s *ArtifactSink) Name() string { return "artifacts" }

func (s *ArtifactSink) Write(_ context.Context, res *Result) ([]string, error) {
	var written []string

	if res.Classifier != nil {
		art, err := res.Classifier.Artifact(models.SentimentLabels(), res.TestLoss, res.TestAccuracy)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(s.Dir, ClassifierArtifactFile)
		if err := classifier.SaveArtifact(art, path); err != nil {
			return nil, err
		}
		written = append(written, path)
	}

	if res.Clusterer != nil {
		art, err := res.Clusterer.Artifact(res.RunID)
		if err != nil {
			slog.Warn("[Pipeline] Skipping cluster artifact", slog.String("error", err.Error()))
			return written, nil
		}
		path := filepath.Join(s.Dir, ClusterArtifactFile)
		if err := aspects.SaveArtifact(art, path); err != nil {
			return written, err
		}
		written = append(written, path, filepath.Join(s.Dir, "aspects.yaml"))
	}

	return written, nil
}

type DynamoSink struct {
	Store *db.AggregateStore
}

func (s *DynamoSink) Name() string { return "dynamodb" }

func (s *DynamoSink) Write(ctx context.Context, res *Result) ([]string, error) {
	if err := s.Store.StoreProducts(ctx, res.RunID, res.Products); err != nil {
		return nil, err
	}
	if err := s.Store.StoreCategories(ctx, res.RunID, res.Categories); err != nil {
		return nil, err
	}
	return []string{
		"dynamodb://" + s.Store.ProductsTable,
		"dynamodb://" + s.Store.CategoriesTable,
	}, nil
}

type KafkaSink struct {
	Producer *kafka_client.Producer
	Config   kafka_client.KafkaConfig
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, res *Result) ([]string, error) {
	err := kafka_client.PublishBatches(ctx, s.Producer, s.Config.Topic, res.RunID, res.Annotated, kafka_client.BATCH_SIZE)
	if err != nil {
		return nil, fmt.Errorf("failed to publish annotated rows: %w", err)
	}

	aggregates := []struct {
		Kind string                `json:"kind"`
		Rows []models.AggregateRow `json:"rows"`
	}{
		{"product", res.Products},
		{"category", res.Categories},
	}
	err = kafka_client.PublishBatches(ctx, s.Producer, s.Config.AggregateTopic, res.RunID, aggregates, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to publish aggregates: %w", err)
	}

	return []string{"kafka://" + s.Config.Topic, "kafka://" + s.Config.AggregateTopic}, nil
}
