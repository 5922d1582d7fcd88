package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/aggregate"
	"github.com/spacesedan/aspectflow/internal/clients"
	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/ingest"
	"github.com/spacesedan/aspectflow/internal/logging"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/output"
	"github.com/spacesedan/aspectflow/internal/pipeline"
	"github.com/spf13/cobra"
)

const tableLimit = 20

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	cfg := config.GetPipelineConfig()
	logging.InitLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		slog.Error("[Main] Command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.PipelineConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "precompute",
		Short:         "Precompute aspect sentiment tables from product reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfg.OutputDir, "output", "o", cfg.OutputDir, "directory for tables and artifacts")

	root.AddCommand(newRunCmd(cfg), newAggregateCmd(cfg), newShowCmd())
	return root
}

func newRunCmd(cfg *config.PipelineConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline over a review CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), *cfg)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfg.InputPath, "input", "i", cfg.InputPath, "review CSV to process")
	f.StringVar(&cfg.TaxonomyPath, "taxonomy", cfg.TaxonomyPath, "aspect taxonomy YAML (embedded default when empty)")
	f.StringSliceVar(&cfg.Sinks, "sinks", cfg.Sinks, "output sinks: csv, xlsx, dynamodb, kafka")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers per stage")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the split, classifier and clustering")
	f.BoolVar(&cfg.StripMarkdown, "strip-markdown", cfg.StripMarkdown, "render markdown review bodies to plain text")
	return cmd
}

func runPipeline(ctx context.Context, cfg config.PipelineConfig) error {
	records, stats, err := ingest.ReadFile(cfg.InputPath)
	if err != nil {
		return err
	}
	slog.Info("[Main] Loaded reviews",
		slog.String("path", cfg.InputPath),
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped),
		slog.Int("bad_dates", stats.BadDates))

	svc, err := pipeline.NewServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := pipeline.New(svc, pipeline.OptionsFromConfig(cfg)).Run(ctx, records)
	if err != nil {
		return err
	}

	if err := svc.Metrics.Push(ctx, cfg.PushgatewayURL, res.RunID); err != nil {
		slog.Warn("[Main] Failed to push metrics", slog.String("error", err.Error()))
	}

	out := os.Stdout
	output.RenderSummary(out, output.Summary{
		RunID:         res.RunID,
		Reviews:       len(res.Reviews),
		Dropped:       res.Dropped,
		AnnotatedRows: len(res.Annotated),
		Products:      len(res.Products),
		Categories:    len(res.Categories),
		TestLoss:      res.TestLoss,
		TestAccuracy:  res.TestAccuracy,
		Taxonomy:      svc.Taxonomy.Version,
		Outputs:       res.Outputs,
	})
	output.RenderAggregates(out, "Products", "productName", res.Products, tableLimit)
	output.RenderAggregates(out, "Categories", "primaryCategory", res.Categories, tableLimit)
	return nil
}

func newAggregateCmd(cfg *config.PipelineConfig) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute the count tables from an annotated review table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				input = filepath.Join(cfg.OutputDir, output.AnnotatedFile)
			}
			rows, err := readAnnotated(input)
			if err != nil {
				return err
			}
			products := aggregate.ByProduct(rows)
			categories := aggregate.ByCategory(rows)

			written, err := pipeline.RewriteAggregates(cmd.Context(), *cfg, products, categories)
			if err != nil {
				return err
			}
			slog.Info("[Main] Wrote aggregate tables", slog.Any("paths", written))

			output.RenderAggregates(os.Stdout, "Products", "productName", products, tableLimit)
			output.RenderAggregates(os.Stdout, "Categories", "primaryCategory", categories, tableLimit)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "annotated table (defaults to <output>/"+output.AnnotatedFile+")")
	return cmd
}

func readAnnotated(path string) ([]models.AnnotatedRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := output.ReadAnnotated(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func newShowCmd() *cobra.Command {
	var categories bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the aggregates stored in DynamoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clients.GetDynamoDBClient(cmd.Context())
			if err != nil {
				return err
			}
			store := db.NewAggregateStore(client)

			table, title, column := store.ProductsTable, "Products", "productName"
			if categories {
				table, title, column = store.CategoriesTable, "Categories", "primaryCategory"
			}
			rows, err := store.LoadAggregates(cmd.Context(), table)
			if err != nil {
				return err
			}
			output.RenderAggregates(os.Stdout, title, column, rows, 0)
			return nil
		},
	}
	cmd.Flags().BoolVar(&categories, "categories", false, "show the category table instead of products")
	return cmd
}
