package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/spacesedan/aspectflow/internal/models"
)

const (
	DEFAULT_PRODUCTS_TABLE   = "ReviewAggregatesByProduct"
	DEFAULT_CATEGORIES_TABLE = "ReviewAggregatesByCategory"

	maxBatchSize      = 25
	maxUnprocessedTry = 3
)

// DynamoAPI is the part of the DynamoDB client the aggregate store uses.
type DynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// aggregateItem is an AggregateRow as stored: keyed by entity, stamped with
// the run that produced it.
type aggregateItem struct {
	models.AggregateRow
	RunID     string `dynamodbav:"run_id"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

type AggregateStore struct {
	client          DynamoAPI
	ProductsTable   string
	CategoriesTable string
	Backoff         time.Duration
}

func NewAggregateStore(client DynamoAPI) *AggregateStore {
	products := os.Getenv("DYNAMODB_PRODUCTS_TABLE")
	if products == "" {
		products = DEFAULT_PRODUCTS_TABLE
	}
	categories := os.Getenv("DYNAMODB_CATEGORIES_TABLE")
	if categories == "" {
		categories = DEFAULT_CATEGORIES_TABLE
	}
	return &AggregateStore{
		client:          client,
		ProductsTable:   products,
		CategoriesTable: categories,
		Backoff:         500 * time.Millisecond,
	}
}

func (s *AggregateStore) StoreProducts(ctx context.Context, runID string, rows []models.AggregateRow) error {
	return s.storeAggregates(ctx, s.ProductsTable, runID, rows)
}

func (s *AggregateStore) StoreCategories(ctx context.Context, runID string, rows []models.AggregateRow) error {
	return s.storeAggregates(ctx, s.CategoriesTable, runID, rows)
}

func (s *AggregateStore) storeAggregates(ctx context.Context, table, runID string, rows []models.AggregateRow) error {
	updatedAt := time.Now().Unix()

	for i := 0; i < len(rows); i += maxBatchSize {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := min(i+maxBatchSize, len(rows))
		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, row := range rows[i:end] {
			item, err := attributevalue.MarshalMap(aggregateItem{AggregateRow: row, RunID: runID, UpdatedAt: updatedAt})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Failed to marshal aggregate %s: %w", row.EntityKey, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{table: writeRequests},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Failed to batch write aggregates: %w", err)
		}

		retryCount := 0
		backoff := s.Backoff
		for len(out.UnprocessedItems) > 0 && retryCount < maxUnprocessedTry {
			time.Sleep(backoff)
			backoff *= 2

			slog.Warn("[DynamoDB] Retrying unprocessed aggregates...",
				slog.String("table", table),
				slog.Int("attempt", retryCount+1),
				slog.Int("remaining", len(out.UnprocessedItems[table])))

			out, err = s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: out.UnprocessedItems,
			})
			if err != nil {
				return fmt.Errorf("[DynamoDB] Retry error %w", err)
			}
			retryCount++
		}

		if remaining := len(out.UnprocessedItems[table]); remaining > 0 {
			return fmt.Errorf("[DynamoDB] %d aggregates left unprocessed in %s after retries", remaining, table)
		}
	}

	slog.Info("[DynamoDB] Successfully stored aggregates",
		slog.String("table", table),
		slog.Int("count", len(rows)))
	return nil
}

// LoadAggregates scans a table back into aggregate rows.
func (s *AggregateStore) LoadAggregates(ctx context.Context, table string) ([]models.AggregateRow, error) {
	var rows []models.AggregateRow
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName: aws.String(table),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan of %s failed: %w", table, err)
		}
		var page []models.AggregateRow
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal aggregate page", slog.String("error", err.Error()))
			return nil, err
		}
		rows = append(rows, page...)
	}

	slog.Info("[DynamoDB] Successfully retrieved aggregates",
		slog.String("table", table),
		slog.Int("count", len(rows)))
	return rows, nil
}
