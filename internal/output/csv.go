// Package output writes the pipeline's tables to disk and to the console.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spacesedan/aspectflow/internal/models"
)

const (
	AnnotatedFile  = "processed_reviews.csv"
	ProductsFile   = "processed_reviews_products_count.csv"
	CategoriesFile = "processed_reviews_categories_count.csv"
	WorkbookFile   = "processed_reviews_counts.xlsx"
)

var AnnotatedHeader = []string{"id", "reviewDate", "primaryCategory", "productName", "aspectLabel", "modelSentimentLabel"}

var AggregateMetricHeader = []string{
	"Negative", "Neutral", "Positive",
	"Pos/Neg Percentage", "Pos/Neu Percentage", "Neg/Neu Percentage",
	"Pos/All Percentage", "Neg/All Percentage",
}

func AggregateHeader(entityColumn string) []string {
	return append([]string{entityColumn}, AggregateMetricHeader...)
}

func annotatedRecord(r models.AnnotatedRow) []string {
	date := ""
	if r.ReviewDate != nil {
		date = r.ReviewDate.UTC().Format(time.RFC3339)
	}
	return []string{r.ID, date, r.PrimaryCategory, r.ProductName, r.AspectLabel, r.ModelSentimentLabel}
}

func aggregateRecord(r models.AggregateRow) []string {
	return []string{
		r.EntityKey,
		strconv.Itoa(r.Negative), strconv.Itoa(r.Neutral), strconv.Itoa(r.Positive),
		r.PosNeg, r.PosNeu, r.NegNeu, r.PosAll, r.NegAll,
	}
}

func WriteAnnotated(w io.Writer, rows []models.AnnotatedRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AnnotatedHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(annotatedRecord(r)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteAggregates(w io.Writer, entityColumn string, rows []models.AggregateRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AggregateHeader(entityColumn)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(aggregateRecord(r)); err != nil {
			return fmt.Errorf("failed to write row %s: %w", r.EntityKey, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile creates path (and its directory) and hands the file to write.
func WriteFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ReadAnnotated parses a table written by WriteAnnotated. Columns are matched
// by header name so reordered files still load.
func ReadAnnotated(r io.Reader) ([]models.AnnotatedRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, col := range AnnotatedHeader {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []models.AnnotatedRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		row := models.AnnotatedRow{
			ID:                  rec[index["id"]],
			PrimaryCategory:     rec[index["primaryCategory"]],
			ProductName:         rec[index["productName"]],
			AspectLabel:         rec[index["aspectLabel"]],
			ModelSentimentLabel: rec[index["modelSentimentLabel"]],
		}
		if raw := strings.TrimSpace(rec[index["reviewDate"]]); raw != "" {
			ts, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid reviewDate %q: %w", line, raw, err)
			}
			row.ReviewDate = &ts
		}
		rows = append(rows, row)
	}
	return rows, nil
}
