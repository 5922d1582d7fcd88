package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	ProductsSheet   = "Products"
	CategoriesSheet = "Categories"
)

// WriteWorkbook saves both aggregate tables to one workbook, one sheet each.
func WriteWorkbook(path string, products, categories []models.AggregateRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ProductsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if err := writeSheet(f, ProductsSheet, "productName", products); err != nil {
		return err
	}

	if _, err := f.NewSheet(CategoriesSheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", CategoriesSheet, err)
	}
	if err := writeSheet(f, CategoriesSheet, "primaryCategory", categories); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet, entityColumn string, rows []models.AggregateRow) error {
	header := AggregateHeader(entityColumn)
	if err := setRow(f, sheet, 1, toAny(header)); err != nil {
		return err
	}

	for i, r := range rows {
		values := []any{
			r.EntityKey, r.Negative, r.Neutral, r.Positive,
			r.PosNeg, r.PosNeu, r.NegNeu, r.PosAll, r.NegAll,
		}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
