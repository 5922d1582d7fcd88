// Package ingest loads review records from the tabular export.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spacesedan/aspectflow/internal/models"
)

const (
	ColID              = "id"
	ColRatingStars     = "ratingStars"
	ColText            = "text"
	ColTitle           = "title"
	ColDate            = "date"
	ColPrimaryCategory = "primaryCategory"
	ColProductName     = "productName"
)

var RequiredColumns = []string{
	ColID, ColRatingStars, ColText, ColTitle, ColDate, ColPrimaryCategory, ColProductName,
}

// columnAliases lists the accepted header spellings per column, compared
// after normalizeHeader. The Datafiniti export uses the "reviews." forms.
var columnAliases = map[string][]string{
	ColID:              {"id"},
	ColRatingStars:     {"ratingstars", "rating", "reviews_rating"},
	ColText:            {"text", "reviews_text"},
	ColTitle:           {"title", "reviews_title"},
	ColDate:            {"date", "reviews_date"},
	ColPrimaryCategory: {"primarycategory", "primarycategories"},
	ColProductName:     {"productname", "name"},
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, ".", "_")
}

// resolveColumns maps each required column to its index in header.
func resolveColumns(header []string) (map[string]int, []string) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		if _, ok := positions[normalizeHeader(h)]; !ok {
			positions[normalizeHeader(h)] = i
		}
	}

	cols := make(map[string]int, len(RequiredColumns))
	var missing []string
	for _, col := range RequiredColumns {
		found := false
		for _, alias := range columnAliases[col] {
			if idx, ok := positions[alias]; ok {
				cols[col] = idx
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, col)
		}
	}
	return cols, missing
}

type Stats struct {
	Rows        int
	Skipped     int
	BadDates    int
	MissingText int
}

// ReadFile opens path and reads every review from it.
func ReadFile(path string) ([]models.ReviewRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, &IngestionError{Path: path, Err: err}
	}
	defer f.Close()
	return Read(f, path)
}

// Read parses CSV reviews. Rows without a usable rating are skipped with a
// warning, unparseable dates become nil.
func Read(r io.Reader, source string) ([]models.ReviewRecord, Stats, error) {
	start := time.Now()
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("file is empty")
		}
		return nil, Stats{}, &IngestionError{Path: source, Err: fmt.Errorf("failed to read header row: %w", err)}
	}

	cols, missing := resolveColumns(header)
	if len(missing) > 0 {
		return nil, Stats{}, &IngestionError{Path: source, Missing: missing}
	}

	var (
		records []models.ReviewRecord
		stats   Stats
	)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, &IngestionError{Path: source, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		stats.Rows++

		field := func(col string) string {
			idx := cols[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		rating, err := parseRating(field(ColRatingStars))
		if err != nil {
			stats.Skipped++
			slog.Warn("[Ingest] Skipping row with invalid rating",
				slog.Int("line", line),
				slog.String("id", field(ColID)),
				slog.String("error", err.Error()))
			continue
		}

		date, err := ParseDate(field(ColDate))
		if err != nil {
			stats.BadDates++
			slog.Debug("[Ingest] Unparseable review date",
				slog.String("error", (&ParseError{Row: line, Field: ColDate, Value: field(ColDate), Err: err}).Error()))
		}

		text := field(ColText)
		if text == "" {
			stats.MissingText++
		}

		records = append(records, models.ReviewRecord{
			ID:              field(ColID),
			RatingStars:     rating,
			RawText:         text,
			RawTitle:        field(ColTitle),
			ReviewDate:      date,
			PrimaryCategory: field(ColPrimaryCategory),
			ProductName:     field(ColProductName),
		})
	}

	slog.Info("[Ingest] Loaded reviews",
		slog.String("source", source),
		slog.Int("rows", stats.Rows),
		slog.Int("kept", len(records)),
		slog.Int("skipped", stats.Skipped),
		slog.Int("bad_dates", stats.BadDates),
		slog.Duration("elapsed", time.Since(start)))

	return records, stats, nil
}

// parseRating accepts whole-star ratings in 1..5, spelled as integers or
// floats ("5", "5.0"). Fractional ratings are rejected.
func parseRating(raw string) (int, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty rating")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("rating %v is not a whole number of stars", v)
	}
	if v < 1 || v > 5 {
		return 0, fmt.Errorf("rating %v out of range", v)
	}
	return int(v), nil
}

// ParseDate parses a review timestamp in any common layout. Empty input and
// failures yield nil; only failures return an error.
func ParseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}
