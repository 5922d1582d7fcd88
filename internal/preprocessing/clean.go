// Package preprocessing holds the text clean-up steps shared by every stage
// of the pipeline.
package preprocessing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spacesedan/aspectflow/internal/models"
)

var (
	whitespacePattern = regexp.MustCompile(`[\s\v\x1c-\x1f\x{85}\p{Z}]+`)
	disallowedPattern = regexp.MustCompile(`[^a-zA-Z0-9 .,!?]`)
)

// CleanText lower-cases the input, collapses whitespace and removes every
// character outside [a-z0-9 .,!?]. Non-string input is stringified first.
func CleanText(value any) string {
	text := strings.ToLower(stringify(value))
	text = whitespacePattern.ReplaceAllString(text, " ")
	return disallowedPattern.ReplaceAllString(text, "")
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// RatingToSentiment buckets a star rating: 1-2 negative, 3 neutral, 4-5 positive.
func RatingToSentiment(rating int) models.Sentiment {
	switch {
	case rating <= 2:
		return models.Negative
	case rating == 3:
		return models.Neutral
	default:
		return models.Positive
	}
}

// TextForModel is the text the sentiment classifier is embedded from.
func TextForModel(title, cleaned string) string {
	return title + " " + cleaned
}
