package aspects

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/spacesedan/aspectflow/internal/preprocessing"
)

// Normalizer lemmatizes keyphrases so that surface variants ("batteries",
// "battery") land on the same string before clustering.
type Normalizer struct {
	lemmatizer *golem.Lemmatizer
}

func NewNormalizer() (*Normalizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load english lemma dictionary: %w", err)
	}
	return &Normalizer{lemmatizer: lemmatizer}, nil
}

// NormalizePhrase returns the lemmatized phrase with stop words and
// non-alphabetic tokens removed. The result may be empty.
func (n *Normalizer) NormalizePhrase(phrase string) string {
	tokens := strings.FieldsFunc(strings.ToLower(phrase), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	lemmas := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !isAlpha(tok) || preprocessing.IsStopWord(tok) {
			continue
		}
		lemma := strings.ToLower(n.lemmatizer.Lemma(tok))
		if lemma == "" || preprocessing.IsStopWord(lemma) {
			continue
		}
		lemmas = append(lemmas, lemma)
	}
	return strings.Join(lemmas, " ")
}

// Normalize maps NormalizePhrase over phrases, dropping the ones that end up
// empty. Order is preserved.
func (n *Normalizer) Normalize(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if clean := n.NormalizePhrase(p); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
