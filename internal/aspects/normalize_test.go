package aspects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer(t *testing.T) {
	n, err := NewNormalizer()
	require.NoError(t, err)

	tests := []struct {
		name   string
		phrase string
		want   string
	}{
		{"plural lemmatized", "batteries", "battery"},
		{"stop words dropped", "the screen", "screen"},
		{"numbers dropped", "battery 123", "battery"},
		{"upper case", "Screens", "screen"},
		{"only stop words", "the and", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.NormalizePhrase(tt.phrase))
		})
	}
}

func TestNormalizeDropsEmptyPhrases(t *testing.T) {
	n, err := NewNormalizer()
	require.NoError(t, err)

	got := n.Normalize([]string{"batteries", "the", "42", "screen"})
	assert.Equal(t, []string{"battery", "screen"}, got)
}
