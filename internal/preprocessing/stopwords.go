package preprocessing

import (
	"strings"
	"sync"

	"github.com/bbalet/stopwords"
)

const stopWordLanguage = "en"

var stopWordCache sync.Map

// IsStopWord reports whether a single lower-cased word is an English stop
// word. The stopwords package only exposes a cleaning function, so a word is
// a stop word when cleaning removes it.
func IsStopWord(word string) bool {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return true
	}
	if cached, ok := stopWordCache.Load(word); ok {
		return cached.(bool)
	}

	isStop := strings.TrimSpace(stopwords.CleanString(word, stopWordLanguage, false)) == ""
	stopWordCache.Store(word, isStop)
	return isStop
}
