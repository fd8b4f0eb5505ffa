package ingest

import (
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// accentFold maps accented Spanish letters to their plain forms. It is
// applied after lowercasing, so only lowercase rows are needed.
var accentFold = map[rune]rune{
	'á': 'a',
	'é': 'e',
	'í': 'i',
	'ó': 'o',
	'ú': 'u',
	'ñ': 'n',
}

// numberWords rewrites Spanish number words to digit characters. These are
// plain substring rewrites, not word-boundary replacements: a word that
// merely contains a number word gets rewritten too ("unos" → "1s"). Keys
// already stored downstream depend on this, so the behavior must not be
// "fixed" to be boundary-aware.
var numberWords = []struct {
	word  string
	digit string
}{
	{"uno", "1"},
	{"dos", "2"},
	{"tres", "3"},
	{"cuatro", "4"},
	{"cinco", "5"},
	{"seis", "6"},
	{"siete", "7"},
	{"ocho", "8"},
	{"nueve", "9"},
	{"cero", "0"},
}

// Normalize canonicalizes raw text or a hashtag into a comparable key:
// strip a leading '#', lowercase, fold accents, rewrite Spanish number
// words to digits, strip all whitespace. Normalize("") is "".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := strings.TrimPrefix(raw, "#")
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if folded, ok := accentFold[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	s = b.String()

	for _, nw := range numberWords {
		s = strings.ReplaceAll(s, nw.word, nw.digit)
	}

	return stripSpace(s)
}

func stripSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DefaultNormalizerCacheSize bounds the memoization cache of a Normalizer.
const DefaultNormalizerCacheSize = 4096

// Normalizer memoizes Normalize behind a bounded LRU cache. Post ingestion
// normalizes the same hashtags and terms over and over, so the cache pays
// for itself quickly.
type Normalizer struct {
	cache *lru.Cache[string, string]
}

// NewNormalizer creates a memoizing normalizer. A size <= 0 selects
// DefaultNormalizerCacheSize.
func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultNormalizerCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Normalizer{cache: cache}
}

// Normalize returns the canonical key for raw, consulting the cache first.
func (n *Normalizer) Normalize(raw string) string {
	if v, ok := n.cache.Get(raw); ok {
		return v
	}
	v := Normalize(raw)
	n.cache.Add(raw, v)
	return v
}
