package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

// termSeparators splits post text on whitespace and the punctuation that
// shows up in short Spanish posts, including inverted question and
// exclamation marks.
var termSeparators = regexp.MustCompile(`[\s,.;:!?()"'«»¿¡]+`)

// DefaultStopwords returns the built-in Spanish stopword set: articles,
// prepositions and the most common pronouns and conjugations.
func DefaultStopwords() []string {
	return []string{
		"el", "la", "los", "las",
		"un", "una", "unos", "unas",
		"de", "del", "al", "a",
		"en", "con", "por", "para",
		"que", "y", "o", "u",
		"es", "soy", "estoy", "estas", "esta", "estamos",
		"me", "te", "se",
		"mi", "tu", "su", "nos", "sus",
	}
}

// Term is one extracted term occurrence.
type Term struct {
	Raw          string
	Normalized   string
	IsProperName bool
}

// TermExtractor tokenizes post text into normalized terms, filtering
// stopwords and flagging probable proper names.
type TermExtractor struct {
	stopwords map[string]struct{}
	norm      *Normalizer // optional memoized normalization
}

// NewTermExtractor creates an extractor with the given stopword list.
// Stopwords are matched against the lowercase raw token, before
// normalization.
func NewTermExtractor(stopwords []string) *TermExtractor {
	stops := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &TermExtractor{stopwords: stops}
}

// SetNormalizer assigns a memoizing normalizer, typically shared with the
// rest of the pipeline. Without one the extractor falls back to the plain
// Normalize function.
func (e *TermExtractor) SetNormalizer(n *Normalizer) {
	e.norm = n
}

// Extract returns the terms surviving tokenization, stopword filtering and
// normalization, one entry per raw occurrence.
func (e *TermExtractor) Extract(text string) []Term {
	if text == "" {
		return nil
	}

	var result []Term
	for _, token := range termSeparators.Split(text, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, stop := e.stopwords[strings.ToLower(token)]; stop {
			continue
		}

		normalized := e.normalize(token)
		if normalized == "" {
			continue
		}

		result = append(result, Term{
			Raw:          token,
			Normalized:   normalized,
			IsProperName: isProbablyProperName(token),
		})
	}
	return result
}

func (e *TermExtractor) normalize(raw string) string {
	if e.norm != nil {
		return e.norm.Normalize(raw)
	}
	return Normalize(raw)
}

// isProbablyProperName flags tokens of length >= 2 whose first rune is
// uppercase and has a distinct lowercase form. A coarse capitalization
// signal, not named-entity recognition.
func isProbablyProperName(token string) bool {
	runes := []rune(token)
	if len(runes) < 2 {
		return false
	}
	first := runes[0]
	if first != unicode.ToUpper(first) {
		return false
	}
	if first == unicode.ToLower(first) {
		return false
	}
	return true
}
