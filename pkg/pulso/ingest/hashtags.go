package ingest

import "regexp"

// hashtagPattern matches '#' followed by letters, digits or underscore,
// including accented Spanish letters.
var hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_ÁÉÍÓÚÑáéíóúñ]+)`)

// Hashtag is one extracted hashtag: the raw spelling as it appeared in the
// text and the canonical key used for storage and comparison.
type Hashtag struct {
	Raw       string
	Canonical string
}

// ExtractHashtags scans text for hashtags in first-seen order, deduplicated
// by canonical form. The first raw spelling encountered wins for each
// canonical key. Tokens whose canonical form is empty are skipped.
func ExtractHashtags(text string) []Hashtag {
	if text == "" {
		return nil
	}

	matches := hashtagPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]struct{}, len(matches))
	var result []Hashtag

	for _, m := range matches {
		rawWord := m[1]
		canonical := Normalize(rawWord)
		if canonical == "" {
			continue
		}
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		result = append(result, Hashtag{
			Raw:       "#" + rawWord,
			Canonical: canonical,
		})
	}
	return result
}
