package ingest

import "strings"

// Topic is one entry in the static topic catalog: a canonical tag and the
// keywords whose presence in a post assigns it.
type Topic struct {
	Tag         string
	Description string
	Keywords    []string
}

// Catalog is the read-only topic keyword dictionary. It is built once at
// startup and passed by reference into the components that need it.
type Catalog struct {
	topics   []Topic
	keywords [][]string          // normalized keywords, parallel to topics
	tags     map[string]struct{} // membership index
}

// NewCatalog builds a catalog from topic definitions. Keyword normalization
// happens once here; topics with an empty tag are dropped.
func NewCatalog(topics []Topic) *Catalog {
	c := &Catalog{
		tags: make(map[string]struct{}, len(topics)),
	}
	for _, t := range topics {
		if t.Tag == "" {
			continue
		}
		var normalized []string
		for _, kw := range t.Keywords {
			nk := Normalize(kw)
			if nk == "" {
				continue
			}
			normalized = append(normalized, nk)
		}
		c.topics = append(c.topics, t)
		c.keywords = append(c.keywords, normalized)
		c.tags[t.Tag] = struct{}{}
	}
	return c
}

// Topics returns a copy of the catalog entries in definition order.
func (c *Catalog) Topics() []Topic {
	out := make([]Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

// Len returns the number of topics in the catalog.
func (c *Catalog) Len() int { return len(c.topics) }

// Contains reports whether tag is a catalog tag.
func (c *Catalog) Contains(tag string) bool {
	_, ok := c.tags[tag]
	return ok
}

// DetectTopics returns the canonical tags whose keywords appear in the
// text, in catalog order. The whole text is normalized once and each
// keyword is tested by plain substring containment; a topic is included at
// most once no matter how many of its keywords match. This is a boolean
// membership test, not a ranking.
func (c *Catalog) DetectTopics(text string) []string {
	if text == "" {
		return nil
	}
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var found []string
	for i, topic := range c.topics {
		if containsAnyKeyword(normalized, c.keywords[i]) {
			found = append(found, topic.Tag)
		}
	}
	return found
}

// HasEvidence reports whether the text contains substring evidence for the
// given tag. It runs the same test DetectTopics uses and is how claimed
// topics from the AI collaborator are verified before being kept.
func (c *Catalog) HasEvidence(tag, text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	for i, topic := range c.topics {
		if topic.Tag != tag {
			continue
		}
		return containsAnyKeyword(normalized, c.keywords[i])
	}
	return false
}

func containsAnyKeyword(normalizedText string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(normalizedText, kw) {
			return true
		}
	}
	return false
}
