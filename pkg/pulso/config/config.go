package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/macanudo/pulso/pkg/pulso/internalerr"
)

// Catalog is the YAML form of the topic keyword dictionary.
type Catalog struct {
	Topics []TopicEntry `yaml:"topics"`
}

// TopicEntry defines one topic: a canonical tag and the keywords that
// assign it.
type TopicEntry struct {
	Tag         string   `yaml:"tag"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// LoadCatalog loads a topic catalog from a YAML file. Tags must be
// non-empty and unique.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(cat.Topics))
	for _, t := range cat.Topics {
		if t.Tag == "" {
			return nil, fmt.Errorf("topic with empty tag in %s: %w", path, internalerr.ErrInvalidConfig)
		}
		if _, dup := seen[t.Tag]; dup {
			return nil, fmt.Errorf("duplicate topic tag %q in %s: %w", t.Tag, path, internalerr.ErrInvalidConfig)
		}
		seen[t.Tag] = struct{}{}
	}

	return &cat, nil
}

// Stopwords is the YAML form of the stopword list.
type Stopwords struct {
	Terms []string `yaml:"terms"`
}

// LoadStopwords loads stopwords from a YAML file.
func LoadStopwords(path string) (*Stopwords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sw Stopwords
	if err := yaml.Unmarshal(data, &sw); err != nil {
		return nil, err
	}

	return &sw, nil
}

// Weights is the YAML form of the interaction event weight table.
type Weights struct {
	Events map[string]float64 `yaml:"events"`
}

// LoadWeights loads event weights from a YAML file. Weights must be
// non-negative.
func LoadWeights(path string) (*Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var w Weights
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	for event, weight := range w.Events {
		if weight < 0 {
			return nil, fmt.Errorf("negative weight %v for event %q in %s: %w", weight, event, path, internalerr.ErrInvalidConfig)
		}
	}

	return &w, nil
}
