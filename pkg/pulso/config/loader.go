package config

import (
	"fmt"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
	"github.com/macanudo/pulso/pkg/pulso/relation"
)

// Loader loads all configuration files and constructs components. Empty
// paths fall back to built-in defaults: the default Spanish stopword set,
// an empty topic catalog and the base event weights.
type Loader struct {
	CatalogPath   string
	StopwordsPath string
	WeightsPath   string
}

// Components holds all loaded configuration components. The catalog and
// stopword set are immutable after loading; components receive them by
// reference.
type Components struct {
	Pipeline *ingest.Pipeline
	Catalog  *ingest.Catalog
	Weights  relation.Weights
}

// Load reads the configuration files and returns initialized components.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	stopwords := ingest.DefaultStopwords()
	if l.StopwordsPath != "" {
		sw, err := LoadStopwords(l.StopwordsPath)
		if err != nil {
			return nil, fmt.Errorf("load stopwords: %w", err)
		}
		stopwords = sw.Terms
	}

	var topics []ingest.Topic
	if l.CatalogPath != "" {
		cat, err := LoadCatalog(l.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		topics = make([]ingest.Topic, len(cat.Topics))
		for i, t := range cat.Topics {
			topics[i] = ingest.Topic{
				Tag:         t.Tag,
				Description: t.Description,
				Keywords:    t.Keywords,
			}
		}
	}

	comp.Weights = relation.DefaultWeights()
	if l.WeightsPath != "" {
		w, err := LoadWeights(l.WeightsPath)
		if err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
		if len(w.Events) > 0 {
			comp.Weights = relation.Weights(w.Events)
		}
	}

	comp.Catalog = ingest.NewCatalog(topics)
	comp.Pipeline = ingest.NewPipeline(ingest.NewTermExtractor(stopwords), comp.Catalog)

	return comp, nil
}
