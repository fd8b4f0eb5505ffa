package ingest

// Pipeline orchestrates the per-post text analysis:
// text → hashtag extraction, topic detection, term extraction
type Pipeline struct {
	extractor *TermExtractor
	catalog   *Catalog
}

// NewPipeline creates an analysis pipeline. A shared memoizing normalizer
// is installed on the extractor so repeated tokens across posts are
// canonicalized once.
func NewPipeline(extractor *TermExtractor, catalog *Catalog) *Pipeline {
	if extractor == nil {
		extractor = NewTermExtractor(DefaultStopwords())
	}
	if catalog == nil {
		catalog = NewCatalog(nil)
	}
	extractor.SetNormalizer(NewNormalizer(0))
	return &Pipeline{
		extractor: extractor,
		catalog:   catalog,
	}
}

// Analysis is the dictionary-derived view of one post's text.
type Analysis struct {
	Hashtags []Hashtag
	Topics   []string
	Terms    []Term
}

// Process runs a post's text through the full analysis pipeline. The three
// extractions are independent of each other; they only share the
// normalizer.
func (p *Pipeline) Process(text string) Analysis {
	return Analysis{
		Hashtags: ExtractHashtags(text),
		Topics:   p.catalog.DetectTopics(text),
		Terms:    p.extractor.Extract(text),
	}
}

// Extractor exposes the pipeline's term extractor for components that
// consume terms directly, like the stats aggregator.
func (p *Pipeline) Extractor() *TermExtractor { return p.extractor }

// Catalog exposes the pipeline's topic catalog.
func (p *Pipeline) Catalog() *Catalog { return p.catalog }
