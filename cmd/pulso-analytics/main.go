// Command pulso-analytics runs a one-shot corpus report over a feed dump
// without touching a database: term document frequencies, hashtag and
// topic counts, and strongly associated term pairs, as JSON on stdout.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/macanudo/pulso/internal/feed"
	"github.com/macanudo/pulso/pkg/pulso/analytics"
	"github.com/macanudo/pulso/pkg/pulso/config"
)

type report struct {
	TotalPosts   int64          `json:"total_posts"`
	TopTerms     []rankedJSON   `json:"top_terms"`
	TopHashtags  []rankedJSON   `json:"top_hashtags"`
	TopTopics    []rankedJSON   `json:"top_topics"`
	RelatedTerms []pairStatJSON `json:"related_terms"`
}

type rankedJSON struct {
	Key     string `json:"key"`
	Display string `json:"display,omitempty"`
	Count   int64  `json:"count"`
}

type pairStatJSON struct {
	A       string  `json:"a"`
	B       string  `json:"b"`
	PMI     float64 `json:"pmi"`
	Support int64   `json:"support"`
}

func main() {
	var (
		input      = flag.String("input", "", "Path to posts JSONL file (required)")
		topics     = flag.String("topics", "", "Topic catalog YAML (optional)")
		stopwords  = flag.String("stopwords", "", "Stopwords YAML (optional)")
		limit      = flag.Int("limit", 20, "Entries per ranking")
		minSupport = flag.Int64("min-support", 3, "Minimum co-occurring posts for a term pair")
	)
	flag.Parse()

	if *input == "" {
		log.Fatal("--input required")
	}

	loader := config.Loader{CatalogPath: *topics, StopwordsPath: *stopwords}
	comp, err := loader.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	items, err := feed.LoadFromJSONL(*input)
	if err != nil {
		log.Fatalf("load posts: %v", err)
	}

	analyzer := analytics.NewAnalyzer()
	for _, item := range items {
		analyzer.Process(comp.Pipeline.Process(item.Content))
	}
	stats := analyzer.Snapshot()

	out := report{
		TotalPosts:   stats.TotalPosts,
		TopTerms:     toRanked(stats.TopTerms(*limit)),
		TopHashtags:  toRanked(stats.TopHashtags(*limit)),
		TopTopics:    toRanked(stats.TopTopics(*limit)),
		RelatedTerms: toPairs(stats.RelatedTerms(*limit, *minSupport)),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func toRanked(entries []analytics.Ranked) []rankedJSON {
	out := make([]rankedJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, rankedJSON{Key: e.Key, Display: e.Display, Count: e.Count})
	}
	return out
}

func toPairs(pairs []analytics.PairStat) []pairStatJSON {
	out := make([]pairStatJSON, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairStatJSON{A: p.A, B: p.B, PMI: p.PMI, Support: p.Support})
	}
	return out
}
