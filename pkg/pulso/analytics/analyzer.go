package analytics

import (
	"math"
	"sort"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
)

// Analyzer accumulates corpus-level statistics over analyzed posts. It is
// an in-memory companion to the persistent store: useful for one-shot
// reports over a feed dump without touching a database.
//
// Not safe for concurrent use.
type Analyzer struct {
	totalPosts int64
	termDF     map[string]int64
	termTopics map[string]map[string]int64
	hashtags   map[string]int64
	topics     map[string]int64
	pairCounts map[pair]int64
	display    map[string]string
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		termDF:     make(map[string]int64),
		termTopics: make(map[string]map[string]int64),
		hashtags:   make(map[string]int64),
		topics:     make(map[string]int64),
		pairCounts: make(map[pair]int64),
		display:    make(map[string]string),
	}
}

// Process consumes one post's extracted signals.
func (a *Analyzer) Process(analysis ingest.Analysis) {
	a.totalPosts++

	for _, h := range analysis.Hashtags {
		a.hashtags[h.Canonical]++
	}
	for _, topic := range analysis.Topics {
		a.topics[topic]++
	}

	seen := make(map[string]struct{})
	for _, term := range analysis.Terms {
		if term.Normalized == "" {
			continue
		}
		if _, ok := seen[term.Normalized]; ok {
			continue
		}
		seen[term.Normalized] = struct{}{}
		a.termDF[term.Normalized]++
		if _, ok := a.display[term.Normalized]; !ok {
			a.display[term.Normalized] = term.Raw
		}
		for _, topic := range analysis.Topics {
			if a.termTopics[term.Normalized] == nil {
				a.termTopics[term.Normalized] = make(map[string]int64)
			}
			a.termTopics[term.Normalized][topic]++
		}
	}

	// Post-level co-occurrence between unique terms.
	unique := make([]string, 0, len(seen))
	for term := range seen {
		unique = append(unique, term)
	}
	sort.Strings(unique)
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a.pairCounts[newPair(unique[i], unique[j])]++
		}
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalPosts int64
	TermDF     map[string]int64
	TermTopics map[string]map[string]int64
	Hashtags   map[string]int64
	Topics     map[string]int64
	PairCounts map[pair]int64
	Display    map[string]string
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyDF := make(map[string]int64, len(a.termDF))
	for term, count := range a.termDF {
		copyDF[term] = count
	}
	copyTopics := make(map[string]map[string]int64, len(a.termTopics))
	for term, topics := range a.termTopics {
		copyTopics[term] = make(map[string]int64, len(topics))
		for topic, count := range topics {
			copyTopics[term][topic] = count
		}
	}
	copyHashtags := make(map[string]int64, len(a.hashtags))
	for tag, count := range a.hashtags {
		copyHashtags[tag] = count
	}
	copyTopicCounts := make(map[string]int64, len(a.topics))
	for topic, count := range a.topics {
		copyTopicCounts[topic] = count
	}
	copyPairs := make(map[pair]int64, len(a.pairCounts))
	for p, count := range a.pairCounts {
		copyPairs[p] = count
	}
	copyDisplay := make(map[string]string, len(a.display))
	for term, raw := range a.display {
		copyDisplay[term] = raw
	}
	return Stats{
		TotalPosts: a.totalPosts,
		TermDF:     copyDF,
		TermTopics: copyTopics,
		Hashtags:   copyHashtags,
		Topics:     copyTopicCounts,
		PairCounts: copyPairs,
		Display:    copyDisplay,
	}
}

// Ranked is one entry of a descending count ranking.
type Ranked struct {
	Key     string
	Display string
	Count   int64
}

// TopTerms returns the terms with the highest document frequency.
func (s Stats) TopTerms(limit int) []Ranked {
	return rank(s.TermDF, s.Display, limit)
}

// TopHashtags returns the most used hashtags by canonical form.
func (s Stats) TopHashtags(limit int) []Ranked {
	return rank(s.Hashtags, nil, limit)
}

// TopTopics returns topic tags ordered by how many posts matched them.
func (s Stats) TopTopics(limit int) []Ranked {
	return rank(s.Topics, nil, limit)
}

func rank(counts map[string]int64, display map[string]string, limit int) []Ranked {
	out := make([]Ranked, 0, len(counts))
	for key, count := range counts {
		entry := Ranked{Key: key, Display: key, Count: count}
		if display != nil {
			if raw, ok := display[key]; ok {
				entry.Display = raw
			}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Key < out[j].Key
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PairStat describes a co-occurring term pair with its association score.
type PairStat struct {
	A       string
	B       string
	PMI     float64
	Support int64
}

// RelatedTerms returns term pairs that co-occur more than chance would
// predict, ranked by pointwise mutual information. Pairs below minSupport
// posts are dropped to keep noise out of small corpora.
func (s Stats) RelatedTerms(limit int, minSupport int64) []PairStat {
	if s.TotalPosts == 0 {
		return nil
	}
	var stats []PairStat
	for p, count := range s.PairCounts {
		if count < minSupport {
			continue
		}
		dfA := s.TermDF[p.A]
		dfB := s.TermDF[p.B]
		if dfA == 0 || dfB == 0 {
			continue
		}
		stats = append(stats, PairStat{
			A:       p.A,
			B:       p.B,
			PMI:     computePMI(count, dfA, dfB, s.TotalPosts),
			Support: count,
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PMI == stats[j].PMI {
			return stats[i].Support > stats[j].Support
		}
		return stats[i].PMI > stats[j].PMI
	})
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func computePMI(pairCount, dfA, dfB, totalPosts int64) float64 {
	if dfA == 0 || dfB == 0 || totalPosts == 0 {
		return 0
	}
	smooth := 1.0
	numerator := (float64(pairCount) + smooth) / float64(totalPosts)
	denominator := ((float64(dfA) + smooth) / float64(totalPosts)) * ((float64(dfB) + smooth) / float64(totalPosts))
	return math.Log(numerator / denominator)
}

type pair struct {
	A string
	B string
}

func newPair(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{A: a, B: b}
}
