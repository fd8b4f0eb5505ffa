package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
	"github.com/macanudo/pulso/pkg/pulso/store"
)

// Post is the slice of a post the aggregator consumes.
type Post struct {
	AuthorID string
	Content  string
	Tags     []string
}

// Aggregator updates the three term stat tables from post content: global,
// per-topic and per-user. Each unique normalized term contributes exactly
// one increment per table per post, no matter how many times the raw word
// repeats in the text.
type Aggregator struct {
	store     store.Store
	extractor *ingest.TermExtractor
	logger    *zap.Logger
	now       func() time.Time
}

// NewAggregator creates an aggregator. A nil logger disables logging.
func NewAggregator(st store.Store, extractor *ingest.TermExtractor, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		store:     st,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

// UpdateFromPost extracts the post's terms and upserts the stat tables. A
// post with no extractable terms is a no-op. Upserts for different terms
// touch disjoint keys, so they fan out concurrently; a failure on one
// term's upserts is captured and reported without stopping the others.
func (a *Aggregator) UpdateFromPost(ctx context.Context, post Post) error {
	terms := a.extractor.Extract(post.Content)
	if len(terms) == 0 {
		return nil
	}

	unique := dedupeByNormalized(terms)
	now := a.now()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, term := range unique {
		wg.Add(1)
		go func(t ingest.Term) {
			defer wg.Done()
			if err := a.updateTerm(ctx, post, t, now); err != nil {
				a.logger.Warn("term stat update failed",
					zap.String("normalized", t.Normalized),
					zap.String("author_id", post.AuthorID),
					zap.Error(err))
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
		}(term)
	}
	wg.Wait()

	return errs
}

// updateTerm runs one term's upserts. Each upsert is independent: a global
// stat failure does not skip the topic or user stat writes.
func (a *Aggregator) updateTerm(ctx context.Context, post Post, t ingest.Term, now time.Time) error {
	obs := store.TermObservation{
		Term:         t.Raw,
		Normalized:   t.Normalized,
		IsProperName: t.IsProperName,
	}

	var errs error
	errs = multierr.Append(errs, a.store.BumpGlobalTerm(ctx, obs, now))
	for _, tag := range post.Tags {
		errs = multierr.Append(errs, a.store.BumpTopicTerm(ctx, t.Normalized, tag))
	}
	errs = multierr.Append(errs, a.store.BumpUserTerm(ctx, post.AuthorID, obs, now))
	return errs
}

// dedupeByNormalized keeps the first occurrence per normalized key, so the
// first raw spelling wins as display form.
func dedupeByNormalized(terms []ingest.Term) []ingest.Term {
	seen := make(map[string]struct{}, len(terms))
	var unique []ingest.Term
	for _, t := range terms {
		if _, ok := seen[t.Normalized]; ok {
			continue
		}
		seen[t.Normalized] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}
