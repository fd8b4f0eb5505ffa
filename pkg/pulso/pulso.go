package pulso

import (
	"context"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/macanudo/pulso/pkg/pulso/ingest"
	"github.com/macanudo/pulso/pkg/pulso/relation"
	"github.com/macanudo/pulso/pkg/pulso/resolve"
	"github.com/macanudo/pulso/pkg/pulso/stats"
	"github.com/macanudo/pulso/pkg/pulso/store"
)

// DefaultMaxAIHashtags bounds how many classifier-suggested hashtags are
// kept per post.
const DefaultMaxAIHashtags = 5

// ClassifierResult is the tagged outcome of one classifier call. Fallback
// true means the collaborator was unavailable or returned something
// unusable and the post carries dictionary-only signals; the remaining
// fields are then zero.
type ClassifierResult struct {
	Fallback    bool
	Topics      []string
	Hashtags    []string
	ImplicitRef resolve.ImplicitReference
}

// FallbackResult is the fully-empty result every classifier failure
// collapses to.
func FallbackResult() ClassifierResult {
	return ClassifierResult{
		Fallback:    true,
		ImplicitRef: resolve.ImplicitReference{Kind: resolve.KindNone},
	}
}

// Classifier is the optional AI collaborator. Implementations never return
// an error: any failure collapses to FallbackResult at their boundary.
type Classifier interface {
	Classify(ctx context.Context, text string) ClassifierResult
}

// Options configures a Pulso instance.
type Options struct {
	Store         store.Store
	Pipeline      *ingest.Pipeline
	Classifier    Classifier // optional; nil means dictionary-only
	Weights       relation.Weights
	Logger        *zap.Logger
	MaxAIHashtags int
}

// Pulso is the content signal engine facade: post analysis and stat
// aggregation, pairwise affinity scoring, and ambiguous reference
// resolution.
type Pulso struct {
	store         store.Store
	pipeline      *ingest.Pipeline
	classifier    Classifier
	scorer        *relation.Scorer
	resolver      *resolve.Resolver
	aggregator    *stats.Aggregator
	logger        *zap.Logger
	maxAIHashtags int
	now           func() time.Time
}

// New creates a Pulso instance with the given dependencies.
func New(opts Options) *Pulso {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = ingest.NewPipeline(nil, nil)
	}
	maxAI := opts.MaxAIHashtags
	if maxAI <= 0 {
		maxAI = DefaultMaxAIHashtags
	}

	scorer := relation.NewScorer(opts.Store, opts.Weights)
	return &Pulso{
		store:         opts.Store,
		pipeline:      pipeline,
		classifier:    opts.Classifier,
		scorer:        scorer,
		resolver:      resolve.NewResolver(opts.Store, scorer, logger),
		aggregator:    stats.NewAggregator(opts.Store, pipeline.Extractor(), logger),
		logger:        logger,
		maxAIHashtags: maxAI,
		now:           time.Now,
	}
}

// Close cleanly shuts down the engine.
func (p *Pulso) Close() error {
	return p.store.Close()
}

// Post is a social post entering the engine.
type Post struct {
	ID       string
	AuthorID string
	Content  string
	Tags     []string // tags assigned outside the engine, if any
}

// PostSignals is everything the engine derives from one post's text.
type PostSignals struct {
	Hashtags    []ingest.Hashtag
	Tags        []string
	Terms       []ingest.Term
	ImplicitRef resolve.ImplicitReference
	AIFallback  bool
}

// AnalyzePost derives a post's signals: dictionary hashtags, topics and
// terms, merged with the classifier's validated output when one is
// configured. The classifier is never trusted blindly: claimed topics
// outside the catalog or without keyword evidence in the text are dropped,
// suggested hashtags are canonicalized and truncated.
func (p *Pulso) AnalyzePost(ctx context.Context, content string) PostSignals {
	analysis := p.pipeline.Process(content)

	signals := PostSignals{
		Hashtags:    analysis.Hashtags,
		Tags:        analysis.Topics,
		Terms:       analysis.Terms,
		ImplicitRef: resolve.ImplicitReference{Kind: resolve.KindNone},
	}
	if p.classifier == nil {
		return signals
	}

	result := p.classifier.Classify(ctx, content)
	if result.Fallback {
		signals.AIFallback = true
		p.logger.Debug("classifier fell back to dictionary-only signals")
		return signals
	}

	catalog := p.pipeline.Catalog()
	for _, tag := range result.Topics {
		if !catalog.Contains(tag) {
			continue
		}
		if !catalog.HasEvidence(tag, content) {
			continue
		}
		signals.Tags = mergeTag(signals.Tags, tag)
	}

	signals.Hashtags = mergeAIHashtags(signals.Hashtags, result.Hashtags, p.maxAIHashtags)
	signals.ImplicitRef = result.ImplicitRef
	if signals.ImplicitRef.Kind == "" {
		signals.ImplicitRef.Kind = resolve.KindNone
	}
	return signals
}

// IngestPost analyzes a post and applies all its side effects: hashtag
// usage rows, the three term stat tables and, when the classifier flags an
// implicit reference, the reference row with its ranked candidates.
//
// Failures are isolated per unit of work: a failing hashtag or stat upsert
// degrades the signal but never stops the rest of the ingest. The returned
// error aggregates whatever went wrong; the returned reference is non-nil
// whenever one was created.
func (p *Pulso) IngestPost(ctx context.Context, post Post) (*store.Reference, error) {
	signals := p.AnalyzePost(ctx, post.Content)
	now := p.now()

	var errs error
	for _, h := range signals.Hashtags {
		display := strings.TrimPrefix(h.Raw, "#")
		if err := p.store.BumpHashtag(ctx, display, h.Canonical, now); err != nil {
			p.logger.Warn("hashtag upsert failed",
				zap.String("canonical", h.Canonical), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	tags := mergeTags(post.Tags, signals.Tags)
	if err := p.aggregator.UpdateFromPost(ctx, stats.Post{
		AuthorID: post.AuthorID,
		Content:  post.Content,
		Tags:     tags,
	}); err != nil {
		errs = multierr.Append(errs, err)
	}

	var ref *store.Reference
	if signals.ImplicitRef.Present {
		created, err := p.resolver.Resolve(ctx, resolve.Post{ID: post.ID, AuthorID: post.AuthorID}, signals.ImplicitRef)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		ref = created
	}

	return ref, errs
}

// RegisterLike records a like on a post: the reactor joins the post's
// candidate pool and the author–reactor affinity bumps by the like weight.
func (p *Pulso) RegisterLike(ctx context.Context, postID, reactorID, authorID string) error {
	var errs error
	if err := p.store.AddReaction(ctx, postID, reactorID); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := p.scorer.Register(ctx, reactorID, authorID, relation.EventLike); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// RegisterInteraction records one interaction event between two users.
// Unknown event types and self-interactions are no-ops.
func (p *Pulso) RegisterInteraction(ctx context.Context, userA, userB, eventType string) error {
	return p.scorer.Register(ctx, userA, userB, eventType)
}

// RelationScore returns the affinity between two users.
func (p *Pulso) RelationScore(ctx context.Context, userA, userB string) (float64, error) {
	return p.scorer.Score(ctx, userA, userB)
}

// TopRelations returns a user's closest relations.
func (p *Pulso) TopRelations(ctx context.Context, userID string, limit int) ([]relation.Relation, error) {
	return p.scorer.Top(ctx, userID, limit)
}

// ResolveReference runs the ambiguous reference resolver for a post
// against an externally produced judgment.
func (p *Pulso) ResolveReference(ctx context.Context, postID, authorID string, ref resolve.ImplicitReference) (*store.Reference, error) {
	return p.resolver.Resolve(ctx, resolve.Post{ID: postID, AuthorID: authorID}, ref)
}

// TrendingHashtags returns hashtags by use count descending.
func (p *Pulso) TrendingHashtags(ctx context.Context, limit int) ([]store.Hashtag, error) {
	return p.store.TrendingHashtags(ctx, limit)
}

// TopTerms returns the corpus-wide top terms.
func (p *Pulso) TopTerms(ctx context.Context, limit int) ([]store.TermGlobalStat, error) {
	return p.store.TopGlobalTerms(ctx, limit)
}

// TopicTerms returns the top terms co-occurring with a topic tag.
func (p *Pulso) TopicTerms(ctx context.Context, tag string, limit int) ([]store.TermTopicStat, error) {
	return p.store.TopTopicTerms(ctx, tag, limit)
}

// UserTerms returns a user's top terms.
func (p *Pulso) UserTerms(ctx context.Context, userID string, limit int) ([]store.UserTermStat, error) {
	return p.store.TopUserTerms(ctx, userID, limit)
}

// ReferenceForPost returns the reference created for a post with its
// ranked candidates.
func (p *Pulso) ReferenceForPost(ctx context.Context, postID string) (store.Reference, []store.ReferenceCandidate, bool, error) {
	ref, ok, err := p.store.ReferenceByPost(ctx, postID)
	if err != nil || !ok {
		return store.Reference{}, nil, false, err
	}
	candidates, err := p.store.CandidatesForReference(ctx, ref.ID)
	if err != nil {
		return ref, nil, true, err
	}
	return ref, candidates, true, nil
}

func mergeTag(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

func mergeTags(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	for _, t := range base {
		if t == "" {
			continue
		}
		out = mergeTag(out, t)
	}
	for _, t := range extra {
		if t == "" {
			continue
		}
		out = mergeTag(out, t)
	}
	return out
}

// mergeAIHashtags appends classifier-suggested hashtags, canonicalized and
// deduplicated against the extracted set, keeping at most max suggestions.
func mergeAIHashtags(extracted []ingest.Hashtag, suggested []string, max int) []ingest.Hashtag {
	seen := make(map[string]struct{}, len(extracted))
	for _, h := range extracted {
		seen[h.Canonical] = struct{}{}
	}

	kept := 0
	for _, word := range suggested {
		if kept >= max {
			break
		}
		canonical := ingest.Normalize(word)
		if canonical == "" {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		extracted = append(extracted, ingest.Hashtag{
			Raw:       "#" + strings.TrimPrefix(word, "#"),
			Canonical: canonical,
		})
		kept++
	}
	return extracted
}
