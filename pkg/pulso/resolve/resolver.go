package resolve

import (
	"context"
	"crypto/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/macanudo/pulso/pkg/pulso/relation"
	"github.com/macanudo/pulso/pkg/pulso/store"
)

// Implicit reference kinds as reported by the AI classifier.
const (
	KindNone     = "none"
	KindRomantic = "romantic"
	KindFriend   = "friend"
	KindFamily   = "family"
	KindPet      = "pet"
	KindGroup    = "group"
	KindBrand    = "brand"
	KindPlace    = "place"
	KindOther    = "other"
)

// MaxCandidates bounds how many ranked candidates a reference gets.
const MaxCandidates = 5

// ImplicitReference is the classifier's judgment on whether a post alludes
// to someone or something without naming them.
type ImplicitReference struct {
	Present        bool
	Kind           string
	TargetIsPerson bool
}

// Post is the minimal post identity the resolver needs.
type Post struct {
	ID       string
	AuthorID string
}

// Resolver turns an implicit-reference judgment into a stored reference
// plus a ranked list of likely referents, built from the post's reactors
// and the pairwise affinity table.
type Resolver struct {
	store   store.Store
	scorer  *relation.Scorer
	logger  *zap.Logger
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(st store.Store, scorer *relation.Scorer, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:   st,
		scorer:  scorer,
		logger:  logger,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Resolve creates a reference row for the post and persists up to
// MaxCandidates ranked candidates. When the judgment says no reference is
// present it returns (nil, nil) and writes nothing.
//
// Candidate persistence is a side effect independent of reference
// creation: a failed candidate insert is captured and reported but the
// created reference is still returned.
func (r *Resolver) Resolve(ctx context.Context, post Post, ref ImplicitReference) (*store.Reference, error) {
	if !ref.Present {
		return nil, nil
	}

	label, sentiment := labelForKind(ref.Kind)
	kind := ref.Kind
	if kind == "" {
		kind = KindOther
	}

	created := store.Reference{
		ID:        ulid.MustNew(ulid.Now(), r.entropy).String(),
		PostID:    post.ID,
		AuthorID:  post.AuthorID,
		Label:     label,
		Sentiment: sentiment,
		Kind:      kind,
		CreatedAt: r.now(),
	}
	if err := r.store.InsertReference(ctx, created); err != nil {
		return nil, err
	}

	candidates, err := r.rankCandidates(ctx, post)
	if err != nil {
		r.logger.Warn("ranking reference candidates failed",
			zap.String("post_id", post.ID), zap.Error(err))
		return &created, err
	}

	var errs error
	for _, c := range candidates {
		insert := store.ReferenceCandidate{
			ReferenceID:  created.ID,
			TargetUserID: c.userID,
			Confidence:   c.score,
		}
		if err := r.store.InsertCandidate(ctx, insert); err != nil {
			r.logger.Warn("candidate insert failed",
				zap.String("reference_id", created.ID),
				zap.String("target_user_id", c.userID),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	return &created, errs
}

type scoredCandidate struct {
	userID string
	score  float64
}

// rankCandidates builds the candidate pool from the post's reactors minus
// the author, scores each against the author, keeps positive scores and
// returns the top MaxCandidates by score descending.
func (r *Resolver) rankCandidates(ctx context.Context, post Post) ([]scoredCandidate, error) {
	reactors, err := r.store.ReactorIDs(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(reactors))
	var candidates []scoredCandidate
	for _, userID := range reactors {
		if userID == post.AuthorID {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}

		score, err := r.scorer.Score(ctx, post.AuthorID, userID)
		if err != nil {
			return nil, err
		}
		if score > 0 {
			candidates = append(candidates, scoredCandidate{userID: userID, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates, nil
}

// labelForKind maps a reference kind to its label and sentiment. Unmapped
// kinds fall through to a neutral ambiguous reference.
func labelForKind(kind string) (label, sentiment string) {
	switch kind {
	case KindRomantic:
		return "possible_love_interest", "positive"
	case KindFamily:
		return "family_reference", "positive"
	case KindFriend:
		return "friend_reference", "positive"
	default:
		return "ambiguous_reference", "neutral"
	}
}
