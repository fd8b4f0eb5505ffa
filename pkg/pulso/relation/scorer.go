package relation

import (
	"context"
	"time"

	"github.com/macanudo/pulso/pkg/pulso/store"
)

// Interaction event types with a base weight. Event types not in the
// weight table are ignored, which keeps the scorer forward-compatible with
// new events introduced elsewhere.
const (
	EventLike         = "like"
	EventComment      = "comment"
	EventMessage      = "message"
	EventFriendAccept = "friend_accept"
)

// Weights maps interaction event types to score increments.
type Weights map[string]float64

// DefaultWeights returns the base event weights.
func DefaultWeights() Weights {
	return Weights{
		EventLike:         0.01,
		EventComment:      0.03,
		EventMessage:      0.05,
		EventFriendAccept: 0.2,
	}
}

// Relation is one affinity edge seen from a user's perspective.
type Relation struct {
	OtherUserID       string
	Score             float64
	LastInteractionAt time.Time
}

// Scorer maintains the symmetric pairwise affinity score in [0,1],
// accumulated additively from weighted interaction events.
//
// The register path is read-clamp-write: two simultaneous interactions on
// the same pair can race and lose an increment. That is an accepted
// limitation of the original system, kept here rather than hidden behind a
// lock.
type Scorer struct {
	store   store.Store
	weights Weights
	now     func() time.Time
}

// NewScorer creates a scorer. A nil or empty weight table selects
// DefaultWeights.
func NewScorer(st store.Store, weights Weights) *Scorer {
	if len(weights) == 0 {
		weights = DefaultWeights()
	}
	return &Scorer{
		store:   st,
		weights: weights,
		now:     time.Now,
	}
}

// Register records one interaction between two users and bumps their
// affinity score. Self-interactions, empty ids and unknown event types are
// no-ops, not errors.
func (s *Scorer) Register(ctx context.Context, userA, userB, eventType string) error {
	if userA == "" || userB == "" || userA == userB {
		return nil
	}
	weight := s.weights[eventType]
	if weight == 0 {
		return nil
	}

	user1, user2 := OrderPair(userA, userB)

	rel, ok, err := s.store.GetRelation(ctx, user1, user2)
	if err != nil {
		return err
	}
	if !ok {
		rel = store.UserRelation{User1ID: user1, User2ID: user2}
	}
	rel.Score = Clamp(rel.Score + weight)
	rel.LastInteractionAt = s.now()

	return s.store.PutRelation(ctx, rel)
}

// Score returns the affinity between two users: 0 when no row exists, 1
// for a user with themselves (maximal self-affinity, used as a sentinel by
// the reference resolver). Symmetric in its arguments.
func (s *Scorer) Score(ctx context.Context, userA, userB string) (float64, error) {
	if userA == userB {
		return 1, nil
	}

	user1, user2 := OrderPair(userA, userB)
	rel, ok, err := s.store.GetRelation(ctx, user1, user2)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return rel.Score, nil
}

// Top returns the highest-scoring relations involving userID, each
// resolved to the other party in the pair.
func (s *Scorer) Top(ctx context.Context, userID string, limit int) ([]Relation, error) {
	if limit <= 0 {
		limit = 20
	}
	rels, err := s.store.RelationsForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]Relation, 0, len(rels))
	for _, rel := range rels {
		other := rel.User1ID
		if other == userID {
			other = rel.User2ID
		}
		out = append(out, Relation{
			OtherUserID:       other,
			Score:             rel.Score,
			LastInteractionAt: rel.LastInteractionAt,
		})
	}
	return out, nil
}

// OrderPair canonicalizes a user pair to (min, max). Applying it before
// every read and write removes directionality from the pair key.
func OrderPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// Clamp bounds a score to [0,1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
