package store

import (
	"context"
	"time"
)

// Store is the persistence contract for all derived signals. Every Bump*
// method is an atomic per-key upsert-with-increment; the engine issues
// independent upserts concurrently and never assumes multi-key
// transactions. Relation rows are written whole on purpose: the scorer's
// read-clamp-write sequence is not atomic end to end and that is part of
// its documented behavior.
type Store interface {
	Close() error

	// Term statistics
	BumpGlobalTerm(ctx context.Context, obs TermObservation, now time.Time) error
	GetGlobalTerm(ctx context.Context, normalized string) (TermGlobalStat, bool, error)
	TopGlobalTerms(ctx context.Context, limit int) ([]TermGlobalStat, error)
	BumpTopicTerm(ctx context.Context, normalized, tag string) error
	TopTopicTerms(ctx context.Context, tag string, limit int) ([]TermTopicStat, error)
	BumpUserTerm(ctx context.Context, userID string, obs TermObservation, now time.Time) error
	TopUserTerms(ctx context.Context, userID string, limit int) ([]UserTermStat, error)

	// Hashtags
	BumpHashtag(ctx context.Context, display, canonical string, now time.Time) error
	TrendingHashtags(ctx context.Context, limit int) ([]Hashtag, error)

	// Relations. Callers canonicalize the pair ordering (user1ID < user2ID)
	// before every read and write.
	GetRelation(ctx context.Context, user1ID, user2ID string) (UserRelation, bool, error)
	PutRelation(ctx context.Context, rel UserRelation) error
	RelationsForUser(ctx context.Context, userID string, limit int) ([]UserRelation, error)

	// Reactions
	AddReaction(ctx context.Context, postID, userID string) error
	ReactorIDs(ctx context.Context, postID string) ([]string, error)

	// Ambiguous references
	InsertReference(ctx context.Context, ref Reference) error
	ReferenceByPost(ctx context.Context, postID string) (Reference, bool, error)
	InsertCandidate(ctx context.Context, c ReferenceCandidate) error
	CandidatesForReference(ctx context.Context, referenceID string) ([]ReferenceCandidate, error)
}

// TermObservation is one unique term occurrence being recorded against the
// stat tables.
type TermObservation struct {
	Term         string // display form
	Normalized   string
	IsProperName bool
}

// TermGlobalStat aggregates a term across the whole corpus, keyed by
// normalized form. Term keeps the display form of the first occurrence.
type TermGlobalStat struct {
	Term        string
	Normalized  string
	TotalCount  int64
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}

// TermTopicStat counts term–topic co-occurrences, keyed by (normalized, tag).
type TermTopicStat struct {
	Normalized string
	Tag        string
	Count      int64
}

// UserTermStat aggregates a term per author, keyed by (userID, normalized).
// IsProperName is sticky: once true it stays true.
type UserTermStat struct {
	UserID       string
	Term         string
	Normalized   string
	Count        int64
	LastSeenAt   time.Time
	IsProperName bool
}

// Hashtag aggregates hashtag usage, keyed by canonical form. Display keeps
// the last-seen raw casing.
type Hashtag struct {
	Canonical  string
	Display    string
	UseCount   int64
	LastUsedAt time.Time
}

// UserRelation is the symmetric pairwise affinity row. User1ID < User2ID
// always; Score stays within [0,1].
type UserRelation struct {
	User1ID           string
	User2ID           string
	Score             float64
	LastInteractionAt time.Time
}

// Reference records an AI-detected implicit reference on a post. Immutable
// once created.
type Reference struct {
	ID        string
	PostID    string
	AuthorID  string
	Label     string
	Sentiment string
	Kind      string
	CreatedAt time.Time
}

// ReferenceCandidate is one ranked guess at who a reference points to.
type ReferenceCandidate struct {
	ReferenceID  string
	TargetUserID string
	Confidence   float64
}
