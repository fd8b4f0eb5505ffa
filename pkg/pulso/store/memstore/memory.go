package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/macanudo/pulso/pkg/pulso/store"
)

// Store is an in-memory implementation of store.Store for tests, examples
// and single-process tooling.
type Store struct {
	mu          sync.RWMutex
	globalTerms map[string]store.TermGlobalStat
	topicTerms  map[topicKey]store.TermTopicStat
	userTerms   map[userTermKey]store.UserTermStat
	hashtags    map[string]store.Hashtag
	relations   map[pairKey]store.UserRelation
	reactions   map[string][]string // postID → reactor user ids, insertion order
	reactionSet map[reactionKey]struct{}
	references  map[string]store.Reference // by reference id
	refByPost   map[string]string          // postID → reference id
	candidates  map[string][]store.ReferenceCandidate
}

type topicKey struct{ Normalized, Tag string }
type userTermKey struct{ UserID, Normalized string }
type pairKey struct{ User1ID, User2ID string }
type reactionKey struct{ PostID, UserID string }

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		globalTerms: make(map[string]store.TermGlobalStat),
		topicTerms:  make(map[topicKey]store.TermTopicStat),
		userTerms:   make(map[userTermKey]store.UserTermStat),
		hashtags:    make(map[string]store.Hashtag),
		relations:   make(map[pairKey]store.UserRelation),
		reactions:   make(map[string][]string),
		reactionSet: make(map[reactionKey]struct{}),
		references:  make(map[string]store.Reference),
		refByPost:   make(map[string]string),
		candidates:  make(map[string][]store.ReferenceCandidate),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// BumpGlobalTerm upserts a global term stat: +1 count, bump lastSeenAt,
// firstSeenAt and display form only on creation.
func (s *Store) BumpGlobalTerm(ctx context.Context, obs store.TermObservation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stat, ok := s.globalTerms[obs.Normalized]
	if !ok {
		stat = store.TermGlobalStat{
			Term:        obs.Term,
			Normalized:  obs.Normalized,
			FirstSeenAt: now,
		}
	}
	stat.TotalCount++
	stat.LastSeenAt = now
	s.globalTerms[obs.Normalized] = stat
	return nil
}

// GetGlobalTerm returns the global stat for a normalized key.
func (s *Store) GetGlobalTerm(ctx context.Context, normalized string) (store.TermGlobalStat, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stat, ok := s.globalTerms[normalized]
	return stat, ok, nil
}

// TopGlobalTerms returns global stats ordered by total count descending.
func (s *Store) TopGlobalTerms(ctx context.Context, limit int) ([]store.TermGlobalStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]store.TermGlobalStat, 0, len(s.globalTerms))
	for _, stat := range s.globalTerms {
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalCount != stats[j].TotalCount {
			return stats[i].TotalCount > stats[j].TotalCount
		}
		return stats[i].Normalized < stats[j].Normalized
	})
	return clip(stats, limit), nil
}

// BumpTopicTerm upserts a term–topic co-occurrence count.
func (s *Store) BumpTopicTerm(ctx context.Context, normalized, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := topicKey{Normalized: normalized, Tag: tag}
	stat, ok := s.topicTerms[key]
	if !ok {
		stat = store.TermTopicStat{Normalized: normalized, Tag: tag}
	}
	stat.Count++
	s.topicTerms[key] = stat
	return nil
}

// TopTopicTerms returns the top term stats for a tag, count descending.
func (s *Store) TopTopicTerms(ctx context.Context, tag string, limit int) ([]store.TermTopicStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats []store.TermTopicStat
	for key, stat := range s.topicTerms {
		if key.Tag == tag {
			stats = append(stats, stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Normalized < stats[j].Normalized
	})
	return clipTopic(stats, limit), nil
}

// BumpUserTerm upserts a per-user term stat. IsProperName is ORed in.
func (s *Store) BumpUserTerm(ctx context.Context, userID string, obs store.TermObservation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userTermKey{UserID: userID, Normalized: obs.Normalized}
	stat, ok := s.userTerms[key]
	if !ok {
		stat = store.UserTermStat{
			UserID:     userID,
			Term:       obs.Term,
			Normalized: obs.Normalized,
		}
	}
	stat.Count++
	stat.LastSeenAt = now
	stat.IsProperName = stat.IsProperName || obs.IsProperName
	s.userTerms[key] = stat
	return nil
}

// TopUserTerms returns a user's term stats, count descending.
func (s *Store) TopUserTerms(ctx context.Context, userID string, limit int) ([]store.UserTermStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats []store.UserTermStat
	for key, stat := range s.userTerms {
		if key.UserID == userID {
			stats = append(stats, stat)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Normalized < stats[j].Normalized
	})
	return clipUser(stats, limit), nil
}

// BumpHashtag upserts a hashtag: +1 use count, display takes the latest raw
// casing, lastUsedAt bumps.
func (s *Store) BumpHashtag(ctx context.Context, display, canonical string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.hashtags[canonical]
	if !ok {
		tag = store.Hashtag{Canonical: canonical}
	}
	tag.Display = display
	tag.UseCount++
	tag.LastUsedAt = now
	s.hashtags[canonical] = tag
	return nil
}

// TrendingHashtags returns hashtags by use count descending, most recently
// used first among ties.
func (s *Store) TrendingHashtags(ctx context.Context, limit int) ([]store.Hashtag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]store.Hashtag, 0, len(s.hashtags))
	for _, tag := range s.hashtags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].UseCount != tags[j].UseCount {
			return tags[i].UseCount > tags[j].UseCount
		}
		return tags[i].LastUsedAt.After(tags[j].LastUsedAt)
	})
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

// GetRelation returns the relation row for a canonically ordered pair.
func (s *Store) GetRelation(ctx context.Context, user1ID, user2ID string) (store.UserRelation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rel, ok := s.relations[pairKey{User1ID: user1ID, User2ID: user2ID}]
	return rel, ok, nil
}

// PutRelation writes a relation row whole.
func (s *Store) PutRelation(ctx context.Context, rel store.UserRelation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.relations[pairKey{User1ID: rel.User1ID, User2ID: rel.User2ID}] = rel
	return nil
}

// RelationsForUser returns the rows involving userID, score descending.
func (s *Store) RelationsForUser(ctx context.Context, userID string, limit int) ([]store.UserRelation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rels []store.UserRelation
	for key, rel := range s.relations {
		if key.User1ID == userID || key.User2ID == userID {
			rels = append(rels, rel)
		}
	}
	sort.Slice(rels, func(i, j int) bool {
		return rels[i].Score > rels[j].Score
	})
	if limit > 0 && len(rels) > limit {
		rels = rels[:limit]
	}
	return rels, nil
}

// AddReaction records that userID reacted to postID. Duplicate reactions
// are ignored.
func (s *Store) AddReaction(ctx context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{PostID: postID, UserID: userID}
	if _, ok := s.reactionSet[key]; ok {
		return nil
	}
	s.reactionSet[key] = struct{}{}
	s.reactions[postID] = append(s.reactions[postID], userID)
	return nil
}

// ReactorIDs returns the distinct users who reacted to a post.
func (s *Store) ReactorIDs(ctx context.Context, postID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.reactions[postID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}

// InsertReference stores a new reference row.
func (s *Store) InsertReference(ctx context.Context, ref store.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.references[ref.ID] = ref
	s.refByPost[ref.PostID] = ref.ID
	return nil
}

// ReferenceByPost returns the reference created for a post, if any.
func (s *Store) ReferenceByPost(ctx context.Context, postID string) (store.Reference, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.refByPost[postID]
	if !ok {
		return store.Reference{}, false, nil
	}
	ref, ok := s.references[id]
	return ref, ok, nil
}

// InsertCandidate stores one candidate row.
func (s *Store) InsertCandidate(ctx context.Context, c store.ReferenceCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates[c.ReferenceID] = append(s.candidates[c.ReferenceID], c)
	return nil
}

// CandidatesForReference returns candidates ordered by confidence descending.
func (s *Store) CandidatesForReference(ctx context.Context, referenceID string) ([]store.ReferenceCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.candidates[referenceID]
	out := make([]store.ReferenceCandidate, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out, nil
}

func clip(stats []store.TermGlobalStat, limit int) []store.TermGlobalStat {
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

func clipTopic(stats []store.TermTopicStat, limit int) []store.TermTopicStat {
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

func clipUser(stats []store.UserTermStat, limit int) []store.UserTermStat {
	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}
