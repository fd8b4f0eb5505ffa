package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/macanudo/pulso/pkg/pulso/store"
)

// sqliteStore implements store.Store on SQLite. Every Bump* statement is a
// single ON CONFLICT upsert, which is what makes per-key increments atomic
// without any locking in the engine.
type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite signals database with WAL mode
// enabled.
func Open(ctx context.Context, path string) (store.Store, error) {
	// Pragmas go in the DSN so they apply to every connection in the
	// database/sql pool, not just the one an Exec happens to grab.
	// Enable WAL mode for better concurrency; concurrent upserts from the
	// stat fan-out hit separate pool connections, so wait on the writer
	// lock instead of failing busy.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS term_global (
	normalized TEXT PRIMARY KEY,
	term TEXT NOT NULL,
	total_count INTEGER NOT NULL,
	first_seen_at TEXT NOT NULL,
	last_seen_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS term_topic (
	normalized TEXT NOT NULL,
	tag TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(normalized, tag)
);

CREATE TABLE IF NOT EXISTS user_terms (
	user_id TEXT NOT NULL,
	normalized TEXT NOT NULL,
	term TEXT NOT NULL,
	count INTEGER NOT NULL,
	last_seen_at TEXT NOT NULL,
	is_proper_name INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(user_id, normalized)
);

CREATE TABLE IF NOT EXISTS hashtags (
	canonical TEXT PRIMARY KEY,
	display TEXT NOT NULL,
	use_count INTEGER NOT NULL,
	last_used_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS relations (
	user1_id TEXT NOT NULL,
	user2_id TEXT NOT NULL,
	score REAL NOT NULL,
	last_interaction_at TEXT NOT NULL,
	PRIMARY KEY(user1_id, user2_id)
);

CREATE TABLE IF NOT EXISTS reactions (
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY(post_id, user_id)
);

CREATE TABLE IF NOT EXISTS ambiguous_references (
	id TEXT PRIMARY KEY,
	post_id TEXT UNIQUE NOT NULL,
	author_id TEXT NOT NULL,
	label TEXT NOT NULL,
	sentiment TEXT NOT NULL,
	kind TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reference_candidates (
	reference_id TEXT NOT NULL,
	target_user_id TEXT NOT NULL,
	confidence REAL NOT NULL,
	PRIMARY KEY(reference_id, target_user_id),
	FOREIGN KEY(reference_id) REFERENCES ambiguous_references(id) ON DELETE CASCADE
);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// BumpGlobalTerm upserts one global term stat. The display form and
// first_seen_at are fixed at creation; only the count and last_seen_at move
// on conflict.
func (s *sqliteStore) BumpGlobalTerm(ctx context.Context, obs store.TermObservation, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO term_global (normalized, term, total_count, first_seen_at, last_seen_at)
VALUES (?, ?, 1, ?, ?)
ON CONFLICT(normalized) DO UPDATE SET
	total_count = total_count + 1,
	last_seen_at = excluded.last_seen_at;
`, obs.Normalized, obs.Term, fmtTime(now), fmtTime(now))
	return err
}

// GetGlobalTerm retrieves one global term stat by normalized key.
func (s *sqliteStore) GetGlobalTerm(ctx context.Context, normalized string) (store.TermGlobalStat, bool, error) {
	var (
		stat  store.TermGlobalStat
		first string
		last  string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT normalized, term, total_count, first_seen_at, last_seen_at
FROM term_global
WHERE normalized = ?;
`, normalized).Scan(&stat.Normalized, &stat.Term, &stat.TotalCount, &first, &last)
	if err == sql.ErrNoRows {
		return store.TermGlobalStat{}, false, nil
	}
	if err != nil {
		return store.TermGlobalStat{}, false, err
	}
	stat.FirstSeenAt = parseTime(first)
	stat.LastSeenAt = parseTime(last)
	return stat, true, nil
}

// TopGlobalTerms returns global stats ordered by total count descending.
func (s *sqliteStore) TopGlobalTerms(ctx context.Context, limit int) ([]store.TermGlobalStat, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT normalized, term, total_count, first_seen_at, last_seen_at
FROM term_global
ORDER BY total_count DESC, normalized ASC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []store.TermGlobalStat
	for rows.Next() {
		var (
			stat  store.TermGlobalStat
			first string
			last  string
		)
		if err := rows.Scan(&stat.Normalized, &stat.Term, &stat.TotalCount, &first, &last); err != nil {
			return nil, err
		}
		stat.FirstSeenAt = parseTime(first)
		stat.LastSeenAt = parseTime(last)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// BumpTopicTerm upserts one term–topic co-occurrence count.
func (s *sqliteStore) BumpTopicTerm(ctx context.Context, normalized, tag string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO term_topic (normalized, tag, count) VALUES (?, ?, 1)
ON CONFLICT(normalized, tag) DO UPDATE SET count = count + 1;
`, normalized, tag)
	return err
}

// TopTopicTerms returns term stats for a tag, count descending.
func (s *sqliteStore) TopTopicTerms(ctx context.Context, tag string, limit int) ([]store.TermTopicStat, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT normalized, tag, count
FROM term_topic
WHERE tag = ?
ORDER BY count DESC, normalized ASC
LIMIT ?;
`, tag, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []store.TermTopicStat
	for rows.Next() {
		var stat store.TermTopicStat
		if err := rows.Scan(&stat.Normalized, &stat.Tag, &stat.Count); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// BumpUserTerm upserts one per-user term stat. is_proper_name is ORed so it
// never goes back to false once set.
func (s *sqliteStore) BumpUserTerm(ctx context.Context, userID string, obs store.TermObservation, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO user_terms (user_id, normalized, term, count, last_seen_at, is_proper_name)
VALUES (?, ?, ?, 1, ?, ?)
ON CONFLICT(user_id, normalized) DO UPDATE SET
	count = count + 1,
	last_seen_at = excluded.last_seen_at,
	is_proper_name = MAX(is_proper_name, excluded.is_proper_name);
`, userID, obs.Normalized, obs.Term, fmtTime(now), boolToInt(obs.IsProperName))
	return err
}

// TopUserTerms returns a user's term stats, count descending.
func (s *sqliteStore) TopUserTerms(ctx context.Context, userID string, limit int) ([]store.UserTermStat, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, normalized, term, count, last_seen_at, is_proper_name
FROM user_terms
WHERE user_id = ?
ORDER BY count DESC, normalized ASC
LIMIT ?;
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []store.UserTermStat
	for rows.Next() {
		var (
			stat   store.UserTermStat
			last   string
			proper int
		)
		if err := rows.Scan(&stat.UserID, &stat.Normalized, &stat.Term, &stat.Count, &last, &proper); err != nil {
			return nil, err
		}
		stat.LastSeenAt = parseTime(last)
		stat.IsProperName = proper != 0
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// BumpHashtag upserts one hashtag use. Display always takes the latest raw
// casing.
func (s *sqliteStore) BumpHashtag(ctx context.Context, display, canonical string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO hashtags (canonical, display, use_count, last_used_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(canonical) DO UPDATE SET
	display = excluded.display,
	use_count = use_count + 1,
	last_used_at = excluded.last_used_at;
`, canonical, display, fmtTime(now))
	return err
}

// TrendingHashtags returns hashtags by use count descending, most recently
// used first among ties.
func (s *sqliteStore) TrendingHashtags(ctx context.Context, limit int) ([]store.Hashtag, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT canonical, display, use_count, last_used_at
FROM hashtags
ORDER BY use_count DESC, last_used_at DESC
LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []store.Hashtag
	for rows.Next() {
		var (
			tag  store.Hashtag
			used string
		)
		if err := rows.Scan(&tag.Canonical, &tag.Display, &tag.UseCount, &used); err != nil {
			return nil, err
		}
		tag.LastUsedAt = parseTime(used)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// GetRelation returns the relation row for a canonically ordered pair.
func (s *sqliteStore) GetRelation(ctx context.Context, user1ID, user2ID string) (store.UserRelation, bool, error) {
	var (
		rel  store.UserRelation
		last string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user1_id, user2_id, score, last_interaction_at
FROM relations
WHERE user1_id = ? AND user2_id = ?;
`, user1ID, user2ID).Scan(&rel.User1ID, &rel.User2ID, &rel.Score, &last)
	if err == sql.ErrNoRows {
		return store.UserRelation{}, false, nil
	}
	if err != nil {
		return store.UserRelation{}, false, err
	}
	rel.LastInteractionAt = parseTime(last)
	return rel, true, nil
}

// PutRelation writes a relation row whole.
func (s *sqliteStore) PutRelation(ctx context.Context, rel store.UserRelation) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO relations (user1_id, user2_id, score, last_interaction_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user1_id, user2_id) DO UPDATE SET
	score = excluded.score,
	last_interaction_at = excluded.last_interaction_at;
`, rel.User1ID, rel.User2ID, rel.Score, fmtTime(rel.LastInteractionAt))
	return err
}

// RelationsForUser returns the rows involving userID, score descending.
func (s *sqliteStore) RelationsForUser(ctx context.Context, userID string, limit int) ([]store.UserRelation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT user1_id, user2_id, score, last_interaction_at
FROM relations
WHERE user1_id = ? OR user2_id = ?
ORDER BY score DESC
LIMIT ?;
`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rels []store.UserRelation
	for rows.Next() {
		var (
			rel  store.UserRelation
			last string
		)
		if err := rows.Scan(&rel.User1ID, &rel.User2ID, &rel.Score, &last); err != nil {
			return nil, err
		}
		rel.LastInteractionAt = parseTime(last)
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// AddReaction records that userID reacted to postID. Re-reacting is a no-op.
func (s *sqliteStore) AddReaction(ctx context.Context, postID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO reactions (post_id, user_id) VALUES (?, ?);
`, postID, userID)
	return err
}

// ReactorIDs returns the distinct users who reacted to a post.
func (s *sqliteStore) ReactorIDs(ctx context.Context, postID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM reactions WHERE post_id = ?`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// InsertReference stores a new reference row.
func (s *sqliteStore) InsertReference(ctx context.Context, ref store.Reference) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ambiguous_references (id, post_id, author_id, label, sentiment, kind, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`, ref.ID, ref.PostID, ref.AuthorID, ref.Label, ref.Sentiment, ref.Kind, fmtTime(ref.CreatedAt))
	return err
}

// ReferenceByPost returns the reference created for a post, if any.
func (s *sqliteStore) ReferenceByPost(ctx context.Context, postID string) (store.Reference, bool, error) {
	var (
		ref     store.Reference
		created string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, post_id, author_id, label, sentiment, kind, created_at
FROM ambiguous_references
WHERE post_id = ?;
`, postID).Scan(&ref.ID, &ref.PostID, &ref.AuthorID, &ref.Label, &ref.Sentiment, &ref.Kind, &created)
	if err == sql.ErrNoRows {
		return store.Reference{}, false, nil
	}
	if err != nil {
		return store.Reference{}, false, err
	}
	ref.CreatedAt = parseTime(created)
	return ref, true, nil
}

// InsertCandidate stores one candidate row.
func (s *sqliteStore) InsertCandidate(ctx context.Context, c store.ReferenceCandidate) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO reference_candidates (reference_id, target_user_id, confidence)
VALUES (?, ?, ?);
`, c.ReferenceID, c.TargetUserID, c.Confidence)
	return err
}

// CandidatesForReference returns candidates ordered by confidence descending.
func (s *sqliteStore) CandidatesForReference(ctx context.Context, referenceID string) ([]store.ReferenceCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT reference_id, target_user_id, confidence
FROM reference_candidates
WHERE reference_id = ?
ORDER BY confidence DESC;
`, referenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []store.ReferenceCandidate
	for rows.Next() {
		var c store.ReferenceCandidate
		if err := rows.Scan(&c.ReferenceID, &c.TargetUserID, &c.Confidence); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
