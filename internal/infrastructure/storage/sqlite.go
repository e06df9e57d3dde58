package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsCurator/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS interests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	last_new_article_at INTEGER,
	discovery_count INTEGER NOT NULL DEFAULT 0,
	avg_discovery_interval_seconds REAL NOT NULL DEFAULT 0 CHECK (avg_discovery_interval_seconds >= 0),
	last_search_attempt_at INTEGER
);

CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS interest_categories (
	interest_id INTEGER NOT NULL,
	category_id INTEGER NOT NULL,
	PRIMARY KEY (interest_id, category_id),
	FOREIGN KEY (interest_id) REFERENCES interests(id) ON DELETE CASCADE,
	FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS articles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	published_at INTEGER,
	thumbnail_url TEXT NOT NULL DEFAULT '',
	fetched_at INTEGER NOT NULL,
	cluster_id TEXT NOT NULL DEFAULT '',
	significance_score REAL NOT NULL DEFAULT 0.5,
	personalization_score REAL NOT NULL DEFAULT 0,
	interest_score REAL NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS topics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS article_topics (
	article_id INTEGER NOT NULL,
	topic_id INTEGER NOT NULL,
	relevance_score REAL NOT NULL CHECK (relevance_score >= 0 AND relevance_score <= 1),
	PRIMARY KEY (article_id, topic_id),
	FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE,
	FOREIGN KEY (topic_id) REFERENCES topics(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS topic_affinities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id INTEGER NOT NULL UNIQUE,
	affinity_score REAL NOT NULL CHECK (affinity_score >= -2 AND affinity_score <= 2),
	interaction_count INTEGER NOT NULL DEFAULT 0,
	last_updated INTEGER NOT NULL,
	FOREIGN KEY (topic_id) REFERENCES topics(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	article_id INTEGER NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('click', 'like', 'dislike')),
	created_at INTEGER NOT NULL,
	FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS briefings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	topics TEXT NOT NULL DEFAULT '[]',
	articles TEXT NOT NULL DEFAULT '[]',
	summary TEXT
);

CREATE TABLE IF NOT EXISTS briefing_articles (
	briefing_id INTEGER NOT NULL,
	article_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (briefing_id, article_id),
	FOREIGN KEY (briefing_id) REFERENCES briefings(id) ON DELETE CASCADE,
	FOREIGN KEY (article_id) REFERENCES articles(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_articles_cluster_id ON articles(cluster_id);
CREATE INDEX IF NOT EXISTS idx_articles_interest_score ON articles(interest_score);
CREATE INDEX IF NOT EXISTS idx_article_topics_topic_id ON article_topics(topic_id);
CREATE INDEX IF NOT EXISTS idx_interactions_article_id ON interactions(article_id);
CREATE INDEX IF NOT EXISTS idx_briefing_articles_article_id ON briefing_articles(article_id);
CREATE INDEX IF NOT EXISTS idx_briefings_created_at ON briefings(created_at);
`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every repository on top of a runner.
type queries struct {
	r runner
}

var _ ports.Repositories = (*queries)(nil)

// Store is the SQLite-backed Discovery Store.
type Store struct {
	*queries
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

// Open creates the database file (and its directory) if needed and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps pragmas and transactions on one SQLite handle.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{queries: &queries{r: db}, db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction, committing only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(tx ports.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&queries{r: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (q *queries) exec(ctx context.Context, b sq.Sqlizer) (sql.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.r.ExecContext(ctx, query, args...)
}

func (q *queries) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.r.QueryContext(ctx, query, args...)
}

func (q *queries) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.r.QueryRowContext(ctx, query, args...), nil
}

// Timestamps are stored as unix milliseconds; NULL means unset.
func toMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
