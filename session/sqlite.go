package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ckwame-jpg/portfolio/clock"
)

// SQLiteStore keeps flags in the site database.
type SQLiteStore struct {
	db    *sql.DB
	ttl   time.Duration
	clock clock.Clock
}

// NewSQLiteStore wraps db, creating the sessions table if needed.
func NewSQLiteStore(db *sql.DB, clk clock.Clock) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, ttl: DefaultTTL, clock: clk}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate intro_sessions: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.ExecContext(context.Background(), `
	CREATE TABLE IF NOT EXISTS intro_sessions (
		session_id TEXT PRIMARY KEY,
		played_at DATETIME NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) IntroPlayed(ctx context.Context, id string) (bool, error) {
	var playedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT played_at FROM intro_sessions WHERE session_id = ?`, id,
	).Scan(&playedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query intro session: %w", err)
	}
	return s.clock.Now().Sub(playedAt) <= s.ttl, nil
}

func (s *SQLiteStore) MarkIntroPlayed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO intro_sessions (session_id, played_at) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET played_at = excluded.played_at
	`, id, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark intro session: %w", err)
	}
	return nil
}

// Cleanup removes flags older than the store's TTL.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM intro_sessions WHERE played_at < ?`, s.clock.Now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close is a no-op: the database belongs to the caller.
func (s *SQLiteStore) Close() error { return nil }
