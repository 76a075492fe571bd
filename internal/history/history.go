// Package history keeps a log of resolution attempts in a local SQLite
// database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Outcomes recorded for an attempt.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeBlacklisted = "blacklisted"
	OutcomeCached      = "cached"
)

const schema = `
CREATE TABLE IF NOT EXISTS resolutions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id     TEXT    NOT NULL,
	embed_url   TEXT    NOT NULL DEFAULT '',
	server      TEXT    NOT NULL DEFAULT '',
	extractor   TEXT    NOT NULL DEFAULT '',
	links       INTEGER NOT NULL DEFAULT 0,
	subtitles   INTEGER NOT NULL DEFAULT 0,
	outcome     TEXT    NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS resolutions_created_at ON resolutions(created_at);
`

// Entry is one resolution attempt.
type Entry struct {
	ID        int64         `json:"id"`
	PageID    string        `json:"page_id"`
	EmbedURL  string        `json:"embed_url"`
	Server    string        `json:"server,omitempty"`
	Extractor string        `json:"extractor"`
	Links     int           `json:"links"`
	Subtitles int           `json:"subtitles"`
	Outcome   string        `json:"outcome"`
	Duration  time.Duration `json:"duration_ns"`
	At        time.Time     `json:"at"`
}

// Store is the resolution log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// SQLite allows one writer; share a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry. A zero At is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolutions (page_id, embed_url, server, extractor, links, subtitles, outcome, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.PageID, e.EmbedURL, e.Server, e.Extractor, e.Links, e.Subtitles, e.Outcome,
		e.Duration.Milliseconds(), e.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording resolution: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, embed_url, server, extractor, links, subtitles, outcome, duration_ms, created_at
		 FROM resolutions ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durMS, atMS int64
		if err := rows.Scan(&e.ID, &e.PageID, &e.EmbedURL, &e.Server, &e.Extractor,
			&e.Links, &e.Subtitles, &e.Outcome, &durMS, &atMS); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		e.Duration = time.Duration(durMS) * time.Millisecond
		e.At = time.UnixMilli(atMS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than cutoff and reports how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resolutions WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}

// FormatForDisplay creates one line per entry for terminal output.
func FormatForDisplay(entries []Entry) []string {
	var items []string
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-12s %-8s %d links, %d subs  (%s)",
			e.At.Format("2006-01-02 15:04"), e.PageID, e.Outcome, e.Links, e.Subtitles,
			e.Duration.Round(time.Millisecond))
		if e.Server != "" {
			line += "  " + e.Server
		}
		items = append(items, line)
	}
	return items
}
