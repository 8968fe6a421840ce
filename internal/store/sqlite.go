package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"centercal/internal/logger"
	"centercal/internal/model"
)

// Timestamps are stored as RFC 3339 text so ordering works with plain
// string comparison in SQLite.
const tsLayout = time.RFC3339

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	start_ts   TEXT NOT NULL,
	end_ts     TEXT NOT NULL,
	venue      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_ts);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and bootstraps the
// schema. Use ":memory:" for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("db path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info("sqlite store opened", "path", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert stores a new event. The store assigns the id and creation time,
// matching the collaborator contract of the admin form.
func (s *SQLiteStore) Insert(ctx context.Context, ev *model.Event) error {
	ev.ID = uuid.NewString()
	ev.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO events (id, title, start_ts, end_ts, venue, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ev.ID,
		ev.Title,
		ev.Start.UTC().Format(tsLayout),
		ev.End.UTC().Format(tsLayout),
		ev.Venue,
		ev.CreatedAt.Format(tsLayout),
	)
	if err != nil {
		logger.Error("insert event failed", err, "event_id", ev.ID)
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID retrieves an event by its id.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (model.Event, error) {
	const query = `
		SELECT id, title, start_ts, end_ts, venue, created_at
		FROM events
		WHERE id = ?
	`
	row := s.db.QueryRowContext(ctx, query, id)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, ErrNotFound
		}
		logger.Error("get event failed", err, "event_id", id)
		return model.Event{}, err
	}
	return ev, nil
}

// ListUpcoming returns events starting at or after from, ascending by start.
func (s *SQLiteStore) ListUpcoming(ctx context.Context, from time.Time) ([]model.Event, error) {
	const query = `
		SELECT id, title, start_ts, end_ts, venue, created_at
		FROM events
		WHERE start_ts >= ?
		ORDER BY start_ts ASC
	`
	return s.queryEvents(ctx, query, from.UTC().Format(tsLayout))
}

// ListBetween returns events with start in [from, to), ascending by start.
func (s *SQLiteStore) ListBetween(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	const query = `
		SELECT id, title, start_ts, end_ts, venue, created_at
		FROM events
		WHERE start_ts >= ? AND start_ts < ?
		ORDER BY start_ts ASC
	`
	return s.queryEvents(ctx, query, from.UTC().Format(tsLayout), to.UTC().Format(tsLayout))
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("list events failed", err)
		return nil, err
	}
	defer rows.Close()

	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			logger.Error("scan event failed", err)
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev                     model.Event
		startS, endS, createdS string
	)
	if err := row.Scan(&ev.ID, &ev.Title, &startS, &endS, &ev.Venue, &createdS); err != nil {
		return model.Event{}, err
	}

	var err error
	if ev.Start, err = time.Parse(tsLayout, startS); err != nil {
		return model.Event{}, fmt.Errorf("parse start_ts: %w", err)
	}
	if ev.End, err = time.Parse(tsLayout, endS); err != nil {
		return model.Event{}, fmt.Errorf("parse end_ts: %w", err)
	}
	if ev.CreatedAt, err = time.Parse(tsLayout, createdS); err != nil {
		return model.Event{}, fmt.Errorf("parse created_at: %w", err)
	}
	return ev, nil
}
