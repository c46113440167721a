// Package store persists completed relay sessions for later audit.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/a2alab/relay/internal/domain"
)

// SQLiteStore archives terminal sessions and their transcripts using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the archive at the given DSN.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS relays (
			session_id TEXT PRIMARY KEY,
			initiator TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			hops INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relays_started ON relays(started_at)`,
		`CREATE TABLE IF NOT EXISTS relay_entries (
			entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			ts DATETIME NOT NULL,
			origin TEXT NOT NULL,
			destination TEXT,
			kind TEXT NOT NULL,
			role TEXT,
			text TEXT NOT NULL,
			payload TEXT,
			relayed INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (session_id) REFERENCES relays(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relay_entries_session ON relay_entries(session_id, entry_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ArchiveSession writes a terminal session and its transcript in one
// transaction. Entry order is preserved by insertion order.
func (s *SQLiteStore) ArchiveSession(ctx context.Context, sess *domain.ConversationSession, entries []domain.TranscriptEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var endedAt sql.NullTime
	if sess.EndedAt != nil {
		endedAt = sql.NullTime{Time: *sess.EndedAt, Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO relays (session_id, initiator, status, reason, hops, started_at, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.SessionID, sess.Initiator, sess.Status, nullString(string(sess.Reason)), sess.Hops, sess.StartedAt, endedAt)
	if err != nil {
		return err
	}

	for _, e := range entries {
		payload := ""
		if e.Event.Raw != nil {
			payload = string(e.Event.Raw)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO relay_entries (session_id, ts, origin, destination, kind, role, text, payload, relayed) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.SessionID, e.Ts, e.Origin, nullString(e.Destination), e.Kind, nullString(e.Role), e.Text, nullString(payload), e.Relayed)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSession retrieves an archived session by ID. Returns nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.ConversationSession, error) {
	var sess domain.ConversationSession
	var reason sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, initiator, status, reason, hops, started_at, ended_at FROM relays WHERE session_id = ?`,
		sessionID).Scan(&sess.SessionID, &sess.Initiator, &sess.Status, &reason, &sess.Hops, &sess.StartedAt, &endedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		sess.Reason = domain.TerminalReason(reason.String)
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	return &sess, nil
}

// ListSessions returns archived sessions ordered by start time.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.ConversationSession, error) {
	query := `SELECT session_id, initiator, status, reason, hops, started_at, ended_at FROM relays ORDER BY started_at ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ConversationSession
	for rows.Next() {
		var sess domain.ConversationSession
		var reason sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.SessionID, &sess.Initiator, &sess.Status, &reason, &sess.Hops, &sess.StartedAt, &endedAt); err != nil {
			return nil, err
		}
		if reason.Valid {
			sess.Reason = domain.TerminalReason(reason.String)
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetEntries retrieves archived transcript entries for a session, in
// observation order, optionally filtered by kind.
func (s *SQLiteStore) GetEntries(ctx context.Context, sessionID string, kinds []string, limit int) ([]domain.TranscriptEntry, error) {
	query := `SELECT ts, origin, destination, kind, role, text, payload, relayed FROM relay_entries WHERE session_id = ?`
	args := []interface{}{sessionID}

	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, k)
		}
		query += fmt.Sprintf(" AND kind IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY entry_id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TranscriptEntry
	for rows.Next() {
		var e domain.TranscriptEntry
		var ts time.Time
		var destination, role, payload sql.NullString
		if err := rows.Scan(&ts, &e.Origin, &destination, &e.Kind, &role, &e.Text, &payload, &e.Relayed); err != nil {
			return nil, err
		}
		e.Ts = ts
		if destination.Valid {
			e.Destination = destination.String
		}
		if role.Valid {
			e.Role = role.String
		}
		e.Event = domain.ProtocolEvent{Kind: e.Kind}
		if payload.Valid && payload.String != "" {
			e.Event.Raw = []byte(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
