// Package store is the persisted chat log: an append-only sqlite table of
// every chat line the host environment observes. The direct-message core
// treats it as pull-only — it queries recent rows to hydrate a conversation
// when a session is first opened, and never writes. Append exists for the
// host-side transport that populates the log.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/Pox4ever/ChatTwo-sub000/internal/chat"
	"github.com/Pox4ever/ChatTwo-sub000/internal/ident"
)

// CurrentSchemaVersion is the latest schema version. Bump when adding
// migrations.
const CurrentSchemaVersion = 1

// Store wraps the chat-log database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open initializes the log at dir/chatlog.db, creating the schema on first
// use.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "chatlog.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat log: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, log: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS messages (
		  id        TEXT PRIMARY KEY,
		  name_norm TEXT NOT NULL,
		  world     INTEGER NOT NULL,
		  stable_id INTEGER NOT NULL,
		  sender    TEXT NOT NULL,
		  content   TEXT NOT NULL,
		  kind      INTEGER NOT NULL,
		  ts        INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_stable
		ON messages(stable_id, ts DESC)
		WHERE stable_id != 0;

		CREATE INDEX IF NOT EXISTS idx_messages_name
		ON messages(name_norm, world, ts DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}

	return nil
}

// Append records one observed message against the correspondent identity.
// The core never calls this; the host transport does.
func (s *Store) Append(id ident.PlayerIdentity, m chat.Message) error {
	if m.ID == "" {
		m.ID = ulid.Make().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO messages (id, name_norm, world, stable_id, sender, content, kind, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, id.NameKey(), id.World, id.StableID, m.Sender, m.Content, int(m.Kind), m.Time.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// RecentFor returns up to n stored messages for the identity, oldest-first.
// When the identity carries a stable id the id decides alone; otherwise rows
// match by normalized name with a world that is equal or unknown on either
// side, mirroring the identity equality contract.
func (s *Store) RecentFor(id ident.PlayerIdentity, n int) ([]chat.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if id.StableID != 0 {
		rows, err = s.db.Query(
			`SELECT id, sender, content, kind, ts, stable_id FROM messages
			 WHERE stable_id = ? ORDER BY ts DESC LIMIT ?`,
			id.StableID, n,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT id, sender, content, kind, ts, stable_id FROM messages
			 WHERE name_norm = ? AND (world = ? OR world = 0 OR ? = 0)
			 ORDER BY ts DESC LIMIT ?`,
			id.NameKey(), id.World, id.World, n,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var m chat.Message
		var kind int
		var ts int64
		if err := rows.Scan(&m.ID, &m.Sender, &m.Content, &kind, &ts, &m.StableID); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		m.Kind = chat.Kind(kind)
		m.Time = time.UnixMilli(ts)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the query; histories want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
