// Package sqlitestore is a single-file SQLite backend for local runs and tests.
// It implements the same ports as the PostgreSQL store.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS buffered_messages (
		id TEXT PRIMARY KEY,
		chat_id INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		author_id INTEGER NOT NULL,
		author_name TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		has_attachment INTEGER NOT NULL DEFAULT 0,
		is_forward INTEGER NOT NULL DEFAULT 0,
		is_join INTEGER NOT NULL DEFAULT 0,
		received_at INTEGER NOT NULL,
		seq INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buffered_messages_chat_received ON buffered_messages(chat_id, received_at)`,
	`CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		chat_id INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_warnings_user_chat ON warnings(user_id, chat_id)`,
	`CREATE TABLE IF NOT EXISTS moderation_actions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		kind TEXT NOT NULL,
		chat_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_moderation_actions_key ON moderation_actions(chat_id, user_id, kind, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_moderation_actions_user ON moderation_actions(user_id, created_at)`,
}

var _ ports.Store = (*Store)(nil)

type Store struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// Open creates the database file if needed and applies the schema.
func Open(ctx context.Context, path string, logger *zerolog.Logger) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	// Files created before buffered messages carried their sequence.
	if err := addColumnIfMissing(ctx, db, "buffered_messages", "seq", "INTEGER NOT NULL DEFAULT 0"); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_buffered_messages_seq ON buffered_messages(seq)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("sqlite store initialized")

	return &Store{db: db, logger: logger}, nil
}

func addColumnIfMissing(ctx context.Context, db *sql.DB, table, column, definition string) error {
	var n int

	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	if n > 0 {
		return nil
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

func (s *Store) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("close sqlite store")
	}
}

// InsertBufferedMessages writes messages in one transaction, ignoring ids already stored.
func (s *Store) InsertBufferedMessages(ctx context.Context, msgs []domain.BufferedMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	return s.inTx(ctx, "insert buffered messages", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO buffered_messages (
				id, chat_id, message_id, author_id, author_name, text,
				has_attachment, is_forward, is_join, received_at, seq
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range msgs {
			if _, err := stmt.ExecContext(ctx, m.PersistenceID, m.ChatID, m.MessageID, m.AuthorID, m.AuthorName,
				m.Text, m.HasAttachment, m.IsForward, m.IsJoin, m.ReceivedAt.UnixNano(), m.Seq); err != nil {
				return fmt.Errorf("insert %s: %w", m.PersistenceID, err)
			}
		}

		return nil
	})
}

func (s *Store) DeleteBufferedMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	return s.inTx(ctx, "delete buffered messages", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `DELETE FROM buffered_messages WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.ExecContext(ctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}

		return nil
	})
}

// LoadBufferedMessages returns every persisted message in append order.
func (s *Store) LoadBufferedMessages(ctx context.Context) ([]domain.BufferedMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, author_id, author_name, text,
			has_attachment, is_forward, is_join, received_at, seq
		FROM buffered_messages
		ORDER BY seq, received_at, message_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query buffered messages: %w", err)
	}
	defer rows.Close()

	var out []domain.BufferedMessage

	for rows.Next() {
		var (
			m          domain.BufferedMessage
			receivedAt int64
		)

		if err := rows.Scan(&m.PersistenceID, &m.ChatID, &m.MessageID, &m.AuthorID, &m.AuthorName, &m.Text,
			&m.HasAttachment, &m.IsForward, &m.IsJoin, &receivedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan buffered message row: %w", err)
		}

		m.ReceivedAt = time.Unix(0, receivedAt).UTC()
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buffered message rows: %w", err)
	}

	return out, nil
}

func (s *Store) DeleteBufferedMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM buffered_messages WHERE received_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired buffered messages: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}
