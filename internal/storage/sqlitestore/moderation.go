package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

const recordFilterSQL = `
	(? = 0 OR chat_id = ?)
	AND (? = 0 OR user_id = ?)
	AND (? = '' OR kind = ?)
`

func filterArgs(f domain.RecordFilter) []any {
	return []any{f.ChatID, f.ChatID, f.UserID, f.UserID, string(f.Kind), string(f.Kind)}
}

// AppendWarning writes the warning and its audit record in one transaction.
func (s *Store) AppendWarning(ctx context.Context, warning domain.WarningRecord, record domain.ModerationRecord) error {
	return s.inTx(ctx, "append warning", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO warnings (user_id, chat_id, reason, created_at) VALUES (?, ?, ?, ?)
		`, warning.UserID, warning.ChatID, warning.Reason, warning.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}

		return insertRecord(ctx, tx, record)
	})
}

func (s *Store) AppendModerationRecord(ctx context.Context, record domain.ModerationRecord) error {
	return s.inTx(ctx, "append moderation record", func(tx *sql.Tx) error {
		return insertRecord(ctx, tx, record)
	})
}

func insertRecord(ctx context.Context, tx *sql.Tx, r domain.ModerationRecord) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO moderation_actions (id, kind, chat_id, user_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, string(r.Kind), r.ChatID, r.UserID, r.Reason, r.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert moderation record: %w", err)
	}

	return nil
}

func (s *Store) CountWarnings(ctx context.Context, filter domain.RecordFilter) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM warnings
		WHERE (? = 0 OR chat_id = ?) AND (? = 0 OR user_id = ?)
	`, filter.ChatID, filter.ChatID, filter.UserID, filter.UserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}

	return count, nil
}

func (s *Store) CountModerationRecords(ctx context.Context, filter domain.RecordFilter) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moderation_actions WHERE `+recordFilterSQL,
		filterArgs(filter)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count moderation records: %w", err)
	}

	return count, nil
}

// RecentModerationRecords returns up to limit matching records, newest first.
func (s *Store) RecentModerationRecords(ctx context.Context, filter domain.RecordFilter, limit int) ([]domain.ModerationRecord, error) {
	args := append(filterArgs(filter), limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, chat_id, user_id, reason, created_at
		FROM moderation_actions
		WHERE `+recordFilterSQL+`
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query moderation records: %w", err)
	}
	defer rows.Close()

	var records []domain.ModerationRecord

	for rows.Next() {
		var (
			r         domain.ModerationRecord
			kind      string
			createdAt int64
		)

		if err := rows.Scan(&r.ID, &kind, &r.ChatID, &r.UserID, &r.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan moderation record row: %w", err)
		}

		r.Kind = domain.ActionKind(kind)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation record rows: %w", err)
	}

	return records, nil
}
