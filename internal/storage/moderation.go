package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

const insertModerationRecordSQL = `
	INSERT INTO moderation_actions (id, kind, chat_id, user_id, reason, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING
`

// recordFilterSQL matches the three wildcard-able columns of RecordFilter.
const recordFilterSQL = `
	($1::bigint = 0 OR chat_id = $1)
	AND ($2::bigint = 0 OR user_id = $2)
	AND ($3::text = '' OR kind = $3)
`

// AppendWarning writes the warning and its audit record together or not at all.
func (db *DB) AppendWarning(ctx context.Context, warning domain.WarningRecord, record domain.ModerationRecord) error {
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO warnings (user_id, chat_id, reason, created_at)
			VALUES ($1, $2, $3, $4)
		`, warning.UserID, warning.ChatID, toText(warning.Reason), warning.CreatedAt); err != nil {
			return fmt.Errorf("insert warning: %w", err)
		}

		if _, err := tx.Exec(ctx, insertModerationRecordSQL, moderationArgs(record)...); err != nil {
			return fmt.Errorf("insert moderation record: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("append warning: %w", err)
	}

	return nil
}

func (db *DB) AppendModerationRecord(ctx context.Context, record domain.ModerationRecord) error {
	if _, err := db.Pool.Exec(ctx, insertModerationRecordSQL, moderationArgs(record)...); err != nil {
		return fmt.Errorf("append moderation record: %w", err)
	}

	return nil
}

// CountWarnings counts warnings for the chat and user of filter; Kind is ignored.
func (db *DB) CountWarnings(ctx context.Context, filter domain.RecordFilter) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)::int FROM warnings
		WHERE ($1::bigint = 0 OR chat_id = $1)
		AND ($2::bigint = 0 OR user_id = $2)
	`, filter.ChatID, filter.UserID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count warnings: %w", err)
	}

	return count, nil
}

func (db *DB) CountModerationRecords(ctx context.Context, filter domain.RecordFilter) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM moderation_actions WHERE `+recordFilterSQL,
		filter.ChatID, filter.UserID, string(filter.Kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count moderation records: %w", err)
	}

	return count, nil
}

// RecentModerationRecords returns up to limit matching records, newest first.
func (db *DB) RecentModerationRecords(ctx context.Context, filter domain.RecordFilter, limit int) ([]domain.ModerationRecord, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, kind, chat_id, user_id, reason, created_at
		FROM moderation_actions
		WHERE `+recordFilterSQL+`
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, filter.ChatID, filter.UserID, string(filter.Kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query moderation records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ModerationRecord, 0, limit)

	for rows.Next() {
		var (
			id     pgtype.UUID
			kind   string
			userID pgtype.Int8
			reason pgtype.Text
			r      domain.ModerationRecord
		)

		if err := rows.Scan(&id, &kind, &r.ChatID, &userID, &reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation record row: %w", err)
		}

		r.ID = fromUUID(id)
		r.Kind = domain.ActionKind(kind)
		r.UserID = fromInt8(userID)
		r.Reason = fromText(reason)
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation record rows: %w", err)
	}

	return records, nil
}

func moderationArgs(r domain.ModerationRecord) []any {
	return []any{toUUID(r.ID), string(r.Kind), r.ChatID, toInt8(r.UserID), toText(r.Reason), r.CreatedAt}
}
