package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// InsertBufferedMessages writes messages in batches inside one transaction.
// Rows already present are left untouched, so a retried flush is harmless.
func (db *DB) InsertBufferedMessages(ctx context.Context, msgs []domain.BufferedMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for start := 0; start < len(msgs); start += insertBatchSize {
			end := min(start+insertBatchSize, len(msgs))

			batch := &pgx.Batch{}

			for _, m := range msgs[start:end] {
				batch.Queue(`
					INSERT INTO buffered_messages (
						id, chat_id, message_id, author_id, author_name, text,
						has_attachment, is_forward, is_join, received_at, seq
					)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
					ON CONFLICT (id) DO NOTHING
				`, toUUID(m.PersistenceID), m.ChatID, m.MessageID, m.AuthorID, toText(m.AuthorName),
					SanitizeUTF8(m.Text), m.HasAttachment, m.IsForward, m.IsJoin, m.ReceivedAt, m.Seq)
			}

			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("send batch: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("insert buffered messages: %w", err)
	}

	return nil
}

// DeleteBufferedMessages removes messages by persistence id.
func (db *DB) DeleteBufferedMessages(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	uuids := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		if u := toUUID(id); u.Valid {
			uuids = append(uuids, u)
		}
	}

	if _, err := db.Pool.Exec(ctx, `DELETE FROM buffered_messages WHERE id = ANY($1::uuid[])`, uuids); err != nil {
		return fmt.Errorf("delete buffered messages: %w", err)
	}

	return nil
}

// LoadBufferedMessages returns every persisted message in append order.
func (db *DB) LoadBufferedMessages(ctx context.Context) ([]domain.BufferedMessage, error) {
	rows, err := db.Pool.Query(ctx, `
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
			id         pgtype.UUID
			authorName pgtype.Text
			m          domain.BufferedMessage
		)

		if err := rows.Scan(&id, &m.ChatID, &m.MessageID, &m.AuthorID, &authorName, &m.Text,
			&m.HasAttachment, &m.IsForward, &m.IsJoin, &m.ReceivedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("scan buffered message row: %w", err)
		}

		m.PersistenceID = fromUUID(id)
		m.AuthorName = fromText(authorName)
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buffered message rows: %w", err)
	}

	return out, nil
}

// DeleteBufferedMessagesBefore drops persisted messages older than cutoff.
func (db *DB) DeleteBufferedMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM buffered_messages WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired buffered messages: %w", err)
	}

	return tag.RowsAffected(), nil
}
