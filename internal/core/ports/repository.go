// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// BufferPersistence is the durable log behind the in-memory chat buffers.
// Inserts must be idempotent on PersistenceID so a retried batch is harmless.
type BufferPersistence interface {
	InsertBufferedMessages(ctx context.Context, msgs []domain.BufferedMessage) error
	DeleteBufferedMessages(ctx context.Context, ids []string) error
	// LoadBufferedMessages returns every persisted message ordered by ReceivedAt ascending.
	LoadBufferedMessages(ctx context.Context) ([]domain.BufferedMessage, error)
}

// BufferRetention purges persisted buffer rows past their time to live.
type BufferRetention interface {
	DeleteBufferedMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is everything the runtime needs from a storage backend.
type Store interface {
	BufferPersistence
	BufferRetention
	ModerationLog
	Ping(ctx context.Context) error
	Close()
}

// ModerationLog stores the append-only warning and moderation audit trail.
type ModerationLog interface {
	// AppendWarning writes the warning and its audit record in one transaction.
	AppendWarning(ctx context.Context, warning domain.WarningRecord, record domain.ModerationRecord) error
	AppendModerationRecord(ctx context.Context, record domain.ModerationRecord) error
	CountWarnings(ctx context.Context, filter domain.RecordFilter) (int, error)
	CountModerationRecords(ctx context.Context, filter domain.RecordFilter) (int, error)
	// RecentModerationRecords returns up to limit matching records, newest first.
	RecentModerationRecords(ctx context.Context, filter domain.RecordFilter, limit int) ([]domain.ModerationRecord, error)
}

// ModerationGateway executes moderation commands against the messaging platform.
type ModerationGateway interface {
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	Mute(ctx context.Context, chatID, userID int64, until time.Time) error
	Unmute(ctx context.Context, chatID, userID int64) error
	Kick(ctx context.Context, chatID, userID int64) error
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
	SendNotice(ctx context.Context, chatID int64, text string) error
}

// ReviewSink consumes review requests emitted by the threshold scheduler.
type ReviewSink interface {
	NotifyReview(ctx context.Context, req domain.ReviewRequest) error
}
