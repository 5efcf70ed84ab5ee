package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// ModerationLog is a thread-safe in-memory implementation of ports.ModerationLog.
type ModerationLog struct {
	mu       sync.RWMutex
	warnings []domain.WarningRecord
	records  []domain.ModerationRecord

	// AppendWarningFn allows failing AppendWarning before anything is written.
	AppendWarningFn func(ctx context.Context, warning domain.WarningRecord, record domain.ModerationRecord) error

	// AppendModerationRecordFn allows failing AppendModerationRecord before anything is written.
	AppendModerationRecordFn func(ctx context.Context, record domain.ModerationRecord) error
}

// NewModerationLog creates an empty moderation log mock.
func NewModerationLog() *ModerationLog {
	return &ModerationLog{}
}

// AppendWarning stores the warning and its audit record together.
func (l *ModerationLog) AppendWarning(ctx context.Context, warning domain.WarningRecord, record domain.ModerationRecord) error {
	if l.AppendWarningFn != nil {
		if err := l.AppendWarningFn(ctx, warning, record); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.warnings = append(l.warnings, warning)
	l.records = append(l.records, record)

	return nil
}

// AppendModerationRecord stores an audit record.
func (l *ModerationLog) AppendModerationRecord(ctx context.Context, record domain.ModerationRecord) error {
	if l.AppendModerationRecordFn != nil {
		if err := l.AppendModerationRecordFn(ctx, record); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)

	return nil
}

// CountWarnings counts warnings matching the chat and user of filter.
func (l *ModerationLog) CountWarnings(_ context.Context, filter domain.RecordFilter) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0

	for _, w := range l.warnings {
		if matchIDs(filter, w.ChatID, w.UserID) {
			count++
		}
	}

	return count, nil
}

// CountModerationRecords counts audit records matching filter.
func (l *ModerationLog) CountModerationRecords(_ context.Context, filter domain.RecordFilter) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0

	for _, r := range l.records {
		if matchRecord(filter, r) {
			count++
		}
	}

	return count, nil
}

// RecentModerationRecords returns up to limit matching records, newest first.
func (l *ModerationLog) RecentModerationRecords(_ context.Context, filter domain.RecordFilter, limit int) ([]domain.ModerationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.ModerationRecord

	for i := len(l.records) - 1; i >= 0 && len(out) < limit; i-- {
		if matchRecord(filter, l.records[i]) {
			out = append(out, l.records[i])
		}
	}

	return out, nil
}

// Records returns a copy of every stored audit record in append order.
func (l *ModerationLog) Records() []domain.ModerationRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ModerationRecord, len(l.records))
	copy(out, l.records)

	return out
}

// Warnings returns a copy of every stored warning in append order.
func (l *ModerationLog) Warnings() []domain.WarningRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.WarningRecord, len(l.warnings))
	copy(out, l.warnings)

	return out
}

func matchIDs(filter domain.RecordFilter, chatID, userID int64) bool {
	if filter.ChatID != 0 && filter.ChatID != chatID {
		return false
	}

	return filter.UserID == 0 || filter.UserID == userID
}

func matchRecord(filter domain.RecordFilter, r domain.ModerationRecord) bool {
	if filter.Kind != "" && filter.Kind != r.Kind {
		return false
	}

	return matchIDs(filter, r.ChatID, r.UserID)
}
