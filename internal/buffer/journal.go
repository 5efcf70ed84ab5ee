package buffer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
)

// Journal accumulates pending durable writes for the chat buffers and
// flushes them in batches, off the message hot path.
type Journal struct {
	persistence ports.BufferPersistence
	logger      *zerolog.Logger

	mu      sync.Mutex
	inserts map[string]domain.BufferedMessage
	deletes map[string]struct{}

	// flushMu keeps at most one flush in flight.
	flushMu sync.Mutex
}

// NewJournal creates a journal writing through persistence.
func NewJournal(persistence ports.BufferPersistence, logger *zerolog.Logger) *Journal {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Journal{
		persistence: persistence,
		logger:      logger,
		inserts:     make(map[string]domain.BufferedMessage),
		deletes:     make(map[string]struct{}),
	}
}

func (j *Journal) recordInsert(msg domain.BufferedMessage) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inserts[msg.PersistenceID] = msg
}

func (j *Journal) recordDeletes(msgs []domain.BufferedMessage) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, m := range msgs {
		// Never written: drop the pending insert instead of issuing a delete.
		if _, ok := j.inserts[m.PersistenceID]; ok {
			delete(j.inserts, m.PersistenceID)
			continue
		}

		j.deletes[m.PersistenceID] = struct{}{}
	}
}

// Pending returns the number of queued inserts and deletes.
func (j *Journal) Pending() (inserts, deletes int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.inserts), len(j.deletes)
}

// Flush writes the pending batch. On failure the batch is kept for the next call.
func (j *Journal) Flush(ctx context.Context) error {
	j.flushMu.Lock()
	defer j.flushMu.Unlock()

	inserts, deletes := j.swap()
	if len(inserts) == 0 && len(deletes) == 0 {
		return nil
	}

	if len(inserts) > 0 {
		if err := j.persistence.InsertBufferedMessages(ctx, inserts); err != nil {
			j.restore(inserts, deletes)
			observability.PersistenceFlushes.WithLabelValues(statusError).Inc()

			return fmt.Errorf("flush buffered inserts: %w", err)
		}
	}

	if len(deletes) > 0 {
		if err := j.persistence.DeleteBufferedMessages(ctx, deletes); err != nil {
			j.restore(nil, deletes)
			observability.PersistenceFlushes.WithLabelValues(statusError).Inc()

			return fmt.Errorf("flush buffered deletes: %w", err)
		}
	}

	observability.PersistenceFlushes.WithLabelValues(statusOK).Inc()
	j.logger.Debug().Int(logFieldInserted, len(inserts)).Int(logFieldDeleted, len(deletes)).Msg("buffer journal flushed")

	return nil
}

func (j *Journal) swap() ([]domain.BufferedMessage, []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	inserts := make([]domain.BufferedMessage, 0, len(j.inserts))
	for _, m := range j.inserts {
		inserts = append(inserts, m)
	}

	sort.Slice(inserts, func(a, b int) bool {
		return inserts[a].Seq < inserts[b].Seq
	})

	deletes := make([]string, 0, len(j.deletes))
	for id := range j.deletes {
		deletes = append(deletes, id)
	}

	sort.Strings(deletes)

	j.inserts = make(map[string]domain.BufferedMessage)
	j.deletes = make(map[string]struct{})

	return inserts, deletes
}

// restore merges a failed batch back. A drain that ran while the batch was
// in flight may have queued a delete for one of its inserts; such pairs
// cancel out.
func (j *Journal) restore(inserts []domain.BufferedMessage, deletes []string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, id := range deletes {
		j.deletes[id] = struct{}{}
	}

	for _, m := range inserts {
		if _, ok := j.deletes[m.PersistenceID]; ok {
			delete(j.deletes, m.PersistenceID)
			continue
		}

		j.inserts[m.PersistenceID] = m
	}
}
