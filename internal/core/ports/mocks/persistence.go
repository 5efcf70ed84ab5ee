package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// BufferPersistence is a thread-safe in-memory implementation of ports.BufferPersistence.
type BufferPersistence struct {
	mu       sync.Mutex
	messages map[string]domain.BufferedMessage

	insertCalls int
	deleteCalls int

	// InsertFn allows overriding InsertBufferedMessages behavior.
	InsertFn func(ctx context.Context, msgs []domain.BufferedMessage) error

	// DeleteFn allows overriding DeleteBufferedMessages behavior.
	DeleteFn func(ctx context.Context, ids []string) error
}

// NewBufferPersistence creates an empty persistence mock.
func NewBufferPersistence() *BufferPersistence {
	return &BufferPersistence{
		messages: make(map[string]domain.BufferedMessage),
	}
}

// InsertBufferedMessages stores messages keyed by PersistenceID.
func (p *BufferPersistence) InsertBufferedMessages(ctx context.Context, msgs []domain.BufferedMessage) error {
	p.mu.Lock()
	p.insertCalls++
	p.mu.Unlock()

	if p.InsertFn != nil {
		if err := p.InsertFn(ctx, msgs); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range msgs {
		p.messages[m.PersistenceID] = m
	}

	return nil
}

// DeleteBufferedMessages removes messages by PersistenceID.
func (p *BufferPersistence) DeleteBufferedMessages(ctx context.Context, ids []string) error {
	p.mu.Lock()
	p.deleteCalls++
	p.mu.Unlock()

	if p.DeleteFn != nil {
		if err := p.DeleteFn(ctx, ids); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range ids {
		delete(p.messages, id)
	}

	return nil
}

// LoadBufferedMessages returns the stored messages in append order.
func (p *BufferPersistence) LoadBufferedMessages(_ context.Context) ([]domain.BufferedMessage, error) {
	return p.Messages(), nil
}

// Messages returns a sorted snapshot of the stored messages.
func (p *BufferPersistence) Messages() []domain.BufferedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.BufferedMessage, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}

		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].MessageID < out[j].MessageID
		}

		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})

	return out
}

// Calls returns how many insert and delete batches were attempted.
func (p *BufferPersistence) Calls() (inserts, deletes int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.insertCalls, p.deleteCalls
}
