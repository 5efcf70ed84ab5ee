package buffer

import (
	"time"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// Scheduler evaluates the review thresholds of every chat buffer.
//
// The size threshold is edge triggered: it fires once each time the buffer
// crosses a multiple of sizeStep bytes. The time threshold is aligned to
// wall-clock windows of timeStep since the Unix epoch, not to the last
// activity in the chat. Neither threshold drains anything.
type Scheduler struct {
	store    *Store
	sizeStep int
	timeStep time.Duration
}

// NewScheduler creates a scheduler. A non-positive step disables that threshold.
func NewScheduler(store *Store, sizeStep int, timeStep time.Duration) *Scheduler {
	return &Scheduler{
		store:    store,
		sizeStep: sizeStep,
		timeStep: timeStep,
	}
}

// Evaluate checks every chat at now and returns the review requests that fired.
func (s *Scheduler) Evaluate(now time.Time) []domain.ReviewRequest {
	var out []domain.ReviewRequest

	s.store.chats.Range(func(chatID int64, cb *chatBuffer) bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()

		if cb.removed || len(cb.messages) == 0 {
			return true
		}

		if s.sizeFired(cb) {
			cb.lastFlushSize = cb.size
			out = append(out, s.request(chatID, cb, domain.TriggerSize, now))
		}

		if s.timeFired(cb, now) {
			cb.lastFlushTime = now
			out = append(out, s.request(chatID, cb, domain.TriggerTime, now))
		}

		return true
	})

	return out
}

// EvaluateChat checks a single chat; used right after an append so the size
// threshold reacts without waiting for the next tick.
func (s *Scheduler) EvaluateChat(chatID int64, now time.Time) []domain.ReviewRequest {
	cb, ok := s.store.chats.Load(chatID)
	if !ok {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.removed || len(cb.messages) == 0 || !s.sizeFired(cb) {
		return nil
	}

	cb.lastFlushSize = cb.size

	return []domain.ReviewRequest{s.request(chatID, cb, domain.TriggerSize, now)}
}

func (s *Scheduler) sizeFired(cb *chatBuffer) bool {
	if s.sizeStep <= 0 {
		return false
	}

	return cb.size/s.sizeStep > cb.lastFlushSize/s.sizeStep
}

func (s *Scheduler) timeFired(cb *chatBuffer, now time.Time) bool {
	if s.timeStep <= 0 {
		return false
	}

	return Period(now, s.timeStep) > Period(cb.lastFlushTime, s.timeStep)
}

func (s *Scheduler) request(chatID int64, cb *chatBuffer, trigger domain.ReviewTrigger, now time.Time) domain.ReviewRequest {
	return domain.ReviewRequest{
		ChatID:   chatID,
		Trigger:  trigger,
		Messages: len(cb.messages),
		Bytes:    cb.size,
		At:       now,
	}
}

// Period returns the index of the epoch-aligned window of length step containing t.
// Steps shorter than a second count as one second.
func Period(t time.Time, step time.Duration) int64 {
	seconds := int64(step / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	return t.Unix() / seconds
}
