// Package buffer holds the per-chat message buffers awaiting review, the
// journal that keeps them durable, and the thresholds that request review.
//
// Buffers are sharded by chat: each chat has its own lock, so a busy chat
// never blocks appends or drains in another one.
package buffer

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

type chatBuffer struct {
	mu            sync.Mutex
	messages      []domain.BufferedMessage
	size          int
	lastFlushTime time.Time
	lastFlushSize int
	// removed is set once the buffer left the map; holders must look it up again.
	removed bool
}

// Store is the in-memory set of chat buffers. It is a cache of the durable
// log behind the journal and can always be rebuilt with Restore.
type Store struct {
	chats           *xsync.MapOf[int64, *chatBuffer]
	seq             atomic.Int64
	journal         *Journal
	maxMessageChars int
	now             func() time.Time
}

// NewStore creates an empty store. maxMessageChars caps the stored text of
// each message, counted in characters; zero disables the cap.
func NewStore(journal *Journal, maxMessageChars int) *Store {
	s := &Store{
		chats:           xsync.NewMapOf[int64, *chatBuffer](),
		journal:         journal,
		maxMessageChars: maxMessageChars,
		now:             time.Now,
	}

	// Seeded from the clock so a new process continues after the last one
	// even when nothing was left to restore.
	s.seq.Store(time.Now().UnixNano())

	return s
}

// lock returns the live buffer for chatID with its mutex held, creating it if needed.
func (s *Store) lock(chatID int64, createdAt time.Time) *chatBuffer {
	for {
		cb, _ := s.chats.LoadOrCompute(chatID, func() *chatBuffer {
			return &chatBuffer{lastFlushTime: createdAt}
		})

		cb.mu.Lock()

		if !cb.removed {
			return cb
		}

		cb.mu.Unlock()
	}
}

// Append adds msg to the tail of its chat buffer and queues it for persistence.
// The stored copy, with its PersistenceID, Seq and cleaned text, is returned.
func (s *Store) Append(msg domain.BufferedMessage) domain.BufferedMessage {
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = s.now()
	}

	msg.Text = TruncateChars(ValidUTF8(msg.Text), s.maxMessageChars)
	msg.AuthorName = ValidUTF8(msg.AuthorName)
	msg.PersistenceID = uuid.NewString()

	cb := s.lock(msg.ChatID, msg.ReceivedAt)
	// Taken under the chat lock so Seq follows append order within the chat.
	msg.Seq = s.seq.Add(1)
	cb.messages = append(cb.messages, msg)
	cb.size += msg.Size()

	// Queued while the chat lock is held so a concurrent drain cannot
	// record the delete before the insert.
	if s.journal != nil {
		s.journal.recordInsert(msg)
	}

	cb.mu.Unlock()

	return msg
}

// Drain removes and returns the oldest messages of a chat whose truncated
// texts fit in maxTotalBytes. The first message is always returned, however
// large, so an oversized entry can never stall the buffer. Returned texts are
// truncated to maxMessageBytes; zero disables either limit.
func (s *Store) Drain(chatID int64, maxTotalBytes, maxMessageBytes int) []domain.BufferedMessage {
	cb, ok := s.chats.Load(chatID)
	if !ok {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.removed || len(cb.messages) == 0 {
		return nil
	}

	out := make([]domain.BufferedMessage, 0, len(cb.messages))
	total := 0

	for _, m := range cb.messages {
		m.Text = TruncateBytes(m.Text, maxMessageBytes)

		if len(out) > 0 && maxTotalBytes > 0 && total+m.Size() > maxTotalBytes {
			break
		}

		out = append(out, m)
		total += m.Size()
	}

	consumed := cb.messages[:len(out)]
	if s.journal != nil {
		s.journal.recordDeletes(consumed)
	}

	remaining := make([]domain.BufferedMessage, len(cb.messages)-len(out))
	copy(remaining, cb.messages[len(out):])
	cb.messages = remaining
	cb.size = sizeOf(remaining)
	cb.lastFlushSize = cb.size

	if len(remaining) == 0 {
		cb.removed = true
		s.chats.Delete(chatID)
	}

	return out
}

// Restore rebuilds the buffers from persisted records sorted by Seq
// ascending. It must run before inbound handling starts; restored records
// are already durable and are not queued again.
func (s *Store) Restore(records []domain.BufferedMessage) int {
	touched := make(map[int64]*chatBuffer)

	for _, r := range records {
		s.raiseSeq(r.Seq)

		cb := s.lock(r.ChatID, time.Time{})

		if _, seen := touched[r.ChatID]; !seen {
			touched[r.ChatID] = cb

			if cb.lastFlushTime.IsZero() {
				cb.lastFlushTime = r.ReceivedAt
			}
		}

		cb.messages = append(cb.messages, r)
		cb.size += r.Size()
		cb.mu.Unlock()
	}

	for _, cb := range touched {
		cb.mu.Lock()
		cb.lastFlushSize = cb.size
		cb.mu.Unlock()
	}

	return len(records)
}

// Evict drops messages received before cutoff from the head of every buffer
// and queues their durable deletes. It returns the number of evicted messages.
func (s *Store) Evict(cutoff time.Time) int {
	evicted := 0

	s.chats.Range(func(chatID int64, cb *chatBuffer) bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()

		if cb.removed {
			return true
		}

		n := 0
		for n < len(cb.messages) && cb.messages[n].ReceivedAt.Before(cutoff) {
			n++
		}

		if n == 0 {
			return true
		}

		if s.journal != nil {
			s.journal.recordDeletes(cb.messages[:n])
		}

		remaining := make([]domain.BufferedMessage, len(cb.messages)-n)
		copy(remaining, cb.messages[n:])
		cb.messages = remaining
		cb.size = sizeOf(remaining)

		if cb.lastFlushSize > cb.size {
			cb.lastFlushSize = cb.size
		}

		if len(remaining) == 0 {
			cb.removed = true
			s.chats.Delete(chatID)
		}

		evicted += n

		return true
	})

	return evicted
}

// Len returns the number of buffered messages for a chat.
func (s *Store) Len(chatID int64) int {
	cb, ok := s.chats.Load(chatID)
	if !ok {
		return 0
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	return len(cb.messages)
}

// Stats returns the number of live chats, messages and bytes across all buffers.
func (s *Store) Stats() (chats, messages, bytes int) {
	s.chats.Range(func(_ int64, cb *chatBuffer) bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()

		if cb.removed {
			return true
		}

		chats++
		messages += len(cb.messages)
		bytes += cb.size

		return true
	})

	return chats, messages, bytes
}

// raiseSeq makes sure later appends sort after seq.
func (s *Store) raiseSeq(seq int64) {
	for {
		cur := s.seq.Load()
		if seq <= cur || s.seq.CompareAndSwap(cur, seq) {
			return
		}
	}
}

func sizeOf(msgs []domain.BufferedMessage) int {
	size := 0
	for _, m := range msgs {
		size += m.Size()
	}

	return size
}

// ValidUTF8 drops invalid UTF-8 sequences, so the buffered text is exactly
// what the store persists and restores.
func ValidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	return strings.ToValidUTF8(s, "")
}

// TruncateChars cuts s to at most limit characters. limit <= 0 means no limit.
func TruncateChars(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}

	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}

		count++
	}

	return s
}

// TruncateBytes cuts s to at most limit bytes without splitting a character.
// limit <= 0 means no limit.
func TruncateBytes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
