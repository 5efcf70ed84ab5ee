package domain

import "time"

// BufferedMessage is a group message waiting for review in its chat buffer.
// Seq is its append position, increasing across chats and restarts; buffers
// are persisted and restored in Seq order.
type BufferedMessage struct {
	PersistenceID string    `json:"-"`
	Seq           int64     `json:"-"`
	ChatID        int64     `json:"chat_id"`
	MessageID     int64     `json:"message_id"`
	AuthorID      int64     `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	Text          string    `json:"text"`
	ReceivedAt    time.Time `json:"received_at"`
	HasAttachment bool      `json:"has_attachment,omitempty"`
	IsForward     bool      `json:"is_forward,omitempty"`
	IsJoin        bool      `json:"is_join,omitempty"`
}

// Size is the number of bytes the message contributes to its buffer.
func (m BufferedMessage) Size() int {
	return len(m.Text)
}

// ActionKind identifies a moderation-relevant action in the audit trail.
type ActionKind string

// Moderation action kinds.
const (
	ActionWarn          ActionKind = "warn"
	ActionMute          ActionKind = "mute"
	ActionUnmute        ActionKind = "unmute"
	ActionKick          ActionKind = "kick"
	ActionBan           ActionKind = "ban"
	ActionUnban         ActionKind = "unban"
	ActionDeleteMessage ActionKind = "delete_message"
	ActionAutoDelete    ActionKind = "auto_delete"
)

// ActionKinds lists every kind in display order.
var ActionKinds = []ActionKind{
	ActionWarn,
	ActionMute,
	ActionUnmute,
	ActionKick,
	ActionBan,
	ActionUnban,
	ActionDeleteMessage,
	ActionAutoDelete,
}

// Valid reports whether k is a known action kind.
func (k ActionKind) Valid() bool {
	for _, known := range ActionKinds {
		if k == known {
			return true
		}
	}

	return false
}

// WarningRecord is an append-only warning issued to a user in a chat.
type WarningRecord struct {
	UserID    int64
	ChatID    int64
	Reason    string
	CreatedAt time.Time
}

// ModerationRecord is the immutable audit entry for a moderation action.
type ModerationRecord struct {
	ID        string
	Kind      ActionKind
	ChatID    int64
	UserID    int64
	Reason    string
	CreatedAt time.Time
}

// RecordFilter selects audit records. Zero-valued fields match everything.
type RecordFilter struct {
	ChatID int64
	UserID int64
	Kind   ActionKind
}

// EscalationPolicy configures the warn -> mute -> ban ladder.
type EscalationPolicy struct {
	WarnsBeforeMute int
	MutesBeforeBan  int
}

// ContentFilterConfig configures the pre-buffer content gate.
type ContentFilterConfig struct {
	BlocklistPhrases   []string
	WhitelistedDomains []string
	BlockAllLinks      bool
}

// ReviewTrigger names the threshold that requested a review.
type ReviewTrigger string

// Review triggers.
const (
	TriggerSize ReviewTrigger = "size"
	TriggerTime ReviewTrigger = "time"
)

// ReviewRequest asks the external reviewer to drain a chat buffer.
type ReviewRequest struct {
	ChatID   int64
	Trigger  ReviewTrigger
	Messages int
	Bytes    int
	At       time.Time
}

// Reason returns the human-readable reason for the request.
func (r ReviewRequest) Reason() string {
	if r.Trigger == TriggerSize {
		return "buffer growing"
	}

	return "time to review"
}
