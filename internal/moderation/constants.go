package moderation

import "time"

const defaultMute = time.Hour

const textBufferEmpty = "buffer empty"

// Non-ledger operations of moderation_action.
const (
	opHistory = "history"
	opStats   = "stats"
)

// Inbound result label values.
const (
	resultBuffered  = "buffered"
	resultViolation = "violation"
)

// Log field names.
const (
	logFieldChatID    = "chat_id"
	logFieldUserID    = "user_id"
	logFieldMessageID = "message_id"
	logFieldReason    = "reason"
	logFieldTrigger   = "trigger"
	logFieldCount     = "count"
)
