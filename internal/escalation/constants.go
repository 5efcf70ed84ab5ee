package escalation

// Log field names.
const (
	logFieldChatID    = "chat_id"
	logFieldUserID    = "user_id"
	logFieldKind      = "kind"
	logFieldCount     = "count"
	logFieldRecommend = "recommend"
)
