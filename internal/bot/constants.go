package bot

import "time"

// Message size constants.
const (
	// MaxMessageSize is the maximum size for a single Telegram message part.
	MaxMessageSize = 4000
	// TranscriptTextLimit caps each drained message in a /drain transcript.
	TranscriptTextLimit = 300
)

// Command names.
const (
	CmdHelp    = "help"
	CmdStart   = "start"
	CmdHistory = "history"
	CmdStats   = "stats"
	CmdDrain   = "drain"
	CmdDelete  = "del"
)

// Log field names.
const (
	LogFieldUserID   = "user_id"
	LogFieldUsername = "username"
	LogFieldChatID   = "chat_id"
	LogFieldCommand  = "command"
	LogFieldOp       = "op"
)

// Chat types as reported by the Bot API.
const (
	chatTypeGroup      = "group"
	chatTypeSupergroup = "supergroup"
)

// Gateway defaults.
const (
	defaultGatewayRPS   = 20
	gatewayBurst        = 5
	defaultChatQueueLen = 256
	defaultPollTimeout  = 60
	defaultChatIdleTTL  = 10 * time.Minute
)

// Gateway operation labels.
const (
	opDeleteMessage = "delete_message"
	opMute          = "mute"
	opUnmute        = "unmute"
	opKick          = "kick"
	opBan           = "ban"
	opUnban         = "unban"
	opSendNotice    = "send_notice"
)

// User-facing texts.
const (
	textReplyRequired = "Reply to a message of the user you want to moderate."
	textUnknownCmd    = "Unknown command"
	textBufferEmpty   = "Buffer is empty."
	textHelp          = "Moderation commands (reply to the target user's message):\n" +
		"/warn [reason]\n" +
		"/mute [minutes] [reason]\n" +
		"/unmute, /kick, /ban, /unban [reason]\n" +
		"/del [reason] deletes the replied-to message\n" +
		"/history [user_id] shows a user's record across chats\n" +
		"/stats [user_id] shows moderation counts for this chat\n" +
		"/drain [chat_id] prints and clears the review buffer"
)

// Error message formats.
const (
	ErrFmtGatewayCall = "telegram %s: %w"
)
