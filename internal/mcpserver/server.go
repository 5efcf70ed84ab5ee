// Package mcpserver exposes the moderation operations as MCP tools for the
// external reviewer.
package mcpserver

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
)

// Tool names.
const (
	ToolBufferDrain      = "buffer_drain"
	ToolModerationAction = "moderation_action"
	ToolDeleteMessage    = "delete_message"
	ToolHistory          = "history"
)

const (
	serverName    = "chat-moderator"
	serverVersion = "v1.0.0"

	statusOK    = "ok"
	statusError = "error"
)

// Moderator is the operation set behind the tools.
type Moderator interface {
	BufferDrain(ctx context.Context, chatID int64) (string, error)
	ModerationAction(ctx context.Context, req moderation.ActionRequest) (string, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64, reason string) (string, error)
	History(ctx context.Context, userID int64) (string, error)
}

type Server struct {
	server    *mcp.Server
	moderator Moderator
	logger    *zerolog.Logger
}

func New(moderator Moderator, logger *zerolog.Logger) *Server {
	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    serverName,
			Version: serverVersion,
		}, nil),
		moderator: moderator,
		logger:    logger,
	}

	s.registerTools()

	return s
}

// MCP returns the underlying server, for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.server
}

// Handler serves the tools over streamable HTTP.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolBufferDrain,
		Description: "Remove and return the oldest buffered messages of a chat as a JSON array, within the drain size limits. Returns \"buffer empty\" when nothing is waiting.",
	}, s.handleBufferDrain)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolModerationAction,
		Description: "Apply a moderation action to a user in a chat. op is one of warn, mute, unmute, kick, ban, unban, history, stats. Returns a summary including any escalation recommendation.",
	}, s.handleModerationAction)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolDeleteMessage,
		Description: "Delete a single message from a chat and record it in the moderation log.",
	}, s.handleDeleteMessage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolHistory,
		Description: "Summarize a user's moderation history across all chats.",
	}, s.handleHistory)
}

type BufferDrainInput struct {
	ChatID int64 `json:"chat_id" jsonschema:"the chat whose buffer to drain"`
}

type ModerationActionInput struct {
	Op              string `json:"op" jsonschema:"one of warn, mute, unmute, kick, ban, unban, history, stats"`
	ChatID          int64  `json:"chat_id,omitempty" jsonschema:"target chat; optional for history and stats"`
	UserID          int64  `json:"user_id,omitempty" jsonschema:"target user; optional for stats"`
	Reason          string `json:"reason,omitempty" jsonschema:"reason shown in the audit log"`
	DurationMinutes int    `json:"duration_minutes,omitempty" jsonschema:"mute length in minutes; defaults to the configured mute"`
}

type DeleteMessageInput struct {
	ChatID    int64  `json:"chat_id" jsonschema:"chat containing the message"`
	MessageID int64  `json:"message_id" jsonschema:"message to delete"`
	Reason    string `json:"reason,omitempty" jsonschema:"reason shown in the audit log"`
}

type HistoryInput struct {
	UserID int64 `json:"user_id" jsonschema:"the user to summarize"`
}

func (s *Server) handleBufferDrain(ctx context.Context, _ *mcp.CallToolRequest, in BufferDrainInput) (*mcp.CallToolResult, any, error) {
	text, err := s.moderator.BufferDrain(ctx, in.ChatID)
	return s.result(ToolBufferDrain, text, err), nil, nil
}

func (s *Server) handleModerationAction(ctx context.Context, _ *mcp.CallToolRequest, in ModerationActionInput) (*mcp.CallToolResult, any, error) {
	text, err := s.moderator.ModerationAction(ctx, moderation.ActionRequest{
		Op:              in.Op,
		ChatID:          in.ChatID,
		UserID:          in.UserID,
		Reason:          in.Reason,
		DurationMinutes: in.DurationMinutes,
	})

	return s.result(ToolModerationAction, text, err), nil, nil
}

func (s *Server) handleDeleteMessage(ctx context.Context, _ *mcp.CallToolRequest, in DeleteMessageInput) (*mcp.CallToolResult, any, error) {
	text, err := s.moderator.DeleteMessage(ctx, in.ChatID, in.MessageID, in.Reason)
	return s.result(ToolDeleteMessage, text, err), nil, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcp.CallToolRequest, in HistoryInput) (*mcp.CallToolResult, any, error) {
	text, err := s.moderator.History(ctx, in.UserID)
	return s.result(ToolHistory, text, err), nil, nil
}

// result turns an operation outcome into a tool result. Operation errors are
// reported to the caller as tool errors, not protocol errors.
func (s *Server) result(tool, text string, err error) *mcp.CallToolResult {
	if err != nil {
		observability.ToolCalls.WithLabelValues(tool, statusError).Inc()
		s.logger.Warn().Err(err).Str("tool", tool).Msg("tool call failed")

		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}
	}

	observability.ToolCalls.WithLabelValues(tool, statusOK).Inc()

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
