package mcpserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
)

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) BufferDrain(ctx context.Context, chatID int64) (string, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Error(1)
}

func (m *mockModerator) ModerationAction(ctx context.Context, req moderation.ActionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockModerator) DeleteMessage(ctx context.Context, chatID, messageID int64, reason string) (string, error) {
	args := m.Called(ctx, chatID, messageID, reason)
	return args.String(0), args.Error(1)
}

func (m *mockModerator) History(ctx context.Context, userID int64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func connect(t *testing.T, moderator Moderator) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	logger := zerolog.Nop()
	srv := New(moderator, &logger)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := srv.MCP().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "reviewer", Version: "v0.0.1"}, nil)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestServer_ListsTools(t *testing.T) {
	cs := connect(t, &mockModerator{})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	assert.ElementsMatch(t, []string{ToolBufferDrain, ToolModerationAction, ToolDeleteMessage, ToolHistory}, names)
}

func TestServer_ToolCalls(t *testing.T) {
	moderator := &mockModerator{}
	moderator.On("BufferDrain", mock.Anything, int64(-5)).Return(`[{"chat_id":-5}]`, nil)
	moderator.On("ModerationAction", mock.Anything, moderation.ActionRequest{
		Op: "mute", ChatID: -5, UserID: 9, Reason: "flood", DurationMinutes: 15,
	}).Return("Muted user 9", nil)
	moderator.On("DeleteMessage", mock.Anything, int64(-5), int64(31), "").Return("Deleted message 31", nil)
	moderator.On("History", mock.Anything, int64(9)).Return("History for user 9", nil)

	cs := connect(t, moderator)

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: ToolBufferDrain, args: map[string]any{"chat_id": -5}, want: `[{"chat_id":-5}]`},
		{
			name: ToolModerationAction,
			args: map[string]any{"op": "mute", "chat_id": -5, "user_id": 9, "reason": "flood", "duration_minutes": 15},
			want: "Muted user 9",
		},
		{name: ToolDeleteMessage, args: map[string]any{"chat_id": -5, "message_id": 31}, want: "Deleted message 31"},
		{name: ToolHistory, args: map[string]any{"user_id": 9}, want: "History for user 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: tt.name, Arguments: tt.args})
			require.NoError(t, err)
			assert.False(t, res.IsError)
			assert.Equal(t, tt.want, textOf(t, res))
		})
	}

	moderator.AssertExpectations(t)
}

func TestServer_OperationErrorIsToolError(t *testing.T) {
	moderator := &mockModerator{}
	moderator.On("ModerationAction", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("moderation action %q: %w", "shadowban", coreerrors.ErrUnknownOperation))

	cs := connect(t, moderator)

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      ToolModerationAction,
		Arguments: map[string]any{"op": "shadowban", "chat_id": -5, "user_id": 9},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "unknown operation")
}
