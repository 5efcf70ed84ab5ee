package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/config"
)

type mockModerator struct {
	mock.Mock
}

func (m *mockModerator) HandleInbound(ctx context.Context, msg domain.BufferedMessage) (moderation.InboundResult, error) {
	args := m.Called(ctx, msg)

	return args.Get(0).(moderation.InboundResult), args.Error(1)
}

func (m *mockModerator) DrainMessages(chatID int64) ([]domain.BufferedMessage, error) {
	args := m.Called(chatID)

	msgs, _ := args.Get(0).([]domain.BufferedMessage)

	return msgs, args.Error(1)
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

func newTestBot(api *fakeAPI, moderator Moderator) *Bot {
	logger := zerolog.Nop()

	return New(config.TelegramBotConfig{AdminIDs: []int64{testAdmin}, ChatQueueLen: 8}, api, moderator, &logger)
}

func groupChat() *tgbotapi.Chat {
	return &tgbotapi.Chat{ID: testChatID, Type: chatTypeSupergroup}
}

func textMessage(from int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: from, UserName: "alice"},
		Chat:      groupChat(),
		Date:      1772366400,
		Text:      text,
	}
}

func commandMessage(from int64, text string) *tgbotapi.Message {
	msg := textMessage(from, text)

	cmd, _, _ := strings.Cut(text, " ")
	msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}}

	return msg
}

func replyTo(msg *tgbotapi.Message, authorID int64) *tgbotapi.Message {
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 99, From: &tgbotapi.User{ID: authorID}, Chat: groupChat()}

	return msg
}

func handle(b *Bot, msg *tgbotapi.Message) {
	b.handleUpdate(context.Background(), tgbotapi.Update{Message: msg})
	b.dispatcher.Wait()
}

func TestToBufferedMessage(t *testing.T) {
	msg := textMessage(testUserID, "")
	msg.Caption = "look at this"
	msg.Photo = []tgbotapi.PhotoSize{{FileID: "p"}}
	msg.ForwardDate = 1772366000
	msg.From.UserName = ""
	msg.From.FirstName = "Bob"
	msg.From.LastName = "Smith"

	got := toBufferedMessage(msg)

	assert.Equal(t, testChatID, got.ChatID)
	assert.Equal(t, int64(10), got.MessageID)
	assert.Equal(t, testUserID, got.AuthorID)
	assert.Equal(t, "Bob Smith", got.AuthorName)
	assert.Equal(t, "look at this", got.Text)
	assert.Equal(t, time.Unix(1772366400, 0).UTC(), got.ReceivedAt)
	assert.True(t, got.HasAttachment)
	assert.True(t, got.IsForward)
	assert.False(t, got.IsJoin)
	assert.Empty(t, got.PersistenceID)
}

func TestToBufferedMessage_Join(t *testing.T) {
	msg := textMessage(testUserID, "")
	msg.NewChatMembers = []tgbotapi.User{{ID: testUserID}}

	got := toBufferedMessage(msg)

	assert.True(t, got.IsJoin)
	assert.False(t, got.HasAttachment)
	assert.Equal(t, "@alice", got.AuthorName)
}

func TestBot_GroupMessageGoesToInbound(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("HandleInbound", mock.Anything, mock.MatchedBy(func(m domain.BufferedMessage) bool {
		return m.ChatID == testChatID && m.Text == "hello"
	})).Return(moderation.InboundResult{}, nil).Once()

	handle(newTestBot(api, mod), textMessage(testUserID, "hello"))

	mod.AssertExpectations(t)
	assert.Empty(t, api.sent())
}

func TestBot_IgnoresPrivateChatter(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}

	msg := textMessage(testUserID, "hi bot")
	msg.Chat = &tgbotapi.Chat{ID: testUserID, Type: "private"}

	handle(newTestBot(api, mod), msg)

	mod.AssertNotCalled(t, "HandleInbound", mock.Anything, mock.Anything)
}

func TestBot_NonAdminCommandIsBuffered(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("HandleInbound", mock.Anything, mock.Anything).Return(moderation.InboundResult{}, nil).Once()

	handle(newTestBot(api, mod), replyTo(commandMessage(testUserID, "/ban"), 5))

	mod.AssertExpectations(t)
	mod.AssertNotCalled(t, "ModerationAction", mock.Anything, mock.Anything)
}

func TestBot_ActionCommands(t *testing.T) {
	tests := []struct {
		name string
		text string
		want moderation.ActionRequest
	}{
		{
			name: "warn with reason",
			text: "/warn spamming links",
			want: moderation.ActionRequest{Op: "warn", ChatID: testChatID, UserID: testUserID, Reason: "spamming links"},
		},
		{
			name: "mute with minutes",
			text: "/mute 15 flood",
			want: moderation.ActionRequest{Op: "mute", ChatID: testChatID, UserID: testUserID, Reason: "flood", DurationMinutes: 15},
		},
		{
			name: "mute without minutes",
			text: "/mute be nice",
			want: moderation.ActionRequest{Op: "mute", ChatID: testChatID, UserID: testUserID, Reason: "be nice"},
		},
		{
			name: "kick",
			text: "/kick",
			want: moderation.ActionRequest{Op: "kick", ChatID: testChatID, UserID: testUserID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			mod := &mockModerator{}
			mod.On("ModerationAction", mock.Anything, tt.want).Return("done", nil).Once()

			handle(newTestBot(api, mod), replyTo(commandMessage(testAdmin, tt.text), testUserID))

			mod.AssertExpectations(t)
			assert.Equal(t, []string{"done"}, api.texts())
		})
	}
}

func TestBot_UnbanByUserID(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	want := moderation.ActionRequest{Op: "unban", ChatID: testChatID, UserID: 555, Reason: "appeal accepted"}
	mod.On("ModerationAction", mock.Anything, want).Return("Unbanned", nil).Once()

	handle(newTestBot(api, mod), commandMessage(testAdmin, "/unban 555 appeal accepted"))

	mod.AssertExpectations(t)
}

func TestBot_ActionWithoutTarget(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}

	handle(newTestBot(api, mod), commandMessage(testAdmin, "/warn rude"))

	mod.AssertNotCalled(t, "ModerationAction", mock.Anything, mock.Anything)
	assert.Equal(t, []string{textReplyRequired}, api.texts())
}

func TestBot_ActionFailureIsReported(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("ModerationAction", mock.Anything, mock.Anything).Return("", coreerrors.ErrGatewayUnavailable).Once()

	handle(newTestBot(api, mod), replyTo(commandMessage(testAdmin, "/ban"), testUserID))

	texts := api.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Failed")
}

func TestBot_Delete(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("DeleteMessage", mock.Anything, testChatID, int64(99), "off-topic").Return("Deleted", nil).Once()

	handle(newTestBot(api, mod), replyTo(commandMessage(testAdmin, "/del off-topic"), testUserID))

	mod.AssertExpectations(t)
}

func TestBot_History(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("History", mock.Anything, int64(555)).Return("clean record", nil).Once()

	handle(newTestBot(api, mod), commandMessage(testAdmin, "/history 555"))

	mod.AssertExpectations(t)
	assert.Equal(t, []string{"clean record"}, api.texts())
}

func TestBot_StatsForWholeChat(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	want := moderation.ActionRequest{Op: CmdStats, ChatID: testChatID}
	mod.On("ModerationAction", mock.Anything, want).Return("stats", nil).Once()

	handle(newTestBot(api, mod), commandMessage(testAdmin, "/stats"))

	mod.AssertExpectations(t)
}

func TestBot_Drain(t *testing.T) {
	t.Run("transcript", func(t *testing.T) {
		api := newFakeAPI()
		mod := &mockModerator{}
		mod.On("DrainMessages", int64(-100999)).Return([]domain.BufferedMessage{
			{AuthorName: "@alice", AuthorID: 1, MessageID: 3, Text: "hi", ReceivedAt: time.Unix(0, 0).UTC()},
			{AuthorName: "@bob", AuthorID: 2, MessageID: 4, IsJoin: true, ReceivedAt: time.Unix(60, 0).UTC()},
		}, nil).Once()

		handle(newTestBot(api, mod), commandMessage(testAdmin, "/drain -100999"))

		texts := api.texts()
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "Drained 2 messages from chat -100999")
		assert.Contains(t, texts[0], "@alice (1) #3: hi")
		assert.Contains(t, texts[0], "@bob (2) #4 [join]")
	})

	t.Run("empty", func(t *testing.T) {
		api := newFakeAPI()
		mod := &mockModerator{}
		mod.On("DrainMessages", testChatID).Return(nil, coreerrors.ErrBufferEmpty).Once()

		handle(newTestBot(api, mod), commandMessage(testAdmin, "/drain"))

		assert.Equal(t, []string{textBufferEmpty}, api.texts())
	})
}

func TestBot_UnknownCommand(t *testing.T) {
	api := newFakeAPI()

	handle(newTestBot(api, &mockModerator{}), commandMessage(testAdmin, "/frobnicate"))

	assert.Equal(t, []string{textUnknownCmd}, api.texts())
}

func TestBot_RunStopsWhenUpdatesClose(t *testing.T) {
	api := newFakeAPI()
	mod := &mockModerator{}
	mod.On("HandleInbound", mock.Anything, mock.Anything).Return(moderation.InboundResult{}, nil).Twice()

	api.updates <- tgbotapi.Update{Message: textMessage(testUserID, "one")}
	api.updates <- tgbotapi.Update{Message: textMessage(testUserID, "two")}
	close(api.updates)

	require.NoError(t, newTestBot(api, mod).Run(context.Background()))

	mod.AssertExpectations(t)
	assert.True(t, api.stopped)
}

func TestBot_RunCanceled(t *testing.T) {
	api := newFakeAPI()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestBot(api, &mockModerator{}).Run(ctx)

	require.True(t, errors.Is(err, context.Canceled))
}

func TestCommandTarget(t *testing.T) {
	tests := []struct {
		name     string
		msg      *tgbotapi.Message
		wantUser int64
		wantArgs string
		wantOK   bool
	}{
		{name: "reply", msg: replyTo(commandMessage(testAdmin, "/warn spam"), 5), wantUser: 5, wantArgs: "spam", wantOK: true},
		{name: "explicit id", msg: commandMessage(testAdmin, "/ban 77 scam"), wantUser: 77, wantArgs: "scam", wantOK: true},
		{name: "no target", msg: commandMessage(testAdmin, "/ban scam"), wantArgs: "scam"},
		{name: "zero id", msg: commandMessage(testAdmin, "/ban 0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, args, ok := commandTarget(tt.msg)

			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantArgs != "" {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestParseMuteArgs(t *testing.T) {
	tests := []struct {
		args        string
		wantMinutes int
		wantReason  string
	}{
		{"30 spam", 30, "spam"},
		{"30", 30, ""},
		{"spam", 0, "spam"},
		{"-5 spam", 0, "-5 spam"},
		{"", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			minutes, reason := parseMuteArgs(tt.args)

			assert.Equal(t, tt.wantMinutes, minutes)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
