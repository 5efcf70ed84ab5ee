package moderation

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/chat-moderator-bot/internal/buffer"
	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports/mocks"
	"github.com/lueurxax/chat-moderator-bot/internal/escalation"
	"github.com/lueurxax/chat-moderator-bot/internal/process/filters"
)

const (
	chatID int64 = -100500
	userID int64 = 4242
)

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *buffer.Store
	log     *mocks.ModerationLog
	gateway *mocks.Gateway
	reviews *mocks.ReviewSink
}

func newFixture(t *testing.T, sizeStep int) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	log := mocks.NewModerationLog()
	store := buffer.NewStore(buffer.NewJournal(mocks.NewBufferPersistence(), &logger), 0)
	gateway := mocks.NewGateway()
	reviews := &mocks.ReviewSink{}

	svc := New(Deps{
		Filter: filters.New(domain.ContentFilterConfig{
			BlocklistPhrases:   []string{"spam"},
			WhitelistedDomains: []string{"example.com"},
		}),
		Store:     store,
		Scheduler: buffer.NewScheduler(store, sizeStep, time.Hour),
		Ledger:    escalation.New(log, domain.EscalationPolicy{WarnsBeforeMute: 2, MutesBeforeBan: 2}, escalation.Options{}, &logger),
		Gateway:   gateway,
		Reviews:   reviews,
	}, Limits{DefaultMute: 30 * time.Minute}, &logger)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, store: store, log: log, gateway: gateway, reviews: reviews}
}

func inbound(id int64, text string) domain.BufferedMessage {
	return domain.BufferedMessage{
		ChatID:     chatID,
		MessageID:  id,
		AuthorID:   userID,
		AuthorName: "mallory",
		Text:       text,
		ReceivedAt: fixedNow.Add(time.Duration(id) * time.Second),
	}
}

func TestService_BlocklistedMessageNeverReachesDrain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	res, err := f.svc.HandleInbound(ctx, inbound(1, "This is SPAM"))
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, filters.ReasonBlocklist, res.Reason)

	_, err = f.svc.HandleInbound(ctx, inbound(2, "hello there"))
	require.NoError(t, err)

	out, err := f.svc.BufferDrain(ctx, chatID)
	require.NoError(t, err)

	var drained []domain.BufferedMessage
	require.NoError(t, json.Unmarshal([]byte(out), &drained))
	require.Len(t, drained, 1)
	assert.Equal(t, "hello there", drained[0].Text)
	assert.NotContains(t, out, "SPAM")

	calls := f.gateway.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "delete", calls[0].Op)
	assert.Equal(t, int64(1), calls[0].MessageID)

	records := f.log.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionAutoDelete, records[0].Kind)
	assert.Equal(t, userID, records[0].UserID)
}

func TestService_AutoDeleteRecordedWhenPlatformFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.gateway.Err = mocks.ErrPlatformDown

	res, err := f.svc.HandleInbound(ctx, inbound(1, "visit https://evil.test/now"))
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.Equal(t, filters.ReasonBlockedLink, res.Reason)

	records := f.log.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionAutoDelete, records[0].Kind)
	assert.Zero(t, f.store.Len(chatID))
}

func TestService_SizeThresholdNotifiesReviewer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 32*1024)
	payload := strings.Repeat("a", 10*1024)

	for i := int64(1); i <= 5; i++ {
		_, err := f.svc.HandleInbound(ctx, inbound(i, payload))
		require.NoError(t, err)

		wantRequests := 0
		if i >= 4 {
			wantRequests = 1
		}

		assert.Len(t, f.reviews.Requests(), wantRequests, "after message %d", i)
	}

	req := f.reviews.Requests()[0]
	assert.Equal(t, domain.TriggerSize, req.Trigger)
	assert.Equal(t, 4, req.Messages)
}

func TestService_CheckThresholdsTimeTrigger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.svc.HandleInbound(ctx, inbound(1, "hi"))
	require.NoError(t, err)

	f.svc.now = func() time.Time { return fixedNow.Add(time.Hour) }

	assert.Equal(t, 1, f.svc.CheckThresholds(ctx))
	assert.Equal(t, 0, f.svc.CheckThresholds(ctx))

	require.Len(t, f.reviews.Requests(), 1)
	assert.Equal(t, "time to review", f.reviews.Requests()[0].Reason())
	assert.Equal(t, 1, f.store.Len(chatID), "review requests never drain")
}

func TestService_BufferDrainEmpty(t *testing.T) {
	f := newFixture(t, 0)

	out, err := f.svc.BufferDrain(context.Background(), chatID)
	require.NoError(t, err)
	assert.Equal(t, "buffer empty", out)

	_, err = f.svc.BufferDrain(context.Background(), 0)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidInput)
}

func TestService_WarnEscalatesToMuteRecommendation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	req := ActionRequest{Op: "warn", ChatID: chatID, UserID: userID, Reason: "rude"}

	first, err := f.svc.ModerationAction(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, first, "Warnings: 1/2.")
	assert.NotContains(t, first, "Recommendation")

	second, err := f.svc.ModerationAction(ctx, req)
	require.NoError(t, err)
	assert.Contains(t, second, "Warnings: 2/2.")
	assert.Contains(t, second, "Recommendation: mute this user.")

	// Advisory only: no mute was issued on the platform.
	for _, c := range f.gateway.Calls() {
		assert.Equal(t, "notice", c.Op)
	}
}

func TestService_MuteUsesDefaultDuration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	out, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "mute", ChatID: chatID, UserID: userID})
	require.NoError(t, err)
	assert.Contains(t, out, "for 30 minutes")

	out, err = f.svc.ModerationAction(ctx, ActionRequest{Op: "mute", ChatID: chatID, UserID: userID, DurationMinutes: 5})
	require.NoError(t, err)
	assert.Contains(t, out, "for 5 minutes")
	assert.Contains(t, out, "Recommendation: ban this user.")

	calls := f.gateway.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, fixedNow.Add(30*time.Minute), calls[0].Until)
	assert.Equal(t, fixedNow.Add(5*time.Minute), calls[1].Until)
}

func TestService_FailedPlatformActionIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.gateway.Err = mocks.ErrPlatformDown

	for _, op := range []string{"mute", "unmute", "kick", "ban", "unban"} {
		_, err := f.svc.ModerationAction(ctx, ActionRequest{Op: op, ChatID: chatID, UserID: userID})
		assert.ErrorIs(t, err, coreerrors.ErrGatewayUnavailable, op)
	}

	_, err := f.svc.DeleteMessage(ctx, chatID, 10, "")
	assert.ErrorIs(t, err, coreerrors.ErrGatewayUnavailable)

	assert.Empty(t, f.log.Records())
}

func TestService_EnforcementActions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	tests := []struct {
		op   string
		want string
	}{
		{op: "kick", want: "Kicked user 4242 in chat -100500: flood."},
		{op: "ban", want: "Banned user 4242 in chat -100500: flood."},
		{op: "unban", want: "Unbanned user 4242 in chat -100500: flood."},
		{op: "unmute", want: "Unmuted user 4242 in chat -100500: flood."},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out, err := f.svc.ModerationAction(ctx, ActionRequest{Op: tt.op, ChatID: chatID, UserID: userID, Reason: "flood"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	assert.Len(t, f.log.Records(), len(tests))
}

func TestService_ModerationActionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "shadowban", ChatID: chatID, UserID: userID})
	assert.ErrorIs(t, err, coreerrors.ErrUnknownOperation)

	_, err = f.svc.ModerationAction(ctx, ActionRequest{Op: "ban", ChatID: chatID})
	assert.ErrorIs(t, err, coreerrors.ErrInvalidInput)

	_, err = f.svc.ModerationAction(ctx, ActionRequest{Op: "mute", ChatID: chatID, UserID: userID, DurationMinutes: -1})
	assert.ErrorIs(t, err, coreerrors.ErrInvalidInput)

	assert.Empty(t, f.gateway.Calls())
	assert.Empty(t, f.log.Records())
}

func TestService_DeleteMessageIsAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	out, err := f.svc.DeleteMessage(ctx, chatID, 77, "off topic")
	require.NoError(t, err)
	assert.Equal(t, "Deleted message 77 in chat -100500: off topic.", out)

	records := f.log.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.ActionDeleteMessage, records[0].Kind)
	assert.Equal(t, "message 77: off topic", records[0].Reason)
}

func TestService_HistoryAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)

	_, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "warn", ChatID: chatID, UserID: userID, Reason: "rude"})
	require.NoError(t, err)
	_, err = f.svc.ModerationAction(ctx, ActionRequest{Op: "ban", ChatID: -7, UserID: userID})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, history, "across all chats")
	assert.Contains(t, history, "warnings: 1, mutes: 0, bans: 1")
	assert.Contains(t, history, "ban in chat -7")
	assert.Contains(t, history, "warn in chat -100500: rude")

	scoped, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "history", ChatID: chatID, UserID: userID})
	require.NoError(t, err)
	assert.Contains(t, scoped, "in chat -100500")
	assert.Contains(t, scoped, "warnings: 1, mutes: 0, bans: 0")

	stats, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "stats"})
	require.NoError(t, err)
	assert.Equal(t, "Moderation stats for all chats (last 2 actions):\nwarn: 1\nban: 1", stats)

	empty, err := f.svc.ModerationAction(ctx, ActionRequest{Op: "stats", ChatID: -9})
	require.NoError(t, err)
	assert.Contains(t, empty, "No moderation actions recorded.")
}
