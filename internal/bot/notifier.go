package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
)

var _ ports.ReviewSink = (*ReviewNotifier)(nil)

// ReviewNotifier posts review requests to the reviewer chat. With no chat
// configured the requests are only logged, and the reviewer is expected to
// poll buffer_drain on its own schedule.
type ReviewNotifier struct {
	api    Requester
	chatID int64
	logger *zerolog.Logger
}

func NewReviewNotifier(api Requester, reviewChatID int64, logger *zerolog.Logger) *ReviewNotifier {
	return &ReviewNotifier{api: api, chatID: reviewChatID, logger: logger}
}

func (n *ReviewNotifier) NotifyReview(_ context.Context, req domain.ReviewRequest) error {
	n.logger.Info().
		Int64(LogFieldChatID, req.ChatID).
		Str("trigger", string(req.Trigger)).
		Int("messages", req.Messages).
		Int("bytes", req.Bytes).
		Msg("review requested")

	if n.chatID == 0 {
		return nil
	}

	text := fmt.Sprintf("Review chat %d: %s (%d messages, %d bytes buffered).",
		req.ChatID, req.Reason(), req.Messages, req.Bytes)

	if _, err := n.api.Request(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("send review request for chat %d: %w", req.ChatID, err)
	}

	return nil
}
