// Package moderation routes inbound chat messages through the content gate
// into the chat buffers, and implements the operations exposed to the
// external reviewer and to chat admins.
package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/buffer"
	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
	"github.com/lueurxax/chat-moderator-bot/internal/escalation"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
	"github.com/lueurxax/chat-moderator-bot/internal/process/filters"
)

// Limits bounds drains and mute durations.
type Limits struct {
	DrainMaxTotalBytes   int
	DrainMaxMessageBytes int
	DefaultMute          time.Duration
}

// Deps are the collaborators of a Service.
type Deps struct {
	Filter    *filters.ContentFilter
	Store     *buffer.Store
	Scheduler *buffer.Scheduler
	Ledger    *escalation.Ledger
	Gateway   ports.ModerationGateway
	Reviews   ports.ReviewSink
}

type Service struct {
	filter    *filters.ContentFilter
	store     *buffer.Store
	scheduler *buffer.Scheduler
	ledger    *escalation.Ledger
	gateway   ports.ModerationGateway
	reviews   ports.ReviewSink
	limits    Limits
	logger    *zerolog.Logger
	now       func() time.Time
}

func New(deps Deps, limits Limits, logger *zerolog.Logger) *Service {
	if limits.DefaultMute <= 0 {
		limits.DefaultMute = defaultMute
	}

	return &Service{
		filter:    deps.Filter,
		store:     deps.Store,
		scheduler: deps.Scheduler,
		ledger:    deps.Ledger,
		gateway:   deps.Gateway,
		reviews:   deps.Reviews,
		limits:    limits,
		logger:    logger,
		now:       time.Now,
	}
}

// InboundResult tells the transport what happened to a message.
type InboundResult struct {
	Deleted bool
	Reason  string
}

// HandleInbound gates msg through the content filter. Violations are deleted
// and audited without touching the buffer; everything else is buffered and
// may immediately request a review when the size threshold is crossed.
func (s *Service) HandleInbound(ctx context.Context, msg domain.BufferedMessage) (InboundResult, error) {
	if msg.ChatID == 0 {
		return InboundResult{}, fmt.Errorf("inbound message without chat: %w", coreerrors.ErrInvalidInput)
	}

	verdict := s.filter.Evaluate(msg.Text)
	if verdict.Violation {
		observability.MessagesReceived.WithLabelValues(resultViolation).Inc()
		observability.FilterViolations.WithLabelValues(verdict.Reason).Inc()

		return InboundResult{Deleted: true, Reason: verdict.Reason}, s.autoDelete(ctx, msg, verdict.Reason)
	}

	observability.MessagesReceived.WithLabelValues(resultBuffered).Inc()

	s.store.Append(msg)
	s.notify(ctx, s.scheduler.EvaluateChat(msg.ChatID, s.now()))

	return InboundResult{}, nil
}

// autoDelete records the audit entry even when the platform call failed, so
// the trail shows the decision; the discrepancy is logged.
func (s *Service) autoDelete(ctx context.Context, msg domain.BufferedMessage, reason string) error {
	if err := s.gateway.DeleteMessage(ctx, msg.ChatID, msg.MessageID); err != nil {
		s.logger.Warn().Err(err).
			Int64(logFieldChatID, msg.ChatID).
			Int64(logFieldMessageID, msg.MessageID).
			Str(logFieldReason, reason).
			Msg("auto-delete failed on the platform, recording anyway")
	}

	if _, err := s.ledger.RecordAction(ctx, domain.ActionAutoDelete, msg.AuthorID, msg.ChatID, reason); err != nil {
		return fmt.Errorf("record auto delete: %w", err)
	}

	s.logger.Info().
		Int64(logFieldChatID, msg.ChatID).
		Int64(logFieldUserID, msg.AuthorID).
		Str(logFieldReason, reason).
		Msg("message deleted by content filter")

	return nil
}

// CheckThresholds evaluates every buffer and forwards fired review requests.
func (s *Service) CheckThresholds(ctx context.Context) int {
	reqs := s.scheduler.Evaluate(s.now())
	s.notify(ctx, reqs)

	chats, messages, bytes := s.store.Stats()
	observability.BufferedChats.Set(float64(chats))
	observability.BufferedMessages.Set(float64(messages))
	observability.BufferedBytes.Set(float64(bytes))

	return len(reqs)
}

func (s *Service) notify(ctx context.Context, reqs []domain.ReviewRequest) {
	for _, req := range reqs {
		observability.ReviewRequests.WithLabelValues(string(req.Trigger)).Inc()

		if err := s.reviews.NotifyReview(ctx, req); err != nil {
			s.logger.Warn().Err(err).
				Int64(logFieldChatID, req.ChatID).
				Str(logFieldTrigger, string(req.Trigger)).
				Msg("review request not delivered")
		}
	}
}

// DrainMessages removes and returns the oldest buffered messages of a chat
// within the configured drain limits.
func (s *Service) DrainMessages(chatID int64) ([]domain.BufferedMessage, error) {
	if chatID == 0 {
		return nil, fmt.Errorf("chat_id is required: %w", coreerrors.ErrInvalidInput)
	}

	msgs := s.store.Drain(chatID, s.limits.DrainMaxTotalBytes, s.limits.DrainMaxMessageBytes)
	if len(msgs) == 0 {
		return nil, coreerrors.ErrBufferEmpty
	}

	observability.BufferDrained.Add(float64(len(msgs)))

	s.logger.Debug().Int64(logFieldChatID, chatID).Int(logFieldCount, len(msgs)).Msg("buffer drained")

	return msgs, nil
}

// BufferDrain is the tool form of DrainMessages: a JSON array of messages,
// or the text "buffer empty".
func (s *Service) BufferDrain(_ context.Context, chatID int64) (string, error) {
	msgs, err := s.DrainMessages(chatID)
	if coreerrors.Is(err, coreerrors.ErrBufferEmpty) {
		return textBufferEmpty, nil
	}

	if err != nil {
		return "", err
	}

	body, err := json.Marshal(msgs)
	if err != nil {
		return "", fmt.Errorf("encode drained messages: %w", err)
	}

	return string(body), nil
}

// ActionRequest is a moderation_action call.
type ActionRequest struct {
	Op              string
	ChatID          int64
	UserID          int64
	Reason          string
	DurationMinutes int
}

// ModerationAction runs op and returns a human-readable summary including
// any escalation recommendation. Platform actions hit the gateway first; if
// that fails nothing is recorded.
func (s *Service) ModerationAction(ctx context.Context, req ActionRequest) (string, error) {
	switch req.Op {
	case opHistory:
		return s.historyText(ctx, req.UserID, req.ChatID)
	case opStats:
		return s.statsText(ctx, req.ChatID, req.UserID)
	case string(domain.ActionWarn):
		return s.warn(ctx, req)
	case string(domain.ActionMute):
		return s.mute(ctx, req)
	case string(domain.ActionUnmute), string(domain.ActionKick), string(domain.ActionBan), string(domain.ActionUnban):
		return s.enforce(ctx, domain.ActionKind(req.Op), req)
	default:
		return "", fmt.Errorf("moderation action %q: %w", req.Op, coreerrors.ErrUnknownOperation)
	}
}

func (s *Service) warn(ctx context.Context, req ActionRequest) (string, error) {
	out, err := s.ledger.RecordWarning(ctx, req.UserID, req.ChatID, req.Reason)
	if err != nil {
		return "", err
	}

	notice := fmt.Sprintf("User %d has been warned%s.", req.UserID, reasonSuffix(req.Reason))
	if err := s.gateway.SendNotice(ctx, req.ChatID, notice); err != nil {
		s.logger.Warn().Err(err).Int64(logFieldChatID, req.ChatID).Msg("warning notice not sent")
	}

	text := fmt.Sprintf("Warned user %d in chat %d%s. Warnings: %d/%d.",
		req.UserID, req.ChatID, reasonSuffix(req.Reason), out.Count, s.ledger.Policy().WarnsBeforeMute)

	return text + recommendationText(out.Recommend), nil
}

func (s *Service) mute(ctx context.Context, req ActionRequest) (string, error) {
	if err := validateTarget(req); err != nil {
		return "", err
	}

	if req.DurationMinutes < 0 {
		return "", fmt.Errorf("duration_minutes must not be negative: %w", coreerrors.ErrInvalidInput)
	}

	duration := s.limits.DefaultMute
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	if err := s.gateway.Mute(ctx, req.ChatID, req.UserID, s.now().Add(duration)); err != nil {
		return "", platformErr(domain.ActionMute, err)
	}

	out, err := s.ledger.RecordMute(ctx, req.UserID, req.ChatID, req.Reason)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf("Muted user %d in chat %d for %d minutes%s. Mutes: %d/%d.",
		req.UserID, req.ChatID, int(duration/time.Minute), reasonSuffix(req.Reason), out.Count, s.ledger.Policy().MutesBeforeBan)

	return text + recommendationText(out.Recommend), nil
}

func (s *Service) enforce(ctx context.Context, kind domain.ActionKind, req ActionRequest) (string, error) {
	if err := validateTarget(req); err != nil {
		return "", err
	}

	var err error

	switch kind {
	case domain.ActionUnmute:
		err = s.gateway.Unmute(ctx, req.ChatID, req.UserID)
	case domain.ActionKick:
		err = s.gateway.Kick(ctx, req.ChatID, req.UserID)
	case domain.ActionBan:
		err = s.gateway.Ban(ctx, req.ChatID, req.UserID)
	case domain.ActionUnban:
		err = s.gateway.Unban(ctx, req.ChatID, req.UserID)
	}

	if err != nil {
		return "", platformErr(kind, err)
	}

	if _, err := s.ledger.RecordAction(ctx, kind, req.UserID, req.ChatID, req.Reason); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s user %d in chat %d%s.", actionVerbs[kind], req.UserID, req.ChatID, reasonSuffix(req.Reason)), nil
}

// DeleteMessage removes one message on the platform and audits it.
func (s *Service) DeleteMessage(ctx context.Context, chatID, messageID int64, reason string) (string, error) {
	if chatID == 0 || messageID == 0 {
		return "", fmt.Errorf("chat_id and message_id are required: %w", coreerrors.ErrInvalidInput)
	}

	if err := s.gateway.DeleteMessage(ctx, chatID, messageID); err != nil {
		return "", platformErr(domain.ActionDeleteMessage, err)
	}

	auditReason := fmt.Sprintf("message %d%s", messageID, reasonSuffix(reason))
	if _, err := s.ledger.RecordAction(ctx, domain.ActionDeleteMessage, 0, chatID, auditReason); err != nil {
		return "", err
	}

	return fmt.Sprintf("Deleted message %d in chat %d%s.", messageID, chatID, reasonSuffix(reason)), nil
}

// History returns the cross-chat moderation summary of a user.
func (s *Service) History(ctx context.Context, userID int64) (string, error) {
	return s.historyText(ctx, userID, 0)
}

func validateTarget(req ActionRequest) error {
	if req.UserID == 0 || req.ChatID == 0 {
		return fmt.Errorf("chat_id and user_id are required: %w", coreerrors.ErrInvalidInput)
	}

	return nil
}

func platformErr(kind domain.ActionKind, err error) error {
	return fmt.Errorf("%s failed on the platform, nothing recorded: %w: %w", kind, coreerrors.ErrGatewayUnavailable, err)
}
