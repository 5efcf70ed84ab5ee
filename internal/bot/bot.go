// Package bot is the Telegram side of the moderator: it turns group updates
// into buffered messages, routes admin commands to the moderation service and
// executes moderation calls through the Bot API.
package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/config"
)

// Moderator is the moderation service as seen from the chat transport.
type Moderator interface {
	HandleInbound(ctx context.Context, msg domain.BufferedMessage) (moderation.InboundResult, error)
	DrainMessages(chatID int64) ([]domain.BufferedMessage, error)
	ModerationAction(ctx context.Context, req moderation.ActionRequest) (string, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64, reason string) (string, error)
	History(ctx context.Context, userID int64) (string, error)
}

// API is the Bot API client surface the update loop needs.
type API interface {
	Requester
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	cfg        config.TelegramBotConfig
	api        API
	moderator  Moderator
	dispatcher *Dispatcher
	registry   *commandRegistry
	logger     *zerolog.Logger
}

func New(cfg config.TelegramBotConfig, api API, moderator Moderator, logger *zerolog.Logger) *Bot {
	b := &Bot{
		cfg:        cfg,
		api:        api,
		moderator:  moderator,
		dispatcher: NewDispatcher(cfg.ChatQueueLen, logger),
		logger:     logger,
	}

	b.registry = b.newCommandRegistry()

	return b
}

// NewAPI connects to the Bot API with the configured token.
func NewAPI(cfg config.TelegramBotConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return api, nil
}

// Run consumes updates until ctx is canceled, then waits for every queued
// chat task to finish.
func (b *Bot) Run(ctx context.Context) error {
	timeout := b.cfg.PollTimeout
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeout
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	defer b.dispatcher.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			b.handleUpdate(ctx, update)
		}
	}
}

// SweepIdleChats drops per-chat workers idle for longer than the configured TTL.
func (b *Bot) SweepIdleChats(_ context.Context) error {
	ttl := b.cfg.ChatIdleTTL
	if ttl <= 0 {
		ttl = defaultChatIdleTTL
	}

	if removed := b.dispatcher.Sweep(time.Now().Add(-ttl)); removed > 0 {
		b.logger.Debug().Int("removed", removed).Int("active", b.dispatcher.Active()).Msg("swept idle chat workers")
	}

	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return
	}

	isCommand := msg.IsCommand() && b.isAdmin(msg.From.ID)

	if !isCommand && !isGroupChat(msg.Chat) {
		return
	}

	err := b.dispatcher.Dispatch(ctx, msg.Chat.ID, func(taskCtx context.Context) {
		if isCommand {
			b.handleCommand(taskCtx, msg)

			return
		}

		b.handleGroupMessage(taskCtx, msg)
	})
	if err != nil {
		b.logger.Warn().Err(err).Int64(LogFieldChatID, msg.Chat.ID).Msg("update dropped")
	}
}

func (b *Bot) handleGroupMessage(ctx context.Context, msg *tgbotapi.Message) {
	res, err := b.moderator.HandleInbound(ctx, toBufferedMessage(msg))
	if err != nil {
		b.logger.Error().Err(err).Int64(LogFieldChatID, msg.Chat.ID).Int64(LogFieldUserID, msg.From.ID).Msg("failed to handle inbound message")

		return
	}

	if res.Deleted {
		b.logger.Debug().Int64(LogFieldChatID, msg.Chat.ID).Str("reason", res.Reason).Msg("inbound message deleted")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.logger.Info().Str(LogFieldCommand, msg.Command()).Int64(LogFieldUserID, msg.From.ID).Int64(LogFieldChatID, msg.Chat.ID).Msg("Handling command")

	if !b.registry.route(ctx, msg) {
		b.reply(msg, textUnknownCmd)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return slices.Contains(b.cfg.AdminIDs, userID)
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range splitText(text, MaxMessageSize) {
		out := tgbotapi.NewMessage(chatID, part)
		out.DisableWebPagePreview = true

		if _, err := b.api.Request(out); err != nil {
			b.logger.Error().Err(err).Int64(LogFieldChatID, chatID).Msg("failed to send reply")
		}
	}
}

func isGroupChat(chat *tgbotapi.Chat) bool {
	return chat.Type == chatTypeGroup || chat.Type == chatTypeSupergroup
}

// toBufferedMessage maps a Bot API message onto the buffer's message model.
// Captions stand in for text on media posts.
func toBufferedMessage(msg *tgbotapi.Message) domain.BufferedMessage {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	return domain.BufferedMessage{
		ChatID:        msg.Chat.ID,
		MessageID:     int64(msg.MessageID),
		AuthorID:      msg.From.ID,
		AuthorName:    displayName(msg.From),
		Text:          text,
		ReceivedAt:    messageTime(msg),
		HasAttachment: hasAttachment(msg),
		IsForward:     msg.ForwardDate != 0,
		IsJoin:        len(msg.NewChatMembers) > 0,
	}
}

func messageTime(msg *tgbotapi.Message) time.Time {
	if msg.Date == 0 {
		return time.Now().UTC()
	}

	return msg.Time().UTC()
}

func hasAttachment(msg *tgbotapi.Message) bool {
	return len(msg.Photo) > 0 ||
		msg.Document != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		msg.Voice != nil ||
		msg.Animation != nil ||
		msg.Sticker != nil ||
		msg.VideoNote != nil
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}

	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
