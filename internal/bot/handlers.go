package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/moderation"
)

func (b *Bot) handleHelp(_ context.Context, msg *tgbotapi.Message) {
	b.reply(msg, textHelp)
}

func (b *Bot) actionHandler(kind domain.ActionKind) commandHandler {
	return func(ctx context.Context, msg *tgbotapi.Message) {
		userID, args, ok := commandTarget(msg)
		if !ok {
			b.reply(msg, textReplyRequired)

			return
		}

		req := moderation.ActionRequest{
			Op:     string(kind),
			ChatID: msg.Chat.ID,
			UserID: userID,
			Reason: args,
		}

		if kind == domain.ActionMute {
			req.DurationMinutes, req.Reason = parseMuteArgs(args)
		}

		text, err := b.moderator.ModerationAction(ctx, req)
		b.replyResult(msg, text, err)
	}
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	userID, _, ok := commandTarget(msg)
	if !ok {
		b.reply(msg, "Usage: reply with /history or send /history <user_id>")

		return
	}

	text, err := b.moderator.History(ctx, userID)
	b.replyResult(msg, text, err)
}

// handleStats reports chat-wide counts, or one user's when a target is given.
func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	userID, _, _ := commandTarget(msg)

	text, err := b.moderator.ModerationAction(ctx, moderation.ActionRequest{
		Op:     CmdStats,
		ChatID: msg.Chat.ID,
		UserID: userID,
	})
	b.replyResult(msg, text, err)
}

func (b *Bot) handleDrain(_ context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			b.reply(msg, "Usage: /drain [chat_id]")

			return
		}

		chatID = id
	}

	msgs, err := b.moderator.DrainMessages(chatID)
	if coreerrors.Is(err, coreerrors.ErrBufferEmpty) {
		b.reply(msg, textBufferEmpty)

		return
	}

	if err != nil {
		b.replyResult(msg, "", err)

		return
	}

	b.reply(msg, formatTranscript(chatID, msgs))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		b.reply(msg, "Reply to the message you want to delete.")

		return
	}

	text, err := b.moderator.DeleteMessage(ctx, msg.Chat.ID, int64(msg.ReplyToMessage.MessageID), msg.CommandArguments())
	b.replyResult(msg, text, err)
}

func (b *Bot) replyResult(msg *tgbotapi.Message, text string, err error) {
	if err != nil {
		b.logger.Warn().Err(err).Str(LogFieldCommand, msg.Command()).Int64(LogFieldChatID, msg.Chat.ID).Msg("command failed")
		b.reply(msg, "Failed: "+err.Error())

		return
	}

	b.reply(msg, text)
}

// commandTarget resolves the user a command acts on: the author of the
// replied-to message, or a numeric user ID given as the first argument.
// The remaining arguments are returned as args.
func commandTarget(msg *tgbotapi.Message) (userID int64, args string, ok bool) {
	args = strings.TrimSpace(msg.CommandArguments())

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From.ID, args, true
	}

	first, rest, _ := strings.Cut(args, " ")

	id, err := strconv.ParseInt(first, 10, 64)
	if err != nil || id == 0 {
		return 0, args, false
	}

	return id, strings.TrimSpace(rest), true
}

// parseMuteArgs splits "/mute [minutes] [reason]" arguments.
func parseMuteArgs(args string) (minutes int, reason string) {
	first, rest, _ := strings.Cut(args, " ")

	n, err := strconv.Atoi(first)
	if err != nil || n <= 0 {
		return 0, args
	}

	return n, strings.TrimSpace(rest)
}

func formatTranscript(chatID int64, msgs []domain.BufferedMessage) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Drained %d messages from chat %d:\n", len(msgs), chatID)

	for _, m := range msgs {
		fmt.Fprintf(&sb, "\n[%s] %s (%d) #%d", m.ReceivedAt.Format("15:04:05"), m.AuthorName, m.AuthorID, m.MessageID)

		for _, flag := range messageFlags(m) {
			sb.WriteString(" [" + flag + "]")
		}

		if m.Text != "" {
			sb.WriteString(": " + truncateRunes(m.Text, TranscriptTextLimit))
		}
	}

	return sb.String()
}

func messageFlags(m domain.BufferedMessage) []string {
	var flags []string

	if m.IsForward {
		flags = append(flags, "fwd")
	}

	if m.HasAttachment {
		flags = append(flags, "media")
	}

	if m.IsJoin {
		flags = append(flags, "join")
	}

	return flags
}
