package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// commandHandler is a function that handles a specific bot command.
type commandHandler func(ctx context.Context, msg *tgbotapi.Message)

// commandRegistry holds the mapping of command names to their handlers.
type commandRegistry struct {
	handlers map[string]commandHandler
}

func (b *Bot) newCommandRegistry() *commandRegistry {
	r := &commandRegistry{handlers: make(map[string]commandHandler)}

	r.handlers[CmdStart] = b.handleHelp
	r.handlers[CmdHelp] = b.handleHelp

	// Ledger-backed actions share one handler keyed by the action kind.
	for _, kind := range []domain.ActionKind{
		domain.ActionWarn,
		domain.ActionMute,
		domain.ActionUnmute,
		domain.ActionKick,
		domain.ActionBan,
		domain.ActionUnban,
	} {
		r.handlers[string(kind)] = b.actionHandler(kind)
	}

	r.handlers[CmdHistory] = b.handleHistory
	r.handlers[CmdStats] = b.handleStats
	r.handlers[CmdDrain] = b.handleDrain
	r.handlers[CmdDelete] = b.handleDelete

	return r
}

// route runs the handler for msg's command and reports whether one exists.
func (r *commandRegistry) route(ctx context.Context, msg *tgbotapi.Message) bool {
	handler, ok := r.handlers[msg.Command()]
	if !ok {
		return false
	}

	handler(ctx, msg)

	return true
}
