package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
)

// Requester is the part of the Bot API client every outgoing call goes through.
type Requester interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

var _ ports.ModerationGateway = (*Gateway)(nil)

// Gateway executes moderation commands through the Telegram Bot API.
type Gateway struct {
	api     Requester
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewGateway(api Requester, rps float64, logger *zerolog.Logger) *Gateway {
	if rps <= 0 {
		rps = defaultGatewayRPS
	}

	return &Gateway{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(rps), gatewayBurst),
		logger:  logger,
	}
}

func (g *Gateway) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return g.do(ctx, opDeleteMessage, tgbotapi.NewDeleteMessage(chatID, int(messageID)))
}

// Mute revokes every send permission until the given time. Telegram treats
// restrictions shorter than 30 seconds or longer than 366 days as forever.
func (g *Gateway) Mute(ctx context.Context, chatID, userID int64, until time.Time) error {
	return g.do(ctx, opMute, tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: memberOf(chatID, userID),
		UntilDate:        until.Unix(),
		Permissions:      &tgbotapi.ChatPermissions{},
	})
}

func (g *Gateway) Unmute(ctx context.Context, chatID, userID int64) error {
	return g.do(ctx, opUnmute, tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: memberOf(chatID, userID),
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	})
}

// Kick removes the user but lets them rejoin: a ban immediately lifted.
func (g *Gateway) Kick(ctx context.Context, chatID, userID int64) error {
	if err := g.do(ctx, opKick, tgbotapi.BanChatMemberConfig{ChatMemberConfig: memberOf(chatID, userID)}); err != nil {
		return err
	}

	return g.do(ctx, opKick, tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: memberOf(chatID, userID),
		OnlyIfBanned:     true,
	})
}

func (g *Gateway) Ban(ctx context.Context, chatID, userID int64) error {
	return g.do(ctx, opBan, tgbotapi.BanChatMemberConfig{ChatMemberConfig: memberOf(chatID, userID)})
}

func (g *Gateway) Unban(ctx context.Context, chatID, userID int64) error {
	return g.do(ctx, opUnban, tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: memberOf(chatID, userID),
		OnlyIfBanned:     true,
	})
}

func (g *Gateway) SendNotice(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	return g.do(ctx, opSendNotice, msg)
}

func (g *Gateway) do(ctx context.Context, op string, c tgbotapi.Chattable) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf(ErrFmtGatewayCall, op, err)
	}

	start := time.Now()
	_, err := g.api.Request(c)

	observability.GatewayRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.GatewayErrors.WithLabelValues(op).Inc()
		g.logger.Debug().Err(err).Str(LogFieldOp, op).Msg("telegram request failed")

		return fmt.Errorf(ErrFmtGatewayCall, op, err)
	}

	return nil
}

func memberOf(chatID, userID int64) tgbotapi.ChatMemberConfig {
	return tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID}
}
