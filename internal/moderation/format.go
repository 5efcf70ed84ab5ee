package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	"github.com/lueurxax/chat-moderator-bot/internal/escalation"
)

var actionVerbs = map[domain.ActionKind]string{
	domain.ActionUnmute: "Unmuted",
	domain.ActionKick:   "Kicked",
	domain.ActionBan:    "Banned",
	domain.ActionUnban:  "Unbanned",
}

func reasonSuffix(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}

	return ": " + reason
}

func recommendationText(r escalation.Recommendation) string {
	switch r {
	case escalation.RecommendMute:
		return " Recommendation: mute this user."
	case escalation.RecommendBan:
		return " Recommendation: ban this user."
	default:
		return ""
	}
}

func (s *Service) historyText(ctx context.Context, userID, chatID int64) (string, error) {
	h, err := s.ledger.History(ctx, userID, chatID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	if chatID == 0 {
		fmt.Fprintf(&sb, "History for user %d across all chats:\n", userID)
	} else {
		fmt.Fprintf(&sb, "History for user %d in chat %d:\n", userID, chatID)
	}

	fmt.Fprintf(&sb, "warnings: %d, mutes: %d, bans: %d\n", h.Warnings, h.Mutes, h.Bans)

	if len(h.Recent) == 0 {
		sb.WriteString("No moderation actions recorded.")
		return sb.String(), nil
	}

	sb.WriteString("Recent actions:")

	for _, r := range h.Recent {
		fmt.Fprintf(&sb, "\n- %s %s in chat %d%s",
			r.CreatedAt.UTC().Format(time.RFC3339), r.Kind, r.ChatID, reasonSuffix(r.Reason))
	}

	return sb.String(), nil
}

func (s *Service) statsText(ctx context.Context, chatID, userID int64) (string, error) {
	st, err := s.ledger.Stats(ctx, chatID, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	sb.WriteString("Moderation stats for ")
	sb.WriteString(scopeText(chatID, userID))
	fmt.Fprintf(&sb, " (last %d actions)", st.Sampled)

	if st.Sampled == 0 {
		sb.WriteString(":\nNo moderation actions recorded.")
		return sb.String(), nil
	}

	sb.WriteString(":")

	for _, kind := range domain.ActionKinds {
		if n := st.ByKind[kind]; n > 0 {
			fmt.Fprintf(&sb, "\n%s: %d", kind, n)
		}
	}

	return sb.String(), nil
}

func scopeText(chatID, userID int64) string {
	switch {
	case chatID != 0 && userID != 0:
		return fmt.Sprintf("user %d in chat %d", userID, chatID)
	case chatID != 0:
		return fmt.Sprintf("chat %d", chatID)
	case userID != 0:
		return fmt.Sprintf("user %d", userID)
	default:
		return "all chats"
	}
}
