// Package escalation tracks the warn -> mute -> ban ladder per user and chat.
//
// The ledger only recommends. Muting or banning is always a separate,
// explicit call made by whoever reads the recommendation.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
	coreerrors "github.com/lueurxax/chat-moderator-bot/internal/core/errors"
	"github.com/lueurxax/chat-moderator-bot/internal/core/ports"
	"github.com/lueurxax/chat-moderator-bot/internal/platform/observability"
)

const (
	defaultHistoryLimit = 10
	defaultStatsLimit   = 100
)

// Recommendation is the advisory next step on the ladder.
type Recommendation string

const (
	RecommendNone Recommendation = ""
	RecommendMute Recommendation = "mute"
	RecommendBan  Recommendation = "ban"
)

// Outcome is the result of recording an action.
type Outcome struct {
	Record domain.ModerationRecord
	// Count is the number of warnings (for warn) or mutes (for mute) the
	// user has in the chat, including this one. Zero for other kinds.
	Count     int
	Recommend Recommendation
}

// History summarizes a user's record, optionally scoped to one chat.
type History struct {
	UserID   int64
	ChatID   int64
	Warnings int
	Mutes    int
	Bans     int
	Recent   []domain.ModerationRecord
}

// Stats counts actions by kind over the most recent matching records.
type Stats struct {
	ChatID  int64
	UserID  int64
	Sampled int
	ByKind  map[domain.ActionKind]int
}

// Options tunes the read side of the ledger.
type Options struct {
	HistoryLimit int
	StatsLimit   int
}

type Ledger struct {
	log          ports.ModerationLog
	policy       domain.EscalationPolicy
	historyLimit int
	statsLimit   int
	logger       *zerolog.Logger
	now          func() time.Time
}

func New(log ports.ModerationLog, policy domain.EscalationPolicy, opts Options, logger *zerolog.Logger) *Ledger {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}

	if opts.StatsLimit <= 0 {
		opts.StatsLimit = defaultStatsLimit
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Ledger{
		log:          log,
		policy:       policy,
		historyLimit: opts.HistoryLimit,
		statsLimit:   opts.StatsLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// Policy returns the configured escalation thresholds.
func (l *Ledger) Policy() domain.EscalationPolicy {
	return l.policy
}

// RecordWarning appends a warning together with its audit record and
// recommends a mute once the user reached WarnsBeforeMute warnings in the chat.
func (l *Ledger) RecordWarning(ctx context.Context, userID, chatID int64, reason string) (Outcome, error) {
	if err := requireIDs(userID, chatID); err != nil {
		return Outcome{}, err
	}

	record := l.newRecord(domain.ActionWarn, userID, chatID, reason)
	warning := domain.WarningRecord{
		UserID:    userID,
		ChatID:    chatID,
		Reason:    reason,
		CreatedAt: record.CreatedAt,
	}

	if err := l.log.AppendWarning(ctx, warning, record); err != nil {
		return Outcome{}, storageErr("append warning", err)
	}

	observability.ModerationActions.WithLabelValues(string(domain.ActionWarn)).Inc()

	count, err := l.log.CountWarnings(ctx, domain.RecordFilter{UserID: userID, ChatID: chatID})
	if err != nil {
		return Outcome{Record: record}, storageErr("count warnings", err)
	}

	out := Outcome{Record: record, Count: count}
	if l.policy.WarnsBeforeMute > 0 && count >= l.policy.WarnsBeforeMute {
		out.Recommend = RecommendMute
	}

	l.observe(out)

	return out, nil
}

// RecordMute appends a mute and recommends a ban once the user reached
// MutesBeforeBan mutes in the chat.
func (l *Ledger) RecordMute(ctx context.Context, userID, chatID int64, reason string) (Outcome, error) {
	if err := requireIDs(userID, chatID); err != nil {
		return Outcome{}, err
	}

	record := l.newRecord(domain.ActionMute, userID, chatID, reason)
	if err := l.append(ctx, record); err != nil {
		return Outcome{}, err
	}

	count, err := l.log.CountModerationRecords(ctx, domain.RecordFilter{
		UserID: userID,
		ChatID: chatID,
		Kind:   domain.ActionMute,
	})
	if err != nil {
		return Outcome{Record: record}, storageErr("count mutes", err)
	}

	out := Outcome{Record: record, Count: count}
	if l.policy.MutesBeforeBan > 0 && count >= l.policy.MutesBeforeBan {
		out.Recommend = RecommendBan
	}

	l.observe(out)

	return out, nil
}

// RecordAction appends an audit record of any kind. Warnings and mutes are
// routed through their ladder-aware counterparts. Message deletions may omit
// the user when the author is unknown.
func (l *Ledger) RecordAction(ctx context.Context, kind domain.ActionKind, userID, chatID int64, reason string) (Outcome, error) {
	switch kind {
	case domain.ActionWarn:
		return l.RecordWarning(ctx, userID, chatID, reason)
	case domain.ActionMute:
		return l.RecordMute(ctx, userID, chatID, reason)
	case domain.ActionDeleteMessage, domain.ActionAutoDelete:
		if chatID == 0 {
			return Outcome{}, fmt.Errorf("chat_id is required: %w", coreerrors.ErrInvalidInput)
		}
	default:
		if !kind.Valid() {
			return Outcome{}, fmt.Errorf("action %q: %w", kind, coreerrors.ErrUnknownOperation)
		}

		if err := requireIDs(userID, chatID); err != nil {
			return Outcome{}, err
		}
	}

	record := l.newRecord(kind, userID, chatID, reason)
	if err := l.append(ctx, record); err != nil {
		return Outcome{}, err
	}

	return Outcome{Record: record}, nil
}

// History returns the user's ladder counts and most recent records. A zero
// chatID spans every chat.
func (l *Ledger) History(ctx context.Context, userID, chatID int64) (History, error) {
	if userID == 0 {
		return History{}, fmt.Errorf("user_id is required: %w", coreerrors.ErrInvalidInput)
	}

	filter := domain.RecordFilter{UserID: userID, ChatID: chatID}

	warnings, err := l.log.CountWarnings(ctx, filter)
	if err != nil {
		return History{}, storageErr("count warnings", err)
	}

	mutes, err := l.countKind(ctx, filter, domain.ActionMute)
	if err != nil {
		return History{}, err
	}

	bans, err := l.countKind(ctx, filter, domain.ActionBan)
	if err != nil {
		return History{}, err
	}

	recent, err := l.log.RecentModerationRecords(ctx, filter, l.historyLimit)
	if err != nil {
		return History{}, storageErr("load recent records", err)
	}

	return History{
		UserID:   userID,
		ChatID:   chatID,
		Warnings: warnings,
		Mutes:    mutes,
		Bans:     bans,
		Recent:   recent,
	}, nil
}

// Stats groups the most recent records matching chatID and userID by kind.
// Zero IDs are wildcards.
func (l *Ledger) Stats(ctx context.Context, chatID, userID int64) (Stats, error) {
	recent, err := l.log.RecentModerationRecords(ctx, domain.RecordFilter{ChatID: chatID, UserID: userID}, l.statsLimit)
	if err != nil {
		return Stats{}, storageErr("load recent records", err)
	}

	stats := Stats{
		ChatID:  chatID,
		UserID:  userID,
		Sampled: len(recent),
		ByKind:  make(map[domain.ActionKind]int),
	}

	for _, r := range recent {
		stats.ByKind[r.Kind]++
	}

	return stats, nil
}

func (l *Ledger) append(ctx context.Context, record domain.ModerationRecord) error {
	if err := l.log.AppendModerationRecord(ctx, record); err != nil {
		return storageErr("append "+string(record.Kind), err)
	}

	observability.ModerationActions.WithLabelValues(string(record.Kind)).Inc()

	return nil
}

func (l *Ledger) countKind(ctx context.Context, filter domain.RecordFilter, kind domain.ActionKind) (int, error) {
	filter.Kind = kind

	n, err := l.log.CountModerationRecords(ctx, filter)
	if err != nil {
		return 0, storageErr("count "+string(kind), err)
	}

	return n, nil
}

func (l *Ledger) newRecord(kind domain.ActionKind, userID, chatID int64, reason string) domain.ModerationRecord {
	return domain.ModerationRecord{
		ID:        uuid.NewString(),
		Kind:      kind,
		ChatID:    chatID,
		UserID:    userID,
		Reason:    reason,
		CreatedAt: l.now().UTC(),
	}
}

func (l *Ledger) observe(out Outcome) {
	if out.Recommend == RecommendNone {
		return
	}

	observability.EscalationRecommendations.WithLabelValues(string(out.Recommend)).Inc()

	l.logger.Info().
		Int64(logFieldChatID, out.Record.ChatID).
		Int64(logFieldUserID, out.Record.UserID).
		Str(logFieldKind, string(out.Record.Kind)).
		Int(logFieldCount, out.Count).
		Str(logFieldRecommend, string(out.Recommend)).
		Msg("escalation threshold reached")
}

func requireIDs(userID, chatID int64) error {
	if userID == 0 {
		return fmt.Errorf("user_id is required: %w", coreerrors.ErrInvalidInput)
	}

	if chatID == 0 {
		return fmt.Errorf("chat_id is required: %w", coreerrors.ErrInvalidInput)
	}

	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, coreerrors.ErrStorageUnavailable, err)
}
