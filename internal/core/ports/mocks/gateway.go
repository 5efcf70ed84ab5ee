package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lueurxax/chat-moderator-bot/internal/core/domain"
)

// GatewayCall records a single platform call made through Gateway.
type GatewayCall struct {
	Op        string
	ChatID    int64
	UserID    int64
	MessageID int64
	Until     time.Time
	Text      string
}

// Gateway is a recording implementation of ports.ModerationGateway.
type Gateway struct {
	mu    sync.Mutex
	calls []GatewayCall

	// Err, when set, is returned from every call after it is recorded.
	Err error
}

// NewGateway creates a gateway mock whose calls all succeed.
func NewGateway() *Gateway {
	return &Gateway{}
}

func (g *Gateway) record(call GatewayCall) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, call)

	if g.Err != nil {
		return fmt.Errorf("%s: %w", call.Op, g.Err)
	}

	return nil
}

// DeleteMessage records a delete call.
func (g *Gateway) DeleteMessage(_ context.Context, chatID, messageID int64) error {
	return g.record(GatewayCall{Op: "delete", ChatID: chatID, MessageID: messageID})
}

// Mute records a mute call.
func (g *Gateway) Mute(_ context.Context, chatID, userID int64, until time.Time) error {
	return g.record(GatewayCall{Op: string(domain.ActionMute), ChatID: chatID, UserID: userID, Until: until})
}

// Unmute records an unmute call.
func (g *Gateway) Unmute(_ context.Context, chatID, userID int64) error {
	return g.record(GatewayCall{Op: string(domain.ActionUnmute), ChatID: chatID, UserID: userID})
}

// Kick records a kick call.
func (g *Gateway) Kick(_ context.Context, chatID, userID int64) error {
	return g.record(GatewayCall{Op: string(domain.ActionKick), ChatID: chatID, UserID: userID})
}

// Ban records a ban call.
func (g *Gateway) Ban(_ context.Context, chatID, userID int64) error {
	return g.record(GatewayCall{Op: string(domain.ActionBan), ChatID: chatID, UserID: userID})
}

// Unban records an unban call.
func (g *Gateway) Unban(_ context.Context, chatID, userID int64) error {
	return g.record(GatewayCall{Op: string(domain.ActionUnban), ChatID: chatID, UserID: userID})
}

// SendNotice records a notice sent to a chat.
func (g *Gateway) SendNotice(_ context.Context, chatID int64, text string) error {
	return g.record(GatewayCall{Op: "notice", ChatID: chatID, Text: text})
}

// Calls returns a copy of the recorded calls.
func (g *Gateway) Calls() []GatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]GatewayCall, len(g.calls))
	copy(out, g.calls)

	return out
}

// ReviewSink collects review requests.
type ReviewSink struct {
	mu       sync.Mutex
	requests []domain.ReviewRequest
}

// NotifyReview records the request.
func (s *ReviewSink) NotifyReview(_ context.Context, req domain.ReviewRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	return nil
}

// Requests returns a copy of the collected requests.
func (s *ReviewSink) Requests() []domain.ReviewRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ReviewRequest, len(s.requests))
	copy(out, s.requests)

	return out
}
