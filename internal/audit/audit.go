package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event types emitted by the engine.
const (
	TypeLogin             = "login"
	TypeLoginFailed       = "login_failed"
	TypeAccountLocked     = "account_locked"
	TypeAccountUnlocked   = "account_unlocked"
	TypeLogout            = "logout"
	TypeTokenRevoked      = "token_revoked"
	TypeAccountCreated    = "account_created"
	TypeCredentialChanged = "credential_changed"
	TypeRoleAssigned      = "role_assigned"
	TypeRoleRevoked       = "role_revoked"
	TypeOTPIssued         = "otp_issued"
	TypeOTPVerified       = "otp_verified"
)

// Event is one security-relevant occurrence.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	UserID    int64             `json:"user_id,omitempty"`
	Section   string            `json:"section,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives dispatched events. Emit must not block indefinitely; slow
// sinks cost buffered events, not request latency.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer channel, for tests and custom
// pipelines.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// ZerologSink writes events as structured log lines.
type ZerologSink struct {
	log zerolog.Logger
}

func NewZerologSink(log zerolog.Logger) *ZerologSink {
	return &ZerologSink{log: log}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	line := s.log.Info()
	if !event.Success {
		line = s.log.Warn()
	}
	line.
		Str("audit", event.Type).
		Int64("user_id", event.UserID).
		Str("section", event.Section).
		Str("ip", event.IP).
		Bool("success", event.Success).
		Str("error", event.Error).
		Fields(map[string]any{"meta": event.Metadata}).
		Msg("audit event")
}
