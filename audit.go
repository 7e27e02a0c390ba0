package userguard

import (
	"context"
	"time"

	"github.com/identware/userguard/internal/audit"
)

// AuditEvent is a security event emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events; see [NewAuditChannelSink] and
// [audit.ZerologSink] for ready-made implementations.
type AuditSink = audit.Sink

// AuditConfig controls the async audit dispatcher.
type AuditConfig = audit.Config

// NewAuditChannelSink returns a sink delivering events on a channel.
func NewAuditChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// AuditDropped reports audit events discarded under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close stops background workers. The engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// emitAudit records one security event. Never blocks the request path
// beyond the dispatcher's configured policy.
func (e *Engine) emitAudit(ctx context.Context, eventType string, userID int64, success bool, cause error, meta map[string]string) {
	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		UserID:    userID,
		Section:   string(sectionFromContext(ctx)),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  meta,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}
