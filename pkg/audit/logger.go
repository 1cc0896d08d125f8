package audit

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/taskboard/pkg/contextkeys"
	"github.com/platinummonkey/taskboard/pkg/observability"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *AuditEvent) error

	// Close flushes any buffered events
	Close() error
}

// prepare fills the timestamp and request id when the caller left them empty
func prepare(ctx context.Context, event *AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}
}

// LogrusLogger writes audit events as structured log entries
type LogrusLogger struct {
	logger *observability.Logger
}

// NewLogrusLogger creates an audit sink on top of logger
func NewLogrusLogger(logger *observability.Logger) *LogrusLogger {
	return &LogrusLogger{logger: logger.WithField("audit", true)}
}

// Log writes the event. Denials and failures are logged at warn level.
func (l *LogrusLogger) Log(ctx context.Context, event *AuditEvent) error {
	prepare(ctx, event)

	fields := map[string]interface{}{
		"event_type": string(event.EventType),
		"status":     string(event.Status),
		"timestamp":  event.Timestamp.Format(time.RFC3339Nano),
	}
	if event.UserID != "" {
		fields["user_id"] = event.UserID
	}
	if event.OrganizationID != "" {
		fields["organization_id"] = event.OrganizationID
	}
	if event.ResourceType != "" {
		fields["resource_type"] = string(event.ResourceType)
		fields["resource_id"] = event.ResourceID
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := l.logger.WithFields(fields)
	message := event.Message
	if message == "" {
		message = string(event.EventType)
	}
	if event.Status == EventStatusSuccess {
		entry.Info(message)
	} else {
		entry.Warn(message)
	}
	return nil
}

// Close is a no-op; the underlying logger is owned by the caller
func (l *LogrusLogger) Close() error {
	return nil
}

// MemoryLogger keeps events in memory, for tests and diagnostics
type MemoryLogger struct {
	mu     sync.Mutex
	events []*AuditEvent
}

// NewMemoryLogger creates an empty in-memory audit sink
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

// Log appends a copy of the event
func (l *MemoryLogger) Log(ctx context.Context, event *AuditEvent) error {
	prepare(ctx, event)
	copied := *event
	l.mu.Lock()
	l.events = append(l.events, &copied)
	l.mu.Unlock()
	return nil
}

// Events returns the recorded events, oldest first
func (l *MemoryLogger) Events() []*AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*AuditEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Close is a no-op
func (l *MemoryLogger) Close() error {
	return nil
}

// noOpLogger is a logger that does nothing (used when no logger is configured)
type noOpLogger struct{}

func (noOpLogger) Log(context.Context, *AuditEvent) error { return nil }
func (noOpLogger) Close() error { return nil }

// NoOp returns a logger that discards every event
func NoOp() Logger {
	return noOpLogger{}
}

// OrNoOp returns l, or a discarding logger when l is nil
func OrNoOp(l Logger) Logger {
	if l == nil {
		return noOpLogger{}
	}
	return l
}
