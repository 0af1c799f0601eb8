package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventAccountCreated   ActivityEventType = "account.created"
	ActivityEventRoleAssigned     ActivityEventType = "account.role.assigned"
	ActivityEventTokenAttached    ActivityEventType = "account.token.attached"
	ActivityEventCredentialFailed ActivityEventType = "account.credential.failed"
	ActivityEventTokenRejected    ActivityEventType = "account.token.rejected"
)

// MetadataKeyErrorKind stores the failure kind of rejected credential and
// token events.
const MetadataKeyErrorKind = "kind"

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	AccountID  string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
