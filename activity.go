package accounts

import (
	"context"
	"time"
)

// ActivityEventType identifies an account lifecycle event.
type ActivityEventType string

const (
	ActivityEventSignupRequested      ActivityEventType = "account.signup_requested"
	ActivityEventAccountActivated     ActivityEventType = "account.activated"
	ActivityEventLoginSuccess         ActivityEventType = "account.login_success"
	ActivityEventLoginFailure         ActivityEventType = "account.login_failure"
	ActivityEventPasswordResetRequest ActivityEventType = "account.password_reset_requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "account.password_reset_success"
)

// ActorRef identifies who/what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent describes a lifecycle event for audit purposes.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives lifecycle events. Sinks run best-effort: failures are
// logged, never propagated into the request path.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function into an ActivitySink.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record satisfies the ActivitySink interface.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(sink ActivitySink) ActivitySink {
	if sink == nil {
		return noopActivitySink{}
	}
	return sink
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("activity sink record error: %v", err)
	}
}
