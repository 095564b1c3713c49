package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so business context
// (run_id, issue_id, etc.) shows up on every log line without each call site
// repeating it.
type LogFields struct {
	RunID      *string // run identifier
	ThreadID   *string // session thread identifier
	IssueID    *string // tracker-native issue id
	Tracker    *string // "github" or "linear"
	Label      *string // trigger label that started the run
	EventType  *string // webhook event type (e.g. "issues.labeled")
	DeliveryID *string // tracker webhook delivery id
	MessageID  *string // Redis stream message ID
	Component  string  // component name (e.g. "manager.worker")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.ThreadID != nil {
		result.ThreadID = next.ThreadID
	}
	if next.IssueID != nil {
		result.IssueID = next.IssueID
	}
	if next.Tracker != nil {
		result.Tracker = next.Tracker
	}
	if next.Label != nil {
		result.Label = next.Label
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like issue bodies.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
