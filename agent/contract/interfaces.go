package contract

import (
	"context"

	"github.com/openai/openai-go"
)

// Invoker is the single LLM invocation surface. History is passed as SDK
// message params because the orchestrator replays it verbatim.
type Invoker interface {
	// Invoke runs a function-calling completion in the given mode and
	// returns the raw assistant message (content and/or tool calls).
	Invoke(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion, mode InvokeMode) (*openai.ChatCompletionMessage, error)

	// Complete runs a plain completion and returns the assistant text.
	Complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error)
}

// DateFormatter converts a human date/time phrase and timezone alias to
// the canonical UTC string. Implementations may consult a model first but
// must fall back to deterministic parsing.
type DateFormatter interface {
	FormatDate(ctx context.Context, text string, tzAlias string) (string, error)
}

// SchedulingProvider is the external booking service surface consumed by
// the action executor. Every method returns the provider-shaped payload
// on success; failures come back as errors for the caller to convert.
type SchedulingProvider interface {
	CreateBooking(ctx context.Context, req BookingRequest) (map[string]any, error)
	ListBookings(ctx context.Context) (map[string]any, error)
	CancelBooking(ctx context.Context, bookingID int64) (map[string]any, error)
	RescheduleBooking(ctx context.Context, bookingUID string, req RescheduleRequest) (map[string]any, error)
}

// ActionExecutor dispatches a named action with accumulated parameters.
// The returned payload is always usable as a tool-result record; it never
// raises for provider failures.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, params map[string]any) map[string]any
}
