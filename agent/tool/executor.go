package tool

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	contractx "github.com/witchaya/calbot/agent/contract"
	timeparsex "github.com/witchaya/calbot/agent/timeparse"
)

const (
	defaultDuration = 30
	defaultTimezone = "America/New_York"
)

// Executor dispatches fully collected actions to the scheduling
// provider. It never returns Go errors: provider and argument failures
// become {"error": ..., "status": "error"} payloads so the conversation
// can carry them back to the model.
type Executor struct {
	provider contractx.SchedulingProvider
	dates    contractx.DateFormatter
}

var _ contractx.ActionExecutor = (*Executor)(nil)

func NewExecutor(provider contractx.SchedulingProvider, dates contractx.DateFormatter) *Executor {
	return &Executor{provider: provider, dates: dates}
}

func (e *Executor) Execute(ctx context.Context, action string, params map[string]any) map[string]any {
	log.Debug().Str("action", action).Interface("params", params).Msg("executing action")

	switch Action(action) {
	case ActionCreateBooking:
		return e.createBooking(ctx, params)
	case ActionListBookings:
		return e.passthrough(e.provider.ListBookings(ctx))
	case ActionCancelBooking:
		bookingID, err := intArg(params, "booking_id")
		if err != nil {
			return errorPayload(err)
		}
		return e.passthrough(e.provider.CancelBooking(ctx, bookingID))
	case ActionRescheduleBooking:
		return e.rescheduleBooking(ctx, params)
	default:
		return map[string]any{"error": fmt.Sprintf("Unknown function: %s", action)}
	}
}

func (e *Executor) createBooking(ctx context.Context, params map[string]any) map[string]any {
	eventTypeID := intArgOr(params, "event_type_id", 0)
	duration := intArgOr(params, "duration", defaultDuration)
	timeZone := strArgOr(params, "attendee_timezone", defaultTimezone)

	req := contractx.BookingRequest{
		EventTypeID: eventTypeID,
		Start:       e.formatStart(ctx, strArgOr(params, "start_time", ""), timeZone),
		Name:        strArgOr(params, "attendee_name", ""),
		Email:       strArgOr(params, "attendee_email", ""),
		TimeZone:    timeZone,
	}
	// A positive event_type_id always wins over duration.
	if eventTypeID <= 0 {
		req.Duration = duration
	}

	return e.passthrough(e.provider.CreateBooking(ctx, req))
}

func (e *Executor) rescheduleBooking(ctx context.Context, params map[string]any) map[string]any {
	timeZone := strArgOr(params, "attendee_timezone", defaultTimezone)

	return e.passthrough(e.provider.RescheduleBooking(ctx,
		strArgOr(params, "booking_uid", ""),
		contractx.RescheduleRequest{
			Start:    e.formatStart(ctx, strArgOr(params, "new_start_time", ""), timeZone),
			TimeZone: timeZone,
		},
	))
}

// formatStart normalizes a non-canonical start time at the dispatch
// site, model-first. Normalization failure keeps the raw string: the
// provider client re-validates deterministically and the turn degrades
// to its error payload instead of aborting here.
func (e *Executor) formatStart(ctx context.Context, start string, timeZone string) string {
	if start == "" || timeparsex.LooksCanonical(start) || e.dates == nil {
		return start
	}
	formatted, err := e.dates.FormatDate(ctx, start, timeZone)
	if err != nil {
		log.Debug().Err(err).Str("start", start).Msg("start time normalization failed, passing raw value through")
		return start
	}
	return formatted
}

func (e *Executor) passthrough(payload map[string]any, err error) map[string]any {
	if err != nil {
		return errorPayload(err)
	}
	return payload
}

func errorPayload(err error) map[string]any {
	return map[string]any{
		"error":  err.Error(),
		"status": "error",
	}
}

/* ---------------------------- argument coercion --------------------------- */

func intArg(params map[string]any, name string) (int64, error) {
	raw, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("missing required parameter: %s", name)
	}
	id, ok := coerceInt(raw)
	if !ok {
		return 0, fmt.Errorf("invalid value for %s: %v", name, raw)
	}
	return id, nil
}

func intArgOr(params map[string]any, name string, fallback int64) int64 {
	raw, ok := params[name]
	if !ok {
		return fallback
	}
	if v, ok := coerceInt(raw); ok {
		return v
	}
	return fallback
}

func strArgOr(params map[string]any, name string, fallback string) string {
	if v, ok := params[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

func coerceInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
