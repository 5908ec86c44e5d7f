package contract

// InvokeMode selects how the model is asked to use the action catalog.
// The zero value is Open: the model may request zero or more actions.
// Constrained forces the model to emit exactly one call to the named
// action, which is how missing parameters are extracted mid-collection.
type InvokeMode struct {
	forced string
}

func OpenMode() InvokeMode {
	return InvokeMode{}
}

func ConstrainedMode(action string) InvokeMode {
	return InvokeMode{forced: action}
}

// Forced returns the action name the model is constrained to, if any.
func (m InvokeMode) Forced() (string, bool) {
	return m.forced, m.forced != ""
}

// ToolResult records the outcome of one executed action. Payload is
// always data: provider failures arrive here as
// {"status":"error","error":...} rather than as Go errors, so the model
// can narrate them.
type ToolResult struct {
	CallID  string         `json:"tool_call_id"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

// BookingRequest carries a fully collected create_booking action.
// EventTypeID > 0 selects an existing event type and always wins over
// Duration; otherwise Duration (minutes) drives find-or-create.
type BookingRequest struct {
	EventTypeID int64
	Duration    int64
	Start       string
	Name        string
	Email       string
	TimeZone    string
}

// RescheduleRequest carries a reschedule_booking action.
type RescheduleRequest struct {
	Start    string
	TimeZone string
}
