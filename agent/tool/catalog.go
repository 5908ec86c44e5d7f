// Package tool holds the closed catalog of invokable actions and the
// executor that dispatches them against the scheduling provider.
package tool

import (
	"strings"

	"github.com/openai/openai-go"
)

// Action is the closed set of operations the model may request.
type Action string

const (
	ActionCreateBooking     Action = "create_booking"
	ActionListBookings      Action = "list_bookings"
	ActionCancelBooking     Action = "cancel_booking"
	ActionRescheduleBooking Action = "reschedule_booking"
)

type ParamType string

const (
	ParamInteger ParamType = "integer"
	ParamString  ParamType = "string"
)

type Param struct {
	Name     string
	Type     ParamType
	Desc     string
	Required bool
}

// Definition is one immutable action schema, loaded once at process
// start and shared with the model as a strict function declaration.
type Definition struct {
	Action      Action
	Description string
	Params      []Param
}

// catalog order is stable: it is the order the schemas are declared to
// the model.
var catalog = []Definition{
	{
		Action:      ActionCreateBooking,
		Description: "Book a new event with the specified details.",
		Params: []Param{
			{
				Name: "event_type_id",
				Type: ParamInteger,
				Desc: "The ID of the event type to book. Set this to the appropriate ID if you know it, " +
					"or leave it as 0 if you're specifying a custom duration instead.",
				Required: true,
			},
			{
				Name: "duration",
				Type: ParamInteger,
				Desc: "Custom duration of the meeting in minutes (e.g., 45 for a 45-minute meeting). " +
					"The system will find or create an appropriate event type. Set this to the requested " +
					"duration, or leave it as 0 if you're using a specific event_type_id instead.",
				Required: true,
			},
			{
				Name: "start_time",
				Type: ParamString,
				Desc: "Start time in a human-readable format (e.g., '10 April 2025 2pm') or ISO 8601 format. " +
					"This will be properly formatted.",
				Required: true,
			},
			{Name: "attendee_name", Type: ParamString, Desc: "Name of the attendee.", Required: true},
			{Name: "attendee_email", Type: ParamString, Desc: "Email of the attendee.", Required: true},
			{
				Name:     "attendee_timezone",
				Type:     ParamString,
				Desc:     "Timezone of the attendee (e.g., 'America/New_York', 'Asia/Singapore').",
				Required: true,
			},
		},
	},
	{
		Action:      ActionListBookings,
		Description: "List all scheduled bookings.",
	},
	{
		Action:      ActionCancelBooking,
		Description: "Cancel a specific booking by its ID.",
		Params: []Param{
			{Name: "booking_id", Type: ParamInteger, Desc: "ID of the booking to cancel.", Required: true},
		},
	},
	{
		Action:      ActionRescheduleBooking,
		Description: "Reschedule an existing booking to a new time.",
		Params: []Param{
			{
				Name:     "booking_uid",
				Type:     ParamString,
				Desc:     "The unique identifier (UID) of the booking to reschedule.",
				Required: true,
			},
			{
				Name: "new_start_time",
				Type: ParamString,
				Desc: "New start time in a human-readable format (e.g., '10 April 2025 2pm') or ISO 8601 format. " +
					"Must be in the future.",
				Required: true,
			},
			{
				Name:     "attendee_timezone",
				Type:     ParamString,
				Desc:     "Timezone of the attendee (e.g., 'America/New_York', 'Asia/Singapore').",
				Required: true,
			},
		},
	},
}

// Catalog returns the full action catalog in declaration order.
func Catalog() []Definition {
	return catalog
}

// Lookup resolves an action name to its definition.
func Lookup(name string) (Definition, bool) {
	for _, def := range catalog {
		if string(def.Action) == name {
			return def, true
		}
	}
	return Definition{}, false
}

// MissingRequired returns the required parameter names absent from the
// accumulated params, in schema order.
func (d Definition) MissingRequired(params map[string]any) []string {
	var missing []string
	for _, p := range d.Params {
		if !p.Required {
			continue
		}
		if _, ok := params[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// ToolParam exports the definition as a strict OpenAI function schema.
func (d Definition) ToolParam() openai.ChatCompletionToolParam {
	properties := make(map[string]any, len(d.Params))
	required := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		properties[p.Name] = map[string]any{
			"type":        string(p.Type),
			"description": p.Desc,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        string(d.Action),
			Description: openai.String(d.Description),
			Parameters: openai.FunctionParameters{
				"type":                 "object",
				"properties":           properties,
				"required":             required,
				"additionalProperties": false,
			},
			Strict: openai.Bool(true),
		},
	}
}

// ToolParams exports the whole catalog for open-mode invocations.
func ToolParams() []openai.ChatCompletionToolParam {
	params := make([]openai.ChatCompletionToolParam, 0, len(catalog))
	for _, def := range catalog {
		params = append(params, def.ToolParam())
	}
	return params
}

// Humanize rewrites a schema identifier for user-facing clarification
// text ("booking_uid" -> "booking uid").
func Humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
