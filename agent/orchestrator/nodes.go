// Package orchestrator runs one conversation turn as a compiled graph:
// route on pending state, invoke the model, execute selected actions,
// then summarize the results back to the user.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/witchaya/calbot/agent/contract"
	statex "github.com/witchaya/calbot/agent/state"
	toolx "github.com/witchaya/calbot/agent/tool"
)

var ErrInvalidMessage = errors.New("message is empty")

// humanizeFields renders schema field names for clarification text.
func humanizeFields(names []string) string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, toolx.Humanize(name))
	}
	return strings.Join(out, ", ")
}

type GraphInput struct {
	Session *statex.Session
	Text    string
}

type GraphOutput struct {
	Reply string
}

// plannedCall is an action the model committed to this turn. Synthetic
// calls completed through parameter collection and need a fabricated
// assistant tool-call record before their result.
type plannedCall struct {
	ID        string
	Action    string
	Params    map[string]any
	Synthetic bool
}

type GraphState struct {
	Session *statex.Session
	Text    string
	Now     time.Time

	Calls   []plannedCall
	Results []contractx.ToolResult
	Reply   string
}

func Prepare(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	if in.Session == nil {
		return nil, statex.ErrNilSession
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	in.Session.AppendUser(text)

	return &GraphState{
		Session: in.Session,
		Text:    text,
		Now:     nowFn().UTC(),
	}, nil
}

// CollectParams handles the awaiting path: the turn is interpreted as
// more parameters for the pending action. The extraction instruction is
// ephemeral and never enters the permanent history.
func CollectParams(ctx context.Context, st *GraphState, llm contractx.Invoker) (*GraphState, error) {
	if st == nil || st.Session == nil || !st.Session.Awaiting() {
		return nil, fmt.Errorf("%w: collect_params requires a pending action", contractx.ErrValidation)
	}
	pending := st.Session.Pending

	def, ok := toolx.Lookup(pending.Action)
	if !ok {
		return nil, fmt.Errorf("%w: pending action %q is not in the catalog", contractx.ErrValidation, pending.Action)
	}

	current, err := json.Marshal(pending.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal pending params: %w", err)
	}
	instruction := fmt.Sprintf(
		"The user is providing additional information for the '%s' function. "+
			"Current parameters: %s. "+
			"Extract any missing required parameters from their message. "+
			"For dates and times, be very precise and extract exact date, time, and timezone information. "+
			"For event durations, extract the exact number of minutes for the meeting. "+
			"For create_booking, when setting the duration parameter, extract it directly from the user's request. "+
			"Make sure to verify that dates are in the future. If the user says 'tomorrow', check the current date "+
			"to ensure accuracy. Always include the timezone when formatting dates.",
		pending.Action, current,
	)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(st.Session.History)+1)
	msgs = append(msgs, st.Session.History...)
	msgs = append(msgs, openai.SystemMessage(instruction))

	resp, err := llm.Invoke(ctx, msgs, contractx.ConstrainedMode(pending.Action))
	if err != nil {
		return nil, err
	}

	// A constrained invoke that yields no call is treated as an empty
	// extraction, so the user is re-asked instead of silently rerouting
	// the turn.
	if len(resp.ToolCalls) > 0 {
		var extracted map[string]any
		if err := json.Unmarshal([]byte(resp.ToolCalls[0].Function.Arguments), &extracted); err != nil {
			return nil, fmt.Errorf("%w: constrained arguments are not valid JSON: %v", contractx.ErrSchemaViolation, err)
		}
		st.Session.MergePending(extracted)
	}

	missing := def.MissingRequired(pending.Params)
	if len(missing) > 0 {
		st.Reply = fmt.Sprintf(
			"I still need the following information to %s: %s",
			toolx.Humanize(pending.Action), humanizeFields(missing),
		)
		return st, nil
	}

	params := make(map[string]any, len(pending.Params))
	for k, v := range pending.Params {
		params[k] = v
	}
	st.Calls = []plannedCall{{
		ID:        "call_" + pending.Action,
		Action:    pending.Action,
		Params:    params,
		Synthetic: true,
	}}
	return st, nil
}

// SelectAction handles the idle path: the model sees the whole history
// under an ephemeral system prompt and picks zero or more actions. The
// raw assistant response is appended to history either way; a call with
// missing required fields becomes the pending action and cuts the plan
// short at that point.
func SelectAction(ctx context.Context, st *GraphState, llm contractx.Invoker, systemPrompt string) (*GraphState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(st.Session.History)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	msgs = append(msgs, st.Session.History...)

	resp, err := llm.Invoke(ctx, msgs, contractx.OpenMode())
	if err != nil {
		return nil, err
	}
	st.Session.Append(resp.ToParam())

	if len(resp.ToolCalls) == 0 {
		st.Reply = resp.Content
		return st, nil
	}

	for _, tc := range resp.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, fmt.Errorf("%w: tool call arguments are not valid JSON: %v", contractx.ErrSchemaViolation, err)
		}
		if args == nil {
			args = make(map[string]any)
		}

		if def, known := toolx.Lookup(tc.Function.Name); known {
			if missing := def.MissingRequired(args); len(missing) > 0 {
				st.Session.BeginPending(tc.Function.Name, args)
				st.Reply = fmt.Sprintf(
					"To %s, I need the following information: %s",
					toolx.Humanize(tc.Function.Name), humanizeFields(missing),
				)
				return st, nil
			}
		}

		st.Calls = append(st.Calls, plannedCall{
			ID:     tc.ID,
			Action: tc.Function.Name,
			Params: args,
		})
	}
	return st, nil
}

// ExecuteActions runs the planned calls in order and records each
// result in history. Executor payloads are terminal: provider failures
// come back as error payloads for the model to narrate, not as turn
// failures.
func ExecuteActions(ctx context.Context, st *GraphState, exec contractx.ActionExecutor) (*GraphState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	for _, call := range st.Calls {
		if call.Synthetic {
			if err := st.Session.AppendToolCall(call.ID, call.Action, call.Params); err != nil {
				return nil, err
			}
		}

		result := exec.Execute(ctx, call.Action, call.Params)
		log.Debug().
			Str("user_id", st.Session.UserID).
			Str("action", call.Action).
			Msg("action executed")

		if err := st.Session.AppendToolResult(call.ID, result); err != nil {
			return nil, err
		}
		st.Results = append(st.Results, contractx.ToolResult{
			CallID:  call.ID,
			Action:  call.Action,
			Payload: result,
		})

		if call.Synthetic {
			st.Session.ClearPending()
		}
	}
	return st, nil
}

// Summarize closes an action turn with a plain completion over the full
// history, so the user reads an account of what happened rather than
// raw payloads. Clarification and conversational turns already carry
// their reply and skip it.
func Summarize(ctx context.Context, st *GraphState, llm contractx.Invoker) (*GraphState, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if st.Reply != "" || len(st.Results) == 0 {
		return st, nil
	}

	content, err := llm.Complete(ctx, st.Session.History)
	if err != nil {
		return nil, err
	}
	st.Session.AppendAssistantText(content)
	st.Reply = content
	return st, nil
}

func Finalize(st *GraphState) (GraphOutput, error) {
	if st == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := st.Session.Validate(); err != nil {
		return GraphOutput{}, err
	}
	if strings.TrimSpace(st.Reply) == "" {
		return GraphOutput{}, fmt.Errorf("%w: turn produced an empty reply", contractx.ErrSchemaViolation)
	}

	st.Session.Touch(st.Now)
	return GraphOutput{Reply: st.Reply}, nil
}
