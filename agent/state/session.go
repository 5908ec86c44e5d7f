// Package state holds per-user conversation state and the store that
// owns it.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
)

var (
	ErrNilSession       = errors.New("session is nil")
	ErrInvalidUser      = errors.New("user id is empty")
	ErrInconsistentTurn = errors.New("pending action and pending params are inconsistent")
)

// PendingAction is an action the model selected that is still missing
// required parameters. Params is the accumulated name -> value mapping;
// new extractions overwrite old values on key collision.
type PendingAction struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Session is one user's conversation. History is append-only and
// replayed to the model verbatim, so entries are kept in SDK form.
// Pending is nil exactly when no action is awaiting parameters: the
// idle/awaiting state machine is carried by this single tagged field
// rather than a nullable pair that could drift apart.
type Session struct {
	UserID    string
	History   []openai.ChatCompletionMessageParamUnion
	Pending   *PendingAction
	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:    userID,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

// LockTurn serializes turns: at most one in-flight turn per user.
// Concurrent turns for different sessions are independent.
func (s *Session) LockTurn() { s.mu.Lock() }

func (s *Session) UnlockTurn() { s.mu.Unlock() }

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Awaiting reports whether an action is awaiting more parameters.
func (s *Session) Awaiting() bool {
	return s != nil && s.Pending != nil
}

// BeginPending marks an under-specified action as awaiting parameters,
// seeding it with whatever the model already extracted.
func (s *Session) BeginPending(action string, params map[string]any) {
	if params == nil {
		params = make(map[string]any, 8)
	}
	s.Pending = &PendingAction{Action: action, Params: params}
}

// MergePending folds newly extracted arguments into the pending params.
// New values overwrite old ones on key collision.
func (s *Session) MergePending(args map[string]any) {
	if s.Pending == nil {
		return
	}
	if s.Pending.Params == nil {
		s.Pending.Params = make(map[string]any, len(args))
	}
	for k, v := range args {
		s.Pending.Params[k] = v
	}
}

// ClearPending returns the session to idle.
func (s *Session) ClearPending() {
	s.Pending = nil
}

// Append adds history entries in order. History order is semantically
// significant; nothing ever rewrites or removes an entry.
func (s *Session) Append(msgs ...openai.ChatCompletionMessageParamUnion) {
	s.History = append(s.History, msgs...)
}

// AppendUser records the user's turn text.
func (s *Session) AppendUser(text string) {
	s.Append(openai.UserMessage(text))
}

// AppendAssistantText records a plain assistant reply.
func (s *Session) AppendAssistantText(text string) {
	s.Append(openai.AssistantMessage(text))
}

// AppendToolCall records a synthetic assistant tool-invocation entry,
// used when a call completed through parameter collection rather than a
// direct model response.
func (s *Session) AppendToolCall(callID string, action string, params map[string]any) error {
	args, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal tool call params: %w", err)
	}
	s.Append(openai.ChatCompletionMessageParamUnion{
		OfAssistant: &openai.ChatCompletionAssistantMessageParam{
			ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
				ID: callID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      action,
					Arguments: string(args),
				},
			}},
		},
	})
	return nil
}

// AppendToolResult records an executed action's payload keyed to its
// call identifier, for the model to narrate.
func (s *Session) AppendToolResult(callID string, payload map[string]any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal tool result: %w", err)
	}
	s.Append(openai.ToolMessage(string(encoded), callID))
	return nil
}

// Validate checks the pending invariant: a pending action tracks a
// params map, and an idle session tracks neither.
func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.UserID == "" {
		return ErrInvalidUser
	}
	if s.Pending != nil && s.Pending.Action == "" {
		return fmt.Errorf("%w: pending action name is empty", ErrInconsistentTurn)
	}
	if s.Pending != nil && s.Pending.Params == nil {
		return fmt.Errorf("%w: pending params map is nil", ErrInconsistentTurn)
	}
	return nil
}
