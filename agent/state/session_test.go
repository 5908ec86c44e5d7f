package state

import (
	"errors"
	"testing"
	"time"
)

func testNow() time.Time {
	return time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
}

func TestPendingLifecycle(t *testing.T) {
	t.Parallel()

	s := NewSession("u1", testNow())
	if s.Awaiting() {
		t.Fatal("new session must be idle")
	}

	s.BeginPending("create_booking", map[string]any{"attendee_name": "Bea"})
	if !s.Awaiting() {
		t.Fatal("session must be awaiting after BeginPending")
	}

	s.MergePending(map[string]any{
		"attendee_name":  "Beatrice",
		"attendee_email": "bea@example.com",
	})
	if s.Pending.Params["attendee_name"] != "Beatrice" {
		t.Fatalf("merge must overwrite on collision, got %v", s.Pending.Params["attendee_name"])
	}
	if s.Pending.Params["attendee_email"] != "bea@example.com" {
		t.Fatal("merged key missing")
	}

	s.ClearPending()
	if s.Awaiting() {
		t.Fatal("session must be idle after ClearPending")
	}
}

func TestBeginPendingNilParams(t *testing.T) {
	t.Parallel()

	s := NewSession("u1", testNow())
	s.BeginPending("cancel_booking", nil)
	if s.Pending.Params == nil {
		t.Fatal("pending params must never be nil")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMergePendingOnIdleSessionIsNoop(t *testing.T) {
	t.Parallel()

	s := NewSession("u1", testNow())
	s.MergePending(map[string]any{"booking_id": float64(1)})
	if s.Awaiting() {
		t.Fatal("merge must not create a pending action")
	}
}

func TestAppendHistory(t *testing.T) {
	t.Parallel()

	s := NewSession("u1", testNow())
	s.AppendUser("book me a meeting")
	s.AppendAssistantText("Sure, when?")

	if err := s.AppendToolCall("call_create_booking", "create_booking", map[string]any{
		"event_type_id": float64(0),
	}); err != nil {
		t.Fatalf("AppendToolCall() error = %v", err)
	}
	if err := s.AppendToolResult("call_create_booking", map[string]any{"status": "success"}); err != nil {
		t.Fatalf("AppendToolResult() error = %v", err)
	}

	if len(s.History) != 4 {
		t.Fatalf("history length = %d, want 4", len(s.History))
	}
	if s.History[2].OfAssistant == nil || len(s.History[2].OfAssistant.ToolCalls) != 1 {
		t.Fatal("synthetic tool call record malformed")
	}
	if s.History[3].OfTool == nil {
		t.Fatal("tool result record malformed")
	}
	if s.History[3].OfTool.ToolCallID != "call_create_booking" {
		t.Fatalf("tool result call id = %q", s.History[3].OfTool.ToolCallID)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	var nilSession *Session
	if err := nilSession.Validate(); !errors.Is(err, ErrNilSession) {
		t.Fatalf("expected ErrNilSession, got %v", err)
	}

	if err := (&Session{}).Validate(); !errors.Is(err, ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	s := NewSession("u1", testNow())
	s.Pending = &PendingAction{Action: "", Params: map[string]any{}}
	if err := s.Validate(); !errors.Is(err, ErrInconsistentTurn) {
		t.Fatalf("expected ErrInconsistentTurn for empty action, got %v", err)
	}

	s.Pending = &PendingAction{Action: "create_booking", Params: nil}
	if err := s.Validate(); !errors.Is(err, ErrInconsistentTurn) {
		t.Fatalf("expected ErrInconsistentTurn for nil params, got %v", err)
	}

	s.Pending = &PendingAction{Action: "create_booking", Params: map[string]any{}}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestTouch(t *testing.T) {
	t.Parallel()

	s := NewSession("u1", testNow())
	later := testNow().Add(time.Hour)
	s.Touch(later)
	if !s.UpdatedAt.Equal(later) {
		t.Fatalf("UpdatedAt = %v, want %v", s.UpdatedAt, later)
	}
	if !s.CreatedAt.Equal(testNow()) {
		t.Fatal("CreatedAt must not change")
	}
}
