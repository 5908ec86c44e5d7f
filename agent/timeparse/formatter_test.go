package timeparse

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
)

type fakeCompleter struct {
	out   string
	err   error
	calls int
	msgs  []openai.ChatCompletionMessageParamUnion
}

func (f *fakeCompleter) Complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error) {
	f.calls++
	f.msgs = msgs
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func TestFormatDateUsesModelOutput(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{out: " 2025-03-20T11:00:00.000Z "}
	f := NewFormatter(llm, "convert dates", fixedNow)

	got, err := f.FormatDate(context.Background(), "20 March 2025 7pm", "Asia/Singapore")
	if err != nil {
		t.Fatalf("FormatDate() error = %v", err)
	}
	if got != "2025-03-20T11:00:00.000Z" {
		t.Fatalf("FormatDate() = %q", got)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one model call, got %d", llm.calls)
	}
	if len(llm.msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(llm.msgs))
	}
}

func TestFormatDateFallsBackOnModelError(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{err: errors.New("model down")}
	f := NewFormatter(llm, "convert dates", fixedNow)

	got, err := f.FormatDate(context.Background(), "20 March 2025 7pm", "Asia/Singapore")
	if err != nil {
		t.Fatalf("FormatDate() error = %v", err)
	}
	if got != "2025-03-20T11:00:00.000Z" {
		t.Fatalf("fallback result = %q", got)
	}
}

func TestFormatDateFallsBackOnChattyOutput(t *testing.T) {
	t.Parallel()

	llm := &fakeCompleter{out: "I believe that would be the 20th of March."}
	f := NewFormatter(llm, "convert dates", fixedNow)

	got, err := f.FormatDate(context.Background(), "20 March 2025 7pm", "Asia/Singapore")
	if err != nil {
		t.Fatalf("FormatDate() error = %v", err)
	}
	if got != "2025-03-20T11:00:00.000Z" {
		t.Fatalf("fallback result = %q", got)
	}
}

func TestFormatDateWithoutModel(t *testing.T) {
	t.Parallel()

	f := NewFormatter(nil, "", fixedNow)

	got, err := f.FormatDate(context.Background(), "20 March 2025 7pm", "singapore")
	if err != nil {
		t.Fatalf("FormatDate() error = %v", err)
	}
	if got != "2025-03-20T11:00:00.000Z" {
		t.Fatalf("FormatDate() = %q", got)
	}
}
