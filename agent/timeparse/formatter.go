package timeparse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/rs/zerolog/log"
)

// Completer is the single model call the formatter needs.
type Completer interface {
	Complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Formatter asks the model to convert a date phrase first, for better
// handling of free-form phrasing, and falls back to Normalize whenever
// the model fails or its output does not look canonical. The
// deterministic parser stays the source of truth; the model path is
// convenience only.
type Formatter struct {
	llm          Completer
	systemPrompt string
	now          func() time.Time
}

func NewFormatter(llm Completer, systemPrompt string, now func() time.Time) *Formatter {
	if now == nil {
		now = time.Now
	}
	return &Formatter{
		llm:          llm,
		systemPrompt: strings.TrimSpace(systemPrompt),
		now:          now,
	}
}

// FormatDate implements contract.DateFormatter.
func (f *Formatter) FormatDate(ctx context.Context, text string, tzAlias string) (string, error) {
	if f.llm == nil {
		return Normalize(text, tzAlias, f.now())
	}

	prompt := fmt.Sprintf(
		"Convert this date and time: '%s' in timezone '%s' to ISO 8601 format. "+
			"Return ONLY the formatted date string in format 'YYYY-MM-DDTHH:MM:SS.000Z' in UTC timezone.",
		text, tzAlias,
	)

	out, err := f.llm.Complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(f.systemPrompt),
		openai.UserMessage(prompt),
	})
	if err != nil {
		log.Debug().Err(err).Str("text", text).Msg("model date formatting failed, using deterministic parser")
		return Normalize(text, tzAlias, f.now())
	}

	formatted := strings.TrimSpace(out)
	if strings.Contains(formatted, "T") && strings.Contains(formatted, "Z") {
		return formatted, nil
	}
	return Normalize(text, tzAlias, f.now())
}
