// Package llm is the single invocation surface over the chat
// completions API: open or constrained function calling, plus plain
// completions for summaries and date conversion.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	contractx "github.com/witchaya/calbot/agent/contract"
	toolx "github.com/witchaya/calbot/agent/tool"
)

type Client struct {
	api   *openai.Client
	model string
}

var _ contractx.Invoker = (*Client)(nil)

func New(api *openai.Client, model string) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrConfiguration)
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("%w: model is required", contractx.ErrConfiguration)
	}
	return &Client{api: api, model: model}, nil
}

// Invoke runs a function-calling completion. Open mode lets the model
// pick zero or more actions from the catalog; Constrained mode forces a
// single call to the named action.
func (c *Client) Invoke(
	ctx context.Context,
	msgs []openai.ChatCompletionMessageParamUnion,
	mode contractx.InvokeMode,
) (*openai.ChatCompletionMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
		Tools:    toolx.ToolParams(),
	}

	if forced, ok := mode.Forced(); ok {
		if _, known := toolx.Lookup(forced); !known {
			return nil, fmt.Errorf("%w: cannot constrain to unknown action %q", contractx.ErrValidation, forced)
		}
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: forced,
				},
			},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}

	msg := resp.Choices[0].Message
	return &msg, nil
}

// Complete runs a plain completion over the messages and returns the
// assistant text.
func (c *Client) Complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}
	return resp.Choices[0].Message.Content, nil
}

// StrictCompleter pins temperature zero and a small token budget; the
// date formatter wants a bare timestamp back, nothing else.
type StrictCompleter struct {
	client *Client
}

func (c *Client) Strict() StrictCompleter {
	return StrictCompleter{client: c}
}

func (s StrictCompleter) Complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := s.client.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(s.client.model),
		Messages:    msgs,
		Temperature: openai.Float(0),
		MaxTokens:   openai.Int(50),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", contractx.ErrSchemaViolation)
	}
	return resp.Choices[0].Message.Content, nil
}
