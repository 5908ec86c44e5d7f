package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/witchaya/calbot/agent/contract"
	statex "github.com/witchaya/calbot/agent/state"
)

type Orchestrator struct {
	store statex.Store
	llm   contractx.Invoker
	exec  contractx.ActionExecutor

	systemPrompt string

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	now func() time.Time
}

func New(
	store statex.Store,
	llm contractx.Invoker,
	exec contractx.ActionExecutor,
	systemPrompt string,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if llm == nil {
		return nil, errors.New("model invoker is required")
	}
	if exec == nil {
		return nil, errors.New("action executor is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, errors.New("system prompt is required")
	}

	o := &Orchestrator{
		store:        store,
		llm:          llm,
		exec:         exec,
		systemPrompt: systemPrompt,
		now:          time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn runs one user message through the turn graph and returns
// the assistant reply. Turns for the same user are serialized on the
// session lock; the session survives a failed turn in its pre-invoke
// shape plus whatever history the turn appended before failing.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID string, text string) (string, error) {
	session, err := o.store.GetOrCreate(userID)
	if err != nil {
		return "", err
	}

	session.LockTurn()
	defer session.UnlockTurn()

	out, err := o.graphRunner.Invoke(ctx, GraphInput{
		Session: session,
		Text:    text,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("turn failed")
		return "", err
	}

	log.Debug().
		Str("user_id", session.UserID).
		Int("history_len", len(session.History)).
		Msg("turn completed")
	return out.Reply, nil
}
