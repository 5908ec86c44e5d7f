package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("prepare",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*GraphState, error) {
			return Prepare(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node prepare: %w", err)
	}

	if err := graph.AddLambdaNode("collect_params",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return CollectParams(ctx, in, o.llm)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node collect_params: %w", err)
	}

	if err := graph.AddLambdaNode("select_action",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return SelectAction(ctx, in, o.llm, o.systemPrompt)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node select_action: %w", err)
	}

	if err := graph.AddLambdaNode("execute_actions",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return ExecuteActions(ctx, in, o.exec)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node execute_actions: %w", err)
	}

	if err := graph.AddLambdaNode("summarize",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			return Summarize(ctx, in, o.llm)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node summarize: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (GraphOutput, error) {
			return Finalize(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *GraphState) (string, error) {
			if in == nil || in.Session == nil {
				return "", ErrInvalidMessage
			}
			if in.Session.Awaiting() {
				return "collect_params", nil
			}
			return "select_action", nil
		},
		map[string]bool{
			"collect_params": true,
			"select_action":  true,
		},
	)
	if err := graph.AddBranch("prepare", branch); err != nil {
		return nil, fmt.Errorf("add turn branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "prepare"},
		{"collect_params", "execute_actions"},
		{"select_action", "execute_actions"},
		{"execute_actions", "summarize"},
		{"summarize", "finalize"},
		{"finalize", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
