package main

import (
	"time"

	"github.com/rs/zerolog/log"

	calcomx "github.com/witchaya/calbot/agent/calcom"
	llmx "github.com/witchaya/calbot/agent/llm"
	orchestratorx "github.com/witchaya/calbot/agent/orchestrator"
	promptx "github.com/witchaya/calbot/agent/prompt"
	statex "github.com/witchaya/calbot/agent/state"
	timeparsex "github.com/witchaya/calbot/agent/timeparse"
	toolx "github.com/witchaya/calbot/agent/tool"
	configx "github.com/witchaya/calbot/pkg/config"
	_ "github.com/witchaya/calbot/pkg/logger/autoload"
	openaix "github.com/witchaya/calbot/pkg/openaix"
	serverx "github.com/witchaya/calbot/server"
)

func main() {
	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")
	apiClient := openaix.MustNew(*openaiCfg)

	invoker, err := llmx.New(apiClient, openaiCfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize model invoker")
	}

	calClient := calcomx.MustNew(*configx.MustNew[calcomx.Config]("CALCOM"))

	prompts := promptx.LoadPromptSet()
	formatter := timeparsex.NewFormatter(invoker.Strict(), prompts.DateFormatter, time.Now)
	executor := toolx.NewExecutor(calClient, formatter)

	store := statex.NewMemoryStore(*configx.MustNew[statex.Config]("SESSION"))

	orch, err := orchestratorx.New(store, invoker, executor, prompts.System)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	srv, err := serverx.New(*configx.MustNew[serverx.Config]("SERVER"), orch)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http server")
	}

	log.Info().Msg("calbot listening")
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}
