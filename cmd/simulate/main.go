// Command simulate plays scripted callers against an LLM agent backed by the
// real tools and an in-memory store.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/rs/zerolog/log"
	llmx "github.com/tanpawarit/pawsome-voice-agent/agent/llm"
	promptx "github.com/tanpawarit/pawsome-voice-agent/agent/prompt"
	settlementx "github.com/tanpawarit/pawsome-voice-agent/agent/settlement"
	simulatorx "github.com/tanpawarit/pawsome-voice-agent/agent/simulator"
	storex "github.com/tanpawarit/pawsome-voice-agent/agent/store"
	toolx "github.com/tanpawarit/pawsome-voice-agent/agent/tool"
	configx "github.com/tanpawarit/pawsome-voice-agent/pkg/config"
	_ "github.com/tanpawarit/pawsome-voice-agent/pkg/logger/autoload"
)

type AppConfig struct {
	MinimumSettlementPercentage int    `envconfig:"MINIMUM_SETTLEMENT_PERCENTAGE" default:"70" validate:"gte=1,lte=100"`
	BusinessName                string `envconfig:"BUSINESS_NAME" default:"Pawsome Pet Grooming"`
}

func main() {
	scriptName := flag.String("script", "", "run only the named script")
	maxSteps := flag.Int("max-steps", simulatorx.DefaultMaxSteps, "model calls allowed per caller line")

	appCfg := configx.MustNew[AppConfig]("")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	ctx := log.Logger.WithContext(context.Background())

	scripts, err := simulatorx.DefaultScripts()
	if err != nil {
		log.Fatal().Err(err).Msg("load scripts")
	}
	if *scriptName != "" {
		s, ok := simulatorx.Find(scripts, *scriptName)
		if !ok {
			log.Fatal().Str("script", *scriptName).Msg("unknown script")
		}
		scripts = []simulatorx.Script{s}
	}

	policy, err := settlementx.NewPolicy(appCfg.MinimumSettlementPercentage)
	if err != nil {
		log.Fatal().Err(err).Msg("settlement policy")
	}
	orCfg := llmCfg.OpenRouter()
	chatModel, err := orCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat model")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := 0
	for _, script := range scripts {
		// every caller starts from fresh demo data
		repo, err := storex.New()
		if err != nil {
			log.Fatal().Err(err).Msg("load store")
		}
		svc, err := toolx.NewServices(repo, policy, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("build services")
		}
		dispatcher, err := toolx.NewDispatcher(svc)
		if err != nil {
			log.Fatal().Err(err).Msg("build dispatcher")
		}
		sim, err := simulatorx.New(chatModel, dispatcher, promptx.Agent(appCfg.BusinessName, policy.Percentage), simulatorx.WithMaxSteps(*maxSteps))
		if err != nil {
			log.Fatal().Err(err).Msg("build simulator")
		}

		transcript, err := sim.Run(ctx, script)
		if err != nil {
			failed++
			log.Error().Err(err).Str("script", script.Name).Msg("simulation failed")
		}
		if err := enc.Encode(transcript); err != nil {
			log.Fatal().Err(err).Msg("write transcript")
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
