// Package simulator replays scripted callers against an LLM playing the
// voice agent, with the real tools behind it.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/pawsome-voice-agent/agent/contract"
	toolx "github.com/tanpawarit/pawsome-voice-agent/agent/tool"
)

const DefaultMaxSteps = 8

var ErrStepLimit = errors.New("simulator: agent did not reply within the step limit")

type Dispatcher interface {
	DispatchBatch(ctx context.Context, calls []contractx.ToolCall) []contractx.ToolResult
}

// Script is one simulated caller: the lines they say, in order.
type Script struct {
	Name  string   `yaml:"name"`
	Lines []string `yaml:"lines"`
}

type ToolTrace struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result string         `json:"result"`
	OK     bool           `json:"ok"`
}

type Turn struct {
	Caller string      `json:"caller"`
	Agent  string      `json:"agent"`
	Tools  []ToolTrace `json:"tools,omitempty"`
}

type Transcript struct {
	Script string `json:"script"`
	Turns  []Turn `json:"turns"`
}

type Option func(*Simulator)

func WithMaxSteps(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

type Simulator struct {
	model        einomodel.ToolCallingChatModel
	dispatcher   Dispatcher
	systemPrompt string
	maxSteps     int
}

// New binds the tool catalog to chatModel.
func New(chatModel einomodel.ToolCallingChatModel, dispatcher Dispatcher, systemPrompt string, opts ...Option) (*Simulator, error) {
	if chatModel == nil || dispatcher == nil {
		return nil, errors.New("simulator: model and dispatcher are required")
	}
	toolModel, err := chatModel.WithTools(toolx.Catalog())
	if err != nil {
		return nil, fmt.Errorf("simulator: bind tools: %w", err)
	}
	s := &Simulator{
		model:        toolModel,
		dispatcher:   dispatcher,
		systemPrompt: strings.TrimSpace(systemPrompt),
		maxSteps:     DefaultMaxSteps,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Simulator) Run(ctx context.Context, script Script) (Transcript, error) {
	logger := log.Ctx(ctx).With().Str("script", script.Name).Logger()
	ctx = logger.WithContext(ctx)

	history := []*schema.Message{schema.SystemMessage(s.systemPrompt)}
	out := Transcript{Script: script.Name, Turns: make([]Turn, 0, len(script.Lines))}

	for _, line := range script.Lines {
		history = append(history, schema.UserMessage(line))
		turn := Turn{Caller: line}

		replied := false
		for step := 0; step < s.maxSteps; step++ {
			msg, err := s.model.Generate(ctx, history)
			if err != nil {
				return out, fmt.Errorf("simulator: generate: %w", err)
			}
			history = append(history, msg)

			if len(msg.ToolCalls) == 0 {
				turn.Agent = strings.TrimSpace(msg.Content)
				replied = true
				break
			}

			traces, toolMsgs := s.runTools(ctx, msg.ToolCalls)
			turn.Tools = append(turn.Tools, traces...)
			history = append(history, toolMsgs...)
		}

		out.Turns = append(out.Turns, turn)
		if !replied {
			return out, ErrStepLimit
		}
		logger.Debug().Str("caller", line).Str("agent", turn.Agent).Int("tools", len(turn.Tools)).Msg("turn finished")
	}
	return out, nil
}

func (s *Simulator) runTools(ctx context.Context, calls []schema.ToolCall) ([]ToolTrace, []*schema.Message) {
	results := make([]contractx.ToolResult, len(calls))
	args := make([]map[string]any, len(calls))
	batch := make([]contractx.ToolCall, 0, len(calls))
	idx := make([]int, 0, len(calls))

	for i, c := range calls {
		call := contractx.ToolCall{ID: c.ID, Name: strings.TrimSpace(c.Function.Name), Args: map[string]any{}}
		if raw := strings.TrimSpace(c.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &call.Args); err != nil {
				results[i] = contractx.ToolResult{
					CallID: call.ID,
					Tool:   call.Name,
					Err:    contractx.ErrInvalidArguments.WithMessage("Invalid tool arguments: " + err.Error()),
				}
				continue
			}
		}
		args[i] = call.Args
		batch = append(batch, call)
		idx = append(idx, i)
	}
	for j, res := range s.dispatcher.DispatchBatch(ctx, batch) {
		results[idx[j]] = res
	}

	traces := make([]ToolTrace, 0, len(calls))
	msgs := make([]*schema.Message, 0, len(calls))
	for i, res := range results {
		encoded := res.Encode()
		traces = append(traces, ToolTrace{Name: res.Tool, Args: args[i], Result: encoded, OK: res.OK()})
		msgs = append(msgs, schema.ToolMessage(encoded, calls[i].ID))
	}
	return traces, msgs
}
