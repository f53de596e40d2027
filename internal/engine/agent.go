package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/sandrun/internal/prompts"
)

// Agent represents an agent instance that can run tasks.
type Agent struct {
	llm       LLMClient
	tools     ToolRegistry
	config    AgentConfig
	hooks     Hooks
	prompt    string
	lastState *State
}

// NewAgent builds an agent whose system prompt lists the registered tools.
func NewAgent(llm LLMClient, tools ToolRegistry, cfg AgentConfig, hooks ...Hook) (*Agent, error) {
	if llm == nil {
		return nil, fmt.Errorf("agent: llm client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PromptID == "" {
		cfg.PromptID = prompts.CodeAgentID
	}

	systemPrompt, err := prompts.Render(cfg.PromptID, map[string]string{"tools": tools.Describe()})
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	return &Agent{
		llm:    llm,
		tools:  tools,
		config: cfg,
		hooks:  Hooks(hooks),
		prompt: systemPrompt,
	}, nil
}

// Run executes one task from a fresh conversation and returns the final answer.
func (a *Agent) Run(ctx context.Context, task string) (answer string, err error) {
	st := &State{
		RunID: uuid.NewString(),
		History: []ChatMessage{
			{Role: RoleSystem, Content: a.prompt},
			{Role: RoleUser, Content: task},
		},
		Model:    a.config.Model,
		MaxSteps: a.config.MaxSteps,
		Budget:   a.config.Budget,
	}
	a.lastState = st

	ctx = a.hooks.OnRunStart(ctx, st, task)
	defer func() { a.hooks.OnRunEnd(ctx, st, err) }()

	opts := ChatOptions{
		MaxOutputTokens: a.config.MaxOutputTokens,
		Temperature:     a.config.Temperature,
	}
	if err := Run(ctx, a.llm, a.tools, st, a.hooks, opts); err != nil {
		return "", err
	}
	return st.Answer, nil
}

// SystemPrompt returns the rendered system prompt.
func (a *Agent) SystemPrompt() string {
	return a.prompt
}

// LastState returns the state of the most recent Run.
// Callers should treat the returned state as read-only.
func (a *Agent) LastState() *State {
	return a.lastState
}
