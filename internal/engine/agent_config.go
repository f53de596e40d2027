package engine

import (
	"errors"

	"github.com/ChamsBouzaiene/sandrun/internal/prompts"
)

// AgentConfig holds configuration for an agent instance.
type AgentConfig struct {
	Model           string
	MaxSteps        int
	Budget          BudgetConfig
	PromptID        string
	MaxOutputTokens int     // Maximum tokens for LLM output (0 = use default)
	Temperature     float32 // 0 leaves the provider default
}

// DefaultMaxSteps matches the step limit of a code agent created without one.
const DefaultMaxSteps = 20

// DefaultAgentConfig returns a default agent configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxSteps:        DefaultMaxSteps,
		PromptID:        prompts.CodeAgentID,
		MaxOutputTokens: 2048,
	}
}

func (c AgentConfig) validate() error {
	if c.Model == "" {
		return errors.New("agent config: model is required")
	}
	if c.MaxSteps < 1 {
		return errors.New("agent config: max steps must be at least 1")
	}
	return nil
}
