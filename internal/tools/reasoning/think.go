package reasoning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// NewThinkTool creates a tool that lets the agent write down a plan or an
// intermediate conclusion. Notes are logged and echoed back as the observation.
func NewThinkTool(logger *slog.Logger) engine.Tool {
	if logger == nil {
		logger = slog.Default()
	}
	return engine.Tool{
		Name: "think",
		Description: `Write down your reasoning before acting: what you know so far, what is still missing and which tool you will use next. ` +
			`It does not fetch any information.`,
		SchemaJSON: `{"type":"object","properties":{"reasoning":{"type":"string","description":"Your current reasoning or plan"}},"required":["reasoning"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			reasoning, _ := args["reasoning"].(string)
			if reasoning == "" {
				return "", fmt.Errorf("reasoning cannot be empty")
			}
			logger.Debug("agent reasoning", "reasoning", reasoning)
			return "Noted: " + reasoning, nil
		},
	}
}
