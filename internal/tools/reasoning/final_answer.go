// Package reasoning holds tools that shape the agent's own turn-taking
// rather than touching the outside world.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// answerText turns the answer argument into the text returned by the run.
// Models sometimes pass structured answers; those are kept as JSON.
func answerText(v any) (string, error) {
	switch a := v.(type) {
	case nil:
		return "", fmt.Errorf("answer is required")
	case string:
		if a == "" {
			return "", fmt.Errorf("answer cannot be empty")
		}
		return a, nil
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("failed to marshal answer: %w", err)
		}
		return string(b), nil
	}
}

// NewFinalAnswerTool creates the tool that ends a run. Its result becomes
// the answer returned by Agent.Run.
func NewFinalAnswerTool(logger *slog.Logger) engine.Tool {
	if logger == nil {
		logger = slog.Default()
	}
	return engine.Tool{
		Name:        engine.FinalAnswerTool,
		Description: `Provides a final answer to the given problem. Call this once you have everything needed; it ends the task.`,
		SchemaJSON:  `{"type":"object","properties":{"answer":{"description":"The final answer to the problem"}},"required":["answer"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			answer, err := answerText(args["answer"])
			if err != nil {
				return "", err
			}
			logger.Info("final answer", "chars", len(answer))
			return answer, nil
		},
	}
}
