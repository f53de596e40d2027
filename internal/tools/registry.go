// Package tools assembles the tool registry handed to the agent.
package tools

import (
	"log/slog"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
	"github.com/ChamsBouzaiene/sandrun/internal/tools/reasoning"
)

// ToolSet selects the built-in tools added next to the caller's own.
type ToolSet struct {
	Think bool
}

// NewToolRegistry registers the given tools plus final_answer, which every
// agent needs to finish. A tool named like a built-in replaces it.
func NewToolRegistry(logger *slog.Logger, set ToolSet, extra ...engine.Tool) engine.ToolRegistry {
	reg := make(engine.ToolRegistry)
	reg.Register(reasoning.NewFinalAnswerTool(logger))
	if set.Think {
		reg.Register(reasoning.NewThinkTool(logger))
	}
	for _, t := range extra {
		reg.Register(t)
	}
	return reg
}
