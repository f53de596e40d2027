package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

func TestNewToolRegistry(t *testing.T) {
	custom := engine.Tool{
		Name: "web_search",
		Fn:   func(context.Context, map[string]any) (string, error) { return "", nil },
	}

	reg := NewToolRegistry(nil, ToolSet{}, custom)
	assert.Equal(t, []string{engine.FinalAnswerTool, "web_search"}, reg.Names())

	reg = NewToolRegistry(nil, ToolSet{Think: true})
	assert.Equal(t, []string{engine.FinalAnswerTool, "think"}, reg.Names())
}
