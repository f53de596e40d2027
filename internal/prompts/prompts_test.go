package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCodeAgent(t *testing.T) {
	out, err := Render(CodeAgentID, map[string]string{"tools": "- web_search: Searches the web."})
	require.NoError(t, err)
	assert.Contains(t, out, "- web_search: Searches the web.")
	assert.Contains(t, out, `call "final_answer"`)
	assert.NotContains(t, out, "{{tools}}")
}

func TestRenderLeavesUnknownMarkers(t *testing.T) {
	out, err := Render(CodeAgentID, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "{{tools}}")
}

func TestRenderUnknownPrompt(t *testing.T) {
	_, err := Render("planner", nil)
	require.ErrorContains(t, err, "prompt not found: planner")
}
