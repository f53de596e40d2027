package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

func echoRegistry() engine.ToolRegistry {
	reg := make(engine.ToolRegistry)
	reg.Register(engine.Tool{
		Name:       "echo",
		SchemaJSON: `{"type":"object","properties":{"text":{"type":"string"},"times":{"type":"integer"}},"required":["text"]}`,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			n := 1
			if v, ok := args["times"].(float64); ok {
				n = int(v)
			}
			return strings.Repeat(args["text"].(string), n), nil
		},
	})
	reg.Register(engine.Tool{
		Name: engine.FinalAnswerTool,
		Fn:   func(context.Context, map[string]any) (string, error) { return "", nil },
	})
	reg.Register(NewCodeTool(reg))
	return reg
}

func TestRunCode(t *testing.T) {
	reg := echoRegistry()
	tool := reg[CodeToolName]

	tests := []struct {
		name    string
		code    string
		want    string
		wantErr string
	}{
		{name: "keyword call", code: `print(echo(text="ab", times=2))`, want: "Execution logs:\nabab"},
		{name: "positional call", code: `print(echo("x"))`, want: "Execution logs:\nx"},
		{name: "loops and strings", code: "for w in ['a', 'b']:\n    print(w.upper())", want: "Execution logs:\nA\nB"},
		{name: "no output", code: `x = 1`, want: "Execution logs:\n(no output)"},
		{name: "schema violation", code: `echo(times=2)`, wantErr: "validation failed"},
		{name: "final answer hidden", code: `final_answer(answer="x")`, wantErr: "undefined: final_answer"},
		{name: "error keeps logs", code: "print('before')\nfail('boom')", wantErr: "Execution logs:\nbefore"},
		{name: "empty code", code: "  ", wantErr: "code cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tool.Fn(context.Background(), map[string]any{"code": tt.code})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunCodeStepLimit(t *testing.T) {
	old := maxCodeSteps
	maxCodeSteps = 10_000
	t.Cleanup(func() { maxCodeSteps = old })

	_, err := runSnippet(context.Background(), "while True:\n    pass\n", echoRegistry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many steps")
}

func TestSoleRequiredParam(t *testing.T) {
	p, ok := soleRequiredParam(engine.Tool{SchemaJSON: `{"properties":{"a":{},"b":{}},"required":["b"]}`})
	assert.True(t, ok)
	assert.Equal(t, "b", p)

	p, ok = soleRequiredParam(engine.Tool{SchemaJSON: `{"properties":{"only":{}}}`})
	assert.True(t, ok)
	assert.Equal(t, "only", p)

	_, ok = soleRequiredParam(engine.Tool{})
	assert.False(t, ok)
}

func TestStarlarkConversions(t *testing.T) {
	d := starlark.NewDict(2)
	require.NoError(t, d.SetKey(starlark.String("n"), starlark.MakeInt(3)))
	require.NoError(t, d.SetKey(starlark.String("tags"), starlark.NewList([]starlark.Value{starlark.String("a"), starlark.None})))

	got, err := fromStarlarkValue(d)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3), "tags": []any{"a", nil}}, got)

	_, err = fromStarlarkValue(starlark.NewSet(0))
	assert.Error(t, err)

	back := toStarlarkValue(map[string]any{"b": true, "a": []any{1.5, "x"}})
	assert.Equal(t, `{"a": [1.5, "x"], "b": True}`, back.String())
}
