package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// CodeToolName is the tool through which the agent runs code.
const CodeToolName = "run_code"

// maxCodeSteps bounds the work of one run_code snippet.
var maxCodeSteps uint64 = 50_000_000

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// NewCodeTool returns the run_code tool. Snippets see every other tool in
// reg as a function; their printed output is the observation.
func NewCodeTool(reg engine.ToolRegistry) engine.Tool {
	return engine.Tool{
		Name: CodeToolName,
		Description: "Runs a Starlark (Python-like) snippet. Every other tool is callable as a function with keyword arguments, " +
			"e.g. print(web_search(query=\"...\")). Only printed output is returned.",
		SchemaJSON: `{"type":"object","properties":{"code":{"type":"string","description":"The Starlark code to run"}},"required":["code"]}`,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			code, _ := args["code"].(string)
			return runSnippet(ctx, code, reg)
		},
	}
}

func runSnippet(ctx context.Context, code string, reg engine.ToolRegistry) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("code cannot be empty")
	}

	predeclared := make(starlark.StringDict, len(reg))
	for _, name := range reg.Names() {
		if name == CodeToolName || name == engine.FinalAnswerTool {
			continue
		}
		predeclared[name] = &toolValue{tool: reg[name]}
	}

	var out strings.Builder
	thread := &starlark.Thread{
		Name:  CodeToolName,
		Print: func(_ *starlark.Thread, msg string) { out.WriteString(msg + "\n") },
	}
	thread.SetLocal(ctxKey, ctx)
	thread.SetMaxExecutionSteps(maxCodeSteps)
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	_, err := starlark.ExecFileOptions(fileOptions, thread, "<run_code>", code, predeclared)
	logs := strings.TrimRight(out.String(), "\n")
	if err != nil {
		if logs != "" {
			return "", fmt.Errorf("%s\nExecution logs:\n%s", errorText(err), logs)
		}
		return "", errors.New(errorText(err))
	}
	if logs == "" {
		return "Execution logs:\n(no output)", nil
	}
	return "Execution logs:\n" + logs, nil
}

// errorText prefers the Starlark backtrace, which points at the failing line.
func errorText(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Backtrace()
	}
	return err.Error()
}

// soleRequiredParam names the parameter a single positional argument binds to.
func soleRequiredParam(t engine.Tool) (string, bool) {
	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
		Required   []string                   `json:"required"`
	}
	if t.SchemaJSON == "" || json.Unmarshal([]byte(t.SchemaJSON), &schema) != nil {
		return "", false
	}
	if len(schema.Required) == 1 {
		return schema.Required[0], true
	}
	if len(schema.Properties) == 1 {
		for name := range schema.Properties {
			return name, true
		}
	}
	return "", false
}
