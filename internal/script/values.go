package script

import (
	"context"
	"fmt"
	"sort"

	"go.starlark.net/starlark"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
	"github.com/ChamsBouzaiene/sandrun/internal/providers"
)

const ctxKey = "sandrun.ctx"

// threadContext returns the context the running program was started with.
func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(ctxKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// modelValue is what litellm_model returns.
type modelValue struct {
	modelID string
	model   *providers.Model
}

var _ starlark.HasAttrs = (*modelValue)(nil)

func (m *modelValue) String() string        { return fmt.Sprintf("<litellm_model %s>", m.modelID) }
func (m *modelValue) Type() string          { return "litellm_model" }
func (m *modelValue) Freeze()               {}
func (m *modelValue) Truth() starlark.Bool  { return starlark.True }
func (m *modelValue) Hash() (uint32, error) { return starlark.String(m.modelID).Hash() }

func (m *modelValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "model_id":
		return starlark.String(m.modelID), nil
	case "num_ctx":
		return starlark.MakeInt(m.model.ContextWindow), nil
	}
	return nil, nil
}

func (m *modelValue) AttrNames() []string { return []string{"model_id", "num_ctx"} }

// toolValue exposes an engine.Tool to Starlark. Calling it runs the tool with
// keyword arguments; a single positional argument fills the tool's only
// required parameter.
type toolValue struct {
	tool engine.Tool
}

var _ starlark.Callable = (*toolValue)(nil)

func (t *toolValue) String() string        { return fmt.Sprintf("<tool %s>", t.tool.Name) }
func (t *toolValue) Type() string          { return "tool" }
func (t *toolValue) Freeze()               {}
func (t *toolValue) Truth() starlark.Bool  { return starlark.True }
func (t *toolValue) Hash() (uint32, error) { return starlark.String(t.tool.Name).Hash() }
func (t *toolValue) Name() string          { return t.tool.Name }

func (t *toolValue) CallInternal(thread *starlark.Thread, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	callArgs := make(map[string]any, len(kwargs)+len(args))
	if len(args) > 0 {
		param, ok := soleRequiredParam(t.tool)
		if !ok || len(args) > 1 {
			return nil, fmt.Errorf("%s: use keyword arguments", t.tool.Name)
		}
		v, err := fromStarlarkValue(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.tool.Name, err)
		}
		callArgs[param] = v
	}
	for _, kv := range kwargs {
		v, err := fromStarlarkValue(kv[1])
		if err != nil {
			return nil, fmt.Errorf("%s: argument %s: %w", t.tool.Name, kv[0], err)
		}
		callArgs[string(kv[0].(starlark.String))] = v
	}

	if err := t.tool.ValidateArgs(callArgs); err != nil {
		return nil, err
	}
	out, err := t.tool.Fn(threadContext(thread), callArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.tool.Name, err)
	}
	return starlark.String(out), nil
}

// agentValue is what code_agent returns.
type agentValue struct {
	agent    *engine.Agent
	model    string
	tools    []string
	maxSteps int
}

var _ starlark.HasAttrs = (*agentValue)(nil)

func (a *agentValue) String() string        { return fmt.Sprintf("<code_agent %s>", a.model) }
func (a *agentValue) Type() string          { return "code_agent" }
func (a *agentValue) Freeze()               {}
func (a *agentValue) Truth() starlark.Bool  { return starlark.True }
func (a *agentValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: code_agent") }

func (a *agentValue) Attr(name string) (starlark.Value, error) {
	switch name {
	case "run":
		return starlark.NewBuiltin("run", a.run).BindReceiver(a), nil
	case "max_steps":
		return starlark.MakeInt(a.maxSteps), nil
	case "tools":
		return toStarlarkValue(a.tools), nil
	case "system_prompt":
		return starlark.String(a.agent.SystemPrompt()), nil
	}
	return nil, nil
}

func (a *agentValue) AttrNames() []string {
	names := []string{"max_steps", "run", "system_prompt", "tools"}
	sort.Strings(names)
	return names
}

func (a *agentValue) run(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var task string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "task", &task); err != nil {
		return nil, err
	}
	answer, err := a.agent.Run(threadContext(thread), task)
	if err != nil {
		return nil, fmt.Errorf("agent run: %w", err)
	}
	return starlark.String(answer), nil
}
