package script

import (
	"fmt"
	"strconv"
	"strings"

	"go.starlark.net/starlark"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
	"github.com/ChamsBouzaiene/sandrun/internal/providers"
	"github.com/ChamsBouzaiene/sandrun/internal/telemetry"
	"github.com/ChamsBouzaiene/sandrun/internal/tools"
	"github.com/ChamsBouzaiene/sandrun/internal/tools/search"
)

// os.getenv(name, default=None)
func (r *Runtime) getenv(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var def starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "default?", &def); err != nil {
		return nil, err
	}
	if v, ok := r.opts.LookupEnv(name); ok {
		return starlark.String(v), nil
	}
	return def, nil
}

// telemetry.register(project_name=None)
func (r *Runtime) registerTelemetry(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var project string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "project_name?", &project); err != nil {
		return nil, err
	}
	if r.provider != nil {
		return starlark.None, nil
	}
	p, err := r.opts.Register(threadContext(thread), telemetry.Options{ProjectName: project})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	r.provider = p
	r.logger.Info("telemetry registered", "endpoint", p.Endpoint(), "project", p.Project())
	return starlark.None, nil
}

// litellm_model(model_id, api_base=None, num_ctx=0, api_key=None)
func (r *Runtime) litellmModel(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var modelID string
	var apiBase, numCtx, apiKey starlark.Value = starlark.None, starlark.None, starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"model_id", &modelID, "api_base?", &apiBase, "num_ctx?", &numCtx, "api_key?", &apiKey); err != nil {
		return nil, err
	}

	spec := providers.ModelSpec{ModelID: modelID}
	var err error
	if spec.APIBase, err = optionalString(b.Name(), "api_base", apiBase); err != nil {
		return nil, err
	}
	if spec.APIKey, err = optionalString(b.Name(), "api_key", apiKey); err != nil {
		return nil, err
	}
	if spec.NumCtx, err = optionalInt(b.Name(), "num_ctx", numCtx); err != nil {
		return nil, err
	}

	m, err := r.opts.NewModel(spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	r.logger.Debug("model created", "model_id", modelID, "api_base", spec.APIBase, "num_ctx", spec.NumCtx)
	return &modelValue{modelID: modelID, model: m}, nil
}

// web_search_tool(max_results=10)
func (r *Runtime) webSearchTool(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	maxResults := search.DefaultMaxResults
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "max_results?", &maxResults); err != nil {
		return nil, err
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("%s: max_results must be positive", b.Name())
	}
	ws := search.NewWebSearch(search.Options{
		Endpoint:   r.opts.SearchEndpoint,
		MaxResults: maxResults,
		HTTPClient: r.opts.HTTPClient,
	})
	return &toolValue{tool: ws.Tool()}, nil
}

// code_agent(tools, model, max_steps=20, think=False)
func (r *Runtime) codeAgent(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var toolList *starlark.List
	var model *modelValue
	maxSteps := engine.DefaultMaxSteps
	think := false
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"tools", &toolList, "model", &model, "max_steps?", &maxSteps, "think?", &think); err != nil {
		return nil, err
	}

	var userTools []engine.Tool
	for i := 0; i < toolList.Len(); i++ {
		tv, ok := toolList.Index(i).(*toolValue)
		if !ok {
			return nil, fmt.Errorf("%s: tools[%d] is a %s, not a tool", b.Name(), i, toolList.Index(i).Type())
		}
		userTools = append(userTools, tv.tool)
	}

	reg := tools.NewToolRegistry(r.logger, tools.ToolSet{Think: think}, userTools...)
	reg.Register(NewCodeTool(reg))

	cfg := engine.DefaultAgentConfig()
	cfg.Model = model.model.Name
	cfg.MaxSteps = maxSteps
	if model.model.ContextWindow > 0 {
		cfg.Budget = engine.BudgetConfig{
			ContextWindow: model.model.ContextWindow,
			ReserveTokens: cfg.MaxOutputTokens,
		}
	}

	agent, err := engine.NewAgent(model.model.Client, reg, cfg, r.hooks()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &agentValue{agent: agent, model: model.modelID, tools: reg.Names(), maxSteps: maxSteps}, nil
}

func optionalString(fn, param string, v starlark.Value) (string, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return "", nil
	case starlark.String:
		return string(v), nil
	}
	return "", fmt.Errorf("%s: %s must be a string, got %s", fn, param, v.Type())
}

// optionalInt accepts ints and digit strings, since substituted environment
// values arrive as string literals.
func optionalInt(fn, param string, v starlark.Value) (int, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return 0, nil
	case starlark.Int:
		n, ok := v.Int64()
		if !ok || n < 0 {
			return 0, fmt.Errorf("%s: %s out of range", fn, param)
		}
		return int(n), nil
	case starlark.String:
		n, err := strconv.Atoi(strings.TrimSpace(string(v)))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s: %s must be a non-negative integer, got %q", fn, param, string(v))
		}
		return n, nil
	}
	return 0, fmt.Errorf("%s: %s must be an int, got %s", fn, param, v.Type())
}
