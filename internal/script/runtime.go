// Package script runs agent programs written in Starlark. The predeclared
// environment exposes environment lookup, trace registration, model
// construction, the web search tool and the code agent.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
	"github.com/ChamsBouzaiene/sandrun/internal/providers"
	"github.com/ChamsBouzaiene/sandrun/internal/telemetry"
)

// Options configures a Runtime. Zero values use the production backends.
type Options struct {
	Stdout         io.Writer
	Logger         *slog.Logger
	LookupEnv      func(string) (string, bool)
	NewModel       func(providers.ModelSpec) (*providers.Model, error)
	Register       func(context.Context, telemetry.Options) (*telemetry.Provider, error)
	SearchEndpoint string
	HTTPClient     *http.Client
}

// Runtime executes one program at a time.
type Runtime struct {
	opts     Options
	logger   *slog.Logger
	provider *telemetry.Provider
}

// New creates a runtime.
func New(opts Options) *Runtime {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.NewModel == nil {
		opts.NewModel = providers.NewFromModelID
	}
	if opts.Register == nil {
		opts.Register = telemetry.Register
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = providers.NewHTTPClient()
	}
	return &Runtime{
		opts:   opts,
		logger: opts.Logger.With("component", "script"),
	}
}

// Exec runs src. filename is only used in error positions.
func (r *Runtime) Exec(ctx context.Context, filename string, src string) error {
	thread := &starlark.Thread{
		Name: filename,
		Print: func(_ *starlark.Thread, msg string) {
			fmt.Fprintln(r.opts.Stdout, msg)
		},
	}
	thread.SetLocal(ctxKey, ctx)
	stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
	defer stop()

	_, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, r.predeclared())
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return errors.New(evalErr.Backtrace())
		}
		return err
	}
	return nil
}

// Close flushes traces when telemetry.register() was called.
func (r *Runtime) Close(ctx context.Context) error {
	if r.provider == nil {
		return nil
	}
	err := r.provider.Shutdown(ctx)
	r.provider = nil
	return err
}

func (r *Runtime) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"os": &starlarkstruct.Module{
			Name: "os",
			Members: starlark.StringDict{
				"getenv": starlark.NewBuiltin("os.getenv", r.getenv),
			},
		},
		"telemetry": &starlarkstruct.Module{
			Name: "telemetry",
			Members: starlark.StringDict{
				"register": starlark.NewBuiltin("telemetry.register", r.registerTelemetry),
			},
		},
		"litellm_model":   starlark.NewBuiltin("litellm_model", r.litellmModel),
		"web_search_tool": starlark.NewBuiltin("web_search_tool", r.webSearchTool),
		"code_agent":      starlark.NewBuiltin("code_agent", r.codeAgent),
	}
}

// hooks returns fresh hooks for one agent; span state is per agent.
func (r *Runtime) hooks() []engine.Hook {
	hs := []engine.Hook{engine.LoggerHook{L: r.logger}}
	if r.provider != nil {
		hs = append(hs, telemetry.NewHook(r.provider.Tracer()))
	}
	return hs
}
