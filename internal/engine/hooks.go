package engine

import "context"

// Hook observes a run. Calls happen on the goroutine driving the run, in order.
//
// OnRunStart, OnStepStart, OnBeforeLLM and OnToolCall return the context the
// engine uses for what follows them: the rest of the run, the step, the model
// call and the tool call. Hooks that have nothing to attach return ctx.
type Hook interface {
	OnRunStart(ctx context.Context, st *State, task string) context.Context
	OnStepStart(ctx context.Context, st *State) context.Context
	OnBeforeLLM(ctx context.Context, st *State, messages []ChatMessage, toolSchemas []ToolSchema) context.Context
	OnAfterLLM(ctx context.Context, st *State, resp LLMResponse, err error)
	OnToolCall(ctx context.Context, st *State, call ToolCall) context.Context
	OnToolResult(ctx context.Context, st *State, call ToolCall, result string, err error)
	OnHistoryTrimmed(ctx context.Context, st *State, beforeTokens, afterTokens int)
	OnDone(ctx context.Context, st *State)
	OnRunEnd(ctx context.Context, st *State, err error)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnRunStart(ctx context.Context, _ *State, _ string) context.Context                         { return ctx }
func (NopHook) OnStepStart(ctx context.Context, _ *State) context.Context                                  { return ctx }
func (NopHook) OnBeforeLLM(ctx context.Context, _ *State, _ []ChatMessage, _ []ToolSchema) context.Context { return ctx }
func (NopHook) OnAfterLLM(context.Context, *State, LLMResponse, error)                                     {}
func (NopHook) OnToolCall(ctx context.Context, _ *State, _ ToolCall) context.Context                       { return ctx }
func (NopHook) OnToolResult(context.Context, *State, ToolCall, string, error)                              {}
func (NopHook) OnHistoryTrimmed(context.Context, *State, int, int)                                         {}
func (NopHook) OnDone(context.Context, *State)                                                             {}
func (NopHook) OnRunEnd(context.Context, *State, error)                                                    {}
