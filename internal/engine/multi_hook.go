package engine

import "context"

// Hooks fans every event out in order. Contexts returned by one hook are
// handed to the next.
type Hooks []Hook

func (hs Hooks) OnRunStart(ctx context.Context, st *State, task string) context.Context {
	for _, h := range hs {
		ctx = h.OnRunStart(ctx, st, task)
	}
	return ctx
}
func (hs Hooks) OnStepStart(ctx context.Context, st *State) context.Context {
	for _, h := range hs {
		ctx = h.OnStepStart(ctx, st)
	}
	return ctx
}
func (hs Hooks) OnBeforeLLM(ctx context.Context, st *State, m []ChatMessage, schemas []ToolSchema) context.Context {
	for _, h := range hs {
		ctx = h.OnBeforeLLM(ctx, st, m, schemas)
	}
	return ctx
}
func (hs Hooks) OnAfterLLM(ctx context.Context, st *State, r LLMResponse, err error) {
	for _, h := range hs {
		h.OnAfterLLM(ctx, st, r, err)
	}
}
func (hs Hooks) OnToolCall(ctx context.Context, st *State, c ToolCall) context.Context {
	for _, h := range hs {
		ctx = h.OnToolCall(ctx, st, c)
	}
	return ctx
}
func (hs Hooks) OnToolResult(ctx context.Context, st *State, c ToolCall, s string, e error) {
	for _, h := range hs {
		h.OnToolResult(ctx, st, c, s, e)
	}
}
func (hs Hooks) OnHistoryTrimmed(ctx context.Context, st *State, before, after int) {
	for _, h := range hs {
		h.OnHistoryTrimmed(ctx, st, before, after)
	}
}
func (hs Hooks) OnDone(ctx context.Context, st *State) {
	for _, h := range hs {
		h.OnDone(ctx, st)
	}
}
func (hs Hooks) OnRunEnd(ctx context.Context, st *State, err error) {
	for _, h := range hs {
		h.OnRunEnd(ctx, st, err)
	}
}
