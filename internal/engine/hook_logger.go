package engine

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// LoggerHook writes one structured record per run event.
type LoggerHook struct{ L *slog.Logger }

func (h LoggerHook) OnRunStart(ctx context.Context, st *State, task string) context.Context {
	h.L.Info("run started", "run_id", st.RunID, "model", st.Model, "max_steps", st.MaxSteps, "task", preview(task, 120))
	return ctx
}

func (h LoggerHook) OnStepStart(ctx context.Context, st *State) context.Context {
	h.L.Debug("step", "step", st.Step)
	return ctx
}

func (h LoggerHook) OnBeforeLLM(ctx context.Context, st *State, msgs []ChatMessage, toolSchemas []ToolSchema) context.Context {
	h.L.Debug("llm request",
		"step", st.Step,
		"messages", len(msgs),
		"history", len(st.History),
		"message_tokens", messageTokens(msgs),
		"tool_tokens", schemaTokens(toolSchemas),
		"cumulative_tokens", st.Totals.Total,
	)
	return ctx
}

func (h LoggerHook) OnAfterLLM(_ context.Context, st *State, r LLMResponse, err error) {
	if err != nil {
		h.L.Error("llm call failed", "step", st.Step, "error", err)
		return
	}
	h.L.Debug("llm response",
		"step", st.Step,
		"finish", r.FinishReason,
		"tool_calls", len(r.ToolCalls),
		"prompt_tokens", r.Usage.Prompt,
		"completion_tokens", r.Usage.Completion,
		"cumulative_tokens", st.Totals.Total,
	)
}

func (h LoggerHook) OnToolCall(ctx context.Context, st *State, c ToolCall) context.Context {
	h.L.Info("tool call", "step", st.Step, "tool", c.Name, "args", c.Args)
	return ctx
}

func (h LoggerHook) OnToolResult(_ context.Context, st *State, c ToolCall, result string, err error) {
	if err != nil {
		h.L.Warn("tool failed", "step", st.Step, "tool", c.Name, "error", err)
		return
	}
	h.L.Debug("tool result", "step", st.Step, "tool", c.Name, "result", preview(result, 200))
}

func (h LoggerHook) OnHistoryTrimmed(_ context.Context, st *State, before, after int) {
	h.L.Info("history trimmed", "step", st.Step, "before_tokens", before, "after_tokens", after, "limit", st.Budget.Limit())
}

func (h LoggerHook) OnDone(_ context.Context, st *State) {
	h.L.Info("done", "steps", st.Step, "tokens", st.Totals.Total)
}

func (h LoggerHook) OnRunEnd(_ context.Context, st *State, err error) {
	if err != nil {
		h.L.Error("run failed", "run_id", st.RunID, "steps", st.Step, "error", err)
		return
	}
	h.L.Info("run finished", "run_id", st.RunID, "steps", st.Step, "tool_calls", st.ToolCallCount)
}

// preview cuts s to n runes.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
