package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// prepareMessages fits the history into the context window. History itself
// is left untouched; only the copy sent to the model is trimmed.
func prepareMessages(ctx context.Context, st *State, hooks Hooks) []ChatMessage {
	msgs := append([]ChatMessage(nil), st.History...)
	fitted, before, after := fitHistory(msgs, st.Budget)
	if after < before {
		hooks.OnHistoryTrimmed(ctx, st, before, after)
	}
	return fitted
}

func executeTool(ctx context.Context, call ToolCall, reg ToolRegistry) (string, error) {
	t, ok := reg[call.Name]
	if !ok {
		return "", fmt.Errorf("tool not found: %s (available tools: %v)", call.Name, reg.Names())
	}

	if err := t.ValidateArgs(call.Args); err != nil {
		return "", fmt.Errorf("validation failed for tool %s: %w", call.Name, err)
	}

	result, err := t.Fn(ctx, call.Args)
	if err != nil {
		return "", fmt.Errorf("execution failed for tool %s: %w", call.Name, err)
	}

	return result, nil
}

// processLLMResponse updates usage totals and appends the assistant turn.
// Tool calls without a provider ID get one so tool results can reference them.
func processLLMResponse(ctx context.Context, resp *LLMResponse, st *State, hooks Hooks) {
	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}

	st.Totals.Prompt += resp.Usage.Prompt
	st.Totals.Completion += resp.Usage.Completion
	st.Totals.Total += resp.Usage.Total

	hooks.OnAfterLLM(ctx, st, *resp, nil)

	assistantMsg := resp.Assistant
	assistantMsg.Role = RoleAssistant
	assistantMsg.ToolCalls = resp.ToolCalls
	st.Append(assistantMsg)
}

// executeToolCalls runs the calls in order and appends one tool message per
// call. A successful final_answer call ends the run; calls after it are skipped.
func executeToolCalls(ctx context.Context, calls []ToolCall, reg ToolRegistry, hooks Hooks, st *State) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		toolCtx := hooks.OnToolCall(ctx, st, call)
		st.ToolCallCount++

		content, err := executeTool(toolCtx, call, reg)
		if err != nil {
			content = "ERROR: " + err.Error()
		}
		st.Append(ChatMessage{Role: RoleTool, Name: call.ID, Content: content})
		hooks.OnToolResult(toolCtx, st, call, content, err)

		if call.Name == FinalAnswerTool && err == nil {
			st.Done = true
			st.Answer = content
			return nil
		}
	}
	return nil
}

func stepOnce(ctx context.Context, llm LLMClient, reg ToolRegistry, st *State, hooks Hooks, opts ChatOptions) error {
	ctx = hooks.OnStepStart(ctx, st)

	msgs := prepareMessages(ctx, st, hooks)
	toolSchemas := reg.Schemas()
	llmCtx := hooks.OnBeforeLLM(ctx, st, msgs, toolSchemas)

	resp, err := llm.Chat(llmCtx, st.Model, msgs, toolSchemas, opts)
	if err != nil {
		hooks.OnAfterLLM(llmCtx, st, LLMResponse{}, err)
		return WrapWithContext(err, st, "llm_call", "")
	}
	processLLMResponse(llmCtx, &resp, st, hooks)

	// A reply without tool calls is the answer.
	if len(resp.ToolCalls) == 0 {
		st.Done = true
		st.Answer = resp.Assistant.Content
		return nil
	}

	if err := executeToolCalls(ctx, resp.ToolCalls, reg, hooks, st); err != nil {
		return WrapWithContext(err, st, "tool_execution", "")
	}
	return nil
}

// finalAnswerPrompt is sent when the step limit is hit without an answer.
const finalAnswerPrompt = "You have reached the maximum number of steps. " +
	"Using only the information gathered so far, give your best final answer to the task now. " +
	"Reply with the answer text only."

// forceFinalAnswer asks the model for an answer with no tools offered.
func forceFinalAnswer(ctx context.Context, llm LLMClient, st *State, hooks Hooks, opts ChatOptions) error {
	st.Append(ChatMessage{Role: RoleUser, Content: finalAnswerPrompt})

	msgs := prepareMessages(ctx, st, hooks)
	llmCtx := hooks.OnBeforeLLM(ctx, st, msgs, nil)

	resp, err := llm.Chat(llmCtx, st.Model, msgs, nil, opts)
	if err != nil {
		hooks.OnAfterLLM(llmCtx, st, LLMResponse{}, err)
		return WrapWithContext(err, st, "final_answer", "")
	}
	resp.ToolCalls = nil
	processLLMResponse(llmCtx, &resp, st, hooks)

	if resp.Assistant.Content == "" {
		return ErrMaxSteps
	}
	st.Done = true
	st.Answer = resp.Assistant.Content
	return nil
}
