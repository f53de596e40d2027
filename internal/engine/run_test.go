package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM replays canned responses and records what it was sent.
type scriptedLLM struct {
	responses []LLMResponse
	err       error
	calls     int
	lastMsgs  []ChatMessage
	lastTools []ToolSchema
	ctxs      []context.Context
}

func (s *scriptedLLM) Chat(ctx context.Context, _ string, msgs []ChatMessage, tools []ToolSchema, _ ChatOptions) (LLMResponse, error) {
	s.ctxs = append(s.ctxs, ctx)
	s.lastMsgs = msgs
	s.lastTools = tools
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	if s.calls >= len(s.responses) {
		return LLMResponse{}, errors.New("no scripted response left")
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

type recordingHook struct {
	NopHook
	events []string
}

func (h *recordingHook) OnRunStart(ctx context.Context, _ *State, _ string) context.Context {
	h.events = append(h.events, "start")
	return ctx
}
func (h *recordingHook) OnToolCall(ctx context.Context, _ *State, c ToolCall) context.Context {
	h.events = append(h.events, "tool:"+c.Name)
	return ctx
}
func (h *recordingHook) OnDone(context.Context, *State) { h.events = append(h.events, "done") }
func (h *recordingHook) OnRunEnd(_ context.Context, _ *State, err error) {
	if err != nil {
		h.events = append(h.events, "end:error")
		return
	}
	h.events = append(h.events, "end")
}

func toolCallResponse(name string, args map[string]any) LLMResponse {
	return LLMResponse{
		Assistant:    ChatMessage{Role: RoleAssistant},
		ToolCalls:    []ToolCall{{Name: name, Args: args}},
		FinishReason: "tool_calls",
	}
}

func testRegistry() ToolRegistry {
	reg := make(ToolRegistry)
	reg.Register(Tool{
		Name:        "web_search",
		Description: "Searches the web.",
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return "results for " + args["query"].(string), nil
		},
	})
	reg.Register(Tool{
		Name:        FinalAnswerTool,
		Description: "Provides the final answer.",
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			return args["answer"].(string), nil
		},
	})
	return reg
}

func TestAgentRunEndsOnFinalAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		toolCallResponse("web_search", map[string]any{"query": "party music"}),
		toolCallResponse(FinalAnswerTool, map[string]any{"answer": "Play funk."}),
	}}
	hook := &recordingHook{}
	cfg := DefaultAgentConfig()
	cfg.Model = "qwen2.5-coder:32b"

	agent, err := NewAgent(llm, testRegistry(), cfg, hook)
	require.NoError(t, err)

	answer, err := agent.Run(context.Background(), "Find party music")
	require.NoError(t, err)
	assert.Equal(t, "Play funk.", answer)
	assert.Equal(t, []string{"start", "tool:web_search", "tool:final_answer", "done", "end"}, hook.events)

	st := agent.LastState()
	assert.Equal(t, 2, st.Step)
	assert.Equal(t, 2, st.ToolCallCount)
	assert.Contains(t, st.History[0].Content, "- web_search: Searches the web.")
	assert.Equal(t, "results for party music", st.History[3].Content)
	assert.Len(t, llm.lastTools, 2)
}

func TestRunPlainReplyIsAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		{Assistant: ChatMessage{Role: RoleAssistant, Content: "Just an answer"}, FinishReason: "stop"},
	}}
	st := &State{MaxSteps: 5, History: []ChatMessage{{Role: RoleUser, Content: "hi"}}}

	require.NoError(t, Run(context.Background(), llm, testRegistry(), st, nil, ChatOptions{}))
	assert.True(t, st.Done)
	assert.Equal(t, "Just an answer", st.Answer)
	assert.Equal(t, 1, llm.calls)
}

func TestRunForcesAnswerAtMaxSteps(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		toolCallResponse("web_search", map[string]any{"query": "a"}),
		toolCallResponse("web_search", map[string]any{"query": "b"}),
		{Assistant: ChatMessage{Role: RoleAssistant, Content: "Best effort"}},
	}}
	st := &State{MaxSteps: 2, History: []ChatMessage{{Role: RoleUser, Content: "task"}}}

	require.NoError(t, Run(context.Background(), llm, testRegistry(), st, nil, ChatOptions{}))
	assert.Equal(t, "Best effort", st.Answer)
	assert.Nil(t, llm.lastTools, "final call must not offer tools")
	assert.Equal(t, finalAnswerPrompt, llm.lastMsgs[len(llm.lastMsgs)-1].Content)
}

func TestRunEmptyForcedAnswer(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		toolCallResponse("web_search", map[string]any{"query": "a"}),
		{Assistant: ChatMessage{Role: RoleAssistant}},
	}}
	st := &State{MaxSteps: 1, History: []ChatMessage{{Role: RoleUser, Content: "task"}}}

	err := Run(context.Background(), llm, testRegistry(), st, nil, ChatOptions{})
	assert.ErrorIs(t, err, ErrMaxSteps)
}

func TestRunLLMErrorCarriesContext(t *testing.T) {
	boom := errors.New("connection refused")
	llm := &scriptedLLM{err: boom}
	hook := &recordingHook{}
	cfg := DefaultAgentConfig()
	cfg.Model = "llama3.1"

	agent, err := NewAgent(llm, testRegistry(), cfg, hook)
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "task")
	require.ErrorIs(t, err, boom)
	var ctxErr *EngineContextError
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, "llm_call", ctxErr.Operation)
	assert.Equal(t, "end:error", hook.events[len(hook.events)-1])
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := &State{MaxSteps: 3}

	err := Run(ctx, &scriptedLLM{}, testRegistry(), st, nil, ChatOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAgentValidation(t *testing.T) {
	_, err := NewAgent(&scriptedLLM{}, testRegistry(), DefaultAgentConfig())
	assert.Error(t, err, "model is required")

	cfg := DefaultAgentConfig()
	cfg.Model = "m"
	cfg.MaxSteps = 0
	_, err = NewAgent(&scriptedLLM{}, testRegistry(), cfg)
	assert.Error(t, err)

	_, err = NewAgent(nil, testRegistry(), cfg)
	assert.Error(t, err)
}

type scopeKey struct{}

// scopeHook tags the context of each phase so tests can see where it went.
type scopeHook struct{ NopHook }

func (scopeHook) OnRunStart(ctx context.Context, _ *State, _ string) context.Context {
	return context.WithValue(ctx, scopeKey{}, "run")
}
func (scopeHook) OnStepStart(ctx context.Context, _ *State) context.Context {
	return context.WithValue(ctx, scopeKey{}, ctx.Value(scopeKey{}).(string)+"/step")
}
func (scopeHook) OnBeforeLLM(ctx context.Context, _ *State, _ []ChatMessage, _ []ToolSchema) context.Context {
	return context.WithValue(ctx, scopeKey{}, ctx.Value(scopeKey{}).(string)+"/llm")
}
func (scopeHook) OnToolCall(ctx context.Context, _ *State, c ToolCall) context.Context {
	return context.WithValue(ctx, scopeKey{}, ctx.Value(scopeKey{}).(string)+"/"+c.Name)
}

func TestHookContextsReachCalls(t *testing.T) {
	llm := &scriptedLLM{responses: []LLMResponse{
		toolCallResponse("web_search", map[string]any{"query": "party music"}),
		{Assistant: ChatMessage{Role: RoleAssistant, Content: "Play funk."}},
	}}
	var toolScope string
	reg := testRegistry()
	search := reg["web_search"]
	search.Fn = func(ctx context.Context, _ map[string]any) (string, error) {
		toolScope, _ = ctx.Value(scopeKey{}).(string)
		return "results", nil
	}
	reg["web_search"] = search

	cfg := DefaultAgentConfig()
	cfg.Model = "qwen2.5-coder:32b"
	agent, err := NewAgent(llm, reg, cfg, scopeHook{})
	require.NoError(t, err)

	_, err = agent.Run(context.Background(), "Find party music")
	require.NoError(t, err)

	require.Len(t, llm.ctxs, 2)
	assert.Equal(t, "run/step/llm", llm.ctxs[0].Value(scopeKey{}))
	assert.Equal(t, "run/step/llm", llm.ctxs[1].Value(scopeKey{}))
	assert.Equal(t, "run/step/web_search", toolScope)
}
