package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

func TestNewFromModelID(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk")

	tests := []struct {
		name     string
		spec     ModelSpec
		provider string
		model    string
		baseURL  string
		wantErr  string
	}{
		{
			name:     "ollama chat with api base",
			spec:     ModelSpec{ModelID: "ollama_chat/qwen2.5-coder:32b", APIBase: "http://host.docker.internal:11434", NumCtx: 8192},
			provider: "ollama_chat",
			model:    "qwen2.5-coder:32b",
			baseURL:  "http://host.docker.internal:11434",
		},
		{
			name:     "ollama default base",
			spec:     ModelSpec{ModelID: "ollama/llama3.1"},
			provider: "ollama",
			model:    "llama3.1",
			baseURL:  DefaultOllamaBase,
		},
		{
			name:     "openai from env key",
			spec:     ModelSpec{ModelID: "openai/gpt-4o-mini"},
			provider: "openai",
			model:    "gpt-4o-mini",
		},
		{
			name:     "hosted openai compatible",
			spec:     ModelSpec{ModelID: "groq/llama-3.1-70b-versatile"},
			provider: "groq",
			model:    "llama-3.1-70b-versatile",
			baseURL:  "https://api.groq.com/openai/v1",
		},
		{name: "anthropic without key", spec: ModelSpec{ModelID: "anthropic/claude-3-5-sonnet-latest"}, wantErr: "ANTHROPIC_API_KEY not set"},
		{name: "no prefix", spec: ModelSpec{ModelID: "qwen"}, wantErr: "<provider>/<model>"},
		{name: "unknown prefix", spec: ModelSpec{ModelID: "foo/bar"}, wantErr: "unknown model provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewFromModelID(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, m.Provider)
			assert.Equal(t, tt.model, m.Name)
			assert.Equal(t, tt.spec.NumCtx, m.ContextWindow)
			if tt.baseURL != "" {
				c, ok := m.Client.(interface{ BaseURL() string })
				require.True(t, ok)
				assert.Equal(t, tt.baseURL, c.BaseURL())
			}
		})
	}
}

func TestOpenAIClientChatToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "qwen",
			"choices": [{
				"index": 0,
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "web_search", "arguments": "{\"query\":\"party music\"}"}}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("ollama", srv.URL+"/v1", srv.Client())
	resp, err := c.Chat(context.Background(), "qwen", []engine.ChatMessage{
		{Role: engine.RoleSystem, Content: "be helpful"},
		{Role: engine.RoleUser, Content: "find music"},
	}, []engine.ToolSchema{{
		Name:        "web_search",
		Description: "Searches the web.",
		JSONSchema:  `{"type":"object","properties":{"query":{"type":"string"}}}`,
	}}, engine.ChatOptions{MaxOutputTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, engine.ToolCall{ID: "call_1", Name: "web_search", Args: map[string]any{"query": "party music"}}, resp.ToolCalls[0])
	assert.Equal(t, engine.Usage{Prompt: 12, Completion: 7, Total: 19}, resp.Usage)

	assert.Equal(t, "qwen", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"message":"model \"qwen\" not found","type":"api_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("ollama", srv.URL+"/v1", srv.Client())
	_, err := c.Chat(context.Background(), "qwen", []engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, nil, engine.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion (qwen)")
}

func TestToOpenAIMessagesDropsOrphanToolResults(t *testing.T) {
	msgs := toOpenAIMessages([]engine.ChatMessage{
		{Role: engine.RoleUser, Content: "task"},
		{Role: engine.RoleTool, Name: "call_0", Content: "orphan"},
		{Role: engine.RoleAssistant, ToolCalls: []engine.ToolCall{{ID: "call_1", Name: "web_search", Args: map[string]any{"query": "x"}}}},
		{Role: engine.RoleTool, Name: "call_1", Content: ""},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, " ", msgs[1].Content)
	assert.Equal(t, `{"query":"x"}`, msgs[1].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", msgs[2].ToolCallID)
	assert.Equal(t, "{}", msgs[2].Content)
}

func TestToAnthropicMessagesGroupsToolResults(t *testing.T) {
	system, msgs := toAnthropicMessages([]engine.ChatMessage{
		{Role: engine.RoleSystem, Content: "sys"},
		{Role: engine.RoleUser, Content: "task"},
		{Role: engine.RoleAssistant, ToolCalls: []engine.ToolCall{{ID: "a", Name: "web_search"}, {ID: "b", Name: "web_search"}}},
		{Role: engine.RoleTool, Name: "a", Content: "one"},
		{Role: engine.RoleTool, Name: "b", Content: "two"},
	})
	require.Len(t, system, 1)
	assert.Equal(t, "sys", system[0].Text)
	require.Len(t, msgs, 3)
	assert.Len(t, msgs[1].Content, 2)
	assert.Len(t, msgs[2].Content, 2)
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, map[string]any{}, parseArgs(""))
	assert.Equal(t, map[string]any{}, parseArgs("{not json"))
	assert.Equal(t, map[string]any{"n": float64(3)}, parseArgs(`{"n":3}`))
}

func TestOllamaClientSendsNumCtx(t *testing.T) {
	var path string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"model": "qwen",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "web_search", "arguments": {"query": "party music"}}}]
			},
			"done": true,
			"done_reason": "stop",
			"prompt_eval_count": 30,
			"eval_count": 9
		}`)
	}))
	defer srv.Close()

	m, err := NewFromModelID(ModelSpec{ModelID: "ollama_chat/qwen", APIBase: srv.URL, NumCtx: 8192})
	require.NoError(t, err)

	resp, err := m.Client.Chat(context.Background(), m.Name, []engine.ChatMessage{
		{Role: engine.RoleUser, Content: "x"},
	}, []engine.ToolSchema{{Name: "web_search", Description: "Searches the web."}}, engine.ChatOptions{MaxOutputTokens: 256})
	require.NoError(t, err)

	assert.Equal(t, "/api/chat", path)
	assert.Equal(t, "qwen", got["model"])
	assert.Equal(t, false, got["stream"])
	options, ok := got["options"].(map[string]any)
	require.True(t, ok, "request has no options: %v", got)
	assert.Equal(t, float64(8192), options["num_ctx"])
	assert.Equal(t, float64(256), options["num_predict"])
	require.Len(t, got["tools"], 1)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
	assert.Equal(t, map[string]any{"query": "party music"}, resp.ToolCalls[0].Args)
	assert.Equal(t, engine.Usage{Prompt: 30, Completion: 9, Total: 39}, resp.Usage)
}

func TestOllamaClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"model \"qwen\" not found, try pulling it first"}`)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0, srv.Client())
	_, err := c.Chat(context.Background(), "qwen", []engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, nil, engine.ChatOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "not found")
}

func TestToOllamaMessagesNamesToolResults(t *testing.T) {
	msgs := toOllamaMessages([]engine.ChatMessage{
		{Role: engine.RoleUser, Content: "task"},
		{Role: engine.RoleTool, Name: "call_0", Content: "orphan"},
		{Role: engine.RoleAssistant, ToolCalls: []engine.ToolCall{{ID: "call_1", Name: "web_search", Args: map[string]any{"query": "x"}}}},
		{Role: engine.RoleTool, Name: "call_1", Content: "results"},
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "web_search", msgs[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", msgs[2].Role)
	assert.Equal(t, "web_search", msgs[2].ToolName)
	assert.Equal(t, "results", msgs[2].Content)
}
