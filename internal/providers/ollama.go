package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// OllamaClient implements engine.LLMClient over Ollama's native /api/chat
// endpoint. Unlike the OpenAI-compatible /v1 route it accepts per-request
// options, so the context window is set on the server.
type OllamaClient struct {
	baseURL    string
	numCtx     int
	httpClient *http.Client
}

// NewOllamaClient creates a client for the Ollama server at baseURL. numCtx
// is sent as options.num_ctx when positive.
func NewOllamaClient(baseURL string, numCtx int, httpClient *http.Client) *OllamaClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		numCtx:     numCtx,
		httpClient: httpClient,
	}
}

// BaseURL returns the server root requests are sent to.
func (c *OllamaClient) BaseURL() string {
	return c.baseURL
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Tools    []ollamaTool    `json:"tools,omitempty"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

// Chat implements engine.LLMClient.Chat.
func (c *OllamaClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, toolSchemas []engine.ToolSchema, opts engine.ChatOptions) (engine.LLMResponse, error) {
	tools, err := toOllamaTools(toolSchemas)
	if err != nil {
		return engine.LLMResponse{}, err
	}

	req := ollamaChatRequest{
		Model:    modelName,
		Messages: toOllamaMessages(messages),
		Tools:    tools,
		Options:  c.options(opts),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return engine.LLMResponse{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return engine.LLMResponse{}, fmt.Errorf("chat request (%s): %w", modelName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return engine.LLMResponse{}, fmt.Errorf("chat request (%s): %w", modelName, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return engine.LLMResponse{}, fmt.Errorf("failed to read chat response: %w", err)
	}

	var resp ollamaChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil && httpResp.StatusCode == http.StatusOK {
		return engine.LLMResponse{}, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK || resp.Error != "" {
		msg := resp.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return engine.LLMResponse{}, fmt.Errorf("chat request (%s): status %d: %s", modelName, httpResp.StatusCode, msg)
	}

	var toolCalls []engine.ToolCall
	for _, tc := range resp.Message.ToolCalls {
		args := tc.Function.Arguments
		if args == nil {
			args = map[string]any{}
		}
		toolCalls = append(toolCalls, engine.ToolCall{Name: tc.Function.Name, Args: args})
	}

	finishReason := "stop"
	if len(toolCalls) > 0 {
		finishReason = "tool_calls"
	} else if resp.DoneReason == "length" {
		finishReason = "length"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{
			Role:      engine.RoleAssistant,
			Content:   resp.Message.Content,
			ToolCalls: toolCalls,
		},
		ToolCalls: toolCalls,
		Usage: engine.Usage{
			Prompt:     resp.PromptEvalCount,
			Completion: resp.EvalCount,
			Total:      resp.PromptEvalCount + resp.EvalCount,
		},
		FinishReason: finishReason,
	}, nil
}

func (c *OllamaClient) options(opts engine.ChatOptions) map[string]any {
	out := map[string]any{}
	if c.numCtx > 0 {
		out["num_ctx"] = c.numCtx
	}
	if opts.MaxOutputTokens > 0 {
		out["num_predict"] = opts.MaxOutputTokens
	}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// toOllamaMessages converts engine history. Ollama matches tool results by
// tool name rather than call ID, so IDs are resolved through the preceding
// assistant turn; orphaned results are dropped.
func toOllamaMessages(messages []engine.ChatMessage) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	callNames := map[string]string{}

	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem, engine.RoleUser:
			out = append(out, ollamaMessage{Role: string(msg.Role), Content: msg.Content})
			clear(callNames)
		case engine.RoleAssistant:
			clear(callNames)
			m := ollamaMessage{Role: string(engine.RoleAssistant), Content: msg.Content}
			for _, tc := range msg.ToolCalls {
				var call ollamaToolCall
				call.Function.Name = tc.Name
				call.Function.Arguments = tc.Args
				if call.Function.Arguments == nil {
					call.Function.Arguments = map[string]any{}
				}
				m.ToolCalls = append(m.ToolCalls, call)
				callNames[tc.ID] = tc.Name
			}
			out = append(out, m)
		case engine.RoleTool:
			name, ok := callNames[msg.Name]
			if !ok {
				continue
			}
			out = append(out, ollamaMessage{Role: string(engine.RoleTool), Content: msg.Content, ToolName: name})
		}
	}
	return out
}

func toOllamaTools(toolSchemas []engine.ToolSchema) ([]ollamaTool, error) {
	var tools []ollamaTool
	for _, ts := range toolSchemas {
		params, err := schemaObject(ts)
		if err != nil {
			return nil, err
		}
		var tool ollamaTool
		tool.Type = "function"
		tool.Function.Name = ts.Name
		tool.Function.Description = ts.Description
		tool.Function.Parameters = params
		tools = append(tools, tool)
	}
	return tools, nil
}
