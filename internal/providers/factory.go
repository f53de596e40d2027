// Package providers adapts LLM SDKs to engine.LLMClient.
package providers

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ChamsBouzaiene/sandrun/internal/engine"
)

// DefaultOllamaBase is used when an Ollama model is given no api_base.
const DefaultOllamaBase = "http://localhost:11434"

// ModelSpec describes a model the way agent scripts name it: a
// "<provider>/<model>" id plus optional endpoint, key and context size.
type ModelSpec struct {
	ModelID string
	APIBase string
	APIKey  string
	NumCtx  int
}

// Model is a resolved model: the client, the name sent to it, and the
// context window the engine should fit history into (0 = unknown).
// Ollama models also receive the window as options.num_ctx.
type Model struct {
	Client        engine.LLMClient
	Provider      string
	Name          string
	ContextWindow int
}

// openAICompatible lists hosted providers reached through the OpenAI client.
var openAICompatible = map[string]struct {
	baseURL string
	keyEnv  string
}{
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
	"groq":     {"https://api.groq.com/openai/v1", "GROQ_API_KEY"},
	"gemini":   {"https://generativelanguage.googleapis.com/v1beta/openai", "GEMINI_API_KEY"},
}

// NewHTTPClient returns the HTTP client shared by providers; each request is
// traced with the global tracer provider.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// NewFromModelID resolves spec.ModelID by its provider prefix.
func NewFromModelID(spec ModelSpec) (*Model, error) {
	provider, name, ok := strings.Cut(spec.ModelID, "/")
	if !ok || name == "" {
		return nil, fmt.Errorf("model id %q must look like <provider>/<model>", spec.ModelID)
	}

	m := &Model{Provider: provider, Name: name, ContextWindow: spec.NumCtx}
	switch provider {
	case "ollama", "ollama_chat":
		base := spec.APIBase
		if base == "" {
			base = DefaultOllamaBase
		}
		m.Client = NewOllamaClient(base, spec.NumCtx, nil)

	case "openai":
		apiKey, err := apiKeyFor(spec.APIKey, "OPENAI_API_KEY")
		if err != nil {
			return nil, err
		}
		m.Client = NewOpenAIClient(apiKey, spec.APIBase, nil)

	case "anthropic":
		apiKey, err := apiKeyFor(spec.APIKey, "ANTHROPIC_API_KEY")
		if err != nil {
			return nil, err
		}
		m.Client = NewAnthropicClient(apiKey, spec.APIBase, nil)

	default:
		hosted, ok := openAICompatible[provider]
		if !ok {
			return nil, fmt.Errorf("unknown model provider %q (supported: ollama_chat, ollama, openai, anthropic, deepseek, groq, gemini)", provider)
		}
		apiKey, err := apiKeyFor(spec.APIKey, hosted.keyEnv)
		if err != nil {
			return nil, err
		}
		base := spec.APIBase
		if base == "" {
			base = hosted.baseURL
		}
		m.Client = NewOpenAIClient(apiKey, base, nil)
	}
	return m, nil
}

func apiKeyFor(explicit, envVar string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s not set", envVar)
}
