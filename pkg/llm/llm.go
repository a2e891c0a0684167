// Package llm provides text-in text-out callers for the metadata
// extraction prompts, covering OpenAI, Anthropic, and Ollama.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mitgor/screensort/pkg/credentials"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// callTimeout bounds a single provider round trip.
const callTimeout = 30 * time.Second

// providerDefaults supplies the model and endpoint used when the config
// leaves them empty.
var providerDefaults = map[string]struct{ model, baseURL string }{
	ProviderOpenAI:    {"gpt-4o-mini", "https://api.openai.com"},
	ProviderAnthropic: {"claude-3-5-haiku-latest", "https://api.anthropic.com"},
	ProviderOllama:    {"llama3.2", "http://localhost:11434"},
}

// Caller sends one prompt to a model and returns the raw response text.
type Caller func(ctx context.Context, prompt string) (string, error)

// Config holds what is needed to construct a Caller.
type Config struct {
	Provider string               // "openai", "anthropic", or "ollama"
	Model    string               // e.g. "gpt-4o-mini", "claude-3-5-haiku-latest"
	APIKey   string               // explicit API key (highest priority)
	BaseURL  string               // override base URL
	CredMgr  *credentials.Manager // credentials from screensort auth
}

// HasCredentials reports whether a key can be resolved for the configured
// provider without constructing a caller. Ollama never needs one.
func HasCredentials(cfg Config) bool {
	if cfg.APIKey != "" {
		return true
	}
	provider := strings.ToLower(cfg.Provider)
	if provider == ProviderOllama {
		return true
	}
	if cfg.CredMgr != nil {
		if key, err := cfg.CredMgr.ResolveKey(provider); err == nil && key != "" {
			return true
		}
	}
	return false
}

// New creates a Caller from the configuration. The API key comes from the
// explicit Config field first, then from the credentials manager (stored
// key, then environment variable). A keyed provider with no resolvable key
// degrades to local Ollama rather than failing the whole batch.
func New(cfg Config) (Caller, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderOpenAI
	}

	apiKey := cfg.APIKey
	if apiKey == "" && cfg.CredMgr != nil {
		if key, err := cfg.CredMgr.ResolveKey(provider); err == nil {
			apiKey = key
		}
	}

	if apiKey == "" && provider != ProviderOllama {
		slog.Debug("no model API key found, falling back to ollama", "provider", provider)
		provider = ProviderOllama
	}

	defaults, ok := providerDefaults[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	model := cfg.Model
	if model == "" {
		model = defaults.model
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaults.baseURL
	}

	switch provider {
	case ProviderAnthropic:
		return newAnthropicCaller(apiKey, model, baseURL), nil
	case ProviderOllama:
		return newOllamaCaller(model, baseURL), nil
	default:
		return newOpenAICaller(apiKey, model, baseURL), nil
	}
}

// postJSON sends one JSON request and decodes the body into out. Non-200
// statuses come back as a classified *ModelError.
func postJSON(ctx context.Context, provider, url string, headers map[string]string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return classifyError(provider, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// --- OpenAI caller ---

type openAIRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	ResponseFormat *openAIRespFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRespFormat struct {
	Type string `json:"type"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAICaller(apiKey, model, baseURL string) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		reqBody := openAIRequest{
			Model:          model,
			Messages:       []openAIMessage{{Role: "user", Content: prompt}},
			ResponseFormat: &openAIRespFormat{Type: "json_object"},
		}

		var result openAIResponse
		headers := map[string]string{"Authorization": "Bearer " + apiKey}
		if err := postJSON(ctx, ProviderOpenAI, baseURL+"/v1/chat/completions", headers, reqBody, &result); err != nil {
			return "", err
		}

		if result.Error != nil {
			return "", classifyError(ProviderOpenAI, 0, result.Error.Message)
		}
		if len(result.Choices) == 0 {
			return "", classifyError(ProviderOpenAI, 0, "no choices returned")
		}

		return result.Choices[0].Message.Content, nil
	}
}

// --- Anthropic caller ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newAnthropicCaller(apiKey, model, baseURL string) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		reqBody := anthropicRequest{
			Model:     model,
			MaxTokens: 1024,
			Messages: []anthropicMessage{
				{Role: "user", Content: prompt + "\n\nReturn ONLY valid JSON, no markdown or extra text."},
			},
		}

		var result anthropicResponse
		headers := map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": "2023-06-01",
		}
		if err := postJSON(ctx, ProviderAnthropic, baseURL+"/v1/messages", headers, reqBody, &result); err != nil {
			return "", err
		}

		if result.Error != nil {
			return "", classifyError(ProviderAnthropic, 0, result.Error.Message)
		}
		if len(result.Content) == 0 {
			return "", classifyError(ProviderAnthropic, 0, "no content returned")
		}

		return result.Content[0].Text, nil
	}
}

// --- Ollama caller ---

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func newOllamaCaller(model, baseURL string) Caller {
	return func(ctx context.Context, prompt string) (string, error) {
		reqBody := ollamaChatRequest{
			Model:    model,
			Messages: []ollamaChatMessage{{Role: "user", Content: prompt}},
			Stream:   false,
			Format:   "json",
		}

		var result ollamaChatResponse
		if err := postJSON(ctx, ProviderOllama, baseURL+"/api/chat", nil, reqBody, &result); err != nil {
			return "", err
		}

		return result.Message.Content, nil
	}
}
