// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// The provider speaks the chat completions API over plain HTTP, which
// keeps it compatible with Azure OpenAI, local models, and other
// OpenAI-compatible services reachable through a custom base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/openai/openai-go"

	"github.com/entrhq/wayfind/pkg/llm"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"
)

// Provider implements the LLM provider interface for OpenAI-compatible APIs.
type Provider struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	temperature float64
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = baseURL
		}
	}
}

// WithTemperature sets the sampling temperature. Planning wants
// near-deterministic output, so the default is 0.1.
func WithTemperature(temperature float64) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, it falls back to the OPENAI_API_KEY environment
// variable; the base URL likewise falls back to OPENAI_BASE_URL.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		httpClient:  &http.Client{},
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		model:       DefaultModel,
		temperature: 0.1,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = envBaseURL
		}
	}

	return p, nil
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

// Complete sends messages to the chat completions endpoint and returns the
// response text.
func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	reqBody := map[string]interface{}{
		"model":       p.model,
		"messages":    convertToOpenAIMessages(messages),
		"temperature": p.temperature,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("API request failed with status %d (failed to read error body: %w)", resp.StatusCode, readErr)
		}
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("API response contained no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// convertToOpenAIMessages converts internal messages to the SDK's message
// parameter unions.
func convertToOpenAIMessages(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case llm.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}
	return openaiMessages
}
