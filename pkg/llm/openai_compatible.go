package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatibleClient implements the Client interface for any
// OpenAI-compatible API, including Ollama, LocalAI, vLLM, and hosted
// OpenAI itself.
type OpenAICompatibleClient struct {
	client *openai.Client
	config Config
}

// NewOpenAICompatibleClient creates a client for an OpenAI-compatible
// service.
//
//   - baseURL: service root, e.g. "http://localhost:11434" for Ollama.
//     "/v1" is appended when the URL does not already carry an API path.
//   - apiKey: may be empty for services that do not authenticate.
//   - model: completion model to use, e.g. "llama3:8b".
func NewOpenAICompatibleClient(baseURL, apiKey, model string, config Config) (*OpenAICompatibleClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL cannot be empty")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("baseURL must use http:// or https:// scheme")
	}

	if model == "" {
		model = "gpt-3.5-turbo"
	}
	config.Model = model

	// Some services reject requests without a bearer token even when they
	// ignore its value.
	if apiKey == "" {
		apiKey = "dummy-key"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = baseURL
	if !hasAPIPath(baseURL) {
		clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}

	return &OpenAICompatibleClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Chat sends a chat completion request to the service.
func (c *OpenAICompatibleClient) Chat(ctx context.Context, messages []Message) (*Response, error) {
	openaiMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		openaiMessages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	req := openai.ChatCompletionRequest{
		Model:    c.config.Model,
		Messages: openaiMessages,
	}
	if c.config.Temperature != nil {
		req.Temperature = *c.config.Temperature
	}
	if c.config.MaxTokens != nil {
		req.MaxTokens = *c.config.MaxTokens
	}
	if len(c.config.Stop) > 0 {
		req.Stop = c.config.Stop
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from completion service")
	}

	choice := resp.Choices[0]
	return &Response{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		TokensUsed: &TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Models lists model identifiers reported by the service's /models
// endpoint.
func (c *OpenAICompatibleClient) Models(ctx context.Context) ([]string, error) {
	list, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models failed: %w", err)
	}

	ids := make([]string, len(list.Models))
	for i, m := range list.Models {
		ids[i] = m.ID
	}
	return ids, nil
}

// Close cleans up resources (no-op for HTTP-backed clients).
func (c *OpenAICompatibleClient) Close() error {
	return nil
}

// hasAPIPath reports whether the URL already ends in a versioned API path.
func hasAPIPath(baseURL string) bool {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	path := strings.TrimSuffix(parsed.Path, "/")
	return strings.HasSuffix(path, "/v1") || strings.HasSuffix(path, "/api")
}
