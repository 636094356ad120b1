package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aks/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

var (
	ErrMissingAPIKey = errors.New("missing API key")
	ErrEmptyResponse = errors.New("empty response from model")
)

// Request is one single-turn completion.
type Request struct {
	System string
	Prompt string
}

// Dispatcher sends a prompt to a remote model.
type Dispatcher interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
}

type provider struct {
	name    string
	baseURL string
	keyEnv  string
}

var providers = map[string]provider{
	"xai":    {name: "xAI Grok API", baseURL: "https://api.x.ai/v1", keyEnv: "XAI_API_KEY"},
	"openai": {name: "OpenAI API", baseURL: "https://api.openai.com/v1", keyEnv: "OPENAI_API_KEY"},
	"ollama": {name: "Ollama", baseURL: "http://localhost:11434/v1"},
	"gemini": {name: "Google Gemini API", keyEnv: "GEMINI_API_KEY"},
}

// New builds the dispatcher for cfg.LLM.Provider.
func New(ctx context.Context, cfg *config.Config) (Dispatcher, error) {
	p, ok := providers[cfg.LLM.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", cfg.LLM.Provider)
	}

	key := cfg.ResolveAPIKey()
	if key == "" && p.keyEnv != "" {
		return nil, fmt.Errorf("%w: set %s or llm.api_key for provider %s", ErrMissingAPIKey, p.keyEnv, cfg.LLM.Provider)
	}

	if cfg.LLM.Provider == "gemini" {
		return NewGeminiClient(ctx, key, cfg.LLM)
	}

	baseURL := p.baseURL
	if cfg.LLM.BaseURL != "" {
		baseURL = cfg.LLM.BaseURL
	}
	return NewClient(p.name, key, baseURL, cfg.LLM), nil
}

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	name   string
	llm    config.LLMConfig
	client *openai.Client
}

func NewClient(name, apiKey, baseURL string, llm config.LLMConfig) *Client {
	oc := openai.DefaultConfig(apiKey)
	oc.BaseURL = strings.TrimRight(baseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: 10 * time.Minute}

	return &Client{
		name:   name,
		llm:    llm,
		client: openai.NewClientWithConfig(oc),
	}
}

func (c *Client) Name() string  { return c.name }
func (c *Client) Model() string { return c.llm.Model }

func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.llm.Model,
		Messages:    messages,
		MaxTokens:   c.llm.MaxTokens,
		Temperature: float32(c.llm.Temperature),
		Stream:      false,
	})
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.name, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: %w", c.name, ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}
