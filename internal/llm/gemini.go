package llm

import (
	"context"
	"fmt"

	"aks/internal/config"

	"google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli *genai.Client
	llm config.LLMConfig
}

func NewGeminiClient(ctx context.Context, apiKey string, llm config.LLMConfig) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, llm: llm}, nil
}

func (g *GeminiClient) Name() string  { return "Google Gemini API" }
func (g *GeminiClient) Model() string { return g.llm.Model }

func (g *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.llm.Temperature)),
		MaxOutputTokens: int32(g.llm.MaxTokens),
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.llm.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
