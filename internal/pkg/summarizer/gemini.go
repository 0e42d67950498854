package summarizer

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini calls the Gemini GenerateContent API
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
}

// NewGemini creates a Gemini summarizer
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultGeminiModel
	}

	return &Gemini{
		client:      client,
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   int32(cfg.MaxTokens),
	}, nil
}

// Summarize sends the synthesis prompt as a single user turn
func (g *Gemini) Summarize(ctx context.Context, req Request) (*Result, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(BuildPrompt(req), genai.RoleUser),
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemMessage, genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}

	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return nil, ErrEmptyOutput
	}

	result := &Result{Content: content}
	if resp.UsageMetadata != nil {
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// Name returns the provider and model
func (g *Gemini) Name() string {
	return ProviderGemini + ":" + g.model
}
