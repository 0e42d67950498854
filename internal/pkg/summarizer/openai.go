package summarizer

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4-turbo-preview"

// OpenAI calls the chat completions API of OpenAI or any compatible server
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAI creates an OpenAI summarizer. BaseURL points it at a compatible server.
func NewOpenAI(cfg Config) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Summarize sends one chat completion with the synthesis prompt
func (o *OpenAI) Summarize(ctx context.Context, req Request) (*Result, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyOutput
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrEmptyOutput
	}

	return &Result{Content: content, TotalTokens: resp.Usage.TotalTokens}, nil
}

// Name returns the provider and model
func (o *OpenAI) Name() string {
	return ProviderOpenAI + ":" + o.model
}
