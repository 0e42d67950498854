// Package summarizer synthesizes document chunks into a single study document
// through an LLM provider.
package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Provider names accepted in configuration
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNoop   = "noop"
)

// ErrNotConfigured is returned by the noop summarizer
var ErrNotConfigured = errors.New("summarizer is not configured")

// ErrEmptyOutput is returned when the provider answered with no text
var ErrEmptyOutput = errors.New("summarizer returned empty content")

// SystemMessage frames the assistant for every provider
const SystemMessage = "You are a helpful assistant that synthesizes educational documents."

// Request is the input to a synthesis call
type Request struct {
	TopicName string
	Chunks    []string
}

// Result is the synthesized document and the provider's token usage.
// TotalTokens is 0 when the provider did not report usage.
type Result struct {
	Content     string
	TotalTokens int
}

// Summarizer synthesizes chunks into one document
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// Config selects and configures a provider
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// New returns the configured provider. A provider without an API key falls
// back to the noop summarizer so the server still starts.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	if provider != ProviderNoop && provider != "" && cfg.APIKey == "" {
		logger.Warn().Str("provider", provider).Msg("Summarizer API key missing, meta document processing is disabled")
		return NewNoop(), nil
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	case ProviderNoop, "":
		return NewNoop(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}

// CombineChunks numbers each chunk and joins them with separators
func CombineChunks(chunks []string) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("Chunk %d:\n%s", i+1, chunk))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// BuildPrompt renders the user prompt for a synthesis request
func BuildPrompt(req Request) string {
	return fmt.Sprintf(promptTemplate, req.TopicName, CombineChunks(req.Chunks))
}

const promptTemplate = `You are a helpful assistant that synthesizes and summarizes educational content.

Given multiple document chunks related to the topic "%s", please:
1. Combine and synthesize the information into a coherent, comprehensive document
2. Remove redundancy while preserving important details
3. Organize the content logically
4. Maintain key concepts, definitions, and important information
5. Create a well-structured summary document

Here are the document chunks:

%s

Please provide a synthesized, comprehensive document that combines all the information above in a clear and organized manner.`

type noop struct{}

// NewNoop returns a summarizer that always fails with ErrNotConfigured
func NewNoop() Summarizer { return noop{} }

func (noop) Summarize(context.Context, Request) (*Result, error) {
	return nil, ErrNotConfigured
}

func (noop) Name() string { return ProviderNoop }
