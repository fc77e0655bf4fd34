// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model specifies the LLM model to use (e.g., "gpt-4.1-mini", "llama3.2").
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic, 1.0 = creative).
	Temperature float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int

	// JSONMode asks the provider to constrain output to a single JSON object.
	JSONMode bool
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt to the LLM and returns the complete response.
	// It blocks until the full response is received or an error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Config selects and configures an LLM provider.
type Config struct {
	Provider string // "openai" or "ollama"
	APIKey   string
	BaseURL  string
}

// New builds the client for cfg.Provider.
func New(cfg Config) (LLM, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL), nil
	case "ollama":
		var opts []OllamaOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		return NewOllamaClient(opts...), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// ExtractJSON returns the JSON object in a model response, unwrapping markdown
// code fences when present.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	if idx := strings.Index(response, "```json"); idx != -1 {
		start := idx + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	} else if idx := strings.Index(response, "```"); idx != -1 {
		start := idx + 3
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = response[start : start+end]
		}
	}

	response = strings.TrimSpace(response)

	// Drop any prose around the object
	if start := strings.Index(response, "{"); start > 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			response = response[start : end+1]
		}
	}

	return response
}
