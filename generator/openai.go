package generator

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"luxe/config"
)

// OpenAICompleter talks to OpenAI, or any OpenAI-compatible endpoint, through langchaingo.
type OpenAICompleter struct {
	llm         llms.Model
	temperature float64
	maxTokens   int
}

func NewOpenAICompleter(cfg config.OpenAIConfig) (*OpenAICompleter, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return &OpenAICompleter{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(c.maxTokens))
	}
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
}
