// Package llm connects threadchat to the OpenAI Assistants API.
package llm

import (
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	AssistantID string
	// MaxRetries is passed to the OpenAI client. threadchat does not retry on
	// its own, so the default is zero.
	MaxRetries int
}

func (config *LLMConfig) NewLLMClient() *LLM {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &LLM{
		client:      openai.NewClient(opts...),
		assistantID: config.AssistantID,
	}
}
