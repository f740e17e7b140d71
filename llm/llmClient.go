package llm

import (
	"context"

	"github.com/boat-builder/threadchat"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Define a custom type for context keys
type ContextKey string

const RequestIDKey ContextKey = "requestID"

var _ threadchat.ThreadService = &LLM{}

// LLM is a wrapper around the openai client exposing the thread operations
// threadchat needs, with the request id injected into every call.
type LLM struct {
	client      openai.Client
	assistantID string
}

// WithRequestID stores a request id that will be forwarded to the API.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func injectIdentifiers(ctx context.Context, opts []option.RequestOption) []option.RequestOption {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		opts = append(opts, option.WithHeader("X-Request-Id", requestID))
	}
	return opts
}

func (c *LLM) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{}, injectIdentifiers(ctx, nil)...)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (c *LLM) GetThread(ctx context.Context, threadID string) (string, error) {
	thread, err := c.client.Beta.Threads.Get(ctx, threadID, injectIdentifiers(ctx, nil)...)
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

func (c *LLM) AddUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(content),
		},
	}, injectIdentifiers(ctx, nil)...)
	return err
}

func (c *LLM) CreateRun(ctx context.Context, threadID string) (threadchat.Run, error) {
	run, err := c.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: c.assistantID,
	}, injectIdentifiers(ctx, nil)...)
	if err != nil {
		return threadchat.Run{}, err
	}
	return toRun(run), nil
}

func (c *LLM) GetRun(ctx context.Context, threadID, runID string) (threadchat.Run, error) {
	run, err := c.client.Beta.Threads.Runs.Get(ctx, threadID, runID, injectIdentifiers(ctx, nil)...)
	if err != nil {
		return threadchat.Run{}, err
	}
	return toRun(run), nil
}

func toRun(run *openai.Run) threadchat.Run {
	return threadchat.Run{
		ID:     run.ID,
		Status: threadchat.RunStatus(run.Status),
		Model:  run.Model,
		Usage: threadchat.Usage{
			InputTokens:  run.Usage.PromptTokens,
			OutputTokens: run.Usage.CompletionTokens,
		},
	}
}

// ListMessages returns the first page of the thread's messages, newest first.
// The reply of a just-completed run is always on it.
func (c *LLM) ListMessages(ctx context.Context, threadID string) ([]threadchat.ThreadMessage, error) {
	page, err := c.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Order: openai.BetaThreadMessageListParamsOrderDesc,
	}, injectIdentifiers(ctx, nil)...)
	if err != nil {
		return nil, err
	}

	messages := make([]threadchat.ThreadMessage, 0, len(page.Data))
	for _, m := range page.Data {
		parts := make([]threadchat.ContentPart, 0, len(m.Content))
		for _, content := range m.Content {
			part := threadchat.ContentPart{Type: content.Type}
			if content.Type == "text" {
				part.Text = content.Text.Value
			}
			parts = append(parts, part)
		}
		messages = append(messages, threadchat.ThreadMessage{
			ID:      m.ID,
			Role:    threadchat.Role(m.Role),
			Content: parts,
		})
	}
	return messages, nil
}
