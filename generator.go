package threadchat

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ResolutionKind tells whether a thread was reused or had to be created.
type ResolutionKind string

const (
	ResolutionReused  ResolutionKind = "reused"
	ResolutionCreated ResolutionKind = "created"
)

type ThreadResolution struct {
	Kind     ResolutionKind
	ThreadID string
}

// Reply is the outcome of one successful generation. ThreadID is always the
// thread the reply was produced on, which differs from the requested one when
// a new thread had to be created.
type Reply struct {
	Text       string
	ThreadID   string
	Resolution ResolutionKind
	Model      string
	Usage      Usage
}

// Generator produces one assistant reply per call against a ThreadService.
// It keeps no per-call state and may be used concurrently.
type Generator struct {
	threads ThreadService
	poll    PollConfig
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *slog.Logger
}

type GeneratorOption func(*Generator)

func WithPollConfig(cfg PollConfig) GeneratorOption {
	return func(g *Generator) {
		g.poll = cfg
	}
}

func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(threads ThreadService, opts ...GeneratorOption) *Generator {
	g := &Generator{
		threads: threads,
		poll:    DefaultPollConfig(),
		sleep:   sleepContext,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Respond lets the Generator serve as the Controller's in-process Responder.
func (g *Generator) Respond(ctx context.Context, messages []Message, threadID string) (Reply, error) {
	return g.Generate(ctx, messages, threadID)
}

// Generate appends the last user message to the thread, runs the assistant on
// it and returns the reply text. Calls are not idempotent: each one adds a
// message and a run on the remote thread.
func (g *Generator) Generate(ctx context.Context, messages []Message, threadID string) (Reply, error) {
	g.logger.Info("Generating reply", "threadID", threadID, "messageCount", len(messages))

	lastUserMessage, ok := NewMessageList(messages...).LastUserMessage()
	if !ok {
		g.logger.Error("No user message found", "messageCount", len(messages))
		return Reply{}, ErrNoUserMessage
	}

	resolution, err := g.ResolveThread(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}
	thread := resolution.ThreadID

	if err := g.threads.AddUserMessage(ctx, thread, lastUserMessage.Content); err != nil {
		g.logger.Error("Failed to add message to thread", "threadID", thread, "error", err)
		return Reply{}, fmt.Errorf("%w: %w", ErrMessageSubmissionFailed, err)
	}

	run, err := g.threads.CreateRun(ctx, thread)
	if err != nil {
		g.logger.Error("Failed to create run", "threadID", thread, "error", err)
		return Reply{}, fmt.Errorf("%w: %w", ErrRunCreationFailed, err)
	}
	g.logger.Info("Run created", "threadID", thread, "runID", run.ID, "status", run.Status)

	finished, err := g.waitForRun(ctx, thread, run.ID)
	if err != nil {
		g.logger.Error("Failed to get run status", "threadID", thread, "runID", run.ID, "error", err)
		return Reply{}, err
	}
	g.logger.Info("Run finished", "threadID", thread, "runID", run.ID, "status", finished.Status)
	if finished.Status != RunStatusCompleted {
		return Reply{}, &UnexpectedRunStatusError{Status: finished.Status}
	}

	text, err := g.latestAssistantText(ctx, thread)
	if err != nil {
		return Reply{}, err
	}

	attrs := []any{"threadID", thread, "resolution", resolution.Kind, "model", finished.Model,
		"inputTokens", finished.Usage.InputTokens, "outputTokens", finished.Usage.OutputTokens}
	if cost, ok := finished.Usage.Cost(finished.Model); ok {
		attrs = append(attrs, "cost", cost.TotalCost)
	}
	g.logger.Info("Generated reply", attrs...)

	return Reply{
		Text:       text,
		ThreadID:   thread,
		Resolution: resolution.Kind,
		Model:      finished.Model,
		Usage:      finished.Usage,
	}, nil
}

// ResolveThread returns the thread to use for a generation. A well-formed id
// is reused when the API still knows it; in every other case a new thread is
// created. Failing to retrieve an existing thread is not an error.
func (g *Generator) ResolveThread(ctx context.Context, threadID string) (ThreadResolution, error) {
	if IsValidThreadID(threadID) {
		id, err := g.threads.GetThread(ctx, threadID)
		if err == nil {
			return ThreadResolution{Kind: ResolutionReused, ThreadID: id}, nil
		}
		g.logger.Warn("Thread retrieval failed, creating a new thread", "threadID", threadID, "error", err)
	} else if threadID != "" {
		g.logger.Warn("Invalid threadID format", "threadID", threadID)
	}

	id, err := g.threads.CreateThread(ctx)
	if err != nil {
		g.logger.Error("Failed to create thread", "error", err)
		return ThreadResolution{}, fmt.Errorf("%w: %w", ErrThreadCreationFailed, err)
	}
	g.logger.Info("Created new thread", "threadID", id)
	return ThreadResolution{Kind: ResolutionCreated, ThreadID: id}, nil
}

func (g *Generator) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	msgs, err := g.threads.ListMessages(ctx, threadID)
	if err != nil {
		g.logger.Error("Failed to get messages", "threadID", threadID, "error", err)
		return "", fmt.Errorf("%w: %w", ErrMessageListFailed, err)
	}
	for _, msg := range msgs {
		if msg.Role != RoleAssistant {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" {
				return part.Text, nil
			}
		}
		break
	}
	g.logger.Error("No valid text response found", "threadID", threadID)
	return "", ErrNoTextResponse
}
