package threadchat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Responder produces the assistant reply for a conversation. It is satisfied
// by *Generator in-process and by the HTTP client in package client.
type Responder interface {
	Respond(ctx context.Context, messages []Message, threadID string) (Reply, error)
}

// State is a point-in-time copy of a Controller's conversation.
type State struct {
	Messages             []Message
	Input                string
	IsLoading            bool
	ThreadID             string
	LastAssistantMessage *Message
}

// Controller holds the client-side conversation: message history, pending
// input, loading flag and the current thread id, which it mirrors into a
// Storage so it survives restarts.
//
// Fields are guarded for memory safety only. Nothing prevents two Submit
// calls from overlapping; their results are applied in the order they settle.
type Controller struct {
	mu                   sync.Mutex
	messages             []Message
	input                string
	isLoading            bool
	threadID             string
	lastAssistantMessage *Message

	responder Responder
	store     Storage
	logger    *slog.Logger
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a Controller whose thread id is seeded from store.
// A stored value that is not a valid thread id is discarded. When the read
// itself fails the Controller starts without a thread and storage is untouched.
func NewController(ctx context.Context, responder Responder, store Storage, opts ...ControllerOption) *Controller {
	c := &Controller{
		messages:  []Message{},
		responder: responder,
		store:     store,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	stored, ok, err := store.Get(ctx, ThreadIDKey)
	if err != nil {
		// a failed read says nothing about the stored value, so leave it in place
		c.logger.Error("Failed to load threadID", "error", err)
		return c
	}
	c.logger.Debug("Initializing threadID from storage", "threadID", stored, "found", ok)
	c.setThreadID(ctx, stored)
	return c
}

// State returns a copy of the current conversation.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		Messages:  append([]Message{}, c.messages...),
		Input:     c.input,
		IsLoading: c.isLoading,
		ThreadID:  c.threadID,
	}
	if c.lastAssistantMessage != nil {
		msg := *c.lastAssistantMessage
		state.LastAssistantMessage = &msg
	}
	return state
}

func (c *Controller) ChangeInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

// Submit sends the pending input and waits for the reply. Empty or
// whitespace-only input is ignored. Any failure clears the thread and
// appends FallbackMessage; the error itself is only logged.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	content := strings.TrimSpace(c.input)
	if content == "" {
		c.mu.Unlock()
		return
	}

	threadID := c.threadID
	if !IsValidThreadID(threadID) {
		threadID = ""
	}
	c.messages = append(c.messages, NewUserMessage(content))
	history := append([]Message{}, c.messages...)
	c.input = ""
	c.isLoading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isLoading = false
		c.mu.Unlock()
	}()

	c.logger.Info("Starting chat submission", "threadID", threadID, "messageCount", len(history))
	reply, err := c.responder.Respond(ctx, history, threadID)
	if err != nil {
		c.logger.Error("Chat submission error", "threadID", threadID, "error", err)
		c.setThreadID(ctx, "")
		c.appendMessage(NewAssistantMessage(FallbackMessage), false)
		return
	}

	if !IsValidThreadID(reply.ThreadID) {
		c.logger.Warn("Invalid or missing threadID in reply", "threadID", reply.ThreadID)
	}
	c.setThreadID(ctx, reply.ThreadID)

	if reply.Text == "" {
		c.logger.Warn("Received empty response text", "threadID", reply.ThreadID)
		return
	}
	c.appendMessage(NewAssistantMessage(reply.Text), true)
}

// Stop clears the loading flag. An in-flight reply is not cancelled and will
// still be applied when it arrives.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isLoading = false
}

// Reset starts an empty conversation. The cleared thread id is written
// through to storage like any other change.
func (c *Controller) Reset(ctx context.Context) {
	c.mu.Lock()
	c.logger.Info("Resetting chat", "threadID", c.threadID)
	c.messages = []Message{}
	c.lastAssistantMessage = nil
	c.mu.Unlock()

	c.setThreadID(ctx, "")
}

func (c *Controller) appendMessage(msg Message, completed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
	if completed {
		c.lastAssistantMessage = &msg
	}
}

// setThreadID updates the thread id and syncs it to storage: valid ids are
// stored, anything else removes the key.
func (c *Controller) setThreadID(ctx context.Context, id string) {
	if !IsValidThreadID(id) {
		id = ""
	}
	c.mu.Lock()
	c.threadID = id
	c.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if id != "" {
		if err := c.store.Set(ctx, ThreadIDKey, id); err != nil {
			c.logger.Error("Failed to store threadID", "threadID", id, "error", err)
		}
		return
	}
	if err := c.store.Remove(ctx, ThreadIDKey); err != nil {
		c.logger.Error("Failed to remove threadID", "error", err)
	}
}
