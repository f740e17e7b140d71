package threadchat

import (
	"context"
	"strings"
)

// ThreadIDPrefix is the prefix every thread id issued by the assistant API carries.
const ThreadIDPrefix = "thread_"

// IsValidThreadID reports whether id has the shape of a thread id. Anything
// else is treated as if no thread were known.
func IsValidThreadID(id string) bool {
	return strings.HasPrefix(id, ThreadIDPrefix)
}

// RunStatus is the lifecycle state of a run as reported by the assistant API.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// IsTransient reports whether a run in this status is still being processed.
func (s RunStatus) IsTransient() bool {
	return s == RunStatusQueued || s == RunStatusInProgress
}

type Run struct {
	ID     string
	Status RunStatus
	Model  string
	Usage  Usage
}

// ContentPart is one segment of a thread message. Only parts of type "text"
// carry a usable Text.
type ContentPart struct {
	Type string
	Text string
}

// ThreadMessage is a message as stored on the remote thread.
type ThreadMessage struct {
	ID      string
	Role    Role
	Content []ContentPart
}

// ThreadService is the subset of the assistant API the Generator relies on.
type ThreadService interface {
	CreateThread(ctx context.Context) (string, error)
	GetThread(ctx context.Context, threadID string) (string, error)
	AddUserMessage(ctx context.Context, threadID, content string) error
	CreateRun(ctx context.Context, threadID string) (Run, error)
	GetRun(ctx context.Context, threadID, runID string) (Run, error)
	// ListMessages returns the thread's messages, newest first.
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
}
