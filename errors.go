// Package threadchat - errors.go
// Defines the failure kinds of a reply generation.

package threadchat

import (
	"errors"
	"fmt"
)

var (
	ErrNoUserMessage           = errors.New("no user message found")
	ErrThreadCreationFailed    = errors.New("failed to create thread")
	ErrMessageSubmissionFailed = errors.New("failed to add message to thread")
	ErrRunCreationFailed       = errors.New("failed to create run")
	ErrStatusPollFailed        = errors.New("failed to get run status")
	ErrPollLimitReached        = errors.New("run did not finish within the polling limit")
	ErrUnexpectedRunStatus     = errors.New("run ended with unexpected status")
	ErrMessageListFailed       = errors.New("failed to get messages")
	ErrNoTextResponse          = errors.New("no valid text response found")
)

// UnexpectedRunStatusError is returned when a run reaches a terminal status
// other than completed.
type UnexpectedRunStatusError struct {
	Status RunStatus
}

func (e *UnexpectedRunStatusError) Error() string {
	return fmt.Sprintf("run ended with status: %s", e.Status)
}

func (e *UnexpectedRunStatusError) Is(target error) bool {
	return target == ErrUnexpectedRunStatus
}
