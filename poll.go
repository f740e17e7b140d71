package threadchat

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const DefaultPollInterval = 1000 * time.Millisecond

// PollConfig controls how a run is waited on. Zero MaxAttempts or Timeout
// means no bound: the loop ends only when the run leaves a transient status.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: DefaultPollInterval}
}

// sleepContext blocks for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// waitForRun fetches the run status once immediately and then once per
// interval until the status is no longer transient. Only the poll Timeout
// expiring counts as ErrPollLimitReached; the caller's own cancellation or
// deadline is reported as ErrStatusPollFailed.
func (g *Generator) waitForRun(ctx context.Context, threadID, runID string) (Run, error) {
	pollCtx := ctx
	if g.poll.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, g.poll.Timeout)
		defer cancel()
	}

	interval := g.poll.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	attempts := 0
	for {
		run, err := g.threads.GetRun(pollCtx, threadID, runID)
		attempts++
		if err != nil {
			return Run{}, g.pollError(ctx, pollCtx, err)
		}
		if !run.Status.IsTransient() {
			return run, nil
		}
		g.logger.Debug("Run status", "threadID", threadID, "runID", runID, "status", run.Status)

		if g.poll.MaxAttempts > 0 && attempts >= g.poll.MaxAttempts {
			return Run{}, fmt.Errorf("%w: %d status checks", ErrPollLimitReached, attempts)
		}
		if err := g.sleep(pollCtx, interval); err != nil {
			return Run{}, g.pollError(ctx, pollCtx, err)
		}
	}
}

// pollError classifies a failure during polling. The parent context is
// checked first so a caller deadline is never mistaken for the poll timeout.
func (g *Generator) pollError(parent, pollCtx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: gave up after %s", ErrPollLimitReached, g.poll.Timeout)
	}
	return fmt.Errorf("%w: %w", ErrStatusPollFailed, err)
}
