package threadchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeThreads is an in-memory ThreadService. GetRun walks through statuses
// and keeps returning the last one.
type fakeThreads struct {
	mu sync.Mutex

	known     map[string]bool
	getErr    error
	createErr error
	addErr    error
	runErr    error
	pollErr   error
	listErr   error
	statuses  []RunStatus
	messages  []ThreadMessage
	createSeq int

	getCalls    []string
	createCalls int
	added       []string
	addedTo     []string
	runCalls    int
	pollCalls   int
}

func newFakeThreads(reply string) *fakeThreads {
	return &fakeThreads{
		known:    map[string]bool{},
		statuses: []RunStatus{RunStatusCompleted},
		messages: []ThreadMessage{
			{ID: "msg_2", Role: RoleAssistant, Content: []ContentPart{{Type: "text", Text: reply}}},
			{ID: "msg_1", Role: RoleUser, Content: []ContentPart{{Type: "text", Text: "hi"}}},
		},
	}
}

func (f *fakeThreads) CreateThread(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createSeq++
	id := fmt.Sprintf("thread_new%d", f.createSeq)
	f.known[id] = true
	return id, nil
}

func (f *fakeThreads) GetThread(_ context.Context, threadID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, threadID)
	if f.getErr != nil {
		return "", f.getErr
	}
	if !f.known[threadID] {
		return "", errors.New("404 no thread found")
	}
	return threadID, nil
}

func (f *fakeThreads) AddUserMessage(_ context.Context, threadID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, content)
	f.addedTo = append(f.addedTo, threadID)
	return nil
}

func (f *fakeThreads) CreateRun(_ context.Context, _ string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls++
	if f.runErr != nil {
		return Run{}, f.runErr
	}
	return Run{ID: "run_1", Status: RunStatusQueued}, nil
}

func (f *fakeThreads) GetRun(_ context.Context, _, runID string) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.pollErr != nil {
		return Run{}, f.pollErr
	}
	i := f.pollCalls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return Run{ID: runID, Status: f.statuses[i]}, nil
}

func (f *fakeThreads) ListMessages(_ context.Context, _ string) ([]ThreadMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.messages, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGenerator returns a Generator that records its waits instead of sleeping.
func newTestGenerator(threads ThreadService, opts ...GeneratorOption) (*Generator, *[]time.Duration) {
	g := NewGenerator(threads, append([]GeneratorOption{WithGeneratorLogger(discardLogger())}, opts...)...)
	var sleeps []time.Duration
	g.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return ctx.Err()
	}
	return g, &sleeps
}

func userOnly(content string) []Message {
	return []Message{NewUserMessage(content)}
}

func TestGenerateNewThread(t *testing.T) {
	threads := newFakeThreads("hello there")
	g, _ := newTestGenerator(threads)

	reply, err := g.Generate(context.Background(), userOnly("hi"), "")
	require.NoError(t, err)

	assert.Equal(t, "hello there", reply.Text)
	assert.Equal(t, "thread_new1", reply.ThreadID)
	assert.Equal(t, ResolutionCreated, reply.Resolution)
	assert.Equal(t, []string{"hi"}, threads.added)
	assert.Equal(t, []string{"thread_new1"}, threads.addedTo)
	assert.Equal(t, 1, threads.runCalls)
	assert.Empty(t, threads.getCalls)
}

func TestGenerateSelectsLastUserMessage(t *testing.T) {
	threads := newFakeThreads("ok")
	g, _ := newTestGenerator(threads)

	messages := []Message{
		NewUserMessage("first"),
		NewAssistantMessage("answer one"),
		NewUserMessage("second"),
		NewAssistantMessage("answer two"),
	}
	_, err := g.Generate(context.Background(), messages, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, threads.added)
}

func TestGenerateNoUserMessage(t *testing.T) {
	threads := newFakeThreads("ok")
	g, _ := newTestGenerator(threads)

	for _, messages := range [][]Message{nil, {NewAssistantMessage("only me")}} {
		_, err := g.Generate(context.Background(), messages, "thread_abc")
		require.ErrorIs(t, err, ErrNoUserMessage)
	}
	assert.Zero(t, threads.createCalls)
	assert.Empty(t, threads.getCalls)
	assert.Zero(t, threads.runCalls)
}

func TestGenerateCreatesThreadForAbsentOrMalformedID(t *testing.T) {
	for _, id := range []string{"", "abc", "thread", "THREAD_abc", " thread_abc", "run_123"} {
		t.Run(fmt.Sprintf("%q", id), func(t *testing.T) {
			threads := newFakeThreads("ok")
			threads.known[id] = true
			g, _ := newTestGenerator(threads)

			reply, err := g.Generate(context.Background(), userOnly("hi"), id)
			require.NoError(t, err)
			assert.Equal(t, "thread_new1", reply.ThreadID)
			assert.Equal(t, ResolutionCreated, reply.Resolution)
			assert.Empty(t, threads.getCalls)
			assert.Equal(t, 1, threads.createCalls)
		})
	}
}

func TestGenerateReusesExistingThread(t *testing.T) {
	threads := newFakeThreads("ok")
	threads.known["thread_abc"] = true
	g, _ := newTestGenerator(threads)

	reply, err := g.Generate(context.Background(), userOnly("hi"), "thread_abc")
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", reply.ThreadID)
	assert.Equal(t, ResolutionReused, reply.Resolution)
	assert.Zero(t, threads.createCalls)
	assert.Equal(t, []string{"thread_abc"}, threads.addedTo)
}

func TestGenerateFallsBackWhenRetrievalFails(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		threads := newFakeThreads("ok")
		g, _ := newTestGenerator(threads)

		reply, err := g.Generate(context.Background(), userOnly("hi"), "thread_gone")
		require.NoError(t, err)
		assert.Equal(t, []string{"thread_gone"}, threads.getCalls)
		assert.Equal(t, "thread_new1", reply.ThreadID)
		assert.Equal(t, ResolutionCreated, reply.Resolution)
	})

	t.Run("transient error", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.known["thread_abc"] = true
		threads.getErr = errors.New("connection reset")
		g, _ := newTestGenerator(threads)

		reply, err := g.Generate(context.Background(), userOnly("hi"), "thread_abc")
		require.NoError(t, err)
		assert.Equal(t, "thread_new1", reply.ThreadID)
		assert.Equal(t, []string{"thread_new1"}, threads.addedTo)
	})
}

func TestResolveThread(t *testing.T) {
	threads := newFakeThreads("ok")
	threads.known["thread_abc"] = true
	g, _ := newTestGenerator(threads)

	res, err := g.ResolveThread(context.Background(), "thread_abc")
	require.NoError(t, err)
	assert.Equal(t, ThreadResolution{Kind: ResolutionReused, ThreadID: "thread_abc"}, res)

	res, err = g.ResolveThread(context.Background(), "thread_missing")
	require.NoError(t, err)
	assert.Equal(t, ThreadResolution{Kind: ResolutionCreated, ThreadID: "thread_new1"}, res)

	threads.createErr = errors.New("quota exceeded")
	_, err = g.ResolveThread(context.Background(), "")
	require.ErrorIs(t, err, ErrThreadCreationFailed)
}

func TestGenerateUnexpectedRunStatus(t *testing.T) {
	for _, status := range []RunStatus{RunStatusFailed, RunStatusCancelled, RunStatusExpired, "requires_action", "incomplete"} {
		t.Run(string(status), func(t *testing.T) {
			threads := newFakeThreads("should not be read")
			threads.statuses = []RunStatus{RunStatusInProgress, status}
			g, _ := newTestGenerator(threads)

			reply, err := g.Generate(context.Background(), userOnly("hi"), "")
			require.ErrorIs(t, err, ErrUnexpectedRunStatus)

			var statusErr *UnexpectedRunStatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, status, statusErr.Status)
			assert.Empty(t, reply.Text)
		})
	}
}

func TestGeneratePollingCadence(t *testing.T) {
	t.Run("completed immediately", func(t *testing.T) {
		threads := newFakeThreads("ok")
		g, sleeps := newTestGenerator(threads)

		_, err := g.Generate(context.Background(), userOnly("hi"), "")
		require.NoError(t, err)
		assert.Equal(t, 1, threads.pollCalls)
		assert.Empty(t, *sleeps)
	})

	t.Run("waits one interval between checks", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusInProgress, RunStatusCompleted}
		g, sleeps := newTestGenerator(threads)

		reply, err := g.Generate(context.Background(), userOnly("hi"), "")
		require.NoError(t, err)
		assert.Equal(t, "ok", reply.Text)
		assert.Equal(t, 4, threads.pollCalls)
		assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, *sleeps)
	})

	t.Run("custom interval", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusQueued, RunStatusCompleted}
		g, sleeps := newTestGenerator(threads, WithPollConfig(PollConfig{Interval: 250 * time.Millisecond}))

		_, err := g.Generate(context.Background(), userOnly("hi"), "")
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{250 * time.Millisecond}, *sleeps)
	})
}

func TestGeneratePollLimits(t *testing.T) {
	t.Run("max attempts", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusQueued}
		g, sleeps := newTestGenerator(threads, WithPollConfig(PollConfig{Interval: time.Second, MaxAttempts: 3}))

		_, err := g.Generate(context.Background(), userOnly("hi"), "")
		require.ErrorIs(t, err, ErrPollLimitReached)
		assert.Equal(t, 3, threads.pollCalls)
		assert.Len(t, *sleeps, 2)
	})

	t.Run("timeout", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusInProgress}
		g := NewGenerator(threads,
			WithGeneratorLogger(discardLogger()),
			WithPollConfig(PollConfig{Interval: 5 * time.Millisecond, Timeout: 30 * time.Millisecond}),
		)

		_, err := g.Generate(context.Background(), userOnly("hi"), "")
		require.ErrorIs(t, err, ErrPollLimitReached)
		assert.Greater(t, threads.pollCalls, 1)
	})

	t.Run("caller cancellation", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusQueued}
		g := NewGenerator(threads,
			WithGeneratorLogger(discardLogger()),
			WithPollConfig(PollConfig{Interval: time.Hour}),
		)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := g.Generate(ctx, userOnly("hi"), "")
		require.ErrorIs(t, err, ErrStatusPollFailed)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("caller deadline before poll timeout", func(t *testing.T) {
		threads := newFakeThreads("ok")
		threads.statuses = []RunStatus{RunStatusQueued}
		g := NewGenerator(threads,
			WithGeneratorLogger(discardLogger()),
			WithPollConfig(PollConfig{Interval: 5 * time.Millisecond, Timeout: time.Hour}),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := g.Generate(ctx, userOnly("hi"), "")
		require.ErrorIs(t, err, ErrStatusPollFailed)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrPollLimitReached)
	})
}

func TestGenerateFailureKinds(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		setup func(f *fakeThreads)
		want  error
	}{
		{"thread creation", func(f *fakeThreads) { f.createErr = boom }, ErrThreadCreationFailed},
		{"message submission", func(f *fakeThreads) { f.addErr = boom }, ErrMessageSubmissionFailed},
		{"run creation", func(f *fakeThreads) { f.runErr = boom }, ErrRunCreationFailed},
		{"status poll", func(f *fakeThreads) { f.pollErr = boom }, ErrStatusPollFailed},
		{"message list", func(f *fakeThreads) { f.listErr = boom }, ErrMessageListFailed},
		{"no assistant message", func(f *fakeThreads) {
			f.messages = []ThreadMessage{{Role: RoleUser, Content: []ContentPart{{Type: "text", Text: "hi"}}}}
		}, ErrNoTextResponse},
		{"no text part", func(f *fakeThreads) {
			f.messages = []ThreadMessage{{Role: RoleAssistant, Content: []ContentPart{{Type: "image_file"}}}}
		}, ErrNoTextResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads := newFakeThreads("ok")
			tt.setup(threads)
			g, _ := newTestGenerator(threads)

			reply, err := g.Generate(context.Background(), userOnly("hi"), "")
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, reply.Text)
		})
	}
}

func TestGenerateReadsNewestAssistantMessage(t *testing.T) {
	threads := newFakeThreads("unused")
	threads.messages = []ThreadMessage{
		{Role: RoleAssistant, Content: []ContentPart{{Type: "image_file"}, {Type: "text", Text: "newest"}}},
		{Role: RoleUser, Content: []ContentPart{{Type: "text", Text: "question"}}},
		{Role: RoleAssistant, Content: []ContentPart{{Type: "text", Text: "older"}}},
	}
	g, _ := newTestGenerator(threads)

	reply, err := g.Generate(context.Background(), userOnly("question"), "")
	require.NoError(t, err)
	assert.Equal(t, "newest", reply.Text)
}

func TestIsValidThreadID(t *testing.T) {
	assert.True(t, IsValidThreadID("thread_abc123"))
	assert.True(t, IsValidThreadID("thread_"))
	assert.False(t, IsValidThreadID(""))
	assert.False(t, IsValidThreadID("abc"))
	assert.False(t, IsValidThreadID("Thread_abc"))
}

func TestMessageListLastUserMessage(t *testing.T) {
	ml := NewMessageList()
	_, ok := ml.LastUserMessage()
	assert.False(t, ok)

	ml.Add(NewUserMessage("a"), NewAssistantMessage("b"))
	msg, ok := ml.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "a", msg.Content)

	clone := ml.Clone()
	clone.Add(NewUserMessage("c"))
	assert.Equal(t, 2, ml.Len())
	assert.Equal(t, 3, clone.Len())
}
