package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/conciliador/internal/pipeline"
)

type recordingExecutor struct {
	mu   sync.Mutex
	ran  []uuid.UUID
	done chan struct{}
	err  error
}

func (e *recordingExecutor) Execute(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	e.ran = append(e.ran, id)
	e.mu.Unlock()

	e.done <- struct{}{}

	return e.err
}

func (e *recordingExecutor) executed() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]uuid.UUID(nil), e.ran...)
}

func TestRunner_ExecutesQueuedRuns(t *testing.T) {
	exec := &recordingExecutor{done: make(chan struct{}, 3), err: pipeline.ErrRunBusy}

	r := pipeline.NewRunner(exec, 3)
	r.Start(context.Background(), 2)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, r.Enqueue(context.Background(), id))
	}

	for range ids {
		select {
		case <-exec.done:
		case <-time.After(time.Second):
			t.Fatal("run was not executed")
		}
	}

	require.NoError(t, r.Stop(context.Background()))
	assert.ElementsMatch(t, ids, exec.executed())
}

func TestRunner_EnqueueAfterStop(t *testing.T) {
	r := pipeline.NewRunner(&recordingExecutor{done: make(chan struct{}, 1)}, 1)
	r.Start(context.Background(), 1)

	require.NoError(t, r.Stop(context.Background()))
	require.NoError(t, r.Stop(context.Background()), "stopping twice is harmless")

	err := r.Enqueue(context.Background(), uuid.New())
	assert.ErrorIs(t, err, pipeline.ErrRunnerClosed)
}

func TestRunner_EnqueueHonoursContext(t *testing.T) {
	// No workers, so the single slot stays taken.
	r := pipeline.NewRunner(&recordingExecutor{done: make(chan struct{}, 1)}, 1)
	require.NoError(t, r.Enqueue(context.Background(), uuid.New()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := r.Enqueue(ctx, uuid.New())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

// blockingExecutor stands for a run busy in a long step; it returns once its context is done.
type blockingExecutor struct {
	started chan struct{}
}

func (e *blockingExecutor) Execute(ctx context.Context, _ uuid.UUID) error {
	e.started <- struct{}{}
	<-ctx.Done()

	return ctx.Err()
}

func TestRunner_StopInterruptsRunningRuns(t *testing.T) {
	exec := &blockingExecutor{started: make(chan struct{}, 1)}

	r := pipeline.NewRunner(exec, 1)
	r.Start(context.Background(), 1)

	require.NoError(t, r.Enqueue(context.Background(), uuid.New()))

	select {
	case <-exec.started:
	case <-time.After(time.Second):
		t.Fatal("run was not executed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, r.Stop(ctx))
}
