package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/logger"
)

var ErrRunnerClosed = errors.New("runner is closed")

// Executor is satisfied by *Orchestrator.
type Executor interface {
	Execute(ctx context.Context, id uuid.UUID) error
}

// Runner executes runs on a fixed number of workers. Distinct runs proceed concurrently; the
// run record's version keeps two workers from committing the same step.
type Runner struct {
	exec    Executor
	queue   chan uuid.UUID
	closeCh chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

func NewRunner(exec Executor, queueSize int) *Runner {
	return &Runner{
		exec:    exec,
		queue:   make(chan uuid.UUID, queueSize),
		closeCh: make(chan struct{}),
	}
}

// Enqueue schedules the run. It blocks while the queue is full.
func (r *Runner) Enqueue(ctx context.Context, id uuid.UUID) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()

	if closed {
		return ErrRunnerClosed
	}

	select {
	case r.queue <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closeCh:
		return ErrRunnerClosed
	}
}

// Start launches the workers. They stop when ctx is done or Stop is called.
func (r *Runner) Start(ctx context.Context, workers int) {
	for range max(workers, 1) {
		r.wg.Add(1)

		go r.worker(ctx)
	}
}

func (r *Runner) worker(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.closeCh:
			return
		case id := <-r.queue:
			r.execute(ctx, id)
		}
	}
}

func (r *Runner) execute(ctx context.Context, id uuid.UUID) {
	log := logger.FromContext(ctx).With().Str("run_id", id.String()).Logger()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Stop interrupts the run at its next step boundary.
	go func() {
		select {
		case <-r.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := r.exec.Execute(logger.WithContext(ctx, log), id)

	var stepErr *StepError

	switch {
	case err == nil:
	case errors.As(err, &stepErr):
		// already recorded on the run
	case errors.Is(err, ErrRunBusy):
		log.Warn().Msg("run is being executed elsewhere")
	case errors.Is(err, context.Canceled):
		log.Info().Msg("run interrupted, it resumes on the next start")
	default:
		log.Error().Err(err).Msg("run execution failed")
	}
}

// Stop closes the queue and waits for in-flight runs to finish their current step. Runs
// stopped this way keep their state and are picked up again by the next process.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	r.closed = true
	close(r.closeCh)
	r.mu.Unlock()

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
