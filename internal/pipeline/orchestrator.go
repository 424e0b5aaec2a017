package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/conciliador/internal/logger"
)

//go:generate mockgen -source=orchestrator.go -destination=repository_mock.go -package=pipeline
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter ListFilter) ([]*Run, error)

	// UpdateRun stores the run only if its Version is still the stored one, then bumps Version
	// and refreshes the request flags. A stale Version yields ErrRunBusy. Entering paused, failed
	// or completed clears the flags.
	UpdateRun(ctx context.Context, run *Run) error

	// RequestPause and RequestCancel raise flags read by the executor at the next step boundary.
	// They leave Version untouched so a step in progress can still commit.
	RequestPause(ctx context.Context, id uuid.UUID) error
	RequestCancel(ctx context.Context, id uuid.UUID) error
}

type ListFilter struct {
	ClientID  *uuid.UUID
	AccountID string
	Period    *Period
	State     *State
}

// Step is one stage of a run. Run must be safe to repeat: a step interrupted before its
// completion was recorded is executed again from scratch.
type Step interface {
	State() State
	Run(ctx context.Context, run *Run) (Result, error)
}

type Result struct {
	Counters Counters
	// Wait leaves the run on this step without recording it as done. A later Resume runs it again.
	Wait bool
}

type StartParams struct {
	ClientID  uuid.UUID
	AccountID string
	Period    Period
}

type Orchestrator struct {
	repo  Repository
	steps []Step
}

// NewOrchestrator checks that steps cover Steps in order.
func NewOrchestrator(repo Repository, steps []Step) (*Orchestrator, error) {
	if len(steps) != TotalSteps {
		return nil, fmt.Errorf("pipeline needs %d steps, got %d", TotalSteps, len(steps))
	}

	for i, s := range steps {
		if s.State() != Steps[i] {
			return nil, fmt.Errorf("step %d is %s, want %s", i, s.State(), Steps[i])
		}
	}

	return &Orchestrator{repo: repo, steps: steps}, nil
}

func (o *Orchestrator) Start(ctx context.Context, p StartParams) (*Run, error) {
	if err := p.Period.Validate(); err != nil {
		return nil, err
	}

	if p.AccountID == "" {
		return nil, errors.New("account is required")
	}

	run := &Run{
		ClientID:   p.ClientID,
		AccountID:  p.AccountID,
		Period:     p.Period,
		State:      StatePending,
		TotalSteps: TotalSteps,
	}

	if err := o.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("creating run: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("run_id", run.ID.String()).
		Str("account_id", run.AccountID).
		Str("period", run.Period.String()).
		Msg("pipeline run created")

	return run, nil
}

func (o *Orchestrator) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	return o.repo.GetRun(ctx, id)
}

func (o *Orchestrator) List(ctx context.Context, filter ListFilter) ([]*Run, error) {
	return o.repo.ListRuns(ctx, filter)
}

// Execute advances the run until it completes, fails, pauses or waits for approval.
// Runs that are paused, failed or completed are left alone.
//
// Cancelling ctx stops the run between steps and returns ctx.Err(); the run keeps its state and
// a later Execute picks it up. A step already started finishes and is recorded.
func (o *Orchestrator) Execute(ctx context.Context, id uuid.UUID) error {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return err
	}

	log := logger.FromContext(ctx).With().Str("run_id", run.ID.String()).Logger()
	work := context.WithoutCancel(ctx)

	for {
		if run.State != StatePending && !run.State.IsStep() {
			return nil
		}

		if err := ctx.Err(); err != nil {
			log.Info().Int("step", run.Step).Msg("execution interrupted")
			return err
		}

		if run.CancelRequested {
			log.Info().Msg("run cancelled")
			return o.fail(work, run, run.CurrentStep(), ErrCancelled)
		}

		if run.PauseRequested {
			log.Info().Int("step", run.Step).Msg("run paused")
			return o.transition(work, run, StatePaused)
		}

		if run.State == StatePending {
			if err := o.transition(work, run, Steps[run.Step]); err != nil {
				return err
			}

			continue
		}

		step := o.steps[run.Step]
		log.Info().Str("step", string(step.State())).Msg("step started")

		res, err := step.Run(work, run)
		if err != nil {
			stepErr := &StepError{Step: step.State(), Err: err}
			log.Error().Err(err).Str("step", string(step.State())).Msg("step failed")

			if ferr := o.fail(work, run, step.State(), err); ferr != nil {
				return ferr
			}

			return stepErr
		}

		if res.Wait {
			log.Info().Str("step", string(step.State())).Msg("step waiting")
			return o.settleWaiting(work, run.ID)
		}

		run.Counters.Add(res.Counters)
		run.Step++

		next := StateCompleted
		if run.Step < TotalSteps {
			next = Steps[run.Step]
		}

		if err := o.transition(work, run, next); err != nil {
			return err
		}

		log.Info().Str("step", string(step.State())).Int("paso", run.Step).Msg("step completed")
	}
}

// settleWaiting applies a pause or cancel requested while the run was on a step that then
// chose to wait. Nothing executes a waiting run, so the flag would otherwise sit unread.
func (o *Orchestrator) settleWaiting(ctx context.Context, id uuid.UUID) error {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case run.CancelRequested:
		return o.fail(ctx, run, run.CurrentStep(), ErrCancelled)
	case run.PauseRequested:
		return o.transition(ctx, run, StatePaused)
	}

	return nil
}

// idle reports whether no executor is working on the run: it has not been picked up yet or
// it waits for approval. Such a run is paused or cancelled right away.
func idle(s State) bool {
	return s == StatePending || s == StateApprove
}

// RequestPause pauses an idle run at once and asks an executing one to stop at the next step
// boundary.
func (o *Orchestrator) RequestPause(ctx context.Context, id uuid.UUID) error {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return err
	}

	if !CanTransition(run.State, StatePaused) {
		return fmt.Errorf("%w: cannot pause a %s run", ErrInvalidTransition, run.State)
	}

	if idle(run.State) {
		err := o.transition(ctx, run, StatePaused)
		if !errors.Is(err, ErrRunBusy) {
			return err
		}

		// An executor moved it meanwhile; it reads the flag at its next boundary.
	}

	return o.repo.RequestPause(ctx, id)
}

// Resume re-enters the step a paused run stopped at, or lets a run waiting for approval
// check again. The caller executes the returned run. Concurrent resumes fail with ErrRunBusy.
func (o *Orchestrator) Resume(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	switch run.State {
	case StatePaused:
		if err := o.transition(ctx, run, Steps[run.Step]); err != nil {
			return nil, err
		}
	case StateApprove:
		if err := o.repo.UpdateRun(ctx, run); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: cannot resume a %s run", ErrInvalidTransition, run.State)
	}

	return run, nil
}

// Retry re-enters the step a failed run stopped at.
func (o *Orchestrator) Retry(ctx context.Context, id uuid.UUID) (*Run, error) {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.State != StateFailed {
		return nil, fmt.Errorf("%w: only failed runs can be retried, run is %s", ErrInvalidTransition, run.State)
	}

	run.Error = ""
	run.FailedStep = ""

	if err := o.transition(ctx, run, Steps[run.Step]); err != nil {
		return nil, err
	}

	return run, nil
}

// Cancel fails a paused or idle run at once. Executing runs stop at the next step boundary.
func (o *Orchestrator) Cancel(ctx context.Context, id uuid.UUID) error {
	run, err := o.repo.GetRun(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case run.State == StatePaused:
		return o.fail(ctx, run, run.CurrentStep(), ErrCancelled)
	case run.State.Terminal():
		return fmt.Errorf("%w: run is %s", ErrInvalidTransition, run.State)
	case idle(run.State):
		err := o.fail(ctx, run, run.CurrentStep(), ErrCancelled)
		if !errors.Is(err, ErrRunBusy) {
			return err
		}
	}

	return o.repo.RequestCancel(ctx, id)
}

func (o *Orchestrator) transition(ctx context.Context, run *Run, to State) error {
	if !CanTransition(run.State, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, run.State, to)
	}

	run.State = to

	return o.repo.UpdateRun(ctx, run)
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, step State, cause error) error {
	run.Error = cause.Error()
	run.FailedStep = step

	return o.transition(ctx, run, StateFailed)
}
