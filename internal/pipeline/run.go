// Package pipeline runs the reconciliation of one account and month as a resumable sequence of steps.
package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("pipeline run not found")
	ErrRunBusy           = errors.New("pipeline run was modified concurrently")
	ErrRunActive         = errors.New("an unfinished run already exists for this period")
	ErrInvalidTransition = errors.New("invalid pipeline transition")
	ErrInvalidPeriod     = errors.New("invalid period")
	ErrCancelled         = errors.New("cancelled by operator")
)

type State string

const (
	StatePending    State = "pending"
	StateImport     State = "import"
	StateNormalize  State = "normalize"
	StateCategorize State = "categorize"
	StateMatch      State = "match"
	StateValidate   State = "validate"
	StateAlert      State = "alert"
	StateApprove    State = "approve"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StatePaused     State = "paused"
)

// Steps lists the step states in execution order. A run's Step indexes into it.
var Steps = []State{
	StateImport,
	StateNormalize,
	StateCategorize,
	StateMatch,
	StateValidate,
	StateAlert,
	StateApprove,
}

const TotalSteps = 7

var transitions = map[State][]State{
	StatePending:    {StateImport, StatePaused, StateFailed},
	StateImport:     {StateNormalize, StatePaused, StateFailed},
	StateNormalize:  {StateCategorize, StatePaused, StateFailed},
	StateCategorize: {StateMatch, StatePaused, StateFailed},
	StateMatch:      {StateValidate, StatePaused, StateFailed},
	StateValidate:   {StateAlert, StatePaused, StateFailed},
	StateAlert:      {StateApprove, StatePaused, StateFailed},
	StateApprove:    {StateCompleted, StatePaused, StateFailed},
	StatePaused:     append(slices.Clone(Steps), StateFailed),
	StateFailed:     slices.Clone(Steps),
	StateCompleted:  nil,
}

// CanTransition reports whether the state machine allows moving from one state to another.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

func (s State) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsStep reports whether s is one of the executable steps.
func (s State) IsStep() bool {
	return slices.Contains(Steps, s)
}

// Terminal reports whether the run stopped for good. A failed run only moves again through Retry.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// StepIndex returns the position of s in Steps, or -1.
func StepIndex(s State) int {
	return slices.Index(Steps, s)
}

type Period struct {
	Year  int
	Month time.Month
}

func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}

	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) Validate() error {
	if p.Year < 2000 || p.Year > 2100 || p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: %04d-%02d", ErrInvalidPeriod, p.Year, p.Month)
	}

	return nil
}

// Start is the first day of the period, End the last one. Both are UTC midnights.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Counters aggregate what the steps of a run did.
type Counters struct {
	Imported int // new transactions stored
	Matched  int // transactions linked automatically by the auto-accept threshold
	Alerts   int // alert events emitted
	Errors   int // unreadable files and rows plus validation findings
}

func (c *Counters) Add(o Counters) {
	c.Imported += o.Imported
	c.Matched += o.Matched
	c.Alerts += o.Alerts
	c.Errors += o.Errors
}

type Run struct {
	ID              uuid.UUID
	ClientID        uuid.UUID
	AccountID       string
	Period          Period
	State           State
	Step            int // number of completed steps
	TotalSteps      int
	Counters        Counters
	PauseRequested  bool
	CancelRequested bool
	Error           string
	FailedStep      State
	Version         int64
	StartedAt       time.Time
	CompletedAt     *time.Time
	UpdatedAt       time.Time
}

// CurrentStep is the step the run executes next, or "" once every step is done.
func (r *Run) CurrentStep() State {
	if r.Step < 0 || r.Step >= len(Steps) {
		return ""
	}

	return Steps[r.Step]
}

// StepError wraps the failure of a step. The run moves to failed and keeps the message.
type StepError struct {
	Step State
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
