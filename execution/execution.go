package execution

import (
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/gorchestrator/config"
)

// State is the state of an execution.
type State string

const (
	// StatePending is the state before the admission.
	StatePending State = "pending"
	// StateAdmitted is the state after acquiring the concurrency permit.
	StateAdmitted State = "admitted"
	// StateRunning is the state once the execution has been submitted to the pool.
	StateRunning State = "running"
	// StateCompleted is the terminal state of an execution that finished in time.
	StateCompleted State = "completed"
	// StateTimedOut is the terminal state of an execution that didn't finish in time.
	StateTimedOut State = "timed_out"
	// StateRejected is the terminal state of an execution that never ran.
	StateRejected State = "rejected"
	// StateFailed is the terminal state of an execution that failed by other reasons.
	StateFailed State = "failed"
)

// Terminal returns true if the state is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateTimedOut, StateRejected, StateFailed:
		return true
	}
	return false
}

// Info is the record of a single execution. It's created when the execution starts
// and is read only afterwards. The limits and executor are always the resolved ones.
type Info struct {
	// ID is the unique ID of the execution.
	ID string
	// Name is the operation name.
	Name      string
	Limits    config.Limits
	Executor  config.Executor
	CreatedAt time.Time
}

// Open returns a new execution record for the operation name with the resolved configuration.
func Open(name string, cfg config.Orchestration) Info {
	now := time.Now()
	return Info{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Name:      name,
		Limits:    cfg.Limits,
		Executor:  cfg.Executor,
		CreatedAt: now,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("execution %s of %q (limits: %s) (executor: %s)", i.ID, i.Name, i.Limits, i.Executor)
}

// Error is the error returned when the orchestration layer stops an execution, the
// operation own errors are never wrapped with this error.
type Error struct {
	Info  Info
	State State
	// Reason is the orchestration error (errors.ErrConcurrentOverflow, errors.ErrExecutionTimeout...).
	Reason error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Info, e.Reason)
}

// Unwrap returns the reason so it can be checked with errors.Is.
func (e *Error) Unwrap() error {
	return e.Reason
}

// InfoFromError returns the execution information of an orchestration error.
func InfoFromError(err error) (Info, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Info, true
	}
	return Info{}, false
}
