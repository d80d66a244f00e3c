// Package diagnostics reports the executions that end rejected, timed out or
// failed so they can be inspected. The asynchronous executions failures are only
// visible through these reports.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	gerrors "github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/execution"
)

// Event is an execution that has ended in a state that needs to be reported.
type Event struct {
	Info  execution.Info
	State execution.State
	Err   error
	At    time.Time
}

// Cause returns the short cause of the event.
func (e Event) Cause() string {
	for _, sentinel := range []error{
		gerrors.ErrConcurrentOverflow,
		gerrors.ErrExecutorOverflow,
		gerrors.ErrExecutionTimeout,
		gerrors.ErrContextCanceled,
		gerrors.ErrOperationPanic,
	} {
		if errors.Is(e.Err, sentinel) {
			return sentinel.Error()
		}
	}

	if e.Err == nil {
		return "unknown"
	}
	return e.Err.Error()
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s: %s", e.Info, e.State, e.Cause())
}

// Reporter reports the diagnostic events.
type Reporter interface {
	Report(ctx context.Context, ev Event) error
}

// ReporterFunc is a helper to create reporters from functions.
type ReporterFunc func(ctx context.Context, ev Event) error

// Report satisfies Reporter interface.
func (r ReporterFunc) Report(ctx context.Context, ev Event) error {
	return r(ctx, ev)
}

// Dummy reporter doesn't report anything.
var Dummy Reporter = ReporterFunc(func(context.Context, Event) error { return nil })

type multiReporter []Reporter

// NewMultiReporter returns a reporter that reports to all the reporters, all of them
// are called even if one fails.
func NewMultiReporter(rs ...Reporter) Reporter {
	return multiReporter(rs)
}

func (m multiReporter) Report(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
