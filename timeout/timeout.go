// Package timeout has the wait of the executions bounded by their time limit.
//
// Reaching the time limit only means the caller stops waiting, the execution
// is not interrupted and could continue running on its worker. Executions that
// want to stop early can watch their context, it has the time limit as deadline.
package timeout

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/gorchestrator/errors"
)

// Await waits until done is closed. It returns ErrExecutionTimeout if the limit is
// reached before, and an error wrapping ErrContextCanceled if the context ends
// before. If done is already closed the result wins. A limit of 0 or less waits
// without limit.
func Await(ctx context.Context, limit time.Duration, done <-chan struct{}) error {
	var timeoutC <-chan time.Time
	if limit > 0 {
		t := time.NewTimer(limit)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case <-done:
		return nil
	case <-timeoutC:
		// Finished at the same time, the result wins.
		select {
		case <-done:
			return nil
		default:
		}
		return errors.ErrExecutionTimeout
	case <-ctx.Done():
		select {
		case <-done:
			return nil
		default:
		}
		return fmt.Errorf("%w: %w", errors.ErrContextCanceled, ctx.Err())
	}
}

// WithLimit returns a context that has the limit as deadline, a limit of 0 or less
// doesn't set a deadline.
func WithLimit(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, limit)
}
