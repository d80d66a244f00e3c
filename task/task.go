// Package task wraps the invocations of an operation into units of work that
// can be executed by the pools.
package task

import (
	"context"
	"fmt"

	"github.com/slok/gorchestrator/errors"
)

// Method is the logic of an operation. It receives the target the operation is
// invoked on and the call arguments.
type Method func(ctx context.Context, target interface{}, args ...interface{}) (interface{}, error)

// Invocation is a call to an operation.
type Invocation struct {
	// Operation is the name of the invoked operation.
	Operation string
	// Target is the object the operation is invoked on, can be nil.
	Target interface{}
	// Method is the operation logic.
	Method Method
	// Args are the arguments of the call.
	Args []interface{}
}

// Result is the outcome of running a task.
type Result struct {
	Value interface{}
	Err   error
}

// Task is a wrapped invocation ready to be executed. A task doesn't have state
// so it can be executed multiple times and concurrently.
type Task struct {
	inv Invocation
}

// Wrap wraps the invocation in a task. The arguments are copied so the caller
// can reuse its slice.
func Wrap(inv Invocation) *Task {
	if inv.Args != nil {
		inv.Args = append([]interface{}(nil), inv.Args...)
	}
	return &Task{inv: inv}
}

// Operation returns the operation name of the wrapped invocation.
func (t *Task) Operation() string { return t.inv.Operation }

// Run executes the invocation. The errors of the operation are returned in the
// result unchanged, a panic is returned as an error wrapping ErrOperationPanic.
// If the context is already done the invocation is skipped. Run never panics.
func (t *Task) Run(ctx context.Context) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("%w: %s: %v", errors.ErrOperationPanic, t.inv.Operation, r)}
		}
	}()

	// Don't execute if the context ended while waiting on the pool.
	select {
	case <-ctx.Done():
		return Result{Err: fmt.Errorf("%w: %w", errors.ErrContextCanceled, ctx.Err())}
	default:
	}

	if t.inv.Method == nil {
		return Result{Err: fmt.Errorf("%w: operation %q doesn't have a method", errors.ErrInvalidConfig, t.inv.Operation)}
	}

	v, err := t.inv.Method(ctx, t.inv.Target, t.inv.Args...)
	return Result{Value: v, Err: err}
}
