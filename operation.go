package gorchestrator

import (
	"context"
	"fmt"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/task"
)

// Mode is the execution mode of an operation.
type Mode int

const (
	// ModeDefault on a call keeps the mode of the operation, on an operation it's
	// the same as ModeSync.
	ModeDefault Mode = iota
	// ModeSync waits for the execution result.
	ModeSync
	// ModeAsync returns as soon as the execution is submitted, the result is discarded.
	// Only operations without result can use it.
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeSync:
		return config.ModeSync
	case ModeAsync:
		return config.ModeAsync
	}
	return "default"
}

// ParseMode returns the mode from its name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeDefault, nil
	case config.ModeSync:
		return ModeSync, nil
	case config.ModeAsync:
		return ModeAsync, nil
	}
	return ModeDefault, fmt.Errorf("%w: unknown mode %q", errors.ErrInvalidConfig, s)
}

// Operation is a unit of work that will be orchestrated.
type Operation struct {
	// Name identifies the operation.
	Name string
	// Method is the logic of the operation.
	Method task.Method
	// Void marks the operations that don't return a result, only these can be
	// executed in async mode.
	Void bool
	// Mode is the default execution mode of the operation.
	Mode Mode
	// Declared is the configuration declared for the operation, the unset fields
	// will use the orchestrator defaults.
	Declared config.Orchestration
	// CacheTasks enables the reuse of the wrapped tasks for repeated invocations
	// (same target, same arguments). The cached tasks retain their target and
	// arguments until evicted.
	CacheTasks bool
}

// Call is a request to execute an operation.
type Call struct {
	// Operation is the name of the registered operation.
	Operation string
	// Target is the object the operation is invoked on.
	Target interface{}
	// Args are the call arguments.
	Args []interface{}
	// Override is the configuration for this call only, it has priority over the
	// operation configuration.
	Override *config.Orchestration
	// Mode overrides the operation mode for this call.
	Mode Mode
}

// MethodFunc adapts a function without target nor arguments to a task.Method.
func MethodFunc[T any](f func(ctx context.Context) (T, error)) task.Method {
	return func(ctx context.Context, _ interface{}, _ ...interface{}) (interface{}, error) {
		return f(ctx)
	}
}

// VoidFunc adapts a function without result to a task.Method.
func VoidFunc(f func(ctx context.Context) error) task.Method {
	return func(ctx context.Context, _ interface{}, _ ...interface{}) (interface{}, error) {
		return nil, f(ctx)
	}
}
