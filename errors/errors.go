package errors

import "errors"

var (
	// ErrConcurrentOverflow will be used when the execution has been rejected because
	// the concurrent executions limit of the operation has been reached.
	ErrConcurrentOverflow = errors.New("concurrent executions limit is reached")
	// ErrExecutorOverflow will be used when the execution has been rejected because the
	// pool has no idle worker and no free queue slot.
	ErrExecutorOverflow = errors.New("executor queue is full")
	// ErrExecutionTimeout will be used when a execution didn't finish in its time limit.
	ErrExecutionTimeout = errors.New("timeout is reached")
	// ErrContextCanceled will be used when the caller context has been cancelled while
	// waiting for the execution.
	ErrContextCanceled = errors.New("context canceled while waiting for execution")
	// ErrInvalidConfig will be used when the configuration of an operation or a pool is
	// not valid or is contradictory.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrOperationNotFound will be used when calling an operation that has not been registered.
	ErrOperationNotFound = errors.New("operation not found")
	// ErrPoolShutdown will be used when submitting to a pool that has been shut down.
	ErrPoolShutdown = errors.New("pool has been shut down")
	// ErrOperationPanic will be used when the operation panicked while executing.
	ErrOperationPanic = errors.New("operation panicked")
)
