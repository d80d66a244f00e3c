// Package concurrencylimit limits the number of in-flight executions of an operation.
//
// The limiter doesn't queue: acquiring a permit is a test and increment of the
// in-flight counter of the operation, if the limit is reached the caller gets
// an error straight away and it's up to the caller to retry the call.
//
// Every acquired permit must be released once, on every exit path. Releasing a
// permit more than once has no effect.
package concurrencylimit
