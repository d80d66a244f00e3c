package metrics

import "time"

// Recorder knows how to measure different kind of metrics.
type Recorder interface {
	// WithID will set the ID name to the recorder and every metric
	// measured with the obtained recorder will be identified with
	// the name, usually the operation name.
	WithID(id string) Recorder
	// ObserveExecution will measure the execution of an operation until it
	// reached the terminal state.
	ObserveExecution(start time.Time, state string)
	// IncRejection increments the number of executions rejected before running.
	IncRejection(reason string)
	// IncTimeout increments the number of executions that reached the time limit.
	IncTimeout()
	// IncAsyncFailure increments the number of failed fire and forget executions.
	IncAsyncFailure()
	// SetInFlight sets the current number of in-flight executions.
	SetInFlight(quantity int)
	// IncPoolCreated increments the number of created pools of a kind.
	IncPoolCreated(kind string)
	// SetPoolWorkers sets the workers state of a pool.
	SetPoolWorkers(pool string, workers, active, queued int)
}

// Rejection reasons.
const (
	RejectionConcurrentOverflow = "concurrent_overflow"
	RejectionExecutorOverflow   = "executor_overflow"
)

// Dummy is a dummy recorder.
var Dummy Recorder = &dummy{}

type dummy struct{}

func (d dummy) WithID(id string) Recorder                             { return d }
func (dummy) ObserveExecution(start time.Time, state string)          {}
func (dummy) IncRejection(reason string)                              {}
func (dummy) IncTimeout()                                             {}
func (dummy) IncAsyncFailure()                                        {}
func (dummy) SetInFlight(quantity int)                                {}
func (dummy) IncPoolCreated(kind string)                              {}
func (dummy) SetPoolWorkers(pool string, workers, active, queued int) {}
