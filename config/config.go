// Package config has the limits and pool settings used to orchestrate an operation
// and the resolution of the final settings from the different configuration layers
// (per call override, declared on the operation and system defaults).
//
// On an unresolved layer the zero value of a field means unset, resolution will
// take the value from the next layer and, if no layer sets it, from the defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/slok/gorchestrator/errors"
)

const (
	// Unlimited is the sentinel used to ask explicitly for unlimited concurrent executions.
	// Resolved limits represent unlimited with 0.
	Unlimited = -1
	// Unbounded is the sentinel used on the pool max size for an effectively unbounded
	// number of workers.
	Unbounded = -1
	// DirectHandoff is the sentinel used to ask explicitly for a pool queue without
	// buffer. Resolved executors represent it with 0.
	DirectHandoff = -1
)

// Pool provisioning kinds.
const (
	// KindDefault provisions a pool per executor configuration.
	KindDefault = "default"
	// KindSystem uses the process wide pool for internal work.
	KindSystem = "system"
	// KindAsync uses the process wide pool for fire and forget executions.
	KindAsync = "async"
)

// Defaults used when no configuration layer sets the value.
const (
	DefaultTimeLimit       = 30 * time.Second
	DefaultConcurrentLimit = 0
	DefaultCoreSize        = 10
	DefaultMaxSize         = Unbounded
	DefaultQueueSize       = 0
	DefaultKeepAlive       = 60 * time.Second
	DefaultNameFormat      = "gorchestrator-%s"
	DefaultKind            = KindDefault
)

// Limits are the limits applied to every execution of an operation.
type Limits struct {
	// TimeLimit is the max time a caller will wait for the execution result.
	TimeLimit time.Duration
	// ConcurrentLimit is the max number of in-flight executions of the operation.
	// 0 means unlimited once resolved.
	ConcurrentLimit int
}

// Unlimited returns true if the limits don't restrict concurrent executions.
func (l Limits) Unlimited() bool {
	return l.ConcurrentLimit <= 0
}

func (l Limits) String() string {
	concurrent := "unlimited"
	if !l.Unlimited() {
		concurrent = fmt.Sprintf("%d", l.ConcurrentLimit)
	}
	return fmt.Sprintf("time limit: %s, concurrent limit: %s", l.TimeLimit, concurrent)
}

// Executor are the settings of the worker pool that will run the executions. Two
// equal resolved Executor settings identify the same pool.
type Executor struct {
	// Kind is the pool provisioning strategy used to get the pool.
	Kind string
	// CoreSize is the number of workers that are kept alive even if idle.
	CoreSize int
	// MaxSize is the max number of workers, Unbounded for no limit.
	MaxSize int
	// QueueSize is the buffer of the pool jobs queue. Once resolved 0 means direct
	// handoff to an idle worker without buffering, use DirectHandoff to set it on
	// a layer.
	QueueSize int
	// KeepAlive is the time a worker over the core size waits idle before exiting.
	KeepAlive time.Duration
	// NameFormat is the format used to name the pool, receives the name arguments.
	NameFormat string
}

// Unbounded returns true if the pool can grow the workers without limit.
func (e Executor) Unbounded() bool {
	return e.MaxSize == Unbounded
}

// Name returns the pool name using the name format.
func (e Executor) Name(args ...interface{}) string {
	if len(args) == 0 || !strings.Contains(e.NameFormat, "%") {
		return e.NameFormat
	}
	return fmt.Sprintf(e.NameFormat, args...)
}

func (e Executor) String() string {
	max := "unbounded"
	if !e.Unbounded() {
		max = fmt.Sprintf("%d", e.MaxSize)
	}
	queue := "direct handoff"
	if e.QueueSize > 0 {
		queue = fmt.Sprintf("%d", e.QueueSize)
	}
	return fmt.Sprintf("kind: %s, core size: %d, max size: %s, queue: %s, keep alive: %s",
		e.Kind, e.CoreSize, max, queue, e.KeepAlive)
}

// Orchestration is the full configuration attached to an operation.
type Orchestration struct {
	Limits   Limits
	Executor Executor
}

func (o Orchestration) String() string {
	return fmt.Sprintf("%s; %s", o.Limits, o.Executor)
}

// Validate checks resolved limits.
func (l Limits) Validate() error {
	switch {
	case l.TimeLimit <= 0:
		return fmt.Errorf("%w: time limit must be positive, got %s", errors.ErrInvalidConfig, l.TimeLimit)
	case l.ConcurrentLimit < 0:
		return fmt.Errorf("%w: concurrent limit can't be negative, got %d", errors.ErrInvalidConfig, l.ConcurrentLimit)
	}

	return nil
}

// Validate checks resolved executor settings.
func (e Executor) Validate() error {
	switch {
	case e.Kind == "":
		return fmt.Errorf("%w: executor kind is required", errors.ErrInvalidConfig)
	case e.CoreSize < 1:
		return fmt.Errorf("%w: core size must be at least 1, got %d", errors.ErrInvalidConfig, e.CoreSize)
	case e.MaxSize < 0 && e.MaxSize != Unbounded:
		return fmt.Errorf("%w: max size can't be negative, got %d", errors.ErrInvalidConfig, e.MaxSize)
	case !e.Unbounded() && e.MaxSize < e.CoreSize:
		return fmt.Errorf("%w: max size (%d) can't be less than core size (%d)", errors.ErrInvalidConfig, e.MaxSize, e.CoreSize)
	case e.QueueSize < 0:
		return fmt.Errorf("%w: queue size can't be negative, got %d", errors.ErrInvalidConfig, e.QueueSize)
	case e.KeepAlive <= 0:
		return fmt.Errorf("%w: keep alive must be positive, got %s", errors.ErrInvalidConfig, e.KeepAlive)
	case e.NameFormat == "":
		return fmt.Errorf("%w: name format is required", errors.ErrInvalidConfig)
	}

	return nil
}

// Validate checks a resolved configuration.
func (o Orchestration) Validate() error {
	if err := o.Limits.Validate(); err != nil {
		return err
	}
	return o.Executor.Validate()
}

// defaults sets the default values on the unset fields.
func (o *Orchestration) defaults() {
	if o.Limits.TimeLimit == 0 {
		o.Limits.TimeLimit = DefaultTimeLimit
	}

	// Explicit unlimited is represented as 0 once resolved.
	if o.Limits.ConcurrentLimit == Unlimited {
		o.Limits.ConcurrentLimit = DefaultConcurrentLimit
	}

	if o.Executor.Kind == "" {
		o.Executor.Kind = DefaultKind
	}

	if o.Executor.CoreSize == 0 {
		o.Executor.CoreSize = DefaultCoreSize
	}

	if o.Executor.MaxSize == 0 {
		o.Executor.MaxSize = DefaultMaxSize
	}

	switch o.Executor.QueueSize {
	case 0:
		o.Executor.QueueSize = DefaultQueueSize
	case DirectHandoff:
		o.Executor.QueueSize = 0
	}

	if o.Executor.KeepAlive == 0 {
		o.Executor.KeepAlive = DefaultKeepAlive
	}

	if o.Executor.NameFormat == "" {
		o.Executor.NameFormat = DefaultNameFormat
	}
}

// Resolve returns the final configuration merging the layers in priority order, the
// first layer that sets a field wins. The unset fields will get the defaults. Resolve
// doesn't have side effects.
func Resolve(layers ...Orchestration) (Orchestration, error) {
	var res Orchestration
	for _, l := range layers {
		res = merge(res, l)
	}
	res.defaults()

	if err := res.Validate(); err != nil {
		return Orchestration{}, err
	}

	return res, nil
}

// merge sets the unset fields of dst with the ones of src.
func merge(dst, src Orchestration) Orchestration {
	if dst.Limits.TimeLimit == 0 {
		dst.Limits.TimeLimit = src.Limits.TimeLimit
	}
	if dst.Limits.ConcurrentLimit == 0 {
		dst.Limits.ConcurrentLimit = src.Limits.ConcurrentLimit
	}
	if dst.Executor.Kind == "" {
		dst.Executor.Kind = src.Executor.Kind
	}
	if dst.Executor.CoreSize == 0 {
		dst.Executor.CoreSize = src.Executor.CoreSize
	}
	if dst.Executor.MaxSize == 0 {
		dst.Executor.MaxSize = src.Executor.MaxSize
	}
	if dst.Executor.QueueSize == 0 {
		dst.Executor.QueueSize = src.Executor.QueueSize
	}
	if dst.Executor.KeepAlive == 0 {
		dst.Executor.KeepAlive = src.Executor.KeepAlive
	}
	if dst.Executor.NameFormat == "" {
		dst.Executor.NameFormat = src.Executor.NameFormat
	}

	return dst
}

// Mode names used on declarations.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// Declaration is the configuration declared for an operation outside the code,
// for example on a configuration file.
type Declaration struct {
	Orchestration Orchestration
	// Mode is the execution mode, empty means not declared.
	Mode string
}
