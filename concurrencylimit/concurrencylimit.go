package concurrencylimit

import (
	"sync"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
)

// Key identifies an in-flight counter. Executions of the same operation with
// different resolved limits use different counters.
type Key struct {
	Operation string
	Limits    config.Limits
}

// Limiter tracks the in-flight executions per key.
type Limiter struct {
	mu        sync.Mutex
	inflights map[Key]int
}

// NewLimiter returns a new Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		inflights: map[Key]int{},
	}
}

// Acquire returns a permit if the in-flight executions of the key are under the
// limit, a limit of 0 or less means unlimited. When the limit is reached it
// returns ErrConcurrentOverflow and the counter is not changed.
func (l *Limiter) Acquire(key Key, limit int) (*Permit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.inflights[key]
	if limit > 0 && current+1 > limit {
		return nil, errors.ErrConcurrentOverflow
	}
	l.inflights[key] = current + 1

	return &Permit{limiter: l, key: key}, nil
}

// InFlight returns the current in-flight executions of the key.
func (l *Limiter) InFlight(key Key) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflights[key]
}

// OperationInFlight returns the in-flight executions of the operation for all its limits.
func (l *Limiter) OperationInFlight(operation string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0
	for k, v := range l.inflights {
		if k.Operation == operation {
			total += v
		}
	}
	return total
}

func (l *Limiter) release(key Key) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.inflights[key] - 1
	if current <= 0 {
		delete(l.inflights, key)
		return 0
	}
	l.inflights[key] = current
	return current
}

// Permit is one unit of the concurrency budget of a key.
type Permit struct {
	limiter *Limiter
	key     Key
	once    sync.Once
}

// Key returns the key of the permit.
func (p *Permit) Key() Key { return p.key }

// Release returns the permit to the limiter and returns the in-flight executions
// left. Only the first call has effect.
func (p *Permit) Release() int {
	released := false
	inflight := 0
	p.once.Do(func() {
		released = true
		inflight = p.limiter.release(p.key)
	})

	if !released {
		return p.limiter.InFlight(p.key)
	}
	return inflight
}
