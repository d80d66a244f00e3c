package concurrencylimit_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gorchestrator/concurrencylimit"
	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
)

func testKey(op string) concurrencylimit.Key {
	return concurrencylimit.Key{
		Operation: op,
		Limits:    config.Limits{TimeLimit: time.Second, ConcurrentLimit: 2},
	}
}

func TestLimiterAcquire(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		acquires    int
		expAcquired int
	}{
		{
			name:        "Acquiring under the limit should give permits.",
			limit:       3,
			acquires:    3,
			expAcquired: 3,
		},
		{
			name:        "Acquiring over the limit should be rejected.",
			limit:       2,
			acquires:    5,
			expAcquired: 2,
		},
		{
			name:        "Unlimited should always give permits.",
			limit:       0,
			acquires:    100,
			expAcquired: 100,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)

			l := concurrencylimit.NewLimiter()
			key := testKey("test")

			acquired := 0
			for i := 0; i < test.acquires; i++ {
				_, err := l.Acquire(key, test.limit)
				if err != nil {
					assert.ErrorIs(err, errors.ErrConcurrentOverflow)
					continue
				}
				acquired++
			}

			assert.Equal(test.expAcquired, acquired)
			assert.Equal(test.expAcquired, l.InFlight(key))
		})
	}
}

func TestLimiterRelease(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	l := concurrencylimit.NewLimiter()
	key := testKey("test")

	p1, err := l.Acquire(key, 2)
	require.NoError(err)
	p2, err := l.Acquire(key, 2)
	require.NoError(err)
	_, err = l.Acquire(key, 2)
	assert.ErrorIs(err, errors.ErrConcurrentOverflow)

	assert.Equal(1, p1.Release())
	// Releasing twice doesn't change the counter.
	assert.Equal(1, p1.Release())
	assert.Equal(1, l.InFlight(key))

	_, err = l.Acquire(key, 2)
	assert.NoError(err)
	assert.Equal(2, l.InFlight(key))

	p2.Release()
	assert.Equal(1, l.InFlight(key))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	assert := assert.New(t)

	l := concurrencylimit.NewLimiter()
	k1 := testKey("op1")
	k2 := testKey("op2")
	k3 := k1
	k3.Limits.TimeLimit = 2 * time.Second

	_, err := l.Acquire(k1, 1)
	assert.NoError(err)
	_, err = l.Acquire(k2, 1)
	assert.NoError(err)
	_, err = l.Acquire(k3, 1)
	assert.NoError(err)
	_, err = l.Acquire(k1, 1)
	assert.ErrorIs(err, errors.ErrConcurrentOverflow)
}

func TestLimiterConcurrentBound(t *testing.T) {
	assert := assert.New(t)

	const limit = 5
	l := concurrencylimit.NewLimiter()
	key := testKey("test")

	var current, max, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := l.Acquire(key, limit)
			if err != nil {
				rejected.Add(1)
				return
			}
			defer p.Release()

			c := current.Add(1)
			for {
				m := max.Load()
				if c <= m || max.CompareAndSwap(m, c) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(max.Load(), int64(limit))
	assert.Equal(0, l.InFlight(key))
}

func TestLimiterOperationInFlight(t *testing.T) {
	assert := assert.New(t)

	l := concurrencylimit.NewLimiter()
	k1 := testKey("op1")
	k2 := k1
	k2.Limits.ConcurrentLimit = 10

	p, _ := l.Acquire(k1, 2)
	_, _ = l.Acquire(k2, 10)
	_, _ = l.Acquire(testKey("op2"), 2)

	assert.Equal(2, l.OperationInFlight("op1"))
	p.Release()
	assert.Equal(1, l.OperationInFlight("op1"))
	assert.Equal(0, l.OperationInFlight("missing"))
}
