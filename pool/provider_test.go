package pool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/pool"
)

func testExecutor() config.Executor {
	return config.Executor{
		Kind:       config.KindDefault,
		CoreSize:   1,
		MaxSize:    2,
		KeepAlive:  time.Second,
		NameFormat: "test-%s",
	}
}

func TestCachedProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg1    config.Executor
		cfg2    config.Executor
		expSame bool
	}{
		{
			name:    "Equal executor settings should get the same pool.",
			cfg1:    testExecutor(),
			cfg2:    testExecutor(),
			expSame: true,
		},
		{
			name: "Different executor settings should get different pools.",
			cfg1: testExecutor(),
			cfg2: func() config.Executor {
				e := testExecutor()
				e.QueueSize = 10
				return e
			}(),
			expSame: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			prov := pool.NewCachedProvider(pool.ProviderConfig{})
			defer prov.TearDown()

			p1, err := prov.Pool(test.cfg1, "op1")
			require.NoError(err)
			p2, err := prov.Pool(test.cfg2, "op2")
			require.NoError(err)

			assert.Equal(test.expSame, p1.ID() == p2.ID())
			assert.Equal("test-op1", p1.Name())
		})
	}
}

func TestCachedProviderInvalidConfig(t *testing.T) {
	assert := assert.New(t)

	prov := pool.NewCachedProvider(pool.ProviderConfig{})
	e := testExecutor()
	e.CoreSize = 0

	_, err := prov.Pool(e)
	assert.ErrorIs(err, errors.ErrInvalidConfig)
}

func TestCachedProviderConcurrentFirstUse(t *testing.T) {
	assert := assert.New(t)

	prov := pool.NewCachedProvider(pool.ProviderConfig{})
	defer prov.TearDown()

	const callers = 50
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := prov.Pool(testExecutor())
			if assert.NoError(err) {
				ids[i] = p.ID()
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(ids[0], id)
	}
}

func TestProvidersTearDown(t *testing.T) {
	tests := []struct {
		name string
		prov func() pool.Provider
	}{
		{
			name: "Cached provider.",
			prov: func() pool.Provider { return pool.NewCachedProvider(pool.ProviderConfig{}) },
		},
		{
			name: "System provider.",
			prov: func() pool.Provider { return pool.NewSystemProvider(pool.ProviderConfig{}) },
		},
		{
			name: "Async provider.",
			prov: func() pool.Provider { return pool.NewAsyncProvider(pool.ProviderConfig{}) },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			prov := test.prov()

			// Tear down without use is safe.
			prov.TearDown()

			p1, err := prov.Pool(testExecutor())
			require.NoError(err)
			p2, err := prov.Pool(testExecutor())
			require.NoError(err)
			assert.Equal(p1.ID(), p2.ID())

			prov.TearDown()
			prov.TearDown()
			assert.True(p1.Stats().Closed)
			assert.ErrorIs(p1.Submit(func() {}), errors.ErrPoolShutdown)

			p3, err := prov.Pool(testExecutor())
			require.NoError(err)
			assert.NotEqual(p1.ID(), p3.ID())
			assert.False(p3.Stats().Closed)
			prov.TearDown()
		})
	}
}

func TestProvidersTearDownWaitsJobs(t *testing.T) {
	tests := []struct {
		name string
		prov func() pool.Provider
	}{
		{
			name: "Cached provider.",
			prov: func() pool.Provider { return pool.NewCachedProvider(pool.ProviderConfig{}) },
		},
		{
			name: "System provider.",
			prov: func() pool.Provider { return pool.NewSystemProvider(pool.ProviderConfig{}) },
		},
		{
			name: "Async provider.",
			prov: func() pool.Provider { return pool.NewAsyncProvider(pool.ProviderConfig{}) },
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			prov := test.prov()
			p, err := prov.Pool(testExecutor())
			require.NoError(err)

			var finished atomic.Int32
			for i := 0; i < 2; i++ {
				err := p.Submit(func() {
					time.Sleep(50 * time.Millisecond)
					finished.Add(1)
				})
				require.NoError(err)
			}

			prov.TearDown()
			assert.Equal(int32(2), finished.Load())
			assert.Equal(0, p.Stats().Workers)
		})
	}
}

func TestSharedProviders(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	sys := pool.NewSystemProvider(pool.ProviderConfig{})
	async := pool.NewAsyncProvider(pool.ProviderConfig{})
	defer sys.TearDown()
	defer async.TearDown()

	// Shared providers ignore the received settings.
	other := testExecutor()
	other.CoreSize = 2
	sp1, err := sys.Pool(testExecutor())
	require.NoError(err)
	sp2, err := sys.Pool(other)
	require.NoError(err)
	ap, err := async.Pool(testExecutor())
	require.NoError(err)

	assert.Equal(sp1.ID(), sp2.ID())
	assert.NotEqual(sp1.ID(), ap.ID())
	assert.Equal("gorchestrator-system", sp1.Name())
	assert.Equal("gorchestrator-async", ap.Name())
}
