package pool

import (
	"sync"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/log"
	"github.com/slok/gorchestrator/metrics"
)

// Provider provisions the pools used by the executions.
type Provider interface {
	// Pool returns the pool for the executor settings, it's created on the first use.
	// The name arguments are used to format the pool name when it's created.
	Pool(cfg config.Executor, nameArgs ...interface{}) (Pool, error)
	// TearDown shuts down the provisioned pools and forgets them, a pool obtained
	// after the tear down will be a new one. It returns once the queued and running
	// jobs have finished, so it can't be called from a job of its own pools. It's
	// safe to call it multiple times.
	TearDown()
}

// Shared pools executor settings.
var (
	// SystemExecutor are the settings of the system shared pool.
	SystemExecutor = config.Executor{
		Kind:       config.KindSystem,
		CoreSize:   2,
		MaxSize:    2,
		QueueSize:  256,
		KeepAlive:  config.DefaultKeepAlive,
		NameFormat: "gorchestrator-system",
	}

	// AsyncExecutor are the settings of the async shared pool.
	AsyncExecutor = config.Executor{
		Kind:       config.KindAsync,
		CoreSize:   config.DefaultCoreSize,
		MaxSize:    config.Unbounded,
		QueueSize:  0,
		KeepAlive:  config.DefaultKeepAlive,
		NameFormat: "gorchestrator-async",
	}
)

// ProviderConfig is the configuration of the providers.
type ProviderConfig struct {
	// Executor are the settings of the pool on the shared providers, the
	// cached provider ignores it.
	Executor config.Executor
	// Logger is the logger.
	Logger log.Logger
	// MetricsRecorder is the metrics recorder.
	MetricsRecorder metrics.Recorder
}

func (c *ProviderConfig) defaults(shared config.Executor) {
	if c.Executor == (config.Executor{}) {
		c.Executor = shared
	}

	if c.Logger == nil {
		c.Logger = log.Dummy
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Dummy
	}
}

type cachedProvider struct {
	cfg   ProviderConfig
	mu    sync.RWMutex
	pools map[config.Executor]*WorkerPool
}

// NewCachedProvider returns a provider that creates a pool for every different
// executor settings. Equal settings get the same pool instance.
func NewCachedProvider(cfg ProviderConfig) Provider {
	cfg.defaults(config.Executor{})
	return &cachedProvider{
		cfg:   cfg,
		pools: map[config.Executor]*WorkerPool{},
	}
}

func (c *cachedProvider) Pool(e config.Executor, nameArgs ...interface{}) (Pool, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	p, ok := c.pools[e]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Check again, someone could have created it while we were waiting the lock.
	if p, ok := c.pools[e]; ok {
		return p, nil
	}

	p = c.newPool(e, nameArgs...)
	c.pools[e] = p

	return p, nil
}

func (c *cachedProvider) newPool(e config.Executor, nameArgs ...interface{}) *WorkerPool {
	pcfg := ConfigFromExecutor(e, nameArgs...)
	pcfg.Logger = c.cfg.Logger.WithValues(log.Kv{"pool": pcfg.Name})
	pcfg.MetricsRecorder = c.cfg.MetricsRecorder
	p := New(pcfg)

	c.cfg.MetricsRecorder.IncPoolCreated(e.Kind)
	c.cfg.Logger.Debugf("pool %s created (%s)", pcfg.Name, e)

	return p
}

func (c *cachedProvider) TearDown() {
	c.mu.Lock()
	pools := c.pools
	c.pools = map[config.Executor]*WorkerPool{}
	c.mu.Unlock()

	for _, p := range pools {
		p.Shutdown()
	}
	for _, p := range pools {
		p.Wait()
	}
}

// sharedProvider has a single pool that is used by everyone.
type sharedProvider struct {
	cfg  ProviderConfig
	mu   sync.Mutex
	pool *WorkerPool
}

// NewSystemProvider returns the provider of the pool used for the internal work
// (like reporting diagnostics), it's independent from the pools of the operations.
// The executor settings received on Pool are ignored.
func NewSystemProvider(cfg ProviderConfig) Provider {
	cfg.defaults(SystemExecutor)
	return &sharedProvider{cfg: cfg}
}

// NewAsyncProvider returns the provider of the pool used for the fire and forget
// executions, it's separated from the system pool so the async executions can't
// starve the internal work. The executor settings received on Pool are ignored.
func NewAsyncProvider(cfg ProviderConfig) Provider {
	cfg.defaults(AsyncExecutor)
	return &sharedProvider{cfg: cfg}
}

func (s *sharedProvider) Pool(_ config.Executor, _ ...interface{}) (Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool != nil {
		return s.pool, nil
	}

	e := s.cfg.Executor
	if err := e.Validate(); err != nil {
		return nil, err
	}

	pcfg := ConfigFromExecutor(e)
	pcfg.Logger = s.cfg.Logger.WithValues(log.Kv{"pool": pcfg.Name})
	pcfg.MetricsRecorder = s.cfg.MetricsRecorder
	s.pool = New(pcfg)

	s.cfg.MetricsRecorder.IncPoolCreated(e.Kind)
	s.cfg.Logger.Debugf("pool %s created (%s)", pcfg.Name, e)

	return s.pool, nil
}

func (s *sharedProvider) TearDown() {
	s.mu.Lock()
	p := s.pool
	s.pool = nil
	s.mu.Unlock()

	if p != nil {
		p.Shutdown()
		p.Wait()
	}
}
