// Package pool has the worker pools used to run the executions and the providers
// that create them and cache them so the executions that use the same executor
// settings share the pool.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/log"
	"github.com/slok/gorchestrator/metrics"
)

// Pool executes jobs using a set of workers.
type Pool interface {
	// ID is the unique ID of the pool instance.
	ID() string
	// Name is the name of the pool.
	Name() string
	// Submit sends the job to the pool, it never blocks, if the pool can't accept
	// the job it will return an error.
	Submit(job func()) error
	// Shutdown stops accepting jobs, the accepted jobs will be executed.
	Shutdown()
	// Stats returns the current state of the pool.
	Stats() Stats
}

// Stats are the stats of a pool at a given moment.
type Stats struct {
	ID        string
	Name      string
	Workers   int
	Active    int
	Queued    int
	Rejected  int64
	Completed int64
	Closed    bool
}

// Config is the configuration of the WorkerPool.
type Config struct {
	// Name is the name of the pool.
	Name string
	// CoreSize is the number of workers that will not exit when idle.
	CoreSize int
	// MaxSize is the max number of workers, config.Unbounded for no limit.
	MaxSize int
	// QueueSize is the size of the jobs buffer, 0 means that a job is only
	// accepted if there is an idle worker ready to take it.
	QueueSize int
	// KeepAlive is the time the workers over the core size will wait for a
	// job before exiting.
	KeepAlive time.Duration
	// Logger is the logger.
	Logger log.Logger
	// MetricsRecorder is the metrics recorder.
	MetricsRecorder metrics.Recorder
}

func (c *Config) defaults() {
	if c.Name == "" {
		c.Name = "gorchestrator"
	}

	if c.CoreSize <= 0 {
		c.CoreSize = 1
	}

	if c.MaxSize != config.Unbounded && c.MaxSize < c.CoreSize {
		c.MaxSize = c.CoreSize
	}

	if c.QueueSize < 0 {
		c.QueueSize = 0
	}

	if c.KeepAlive <= 0 {
		c.KeepAlive = config.DefaultKeepAlive
	}

	if c.Logger == nil {
		c.Logger = log.Dummy
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Dummy
	}
}

// ConfigFromExecutor returns the pool configuration from resolved executor settings.
func ConfigFromExecutor(e config.Executor, nameArgs ...interface{}) Config {
	return Config{
		Name:      e.Name(nameArgs...),
		CoreSize:  e.CoreSize,
		MaxSize:   e.MaxSize,
		QueueSize: e.QueueSize,
		KeepAlive: e.KeepAlive,
	}
}

// WorkerPool is a pool of workers that grows on demand. Up to the core size every
// submitted job starts a new worker, after that the jobs go to the queue (or to an
// idle worker if the queue is a direct handoff) and when the queue can't accept more
// jobs new workers are started up to the max size. If the max size is reached
// the job is rejected without blocking.
//
// Workers over the core size exit after being idle for the keep alive time.
type WorkerPool struct {
	id   string
	cfg  Config
	jobC chan func() // jobC is the queue used to send jobs to the workers.

	mu      sync.Mutex
	workers int
	closed  bool

	active    atomic.Int64
	rejected  atomic.Int64
	completed atomic.Int64
	wg        sync.WaitGroup
}

var _ Pool = &WorkerPool{}

// New returns a new worker pool. The workers are started lazily when the jobs
// are submitted.
func New(cfg Config) *WorkerPool {
	cfg.defaults()

	return &WorkerPool{
		id:   uuid.NewString(),
		cfg:  cfg,
		jobC: make(chan func(), cfg.QueueSize),
	}
}

// ID satisfies Pool interface.
func (p *WorkerPool) ID() string { return p.id }

// Name satisfies Pool interface.
func (p *WorkerPool) Name() string { return p.cfg.Name }

// Submit satisfies Pool interface.
func (p *WorkerPool) Submit(job func()) error {
	if job == nil {
		return fmt.Errorf("%w: nil job", errors.ErrInvalidConfig)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.ErrPoolShutdown
	}

	// Under the core size every job gets a new worker.
	if p.workers < p.cfg.CoreSize {
		p.startWorker(job)
		return nil
	}

	// Try the queue, on direct handoff only an idle worker can take it.
	select {
	case p.jobC <- job:
		p.measure()
		return nil
	default:
	}

	if p.cfg.MaxSize == config.Unbounded || p.workers < p.cfg.MaxSize {
		p.startWorker(job)
		return nil
	}

	p.rejected.Add(1)
	return errors.ErrExecutorOverflow
}

// Shutdown satisfies Pool interface. It doesn't wait for the running jobs, use
// Wait for that.
func (p *WorkerPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.jobC)
	p.cfg.Logger.Debugf("pool %s shut down", p.cfg.Name)
}

// Wait waits until all the workers have exited after a shutdown.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stats satisfies Pool interface.
func (p *WorkerPool) Stats() Stats {
	p.mu.Lock()
	workers, closed := p.workers, p.closed
	p.mu.Unlock()

	return Stats{
		ID:        p.id,
		Name:      p.cfg.Name,
		Workers:   workers,
		Active:    int(p.active.Load()),
		Queued:    len(p.jobC),
		Rejected:  p.rejected.Load(),
		Completed: p.completed.Load(),
		Closed:    closed,
	}
}

// startWorker needs to be called with the lock acquired.
func (p *WorkerPool) startWorker(job func()) {
	p.workers++
	p.wg.Add(1)
	go p.worker(job)
	p.measure()
}

func (p *WorkerPool) worker(job func()) {
	defer p.wg.Done()

	idle := time.NewTimer(p.cfg.KeepAlive)
	defer idle.Stop()

	for {
		if job != nil {
			p.run(job)
			job = nil
		}

		idle.Reset(p.cfg.KeepAlive)
		select {
		case j, ok := <-p.jobC:
			// Closed and drained.
			if !ok {
				p.exit()
				return
			}
			job = j
		case <-idle.C:
			if p.retire() {
				return
			}
		}
	}
}

func (p *WorkerPool) run(job func()) {
	p.active.Add(1)
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Errorf("pool %s job panicked: %v", p.cfg.Name, r)
		}
		p.active.Add(-1)
		p.completed.Add(1)
		p.lockAndMeasure()
	}()

	job()
}

// retire exits the worker if the pool has more workers than the core size.
func (p *WorkerPool) retire() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.workers <= p.cfg.CoreSize {
		return false
	}
	p.workers--
	p.measure()
	return true
}

func (p *WorkerPool) exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers--
	p.measure()
}

func (p *WorkerPool) lockAndMeasure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measure()
}

// measure needs to be called with the lock acquired.
func (p *WorkerPool) measure() {
	p.cfg.MetricsRecorder.SetPoolWorkers(p.cfg.Name, p.workers, int(p.active.Load()), len(p.jobC))
}
