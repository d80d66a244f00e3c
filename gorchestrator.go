// Package gorchestrator executes operations applying per operation concurrency
// and time limits, the executions run on managed worker pools and the result
// is returned synchronously or the execution is fired asynchronously.
//
// An execution goes through these states:
//
//	pending -> admitted -> running -> completed | timed_out | rejected | failed
//
// The orchestration failures (rejections, timeouts...) are returned as
// *execution.Error and can be checked with errors.Is against the sentinels of
// the errors package. The failures of the operation itself are returned unchanged.
//
// Reaching the time limit doesn't stop the execution, the caller stops waiting
// and the execution context is cancelled, it's up to the operation to stop.
package gorchestrator

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/slok/gorchestrator/concurrencylimit"
	"github.com/slok/gorchestrator/config"
	"github.com/slok/gorchestrator/diagnostics"
	"github.com/slok/gorchestrator/errors"
	"github.com/slok/gorchestrator/execution"
	"github.com/slok/gorchestrator/log"
	"github.com/slok/gorchestrator/metrics"
	"github.com/slok/gorchestrator/pool"
	"github.com/slok/gorchestrator/task"
	"github.com/slok/gorchestrator/timeout"
)

// Config is the configuration of the Orchestrator.
type Config struct {
	// Defaults is the configuration used for the fields that the operations and
	// the calls don't set. The unset fields here use the config package defaults.
	Defaults config.Orchestration
	// Providers are the pool providers by executor kind. The default, system and async
	// kinds are set if missing.
	Providers map[string]pool.Provider
	// Limiter is the concurrency limiter.
	Limiter *concurrencylimit.Limiter
	// Reporter receives the executions that end rejected, timed out or failed.
	// By default they are logged.
	Reporter diagnostics.Reporter
	// TaskCacheSize is the size of the task cache used by the operations that
	// enable it.
	TaskCacheSize int
	// Logger is the logger.
	Logger log.Logger
	// MetricsRecorder is the metrics recorder.
	MetricsRecorder metrics.Recorder
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = log.Dummy
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Dummy
	}

	if c.Limiter == nil {
		c.Limiter = concurrencylimit.NewLimiter()
	}

	if c.Reporter == nil {
		c.Reporter = diagnostics.NewLogReporter(diagnostics.LogConfig{Logger: c.Logger})
	}

	if c.TaskCacheSize <= 0 {
		c.TaskCacheSize = task.DefaultCacheSize
	}

	// Don't mutate the received map.
	providers := make(map[string]pool.Provider, len(c.Providers)+3)
	for k, p := range c.Providers {
		providers[k] = p
	}
	pcfg := pool.ProviderConfig{Logger: c.Logger, MetricsRecorder: c.MetricsRecorder}
	if _, ok := providers[config.KindDefault]; !ok {
		providers[config.KindDefault] = pool.NewCachedProvider(pcfg)
	}
	if _, ok := providers[config.KindSystem]; !ok {
		providers[config.KindSystem] = pool.NewSystemProvider(pcfg)
	}
	if _, ok := providers[config.KindAsync]; !ok {
		providers[config.KindAsync] = pool.NewAsyncProvider(pcfg)
	}
	c.Providers = providers
}

// registered is a registered operation with its declared configuration layers.
type registered struct {
	op Operation
	// layers are the declared configuration layers in priority order.
	layers []config.Orchestration
	mode   Mode
}

// Orchestrator executes the registered operations.
type Orchestrator struct {
	cfg   Config
	tasks *task.Cache

	mu         sync.RWMutex
	operations map[string]*registered
}

// New returns a new Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	cfg.defaults()

	if _, err := config.Resolve(cfg.Defaults); err != nil {
		return nil, fmt.Errorf("invalid default configuration: %w", err)
	}

	tasks, err := task.NewCache(task.CacheConfig{Size: cfg.TaskCacheSize, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}

	return &Orchestrator{
		cfg:        cfg,
		tasks:      tasks,
		operations: map[string]*registered{},
	}, nil
}

// Register registers an operation so it can be called.
func (o *Orchestrator) Register(op Operation) error {
	if op.Name == "" {
		return fmt.Errorf("%w: operation name is required", errors.ErrInvalidConfig)
	}

	if op.Method == nil {
		return fmt.Errorf("%w: operation %q method is required", errors.ErrInvalidConfig, op.Name)
	}

	mode := op.Mode
	if mode == ModeDefault {
		mode = ModeSync
	}

	reg := &registered{
		op:     op,
		layers: []config.Orchestration{op.Declared},
		mode:   mode,
	}
	if err := o.validate(reg); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.operations[op.Name]; ok {
		return fmt.Errorf("%w: operation %q already registered", errors.ErrInvalidConfig, op.Name)
	}
	o.operations[op.Name] = reg

	o.cfg.Logger.Debugf("operation %q registered", op.Name)
	return nil
}

// Declare attaches declared configuration (for example loaded from a file) to the
// registered operations. The declared fields have priority over the ones set on
// registration. If any declaration is not valid none is applied.
func (o *Orchestrator) Declare(decls map[string]config.Declaration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	updated := make(map[string]*registered, len(decls))
	for name, decl := range decls {
		reg, ok := o.operations[name]
		if !ok {
			return fmt.Errorf("%w: declared operation %q", errors.ErrOperationNotFound, name)
		}

		mode, err := ParseMode(decl.Mode)
		if err != nil {
			return fmt.Errorf("operation %q: %w", name, err)
		}
		if mode == ModeDefault {
			mode = reg.mode
		}

		newReg := &registered{
			op:     reg.op,
			layers: []config.Orchestration{decl.Orchestration, reg.op.Declared},
			mode:   mode,
		}
		if err := o.validate(newReg); err != nil {
			return err
		}
		updated[name] = newReg
	}

	for name, reg := range updated {
		o.operations[name] = reg
	}

	return nil
}

func (o *Orchestrator) validate(reg *registered) error {
	if reg.mode == ModeAsync && !reg.op.Void {
		return fmt.Errorf("%w: operation %q has a result, it can't be async", errors.ErrInvalidConfig, reg.op.Name)
	}

	cfg, err := config.Resolve(append(reg.layers, o.cfg.Defaults)...)
	if err != nil {
		return fmt.Errorf("operation %q: %w", reg.op.Name, err)
	}

	if _, ok := o.cfg.Providers[cfg.Executor.Kind]; !ok {
		return fmt.Errorf("%w: operation %q uses unknown executor kind %q", errors.ErrInvalidConfig, reg.op.Name, cfg.Executor.Kind)
	}

	return nil
}

func (o *Orchestrator) operation(name string) (*registered, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	reg, ok := o.operations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrOperationNotFound, name)
	}
	return reg, nil
}

// InFlight returns the in-flight executions of the operation.
func (o *Orchestrator) InFlight(operation string) int {
	return o.cfg.Limiter.OperationInFlight(operation)
}

// TearDown shuts down all the pools and waits for their executions to finish, the
// next calls will use new pools. It's safe to call it multiple times.
func (o *Orchestrator) TearDown() {
	for kind, p := range o.cfg.Providers {
		p.TearDown()
		o.cfg.Logger.Debugf("%s pools torn down", kind)
	}
	o.tasks.Purge()
}

// Call executes the operation.
//
// In sync mode it waits the execution up to the time limit and returns the
// operation result. In async mode it returns (nil, nil) once the execution has
// been handed to the async pool, the rejections and failures of async executions
// are only visible through the diagnostics, logs and metrics.
func (o *Orchestrator) Call(ctx context.Context, c Call) (interface{}, error) {
	reg, err := o.operation(c.Operation)
	if err != nil {
		return nil, err
	}

	mode := reg.mode
	if c.Mode != ModeDefault {
		mode = c.Mode
	}
	if mode == ModeAsync && !reg.op.Void {
		return nil, fmt.Errorf("%w: operation %q has a result, it can't be async", errors.ErrInvalidConfig, c.Operation)
	}

	// Resolve the configuration of this call.
	layers := make([]config.Orchestration, 0, len(reg.layers)+2)
	if c.Override != nil {
		layers = append(layers, *c.Override)
	}
	layers = append(layers, reg.layers...)
	layers = append(layers, o.cfg.Defaults)
	cfg, err := config.Resolve(layers...)
	if err != nil {
		return nil, fmt.Errorf("operation %q: %w", c.Operation, err)
	}

	kind := cfg.Executor.Kind
	if mode == ModeAsync {
		kind = config.KindAsync
	}
	provider, ok := o.cfg.Providers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown executor kind %q", errors.ErrInvalidConfig, kind)
	}

	ex := &exec{
		o:        o,
		info:     execution.Open(c.Operation, cfg),
		start:    time.Now(),
		rec:      o.cfg.MetricsRecorder.WithID(c.Operation),
		provider: provider,
	}
	ex.logger = o.cfg.Logger.WithValues(log.Kv{"operation": c.Operation, "id": ex.info.ID})

	t := o.wrap(reg, c)
	if mode == ModeAsync {
		ex.async(ctx, t)
		return nil, nil
	}

	return ex.sync(ctx, t)
}

func (o *Orchestrator) wrap(reg *registered, c Call) *task.Task {
	inv := task.Invocation{
		Operation: c.Operation,
		Target:    c.Target,
		Method:    reg.op.Method,
		Args:      c.Args,
	}

	if reg.op.CacheTasks {
		return o.tasks.Get(inv)
	}
	return task.Wrap(inv)
}

// report sends the event to the reporter using the system pool, if the system pool
// can't take it, it's reported on the caller.
func (o *Orchestrator) report(ev diagnostics.Event) {
	job := func() {
		if err := o.cfg.Reporter.Report(context.Background(), ev); err != nil {
			o.cfg.Logger.Warningf("could not report execution %s: %s", ev.Info.ID, err)
		}
	}

	p, err := o.cfg.Providers[config.KindSystem].Pool(pool.SystemExecutor)
	if err == nil {
		err = p.Submit(job)
	}
	if err != nil {
		job()
	}
}

// exec is a single execution of an operation.
type exec struct {
	o        *Orchestrator
	info     execution.Info
	start    time.Time
	rec      metrics.Recorder
	logger   log.Logger
	provider pool.Provider
}

// admit acquires the concurrency permit and gets the pool. On success the returned
// release func must be called once the execution reaches a terminal state.
func (e *exec) admit() (p pool.Pool, release func(), err error) {
	key := concurrencylimit.Key{Operation: e.info.Name, Limits: e.info.Limits}
	permit, err := e.o.cfg.Limiter.Acquire(key, e.info.Limits.ConcurrentLimit)
	if err != nil {
		e.rec.IncRejection(metrics.RejectionConcurrentOverflow)
		return nil, nil, e.fail(execution.StateRejected, err)
	}

	release = func() {
		permit.Release()
		e.rec.SetInFlight(e.o.cfg.Limiter.OperationInFlight(e.info.Name))
	}
	e.rec.SetInFlight(e.o.cfg.Limiter.OperationInFlight(e.info.Name))
	e.logger.Debugf("execution admitted")

	p, err = e.provider.Pool(e.info.Executor, e.info.Name)
	if err != nil {
		release()
		return nil, nil, e.fail(execution.StateFailed, err)
	}

	return p, release, nil
}

// submit sends the job to the pool, on failure the release is called.
func (e *exec) submit(p pool.Pool, job func(), release func()) error {
	err := p.Submit(job)
	if err == nil {
		return nil
	}

	release()
	if goerrors.Is(err, errors.ErrExecutorOverflow) {
		e.rec.IncRejection(metrics.RejectionExecutorOverflow)
		return e.fail(execution.StateRejected, err)
	}
	return e.fail(execution.StateFailed, err)
}

func (e *exec) sync(ctx context.Context, t *task.Task) (interface{}, error) {
	p, release, err := e.admit()
	if err != nil {
		return nil, err
	}

	runCtx, cancel := timeout.WithLimit(ctx, e.info.Limits.TimeLimit)
	done := make(chan struct{})
	var res task.Result
	job := func() {
		defer close(done)
		defer cancel()
		res = t.Run(runCtx)
	}

	if err := e.submit(p, job, release); err != nil {
		cancel()
		return nil, err
	}

	err = timeout.Await(ctx, e.info.Limits.TimeLimit, done)
	release()

	switch {
	case err == nil:
		e.rec.ObserveExecution(e.start, string(execution.StateCompleted))
		return res.Value, res.Err
	case goerrors.Is(err, errors.ErrExecutionTimeout):
		e.rec.IncTimeout()
		return nil, e.fail(execution.StateTimedOut, err)
	default:
		return nil, e.fail(execution.StateFailed, err)
	}
}

func (e *exec) async(ctx context.Context, t *task.Task) {
	p, release, err := e.admit()
	if err != nil {
		e.rec.IncAsyncFailure()
		e.logger.Warningf("async execution not started: %s", err)
		return
	}

	// The async execution doesn't depend on the caller lifecycle.
	runCtx, cancel := timeout.WithLimit(context.WithoutCancel(ctx), e.info.Limits.TimeLimit)
	job := func() {
		defer cancel()
		defer release()

		res := t.Run(runCtx)
		if res.Err != nil {
			e.rec.IncAsyncFailure()
			err := e.fail(execution.StateFailed, res.Err)
			e.logger.Errorf("async execution failed: %s", err)
			return
		}
		e.rec.ObserveExecution(e.start, string(execution.StateCompleted))
	}

	if err := e.submit(p, job, release); err != nil {
		cancel()
		e.rec.IncAsyncFailure()
		e.logger.Warningf("async execution not started: %s", err)
	}
}

// fail ends the execution on a failed terminal state, it measures, reports and
// returns the error for the caller.
func (e *exec) fail(state execution.State, reason error) error {
	e.rec.ObserveExecution(e.start, string(state))

	err := &execution.Error{Info: e.info, State: state, Reason: reason}
	e.o.report(diagnostics.Event{
		Info:  e.info,
		State: state,
		Err:   err,
		At:    time.Now(),
	})

	return err
}

// CallAs calls the operation and returns the result as T.
func CallAs[T any](ctx context.Context, o *Orchestrator, c Call) (T, error) {
	var zero T

	v, err := o.Call(ctx, c)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	res, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("operation %q returned %T instead of %T", c.Operation, v, zero)
	}
	return res, nil
}
