package diagnostics

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slok/gorchestrator/execution"
	"github.com/slok/gorchestrator/log"
)

// LogConfig is the configuration of the log reporter.
type LogConfig struct {
	// Logger is the logger used to write the reports.
	Logger log.Logger
	// Every is the min interval between reports of the same operation once the
	// burst has been used.
	Every time.Duration
	// Burst is the number of reports of an operation that can be written at once.
	Burst int
}

func (c *LogConfig) defaults() {
	if c.Logger == nil {
		c.Logger = log.Dummy
	}

	if c.Every <= 0 {
		c.Every = time.Second
	}

	if c.Burst <= 0 {
		c.Burst = 10
	}
}

type logReporter struct {
	cfg LogConfig

	mu         sync.Mutex
	limiters   map[string]*rate.Limiter
	suppressed map[string]int
}

// NewLogReporter returns a reporter that writes the events on the logger. The reports
// are throttled per operation so a saturated operation doesn't flood the logs, the
// number of dropped reports is written with the next report of the operation.
func NewLogReporter(cfg LogConfig) Reporter {
	cfg.defaults()
	return &logReporter{
		cfg:        cfg,
		limiters:   map[string]*rate.Limiter{},
		suppressed: map[string]int{},
	}
}

func (l *logReporter) Report(_ context.Context, ev Event) error {
	allowed, suppressed := l.allow(ev.Info.Name)
	if !allowed {
		return nil
	}

	logger := l.cfg.Logger.WithValues(log.Kv{
		"operation": ev.Info.Name,
		"id":        ev.Info.ID,
		"state":     string(ev.State),
	})
	if suppressed > 0 {
		logger = logger.WithValues(log.Kv{"suppressed": suppressed})
	}

	switch ev.State {
	case execution.StateFailed:
		logger.Errorf("%s", ev)
	default:
		logger.Warningf("%s", ev)
	}

	return nil
}

// allow returns if the operation can report and the reports suppressed since the last one.
func (l *logReporter) allow(operation string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[operation]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.cfg.Every), l.cfg.Burst)
		l.limiters[operation] = lim
	}

	if !lim.Allow() {
		l.suppressed[operation]++
		return false, 0
	}

	suppressed := l.suppressed[operation]
	delete(l.suppressed, operation)
	return true, suppressed
}
