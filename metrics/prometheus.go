package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	promNamespace = "gorchestrator"

	promExecutionSubsystem = "execution"
	promPoolSubsystem      = "pool"
)

type prometheusRec struct {
	// Metrics.
	execDuration   *prometheus.HistogramVec
	execRejections *prometheus.CounterVec
	execTimeouts   *prometheus.CounterVec
	execAsyncFails *prometheus.CounterVec
	execInFlight   *prometheus.GaugeVec
	poolCreated    *prometheus.CounterVec
	poolWorkers    *prometheus.GaugeVec
	poolActive     *prometheus.GaugeVec
	poolQueued     *prometheus.GaugeVec

	id  string
	reg prometheus.Registerer
}

// NewPrometheusRecorder returns a new Recorder that knows how to measure
// using Prometheus kind metrics.
func NewPrometheusRecorder(reg prometheus.Registerer) Recorder {
	p := &prometheusRec{
		reg: reg,
	}

	p.registerMetrics()
	return p
}

func (p prometheusRec) WithID(id string) Recorder {
	p.id = id
	return &p
}

func (p *prometheusRec) registerMetrics() {
	p.execDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Subsystem: promExecutionSubsystem,
		Name:      "duration_seconds",
		Help:      "The duration of the operation executions in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"id", "state"})

	p.execRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promExecutionSubsystem,
		Name:      "rejections_total",
		Help:      "Total number of executions rejected before running.",
	}, []string{"id", "reason"})

	p.execTimeouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promExecutionSubsystem,
		Name:      "timeouts_total",
		Help:      "Total number of executions that reached the time limit.",
	}, []string{"id"})

	p.execAsyncFails = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promExecutionSubsystem,
		Name:      "async_failures_total",
		Help:      "Total number of failed fire and forget executions.",
	}, []string{"id"})

	p.execInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promExecutionSubsystem,
		Name:      "inflight",
		Help:      "The number of in-flight executions.",
	}, []string{"id"})

	p.poolCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Subsystem: promPoolSubsystem,
		Name:      "created_total",
		Help:      "Total number of created pools.",
	}, []string{"kind"})

	p.poolWorkers = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promPoolSubsystem,
		Name:      "workers",
		Help:      "The number of running workers of the pool.",
	}, []string{"pool"})

	p.poolActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promPoolSubsystem,
		Name:      "active_workers",
		Help:      "The number of workers of the pool executing a job.",
	}, []string{"pool"})

	p.poolQueued = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Subsystem: promPoolSubsystem,
		Name:      "queued_jobs",
		Help:      "The number of jobs waiting on the pool queue.",
	}, []string{"pool"})

	p.reg.MustRegister(
		p.execDuration,
		p.execRejections,
		p.execTimeouts,
		p.execAsyncFails,
		p.execInFlight,
		p.poolCreated,
		p.poolWorkers,
		p.poolActive,
		p.poolQueued,
	)
}

func (p prometheusRec) ObserveExecution(start time.Time, state string) {
	secs := time.Since(start).Seconds()
	p.execDuration.WithLabelValues(p.id, state).Observe(secs)
}

func (p prometheusRec) IncRejection(reason string) {
	p.execRejections.WithLabelValues(p.id, reason).Inc()
}

func (p prometheusRec) IncTimeout() {
	p.execTimeouts.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) IncAsyncFailure() {
	p.execAsyncFails.WithLabelValues(p.id).Inc()
}

func (p prometheusRec) SetInFlight(quantity int) {
	p.execInFlight.WithLabelValues(p.id).Set(float64(quantity))
}

func (p prometheusRec) IncPoolCreated(kind string) {
	p.poolCreated.WithLabelValues(kind).Inc()
}

func (p prometheusRec) SetPoolWorkers(pool string, workers, active, queued int) {
	p.poolWorkers.WithLabelValues(pool).Set(float64(workers))
	p.poolActive.WithLabelValues(pool).Set(float64(active))
	p.poolQueued.WithLabelValues(pool).Set(float64(queued))
}
