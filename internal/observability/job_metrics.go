package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobCollector exposes Prometheus metrics for scheduled background jobs.
type JobCollector struct {
	gatherer prometheus.Gatherer

	Runs        *prometheus.CounterVec
	Duration    prometheus.Histogram
	LastSuccess prometheus.Gauge
	Skipped     prometheus.Counter
}

// NewJobCollector registers job metrics against the provided registerer.
func NewJobCollector(reg prometheus.Registerer) (*JobCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_job_runs_total",
		Help: "Scheduled job executions, labeled by job and result.",
	}, []string{"job", "result"}), "demo_job_runs_total")
	if err != nil {
		return nil, err
	}

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "demo_job_duration_seconds",
		Help:    "Duration of scheduled job executions.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
	duration, err = registerHistogram(reg, duration, "demo_job_duration_seconds")
	if err != nil {
		return nil, err
	}

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_job_last_success_timestamp_seconds",
		Help: "Unix time of the last successful scheduled job run.",
	})
	lastSuccess, err = registerGauge(reg, lastSuccess, "demo_job_last_success_timestamp_seconds")
	if err != nil {
		return nil, err
	}

	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "demo_job_skipped_total",
		Help: "Scheduled runs skipped because the previous run was still in progress.",
	})
	skipped, err = registerCounter(reg, skipped, "demo_job_skipped_total")
	if err != nil {
		return nil, err
	}

	return &JobCollector{
		gatherer:    gatherer,
		Runs:        runs,
		Duration:    duration,
		LastSuccess: lastSuccess,
		Skipped:     skipped,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *JobCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveRun records one job execution that finished at end.
func (c *JobCollector) ObserveRun(job string, d time.Duration, end time.Time, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.Runs.WithLabelValues(job, result).Inc()
	c.Duration.Observe(d.Seconds())
	if err == nil {
		c.LastSuccess.Set(float64(end.Unix()))
	}
}

// IncSkipped increments the skipped-run counter.
func (c *JobCollector) IncSkipped() {
	if c == nil {
		return
	}
	c.Skipped.Inc()
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
