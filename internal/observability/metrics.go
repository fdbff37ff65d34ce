package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/incident-demo/model"
)

// DemoCollector bundles Prometheus metrics for the demo engine and the
// surfaces that expose it, and provides helpers to wire them into gRPC
// servers and HTTP handlers.
type DemoCollector struct {
	gatherer prometheus.Gatherer

	Ticks           *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	RejectedUpdates *prometheus.CounterVec
	ScenarioActive  prometheus.Gauge
	DemoEnabled     prometheus.Gauge
	ElapsedTicks    prometheus.Gauge
	PlaybackSpeed   prometheus.Gauge
	HTTPRequests    *prometheus.CounterVec
	HTTPDurations   *prometheus.HistogramVec
	RPCRequests     *prometheus.CounterVec
	RPCDurations    *prometheus.HistogramVec
}

// NewDemoCollector registers demo Prometheus metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewDemoCollector(reg prometheus.Registerer) (*DemoCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_ticks_total",
		Help: "Script ticks processed, labeled by scenario.",
	}, []string{"scenario"}), "demo_ticks_total")
	if err != nil {
		return nil, err
	}
	transitions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_status_transitions_total",
		Help: "Incident status changes, labeled by target status and actor.",
	}, []string{"status", "actor"}), "demo_status_transitions_total")
	if err != nil {
		return nil, err
	}
	rejected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "demo_rejected_updates_total",
		Help: "Refused incident status updates, labeled by reason.",
	}, []string{"reason"}), "demo_rejected_updates_total")
	if err != nil {
		return nil, err
	}

	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_scenario_active",
		Help: "1 while a scenario is loaded, 0 otherwise.",
	}), "demo_scenario_active")
	if err != nil {
		return nil, err
	}
	enabled, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_enabled",
		Help: "1 while demo mode is enabled, 0 otherwise.",
	}), "demo_enabled")
	if err != nil {
		return nil, err
	}
	elapsed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_elapsed_ticks",
		Help: "Ticks elapsed in the active scenario.",
	}), "demo_elapsed_ticks")
	if err != nil {
		return nil, err
	}
	speed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "demo_playback_speed",
		Help: "Current playback speed multiplier.",
	}), "demo_playback_speed")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of handled HTTP requests, labeled by method, route, and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	rpcRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grpc_requests_total",
		Help: "Total number of handled RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "grpc_requests_total")
	if err != nil {
		return nil, err
	}
	rpcDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grpc_request_duration_seconds",
		Help:    "RPC latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "grpc_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &DemoCollector{
		gatherer:        gatherer,
		Ticks:           ticks,
		Transitions:     transitions,
		RejectedUpdates: rejected,
		ScenarioActive:  active,
		DemoEnabled:     enabled,
		ElapsedTicks:    elapsed,
		PlaybackSpeed:   speed,
		HTTPRequests:    httpRequests,
		HTTPDurations:   httpDurations,
		RPCRequests:     rpcRequests,
		RPCDurations:    rpcDurations,
	}, nil
}

// ObserveTick satisfies demo.EngineMetricsRecorder.
func (c *DemoCollector) ObserveTick(scenario model.ScenarioType, elapsed int) {
	if c == nil {
		return
	}
	c.Ticks.WithLabelValues(string(scenario)).Inc()
	c.ElapsedTicks.Set(float64(elapsed))
}

// ObserveTransition satisfies demo.EngineMetricsRecorder.
func (c *DemoCollector) ObserveTransition(status model.AlertStatus, actor string) {
	if c == nil {
		return
	}
	c.Transitions.WithLabelValues(string(status), actor).Inc()
}

// ObserveRejectedUpdate satisfies demo.EngineMetricsRecorder.
func (c *DemoCollector) ObserveRejectedUpdate(reason string) {
	if c == nil {
		return
	}
	c.RejectedUpdates.WithLabelValues(reason).Inc()
}

// SetEngineState satisfies demo.EngineMetricsRecorder. The elapsed gauge is
// zeroed whenever no scenario is loaded.
func (c *DemoCollector) SetEngineState(enabled, scenarioActive bool, speed float64) {
	if c == nil {
		return
	}
	c.DemoEnabled.Set(boolGauge(enabled))
	c.ScenarioActive.Set(boolGauge(scenarioActive))
	c.PlaybackSpeed.Set(speed)
	if !scenarioActive {
		c.ElapsedTicks.Set(0)
	}
}

// ObserveHTTPRequest records one handled HTTP request. route is the
// matched route template, not the raw path.
func (c *DemoCollector) ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *DemoCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		return resp, err
	}
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *DemoCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *DemoCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

func boolGauge(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
