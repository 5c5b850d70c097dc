// Package observability holds the Prometheus collectors and OpenTelemetry
// setup shared by the solver server and the optimizer CLI.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// SolverCollector bundles the solver server's metrics and provides helpers to
// wire them into gRPC servers and HTTP handlers.
type SolverCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests   *prometheus.CounterVec
	RPCDurations  *prometheus.HistogramVec
	SolveOutcomes *prometheus.CounterVec
	SolveDuration prometheus.Histogram
}

// NewSolverCollector registers solver metrics against reg, defaulting to the
// global registry when nil.
func NewSolverCollector(reg prometheus.Registerer) (*SolverCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_requests_total",
		Help: "Total number of handled solver RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "solver_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "solver_request_duration_seconds",
		Help:    "Solver RPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"service", "method"}), "solver_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "solver_solves_total",
		Help: "Solves performed by the backend, labeled by solver status.",
	}, []string{"status"}), "solver_solves_total")
	if err != nil {
		return nil, err
	}

	solveDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "solver_solve_duration_seconds",
		Help:    "Time spent inside the simplex backend.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "solver_solve_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SolverCollector{
		gatherer:      gatherer,
		RPCRequests:   requests,
		RPCDurations:  durations,
		SolveOutcomes: outcomes,
		SolveDuration: solveDuration,
	}, nil
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *SolverCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
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

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}
		return resp, err
	}
}

// ObserveSolve satisfies solver.StatusRecorder.
func (c *SolverCollector) ObserveSolve(status string, d time.Duration) {
	if c == nil {
		return
	}
	if c.SolveOutcomes != nil {
		c.SolveOutcomes.WithLabelValues(status).Inc()
	}
	if c.SolveDuration != nil {
		c.SolveDuration.Observe(d.Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SolverCollector) Handler() http.Handler {
	return handlerFor(c.gatherer)
}

func handlerFor(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and
// method components, returning "unknown"/"unknown" when parsing fails.
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

// register tolerates a collector that is already registered under the same
// name, returning the existing one so collectors can be built more than once
// against the default registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		var zero T
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return zero, err
	}
	return c, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	return register(reg, vec, name)
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	return register(reg, vec, name)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	return register(reg, hist, name)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	return register(reg, gauge, name)
}
