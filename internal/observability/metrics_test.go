package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSolverCollector(reg)
	if err != nil {
		t.Fatalf("NewSolverCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/hetnet.solver.v1.Solver/Solve"}

	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor handler returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Solver", "Solve", "OK")); got != 1 {
		t.Fatalf("solver_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "solver_request_duration_seconds", map[string]string{
		"service": "Solver",
		"method":  "Solve",
	}); count != 1 {
		t.Fatalf("solver_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSolverCollector(reg)
	if err != nil {
		t.Fatalf("NewSolverCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/hetnet.solver.v1.Solver/SolveLegacy"}
	_, _ = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad problem")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("Solver", "SolveLegacy", "InvalidArgument")); got != 1 {
		t.Fatalf("solver_requests_total error label = %v, want 1", got)
	}
}

func TestObserveSolveCountsByStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSolverCollector(reg)
	if err != nil {
		t.Fatalf("NewSolverCollector: %v", err)
	}
	collector.ObserveSolve("solved", time.Millisecond)
	collector.ObserveSolve("solved", time.Millisecond)
	collector.ObserveSolve("infeasible", time.Millisecond)

	if got := testutil.ToFloat64(collector.SolveOutcomes.WithLabelValues("solved")); got != 2 {
		t.Fatalf("solved = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.SolveOutcomes.WithLabelValues("infeasible")); got != 1 {
		t.Fatalf("infeasible = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "solver_solve_duration_seconds", nil); count != 3 {
		t.Fatalf("solve duration samples = %d, want 3", count)
	}

	var nilCollector *SolverCollector
	nilCollector.ObserveSolve("solved", time.Second)
}

func TestOptimizerCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewOptimizerCollector(reg)
	if err != nil {
		t.Fatalf("NewOptimizerCollector: %v", err)
	}
	collector.SetCoverageCounts(7, 3)
	collector.ObservePass("ok", 20*time.Millisecond)
	collector.ObservePass("empty_model", time.Millisecond)
	collector.ObserveSolverRoundTrip(5 * time.Millisecond)

	if got := testutil.ToFloat64(collector.CoverageDevices); got != 7 {
		t.Fatalf("coverage_devices = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.CoverageNetworks); got != 3 {
		t.Fatalf("coverage_networks = %v, want 3", got)
	}
	if got := testutil.ToFloat64(collector.Passes.WithLabelValues("empty_model")); got != 1 {
		t.Fatalf("empty_model passes = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "optimizer_pass_duration_seconds", nil); count != 2 {
		t.Fatalf("pass duration samples = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "optimizer_solver_round_trip_seconds", nil); count != 1 {
		t.Fatalf("round trip samples = %d, want 1", count)
	}
}

func TestCollectorsTolerateReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewOptimizerCollector(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewOptimizerCollector(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	second.SetCoverageCounts(2, 1)
	if got := testutil.ToFloat64(first.CoverageDevices); got != 2 {
		t.Fatalf("collectors should share the registered gauge, got %v", got)
	}
}

func TestMetricsHandlerExposesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	solverCollector, err := NewSolverCollector(reg)
	if err != nil {
		t.Fatalf("NewSolverCollector: %v", err)
	}
	optimizer, err := NewOptimizerCollector(reg)
	if err != nil {
		t.Fatalf("NewOptimizerCollector: %v", err)
	}
	optimizer.SetCoverageCounts(4, 2)
	solverCollector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()
	solverCollector.RPCDurations.WithLabelValues("svc", "method").Observe(0.01)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	solverCollector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"solver_requests_total",
		"solver_request_duration_seconds",
		"coverage_devices 4",
		"coverage_networks 2",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	tests := []struct {
		in              string
		service, method string
	}{
		{"/hetnet.solver.v1.Solver/Solve", "Solver", "Solve"},
		{"Solver/Solve", "Solver", "Solve"},
		{"", "unknown", "unknown"},
		{"/nomethod", "unknown", "unknown"},
	}
	for _, tt := range tests {
		s, m := SplitMethod(tt.in)
		if s != tt.service || m != tt.method {
			t.Fatalf("SplitMethod(%q) = %q, %q; want %q, %q", tt.in, s, m, tt.service, tt.method)
		}
	}
}

func TestInitTracingStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "optimize")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	if !strings.Contains(buf.String(), "optimize") {
		t.Fatalf("expected span name in exporter output, got %q", buf.String())
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	if err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("HETNET_TRACING_ENABLED", "TRUE")
	t.Setenv("HETNET_TRACING_EXPORTER", "OTLP")
	t.Setenv("HETNET_TRACING_SAMPLE_RATIO", "2")
	t.Setenv("HETNET_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv("hetnet-solver")
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.Endpoint != "collector:4317" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ServiceName != "hetnet-solver" {
		t.Fatalf("service name = %q", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("out-of-range ratio should fall back to 1, got %v", cfg.SampleRatio)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, pair := range got {
		if val, ok := want[pair.GetName()]; ok && val == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
