package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OptimizerCollector exposes metrics for optimization passes and the
// coverage model they read from.
type OptimizerCollector struct {
	gatherer prometheus.Gatherer

	Passes           *prometheus.CounterVec
	PassDuration     prometheus.Histogram
	SolverRoundTrip  prometheus.Histogram
	CoverageDevices  prometheus.Gauge
	CoverageNetworks prometheus.Gauge
}

// NewOptimizerCollector registers optimizer metrics against reg.
func NewOptimizerCollector(reg prometheus.Registerer) (*OptimizerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	passes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_passes_total",
		Help: "Optimization passes, labeled by outcome.",
	}, []string{"outcome"}), "optimizer_passes_total")
	if err != nil {
		return nil, err
	}

	passDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_pass_duration_seconds",
		Help:    "Wall time of a full gather, formulate, solve and decode pass.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}), "optimizer_pass_duration_seconds")
	if err != nil {
		return nil, err
	}

	roundTrip, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_solver_round_trip_seconds",
		Help:    "Time between sending problem text to the solver and receiving its answer.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}), "optimizer_solver_round_trip_seconds")
	if err != nil {
		return nil, err
	}

	devices, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_devices",
		Help: "Current number of devices in the coverage model.",
	}), "coverage_devices")
	if err != nil {
		return nil, err
	}
	networks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coverage_networks",
		Help: "Current number of networks in the coverage model.",
	}), "coverage_networks")
	if err != nil {
		return nil, err
	}

	return &OptimizerCollector{
		gatherer:         gatherer,
		Passes:           passes,
		PassDuration:     passDuration,
		SolverRoundTrip:  roundTrip,
		CoverageDevices:  devices,
		CoverageNetworks: networks,
	}, nil
}

// Gatherer returns the gatherer the collector registered with.
func (c *OptimizerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a /metrics handler.
func (c *OptimizerCollector) Handler() http.Handler {
	return handlerFor(c.Gatherer())
}

// ObservePass records one finished pass.
func (c *OptimizerCollector) ObservePass(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.Passes != nil {
		c.Passes.WithLabelValues(outcome).Inc()
	}
	if c.PassDuration != nil {
		c.PassDuration.Observe(d.Seconds())
	}
}

// ObserveSolverRoundTrip records one solver call.
func (c *OptimizerCollector) ObserveSolverRoundTrip(d time.Duration) {
	if c == nil || c.SolverRoundTrip == nil {
		return
	}
	c.SolverRoundTrip.Observe(d.Seconds())
}

// SetCoverageCounts satisfies core.MetricsRecorder so the coverage model can
// drive the gauges from its mutators.
func (c *OptimizerCollector) SetCoverageCounts(devices, networks int) {
	if c == nil {
		return
	}
	if c.CoverageDevices != nil {
		c.CoverageDevices.Set(float64(devices))
	}
	if c.CoverageNetworks != nil {
		c.CoverageNetworks.Set(float64(networks))
	}
}
