// Package session runs optimization passes: it freezes the coverage model,
// formulates the allocation LP, sends it to a solver and decodes the answer
// against the frozen snapshot.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
	"github.com/signalsfoundry/hetnet-optimizer/model"
)

const tracerName = "github.com/signalsfoundry/hetnet-optimizer/internal/session"

// DefaultSolverTimeout bounds one solver round trip.
const DefaultSolverTimeout = 10 * time.Second

var (
	// ErrBusy is returned when a pass is requested while another is in flight.
	ErrBusy = errors.New("optimization already in progress")
	// ErrSolverFailed wraps any solver answer other than an optimal solution.
	ErrSolverFailed = errors.New("solver failed")
)

// State is the session's position in a pass.
type State int

const (
	StateIdle State = iota
	StateGathering
	StateFormulated
	StateSolving
	StateDecoded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGathering:
		return "gathering"
	case StateFormulated:
		return "formulated"
	case StateSolving:
		return "solving"
	case StateDecoded:
		return "decoded"
	default:
		return fmt.Sprintf("state_%d", int(s))
	}
}

// Config tunes a Session.
type Config struct {
	// SolverTimeout bounds the solver round trip. Zero means DefaultSolverTimeout.
	SolverTimeout time.Duration
	// Categories, when set, restricts the pass to networks of these colors.
	Categories []model.Category
}

// MetricsRecorder receives pass-level measurements.
type MetricsRecorder interface {
	ObservePass(outcome string, d time.Duration)
	ObserveSolverRoundTrip(d time.Duration)
}

// Result is one completed pass.
type Result struct {
	PassID   string
	Weights  lp.Weights
	Snapshot *core.Snapshot
	Problem  *lp.Problem
	Solution *solver.Solution
	Decoded  *lp.Decoded
	// EditsDuringSolve counts coverage edits that landed while the solver
	// was working. They are not reflected in this result.
	EditsDuringSolve int
	Elapsed          time.Duration
}

// Assignment is shorthand for Decoded.Assignment.
func (r *Result) Assignment() lp.Assignment {
	if r == nil || r.Decoded == nil {
		return nil
	}
	return r.Decoded.Assignment
}

// Session serialises optimization passes over one coverage model.
type Session struct {
	model   *core.CoverageModel
	solver  solver.Solver
	cfg     Config
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer

	mu       sync.Mutex
	state    State
	inFlight bool
	edits    int
	last     *Result
}

// Option customises a Session.
type Option func(*Session)

// WithConfig replaces the session configuration.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithLogger sets the base logger. Each pass derives a pass_id logger from it.
func WithLogger(log logging.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches a pass recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Session) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New builds a session over cm that sends problems to slv.
func New(cm *core.CoverageModel, slv solver.Solver, opts ...Option) *Session {
	s := &Session{
		model:  cm,
		solver: slv,
		log:    logging.Noop(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.SolverTimeout <= 0 {
		s.cfg.SolverTimeout = DefaultSolverTimeout
	}
	cm.Subscribe(s.onCoverageEvent)
	return s
}

// State reports where the session currently is.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResult returns the most recent successful pass, or nil.
func (s *Session) LastResult() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Optimize runs one pass synchronously.
func (s *Session) Optimize(ctx context.Context, beta float64) (*Result, error) {
	if !s.begin() {
		return nil, ErrBusy
	}
	defer s.finish()
	return s.run(ctx, beta)
}

// OptimizeAsync starts a pass and returns immediately. done is called exactly
// once from the pass goroutine, after the session is idle again, so it may
// start another pass.
func (s *Session) OptimizeAsync(ctx context.Context, beta float64, done func(*Result, error)) error {
	if !s.begin() {
		return ErrBusy
	}
	go func() {
		res, err := s.run(ctx, beta)
		s.finish()
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return false
	}
	s.inFlight = true
	s.edits = 0
	return true
}

func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.state = StateIdle
}

func (s *Session) run(ctx context.Context, beta float64) (res *Result, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, log := logging.WithPassLogger(ctx, s.log)
	passID := logging.PassIDFromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "session.Optimize", trace.WithAttributes(
		attribute.String("pass_id", passID),
		attribute.Float64("beta", beta),
	))
	defer func() {
		elapsed := time.Since(start)
		outcome := outcomeOf(err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn(ctx, "optimization pass failed",
				logging.String("outcome", outcome),
				logging.Err(err),
				logging.Duration("elapsed", elapsed),
			)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObservePass(outcome, elapsed)
		}
	}()

	w, err := lp.WeightsFromBeta(beta)
	if err != nil {
		return nil, err
	}

	s.setState(ctx, log, StateGathering)
	snap := s.model.SnapshotWith(core.SnapshotOptions{Categories: s.cfg.Categories})
	span.SetAttributes(
		attribute.Int("devices", len(snap.DeviceIDs)),
		attribute.Int("networks", len(snap.NetworkIDs)),
	)

	problem, err := lp.Formulate(snap, w)
	if err != nil {
		return nil, err
	}
	s.setState(ctx, log, StateFormulated)

	text := problem.Text()
	s.setState(ctx, log, StateSolving)
	sol, err := s.solve(ctx, text)
	if err != nil {
		return nil, err
	}
	if sol.Status != solver.StatusSolved {
		return nil, fmt.Errorf("%w: %w", ErrSolverFailed, sol.Status.Err())
	}

	decoded, err := lp.Decode(sol.Values, snap)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	res = &Result{
		PassID:           passID,
		Weights:          w,
		Snapshot:         snap,
		Problem:          problem,
		Solution:         sol,
		Decoded:          decoded,
		EditsDuringSolve: s.edits,
		Elapsed:          time.Since(start),
	}
	s.last = res
	s.mu.Unlock()
	s.setState(ctx, log, StateDecoded)

	log.Info(ctx, "optimization pass finished",
		logging.Int("devices", len(snap.DeviceIDs)),
		logging.Int("networks", len(snap.NetworkIDs)),
		logging.Float("objective", sol.Objective),
		logging.Float("throughput", decoded.Throughput),
		logging.Float("fairness", decoded.Fairness),
		logging.Int("edits_during_solve", res.EditsDuringSolve),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

type solveAnswer struct {
	sol *solver.Solution
	err error
}

// solve runs the solver on its own goroutine so a backend that ignores its
// context still cannot hold the pass past the timeout.
func (s *Session) solve(ctx context.Context, text string) (*solver.Solution, error) {
	ctx, span := s.tracer.Start(ctx, "session.Solve", trace.WithAttributes(
		attribute.Int("problem_bytes", len(text)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SolverTimeout)
	defer cancel()

	start := time.Now()
	answers := make(chan solveAnswer, 1)
	go func() {
		sol, err := s.solver.Solve(ctx, text)
		answers <- solveAnswer{sol: sol, err: err}
	}()

	var ans solveAnswer
	select {
	case ans = <-answers:
	case <-ctx.Done():
		ans.err = ctx.Err()
	}
	if s.metrics != nil {
		s.metrics.ObserveSolverRoundTrip(time.Since(start))
	}

	switch {
	case ans.err == nil && ans.sol == nil:
		return nil, fmt.Errorf("%w: %w", ErrSolverFailed, solver.ErrNoResult)
	case ans.err == nil:
		span.SetAttributes(attribute.String("solver.status", ans.sol.Status.String()))
		return ans.sol, nil
	case errors.Is(ans.err, solver.ErrSolverTimeout), errors.Is(ans.err, solver.ErrSolverUnavailable):
		return nil, ans.err
	case errors.Is(ans.err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w after %s", solver.ErrSolverTimeout, s.cfg.SolverTimeout)
	case errors.Is(ans.err, context.Canceled):
		return nil, ans.err
	default:
		return nil, fmt.Errorf("%w: %w", ErrSolverFailed, ans.err)
	}
}

func (s *Session) setState(ctx context.Context, log logging.Logger, next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	trace.SpanFromContext(ctx).AddEvent("state", trace.WithAttributes(attribute.String("state", next.String())))
	log.Debug(ctx, "session state changed",
		logging.String("from", prev.String()),
		logging.String("to", next.String()),
	)
}

func (s *Session) onCoverageEvent(ev core.Event) {
	s.mu.Lock()
	solving := s.state == StateSolving
	if solving {
		s.edits++
	}
	s.mu.Unlock()
	if solving {
		s.log.Debug(context.Background(), "coverage edited during solve; the pass keeps its snapshot",
			logging.Int("event", int(ev.Type)),
			logging.Int("device_id", int(ev.DeviceID)),
			logging.Int("network_id", int(ev.NetworkID)),
		)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, lp.ErrEmptyModel):
		return "empty_model"
	case errors.Is(err, lp.ErrInvalidWeights):
		return "invalid_weights"
	case errors.Is(err, solver.ErrSolverTimeout):
		return "timeout"
	case errors.Is(err, solver.ErrSolverUnavailable):
		return "unavailable"
	case errors.Is(err, lp.ErrMalformedSolution):
		return "malformed_solution"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "solver_failed"
	}
}
