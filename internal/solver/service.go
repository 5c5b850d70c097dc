package solver

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/logging"
)

// gRPC surface of the solver process. Requests and responses use protobuf
// well-known types so no generated code is needed:
//
//	Solve:       StringValue(problem text) -> Struct{status, code, objective, values}
//	SolveLegacy: StringValue(problem text) -> StringValue(legacy frame)
const (
	ServiceName       = "hetnet.solver.v1.Solver"
	SolveMethod       = "/" + ServiceName + "/Solve"
	SolveLegacyMethod = "/" + ServiceName + "/SolveLegacy"
)

// SolverServer is the server API for the solver service.
type SolverServer interface {
	Solve(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SolveLegacy(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// RegisterSolverServer attaches srv to a gRPC server.
func RegisterSolverServer(s grpc.ServiceRegistrar, srv SolverServer) {
	s.RegisterService(&solverServiceDesc, srv)
}

var solverServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Solve", Handler: solveHandler},
		{MethodName: "SolveLegacy", Handler: solveLegacyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hetnet/solver/v1/solver.proto",
}

func solveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).Solve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SolveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SolverServer).Solve(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func solveLegacyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SolverServer).SolveLegacy(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SolveLegacyMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SolverServer).SolveLegacy(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// StatusRecorder counts solve outcomes by status name.
type StatusRecorder interface {
	ObserveSolve(status string, d time.Duration)
}

// Service exposes a Solver backend over gRPC.
type Service struct {
	backend Solver
	log     logging.Logger
	metrics StatusRecorder
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithStatusRecorder attaches a recorder for solve outcomes.
func WithStatusRecorder(r StatusRecorder) ServiceOption {
	return func(s *Service) {
		s.metrics = r
	}
}

// NewService wraps backend. A nil backend gets the in-process simplex.
func NewService(backend Solver, log logging.Logger, opts ...ServiceOption) *Service {
	if backend == nil {
		backend = NewSimplex()
	}
	if log == nil {
		log = logging.Noop()
	}
	s := &Service{backend: backend, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve answers with a structured result. Non-solved outcomes are reported
// in the body; only bad input and internal failures become gRPC errors.
func (s *Service) Solve(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	sol, err := s.solve(ctx, req.GetValue())
	if err != nil {
		return nil, ToStatusError(err)
	}
	out, err := solutionToStruct(sol)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// SolveLegacy answers in the legacy text frame. Non-solved outcomes become
// FailedPrecondition errors whose message is the status name.
func (s *Service) SolveLegacy(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	sol, err := s.solve(ctx, req.GetValue())
	if err != nil {
		return nil, ToStatusError(err)
	}
	if sol.Status != StatusSolved {
		return nil, status.Error(codes.FailedPrecondition, sol.Status.String())
	}
	return wrapperspb.String(lp.FormatLegacyResponse(sol.Values)), nil
}

func (s *Service) solve(ctx context.Context, problem string) (*Solution, error) {
	log := s.log
	if l := logging.LoggerFromContext(ctx); l != nil {
		log = l
	}

	start := time.Now()
	sol, err := s.backend.Solve(ctx, problem)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn(ctx, "solve failed",
			logging.Int("problem_bytes", len(problem)),
			logging.Err(err),
		)
		if s.metrics != nil {
			s.metrics.ObserveSolve("error", elapsed)
		}
		return nil, err
	}

	log.Debug(ctx, "solve finished",
		logging.String("status", sol.Status.String()),
		logging.Int("variables", len(sol.Values)),
		logging.Float("objective", sol.Objective),
		logging.Any("elapsed", elapsed),
	)
	if s.metrics != nil {
		s.metrics.ObserveSolve(sol.Status.String(), elapsed)
	}
	return sol, nil
}

func solutionToStruct(sol *Solution) (*structpb.Struct, error) {
	values := make([]any, len(sol.Values))
	for i, v := range sol.Values {
		values[i] = v
	}
	return structpb.NewStruct(map[string]any{
		"status":    sol.Status.String(),
		"code":      float64(sol.Status),
		"objective": sol.Objective,
		"values":    values,
	})
}

func solutionFromStruct(st *structpb.Struct) (*Solution, error) {
	fields := st.GetFields()
	code, ok := fields["code"]
	if !ok {
		return nil, status.Error(codes.Internal, "solver response missing status code")
	}
	sol := &Solution{
		Status:    Status(int(code.GetNumberValue())),
		Objective: fields["objective"].GetNumberValue(),
	}
	if list := fields["values"].GetListValue(); list != nil {
		sol.Values = make([]float64, len(list.GetValues()))
		for i, v := range list.GetValues() {
			sol.Values[i] = v.GetNumberValue()
		}
	}
	return sol, nil
}
