package solver

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
)

// Dial opens a client connection to a solver server. The connection is
// instrumented with OpenTelemetry and forwards pass ids as x-request-id.
// Extra options are appended after the defaults.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(requestIDUnaryClientInterceptor()),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	return conn, nil
}

// Client calls the structured Solve RPC.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Solve sends problem text and returns the solver's answer. Non-solved
// statuses come back as a Solution, not an error.
func (c *Client) Solve(ctx context.Context, problem string) (*Solution, error) {
	ctx, span := startSpan(ctx, "solver.Client.Solve", attribute.Int("problem_bytes", len(problem)))
	defer span.End()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, SolveMethod, wrapperspb.String(problem), out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fromStatusError(err)
	}
	sol, err := solutionFromStruct(out)
	if err != nil {
		return nil, fromStatusError(err)
	}
	span.SetAttributes(attribute.String("solver.status", sol.Status.String()))
	return sol, nil
}

// LegacyClient calls SolveLegacy and parses the legacy text frame. The frame
// carries no objective, so it is recomputed from the problem's weights.
type LegacyClient struct {
	conn grpc.ClientConnInterface
}

// NewLegacyClient wraps an existing connection.
func NewLegacyClient(conn grpc.ClientConnInterface) *LegacyClient {
	return &LegacyClient{conn: conn}
}

func (c *LegacyClient) Solve(ctx context.Context, problem string) (*Solution, error) {
	ctx, span := startSpan(ctx, "solver.LegacyClient.Solve", attribute.Int("problem_bytes", len(problem)))
	defer span.End()

	out := new(wrapperspb.StringValue)
	if err := c.conn.Invoke(ctx, SolveLegacyMethod, wrapperspb.String(problem), out); err != nil {
		span.RecordError(err)
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.FailedPrecondition {
			if s, perr := ParseStatus(st.Message()); perr == nil {
				return &Solution{Status: s}, nil
			}
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fromStatusError(err)
	}

	values, err := lp.ParseLegacyResponse(out.GetValue())
	if err != nil {
		return nil, err
	}
	sol := &Solution{Status: StatusSolved, Values: values}
	if p, perr := lp.ParseProblem(problem); perr == nil {
		sol.Objective = dot(p.Objective, values)
	} else if !errors.Is(perr, lp.ErrMalformedProblem) {
		return nil, perr
	}
	return sol, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}
