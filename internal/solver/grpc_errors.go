package solver

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
)

// ToStatusError maps solver errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, lp.ErrMalformedProblem):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrSolverTimeout):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, ErrInfeasible),
		errors.Is(err, ErrUnbounded),
		errors.Is(err, ErrIterationLimit):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrSolverUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatusError is the client-side inverse of ToStatusError.
func fromStatusError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", ErrSolverUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrSolverTimeout, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", lp.ErrMalformedProblem, st.Message())
	case codes.FailedPrecondition:
		if s, perr := ParseStatus(st.Message()); perr == nil {
			return fmt.Errorf("%w: %s", s.Err(), s)
		}
		return fmt.Errorf("%w: %s", ErrNoResult, st.Message())
	default:
		return fmt.Errorf("%w: %s", ErrNumerical, st.Message())
	}
}
