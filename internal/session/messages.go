package session

import (
	"context"
	"errors"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
	"github.com/signalsfoundry/hetnet-optimizer/internal/solver"
)

// UserMessage renders err as the single line shown to the person driving the
// optimizer. It returns "" for nil.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "An optimization is already running. Wait for it to finish and try again."
	case errors.Is(err, lp.ErrEmptyModel):
		return "Add at least one device and one network before optimizing."
	case errors.Is(err, lp.ErrInvalidWeights):
		return "The fairness weight must be between 0 and 1."
	case errors.Is(err, core.ErrInvalidParameter):
		return "That value is not valid: " + err.Error()
	case errors.Is(err, core.ErrNotFound):
		return "That device or network no longer exists."
	case errors.Is(err, solver.ErrSolverTimeout):
		return "The solver did not answer in time. Try optimizing again."
	case errors.Is(err, solver.ErrSolverUnavailable):
		return "The solver could not be reached. Try optimizing again."
	case errors.Is(err, lp.ErrMalformedSolution):
		return "The solver's answer did not match the current layout. Try optimizing again."
	case errors.Is(err, solver.ErrInfeasible):
		return "No allocation satisfies every network's capacity."
	case errors.Is(err, solver.ErrUnbounded):
		return "The allocation problem is unbounded; check the network rates."
	case errors.Is(err, solver.ErrIterationLimit):
		return "The solver gave up before finding an optimal allocation."
	case errors.Is(err, ErrSolverFailed):
		return "The solver could not find an optimal allocation."
	case errors.Is(err, context.Canceled):
		return "Optimization was cancelled."
	default:
		return "Optimization failed: " + err.Error()
	}
}

// Retryable reports whether re-issuing the same pass might succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, solver.ErrSolverTimeout) ||
		errors.Is(err, solver.ErrSolverUnavailable) ||
		errors.Is(err, lp.ErrMalformedSolution)
}
