// Package solver talks to the LP solver that sits behind the problem-text
// wire contract.
//
// Two families of implementations satisfy Solver:
//
//   - Simplex solves in-process with gonum's simplex method.
//   - Client and LegacyClient call a remote solver process over gRPC
//     (see Service for the server side).
//
// All of them consume the text produced by lp.Problem.Text and return the
// optimal values in variable order. Every variable is non-negative and the
// objective is maximised.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSolverUnavailable indicates the solver process could not be reached.
	ErrSolverUnavailable = errors.New("solver unavailable")
	// ErrSolverTimeout indicates the solver did not answer in time.
	ErrSolverTimeout = errors.New("solver timed out")
	// ErrInfeasible indicates the LP has no feasible point.
	ErrInfeasible = errors.New("problem is infeasible")
	// ErrUnbounded indicates the objective can grow without limit.
	ErrUnbounded = errors.New("problem is unbounded")
	// ErrIterationLimit indicates the simplex cycled or ran out of iterations.
	ErrIterationLimit = errors.New("solver exceeded its iteration limit")
	// ErrNumerical indicates the solver hit a singular or ill-posed system.
	ErrNumerical = errors.New("solver numerical failure")
	// ErrNoResult indicates the solver returned without deciding anything.
	ErrNoResult = errors.New("solver returned no result")
)

// Solver solves problem text and returns the optimal variable vector.
type Solver interface {
	Solve(ctx context.Context, problem string) (*Solution, error)
}

// Status is the outcome code reported with every solution. The numeric
// values are part of the solver's public contract.
type Status int

const (
	StatusSolved                Status = 0
	StatusDefault               Status = 100
	StatusUnbounded             Status = 200
	StatusExceededMaxIterations Status = 300
	StatusInfeasible            Status = 400
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusDefault:
		return "default"
	case StatusUnbounded:
		return "unbounded"
	case StatusExceededMaxIterations:
		return "exceeded_max_iterations"
	case StatusInfeasible:
		return "infeasible"
	default:
		return fmt.Sprintf("status_%d", int(s))
	}
}

// ParseStatus maps a status name back onto a Status.
func ParseStatus(name string) (Status, error) {
	for _, s := range []Status{StatusSolved, StatusDefault, StatusUnbounded, StatusExceededMaxIterations, StatusInfeasible} {
		if strings.EqualFold(strings.TrimSpace(name), s.String()) {
			return s, nil
		}
	}
	return StatusDefault, fmt.Errorf("unknown solver status %q", name)
}

// Err converts a non-solved status into its sentinel error.
func (s Status) Err() error {
	switch s {
	case StatusSolved:
		return nil
	case StatusUnbounded:
		return ErrUnbounded
	case StatusExceededMaxIterations:
		return ErrIterationLimit
	case StatusInfeasible:
		return ErrInfeasible
	default:
		return ErrNoResult
	}
}

// Solution is a solver answer. Values is only populated when Status is
// StatusSolved.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}
