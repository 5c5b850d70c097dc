package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
)

const (
	// DefaultTolerance is handed to gonum's simplex for its reduced-cost tests.
	DefaultTolerance = 1e-10
	// DefaultZeroTolerance is the slack below zero a returned value may have
	// before it is reported as a numerical failure instead of snapped to 0.
	DefaultZeroTolerance = 1e-4
)

// Simplex solves problems in-process with gonum's simplex implementation.
type Simplex struct {
	tol     float64
	zeroTol float64
}

// SimplexOption customises a Simplex.
type SimplexOption func(*Simplex)

// WithTolerance overrides the simplex tolerance.
func WithTolerance(tol float64) SimplexOption {
	return func(s *Simplex) {
		if tol > 0 {
			s.tol = tol
		}
	}
}

// WithZeroTolerance overrides the clean-up tolerance for returned values.
func WithZeroTolerance(tol float64) SimplexOption {
	return func(s *Simplex) {
		if tol > 0 {
			s.zeroTol = tol
		}
	}
}

// NewSimplex returns an in-process solver.
func NewSimplex(opts ...SimplexOption) *Simplex {
	s := &Simplex{tol: DefaultTolerance, zeroTol: DefaultZeroTolerance}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve parses problem text and solves it.
func (s *Simplex) Solve(ctx context.Context, problem string) (*Solution, error) {
	p, err := lp.ParseProblem(problem)
	if err != nil {
		return nil, err
	}
	return s.SolveProblem(ctx, p)
}

// SolveProblem converts p to standard form and runs the simplex.
//
// The general form (maximise, <= and = rows, x >= 0) becomes
//
//	minimise -c·x  s.t.  [G I; E 0]·[x; s] = [h; b],  x, s >= 0
//
// with one slack per inequality. Variables that appear in no row and rows
// that mention no variable are settled before gonum sees the matrix, since
// it rejects both.
func (s *Simplex) SolveProblem(ctx context.Context, p *lp.Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := p.NumVariables()
	if n == 0 {
		return nil, fmt.Errorf("%w: no variables", lp.ErrMalformedProblem)
	}

	// Columns that no constraint mentions are either unbounded (positive
	// objective weight) or pinned at zero.
	var active []int
	for j := range n {
		if columnUsed(p, j) {
			active = append(active, j)
			continue
		}
		if p.Objective[j] > 0 {
			return &Solution{Status: StatusUnbounded}, nil
		}
	}

	// Equality rows without active coefficients are 0 = rhs.
	var equalities []lp.Row
	for _, row := range p.Equalities {
		if rowUsed(row, active) {
			equalities = append(equalities, row)
			continue
		}
		if math.Abs(row.RHS) > s.tol {
			return &Solution{Status: StatusInfeasible}, nil
		}
	}

	values := make([]float64, n)
	if len(active) == 0 {
		// Only inequality rows with no variables remain: 0 <= rhs.
		for _, row := range p.Inequalities {
			if row.RHS < -s.tol {
				return &Solution{Status: StatusInfeasible}, nil
			}
		}
		return &Solution{Status: StatusSolved, Values: values}, nil
	}

	nIneq := len(p.Inequalities)
	rows := nIneq + len(equalities)
	cols := len(active) + nIneq
	if rows > cols {
		return nil, fmt.Errorf("%w: %d constraints over %d columns", ErrNumerical, rows, cols)
	}

	c := make([]float64, cols)
	for k, j := range active {
		c[k] = -p.Objective[j]
	}
	A := mat.NewDense(rows, cols, nil)
	b := make([]float64, rows)
	for r, row := range p.Inequalities {
		fillRow(A, r, row, active)
		A.Set(r, len(active)+r, 1)
		b[r] = row.RHS
	}
	for e, row := range equalities {
		r := nIneq + e
		fillRow(A, r, row, active)
		b[r] = row.RHS
	}
	for r := range rows {
		if b[r] < 0 {
			b[r] = -b[r]
			for col := range cols {
				A.Set(r, col, -A.At(r, col))
			}
		}
	}

	optF, optX, err := gonumlp.Simplex(c, A, b, s.tol, nil)
	if err != nil {
		return statusFromGonum(err)
	}

	for k, j := range active {
		v := optX[k]
		if v < 0 {
			if v < -s.zeroTol {
				return nil, fmt.Errorf("%w: variable %d came back as %v", ErrNumerical, j, v)
			}
			v = 0
		}
		values[j] = v
	}
	return &Solution{Status: StatusSolved, Objective: -optF, Values: values}, nil
}

func statusFromGonum(err error) (*Solution, error) {
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		return &Solution{Status: StatusInfeasible}, nil
	case errors.Is(err, gonumlp.ErrUnbounded):
		return &Solution{Status: StatusUnbounded}, nil
	case errors.Is(err, gonumlp.ErrBland):
		return &Solution{Status: StatusExceededMaxIterations}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrNumerical, err)
	}
}

func columnUsed(p *lp.Problem, j int) bool {
	for _, row := range p.Inequalities {
		if row.Coeffs[j] != 0 {
			return true
		}
	}
	for _, row := range p.Equalities {
		if row.Coeffs[j] != 0 {
			return true
		}
	}
	return false
}

func rowUsed(row lp.Row, active []int) bool {
	for _, j := range active {
		if row.Coeffs[j] != 0 {
			return true
		}
	}
	return false
}

func fillRow(A *mat.Dense, r int, row lp.Row, active []int) {
	for k, j := range active {
		A.Set(r, k, row.Coeffs[j])
	}
}
