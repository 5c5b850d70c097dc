package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/hetnet-optimizer/internal/lp"
)

const textbookLP = "5 4 3;2 3 1 5,4 1 2 11,3 4 2 8,;;"

func TestSimplexTextbook(t *testing.T) {
	sol, err := NewSimplex().Solve(context.Background(), textbookLP)
	require.NoError(t, err)
	require.Equal(t, StatusSolved, sol.Status)
	assert.InDelta(t, 13, sol.Objective, 1e-9)
	require.Len(t, sol.Values, 3)
	assert.InDelta(t, 2, sol.Values[0], 1e-9)
	assert.InDelta(t, 0, sol.Values[1], 1e-9)
	assert.InDelta(t, 1, sol.Values[2], 1e-9)
}

func TestSimplexAllocationProblem(t *testing.T) {
	// One network, two devices. The second device has no rate, so its
	// variable is pinned by an equality and the floor z is held at 0.
	text := "175 0 75;250 0 0 1000,1 0 0 1,-250 0 1 0,0 0 1 0,;0 1 0 0,;"
	sol, err := NewSimplex().Solve(context.Background(), text)
	require.NoError(t, err)
	require.Equal(t, StatusSolved, sol.Status)
	assert.InDelta(t, 175, sol.Objective, 1e-9)
	assert.InDeltaSlice(t, []float64{1, 0, 0}, sol.Values, 1e-9)
}

func TestSimplexEqualityAndNegativeRHS(t *testing.T) {
	// max x + y  s.t.  -x <= -1, x + y = 3
	sol, err := NewSimplex().Solve(context.Background(), "1 1;-1 0 -1,;1 1 3,;")
	require.NoError(t, err)
	require.Equal(t, StatusSolved, sol.Status)
	assert.InDelta(t, 3, sol.Objective, 1e-9)
	assert.InDelta(t, 3, sol.Values[0]+sol.Values[1], 1e-9)
	assert.GreaterOrEqual(t, sol.Values[0], 1-1e-9)
}

func TestSimplexStatuses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Status
	}{
		{"infeasible bound", "1;1 -1,;;", StatusInfeasible},
		{"infeasible equality", "1 1;1 1 1,;1 1 2,;", StatusInfeasible},
		{"zero equality row", "1;1 5,;0 3,;", StatusInfeasible},
		{"unused column with positive weight", "1 1;1 0 4,;;", StatusUnbounded},
		{"unbounded ray", "1 1;1 -1 1,;;", StatusUnbounded},
		{"no active columns", "0 -1;;;", StatusSolved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := NewSimplex().Solve(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sol.Status)
		})
	}
}

func TestSimplexPinsUnusedColumns(t *testing.T) {
	sol, err := NewSimplex().Solve(context.Background(), "2 0 -1;1 0 0 3,;;")
	require.NoError(t, err)
	require.Equal(t, StatusSolved, sol.Status)
	assert.Equal(t, []float64{3, 0, 0}, roundAll(sol.Values))
	assert.InDelta(t, 6, sol.Objective, 1e-9)
}

func TestSimplexRejectsMalformedText(t *testing.T) {
	_, err := NewSimplex().Solve(context.Background(), "1 2;1 1,;;")
	assert.ErrorIs(t, err, lp.ErrMalformedProblem)
}

func TestSimplexHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimplex().Solve(ctx, textbookLP)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusSolved, StatusDefault, StatusUnbounded, StatusExceededMaxIterations, StatusInfeasible} {
		got, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("bogus")
	assert.Error(t, err)

	assert.NoError(t, StatusSolved.Err())
	assert.ErrorIs(t, StatusInfeasible.Err(), ErrInfeasible)
	assert.ErrorIs(t, StatusUnbounded.Err(), ErrUnbounded)
	assert.ErrorIs(t, StatusExceededMaxIterations.Err(), ErrIterationLimit)
	assert.ErrorIs(t, StatusDefault.Err(), ErrNoResult)
	assert.Equal(t, 400, int(StatusInfeasible))
}

func roundAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(int64(v*1e6+0.5)) / 1e6
	}
	return out
}
