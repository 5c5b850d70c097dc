package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/model"
)

// twoDeviceModel places one red network at (100,100) r=50 R=1000, a device at
// distance 25 (r=250) and a device out of range (r=0).
func twoDeviceModel(t *testing.T) *core.CoverageModel {
	t.Helper()
	cm := core.NewCoverageModel()
	_, err := cm.AddNetwork(model.Position{X: 100, Y: 100}, 50, model.CategoryRed, 1000)
	require.NoError(t, err)
	_, err = cm.AddDevice(model.Position{X: 125, Y: 100})
	require.NoError(t, err)
	_, err = cm.AddDevice(model.Position{X: 200, Y: 100})
	require.NoError(t, err)
	return cm
}

func TestWeightsFromBeta(t *testing.T) {
	w, err := WeightsFromBeta(0.3)
	require.NoError(t, err)
	assert.InDelta(t, 0.7, w.Alpha, 1e-12)
	assert.Equal(t, 0.3, w.Beta)

	for _, bad := range []float64{-0.1, 1.01, math.NaN()} {
		_, err := WeightsFromBeta(bad)
		assert.ErrorIs(t, err, ErrInvalidWeights, "beta=%v", bad)
	}
}

func TestFormulateText(t *testing.T) {
	snap := twoDeviceModel(t).Snapshot()
	w, err := WeightsFromBeta(0.3)
	require.NoError(t, err)

	p, err := Formulate(snap, w)
	require.NoError(t, err)

	want := "175 0 75;" +
		"250 0 0 1000," + // capacity of network 1
		"1 0 0 1," + // x_11 <= 1
		"-250 0 1 0," + // z <= r_1
		"0 0 1 0," + // z <= r_2 (device 2 reaches nothing)
		";" +
		"0 1 0 0," + // x_21 = 0, out of range
		";"
	assert.Equal(t, want, p.Text())
}

func TestFormulateScenarioD(t *testing.T) {
	snap := twoDeviceModel(t).Snapshot()
	w, err := WeightsFromBeta(0.3)
	require.NoError(t, err)
	p, err := Formulate(snap, w)
	require.NoError(t, err)

	assert.InDelta(t, 175, p.Objective[0], 1e-9)
	assert.InDelta(t, 0.3*snap.SumRate, p.Objective[snap.FairnessIndex()], 1e-9)
}

func TestFormulateLayout(t *testing.T) {
	cm := core.NewCoverageModel()
	var nets []model.NetworkID
	for _, x := range []float64{0, 40, 400} {
		id, err := cm.AddNetwork(model.Position{X: x}, 50, model.CategoryGreen, 500)
		require.NoError(t, err)
		nets = append(nets, id)
	}
	for _, x := range []float64{0, 20, 40, 1000} {
		_, err := cm.AddDevice(model.Position{X: x})
		require.NoError(t, err)
	}
	require.NoError(t, cm.RemoveDevice(2))
	require.NoError(t, cm.RemoveNetwork(nets[2]))

	snap := cm.Snapshot()
	p, err := Formulate(snap, Weights{Alpha: 0.5, Beta: 0.5})
	require.NoError(t, err)

	nDev, nNet := len(snap.DeviceIDs), len(snap.NetworkIDs)
	require.Equal(t, 3, nDev)
	require.Equal(t, 2, nNet)
	require.Equal(t, nDev*nNet+1, p.NumVariables())

	zero := 0
	for _, row := range snap.Rates {
		for _, r := range row {
			if r == 0 {
				zero++
			}
		}
	}
	assert.Len(t, p.Equalities, zero)
	assert.Len(t, p.Inequalities, nNet+(nDev*nNet-zero)+nDev)

	for _, row := range append(append([]Row{}, p.Inequalities...), p.Equalities...) {
		assert.Len(t, row.Coeffs, p.NumVariables())
	}

	// Capacity rows come first and carry the network's ceiling.
	for j := range nNet {
		row := p.Inequalities[j]
		assert.Equal(t, snap.MaxRates[j], row.RHS)
		assert.Zero(t, row.Coeffs[snap.FairnessIndex()])
		for i := range nDev {
			assert.Equal(t, snap.Rates[i][j], row.Coeffs[snap.VariableIndex(i, j)])
		}
	}

	// Fairness rows are last, one per device.
	for i := range nDev {
		row := p.Inequalities[len(p.Inequalities)-nDev+i]
		assert.Equal(t, 1.0, row.Coeffs[snap.FairnessIndex()])
		assert.Zero(t, row.RHS)
		for j := range nNet {
			assert.Equal(t, -snap.Rates[i][j], row.Coeffs[snap.VariableIndex(i, j)])
		}
	}
}

func TestFormulateScenarioBEmitsEquality(t *testing.T) {
	cm := core.NewCoverageModel()
	_, err := cm.AddNetwork(model.Position{X: 100, Y: 100}, 50, model.CategoryRed, 1000)
	require.NoError(t, err)
	_, err = cm.AddDevice(model.Position{X: 200, Y: 100})
	require.NoError(t, err)

	p, err := Formulate(cm.Snapshot(), Weights{Alpha: 1})
	require.NoError(t, err)
	require.Len(t, p.Equalities, 1)
	assert.Equal(t, []float64{1, 0}, p.Equalities[0].Coeffs)
	assert.Zero(t, p.Equalities[0].RHS)
	for _, row := range p.Inequalities {
		if row.Coeffs[0] == 1 && row.RHS == 1 {
			t.Fatalf("out-of-range pair emitted as a bound inequality")
		}
	}
}

func TestFormulateIsDeterministic(t *testing.T) {
	cm := twoDeviceModel(t)
	_, err := cm.AddNetwork(model.Position{X: 130, Y: 90}, 70, model.CategoryBlue, 333.3)
	require.NoError(t, err)
	w := Weights{Alpha: 0.25, Beta: 0.75}

	first, err := Formulate(cm.Snapshot(), w)
	require.NoError(t, err)
	for range 20 {
		again, err := Formulate(cm.Snapshot(), w)
		require.NoError(t, err)
		require.Equal(t, first.Text(), again.Text())
	}
}

func TestFormulateEmptyModel(t *testing.T) {
	cm := core.NewCoverageModel()
	_, err := Formulate(cm.Snapshot(), Weights{Alpha: 1})
	assert.ErrorIs(t, err, ErrEmptyModel)

	_, err = cm.AddDevice(model.Position{})
	require.NoError(t, err)
	_, err = Formulate(cm.Snapshot(), Weights{Alpha: 1})
	assert.ErrorIs(t, err, ErrEmptyModel)

	cm = core.NewCoverageModel()
	_, err = cm.AddNetwork(model.Position{}, 1, model.CategoryRed, 1)
	require.NoError(t, err)
	_, err = Formulate(cm.Snapshot(), Weights{Alpha: 1})
	assert.ErrorIs(t, err, ErrEmptyModel)

	_, err = Formulate(nil, Weights{Alpha: 1})
	assert.ErrorIs(t, err, ErrEmptyModel)
}
