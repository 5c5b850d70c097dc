package lp

import (
	"fmt"

	"github.com/signalsfoundry/hetnet-optimizer/core"
)

// Weights balances throughput (Alpha) against max-min fairness (Beta).
type Weights struct {
	Alpha float64
	Beta  float64
}

// WeightsFromBeta derives both weights from the single fairness slider.
func WeightsFromBeta(beta float64) (Weights, error) {
	if !(beta >= 0 && beta <= 1) {
		return Weights{}, fmt.Errorf("%w: beta=%v", ErrInvalidWeights, beta)
	}
	return Weights{Alpha: 1 - beta, Beta: beta}, nil
}

// Formulate lays the allocation problem for snap out as an LP.
//
// Columns follow the snapshot order: x_{u,a} for each device u (ascending)
// and each network a (ascending), then z. Rows are:
//
//   - objective: alpha*r_ua on x_ua, beta*sumRuaMax on z
//   - capacity, one per network: sum_u r_ua*x_ua <= R_max(a)
//   - bound, one per pair with r_ua > 0: x_ua <= 1
//   - fairness, one per device: z - sum_a r_ua*x_ua <= 0
//   - equality, one per pair with r_ua == 0: x_ua = 0
//
// The three inequality groups are emitted in that order.
func Formulate(snap *core.Snapshot, w Weights) (*Problem, error) {
	if snap.Empty() {
		return nil, ErrEmptyModel
	}

	nDev, nNet := len(snap.DeviceIDs), len(snap.NetworkIDs)
	nVars := snap.NumVariables()
	zCol := snap.FairnessIndex()

	p := &Problem{
		Objective:    make([]float64, nVars),
		Inequalities: make([]Row, 0, nNet+snap.NumPairs()+nDev),
	}

	for i := range nDev {
		for j := range nNet {
			p.Objective[snap.VariableIndex(i, j)] = w.Alpha * snap.Rates[i][j]
		}
	}
	p.Objective[zCol] = w.Beta * snap.SumRate

	for j := range nNet {
		row := Row{Coeffs: make([]float64, nVars), RHS: snap.MaxRates[j]}
		for i := range nDev {
			row.Coeffs[snap.VariableIndex(i, j)] = snap.Rates[i][j]
		}
		p.Inequalities = append(p.Inequalities, row)
	}

	for i := range nDev {
		for j := range nNet {
			row := Row{Coeffs: make([]float64, nVars)}
			row.Coeffs[snap.VariableIndex(i, j)] = 1
			if snap.Rates[i][j] == 0 {
				p.Equalities = append(p.Equalities, row)
				continue
			}
			row.RHS = 1
			p.Inequalities = append(p.Inequalities, row)
		}
	}

	for i := range nDev {
		row := Row{Coeffs: make([]float64, nVars)}
		for j := range nNet {
			row.Coeffs[snap.VariableIndex(i, j)] = -snap.Rates[i][j]
		}
		row.Coeffs[zCol] = 1
		p.Inequalities = append(p.Inequalities, row)
	}

	return p, nil
}
