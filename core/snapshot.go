package core

import (
	"fmt"

	"github.com/signalsfoundry/hetnet-optimizer/model"
)

// Snapshot is the frozen, ordered view of one optimization pass. Devices and
// networks are listed in ascending id order with removed entities skipped;
// the LP variable for (DeviceIDs[i], NetworkIDs[j]) sits at index
// i*len(NetworkIDs)+j and the fairness variable z comes last.
//
// A Snapshot shares no memory with the CoverageModel that produced it, so
// edits made while a solver request is in flight cannot shift its layout.
type Snapshot struct {
	DeviceIDs  []model.DeviceID
	NetworkIDs []model.NetworkID

	// Rates[i][j] is r_{ua,max} for DeviceIDs[i] and NetworkIDs[j].
	Rates [][]float64
	// MaxRates[j] is the bandwidth ceiling of NetworkIDs[j].
	MaxRates []float64
	// SumRate is the sum of every entry in Rates.
	SumRate float64

	deviceIndex  map[model.DeviceID]int
	networkIndex map[model.NetworkID]int
}

// SnapshotOptions narrows what a snapshot includes.
type SnapshotOptions struct {
	// Categories, when non-empty, restricts networks to these colors.
	Categories []model.Category
}

// Snapshot freezes the current live geometry into an ordered rate table.
func (c *CoverageModel) Snapshot() *Snapshot {
	return c.SnapshotWith(SnapshotOptions{})
}

// SnapshotWith is Snapshot with filtering applied.
func (c *CoverageModel) SnapshotWith(opts SnapshotOptions) *Snapshot {
	var keep func(model.Network) bool
	if len(opts.Categories) > 0 {
		allowed := make(map[model.Category]bool, len(opts.Categories))
		for _, cat := range opts.Categories {
			allowed[cat] = true
		}
		keep = func(n model.Network) bool { return allowed[n.Category] }
	}

	c.mu.RLock()
	devices := c.devicesLocked()
	networks := c.networksLocked(keep)
	c.mu.RUnlock()

	return buildSnapshot(devices, networks)
}

func buildSnapshot(devices []model.Device, networks []model.Network) *Snapshot {
	s := &Snapshot{
		DeviceIDs:    make([]model.DeviceID, len(devices)),
		NetworkIDs:   make([]model.NetworkID, len(networks)),
		Rates:        make([][]float64, len(devices)),
		MaxRates:     make([]float64, len(networks)),
		deviceIndex:  make(map[model.DeviceID]int, len(devices)),
		networkIndex: make(map[model.NetworkID]int, len(networks)),
	}
	for j, n := range networks {
		s.NetworkIDs[j] = n.ID
		s.MaxRates[j] = n.MaxRate
		s.networkIndex[n.ID] = j
	}
	for i, d := range devices {
		s.DeviceIDs[i] = d.ID
		s.deviceIndex[d.ID] = i
		row := make([]float64, len(networks))
		for j, n := range networks {
			row[j] = AchievableRate(d, n)
			s.SumRate += row[j]
		}
		s.Rates[i] = row
	}
	return s
}

// Empty reports whether there is nothing to optimize.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.DeviceIDs) == 0 || len(s.NetworkIDs) == 0
}

// NumPairs is the number of assignment variables x_{ua}.
func (s *Snapshot) NumPairs() int {
	if s == nil {
		return 0
	}
	return len(s.DeviceIDs) * len(s.NetworkIDs)
}

// NumVariables is NumPairs plus the fairness variable z.
func (s *Snapshot) NumVariables() int {
	return s.NumPairs() + 1
}

// VariableIndex returns the LP column of the pair at positions (i, j).
func (s *Snapshot) VariableIndex(i, j int) int {
	return i*len(s.NetworkIDs) + j
}

// FairnessIndex returns the LP column of z.
func (s *Snapshot) FairnessIndex() int {
	return s.NumPairs()
}

// Rate looks up r_{ua,max} by id.
func (s *Snapshot) Rate(u model.DeviceID, a model.NetworkID) (float64, error) {
	i, ok := s.deviceIndex[u]
	if !ok {
		return 0, fmt.Errorf("%w: device %d not in snapshot", ErrNotFound, u)
	}
	j, ok := s.networkIndex[a]
	if !ok {
		return 0, fmt.Errorf("%w: network %d not in snapshot", ErrNotFound, a)
	}
	return s.Rates[i][j], nil
}

// RateMatrix re-expresses the snapshot as a keyed matrix.
func (s *Snapshot) RateMatrix() RateMatrix {
	m := make(RateMatrix, len(s.DeviceIDs))
	for i, u := range s.DeviceIDs {
		row := make(map[model.NetworkID]float64, len(s.NetworkIDs))
		for j, a := range s.NetworkIDs {
			row[a] = s.Rates[i][j]
		}
		m[u] = row
	}
	return m
}
