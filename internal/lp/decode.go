package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/signalsfoundry/hetnet-optimizer/core"
	"github.com/signalsfoundry/hetnet-optimizer/model"
)

// Assignment maps each device to the rate it receives from each network.
type Assignment map[model.DeviceID]map[model.NetworkID]float64

// DeviceTotal sums the rates assigned to u across all networks.
func (a Assignment) DeviceTotal(u model.DeviceID) float64 {
	var total float64
	for _, r := range a[u] {
		total += r
	}
	return total
}

// Decoded is the outcome of mapping a solution vector onto a snapshot.
type Decoded struct {
	Assignment Assignment
	// Fractions holds the raw x_ua values keyed like Assignment.
	Fractions Assignment
	// Fairness is z when the solver returned it, otherwise the smallest
	// per-device total.
	Fairness float64
	// Throughput is the sum of every assigned rate.
	Throughput float64
}

// Decode maps values onto snap. values holds x in snapshot order and may
// carry z as one trailing extra element; any other length is rejected.
// Each assigned rate is x_ua * r_ua taken from the snapshot, never from live
// geometry.
func Decode(values []float64, snap *core.Snapshot) (*Decoded, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: no snapshot", ErrMalformedSolution)
	}
	pairs := snap.NumPairs()
	hasZ := len(values) == pairs+1
	if len(values) != pairs && !hasZ {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrMalformedSolution, len(values), pairs)
	}
	if pairs == 0 {
		return nil, fmt.Errorf("%w: snapshot has no variables", ErrMalformedSolution)
	}

	out := &Decoded{
		Assignment: make(Assignment, len(snap.DeviceIDs)),
		Fractions:  make(Assignment, len(snap.DeviceIDs)),
	}
	minTotal := math.Inf(1)
	for i, u := range snap.DeviceIDs {
		rates := make(map[model.NetworkID]float64, len(snap.NetworkIDs))
		fracs := make(map[model.NetworkID]float64, len(snap.NetworkIDs))
		var total float64
		for j, a := range snap.NetworkIDs {
			x := values[snap.VariableIndex(i, j)]
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: non-finite value for device %d network %d", ErrMalformedSolution, u, a)
			}
			fracs[a] = x
			rates[a] = x * snap.Rates[i][j]
			total += rates[a]
		}
		out.Assignment[u] = rates
		out.Fractions[u] = fracs
		out.Throughput += total
		minTotal = math.Min(minTotal, total)
	}

	out.Fairness = minTotal
	if hasZ {
		out.Fairness = values[pairs]
	}
	return out, nil
}

// legacyOffset is the length of the label that precedes the values in the
// legacy frame, counted from just after the first '>'.
const legacyOffset = len(legacyLabel)

const (
	legacyOpen    = "<solution>"
	legacyLabel   = "Optimal values = "
	legacyTrailer = "\r\n"
)

// FormatLegacyResponse frames values the way the legacy solver front end
// did: "<solution>Optimal values = v1 v2 ... vn\r\n".
func FormatLegacyResponse(values []float64) string {
	var b strings.Builder
	b.WriteString(legacyOpen)
	b.WriteString(legacyLabel)
	writeValues(&b, values)
	b.WriteString(legacyTrailer)
	return b.String()
}

// ParseLegacyResponse extracts the value vector from a legacy solver frame:
// skip to the first '>', skip the 17-character label, drop the final two
// characters and split what remains on whitespace.
func ParseLegacyResponse(text string) ([]float64, error) {
	gt := strings.IndexByte(text, '>')
	if gt < 0 {
		return nil, fmt.Errorf("%w: no '>' in response", ErrMalformedSolution)
	}
	start := gt + 1 + legacyOffset
	end := len(text) - len(legacyTrailer)
	if start > end {
		return nil, fmt.Errorf("%w: response too short (%d bytes)", ErrMalformedSolution, len(text))
	}

	fields := strings.Fields(text[start:end])
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrMalformedSolution, f)
		}
		values = append(values, v)
	}
	return values, nil
}
