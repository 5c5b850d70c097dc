package core

import (
	"math"

	"github.com/signalsfoundry/hetnet-optimizer/model"
)

// Distance returns the straight-line distance between two canvas points.
func Distance(a, b model.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Penetration returns how deep a point at distance d sits inside a coverage
// circle of the given radius: 1 at the centre, falling linearly to 0 at the
// edge. Points on or beyond the edge return 0.
func Penetration(d, radius float64) float64 {
	if radius <= 0 || d >= radius {
		return 0
	}
	return 1 - d/radius
}

// AchievableRate applies the quadratic falloff model: a device at the centre
// of network n gets n.MaxRate, a device on or past the edge gets nothing.
func AchievableRate(dev model.Device, n model.Network) float64 {
	p := Penetration(Distance(dev.Position, n.Position), n.Radius)
	if p <= 0 {
		return 0
	}
	r := n.MaxRate * p * p
	// Guard against rounding nudging the value past the ceiling.
	if r > n.MaxRate {
		return n.MaxRate
	}
	return r
}
