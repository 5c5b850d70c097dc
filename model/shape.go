package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultMaxRate is the bandwidth applied to a network category when the
// collaborator supplied no usable value.
const DefaultMaxRate = 1000.0

// DeviceID identifies a device. IDs start at 1 and are never reused.
type DeviceID int

// NetworkID identifies a network. IDs start at 1 and are never reused.
type NetworkID int

// Position is a point in canvas coordinates.
type Position struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Category is the color class of a network.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryRed
	CategoryGreen
	CategoryBlue
)

// Categories lists the valid categories in display order.
var Categories = []Category{CategoryRed, CategoryGreen, CategoryBlue}

func (c Category) String() string {
	switch c {
	case CategoryRed:
		return "red"
	case CategoryGreen:
		return "green"
	case CategoryBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the closed set of categories.
func (c Category) Valid() bool {
	return c == CategoryRed || c == CategoryGreen || c == CategoryBlue
}

// ParseCategory maps a color name onto a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return CategoryRed, nil
	case "green":
		return CategoryGreen, nil
	case "blue":
		return CategoryBlue, nil
	default:
		return CategoryUnknown, fmt.Errorf("unknown category %q", s)
	}
}

// ParseMaxRate interprets a user-entered bandwidth. Anything that is not a
// positive finite number yields DefaultMaxRate.
func ParseMaxRate(input string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultMaxRate
	}
	return v
}

// Device is a point entity demanding traffic.
type Device struct {
	ID       DeviceID
	Position Position
}

// Network is a circular coverage region with a bandwidth ceiling.
type Network struct {
	ID       NetworkID
	Position Position
	Radius   float64
	Category Category
	MaxRate  float64
}

// ShapeKind tags the variant held by a Shape.
type ShapeKind int

const (
	ShapeDevice ShapeKind = iota + 1
	ShapeNetwork
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeDevice:
		return "device"
	case ShapeNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Shape is a placement request from a collaborator: either a device or a
// network. Only the field matching Kind is meaningful.
type Shape struct {
	Kind    ShapeKind
	Device  Device
	Network Network
}

// NewDeviceShape builds a device placement at pos.
func NewDeviceShape(pos Position) Shape {
	return Shape{Kind: ShapeDevice, Device: Device{Position: pos}}
}

// NewNetworkShape builds a network placement.
func NewNetworkShape(pos Position, radius float64, category Category, maxRate float64) Shape {
	return Shape{
		Kind: ShapeNetwork,
		Network: Network{
			Position: pos,
			Radius:   radius,
			Category: category,
			MaxRate:  maxRate,
		},
	}
}
