package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/signalsfoundry/hetnet-optimizer/model"
)

var (
	// ErrInvalidParameter indicates a rejected radius, rate, category or position.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrNotFound indicates an operation on an unknown or removed id.
	ErrNotFound = errors.New("not found")
)

// EventType indicates what kind of change happened in the model.
type EventType int

const (
	EventDeviceAdded EventType = iota + 1
	EventDeviceMoved
	EventDeviceRemoved
	EventNetworkAdded
	EventNetworkMoved
	EventNetworkResized
	EventNetworkRemoved
)

// Event is emitted to subscribers after a successful mutation.
type Event struct {
	Type      EventType
	DeviceID  model.DeviceID
	NetworkID model.NetworkID
}

// MetricsRecorder receives live entity counts after every mutation.
type MetricsRecorder interface {
	SetCoverageCounts(devices, networks int)
}

// RateMatrix maps each live device to the achievable rate from every live
// network.
type RateMatrix map[model.DeviceID]map[model.NetworkID]float64

// Rate returns the entry for (u, a), or 0 when absent.
func (m RateMatrix) Rate(u model.DeviceID, a model.NetworkID) float64 {
	return m[u][a]
}

// CoverageModel owns the canonical device and network collections. IDs are
// handed out by the model itself and are never recycled, so live entities
// form a sparse subset of 1..max id.
type CoverageModel struct {
	mu sync.RWMutex

	devices  map[model.DeviceID]*model.Device
	networks map[model.NetworkID]*model.Network

	lastDeviceID  model.DeviceID
	lastNetworkID model.NetworkID

	subs    []func(Event)
	metrics MetricsRecorder
}

// CoverageOption customises CoverageModel construction.
type CoverageOption func(*CoverageModel)

// WithMetricsRecorder attaches a recorder for live entity counts.
func WithMetricsRecorder(m MetricsRecorder) CoverageOption {
	return func(c *CoverageModel) {
		c.metrics = m
	}
}

// NewCoverageModel constructs an empty model.
func NewCoverageModel(opts ...CoverageOption) *CoverageModel {
	c := &CoverageModel{
		devices:  make(map[model.DeviceID]*model.Device),
		networks: make(map[model.NetworkID]*model.Network),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn to receive change events. Callbacks run on the
// mutating goroutine after the model lock has been released.
func (c *CoverageModel) Subscribe(fn func(Event)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// AddShape places either variant of a model.Shape and returns the id it
// was given as a plain int.
func (c *CoverageModel) AddShape(s model.Shape) (int, error) {
	switch s.Kind {
	case model.ShapeDevice:
		id, err := c.AddDevice(s.Device.Position)
		return int(id), err
	case model.ShapeNetwork:
		n := s.Network
		id, err := c.AddNetwork(n.Position, n.Radius, n.Category, n.MaxRate)
		return int(id), err
	default:
		return 0, fmt.Errorf("%w: unknown shape kind %d", ErrInvalidParameter, s.Kind)
	}
}

// AddDevice places a device and returns its id.
func (c *CoverageModel) AddDevice(pos model.Position) (model.DeviceID, error) {
	if err := validatePosition(pos); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.lastDeviceID++
	id := c.lastDeviceID
	c.devices[id] = &model.Device{ID: id, Position: pos}
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventDeviceAdded, DeviceID: id})
	return id, nil
}

// AddNetwork places a network and returns its id. The caller resolves the
// bandwidth beforehand (see model.CategoryRates); it is not prompted for here.
func (c *CoverageModel) AddNetwork(pos model.Position, radius float64, category model.Category, maxRate float64) (model.NetworkID, error) {
	if err := validatePosition(pos); err != nil {
		return 0, err
	}
	if err := validateRadius(radius); err != nil {
		return 0, err
	}
	if !(maxRate > 0) || math.IsInf(maxRate, 0) {
		return 0, fmt.Errorf("%w: max rate must be positive, got %v", ErrInvalidParameter, maxRate)
	}
	if !category.Valid() {
		return 0, fmt.Errorf("%w: category %v", ErrInvalidParameter, category)
	}

	c.mu.Lock()
	c.lastNetworkID++
	id := c.lastNetworkID
	c.networks[id] = &model.Network{
		ID:       id,
		Position: pos,
		Radius:   radius,
		Category: category,
		MaxRate:  maxRate,
	}
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventNetworkAdded, NetworkID: id})
	return id, nil
}

// RemoveDevice logically deletes a device. Its id stays retired.
func (c *CoverageModel) RemoveDevice(id model.DeviceID) error {
	c.mu.Lock()
	if _, ok := c.devices[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %d", ErrNotFound, id)
	}
	delete(c.devices, id)
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventDeviceRemoved, DeviceID: id})
	return nil
}

// RemoveNetwork logically deletes a network. Its id stays retired.
func (c *CoverageModel) RemoveNetwork(id model.NetworkID) error {
	c.mu.Lock()
	if _, ok := c.networks[id]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: network %d", ErrNotFound, id)
	}
	delete(c.networks, id)
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventNetworkRemoved, NetworkID: id})
	return nil
}

// MoveDevice updates a device position.
func (c *CoverageModel) MoveDevice(id model.DeviceID, pos model.Position) error {
	if err := validatePosition(pos); err != nil {
		return err
	}
	c.mu.Lock()
	d, ok := c.devices[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: device %d", ErrNotFound, id)
	}
	d.Position = pos
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventDeviceMoved, DeviceID: id})
	return nil
}

// MoveNetwork updates a network centre.
func (c *CoverageModel) MoveNetwork(id model.NetworkID, pos model.Position) error {
	if err := validatePosition(pos); err != nil {
		return err
	}
	c.mu.Lock()
	n, ok := c.networks[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: network %d", ErrNotFound, id)
	}
	n.Position = pos
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventNetworkMoved, NetworkID: id})
	return nil
}

// ResizeNetwork changes a network's coverage radius.
func (c *CoverageModel) ResizeNetwork(id model.NetworkID, radius float64) error {
	if err := validateRadius(radius); err != nil {
		return err
	}
	c.mu.Lock()
	n, ok := c.networks[id]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: network %d", ErrNotFound, id)
	}
	n.Radius = radius
	subs := c.commitLocked()
	c.mu.Unlock()

	notify(subs, Event{Type: EventNetworkResized, NetworkID: id})
	return nil
}

// Device returns a copy of a live device.
func (c *CoverageModel) Device(id model.DeviceID) (model.Device, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: device %d", ErrNotFound, id)
	}
	return *d, nil
}

// Network returns a copy of a live network.
func (c *CoverageModel) Network(id model.NetworkID) (model.Network, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.networks[id]
	if !ok {
		return model.Network{}, fmt.Errorf("%w: network %d", ErrNotFound, id)
	}
	return *n, nil
}

// Devices returns copies of the live devices in ascending id order.
func (c *CoverageModel) Devices() []model.Device {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.devicesLocked()
}

// Networks returns copies of the live networks in ascending id order.
func (c *CoverageModel) Networks() []model.Network {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networksLocked(nil)
}

// Counts returns the number of live devices and networks.
func (c *CoverageModel) Counts() (devices, networks int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices), len(c.networks)
}

// ComputeRateMatrix evaluates the falloff model for every live pair using
// the current geometry. Nothing is cached between calls.
func (c *CoverageModel) ComputeRateMatrix() RateMatrix {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m := make(RateMatrix, len(c.devices))
	for uid, d := range c.devices {
		row := make(map[model.NetworkID]float64, len(c.networks))
		for aid, n := range c.networks {
			row[aid] = AchievableRate(*d, *n)
		}
		m[uid] = row
	}
	return m
}

func (c *CoverageModel) devicesLocked() []model.Device {
	out := make([]model.Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *CoverageModel) networksLocked(keep func(model.Network) bool) []model.Network {
	out := make([]model.Network, 0, len(c.networks))
	for _, n := range c.networks {
		if keep != nil && !keep(*n) {
			continue
		}
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// commitLocked pushes counts to the metrics recorder and returns the
// subscribers to notify once the lock is released.
func (c *CoverageModel) commitLocked() []func(Event) {
	if c.metrics != nil {
		c.metrics.SetCoverageCounts(len(c.devices), len(c.networks))
	}
	if len(c.subs) == 0 {
		return nil
	}
	subs := make([]func(Event), len(c.subs))
	copy(subs, c.subs)
	return subs
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

func validatePosition(pos model.Position) error {
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) {
		return fmt.Errorf("%w: position (%v, %v) is not finite", ErrInvalidParameter, pos.X, pos.Y)
	}
	return nil
}

func validateRadius(radius float64) error {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidParameter, radius)
	}
	return nil
}
