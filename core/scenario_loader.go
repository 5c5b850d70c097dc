// core/scenario_loader.go
package core

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/hetnet-optimizer/model"
)

// Scenario summarises what LoadScenario placed into a CoverageModel.
type Scenario struct {
	DeviceIDs  []model.DeviceID
	NetworkIDs []model.NetworkID
	// Rates holds the per-category bandwidths declared by the file.
	Rates *model.CategoryRates
	// Beta is the fairness weight from the file, nil when absent.
	Beta *float64
}

// Scenario file shapes. YAML is a superset of JSON, so both load here.
type scenarioYAML struct {
	Beta       *float64           `yaml:"beta"`
	Categories map[string]float64 `yaml:"categories"`
	Networks   []networkYAML      `yaml:"networks"`
	Devices    []model.Position   `yaml:"devices"`
}

type networkYAML struct {
	X        float64  `yaml:"x"`
	Y        float64  `yaml:"y"`
	Radius   float64  `yaml:"radius"`
	Category string   `yaml:"category"`
	MaxRate  *float64 `yaml:"max_rate"`
}

// LoadScenario decodes a scenario document from r and adds its networks and
// devices to cm in file order, so ids follow file order too. Networks
// without max_rate use their category's declared rate, then
// model.DefaultMaxRate.
func LoadScenario(cm *CoverageModel, r io.Reader) (*Scenario, error) {
	if cm == nil {
		return nil, fmt.Errorf("LoadScenario: coverage model is nil")
	}

	var payload scenarioYAML
	if err := yaml.NewDecoder(r).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if payload.Beta != nil && (*payload.Beta < 0 || *payload.Beta > 1) {
		return nil, fmt.Errorf("LoadScenario: %w: beta %v outside [0,1]", ErrInvalidParameter, *payload.Beta)
	}

	rates := model.NewCategoryRates()
	for name, rate := range payload.Categories {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: %w: %v", ErrInvalidParameter, err)
		}
		rates.Set(cat, rate)
	}

	result := &Scenario{
		DeviceIDs:  make([]model.DeviceID, 0, len(payload.Devices)),
		NetworkIDs: make([]model.NetworkID, 0, len(payload.Networks)),
		Rates:      rates,
		Beta:       payload.Beta,
	}

	for i, n := range payload.Networks {
		cat, err := model.ParseCategory(n.Category)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: network %d: %w: %v", i, ErrInvalidParameter, err)
		}
		maxRate := rates.RateFor(cat)
		if n.MaxRate != nil {
			maxRate = *n.MaxRate
		}
		id, err := cm.AddNetwork(model.Position{X: n.X, Y: n.Y}, n.Radius, cat, maxRate)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: network %d: %w", i, err)
		}
		result.NetworkIDs = append(result.NetworkIDs, id)
	}

	for i, pos := range payload.Devices {
		id, err := cm.AddDevice(pos)
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: device %d: %w", i, err)
		}
		result.DeviceIDs = append(result.DeviceIDs, id)
	}

	return result, nil
}
