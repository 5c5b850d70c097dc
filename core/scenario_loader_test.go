package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/hetnet-optimizer/model"
)

const sampleScenario = `
beta: 0.3
categories:
  red: 1000
  blue: 400
networks:
  - {x: 100, y: 100, radius: 50, category: red}
  - {x: 150, y: 100, radius: 60, category: blue}
  - {x: 300, y: 300, radius: 20, category: green, max_rate: 75}
devices:
  - {x: 100, y: 100}
  - {x: 125, y: 100}
`

func TestLoadScenarioYAML(t *testing.T) {
	cm := NewCoverageModel()
	sc, err := LoadScenario(cm, strings.NewReader(sampleScenario))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.NetworkIDs) != 3 || len(sc.DeviceIDs) != 2 {
		t.Fatalf("loaded %d networks, %d devices", len(sc.NetworkIDs), len(sc.DeviceIDs))
	}
	if sc.Beta == nil || *sc.Beta != 0.3 {
		t.Fatalf("Beta=%v, want 0.3", sc.Beta)
	}

	want := map[model.NetworkID]float64{1: 1000, 2: 400, 3: 75}
	for id, rate := range want {
		n, err := cm.Network(id)
		if err != nil {
			t.Fatalf("Network(%d): %v", id, err)
		}
		if n.MaxRate != rate {
			t.Fatalf("network %d MaxRate=%v, want %v", id, n.MaxRate, rate)
		}
	}
	if sc.Rates.RateFor(model.CategoryGreen) != model.DefaultMaxRate {
		t.Fatalf("undeclared category should use the default rate")
	}
}

func TestLoadScenarioJSON(t *testing.T) {
	cm := NewCoverageModel()
	doc := `{"networks":[{"x":0,"y":0,"radius":10,"category":"red"}],"devices":[{"x":1,"y":1}]}`
	sc, err := LoadScenario(cm, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	n, _ := cm.Network(sc.NetworkIDs[0])
	if n.MaxRate != model.DefaultMaxRate {
		t.Fatalf("MaxRate=%v, want default", n.MaxRate)
	}
	if sc.Beta != nil {
		t.Fatalf("Beta=%v, want nil", *sc.Beta)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := map[string]string{
		"bad category":  `networks: [{x: 0, y: 0, radius: 10, category: purple}]`,
		"bad radius":    `networks: [{x: 0, y: 0, radius: 0, category: red}]`,
		"bad beta":      `beta: 1.5`,
		"bad cat table": `categories: {orange: 10}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(NewCoverageModel(), strings.NewReader(doc))
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("err=%v, want ErrInvalidParameter", err)
			}
		})
	}

	if _, err := LoadScenario(NewCoverageModel(), strings.NewReader("networks: [")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadScenario(nil, strings.NewReader("")); err == nil {
		t.Fatalf("expected error for nil model")
	}
}
