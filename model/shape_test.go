package model

import "testing"

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"red", CategoryRed, false},
		{" Green ", CategoryGreen, false},
		{"BLUE", CategoryBlue, false},
		{"purple", CategoryUnknown, true},
		{"", CategoryUnknown, true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseCategory(%q) err=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseCategory(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseMaxRateFallsBackToDefault(t *testing.T) {
	tests := map[string]float64{
		"250":   250,
		" 12.5": 12.5,
		"0":     DefaultMaxRate,
		"-4":    DefaultMaxRate,
		"fast":  DefaultMaxRate,
		"NaN":   DefaultMaxRate,
		"Inf":   DefaultMaxRate,
		"":      DefaultMaxRate,
	}
	for in, want := range tests {
		if got := ParseMaxRate(in); got != want {
			t.Fatalf("ParseMaxRate(%q)=%v, want %v", in, got, want)
		}
	}
}

func TestCategoryRates(t *testing.T) {
	r := NewCategoryRates()
	if r.Known(CategoryRed) {
		t.Fatalf("fresh registry should not know red")
	}
	if got := r.RateFor(CategoryRed); got != DefaultMaxRate {
		t.Fatalf("RateFor(red)=%v, want default", got)
	}

	r.Set(CategoryRed, 400)
	r.Set(CategoryBlue, -1)
	if got := r.RateFor(CategoryRed); got != 400 {
		t.Fatalf("RateFor(red)=%v, want 400", got)
	}
	if got := r.RateFor(CategoryBlue); got != DefaultMaxRate {
		t.Fatalf("RateFor(blue)=%v, want default for non-positive input", got)
	}

	var nilRates *CategoryRates
	if got := nilRates.RateFor(CategoryGreen); got != DefaultMaxRate {
		t.Fatalf("nil registry RateFor=%v, want default", got)
	}
}

func TestShapeConstructors(t *testing.T) {
	d := NewDeviceShape(Position{X: 1, Y: 2})
	if d.Kind != ShapeDevice || d.Device.Position.X != 1 {
		t.Fatalf("unexpected device shape %#v", d)
	}
	n := NewNetworkShape(Position{X: 3, Y: 4}, 50, CategoryGreen, 800)
	if n.Kind != ShapeNetwork || n.Network.Radius != 50 || n.Network.Category != CategoryGreen || n.Network.MaxRate != 800 {
		t.Fatalf("unexpected network shape %#v", n)
	}
	if ShapeNetwork.String() != "network" || CategoryBlue.String() != "blue" {
		t.Fatalf("unexpected String() output")
	}
}
