package main

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/gravsim/internal/config"
)

func TestNameOf(t *testing.T) {
	tests := map[string]string{
		"scenes/disc.yaml": "disc",
		"solar.toml":       "solar",
		"plain":            "plain",
		"/tmp/a.b.json":    "a.b",
	}
	for in, want := range tests {
		if got := nameOf(in); got != want {
			t.Errorf("nameOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExplicitlySet(t *testing.T) {
	cmd := newRunCmd()
	if err := cmd.Flags().Set("eps", "0.1"); err != nil {
		t.Fatal(err)
	}
	explicit := explicitlySet(cmd)

	if !explicit("epsilon") {
		t.Error("epsilon set by --eps not reported")
	}
	if explicit("dt") {
		t.Error("dt reported before anything set it")
	}
	t.Setenv("GRAVSIM_DT", "0.5")
	if !explicit("dt") {
		t.Error("dt set by GRAVSIM_DT not reported")
	}
}

func TestLoadRun(t *testing.T) {
	cmd := newRunCmd()

	file, st, err := loadRun(cmd, "binary")
	if err != nil {
		t.Fatal(err)
	}
	if file.Name != "binary" || len(file.Bodies) != 2 {
		t.Errorf("got %q with %d bodies", file.Name, len(file.Bodies))
	}
	if st.G != 1 {
		t.Errorf("preset G not applied: %g", st.G)
	}

	if err := cmd.Flags().Set("g", "2"); err != nil {
		t.Fatal(err)
	}
	if _, st, err = loadRun(cmd, "binary"); err != nil {
		t.Fatal(err)
	}
	if st.G != 2 {
		t.Errorf("--g did not override the preset: %g", st.G)
	}

	if _, _, err := loadRun(cmd, "no-such-thing"); !errors.Is(err, config.ErrUnknownPreset) {
		t.Errorf("unknown source: got %v", err)
	}
}

func TestRunMetrics(t *testing.T) {
	st := config.DefaultSettings()
	names := func(radius float64) []string {
		var out []string
		for _, m := range runMetrics(st, radius) {
			out = append(out, m.Name())
		}
		return out
	}

	tests := []struct {
		radius float64
		want   []string
	}{
		{0, []string{"kinetic_energy", "energy_drift", "momentum_drift", "max_speed"}},
		{50, []string{"kinetic_energy", "energy_drift", "momentum_drift", "max_speed", "stability"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, names(tt.radius)); diff != "" {
			t.Errorf("radius %g (-want +got):\n%s", tt.radius, diff)
		}
	}
}
