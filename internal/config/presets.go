package config

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/san-kum/gravsim/internal/physics"
)

// PresetInfo describes a built-in scenario.
type PresetInfo struct {
	Name        string
	Description string
	// Scalable presets honour the requested body count.
	Scalable bool
}

type preset struct {
	info  PresetInfo
	build func(n int, rng *rand.Rand) *ScenarioFile
}

var presets = map[string]preset{
	"binary": {
		info:  PresetInfo{Name: "binary", Description: "two equal masses on a circular orbit, one period"},
		build: func(int, *rand.Rand) *ScenarioFile { return binaryPreset() },
	},
	"three": {
		info:  PresetInfo{Name: "three", Description: "three bodies at rest in three different quadrants"},
		build: func(int, *rand.Rand) *ScenarioFile { return threePreset() },
	},
	"solar": {
		info:  PresetInfo{Name: "solar", Description: "Sun and eight planets in SI units, one year in hourly steps"},
		build: func(int, *rand.Rand) *ScenarioFile { return solarPreset() },
	},
	"disc": {
		info:  PresetInfo{Name: "disc", Description: "rotating disc around a heavy central mass", Scalable: true},
		build: discPreset,
	},
	"cluster": {
		info:  PresetInfo{Name: "cluster", Description: "two Plummer clumps on a collision course", Scalable: true},
		build: clusterPreset,
	},
}

// GetPreset builds the named scenario. n is the body count for scalable
// presets (<= 0 uses DefaultBodies); seed makes random presets repeatable.
func GetPreset(name string, n int, seed int64) (*ScenarioFile, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknownPreset, name, ListPresets())
	}
	if n <= 0 {
		n = DefaultBodies
	}
	f := p.build(n, rand.New(rand.NewSource(seed)))
	f.Name = name
	f.Description = p.info.Description
	return f, nil
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func PresetInfos() []PresetInfo {
	names := ListPresets()
	infos := make([]PresetInfo, len(names))
	for i, name := range names {
		infos[i] = presets[name].info
	}
	return infos
}

func ptr(v float64) *float64 { return &v }

func binaryPreset() *ScenarioFile {
	// separation 2, G = 1: circular speed sqrt(G*m/(4r)) = 0.5
	return &ScenarioFile{
		Run: RunParams{G: ptr(1), Dt: ptr(1e-3), Time: ptr(4 * math.Pi)},
		Bodies: []Body{
			{Mass: 1, X: -1, VY: -0.5},
			{Mass: 1, X: 1, VY: 0.5},
		},
	}
}

func threePreset() *ScenarioFile {
	return &ScenarioFile{
		Run: RunParams{G: ptr(1), Dt: ptr(0.01), Time: ptr(10)},
		Bodies: []Body{
			{Mass: 1, X: 0, Y: 0},
			{Mass: 2, X: 10, Y: 0},
			{Mass: 3, X: 0, Y: 10},
		},
	}
}

func solarPreset() *ScenarioFile {
	return &ScenarioFile{
		Run: RunParams{G: ptr(physics.GravitationalConstant), Dt: ptr(3600), Time: ptr(86400 * 365)},
		Bodies: []Body{
			{Mass: 1.9885e30},                          // Sun
			{Mass: 3.3011e23, X: 5.7e10, VY: 4.74e4},   // Mercury
			{Mass: 4.8675e24, X: 1.08e11, VY: 3.5e4},   // Venus
			{Mass: 5.9724e24, X: 1.496e11, VY: 2.98e4}, // Earth
			{Mass: 6.4171e23, X: 2.279e11, VY: 2.41e4}, // Mars
			{Mass: 1.8982e27, X: 7.785e11, VY: 1.31e4}, // Jupiter
			{Mass: 5.6834e26, X: 1.429e12, VY: 9.7e3},  // Saturn
			{Mass: 8.6810e25, X: 2.871e12, VY: 6.8e3},  // Uranus
			{Mass: 1.0241e26, X: 4.498e12, VY: 5.43e3}, // Neptune
		},
	}
}

const (
	discCentralMass = 1000.0
	discBodyMass    = 0.01
	discInner       = 5.0
	discOuter       = 100.0
)

// discPreset places n-1 light bodies uniformly by area in an annulus around
// a central mass, each on a circular orbit about the mass enclosed.
func discPreset(n int, rng *rand.Rand) *ScenarioFile {
	f := &ScenarioFile{
		Run:    RunParams{G: ptr(1), Dt: ptr(0.01), Time: ptr(10)},
		Bodies: make([]Body, 0, n),
	}
	f.Bodies = append(f.Bodies, Body{Mass: discCentralMass})

	ringMass := discBodyMass * float64(n-1)
	in2, out2 := discInner*discInner, discOuter*discOuter
	for range n - 1 {
		rsq := in2 + rng.Float64()*(out2-in2)
		r := math.Sqrt(rsq)
		a := 2 * math.Pi * rng.Float64()
		enclosed := discCentralMass + ringMass*(rsq-in2)/(out2-in2)
		v := math.Sqrt(enclosed / r)
		sin, cos := math.Sincos(a)
		f.Bodies = append(f.Bodies, Body{
			Mass: discBodyMass,
			X:    r * cos,
			Y:    r * sin,
			VX:   -v * sin,
			VY:   v * cos,
		})
	}
	return f
}

const (
	plummerScale = 5.0
	plummerMax   = 10 * plummerScale
)

func clusterPreset(n int, rng *rand.Rand) *ScenarioFile {
	if n < 2 {
		n = 2
	}
	f := &ScenarioFile{
		Run:    RunParams{G: ptr(1), Dt: ptr(0.01), Time: ptr(20)},
		Bodies: make([]Body, 0, n),
	}
	half := n / 2
	f.Bodies = plummer(f.Bodies, half, -50, 0, 0.5, 0.2, rng)
	f.Bodies = plummer(f.Bodies, n-half, 50, 0, -0.5, -0.2, rng)
	return f
}

// plummer appends n unit-mass bodies drawn from a Plummer profile centred
// on (cx, cy) and drifting with (vx, vy).
func plummer(dst []Body, n int, cx, cy, vx, vy float64, rng *rand.Rand) []Body {
	sigma := 0.3 * math.Sqrt(float64(n)/plummerScale)
	for range n {
		var r float64
		for {
			u := rng.Float64()
			if u == 0 {
				continue
			}
			r = plummerScale / math.Sqrt(math.Pow(u, -2.0/3.0)-1)
			if r <= plummerMax {
				break
			}
		}
		sin, cos := math.Sincos(2 * math.Pi * rng.Float64())
		dst = append(dst, Body{
			Mass: 1,
			X:    cx + r*cos,
			Y:    cy + r*sin,
			VX:   vx + sigma*rng.NormFloat64(),
			VY:   vy + sigma*rng.NormFloat64(),
		})
	}
	return dst
}
