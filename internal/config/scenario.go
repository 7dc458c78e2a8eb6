package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/dynamo"
)

// Format is a scenario file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the encoding from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("config: unsupported scenario extension %q (want .yaml, .yml, .toml or .json)", filepath.Ext(path))
	}
}

type Body struct {
	Mass float64 `yaml:"mass" toml:"mass" json:"mass"`
	X    float64 `yaml:"x" toml:"x" json:"x"`
	Y    float64 `yaml:"y" toml:"y" json:"y"`
	VX   float64 `yaml:"vx" toml:"vx" json:"vx"`
	VY   float64 `yaml:"vy" toml:"vy" json:"vy"`
}

// RunParams are optional per-scenario overrides of Settings.
type RunParams struct {
	Dt      *float64 `yaml:"dt,omitempty" toml:"dt,omitempty" json:"dt,omitempty"`
	Time    *float64 `yaml:"time,omitempty" toml:"time,omitempty" json:"time,omitempty"`
	Theta   *float64 `yaml:"theta,omitempty" toml:"theta,omitempty" json:"theta,omitempty"`
	G       *float64 `yaml:"g,omitempty" toml:"g,omitempty" json:"g,omitempty"`
	Epsilon *float64 `yaml:"epsilon,omitempty" toml:"epsilon,omitempty" json:"epsilon,omitempty"`
	Bounds  string   `yaml:"bounds,omitempty" toml:"bounds,omitempty" json:"bounds,omitempty"`
}

// ScenarioFile is the on-disk description of a scenario.
type ScenarioFile struct {
	Name        string    `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Description string    `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Run         RunParams `yaml:"run,omitempty" toml:"run,omitempty" json:"run,omitempty"`
	Bodies      []Body    `yaml:"bodies" toml:"bodies" json:"bodies"`
}

// Scenario validates the bodies and returns them as a fresh scenario.
func (f *ScenarioFile) Scenario() (*dynamo.Scenario, error) {
	n := len(f.Bodies)
	m := make([]float64, n)
	r := make([]r2.Vec, n)
	v := make([]r2.Vec, n)
	for i, b := range f.Bodies {
		m[i] = b.Mass
		r[i] = r2.Vec{X: b.X, Y: b.Y}
		v[i] = r2.Vec{X: b.VX, Y: b.VY}
	}
	return dynamo.NewScenario(m, r, v)
}

// FromScenario captures the current positions and velocities of s.
func FromScenario(name string, s *dynamo.Scenario) *ScenarioFile {
	f := &ScenarioFile{Name: name, Bodies: make([]Body, s.Len())}
	for i := range s.M {
		f.Bodies[i] = Body{
			Mass: s.M[i],
			X:    s.R[i].X,
			Y:    s.R[i].Y,
			VX:   s.V[i].X,
			VY:   s.V[i].Y,
		}
	}
	return f
}

// ApplyTo copies the file's run parameters into st, skipping keys for
// which explicit reports true.
func (f *ScenarioFile) ApplyTo(st *Settings, explicit func(key string) bool) {
	if explicit == nil {
		explicit = func(string) bool { return false }
	}
	set := func(key string, src *float64, dst *float64) {
		if src != nil && !explicit(key) {
			*dst = *src
		}
	}
	set("dt", f.Run.Dt, &st.Dt)
	set("time", f.Run.Time, &st.Time)
	set("theta", f.Run.Theta, &st.Theta)
	set("g", f.Run.G, &st.G)
	set("epsilon", f.Run.Epsilon, &st.Epsilon)
	if f.Run.Bounds != "" && !explicit("bounds") {
		st.Bounds = f.Run.Bounds
	}
}

func Decode(data []byte, format Format) (*ScenarioFile, error) {
	var f ScenarioFile
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &f)
	case FormatTOML:
		err = toml.Unmarshal(data, &f)
	case FormatJSON:
		err = json.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("config: decode %s scenario: %w", format, err)
	}
	return &f, nil
}

func Encode(f *ScenarioFile, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(f)
	case FormatTOML:
		return toml.Marshal(f)
	case FormatJSON:
		return json.MarshalIndent(f, "", "  ")
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
}

func LoadScenario(path string) (*ScenarioFile, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read scenario: %w", err)
	}
	f, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func SaveScenario(path string, f *ScenarioFile) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(f, format)
	if err != nil {
		return fmt.Errorf("config: encode scenario: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
