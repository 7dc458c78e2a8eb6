package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	DefaultDt      = 0.01
	DefaultTime    = 1.0
	DefaultTheta   = 0.5
	DefaultEpsilon = 1e-6
	DefaultBodies  = 1000
	DefaultDataDir = ".gravsim"
)

// Universe is the fixed canvas used when bounds is "fixed".
type Universe struct {
	CenterX float64 `mapstructure:"center_x"`
	CenterY float64 `mapstructure:"center_y"`
	Size    float64 `mapstructure:"size"`
}

// Settings holds run parameters.
// Values are populated from .gravsim.yaml, GRAVSIM_* env vars, and CLI flags.
type Settings struct {
	Theta         float64  `mapstructure:"theta"`
	G             float64  `mapstructure:"g"`
	Epsilon       float64  `mapstructure:"epsilon"`
	Threads       int      `mapstructure:"threads"`
	Dt            float64  `mapstructure:"dt"`
	Time          float64  `mapstructure:"time"`
	Bounds        string   `mapstructure:"bounds"`
	Universe      Universe `mapstructure:"universe"`
	Padding       float64  `mapstructure:"padding"`
	MinCell       float64  `mapstructure:"min_cell"`
	KeepSnapshots bool     `mapstructure:"keep_snapshots"`
	DataDir       string   `mapstructure:"data_dir"`
	Verbose       bool     `mapstructure:"verbose"`
}

func DefaultSettings() Settings {
	return Settings{
		Theta:   DefaultTheta,
		G:       physics.GravitationalConstant,
		Epsilon: DefaultEpsilon,
		Threads: 1,
		Dt:      DefaultDt,
		Time:    DefaultTime,
		Bounds:  quadtree.BoundsAdaptive.String(),
		Universe: Universe{
			CenterX: 500,
			CenterY: 500,
			Size:    1000,
		},
		Padding: quadtree.DefaultPadding,
		DataDir: DefaultDataDir,
	}
}

// SetDefaults registers every key of DefaultSettings with v so that config
// files, env vars and flags only need to carry overrides.
func SetDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("theta", d.Theta)
	v.SetDefault("g", d.G)
	v.SetDefault("epsilon", d.Epsilon)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("dt", d.Dt)
	v.SetDefault("time", d.Time)
	v.SetDefault("bounds", d.Bounds)
	v.SetDefault("universe.center_x", d.Universe.CenterX)
	v.SetDefault("universe.center_y", d.Universe.CenterY)
	v.SetDefault("universe.size", d.Universe.Size)
	v.SetDefault("padding", d.Padding)
	v.SetDefault("min_cell", d.MinCell)
	v.SetDefault("keep_snapshots", d.KeepSnapshots)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("verbose", d.Verbose)
}

// Load reads settings from v, applying built-in defaults for any values
// not set by config file, environment, or flags.
func Load(v *viper.Viper) (Settings, error) {
	SetDefaults(v)

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("config: decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	_, err := s.SimConfig()
	return err
}

// SimConfig converts s into the step loop's configuration.
func (s Settings) SimConfig() (sim.Config, error) {
	bounds, err := quadtree.ParseBoundsMode(s.Bounds)
	if err != nil {
		return sim.Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := sim.Config{
		Dt:            s.Dt,
		TotalTime:     s.Time,
		KeepSnapshots: s.KeepSnapshots,
		Tree: quadtree.Config{
			Bounds:      bounds,
			Center:      r2.Vec{X: s.Universe.CenterX, Y: s.Universe.CenterY},
			Size:        s.Universe.Size,
			Padding:     s.Padding,
			MinCellSize: s.MinCell,
		},
		Physics: physics.Config{
			G:       s.G,
			Theta:   s.Theta,
			Epsilon: s.Epsilon,
			Threads: s.Threads,
		},
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ErrUnknownPreset is returned by GetPreset for names it does not know.
var ErrUnknownPreset = errors.New("config: unknown preset")
