package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
)

// Phase is the position of the step loop within a step.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuildingTree
	PhaseEvaluatingForces
	PhaseIntegrating
	PhaseRecording
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBuildingTree:
		return "building-tree"
	case PhaseEvaluatingForces:
		return "evaluating-forces"
	case PhaseIntegrating:
		return "integrating"
	case PhaseRecording:
		return "recording"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Integrator moves bodies once forces and velocities are up to date.
type Integrator interface {
	Advance(s *dynamo.Scenario, dt float64)
}

// Observer receives a copy of the initial state (step 0) and of the state
// after every step. Implementations keep their own errors.
type Observer interface {
	OnStep(snap dynamo.Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(snap dynamo.Snapshot)

func (f ObserverFunc) OnStep(snap dynamo.Snapshot) { f(snap) }

// Metric accumulates a scalar over the initial state and every step.
type Metric interface {
	Name() string
	Observe(snap dynamo.Snapshot)
	Value() float64
	Reset()
}

type Config struct {
	Dt        float64
	TotalTime float64
	// KeepSnapshots retains the initial state and every step in Result.
	KeepSnapshots bool

	Tree    quadtree.Config
	Physics physics.Config
}

func DefaultConfig() Config {
	return Config{
		Dt:        0.01,
		TotalTime: 1,
		Tree:      quadtree.DefaultConfig(),
		Physics:   physics.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("dt must be positive and finite, got %g: %w", c.Dt, dynamo.ErrInvalidConfig)
	}
	if !(c.TotalTime >= 0) || math.IsInf(c.TotalTime, 0) {
		return fmt.Errorf("total time must be non-negative and finite, got %g: %w", c.TotalTime, dynamo.ErrInvalidConfig)
	}
	if err := c.Tree.Validate(); err != nil {
		return err
	}
	return c.Physics.Validate()
}

type Result struct {
	Steps         int
	SimulatedTime float64
	Snapshots     []dynamo.Snapshot
	Stats         physics.Stats
	Metrics       map[string]float64
	// Escaped lists every body that fell outside a fixed universe during
	// at least one step, ascending.
	Escaped  []int
	WallTime time.Duration
}
