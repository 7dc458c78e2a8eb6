package sim

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
)

type Simulator struct {
	integrator Integrator
	metrics    []Metric
	observers  []Observer
	onPhase    func(from, to Phase)
	log        *slog.Logger
}

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

func WithIntegrator(i Integrator) Option {
	return func(s *Simulator) { s.integrator = i }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

func WithMetric(m Metric) Option {
	return func(s *Simulator) { s.metrics = append(s.metrics, m) }
}

// WithPhaseHook registers fn to be called on every phase transition.
func WithPhaseHook(fn func(from, to Phase)) Option {
	return func(s *Simulator) { s.onPhase = fn }
}

func New(opts ...Option) *Simulator {
	s := &Simulator{
		integrator: integrators.NewEuler(),
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances sc in place until cfg.TotalTime is covered. Each step builds
// a tree, evaluates forces across the configured workers, integrates and
// records. Observers and metrics see the initial state as step 0 before the
// first step. Cancellation of ctx is honoured between steps only; the partial
// result is returned alongside ctx's error.
func (s *Simulator) Run(ctx context.Context, sc *dynamo.Scenario, cfg Config) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	builder := quadtree.NewBuilder(cfg.Tree)
	evaluator := physics.NewEvaluator(cfg.Physics)

	res := &Result{Metrics: make(map[string]float64, len(s.metrics))}
	began := time.Now()

	for _, m := range s.metrics {
		m.Reset()
	}
	initial := sc.Snapshot(0, 0)
	for _, m := range s.metrics {
		m.Observe(initial)
	}
	for _, o := range s.observers {
		o.OnStep(initial)
	}
	if cfg.KeepSnapshots {
		res.Snapshots = append(res.Snapshots, initial)
	}

	s.log.Info("run started",
		"bodies", sc.Len(),
		"dt", cfg.Dt,
		"total", cfg.TotalTime,
		"theta", cfg.Physics.Theta,
		"workers", evaluator.Workers(),
		"bounds", cfg.Tree.Bounds,
	)

	phase := PhaseIdle
	enter := func(next Phase) {
		if s.onPhase != nil {
			s.onPhase(phase, next)
		}
		phase = next
	}

	escaped := make(map[int]struct{})
	var runErr error
	for step := 0; float64(step)*cfg.Dt < cfg.TotalTime; step++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("sim: stopped after %d steps: %w", step, err)
			break
		}

		enter(PhaseBuildingTree)
		tree := builder.Build(sc)
		for _, i := range tree.Escaped() {
			if _, seen := escaped[i]; !seen {
				escaped[i] = struct{}{}
				s.log.Warn("body outside universe, excluded from tree", "body", i, "step", step, "x", sc.R[i].X, "y", sc.R[i].Y)
			}
		}

		enter(PhaseEvaluatingForces)
		stats := evaluator.Evaluate(sc, tree, cfg.Dt)
		res.Stats.Add(stats)

		enter(PhaseIntegrating)
		s.integrator.Advance(sc, cfg.Dt)

		enter(PhaseRecording)
		snap := sc.Snapshot(step+1, float64(step+1)*cfg.Dt)
		for _, m := range s.metrics {
			m.Observe(snap)
		}
		for _, o := range s.observers {
			o.OnStep(snap)
		}
		if cfg.KeepSnapshots {
			res.Snapshots = append(res.Snapshots, snap)
		}

		res.Steps++
		res.SimulatedTime = snap.Time

		s.log.Debug("step",
			"step", snap.Step,
			"t", snap.Time,
			"nodes", tree.Len(),
			"interactions", stats.PairInteractions,
			"approximations", stats.NodeApproximations,
			"escaped", len(tree.Escaped()),
		)
	}
	enter(PhaseDone)

	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	for i := range escaped {
		res.Escaped = append(res.Escaped, i)
	}
	slices.Sort(res.Escaped)
	res.WallTime = time.Since(began)

	s.log.Info("run finished", "steps", res.Steps, "time", res.SimulatedTime, "wall", res.WallTime)
	return res, runErr
}
