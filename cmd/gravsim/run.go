package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/integrators"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
	"github.com/san-kum/gravsim/internal/watch"
)

const (
	recordCSV    = "csv"
	recordSQLite = "sqlite"
	recordJSONL  = "jsonl"
	recordNone   = "none"

	sqliteFile = "runs.db"
)

var (
	numBodies       int
	seed            int64
	record          string
	watchFile       bool
	stabilityRadius float64
)

func newRunCmd() *cobra.Command {
	d := config.DefaultSettings()

	runCmd := &cobra.Command{
		Use:   "run [scenario-file|preset]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	f := runCmd.Flags()
	f.Float64Var(new(float64), "dt", d.Dt, "timestep")
	f.Float64Var(new(float64), "time", d.Time, "simulated duration")
	f.Float64Var(new(float64), "theta", d.Theta, "opening angle (0 is exact)")
	f.Float64Var(new(float64), "g", d.G, "gravitational constant")
	f.Float64Var(new(float64), "eps", d.Epsilon, "squared-distance floor")
	f.IntVar(new(int), "threads", d.Threads, "force evaluation workers")
	f.String("bounds", d.Bounds, "root region: adaptive or fixed")
	f.Bool("keep", false, "keep every snapshot in memory")
	f.IntVar(&numBodies, "bodies", config.DefaultBodies, "body count for scalable presets")
	f.Int64Var(&seed, "seed", 1, "random seed for generated presets")
	f.StringVar(&record, "record", recordCSV, "recorder: csv, sqlite, jsonl or none")
	f.BoolVar(&watchFile, "watch", false, "re-run whenever the scenario file changes")
	f.Float64Var(&stabilityRadius, "stability-radius", 0, "report the fraction of steps with every body within this distance of the centre of mass (0 disables)")

	for _, key := range []string{"dt", "time", "theta", "g", "epsilon", "threads", "bounds", "keep_snapshots"} {
		name := key
		if fl, ok := flagKeys[key]; ok {
			name = fl
		}
		v.BindPFlag(key, f.Lookup(name))
	}
	return runCmd
}

func runSimulation(cmd *cobra.Command, args []string) error {
	src := args[0]
	switch record {
	case recordCSV, recordSQLite, recordJSONL, recordNone:
	default:
		return fmt.Errorf("unknown recorder %q (want csv, sqlite, jsonl or none)", record)
	}

	st, err := loadSettings()
	if err != nil {
		return err
	}
	logger := newLogger(st.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if !watchFile {
		return runOnce(ctx, cmd, src, logger)
	}
	return runWatched(ctx, cmd, src, logger)
}

// runWatched re-runs src on every save until interrupted. Failed runs are
// reported and the watch continues.
func runWatched(ctx context.Context, cmd *cobra.Command, src string, logger *slog.Logger) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("--watch needs a scenario file: %w", err)
	}
	w, err := watch.File(src)
	if err != nil {
		return err
	}
	defer w.Stop()

	for {
		if err := runOnce(ctx, cmd, src, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render("error:"), err)
		}
		fmt.Println(viz.Subtle.Render("watching " + src + " (ctrl-c to stop)"))

		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
		}
	}
}

// loadRun resolves src to a scenario file, falling back to a preset name,
// and layers its run parameters under explicitly set options.
func loadRun(cmd *cobra.Command, src string) (*config.ScenarioFile, config.Settings, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, config.Settings{}, err
	}

	var file *config.ScenarioFile
	if _, statErr := os.Stat(src); statErr == nil {
		file, err = config.LoadScenario(src)
	} else {
		file, err = config.GetPreset(src, numBodies, seed)
		if errors.Is(err, config.ErrUnknownPreset) {
			err = fmt.Errorf("%s is neither a scenario file nor a preset: %w", src, err)
		}
	}
	if err != nil {
		return nil, config.Settings{}, err
	}
	if file.Name == "" {
		file.Name = nameOf(src)
	}

	file.ApplyTo(&st, explicitlySet(cmd))
	if err := st.Validate(); err != nil {
		return nil, config.Settings{}, err
	}
	return file, st, nil
}

func runOnce(ctx context.Context, cmd *cobra.Command, src string, logger *slog.Logger) error {
	file, st, err := loadRun(cmd, src)
	if err != nil {
		return err
	}
	sc, err := file.Scenario()
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	cfg, err := st.SimConfig()
	if err != nil {
		return err
	}
	if record == recordCSV {
		cfg.KeepSnapshots = true
	}

	store := storage.New(st.DataDir)
	if err := store.Init(); err != nil {
		return fmt.Errorf("init data dir: %w", err)
	}

	euler := integrators.NewEuler()
	now := time.Now()
	meta := storage.RunMetadata{
		ID:         storage.NewRunID(file.Name, now),
		Name:       file.Name,
		Timestamp:  now,
		Bodies:     sc.Len(),
		Seed:       seed,
		Dt:         st.Dt,
		Duration:   st.Time,
		Theta:      st.Theta,
		G:          st.G,
		Epsilon:    st.Epsilon,
		Threads:    st.Threads,
		Bounds:     st.Bounds,
		Integrator: euler.Name(),
		Record:     record,
	}

	opts := []sim.Option{
		sim.WithLogger(logger.With("run", meta.ID)),
		sim.WithIntegrator(euler),
	}
	for _, m := range runMetrics(st, stabilityRadius) {
		opts = append(opts, sim.WithMetric(m))
	}

	var recErr func() error
	switch record {
	case recordSQLite:
		rec, err := storage.NewSQLiteRecorder(ctx, filepath.Join(st.DataDir, sqliteFile), meta.ID, meta.Name, sc.Len())
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, sim.WithObserver(rec))
		recErr = rec.Err
	case recordJSONL:
		rec, err := storage.NewJSONLRecorder(filepath.Join(st.DataDir, meta.ID+".jsonl"))
		if err != nil {
			return err
		}
		defer rec.Close()
		opts = append(opts, sim.WithObserver(rec))
		recErr = rec.Err
	}

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("gravsim: %s, %s bodies, θ=%g", meta.Name, humanize.Comma(int64(sc.Len())), st.Theta)))

	res, runErr := sim.New(opts...).Run(ctx, sc, cfg)
	if res == nil {
		return runErr
	}
	if recErr != nil {
		if err := recErr(); err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
	}

	if record != recordNone {
		if _, err := store.Save(meta, res); err != nil {
			return err
		}
	}

	fmt.Println(runSummary(meta, res))
	if runErr != nil {
		fmt.Println(viz.WarnStyle.Render(runErr.Error()))
	}
	return nil
}

func runSummary(meta storage.RunMetadata, res *sim.Result) string {
	rows := []viz.Row{
		{Label: "run", Value: meta.ID},
		{Label: "steps", Value: humanize.Comma(int64(res.Steps))},
		{Label: "simulated time", Value: fmt.Sprintf("%g", res.SimulatedTime)},
		{Label: "wall time", Value: res.WallTime.Round(time.Millisecond).String()},
		{Label: "pair interactions", Value: humanize.Comma(res.Stats.PairInteractions)},
		{Label: "approximations", Value: humanize.Comma(res.Stats.NodeApproximations)},
	}
	if res.WallTime > 0 && res.Steps > 0 {
		rate := float64(res.Steps) / res.WallTime.Seconds()
		rows = append(rows, viz.Row{Label: "steps/sec", Value: humanize.FormatFloat("#,###.#", rate)})
	}
	for _, name := range []string{"kinetic_energy", "energy_drift", "momentum_drift", "max_speed", "stability"} {
		if val, ok := res.Metrics[name]; ok {
			rows = append(rows, viz.Row{Label: name, Value: fmt.Sprintf("%.4g", val)})
		}
	}
	if n := len(res.Escaped); n > 0 {
		rows = append(rows, viz.Row{Label: "escaped", Value: viz.WarnStyle.Render(humanize.Comma(int64(n)) + " bodies")})
	}
	if meta.Record == recordNone {
		rows = append(rows, viz.Row{Label: "record", Value: "not saved"})
	}
	return viz.Summary("run finished", rows)
}

// runMetrics returns the diagnostics attached to every run. Stability is
// tracked only for a positive radius.
func runMetrics(st config.Settings, radius float64) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewKinetic(),
		metrics.NewEnergyDrift(st.G, st.Epsilon),
		metrics.NewMomentumDrift(),
		metrics.NewMaxSpeed(),
	}
	if radius > 0 {
		ms = append(ms, metrics.NewStability(radius))
	}
	return ms
}

func nameOf(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
