package main

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/optim"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	benchPreset    string
	benchBodies    int
	benchSeed      int64
	benchThetas    []float64
	benchThreads   []int
	benchTolerance float64
)

func newBenchCmd() *cobra.Command {
	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare Barnes-Hut against direct summation",
		Args:  cobra.NoArgs,
		RunE:  benchForces,
	}
	f := benchCmd.Flags()
	f.StringVar(&benchPreset, "preset", "disc", "scenario to measure")
	f.IntVar(&benchBodies, "bodies", 2000, "body count for scalable presets")
	f.Int64Var(&benchSeed, "seed", 1, "random seed")
	f.Float64SliceVar(&benchThetas, "thetas", []float64{0.3, 0.5, 0.8, 1.0}, "opening angles")
	f.IntSliceVar(&benchThreads, "threads", []int{1, 2, 4, runtime.NumCPU()}, "worker counts")
	f.Float64Var(&benchTolerance, "tolerance", 1e-2, "max relative error for the recommended θ")
	return benchCmd
}

// benchForces evaluates one force pass per (θ, threads) pair on the same
// initial state and reports its error against the direct sum.
func benchForces(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	st, err := loadSettings()
	if err != nil {
		return err
	}
	file, err := config.GetPreset(benchPreset, benchBodies, benchSeed)
	if err != nil {
		return err
	}
	file.ApplyTo(&st, explicitlySet(cmd))
	cfg, err := st.SimConfig()
	if err != nil {
		return err
	}

	base, err := file.Scenario()
	if err != nil {
		return err
	}

	start := time.Now()
	exact := physics.DirectForces(base, st.G, st.Epsilon, runtime.NumCPU())
	directWall := time.Since(start)
	n := int64(base.Len())

	builder := quadtree.NewBuilder(cfg.Tree)
	start = time.Now()
	tree := builder.Build(base)
	buildWall := time.Since(start)

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("benchmarking %s: %s bodies", file.Name, humanize.Comma(n))))
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("tree: %s nodes, depth %d, built in %v", humanize.Comma(int64(tree.Len())), tree.Depth(), buildWall)))
	fmt.Println(viz.Subtle.Render(fmt.Sprintf("direct: %s interactions in %v", humanize.Comma(n*(n-1)), directWall)))
	fmt.Println()

	samples, err := optim.NewGridSearch(benchThetas, benchThreads).Search(cmd.Context(), base, tree, cfg.Physics, exact)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA\tTHREADS\tWALL\tSPEEDUP\tINTERACTIONS\tAPPROX\tMAX REL ERR")

	for _, sm := range samples {
		speedup := directWall.Seconds() / max(sm.Wall.Seconds(), 1e-9)
		fmt.Fprintf(w, "%.2f\t%d\t%v\t%.1fx\t%s\t%s\t%.2e\n",
			sm.Theta, sm.Threads, sm.Wall.Round(time.Microsecond), speedup,
			humanize.Comma(sm.Stats.Interactions()),
			humanize.Comma(sm.Stats.NodeApproximations),
			sm.MaxRelErr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	best, ok := optim.BestTheta(samples, benchTolerance)
	if !ok {
		fmt.Println(viz.WarnStyle.Render(fmt.Sprintf("no θ stays within a relative error of %g", benchTolerance)))
		return nil
	}
	fmt.Println(viz.Summary("best within tolerance", []viz.Row{
		{Label: "theta", Value: fmt.Sprintf("%g", best.Theta)},
		{Label: "threads", Value: fmt.Sprintf("%d", best.Threads)},
		{Label: "max rel err", Value: fmt.Sprintf("%.2e", best.MaxRelErr)},
		{Label: "interactions", Value: humanize.Comma(best.Stats.Interactions())},
	}))
	return nil
}
