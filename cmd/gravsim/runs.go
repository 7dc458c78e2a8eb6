package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	plotMetric string
	plotWidth  int
	plotHeight int
	plotTrails bool

	svgOutput string
	svgWidth  int
	svgHeight int

	initPreset string
	initBodies int
	initSeed   int64
)

func openStore() (*storage.Store, error) {
	st, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return storage.New(st.DataDir), nil
}

// resolveRun returns the metadata of the named run, or of the latest run
// when args is empty.
func resolveRun(store *storage.Store, args []string) (*storage.RunMetadata, error) {
	if len(args) == 0 {
		return store.Latest()
	}
	return store.Load(args[0])
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCALABLE\tDESCRIPTION")
	for _, p := range config.PresetInfos() {
		scalable := ""
		if p.Scalable {
			scalable = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, scalable, p.Description)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	runs, err := store.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBODIES\tCREATED\tSTEPS\tDT\tTHETA\tTHREADS\tRECORD")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%d\t%s\n",
			run.ID,
			humanize.Comma(int64(run.Bodies)),
			humanize.Time(run.Timestamp),
			humanize.Comma(int64(run.Steps)),
			run.Dt,
			run.Theta,
			run.Threads,
			run.Record,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	meta, err := resolveRun(store, args)
	if err != nil {
		return err
	}

	snaps, err := store.LoadSnapshots(meta.ID)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return fmt.Errorf("run %s holds no snapshots (recorded with %q)", meta.ID, meta.Record)
	}

	fmt.Println(viz.TitleStyle.Render(meta.ID))
	if plotTrails {
		c := viz.NewCanvas(plotWidth, plotHeight)
		view := viz.FitViewport(snaps)
		c.DrawTrails(snaps, view)
		c.DrawBodies(snaps[len(snaps)-1], view)
		fmt.Print(c.String())
		return nil
	}

	values, err := viz.Series(snaps, plotMetric)
	if err != nil {
		return err
	}
	fmt.Println(viz.Plot(values, plotMetric, plotWidth, plotHeight))
	fmt.Println(viz.Separator(plotWidth))
	fmt.Println(viz.SparklineChart(values, plotWidth))
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	meta, err := resolveRun(store, args)
	if err != nil {
		return err
	}
	return store.ExportJSON(os.Stdout, meta.ID)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	meta, err := resolveRun(store, args)
	if err != nil {
		return err
	}
	snaps, err := store.LoadSnapshots(meta.ID)
	if err != nil {
		return err
	}

	svg := viz.TrajectoriesSVG(snaps, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("run %s holds no snapshots to draw", meta.ID)
	}
	out := svgOutput
	if out == "" {
		out = meta.ID + ".svg"
	}
	if err := os.WriteFile(out, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Println("wrote", out)
	return nil
}

func initScenario(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	file, err := config.GetPreset(initPreset, initBodies, initSeed)
	if err != nil {
		return err
	}
	if err := config.SaveScenario(path, file); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s, %s bodies)\n", path, initPreset, humanize.Comma(int64(len(file.Bodies))))
	return nil
}
