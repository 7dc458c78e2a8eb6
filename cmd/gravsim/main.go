package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	verbose    bool

	v = viper.New()
)

// flagKeys maps settings keys to the run flag that overrides them, where
// the two differ.
var flagKeys = map[string]string{
	"epsilon":        "eps",
	"keep_snapshots": "keep",
}

// main is the entry point for the gravsim CLI; it registers commands and
// flags and exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "gravsim",
		Short:         "Barnes-Hut gravity simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./.gravsim.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every step")
	v.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data"))
	v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a series of a recorded run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotMetric, "metric", "kinetic", "series: kinetic, speed, momentum, angular, x<i>, y<i>")
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")
	plotCmd.Flags().BoolVar(&plotTrails, "trails", false, "draw body trails instead of a series")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export body trajectories of a run as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&svgOutput, "output", "o", "", "output file (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 800, "image height")

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a scenario file from a preset",
		Args:  cobra.ExactArgs(1),
		RunE:  initScenario,
	}
	initCmd.Flags().StringVar(&initPreset, "preset", "three", "preset to write")
	initCmd.Flags().IntVar(&initBodies, "bodies", config.DefaultBodies, "body count for scalable presets")
	initCmd.Flags().Int64Var(&initSeed, "seed", 1, "random seed")

	rootCmd.AddCommand(newRunCmd(), newBenchCmd(), presetsCmd, listCmd, plotCmd, exportJSONCmd, exportSVGCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

// initConfig layers .gravsim.yaml and GRAVSIM_* variables under the bound
// flags.
func initConfig(cmd *cobra.Command) error {
	v.SetEnvPrefix("GRAVSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".gravsim")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadSettings() (config.Settings, error) {
	return config.Load(v)
}

// explicitlySet reports whether key was given by flag, config file or
// environment rather than left at its default.
func explicitlySet(cmd *cobra.Command) func(key string) bool {
	return func(key string) bool {
		name := key
		if f, ok := flagKeys[key]; ok {
			name = f
		}
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return true
		}
		if v.InConfig(key) {
			return true
		}
		_, ok := os.LookupEnv("GRAVSIM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
		return ok
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
