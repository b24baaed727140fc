package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mechctl/internal/analysis"
	"github.com/san-kum/mechctl/internal/config"
	"github.com/san-kum/mechctl/internal/scenario"
	"github.com/san-kum/mechctl/internal/storage"
)

var (
	configFile string
	preset     string
	logLevel   string
	dataDir    string
	ticks      int
	noSave     bool

	mechanismName string
	settleBand    float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mechctl",
		Short:         "intake and shooter mechanism control bench",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run store directory (defaults to telemetry.store_dir)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario on the simulated bench and store it",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().IntVar(&ticks, "ticks", 0, "override the scenario tick count")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "print metrics without storing the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot position and setpoint of each mechanism in a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTICKS\tDESCRIPTION")
			for _, name := range scenario.ListBuiltins() {
				sc, _ := scenario.Builtin(name, cfg)
				n := sc.Ticks
				if n == 0 {
					n = cfg.Sim.Ticks
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", name, n, sc.Description)
			}
			return w.Flush()
		},
	}

	actionsCmd := &cobra.Command{
		Use:   "actions",
		Short: "list actions a scenario file may use",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, a := range scenario.Actions() {
				fmt.Println(a)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Println(p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and tracking error spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&mechanismName, "mechanism", "intake", "mechanism to analyze")
	analyzeCmd.Flags().Float64Var(&settleBand, "band", 0.05, "settling band in position units")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, scenariosCmd, actionsCmd, presetsCmd, configCmd)
	rootCmd.AddCommand(liveCommand(), serveCommand(), tuneCommand())

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("mechctl failed")
		os.Exit(1)
	}
}

// loadConfig resolves --config and --preset. A config file wins over a
// preset.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.Load(configFile)
	}
	if preset != "" {
		cfg := config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (have %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	dir := dataDir
	if dir == "" {
		dir = cfg.Telemetry.StoreDir
	}
	st := storage.New(dir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sc, err := scenario.Resolve(args[0], cfg)
	if err != nil {
		return err
	}
	if ticks > 0 {
		sc.Ticks = ticks
	}

	bench, err := scenario.NewBench(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := bench.Run(ctx, sc)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", res.Scenario)
	fmt.Printf("ticks: %d (overruns %d) in %v\n\n", res.Ticks, res.Overruns, res.Elapsed)
	printMetrics(res.Metrics)

	if noSave {
		return nil
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	id, err := st.Save(storage.RunMetadata{
		Scenario: res.Scenario,
		Preset:   preset,
		Period:   cfg.Period,
		Ticks:    res.Ticks,
		Overruns: res.Overruns,
		Metrics:  res.Metrics,
	}, res.Series)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved: %s\n", id)
	return nil
}

func printMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.4f\n", name, metrics[name])
	}
	w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tTICKS\tPERIOD\tOVERRUNS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.3fs\t%d\n",
			run.ID,
			run.Scenario,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Ticks,
			run.Period,
			run.Overruns,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("ticks: %d\n\n", meta.Ticks)

	for _, mech := range meta.Mechanisms {
		series, err := st.LoadSeries(runID, mech)
		if err != nil {
			return err
		}
		if len(series) == 0 {
			continue
		}
		pos := make([]float64, len(series))
		sp := make([]float64, len(series))
		for i, snap := range series {
			pos[i] = finiteOr(snap.Position, 0)
			sp[i] = finiteOr(snap.Setpoint, pos[i])
		}

		graph := asciigraph.PlotMany([][]float64{pos, sp},
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption(mech+" position / setpoint"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	return st.Export(os.Stdout, args[0])
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID, mechanismName)
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return fmt.Errorf("no data for %s", mechanismName)
	}

	fmt.Printf("analysis: %s (%s)\n\n", meta.ID, mechanismName)

	from := 0
	for i, snap := range series {
		if math.Abs(snap.Setpoint-snap.Position) > settleBand {
			from = i
			break
		}
	}
	if r, ok := analysis.StepResponse(series, from, settleBand); ok {
		fmt.Printf("step: %.3f -> %.3f\n", r.Start, r.Target)
		fmt.Printf("rise tick: %d\n", r.RiseTick)
		fmt.Printf("overshoot: %.1f%%\n", r.Overshoot*100)
		fmt.Printf("settle tick: %d\n", r.SettleTick)
		fmt.Printf("final: %.4f\n\n", r.Final)
	} else {
		fmt.Println("no setpoint move found")
		fmt.Println()
	}

	bins := analysis.Spectrum(analysis.TrackingError(series), meta.Period)
	if len(bins) < 2 {
		return nil
	}
	powers := analysis.Powers(bins)
	graph := asciigraph.Plot(powers[:len(powers)/4+1],
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption("tracking error power spectrum"),
	)
	fmt.Println(graph)
	fmt.Println()

	if peak, ok := analysis.Dominant(bins); ok {
		fmt.Printf("dominant frequency: %.3f hz\n", peak.Frequency)
		if peak.Frequency > 0 {
			fmt.Printf("period: %.3f s\n", 1.0/peak.Frequency)
		}
	}
	return nil
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
