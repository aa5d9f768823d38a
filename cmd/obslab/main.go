package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/obslab/internal/analysis"
	"github.com/san-kum/obslab/internal/config"
	"github.com/san-kum/obslab/internal/lti"
	"github.com/san-kum/obslab/internal/metrics"
	"github.com/san-kum/obslab/internal/observer"
	"github.com/san-kum/obslab/internal/plot"
	"github.com/san-kum/obslab/internal/sim"
	"github.com/san-kum/obslab/internal/storage"
	"github.com/san-kum/obslab/internal/sweep"
	"github.com/san-kum/obslab/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	stiffness float64
	mass      float64
	damping   float64
	gain      []float64
	x0        []float64
	xhat0     []float64
	input     float64
	steps     int
	dt        float64
	t0        float64

	chart bool

	plotDir    string
	plotFormat string
	exportOut  string

	sweepParam   string
	sweepFrom    float64
	sweepTo      float64
	sweepCount   int
	sweepWorkers int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "obslab",
		Short: "spring-mass state observer lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".obslab", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate the oscillator and its observer",
		RunE:  runSimulation,
	}
	addParamFlags(runCmd)
	runCmd.Flags().BoolVar(&chart, "chart", false, "print a terminal position chart after the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "write time-series and phase figures for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotDir, "out", ".", "output directory")
	plotCmd.Flags().StringVar(&plotFormat, "format", "png", "figure format (png or svg)")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "terminal phase portrait of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePortrait,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "watch the observer converge live",
		RunE:  runLive,
	}
	addParamFlags(liveCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "observer stability report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}
	addParamFlags(analyzeCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one parameter and tabulate convergence",
		RunE:  runSweep,
	}
	addParamFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "damping", "axis to sweep (damping, stiffness, gain0, gain1, dt)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0.0, "grid start")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1.0, "grid end")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 11, "grid points")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "concurrent simulations (0 = NumCPU)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run series to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSVRun,
	}
	exportCSVCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run series and metrics to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSONRun,
	}
	exportJSONCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresetTable,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, phaseCmd, liveCmd, analyzeCmd, sweepCmd, exportCSVCmd, exportJSONCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addParamFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&stiffness, "stiffness", config.DefaultStiffness, "spring constant k")
	cmd.Flags().Float64Var(&mass, "mass", config.DefaultMass, "mass m")
	cmd.Flags().Float64Var(&damping, "damping", config.DefaultDamping, "damping coefficient b")
	cmd.Flags().Float64SliceVar(&gain, "gain", []float64{0.5, -0.1}, "observer gain")
	cmd.Flags().Float64SliceVar(&x0, "x0", []float64{1.0, 0.0}, "initial state (position,velocity)")
	cmd.Flags().Float64SliceVar(&xhat0, "xhat0", []float64{0.0, 0.0}, "initial estimate (position,velocity)")
	cmd.Flags().Float64Var(&input, "input", 0.0, "constant input force")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "samples to record")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&t0, "t0", 0.0, "start time")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// loadConfig resolves precedence: defaults, then preset, then config file,
// then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("stiffness") {
		cfg.Stiffness = stiffness
	}
	if f.Changed("mass") {
		cfg.Mass = mass
	}
	if f.Changed("damping") {
		cfg.Damping = damping
	}
	if f.Changed("gain") {
		cfg.Gain = append([]float64(nil), gain...)
	}
	if f.Changed("x0") {
		cfg.InitState = append([]float64(nil), x0...)
	}
	if f.Changed("xhat0") {
		cfg.InitEstimate = append([]float64(nil), xhat0...)
	}
	if f.Changed("input") {
		cfg.Input = input
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("t0") {
		cfg.T0 = t0
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildSimulator(cfg *config.Config) (*sim.Simulator, error) {
	sys, err := lti.NewSpringMass(cfg.Stiffness, cfg.Mass, cfg.Damping)
	if err != nil {
		return nil, err
	}
	obs, err := observer.NewLuenberger(sys, mat.NewDense(len(cfg.Gain), 1, append([]float64(nil), cfg.Gain...)))
	if err != nil {
		return nil, err
	}
	return sim.New(sys, obs, sim.Config{
		Steps:    cfg.Steps,
		Dt:       cfg.Dt,
		T0:       cfg.T0,
		Input:    cfg.Input,
		X0:       cfg.InitState,
		Xhat0:    cfg.InitEstimate,
		Validate: true,
	})
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}
	s.AddMetric(metrics.NewEnergy(cfg.Mass, cfg.Stiffness))
	s.AddMetric(metrics.NewEnergyDrift(cfg.Mass, cfg.Stiffness))
	s.AddMetric(metrics.NewEstimationError())
	s.AddMetric(metrics.NewErrorRatio())

	fmt.Println("running spring-mass observer simulation...")
	start := time.Now()
	res, runErr := s.Run(context.Background())
	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, res, runErr)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", res.Steps)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, res.Metrics[name])
	}

	if chart && len(res.States) > 1 {
		fmt.Println()
		fmt.Println(viz.Overlay(
			[][]float64{res.Component(0), res.EstimateComponent(0)},
			[]string{"true", "estimated"},
			80, 12,
		))
	}

	// A diverged or canceled run is still saved; surface it as the exit status.
	return runErr
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTEPS\tDT\tDAMPING\tGAIN\tSTATUS")
	for _, run := range runs {
		dtVal, damp, gainStr := 0.0, 0.0, "-"
		if p := run.Params; p != nil {
			dtVal, damp = p.Dt, p.Damping
			if len(p.Gain) == 2 {
				gainStr = fmt.Sprintf("[%.2f %.2f]", p.Gain[0], p.Gain[1])
			}
		}
		status := "ok"
		if run.Error != "" {
			status = "aborted"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.2f\t%s\t%s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Steps,
			dtVal,
			damp,
			gainStr,
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	if plotFormat != "png" && plotFormat != "svg" {
		return fmt.Errorf("unknown format: %s (want png or svg)", plotFormat)
	}

	st := storage.New(dataDir)
	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}

	seriesPath := filepath.Join(plotDir, args[0]+"_timeseries."+plotFormat)
	if err := plot.SaveTimeSeries(res, seriesPath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", seriesPath)

	phasePath := filepath.Join(plotDir, args[0]+"_phase."+plotFormat)
	if err := plot.SavePhase(res, phasePath); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", phasePath)
	return nil
}

func phasePortrait(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(res.States) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("phase space trajectory: %s\n", meta.ID)
	fmt.Printf("samples: %d  viewport: %.1f..%.1f\n\n", res.Steps, viz.PhaseMin, viz.PhaseMax)
	fmt.Print(viz.PhasePortrait(res, 60, 20))
	fmt.Println("\ntrue: connected trace  estimated: dots")
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := buildSimulator(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(s, cfg.Stiffness, cfg.Mass, cfg.Damping))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var res *sim.Result
	if len(args) == 1 {
		st := storage.New(dataDir)
		meta, err := st.Load(args[0])
		if err != nil {
			return err
		}
		if meta.Params != nil {
			cfg = meta.Params
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("stored run has invalid parameters: %w", err)
			}
		}
		res, err = st.LoadSeries(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("run: %s\n", meta.ID)
	}

	sys, err := lti.NewSpringMass(cfg.Stiffness, cfg.Mass, cfg.Damping)
	if err != nil {
		return err
	}
	obs, err := observer.NewLuenberger(sys, mat.NewDense(len(cfg.Gain), 1, append([]float64(nil), cfg.Gain...)))
	if err != nil {
		return err
	}

	report, err := analysis.AnalyzeObserver(sys, obs, cfg.Dt)
	if err != nil {
		return err
	}
	observable, err := analysis.Observable(sys)
	if err != nil {
		return err
	}

	fmt.Printf("model: k=%.3f m=%.3f b=%.3f dt=%.3f\n", cfg.Stiffness, cfg.Mass, cfg.Damping, cfg.Dt)
	fmt.Printf("gain: [%.3f %.3f]\n\n", cfg.Gain[0], cfg.Gain[1])
	fmt.Printf("observable: %v\n", observable)
	fmt.Print("continuous poles:")
	for _, p := range report.ContinuousPoles {
		fmt.Printf(" %.4f%+.4fi", real(p), imag(p))
	}
	fmt.Println()
	fmt.Print("discrete poles:  ")
	for _, p := range report.DiscretePoles {
		fmt.Printf(" %.4f%+.4fi", real(p), imag(p))
	}
	fmt.Println()
	fmt.Printf("spectral radius: %.6f\n", report.SpectralRadius)
	if report.Stable {
		fmt.Println("error map: contracting")
	} else {
		fmt.Println("error map: DIVERGENT")
	}
	fmt.Printf("natural frequency: %.4f hz\n", report.NaturalFreq)

	if res != nil && len(res.States) > 0 {
		errs := analysis.ErrorSeries(res)
		fmt.Println()
		fmt.Printf("dominant frequency: %.4f hz\n", analysis.DominantFrequency(res.Component(0), cfg.Dt))
		if step := analysis.SettlingStep(errs, 0.05); step >= 0 {
			fmt.Printf("settling step (5%%): %d (t=%.2fs)\n", step, res.Times[step])
		} else {
			fmt.Println("settling step (5%): not reached")
		}
		fmt.Printf("final error: %.6f\n", errs[len(errs)-1])
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	axis, err := sweep.ParseAxis(sweepParam)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s over [%g, %g] with %d points...\n", axis, sweepFrom, sweepTo, sweepCount)
	start := time.Now()
	points, err := sweep.Run(context.Background(), cfg, axis, sweepFrom, sweepTo, sweepCount, sweepWorkers)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tFINAL_ERROR\tSETTLED\tSTATUS")
	for _, pt := range points {
		settled := "-"
		if pt.Settled >= 0 {
			settled = strconv.Itoa(pt.Settled)
		}
		status := "ok"
		if pt.Err != nil {
			status = pt.Err.Error()
		}
		fmt.Fprintf(w, "%.4f\t%.6f\t%s\t%s\n", pt.Value, pt.FinalError, settled, status)
	}
	return w.Flush()
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if len(res.States) == 0 {
		return fmt.Errorf("no data to export")
	}

	out, closeOut, err := exportWriter()
	if err != nil {
		return err
	}
	defer closeOut()
	return storage.ExportCSV(out, res)
}

func exportJSONRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	res.Metrics = meta.Metrics

	out, closeOut, err := exportWriter()
	if err != nil {
		return err
	}
	defer closeOut()
	return storage.ExportJSON(out, meta, res)
}

func exportWriter() (*os.File, func(), error) {
	if exportOut == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func listPresetTable(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tK\tM\tB\tGAIN\tSTEPS\tDT")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t[%.2f %.2f]\t%d\t%.3f\n",
			name, p.Stiffness, p.Mass, p.Damping, p.Gain[0], p.Gain[1], p.Steps, p.Dt)
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
