package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/givis/internal/binning"
	"github.com/san-kum/givis/internal/colormap"
	"github.com/san-kum/givis/internal/config"
	"github.com/san-kum/givis/internal/frame"
	"github.com/san-kum/givis/internal/postproc"
	"github.com/san-kum/givis/internal/scalar"
	"github.com/san-kum/givis/internal/series"
	"github.com/san-kum/givis/internal/storage"
)

var (
	configFile string
	runsDir    string
	profile    string

	dataDir      string
	variable     string
	size         string
	withColorbar bool
	withMask     bool
	bins         int
	concurrency  string
	workers      int
	spatialCut   bool
	outputDir    string
	colormapName string
	colorByBin   bool
	backend      string
	preset       string
	lengthScale  float64
	pointSize    int
	start        int
	end          int
	stride       int
	tMin         float64
	tMax         float64
	showProgress bool

	frameIndex int
	asJSON     bool
	synth      = series.DefaultSynthConfig()
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
)

func main() {
	log.SetPrefix("[GIVIS] ")
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "givis",
		Short:         "render particle simulation frames colored by a scalar field",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&runsDir, "runs", config.DefaultRunsDir, "run manifest directory")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render every frame of a series to PNG",
		Args:  cobra.NoArgs,
		RunE:  runRender,
	}
	f := renderCmd.Flags()
	f.StringVarP(&dataDir, "data", "p", ".", "directory holding *_pos.npy and *_T.npy / *_P.npy")
	f.StringVarP(&variable, "variable", "v", "temperature", "scalar to color by (temperature|t|pressure|p)")
	f.StringVarP(&size, "size", "s", config.DefaultSize, "output resolution WxH")
	f.BoolVar(&withColorbar, "colorbar", false, "paste a legend onto every frame")
	f.BoolVar(&withMask, "mask", false, "replace the transparent background with opaque black")
	f.IntVarP(&bins, "bins", "b", config.DefaultBins, "number of color classes")
	f.StringVar(&concurrency, "concurrency", config.DefaultConcurrency, "post-processing mode (serial|parallel)")
	f.IntVarP(&workers, "workers", "c", config.DefaultWorkers, "post-processing workers")
	f.BoolVar(&spatialCut, "cut", false, "keep only particles with z < 0")
	f.StringVar(&outputDir, "output", "", "frame directory (default: render/ next to the data directory)")
	f.StringVar(&colormapName, "colormap", config.DefaultColormap, fmt.Sprintf("color scale %v", colormap.Names()))
	f.BoolVar(&colorByBin, "color-by-bin", false, "color classes by histogram bin instead of list position")
	f.StringVar(&backend, "renderer", config.DefaultRenderer, "renderer backend (software|null)")
	f.StringVar(&preset, "preset", "", fmt.Sprintf("normalization preset %v", scalar.ListPresets()))
	f.StringVar(&profile, "profile", "", fmt.Sprintf("run profile %v", config.ListPresets()))
	f.Float64Var(&lengthScale, "length-scale", config.DefaultLengthScale, "positions are divided by this")
	f.IntVar(&pointSize, "point-size", config.DefaultPointSize, "splat radius in pixels")
	f.IntVar(&start, "start", 0, "first frame")
	f.IntVar(&end, "end", 0, "stop before this frame (0: all)")
	f.IntVar(&stride, "stride", 1, "frame step")
	f.Float64Var(&tMin, "t-min", 0, "override the preset lower bound")
	f.Float64Var(&tMax, "t-max", 0, "override the preset upper bound")
	f.BoolVar(&showProgress, "progress", false, "show an interactive progress view")

	postCmd := &cobra.Command{
		Use:   "post [dir]",
		Short: "mask and/or add a legend to rendered frames",
		Args:  cobra.ExactArgs(1),
		RunE:  runPost,
	}
	postCmd.Flags().StringVarP(&variable, "variable", "v", "temperature", "variable the legend describes")
	postCmd.Flags().StringVar(&colormapName, "colormap", config.DefaultColormap, "color scale")
	postCmd.Flags().BoolVar(&withColorbar, "colorbar", false, "paste a legend onto every frame")
	postCmd.Flags().BoolVar(&withMask, "mask", false, "replace the transparent background with opaque black")
	postCmd.Flags().StringVar(&concurrency, "concurrency", config.DefaultConcurrency, "serial|parallel")
	postCmd.Flags().IntVarP(&workers, "workers", "c", config.DefaultWorkers, "workers")

	colorbarCmd := &cobra.Command{
		Use:   "colorbar",
		Short: "write the legend image alone",
		Args:  cobra.NoArgs,
		RunE:  runColorbar,
	}
	colorbarCmd.Flags().StringVarP(&variable, "variable", "v", "temperature", "temperature|pressure")
	colorbarCmd.Flags().StringVar(&colormapName, "colormap", config.DefaultColormap, "color scale")
	colorbarCmd.Flags().StringVarP(&size, "size", "s", config.DefaultSize, "frame resolution the legend is sized for")
	colorbarCmd.Flags().StringVar(&outputDir, "output", "colorbar.png", "output file")

	histCmd := &cobra.Command{
		Use:   "hist",
		Short: "plot the normalized value histogram of one frame",
		Args:  cobra.NoArgs,
		RunE:  runHist,
	}
	histCmd.Flags().StringVarP(&dataDir, "data", "p", ".", "data directory")
	histCmd.Flags().StringVarP(&variable, "variable", "v", "temperature", "temperature|pressure")
	histCmd.Flags().StringVar(&preset, "preset", "", "normalization preset")
	histCmd.Flags().IntVarP(&bins, "bins", "b", 40, "histogram bins")
	histCmd.Flags().IntVar(&frameIndex, "frame", 0, "frame index")
	histCmd.Flags().BoolVar(&spatialCut, "cut", false, "keep only particles with z < 0")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot color classes per frame of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list normalization presets and run profiles",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	synthCmd := &cobra.Command{
		Use:   "synth [dir]",
		Short: "write a synthetic series to try the tool on",
		Args:  cobra.ExactArgs(1),
		RunE:  runSynth,
	}
	synthCmd.Flags().StringVar(&synth.Name, "name", synth.Name, "file name prefix")
	synthCmd.Flags().IntVar(&synth.Particles, "particles", synth.Particles, "particle count")
	synthCmd.Flags().IntVar(&synth.Frames, "frames", synth.Frames, "frame count")
	synthCmd.Flags().Int64Var(&synth.Seed, "seed", synth.Seed, "random seed")

	rootCmd.AddCommand(renderCmd, postCmd, colorbarCmd, histCmd, runsCmd, showCmd, presetsCmd, synthCmd)
	return rootCmd
}

func printSummary(runID, out string, result *frame.Result, elapsed time.Duration) {
	particles, maxGroups := 0, 0
	for _, st := range result.Frames {
		particles += st.Particles
		maxGroups = max(maxGroups, st.Groups)
	}
	row := func(k, v string) {
		fmt.Printf("  %s %s\n", keyStyle.Render(fmt.Sprintf("%-10s", k)), valueStyle.Render(v))
	}
	fmt.Println(titleStyle.Render("render complete"))
	row("run", runID)
	row("frames", fmt.Sprintf("%d", len(result.Frames)))
	row("particles", fmt.Sprintf("%d", particles))
	row("classes", fmt.Sprintf("max %d", maxGroups))
	row("output", out)
	row("elapsed", elapsed.Round(time.Millisecond).String())
}

func runPost(cmd *cobra.Command, args []string) error {
	paths, err := postproc.Frames(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no frames in %s", args[0])
	}
	v, err := series.ParseVariable(variable)
	if err != nil {
		return err
	}
	scale, err := colormap.Get(colormapName)
	if err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	cfg.Mask, cfg.Colorbar = withMask, withColorbar
	cfg.Concurrency, cfg.Workers = concurrency, workers
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := postProcess(cmd.Context(), cfg, v, paths, scale); err != nil {
		return err
	}
	fmt.Printf("processed %d frames in %s\n", len(paths), args[0])
	return nil
}

func runColorbar(cmd *cobra.Command, args []string) error {
	v, err := series.ParseVariable(variable)
	if err != nil {
		return err
	}
	scale, err := colormap.Get(colormapName)
	if err != nil {
		return err
	}
	_, h, err := config.ParseResolution(size)
	if err != nil {
		return err
	}
	legend, _, err := buildLegend(v, scale, h)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(outputDir); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := postproc.WritePNG(outputDir, legend); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%dx%d)\n", outputDir, legend.Bounds().Dx(), legend.Bounds().Dy())
	return nil
}

func runHist(cmd *cobra.Command, args []string) error {
	v, err := series.ParseVariable(variable)
	if err != nil {
		return err
	}
	posPath, varPath, err := series.Locate(dataDir, v)
	if err != nil {
		return err
	}
	src, err := series.Open(posPath, varPath)
	if err != nil {
		return err
	}
	defer src.Close()

	cfg := config.DefaultConfig()
	cfg.Preset = preset
	normCfg, name, err := cfg.NormalizationFor(v)
	if err != nil {
		return err
	}
	norm, err := scalar.New(normCfg)
	if err != nil {
		return err
	}

	pos, raw, err := src.Frame(frameIndex, nil, nil)
	if err != nil {
		return err
	}
	if spatialCut {
		kept := raw[:0]
		for i, p := range pos {
			if p[2] < 0 {
				kept = append(kept, raw[i])
			}
		}
		raw = kept
	}
	if len(raw) == 0 {
		fmt.Println("frame is empty")
		return nil
	}

	vals := norm.Normalize(nil, raw)
	counts, edges, err := binning.Histogram(vals, bins)
	if err != nil {
		return err
	}
	data := make([]float64, len(counts))
	for i, c := range counts {
		data[i] = float64(c)
	}
	_, occupied, err := binning.Partition(vals, make([][3]float64, len(vals)), bins)
	if err != nil {
		return err
	}

	fmt.Printf("frame %d of %s, %d particles, preset %s\n", frameIndex, v, len(vals), name)
	fmt.Printf("normalized range [%.4f, %.4f], %d occupied classes\n\n", edges[0], edges[len(edges)-1], len(occupied))
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("particles per bin (%d bins)", bins)),
	))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(runsDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVARIABLE\tSTARTED\tFRAMES\tBINS\tRANGE\tCUT\tOUTPUT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t[%g, %g]\t%t\t%s\n",
			run.ID,
			run.Variable,
			run.Started.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Bins,
			run.TMin,
			run.TMax,
			run.Cut,
			run.OutputDir,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(runsDir)

	if asJSON {
		return st.ExportJSON(os.Stdout, runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no frames recorded for %s", runID)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("variable: %s  range [%g, %g] x %g\n", meta.Variable, meta.TMin, meta.TMax, meta.UnitScalar)
	fmt.Printf("frames: %d  bins: %d  output: %s\n\n", len(frames), meta.Bins, meta.OutputDir)

	classes := make([]float64, len(frames))
	particles := make([]float64, len(frames))
	for i, fr := range frames {
		classes[i] = float64(fr.Classes)
		particles[i] = float64(fr.Particles)
	}
	fmt.Println(asciigraph.Plot(classes,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("color classes per frame"),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(particles,
		asciigraph.Height(6),
		asciigraph.Width(80),
		asciigraph.Caption("particles drawn per frame"),
	))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tT_MIN\tT_MAX\tUNIT")
	for _, name := range scalar.ListPresets() {
		p, _ := scalar.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\n", name, p.TMin, p.TMax, p.UnitScalar)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nprofiles:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Printf("  %-10s %s %s, %d bins\n", name, p.Variable, p.Size, p.Bins)
	}
	return nil
}

func runSynth(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if err := series.Synthesize(dir, synth); err != nil {
		return err
	}
	fmt.Printf("wrote %d particles x %d frames to %s\n", synth.Particles, synth.Frames, dir)
	fmt.Printf("try: givis render -p %s -v t --colorbar\n", dir)
	return nil
}

