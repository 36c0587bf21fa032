package main

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/givis/internal/colorbar"
	"github.com/san-kum/givis/internal/colormap"
	"github.com/san-kum/givis/internal/config"
	"github.com/san-kum/givis/internal/frame"
	"github.com/san-kum/givis/internal/postproc"
	"github.com/san-kum/givis/internal/render"
	"github.com/san-kum/givis/internal/scalar"
	"github.com/san-kum/givis/internal/series"
	"github.com/san-kum/givis/internal/storage"
	"github.com/san-kum/givis/internal/tui"
)

// resolveConfig layers profile, config file, environment and flags, in
// that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if profile != "" {
		cfg = config.GetPreset(profile)
		if cfg == nil {
			return nil, fmt.Errorf("unknown profile: %s (available: %v)", profile, config.ListPresets())
		}
	}
	if configFile != "" {
		if _, err := config.LoadOver(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data = dataDir
	}
	if flags.Changed("variable") {
		cfg.Variable = variable
	}
	if flags.Changed("size") {
		cfg.Size = size
	}
	if flags.Changed("colorbar") {
		cfg.Colorbar = withColorbar
	}
	if flags.Changed("mask") {
		cfg.Mask = withMask
	}
	if flags.Changed("bins") {
		cfg.Bins = bins
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = concurrency
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("cut") {
		cfg.Cut = spatialCut
	}
	if flags.Changed("output") {
		cfg.Output = outputDir
	}
	if flags.Changed("colormap") {
		cfg.Colormap = colormapName
	}
	if flags.Changed("color-by-bin") {
		cfg.ColorByBin = colorByBin
	}
	if flags.Changed("renderer") {
		cfg.Renderer = backend
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("length-scale") {
		cfg.LengthScale = lengthScale
	}
	if flags.Changed("point-size") {
		cfg.PointSize = pointSize
	}
	if flags.Changed("start") {
		cfg.Start = start
	}
	if flags.Changed("end") {
		cfg.End = end
	}
	if flags.Changed("stride") {
		cfg.Stride = stride
	}
	if flags.Changed("t-min") {
		cfg.Normalization.TMin = &tMin
	}
	if flags.Changed("t-max") {
		cfg.Normalization.TMax = &tMax
	}
	if flags.Changed("runs") {
		cfg.RunsDir = runsDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	v, _ := series.ParseVariable(cfg.Variable)

	if info, err := os.Stat(cfg.Data); err != nil || !info.IsDir() {
		return fmt.Errorf("data directory %q does not exist", cfg.Data)
	}
	posPath, varPath, err := series.Locate(cfg.Data, v)
	if err != nil {
		return err
	}
	log.Printf("positions %s, %s %s", posPath, v, varPath)

	src, err := series.Open(posPath, varPath)
	if err != nil {
		return err
	}
	defer src.Close()

	normCfg, presetName, err := cfg.NormalizationFor(v)
	if err != nil {
		return err
	}
	norm, err := scalar.New(normCfg)
	if err != nil {
		return err
	}

	scale, err := colormap.Get(cfg.Colormap)
	if err != nil {
		return err
	}
	table, err := colormap.NewTable(scale, cfg.Bins)
	if err != nil {
		return err
	}

	width, height, _ := config.ParseResolution(cfg.Size)
	opts := render.DefaultOptions()
	opts.Width, opts.Height = width, height
	opts.PointSize = cfg.PointSize
	if cfg.Mask {
		opts.Background = postproc.MaskFrom
	}
	r, err := render.New(cfg.Renderer, opts)
	if err != nil {
		return err
	}
	loc, rot, _ := cfg.CameraVectors()
	if err := r.SetCamera(render.Vec3{X: loc[0], Y: loc[1], Z: loc[2]}, render.Deg(rot[0], rot[1], rot[2])); err != nil {
		return err
	}

	out := cfg.Output
	if out == "" {
		out = series.OutputDir(cfg.Data)
	}

	fcfg := frame.DefaultConfig()
	fcfg.Bins = cfg.Bins
	fcfg.Cut = cfg.Cut
	fcfg.LengthScale = cfg.LengthScale
	fcfg.ColorByBin = cfg.ColorByBin
	fcfg.OutputDir = out
	fcfg.Start, fcfg.End, fcfg.Stride = cfg.Start, cfg.End, cfg.Stride

	orch, err := frame.New(src, norm, table, r, fcfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	total := len(orch.Frames())
	log.Printf("rendering %d of %d frames (%d particles) to %s", total, src.Frames(), src.Particles(), out)

	started := time.Now()
	var result *frame.Result
	if showProgress {
		result, err = runWithProgress(ctx, cancel, orch, total, v)
	} else {
		orch.AddObserver(tui.NewLineReporter(os.Stderr, total, time.Second))
		result, err = orch.Run(ctx)
	}
	if err != nil {
		return err
	}

	if err := postProcess(ctx, cfg, v, framePaths(result), scale); err != nil {
		return err
	}

	st := storage.New(cfg.RunsDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(storage.RunMetadata{
		Variable:   string(v),
		DataDir:    cfg.Data,
		OutputDir:  out,
		Started:    started,
		Finished:   time.Now(),
		Preset:     presetName,
		TMin:       normCfg.TMin,
		TMax:       normCfg.TMax,
		UnitScalar: normCfg.UnitScalar,
		Bins:       cfg.Bins,
		Cut:        cfg.Cut,
		ColorByBin: cfg.ColorByBin,
		Colormap:   cfg.Colormap,
		Width:      width,
		Height:     height,
	}, result)
	if err != nil {
		return err
	}

	printSummary(runID, out, result, time.Since(started))
	return nil
}

func runWithProgress(ctx context.Context, cancel context.CancelFunc, orch *frame.Orchestrator, total int, v series.Variable) (*frame.Result, error) {
	p := tea.NewProgram(tui.NewModel(fmt.Sprintf("givis render %s", v), total, cancel))
	orch.AddObserver(tui.Observer(p))

	var (
		result *frame.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = orch.Run(ctx)
		p.Send(tui.DoneMsg{Err: runErr})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-done
		return nil, err
	}
	<-done
	if m, ok := final.(tui.Model); ok && m.Aborted() {
		n := 0
		if result != nil {
			n = len(result.Frames)
		}
		log.Printf("canceled after %d of %d frames", n, total)
	}
	return result, runErr
}

func framePaths(result *frame.Result) []string {
	paths := make([]string, len(result.Frames))
	for i, st := range result.Frames {
		paths[i] = st.Path
	}
	return paths
}

// postProcess masks backgrounds and pastes the legend onto each frame.
func postProcess(ctx context.Context, cfg *config.Config, v series.Variable, paths []string, scale colormap.Scale) error {
	if len(paths) == 0 || (!cfg.Mask && !cfg.Colorbar) {
		return nil
	}
	mode, err := postproc.ParseMode(cfg.Concurrency)
	if err != nil {
		return err
	}

	var steps []postproc.Step
	if cfg.Mask {
		steps = append(steps, postproc.Mask(postproc.MaskFrom, postproc.MaskTo))
	}
	if cfg.Colorbar {
		_, h, err := postproc.FrameSize(paths[0])
		if err != nil {
			return err
		}
		legend, offset, err := buildLegend(v, scale, h)
		if err != nil {
			return err
		}
		steps = append(steps, postproc.Overlay(legend, offset))
	}

	log.Printf("post-processing %d frames (%s, %d workers)", len(paths), mode, cfg.Workers)
	return postproc.Process(ctx, paths, mode, cfg.Workers, steps...)
}

// buildLegend returns the legend for v sized to the frame height, and
// where it goes on a frame.
func buildLegend(v series.Variable, scale colormap.Scale, height int) (*image.NRGBA, image.Point, error) {
	opts := colorbar.DefaultOptions()
	opts.Values = colorbar.Ranges[string(v)]
	opts.Label = v.Label()
	opts.Scale = scale
	opts.Height = height
	legend, err := colorbar.Build(opts)
	return legend, opts.Offset, err
}
