// Command vodstage is the CLI entry point for the content-adaptive
// scene-parallel encoding driver.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/discovery"
	"github.com/vodstage/vodstage/internal/engine"
	"github.com/vodstage/vodstage/internal/logging"
	"github.com/vodstage/vodstage/internal/merge"
	"github.com/vodstage/vodstage/internal/metrics"
	"github.com/vodstage/vodstage/internal/probe"
	"github.com/vodstage/vodstage/internal/report"
	"github.com/vodstage/vodstage/internal/scene"
	"github.com/vodstage/vodstage/internal/splitter"
	"github.com/vodstage/vodstage/internal/util"
	"github.com/vodstage/vodstage/internal/validate"
)

const (
	appName    = "vodstage"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encode":
		if err := runEncodeCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "batch":
		if err := runBatchCommand(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `%s - content-adaptive scene-parallel video encoding driver

Usage:
  %s encode [flags] <source> <output_directory>
  %s batch [flags] <input_directory> <output_directory>
  %s version
  %s help

Flags (encode, batch):
  --encoder string            aomenc, rav1e, svt-av1, vpxenc, x264, x265 (default "x264")
  --preset string              codec-specific preset (default "ultrafast")
  --workers int                worker pool size, 0 = runtime.NumCPU() (default 0)
  --mode string                qp, crf, bitrate (default "qp")
  --quality-metric string      direct, psnr, ssim, vmaf, ssimulacra2, bitrate (default "direct")
  --quality-rule string        maximum, minimum, target (default "minimum")
  --quality-mean                use mean instead of percentile reduction
  --quality-percentile float   reduction percentile in [0,1] (default 0.05)
  --quality float               target/direct quality value (default 23.0)
  --no-crop                     disable automatic crop detection
  --verbose                     enable debug-level output
  --no-log                      disable file logging
  --log-dir string              override the default XDG log directory
`, appName, appName, appName, appName, appName)
}

type cliFlags struct {
	encoder    string
	preset     string
	workers    int
	mode       string
	metric     string
	rule       string
	mean       bool
	percentile float64
	quality    float64
	noCrop     bool
	verbose    bool
	noLog      bool
	logDir     string
}

func parseFlags(name string, args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	f := &cliFlags{}
	fs.StringVar(&f.encoder, "encoder", config.DefaultEncoder.String(), "codec family")
	fs.StringVar(&f.preset, "preset", config.DefaultPreset, "codec preset")
	fs.IntVar(&f.workers, "workers", 0, "worker pool size (0 = runtime default)")
	fs.StringVar(&f.mode, "mode", config.DefaultMode.String(), "quality axis")
	fs.StringVar(&f.metric, "quality-metric", config.DefaultMetric.String(), "objective quality metric")
	fs.StringVar(&f.rule, "quality-rule", config.DefaultRule.String(), "bisection rule")
	fs.BoolVar(&f.mean, "quality-mean", false, "use mean instead of percentile reduction")
	fs.Float64Var(&f.percentile, "quality-percentile", config.DefaultQualityPercentile, "reduction percentile")
	fs.Float64Var(&f.quality, "quality", config.DefaultQuality, "target/direct quality value")
	fs.BoolVar(&f.noCrop, "no-crop", false, "disable automatic crop detection")
	fs.BoolVar(&f.verbose, "verbose", false, "enable debug-level output")
	fs.BoolVar(&f.noLog, "no-log", false, "disable file logging")
	fs.StringVar(&f.logDir, "log-dir", logging.DefaultLogDir(), "log directory")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func (f *cliFlags) buildConfig(source, outDir string) (*config.Config, error) {
	enc, err := config.ParseEncoder(f.encoder)
	if err != nil {
		return nil, err
	}
	mode, err := config.ParseMode(f.mode)
	if err != nil {
		return nil, err
	}
	metric, err := config.ParseMetric(f.metric)
	if err != nil {
		return nil, err
	}
	rule, err := config.ParseRule(f.rule)
	if err != nil {
		return nil, err
	}

	cfg := config.New(source, outDir)
	cfg.Encoder = enc
	cfg.Preset = f.preset
	cfg.Workers = f.workers
	cfg.Mode = mode
	cfg.Metric = metric
	cfg.Rule = rule
	cfg.UseMean = f.mean
	cfg.Percentile = f.percentile
	cfg.Quality = f.quality
	cfg.DisableCrop = f.noCrop

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runEncodeCommand(args []string) error {
	f, rest, err := parseFlags("encode", args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("encode requires exactly two positional arguments: <source> <output_directory>")
	}

	cfg, err := f.buildConfig(rest[0], rest[1])
	if err != nil {
		return err
	}

	logger, err := logging.Setup(f.logDir, f.verbose, f.noLog, os.Args)
	if err != nil {
		return err
	}
	defer logger.Close()

	rep := buildReporter(f.verbose, logger)
	metrics.SetThreadBudget(effectiveWorkers(cfg.Workers))

	_, err = runPipeline(cfg, rep)
	if err != nil {
		rep.Error(report.ReporterError{
			Title:   "encode failed",
			Message: err.Error(),
			Context: cfg.Source,
		})
		return err
	}
	rep.OperationComplete(fmt.Sprintf("encoded %s", cfg.Source))
	return nil
}

func runBatchCommand(args []string) error {
	f, rest, err := parseFlags("batch", args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("batch requires exactly two positional arguments: <input_directory> <output_directory>")
	}
	inputDir, outputRoot := rest[0], rest[1]

	files, err := discovery.FindVideoFiles(inputDir)
	if err != nil {
		return fmt.Errorf("discover source files in %s: %w", inputDir, err)
	}

	logger, err := logging.Setup(f.logDir, f.verbose, f.noLog, os.Args)
	if err != nil {
		return err
	}
	defer logger.Close()

	rep := buildReporter(f.verbose, logger)
	metrics.SetThreadBudget(effectiveWorkers(f.workers))

	names := make([]string, len(files))
	for i, p := range files {
		names[i] = filepath.Base(p)
	}
	rep.BatchStarted(report.BatchStartInfo{TotalFiles: len(files), OutputDir: outputRoot, FileList: names})

	var summary report.BatchSummary
	summary.TotalFiles = len(files)
	start := time.Now()

	for i, source := range files {
		name := filepath.Base(source)
		rep.FileProgress(report.FileProgressContext{CurrentFile: i + 1, TotalFiles: len(files), Filename: name})

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		outDir := filepath.Join(outputRoot, stem)

		cfg, err := f.buildConfig(source, outDir)
		if err != nil {
			rep.Error(report.ReporterError{Title: "invalid configuration", Message: err.Error(), Context: source})
			continue
		}

		outcome, err := runPipeline(cfg, rep)
		if err != nil {
			rep.Error(report.ReporterError{Title: "encode failed", Message: err.Error(), Context: source})
			continue
		}

		summary.SuccessfulCount++
		summary.TotalOriginalSize += outcome.OriginalSize
		summary.TotalEncodedSize += outcome.EncodedSize
		reduction := util.CalculateSizeReduction(outcome.OriginalSize, outcome.EncodedSize)
		summary.FileResults = append(summary.FileResults, report.FileResult{Filename: name, Reduction: reduction})
	}

	summary.TotalDuration = time.Since(start)
	if summary.TotalDuration > 0 {
		summary.AverageSpeed = float64(summary.SuccessfulCount) / summary.TotalDuration.Hours()
	}
	rep.BatchComplete(summary)
	return nil
}

func buildReporter(verbose bool, logger *logging.Logger) report.Reporter {
	reporters := []report.Reporter{report.NewTerminalReporterVerbose(verbose)}
	if logger != nil {
		reporters = append(reporters, report.NewLogReporter(logger.Writer()))
	}
	return report.CompositeReporter{Reporters: reporters}
}

func effectiveWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return runtime.NumCPU()
}

// runPipeline drives one source through the full pipeline: metadata
// probe, scene catalog, scene splitter, encode engine, merger,
// validation, reporting. Returns the final encoding outcome.
func runPipeline(cfg *config.Config, rep report.Reporter) (report.EncodingOutcome, error) {
	runStart := time.Now()

	meta, err := probe.Get(cfg.Source, cfg.OutputDir, cfg.DisableCrop)
	if err != nil {
		return report.EncodingOutcome{}, fmt.Errorf("probe metadata: %w", err)
	}

	rep.CropResult(report.CropSummary{
		Disabled: cfg.DisableCrop,
		Required: meta.CropFilter != "",
		Crop:     meta.CropFilter,
		Message:  cropMessage(meta.CropFilter),
	})

	scenes, err := scene.Get(cfg, meta)
	if err != nil {
		return report.EncodingOutcome{}, fmt.Errorf("build scene catalog: %w", err)
	}

	outputName := cfg.EncodeIdentifier(true, engine.TuneArguments(cfg)) + ".mkv"
	outputPath := filepath.Join(cfg.OutputDir, "output", outputName)

	rep.Initialization(report.InitializationSummary{
		InputFile:    cfg.Source,
		OutputFile:   outputPath,
		Duration:     util.FormatDurationFromSecs(int64(meta.Duration)),
		Resolution:   fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		DynamicRange: dynamicRangeLabel(meta.IsHDR),
		SceneCount:   len(scenes),
	})

	rep.EncodingConfig(report.EncodingConfigSummary{
		Encoder: cfg.Encoder.String(),
		Preset:  cfg.Preset,
		Mode:    cfg.Mode.String(),
		Metric:  cfg.Metric.String(),
		Rule:    cfg.Rule.String(),
		Quality: fmt.Sprintf("%g", cfg.Quality),
		Workers: effectiveWorkers(cfg.Workers),
	})

	if err := splitter.Split(cfg, meta, scenes, func(uint64) {}); err != nil {
		return report.EncodingOutcome{}, fmt.Errorf("split scenes: %w", err)
	}

	results, err := driveEncode(cfg, scenes, meta, rep)
	if err != nil {
		return report.EncodingOutcome{}, err
	}

	if err := merge.Merge(results, outputPath); err != nil {
		return report.EncodingOutcome{}, fmt.Errorf("merge scenes: %w", err)
	}

	valResult, err := validate.Run(outputPath, validate.Expected{
		Duration: meta.Duration,
		Width:    meta.Width,
		Height:   meta.Height,
		IsHDR:    meta.IsHDR,
	})
	if err != nil {
		rep.Warning(fmt.Sprintf("post-merge validation could not run: %v", err))
	} else {
		steps := make([]report.ValidationStep, len(valResult.Steps))
		for i, s := range valResult.Steps {
			steps[i] = report.ValidationStep{Name: s.Name, Passed: s.Passed, Details: s.Details}
		}
		rep.ValidationComplete(report.ValidationSummary{Passed: valResult.Passed, Steps: steps})
	}

	if err := writeReports(cfg, meta, results, outputPath); err != nil {
		rep.Warning(fmt.Sprintf("report generation failed: %v", err))
	}

	originalSize := fileSize(cfg.Source)
	encodedSize := fileSize(outputPath)
	totalTime := time.Since(runStart)
	speed := 0.0
	if totalTime.Seconds() > 0 {
		speed = meta.Duration / totalTime.Seconds()
	}

	outcome := report.EncodingOutcome{
		OutputFile:   filepath.Base(outputPath),
		OutputPath:   outputPath,
		OriginalSize: originalSize,
		EncodedSize:  encodedSize,
		TotalTime:    totalTime,
		AverageSpeed: speed,
		SceneCount:   len(scenes),
	}
	rep.EncodingComplete(outcome)
	return outcome, nil
}

// driveEncode runs the Encode Engine's worker pool and feeds its live
// per-scene completions and stderr progress lines into the reporter's
// progress aggregator.
func driveEncode(cfg *config.Config, scenes []scene.Scene, meta *probe.Metadata, rep report.Reporter) ([]engine.SceneResult, error) {
	var (
		mu             sync.Mutex
		started        = map[int]bool{}
		scenesComplete int64
		encodeStart    = time.Now()
	)
	total := len(scenes)

	onProgress := func(sceneIndex int, line string) {
		mu.Lock()
		if !started[sceneIndex] {
			started[sceneIndex] = true
			for _, s := range scenes {
				if s.Index == sceneIndex {
					rep.SceneStarted(report.SceneStarted{Index: sceneIndex, Frames: s.Length()})
					break
				}
			}
		}
		mu.Unlock()
		rep.Verbose(fmt.Sprintf("scene %d: %s", sceneIndex, line))
	}

	onProbe := func(sceneIndex, probe int, quality, metricValue float64) {
		rep.SceneProbe(report.SceneProbe{
			Index:       sceneIndex,
			Quality:     quality,
			MetricValue: metricValue,
			Probe:       probe,
		})
	}

	onComplete := func(res engine.SceneResult) {
		rep.SceneComplete(report.SceneComplete{
			Index:       res.Scene.Index,
			Quality:     res.Quality,
			MetricValue: res.MetricValue,
			Probes:      res.Probes,
			SizeBytes:   fileSize(res.ClipPath),
		})

		done := atomic.AddInt64(&scenesComplete, 1)
		elapsed := time.Since(encodeStart).Seconds()
		speed := 0.0
		if elapsed > 0 {
			speed = float64(done) / elapsed
		}
		eta := time.Duration(0)
		if speed > 0 {
			remaining := float64(total) - float64(done)
			eta = time.Duration(remaining/speed) * time.Second
		}
		rep.Progress(report.ProgressSnapshot{
			ScenesComplete: int(done),
			ScenesTotal:    total,
			Speed:          speed,
			ETA:            eta,
		})
	}

	return engine.EncodeAll(cfg, scenes, meta, onProgress, onProbe, onComplete)
}

// writeReports lazily fills each adopted clip's packet sizes, duration,
// and per-frame metric vectors, prints the distribution table for the
// four objective metrics, and emits the per-metric SVG/text outputs plus
// the bitrate and per-scene charts. Clips are probed one at a time, each
// probe given the full worker thread budget.
func writeReports(cfg *config.Config, meta *probe.Metadata, results []engine.SceneResult, outputPath string) error {
	if cfg.Metric == config.MetricDirect {
		return nil
	}

	threads := effectiveWorkers(cfg.Workers)
	ordered := append([]engine.SceneResult(nil), results...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Scene.Index < ordered[j].Scene.Index })

	var psnr, ssim, vmaf, ssimu2, bitrate []float64
	for _, r := range ordered {
		scenePath := splitter.ScenePath(cfg.OutputDir, r.Scene.Index)
		m, err := metrics.New(r.ClipPath, scenePath, "")
		if err != nil {
			return fmt.Errorf("open metrics for scene %d: %w", r.Scene.Index, err)
		}

		p, err := m.PSNRValues(threads)
		if err != nil {
			return fmt.Errorf("psnr for scene %d: %w", r.Scene.Index, err)
		}
		s, err := m.SSIMValues(threads)
		if err != nil {
			return fmt.Errorf("ssim for scene %d: %w", r.Scene.Index, err)
		}
		v, err := m.VMAFValues(threads)
		if err != nil {
			return fmt.Errorf("vmaf for scene %d: %w", r.Scene.Index, err)
		}
		u, err := m.SSIMULACRA2Values(threads)
		if err != nil {
			return fmt.Errorf("ssimulacra2 for scene %d: %w", r.Scene.Index, err)
		}

		sizes, err := m.PacketSizes()
		if err != nil {
			return fmt.Errorf("packet sizes for scene %d: %w", r.Scene.Index, err)
		}
		duration, err := m.Duration()
		if err != nil {
			return fmt.Errorf("duration for scene %d: %w", r.Scene.Index, err)
		}

		psnr = append(psnr, p...)
		ssim = append(ssim, s...)
		vmaf = append(vmaf, v...)
		ssimu2 = append(ssimu2, u...)
		bitrate = append(bitrate, perFrameBitrate(sizes, duration)...)
	}

	labels := []string{"PSNR", "SSIM", "VMAF", "SSIMULACRA2"}
	tables := []report.QuantileTable{
		report.Summarize(psnr),
		report.Summarize(ssim),
		report.Summarize(vmaf),
		report.Summarize(ssimu2),
	}
	fmt.Println()
	report.WriteStatisticsTable(os.Stdout, labels, tables)

	stem := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	frameRate := 0.0
	if meta.Duration > 0 {
		frameRate = float64(meta.FrameCount) / meta.Duration
	}

	for _, m := range []struct {
		label  string
		values []float64
	}{
		{"psnr", psnr},
		{"ssim", ssim},
		{"vmaf", vmaf},
		{"ssimulacra2", ssimu2},
	} {
		if len(m.values) == 0 {
			continue
		}
		if err := report.WriteMetricChart(m.values, strings.ToUpper(m.label), stem+"-"+m.label+".svg"); err != nil {
			return err
		}
		if err := report.WriteMetricLog(m.values, stem+"-"+m.label+".txt"); err != nil {
			return err
		}
	}
	if len(bitrate) > 0 {
		if err := report.WriteBitrateChart(bitrate, frameRate, stem+"-bitrate.svg"); err != nil {
			return err
		}
	}

	if err := report.WriteQualityChart(ordered, stem+"-quality.svg"); err != nil {
		return err
	}
	return report.WriteSizeChart(ordered, stem+"-size.svg")
}

func perFrameBitrate(sizes []int64, duration float64) []float64 {
	if len(sizes) == 0 || duration <= 0 {
		return nil
	}
	perFrameSeconds := duration / float64(len(sizes))
	out := make([]float64, len(sizes))
	for i, sz := range sizes {
		out[i] = float64(sz*8) / perFrameSeconds
	}
	return out
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func cropMessage(crop string) string {
	if crop == "" {
		return "no crop detected"
	}
	return "crop detected"
}

func dynamicRangeLabel(isHDR bool) string {
	if isHDR {
		return "HDR"
	}
	return "SDR"
}
