package report

import (
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/vodstage/vodstage/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal, driven
// by per-scene events from the parallel worker pool.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent float64
	verbose    bool
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	dim        *color.Color
}

// NewTerminalReporter creates a terminal reporter with verbose mode
// disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a terminal reporter with configurable
// verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

const labelWidth = 18

func (r *TerminalReporter) printLabel(label, value string) {
	padded := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(padded), value)
}

func (r *TerminalReporter) Initialization(s InitializationSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("SOURCE")
	r.printLabel("File:", s.InputFile)
	r.printLabel("Output:", s.OutputFile)
	r.printLabel("Duration:", s.Duration)
	r.printLabel("Resolution:", s.Resolution)
	r.printLabel("Dynamic:", s.DynamicRange)
	r.printLabel("Scenes:", fmt.Sprintf("%d", s.SceneCount))
}

func (r *TerminalReporter) CropResult(s CropSummary) {
	var status string
	switch {
	case s.Disabled:
		status = r.dim.Sprint("auto-crop disabled")
	case s.Required:
		status = r.green.Sprint(s.Crop)
	default:
		status = r.dim.Sprint("no crop needed")
	}
	r.printLabel("Crop detection:", fmt.Sprintf("%s (%s)", s.Message, status))
}

func (r *TerminalReporter) EncodingConfig(s EncodingConfigSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("ENCODING")
	r.printLabel("Encoder:", s.Encoder)
	r.printLabel("Preset:", s.Preset)
	r.printLabel("Mode:", s.Mode)
	r.printLabel("Metric:", s.Metric)
	r.printLabel("Rule:", s.Rule)
	r.printLabel("Quality:", s.Quality)
	r.printLabel("Workers:", fmt.Sprintf("%d", s.Workers))
}

func (r *TerminalReporter) SceneStarted(s SceneStarted) {
	r.Verbose(fmt.Sprintf("scene %d started (%d frames)", s.Index, s.Frames))
}

func (r *TerminalReporter) SceneProbe(s SceneProbe) {
	r.Verbose(fmt.Sprintf("scene %d probe %d: quality %.2f -> metric %.3f", s.Index, s.Probe, s.Quality, s.MetricValue))
}

func (r *TerminalReporter) SceneComplete(s SceneComplete) {
	r.Verbose(fmt.Sprintf("scene %d adopted quality %.2f in %d probe(s), %s",
		s.Index, s.Quality, s.Probes, util.FormatBytesReadable(s.SizeBytes)))
}

func (r *TerminalReporter) Progress(p ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		r.progress = progressbar.NewOptions64(
			100,
			progressbar.OptionSetDescription(""),
			progressbar.OptionSetWidth(40),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowDescriptionAtLineEnd(),
			progressbar.OptionSetElapsedTime(false),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "Encoding [",
				BarEnd:        "]",
			}),
		)
	}

	percent := 0.0
	if p.ScenesTotal > 0 {
		percent = 100 * float64(p.ScenesComplete) / float64(p.ScenesTotal)
	}
	if percent > 100 {
		percent = 100
	}
	if percent >= r.maxPercent {
		r.maxPercent = percent
		_ = r.progress.Set64(int64(percent))
	}

	r.progress.Describe(fmt.Sprintf("scenes %d/%d, speed %.1fx, eta %s",
		p.ScenesComplete, p.ScenesTotal, p.Speed, util.FormatDurationFromSecs(int64(p.ETA.Seconds()))))

	if p.ScenesComplete >= p.ScenesTotal {
		_ = r.progress.Finish()
		r.progress = nil
		r.maxPercent = 0
	}
}

func (r *TerminalReporter) ValidationComplete(s ValidationSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("VALIDATION")

	if s.Passed {
		r.printLabel("Status:", fmt.Sprintf("%s %s", r.green.Sprint("✓"), r.green.Add(color.Bold).Sprint("All checks passed")))
	} else {
		r.printLabel("Status:", fmt.Sprintf("%s %s", r.red.Sprint("✗"), r.red.Sprint("Validation failed")))
	}

	for _, step := range s.Steps {
		status := r.green.Sprint("✓")
		if !step.Passed {
			status = r.red.Sprint("✗")
		}
		r.printLabel(step.Name+":", fmt.Sprintf("%s %s", status, step.Details))
	}
}

func (r *TerminalReporter) EncodingComplete(s EncodingOutcome) {
	reduction := util.CalculateSizeReduction(s.OriginalSize, s.EncodedSize)

	fmt.Println()
	_, _ = r.cyan.Println("RESULTS")
	r.printLabel("Output:", s.OutputFile)
	r.printLabel("Size:", fmt.Sprintf("%s -> %s",
		util.FormatBytesReadable(s.OriginalSize), util.FormatBytesReadable(s.EncodedSize)))
	r.printLabel("Reduction:", fmt.Sprintf("%.1f%%", reduction))
	r.printLabel("Scenes:", fmt.Sprintf("%d", s.SceneCount))
	r.printLabel("Time:", fmt.Sprintf("%s (avg speed %.1fx)",
		util.FormatDurationFromSecs(int64(s.TotalTime.Seconds())), s.AverageSpeed))
	r.printLabel("Saved to:", r.green.Sprint(s.OutputPath))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(e ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", e.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", e.Message)
	if e.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", e.Context)
	}
	if e.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", e.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	fmt.Println()
	fmt.Printf("%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	fmt.Println()
	_, _ = r.cyan.Println("BATCH")
	fmt.Printf("  Processing %d files -> %s\n", info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		fmt.Printf("  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(ctx FileProgressContext) {
	fmt.Printf("\nFile %s of %d: %s\n", r.bold.Sprint(ctx.CurrentFile), ctx.TotalFiles, ctx.Filename)
}

func (r *TerminalReporter) BatchComplete(s BatchSummary) {
	reduction := util.CalculateSizeReduction(s.TotalOriginalSize, s.TotalEncodedSize)

	fmt.Println()
	_, _ = r.cyan.Println("BATCH SUMMARY")
	fmt.Printf("  %s\n", r.bold.Sprintf("%d of %d succeeded", s.SuccessfulCount, s.TotalFiles))
	fmt.Printf("  Validation: %s passed, %s failed\n",
		r.green.Sprint(s.ValidationPassedCount), r.red.Sprint(s.ValidationFailedCount))
	fmt.Printf("  Size: %d -> %d bytes (%.1f%% reduction)\n", s.TotalOriginalSize, s.TotalEncodedSize, reduction)
	fmt.Printf("  Time: %s (avg speed %.1fx)\n",
		util.FormatDurationFromSecs(int64(s.TotalDuration.Seconds())), s.AverageSpeed)

	for _, result := range s.FileResults {
		fmt.Printf("  - %s (%.1f%% reduction)\n", result.Filename, result.Reduction)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}
