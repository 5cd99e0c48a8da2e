package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vodstage/vodstage/internal/util"
)

// LogReporter writes run events to a log file, one timestamped line per
// event.
type LogReporter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewLogReporter creates a log reporter writing to w.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) Initialization(s InitializationSummary) {
	r.log("INFO", "=== SOURCE ===")
	r.log("INFO", "Input: %s", s.InputFile)
	r.log("INFO", "Output: %s", s.OutputFile)
	r.log("INFO", "Duration: %s", s.Duration)
	r.log("INFO", "Resolution: %s", s.Resolution)
	r.log("INFO", "Dynamic range: %s", s.DynamicRange)
	r.log("INFO", "Scenes: %d", s.SceneCount)
}

func (r *LogReporter) CropResult(s CropSummary) {
	switch {
	case s.Disabled:
		r.log("INFO", "Crop detection: disabled")
	case s.Required:
		r.log("INFO", "Crop detection: %s (%s)", s.Message, s.Crop)
	default:
		r.log("INFO", "Crop detection: %s (no crop needed)", s.Message)
	}
}

func (r *LogReporter) EncodingConfig(s EncodingConfigSummary) {
	r.log("INFO", "=== ENCODING CONFIG ===")
	r.log("INFO", "Encoder: %s", s.Encoder)
	r.log("INFO", "Preset: %s", s.Preset)
	r.log("INFO", "Mode: %s", s.Mode)
	r.log("INFO", "Metric: %s", s.Metric)
	r.log("INFO", "Rule: %s", s.Rule)
	r.log("INFO", "Quality: %s", s.Quality)
	r.log("INFO", "Workers: %d", s.Workers)
}

func (r *LogReporter) SceneStarted(s SceneStarted) {
	r.log("DEBUG", "scene %d started (%d frames)", s.Index, s.Frames)
}

func (r *LogReporter) SceneProbe(s SceneProbe) {
	r.log("DEBUG", "scene %d probe %d: quality %.2f -> metric %.3f", s.Index, s.Probe, s.Quality, s.MetricValue)
}

func (r *LogReporter) SceneComplete(s SceneComplete) {
	r.log("INFO", "scene %d adopted quality %.2f in %d probe(s), %s",
		s.Index, s.Quality, s.Probes, util.FormatBytesReadable(s.SizeBytes))
}

func (r *LogReporter) Progress(p ProgressSnapshot) {
	r.log("INFO", "progress: %d/%d scenes (speed %.1fx, eta %s)",
		p.ScenesComplete, p.ScenesTotal, p.Speed, util.FormatDurationFromSecs(int64(p.ETA.Seconds())))
}

func (r *LogReporter) ValidationComplete(s ValidationSummary) {
	r.log("INFO", "=== VALIDATION ===")
	if s.Passed {
		r.log("INFO", "Result: PASSED")
	} else {
		r.log("WARN", "Result: FAILED")
	}
	for _, step := range s.Steps {
		status := "ok"
		if !step.Passed {
			status = "FAILED"
		}
		r.log("INFO", "  - %s: %s (%s)", step.Name, status, step.Details)
	}
}

func (r *LogReporter) EncodingComplete(s EncodingOutcome) {
	reduction := util.CalculateSizeReduction(s.OriginalSize, s.EncodedSize)
	r.log("INFO", "=== RESULTS ===")
	r.log("INFO", "Output: %s", s.OutputFile)
	r.log("INFO", "Size: %s -> %s (%.1f%% reduction)",
		util.FormatBytesReadable(s.OriginalSize), util.FormatBytesReadable(s.EncodedSize), reduction)
	r.log("INFO", "Scenes: %d", s.SceneCount)
	r.log("INFO", "Time: %s (avg speed %.1fx)",
		util.FormatDurationFromSecs(int64(s.TotalTime.Seconds())), s.AverageSpeed)
	r.log("INFO", "Saved to: %s", s.OutputPath)
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(e ReporterError) {
	r.log("ERROR", "%s: %s", e.Title, e.Message)
	if e.Context != "" {
		r.log("ERROR", "  Context: %s", e.Context)
	}
	if e.Suggestion != "" {
		r.log("ERROR", "  Suggestion: %s", e.Suggestion)
	}
}

func (r *LogReporter) OperationComplete(message string) {
	r.log("INFO", "=== COMPLETE === %s", message)
}

func (r *LogReporter) BatchStarted(info BatchStartInfo) {
	r.log("INFO", "=== BATCH STARTED ===")
	r.log("INFO", "Processing %d files -> %s", info.TotalFiles, info.OutputDir)
	for i, name := range info.FileList {
		r.log("INFO", "  %d. %s", i+1, name)
	}
}

func (r *LogReporter) FileProgress(ctx FileProgressContext) {
	r.log("INFO", "--- File %d of %d: %s ---", ctx.CurrentFile, ctx.TotalFiles, ctx.Filename)
}

func (r *LogReporter) BatchComplete(s BatchSummary) {
	reduction := util.CalculateSizeReduction(s.TotalOriginalSize, s.TotalEncodedSize)
	r.log("INFO", "=== BATCH COMPLETE ===")
	r.log("INFO", "%d of %d succeeded", s.SuccessfulCount, s.TotalFiles)
	r.log("INFO", "Validation: %d passed, %d failed", s.ValidationPassedCount, s.ValidationFailedCount)
	r.log("INFO", "Size: %s -> %s (%.1f%% reduction)",
		util.FormatBytesReadable(s.TotalOriginalSize), util.FormatBytesReadable(s.TotalEncodedSize), reduction)
	r.log("INFO", "Time: %s (avg speed %.1fx)",
		util.FormatDurationFromSecs(int64(s.TotalDuration.Seconds())), s.AverageSpeed)
	for _, result := range s.FileResults {
		r.log("INFO", "  - %s (%.1f%% reduction)", result.Filename, result.Reduction)
	}
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
