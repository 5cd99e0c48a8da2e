// Package report renders run progress and final statistics for a
// vodstage encode. It defines the Reporter contract and the summary
// types every component hands to it, plus terminal and log-file
// implementations and the post-run statistics and chart generation.
package report

import "time"

// InitializationSummary describes the source and destination of a run,
// printed once metadata has been probed.
type InitializationSummary struct {
	InputFile    string
	OutputFile   string
	Duration     string
	Resolution   string
	DynamicRange string
	SceneCount   int
}

// CropSummary reports the outcome of crop detection.
type CropSummary struct {
	Disabled bool
	Required bool
	Crop     string
	Message  string
}

// EncodingConfigSummary describes the resolved encode configuration before
// scene work begins.
type EncodingConfigSummary struct {
	Encoder string
	Preset  string
	Mode    string
	Metric  string
	Rule    string
	Quality string
	Workers int
}

// SceneStarted announces that a scene has been picked up by a worker.
type SceneStarted struct {
	Index  int
	Frames uint64
}

// SceneProbe announces one bisection probe's outcome for a scene, omitted
// entirely for Direct-metric runs.
type SceneProbe struct {
	Index       int
	Quality     float64
	MetricValue float64
	Probe       int
}

// SceneComplete announces a scene's adopted result.
type SceneComplete struct {
	Index       int
	Quality     float64
	MetricValue float64
	Probes      int
	SizeBytes   int64
}

// ProgressSnapshot is an overall-run progress update, driven by
// completed scene count.
type ProgressSnapshot struct {
	ScenesComplete int
	ScenesTotal    int
	Speed          float64
	ETA            time.Duration
}

// ValidationStep is one pass/fail check performed after merge.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ValidationSummary is the full post-merge validation outcome.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// EncodingOutcome is the final, whole-run result summary.
type EncodingOutcome struct {
	OutputFile   string
	OutputPath   string
	OriginalSize int64
	EncodedSize  int64
	TotalTime    time.Duration
	AverageSpeed float64
	SceneCount   int
}

// ReporterError is a structured error presentation with optional extra
// context and a remediation hint.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo announces a multi-source discovery batch.
type BatchStartInfo struct {
	TotalFiles int
	OutputDir  string
	FileList   []string
}

// FileProgressContext announces which file of a batch is now running.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
	Filename    string
}

// FileResult is one batch member's outcome, for BatchSummary.
type FileResult struct {
	Filename  string
	Reduction float64
}

// BatchSummary is the whole-batch result summary.
type BatchSummary struct {
	TotalFiles            int
	SuccessfulCount       int
	ValidationPassedCount int
	ValidationFailedCount int
	TotalOriginalSize     int64
	TotalEncodedSize      int64
	TotalDuration         time.Duration
	AverageSpeed          float64
	FileResults           []FileResult
}

// Reporter receives every observable event of a run. Implementations must
// be safe for concurrent use: scene events arrive from engine worker
// goroutines.
type Reporter interface {
	Initialization(InitializationSummary)
	CropResult(CropSummary)
	EncodingConfig(EncodingConfigSummary)
	SceneStarted(SceneStarted)
	SceneProbe(SceneProbe)
	SceneComplete(SceneComplete)
	Progress(ProgressSnapshot)
	ValidationComplete(ValidationSummary)
	EncodingComplete(EncodingOutcome)
	Warning(string)
	Error(ReporterError)
	OperationComplete(string)
	BatchStarted(BatchStartInfo)
	FileProgress(FileProgressContext)
	BatchComplete(BatchSummary)
	Verbose(string)
}

// NullReporter discards every event; useful for library callers that want
// no console output.
type NullReporter struct{}

func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) CropResult(CropSummary)               {}
func (NullReporter) EncodingConfig(EncodingConfigSummary) {}
func (NullReporter) SceneStarted(SceneStarted)            {}
func (NullReporter) SceneProbe(SceneProbe)                {}
func (NullReporter) SceneComplete(SceneComplete)          {}
func (NullReporter) Progress(ProgressSnapshot)            {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) EncodingComplete(EncodingOutcome)     {}
func (NullReporter) Warning(string)                       {}
func (NullReporter) Error(ReporterError)                  {}
func (NullReporter) OperationComplete(string)             {}
func (NullReporter) BatchStarted(BatchStartInfo)          {}
func (NullReporter) FileProgress(FileProgressContext)     {}
func (NullReporter) BatchComplete(BatchSummary)           {}
func (NullReporter) Verbose(string)                       {}

// CompositeReporter fans every event out to a set of Reporters, e.g. a
// terminal reporter and a log reporter running together.
type CompositeReporter struct {
	Reporters []Reporter
}

func (c CompositeReporter) Initialization(s InitializationSummary) {
	for _, r := range c.Reporters {
		r.Initialization(s)
	}
}
func (c CompositeReporter) CropResult(s CropSummary) {
	for _, r := range c.Reporters {
		r.CropResult(s)
	}
}
func (c CompositeReporter) EncodingConfig(s EncodingConfigSummary) {
	for _, r := range c.Reporters {
		r.EncodingConfig(s)
	}
}
func (c CompositeReporter) SceneStarted(s SceneStarted) {
	for _, r := range c.Reporters {
		r.SceneStarted(s)
	}
}
func (c CompositeReporter) SceneProbe(s SceneProbe) {
	for _, r := range c.Reporters {
		r.SceneProbe(s)
	}
}
func (c CompositeReporter) SceneComplete(s SceneComplete) {
	for _, r := range c.Reporters {
		r.SceneComplete(s)
	}
}
func (c CompositeReporter) Progress(s ProgressSnapshot) {
	for _, r := range c.Reporters {
		r.Progress(s)
	}
}
func (c CompositeReporter) ValidationComplete(s ValidationSummary) {
	for _, r := range c.Reporters {
		r.ValidationComplete(s)
	}
}
func (c CompositeReporter) EncodingComplete(s EncodingOutcome) {
	for _, r := range c.Reporters {
		r.EncodingComplete(s)
	}
}
func (c CompositeReporter) Warning(msg string) {
	for _, r := range c.Reporters {
		r.Warning(msg)
	}
}
func (c CompositeReporter) Error(e ReporterError) {
	for _, r := range c.Reporters {
		r.Error(e)
	}
}
func (c CompositeReporter) OperationComplete(msg string) {
	for _, r := range c.Reporters {
		r.OperationComplete(msg)
	}
}
func (c CompositeReporter) BatchStarted(s BatchStartInfo) {
	for _, r := range c.Reporters {
		r.BatchStarted(s)
	}
}
func (c CompositeReporter) FileProgress(s FileProgressContext) {
	for _, r := range c.Reporters {
		r.FileProgress(s)
	}
}
func (c CompositeReporter) BatchComplete(s BatchSummary) {
	for _, r := range c.Reporters {
		r.BatchComplete(s)
	}
}
func (c CompositeReporter) Verbose(msg string) {
	for _, r := range c.Reporters {
		r.Verbose(msg)
	}
}
