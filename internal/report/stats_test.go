package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vodstage/vodstage/internal/engine"
	"github.com/vodstage/vodstage/internal/scene"
)

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	if got.Mean != 0 || got.StdDev != 0 || got.Quantiles != nil {
		t.Fatalf("expected a zero-value table for an empty sample, got %+v", got)
	}
}

func TestSummarizeKnownVector(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := Summarize(values)

	if got.Mean != 3 {
		t.Fatalf("expected mean 3, got %v", got.Mean)
	}
	if got.Min != 1 || got.Max != 5 {
		t.Fatalf("expected min 1 and max 5, got min %v max %v", got.Min, got.Max)
	}
	if len(got.Quantiles) != len(sigmaQuantiles) {
		t.Fatalf("expected %d quantile points, got %d", len(sigmaQuantiles), len(got.Quantiles))
	}
	// The median (p=0.5 is sigmaQuantiles[3]) of 1..5 is 3.
	if math.Abs(got.Quantiles[3]-3) > 1e-9 {
		t.Fatalf("expected median 3, got %v", got.Quantiles[3])
	}
	// Quantiles must be non-decreasing.
	for i := 1; i < len(got.Quantiles); i++ {
		if got.Quantiles[i] < got.Quantiles[i-1] {
			t.Fatalf("expected non-decreasing quantiles, got %v", got.Quantiles)
		}
	}
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	values := []float64{5, 3, 1, 4, 2}
	original := append([]float64(nil), values...)
	Summarize(values)
	for i := range values {
		if values[i] != original[i] {
			t.Fatalf("Summarize must not mutate its input slice")
		}
	}
}

func TestSummarizeConstantVector(t *testing.T) {
	got := Summarize([]float64{7, 7, 7, 7})
	if got.Mean != 7 {
		t.Fatalf("expected mean 7, got %v", got.Mean)
	}
	if got.StdDev != 0 {
		t.Fatalf("expected zero standard deviation for a constant sample, got %v", got.StdDev)
	}
}

func TestComputeAggregatesPerSceneResults(t *testing.T) {
	dir := t.TempDir()

	clipA := filepath.Join(dir, "a.mkv")
	clipB := filepath.Join(dir, "b.mkv")
	if err := os.WriteFile(clipA, make([]byte, 100), 0644); err != nil {
		t.Fatalf("seed clip a: %v", err)
	}
	if err := os.WriteFile(clipB, make([]byte, 300), 0644); err != nil {
		t.Fatalf("seed clip b: %v", err)
	}

	results := []engine.SceneResult{
		{Scene: scene.Scene{Index: 0}, ClipPath: clipA, Quality: 24, Probes: 3},
		{Scene: scene.Scene{Index: 1}, ClipPath: clipB, Quality: 26, Probes: 5},
	}

	stats := Compute(results)
	if stats.Quality.Mean != 25 {
		t.Fatalf("expected mean quality 25, got %v", stats.Quality.Mean)
	}
	if stats.Probes.Mean != 4 {
		t.Fatalf("expected mean probe count 4, got %v", stats.Probes.Mean)
	}
	if stats.Size.Mean != 200 {
		t.Fatalf("expected mean size 200, got %v", stats.Size.Mean)
	}
}

func TestClipSizeMissingFileReturnsZero(t *testing.T) {
	if got := clipSize("/nonexistent/path.mkv"); got != 0 {
		t.Fatalf("expected 0 for a missing file, got %d", got)
	}
}

func TestWriteStatisticsTableOneRowPerLabel(t *testing.T) {
	var buf strings.Builder
	labels := []string{"PSNR", "VMAF"}
	tables := []QuantileTable{
		Summarize([]float64{40, 41, 42}),
		Summarize([]float64{90, 95}),
	}
	WriteStatisticsTable(&buf, labels, tables)

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected a header plus one row per label, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "PSNR") || !strings.Contains(lines[2], "VMAF") {
		t.Fatalf("expected labeled rows, got:\n%s", out)
	}
}
