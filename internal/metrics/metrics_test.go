package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLoadsCachedSidecar(t *testing.T) {
	dir := t.TempDir()
	clipPath := filepath.Join(dir, "scene-00001.mkv")

	duration := 5.0
	cached := ClipMetrics{
		DurationSecs: &duration,
		Sizes:        []int64{100, 200, 150},
		PSNR:         []float64{40.1, 41.2, 39.8},
	}
	data, err := json.MarshalIndent(&cached, "", "  ")
	if err != nil {
		t.Fatalf("marshal cache: %v", err)
	}
	if err := os.WriteFile(clipPath+".metrics.json", data, 0644); err != nil {
		t.Fatalf("write cache: %v", err)
	}

	m, err := New(clipPath, "/source.mkv", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	frames, err := m.Frames()
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if frames != len(cached.Sizes) {
		t.Fatalf("expected %d frames (len(Sizes)), got %d", len(cached.Sizes), frames)
	}

	size, err := m.SizeBytes()
	if err != nil {
		t.Fatalf("SizeBytes: %v", err)
	}
	if size != 450 {
		t.Fatalf("expected size 450, got %d", size)
	}

	dur, err := m.Duration()
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if dur != duration {
		t.Fatalf("expected duration %v, got %v", duration, dur)
	}

	psnr, err := m.PSNRValues(1)
	if err != nil {
		t.Fatalf("PSNRValues: %v", err)
	}
	if len(psnr) != len(cached.PSNR) {
		t.Fatalf("expected cached PSNR values to be returned without recomputation")
	}

	sizes, err := m.PacketSizes()
	if err != nil {
		t.Fatalf("PacketSizes: %v", err)
	}
	if len(sizes) != len(cached.Sizes) {
		t.Fatalf("expected cached packet sizes to be returned without recomputation")
	}

	if m.OutputPath != clipPath || m.OriginalPath != "/source.mkv" {
		t.Fatalf("expected path fields to be re-attached after cache load, got %+v", m)
	}
}

func TestNewWithNoCacheReturnsEmptyRecord(t *testing.T) {
	dir := t.TempDir()
	m, err := New(filepath.Join(dir, "missing.mkv"), "/source.mkv", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.Sizes != nil || m.DurationSecs != nil {
		t.Fatalf("expected an empty record when no sidecar exists, got %+v", m)
	}
}

func TestPercentileMean(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	got := Percentile(values, 0, true)
	if got != 25 {
		t.Fatalf("expected mean 25, got %v", got)
	}
}

func TestPercentileQuantile(t *testing.T) {
	values := []float64{50, 10, 30, 20, 40}
	// Sorted: 10 20 30 40 50. percentile=0.05 (default) -> idx = 0.05*4 = 0.2 -> int 0 -> 10.
	if got := Percentile(values, 0.05, false); got != 10 {
		t.Fatalf("expected low-percentile value 10, got %v", got)
	}
	if got := Percentile(values, 1.0, false); got != 50 {
		t.Fatalf("expected percentile 1.0 to select the maximum, got %v", got)
	}
	if got := Percentile(values, 0.0, false); got != 10 {
		t.Fatalf("expected percentile 0.0 to select the minimum, got %v", got)
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 0.5, false); got != 0 {
		t.Fatalf("expected 0 for an empty sample, got %v", got)
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{50, 10, 30}
	original := append([]float64(nil), values...)
	Percentile(values, 0.5, false)
	for i := range values {
		if values[i] != original[i] {
			t.Fatalf("Percentile must not mutate its input slice")
		}
	}
}

func TestSetThreadBudgetIsIdempotent(t *testing.T) {
	// SetThreadBudget is documented to run exactly once per process; later
	// calls must not panic or replace the already-initialized semaphore.
	SetThreadBudget(2)
	before := threadBudget
	SetThreadBudget(8)
	if threadBudget != before {
		t.Fatalf("expected SetThreadBudget to be a no-op after first call")
	}
}
