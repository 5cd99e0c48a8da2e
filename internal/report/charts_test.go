package report

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestMovingAveragePartialWindowsAtStart(t *testing.T) {
	values := []float64{10, 20, 30, 40, 50}
	got := movingAverage(values, 3)

	if got[0] != 10 {
		t.Fatalf("expected the first point's partial window to equal itself, got %v", got[0])
	}
	if got[1] != 15 {
		t.Fatalf("expected avg(10,20)=15 for the second point, got %v", got[1])
	}
	if got[2] != 20 {
		t.Fatalf("expected avg(10,20,30)=20 for the third point, got %v", got[2])
	}
	if got[3] != 30 {
		t.Fatalf("expected avg(20,30,40)=30 once the window is full, got %v", got[3])
	}
	if got[4] != 40 {
		t.Fatalf("expected avg(30,40,50)=40, got %v", got[4])
	}
}

func TestMovingAverageWindowLargerThanSeries(t *testing.T) {
	values := []float64{1, 2, 3}
	got := movingAverage(values, 100)
	// With a window wider than the series, every point's window is partial
	// and grows by one each step, matching a cumulative average.
	want := []float64{1, 1.5, 2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestWriteMetricLogFormatsOneValuePerLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmaf.txt")

	if err := WriteMetricLog([]float64{95.12345, 90.5}, path); err != nil {
		t.Fatalf("WriteMetricLog: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metric log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	if _, err := strconv.ParseFloat(lines[0], 64); err != nil {
		t.Fatalf("expected a parseable float on line 1, got %q", lines[0])
	}
}

func TestBitrateWindowFramesMatchesDocumentedFormula(t *testing.T) {
	// Mirrors WriteBitrateChart's windowFrames = round(seconds*frameRate)
	// conversion for a few common frame rates.
	cases := []struct {
		secs      int
		frameRate float64
		want      int
	}{
		{1, 24.0, 24},
		{5, 24.0, 120},
		{1, 25.0, 25},
		{1, 29.97, 30},
		{60, 30.0, 1800},
	}
	for _, tc := range cases {
		got := int(math.Round(float64(tc.secs) * tc.frameRate))
		if got != tc.want {
			t.Fatalf("round(%d*%v) = %d, want %d", tc.secs, tc.frameRate, got, tc.want)
		}
	}
}

func TestWriteBitrateChartProducesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bitrate.svg")

	bitrates := make([]float64, 200)
	for i := range bitrates {
		bitrates[i] = 4_000_000 + float64(i)*1000
	}

	if err := WriteBitrateChart(bitrates, 24.0, path); err != nil {
		t.Fatalf("WriteBitrateChart: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected chart file to be written: %v", err)
	}
}
