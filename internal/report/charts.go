package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vodstage/vodstage/internal/engine"
)

// movingAverageWindows are the window sizes, in scenes, used to smooth the
// per-scene size chart. A handful of window sizes lets the chart show both
// local jitter and longer-run trend on the same axes.
var movingAverageWindows = []int{1, 5, 15, 30, 60}

// WriteQualityChart renders the per-scene adopted-quality line chart to
// an SVG file at path.
func WriteQualityChart(results []engine.SceneResult, path string) error {
	p := plot.New()
	p.Title.Text = "Adopted quality by scene"
	p.X.Label.Text = "Scene index"
	p.Y.Label.Text = "Quality"

	pts := make(plotter.XYs, len(results))
	for i, r := range results {
		pts[i].X = float64(r.Scene.Index)
		pts[i].Y = r.Quality
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build quality line: %w", err)
	}
	p.Add(line, plotter.NewGrid())

	return save(p, path)
}

// WriteSizeChart renders per-scene output size alongside a set of moving
// averages at movingAverageWindows, so the reviewer can see both scene-to-
// scene jitter and longer-run bitrate trend.
func WriteSizeChart(results []engine.SceneResult, path string) error {
	p := plot.New()
	p.Title.Text = "Encoded size by scene"
	p.X.Label.Text = "Scene index"
	p.Y.Label.Text = "Bytes"

	sizes := make([]float64, len(results))
	for i, r := range results {
		sizes[i] = float64(clipSize(r.ClipPath))
	}

	raw := make(plotter.XYs, len(results))
	for i, v := range sizes {
		raw[i].X = float64(i)
		raw[i].Y = v
	}
	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return fmt.Errorf("build raw size line: %w", err)
	}
	p.Add(rawLine)
	p.Legend.Add("size", rawLine)

	for _, w := range movingAverageWindows {
		if w > len(sizes) {
			continue
		}
		avg := movingAverage(sizes, w)
		pts := make(plotter.XYs, len(avg))
		for i, v := range avg {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build moving-average(%d) line: %w", w, err)
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("avg(%d)", w), line)
	}

	p.Add(plotter.NewGrid())
	return save(p, path)
}

// movingAverage returns the trailing window-w average of values, with the
// first w-1 points carrying a partial (shorter) window rather than being
// omitted, so the chart's x-axis stays aligned with the raw series.
func movingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := window
		if i+1 < window {
			n = i + 1
		}
		out[i] = sum / float64(n)
	}
	return out
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save chart %s: %w", filepath.Base(path), err)
	}
	return nil
}

// secondWindows are the moving-average window sizes, in seconds, the
// bitrate chart smooths over.
var secondWindows = []int{1, 5, 15, 30, 60}

// WriteMetricChart renders a per-frame objective-quality metric (PSNR,
// SSIM, VMAF, or SSIMULACRA2) as an SVG line chart, one point per frame
// across the whole source.
func WriteMetricChart(values []float64, label, path string) error {
	p := plot.New()
	p.Title.Text = label + " by frame"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = label

	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("build %s line: %w", label, err)
	}
	p.Add(line, plotter.NewGrid())
	return save(p, path)
}

// WriteMetricLog writes one per-frame metric value per line, matching the
// "-{metric}.txt" sidecar named alongside each metric's SVG chart.
func WriteMetricLog(values []float64, path string) error {
	var b []byte
	for _, v := range values {
		b = append(b, fmt.Sprintf("%.5f\n", v)...)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write metric log %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteBitrateChart renders per-frame bitrate (Mbps) plus moving
// averages at secondWindows, each window converted from seconds to
// frames via round(seconds*frameRate).
func WriteBitrateChart(perFrameBitrates []float64, frameRate float64, path string) error {
	p := plot.New()
	p.Title.Text = "Bitrate"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Mbps"

	mbps := make([]float64, len(perFrameBitrates))
	for i, v := range perFrameBitrates {
		mbps[i] = v / 1_000_000
	}

	raw := make(plotter.XYs, len(mbps))
	for i, v := range mbps {
		raw[i].X = float64(i)
		raw[i].Y = v
	}
	rawLine, err := plotter.NewLine(raw)
	if err != nil {
		return fmt.Errorf("build raw bitrate line: %w", err)
	}
	p.Add(rawLine)
	p.Legend.Add("instantaneous", rawLine)

	for _, secs := range secondWindows {
		windowFrames := int(math.Round(float64(secs) * frameRate))
		if windowFrames < 1 {
			windowFrames = 1
		}
		if windowFrames > len(mbps) {
			continue
		}
		avg := movingAverage(mbps, windowFrames)
		pts := make(plotter.XYs, len(avg))
		for i, v := range avg {
			pts[i].X = float64(i)
			pts[i].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("build %ds moving-average line: %w", secs, err)
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%ds avg", secs), line)
	}

	p.Add(plotter.NewGrid())
	return save(p, path)
}
