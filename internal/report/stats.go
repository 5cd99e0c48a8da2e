package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vodstage/vodstage/internal/engine"
)

func clipSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// sigmaQuantiles are the quantile points (in probability terms) a run
// summary reports alongside the median, at -3..+3 standard deviations
// of a normal distribution.
var sigmaQuantiles = []float64{0.00135, 0.02275, 0.15866, 0.5, 0.84134, 0.97725, 0.99865}

// QuantileTable is the per-metric distribution summary printed in the
// final run report.
type QuantileTable struct {
	Min       float64
	Max       float64
	Mean      float64
	StdDev    float64
	Quantiles []float64 // aligned with sigmaQuantiles
}

// Summarize computes min/max, mean, standard deviation, and the
// sigma-offset quantile table for an unsorted sample (per-frame metric
// values, adopted qualities, probe counts).
func Summarize(values []float64) QuantileTable {
	if len(values) == 0 {
		return QuantileTable{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mean := stat.Mean(sorted, nil)
	stddev := stat.StdDev(sorted, nil)

	qs := make([]float64, len(sigmaQuantiles))
	for i, p := range sigmaQuantiles {
		qs[i] = stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	return QuantileTable{
		Min:       sorted[0],
		Max:       sorted[len(sorted)-1],
		Mean:      mean,
		StdDev:    stddev,
		Quantiles: qs,
	}
}

// WriteStatisticsTable renders one row per labeled sample: min, the
// sigma-offset quantiles, max, mean, and standard deviation, aligned in
// fixed-width columns.
func WriteStatisticsTable(w io.Writer, labels []string, tables []QuantileTable) {
	fmt.Fprintf(w, "%-14s %10s", "metric", "min")
	for _, p := range sigmaQuantiles {
		fmt.Fprintf(w, " %9.3f", p)
	}
	fmt.Fprintf(w, " %10s %10s %10s\n", "max", "mean", "std_dev")

	for i, label := range labels {
		t := tables[i]
		fmt.Fprintf(w, "%-14s %10.3f", label, t.Min)
		for _, q := range t.Quantiles {
			fmt.Fprintf(w, " %9.3f", q)
		}
		fmt.Fprintf(w, " %10.3f %10.3f %10.3f\n", t.Max, t.Mean, t.StdDev)
	}
}

// RunStatistics aggregates per-scene quantile tables: adopted quality,
// probe count (bisection cost), and resulting clip size.
type RunStatistics struct {
	Quality QuantileTable
	Probes  QuantileTable
	Size    QuantileTable
}

// Compute builds RunStatistics from the engine's per-scene results.
func Compute(results []engine.SceneResult) RunStatistics {
	quality := make([]float64, len(results))
	probes := make([]float64, len(results))
	sizes := make([]float64, len(results))

	for i, r := range results {
		quality[i] = r.Quality
		probes[i] = float64(r.Probes)
		sizes[i] = float64(clipSize(r.ClipPath))
	}

	return RunStatistics{
		Quality: Summarize(quality),
		Probes:  Summarize(probes),
		Size:    Summarize(sizes),
	}
}
