// Package metrics implements the Clip Metrics Store: a lazily-populated
// per-clip record of packet sizes, duration, and optional per-frame
// quality-metric vectors, persisted as a JSON sidecar next to each
// encoded clip.
package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// threadBudget bounds how many metric-backend invocations (one libvmaf
// pass or one ssimulacra2 routine each) run at once across the whole
// process, set once at startup (see SetThreadBudget). Each invocation
// holds one unit whatever thread count it is given, so the budget limits
// concurrent invocations, not the total OS threads they use.
var threadBudget = semaphore.NewWeighted(int64(4))
var threadBudgetOnce sync.Once

// SetThreadBudget initializes the process-wide metric thread budget
// exactly once; subsequent calls are no-ops.
func SetThreadBudget(workers int) {
	threadBudgetOnce.Do(func() {
		if workers < 1 {
			workers = 1
		}
		threadBudget = semaphore.NewWeighted(int64(workers))
	})
}

// ClipMetrics is the record for one encoded clip file, keyed by its output
// path. Path fields are not persisted to the JSON sidecar; they are
// re-attached whenever a cache is loaded from disk.
type ClipMetrics struct {
	OutputPath     string `json:"-"`
	OriginalPath   string `json:"-"`
	OriginalFilter string `json:"-"`

	DurationSecs *float64  `json:"duration_secs,omitempty"`
	Sizes        []int64   `json:"sizes,omitempty"`
	PSNR         []float64 `json:"psnr,omitempty"`
	SSIM         []float64 `json:"ssim,omitempty"`
	VMAF         []float64 `json:"vmaf,omitempty"`
	SSIMULACRA2  []float64 `json:"ssimulacra2,omitempty"`

	mu sync.Mutex
}

func cachePath(outputPath string) string {
	return outputPath + ".metrics.json"
}

// New loads a cached ClipMetrics sidecar for outputPath if present,
// otherwise returns an empty record. originalPath/originalFilter describe
// the reference clip used for metric computation.
func New(outputPath, originalPath, originalFilter string) (*ClipMetrics, error) {
	m := &ClipMetrics{OutputPath: outputPath, OriginalPath: originalPath, OriginalFilter: originalFilter}

	data, err := os.ReadFile(cachePath(outputPath))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("read metrics cache for %s: %w", outputPath, err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("deserialize metrics cache for %s: %w", outputPath, err)
	}
	m.OutputPath, m.OriginalPath, m.OriginalFilter = outputPath, originalPath, originalFilter
	return m, nil
}

// updateCache atomically persists the current state of m. Must be called
// with m.mu held.
func (m *ClipMetrics) updateCache() error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics for %s: %w", m.OutputPath, err)
	}
	tmp := cachePath(m.OutputPath) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write metrics cache tmp for %s: %w", m.OutputPath, err)
	}
	if err := os.Rename(tmp, cachePath(m.OutputPath)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish metrics cache for %s: %w", m.OutputPath, err)
	}
	return nil
}

// Duration returns the clip's duration in seconds, computing and caching
// it on first call.
func (m *ClipMetrics) Duration() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DurationSecs != nil {
		return *m.DurationSecs, nil
	}
	if err := m.populateSizesAndDuration(); err != nil {
		return 0, err
	}
	return *m.DurationSecs, nil
}

// Frames returns the clip's frame count, derived from its packet sizes.
func (m *ClipMetrics) Frames() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sizes == nil {
		if err := m.populateSizesAndDuration(); err != nil {
			return 0, err
		}
	}
	return len(m.Sizes), nil
}

// PacketSizes returns the clip's per-packet byte sizes, computing and
// caching them on first call. The returned slice is shared with the
// record; callers must not mutate it.
func (m *ClipMetrics) PacketSizes() ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sizes == nil {
		if err := m.populateSizesAndDuration(); err != nil {
			return nil, err
		}
	}
	return m.Sizes, nil
}

// SizeBytes returns the sum of the clip's per-packet sizes, computing and
// caching them on first call.
func (m *ClipMetrics) SizeBytes() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Sizes == nil {
		if err := m.populateSizesAndDuration(); err != nil {
			return 0, err
		}
	}
	var total int64
	for _, s := range m.Sizes {
		total += s
	}
	return total, nil
}

// populateSizesAndDuration iterates the clip's video-stream packets via
// ffprobe to compute per-packet sizes and duration. Caller must hold
// m.mu.
func (m *ClipMetrics) populateSizesAndDuration() error {
	sizes, duration, err := probePacketSizes(m.OutputPath)
	if err != nil {
		return fmt.Errorf("probe packet sizes for %s: %w", m.OutputPath, err)
	}
	m.Sizes = sizes
	m.DurationSecs = &duration
	return m.updateCache()
}

// PSNRValues returns per-frame PSNR, computing PSNR+SSIM+VMAF together on
// first call (they share one ffmpeg+libvmaf process) using up to threads
// OS threads.
func (m *ClipMetrics) PSNRValues(threads int) ([]float64, error) {
	return m.ffmpegMetric(threads, func() []float64 { return m.PSNR })
}

// SSIMValues returns per-frame SSIM, as PSNRValues.
func (m *ClipMetrics) SSIMValues(threads int) ([]float64, error) {
	return m.ffmpegMetric(threads, func() []float64 { return m.SSIM })
}

// VMAFValues returns per-frame VMAF, as PSNRValues.
func (m *ClipMetrics) VMAFValues(threads int) ([]float64, error) {
	return m.ffmpegMetric(threads, func() []float64 { return m.VMAF })
}

func (m *ClipMetrics) ffmpegMetric(threads int, field func() []float64) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v := field(); v != nil {
		return v, nil
	}
	if err := m.calculateFFmpegMetrics(threads); err != nil {
		return nil, err
	}
	return field(), nil
}

// SSIMULACRA2Values returns per-frame SSIMULACRA2, computed by a
// separate thread-scaled routine rather than the combined libvmaf pass.
func (m *ClipMetrics) SSIMULACRA2Values(threads int) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SSIMULACRA2 != nil {
		return m.SSIMULACRA2, nil
	}
	values, err := calculateSSIMULACRA2(m.OriginalPath, m.OriginalFilter, m.OutputPath, threads)
	if err != nil {
		return nil, fmt.Errorf("compute ssimulacra2 for %s: %w", m.OutputPath, err)
	}
	m.SSIMULACRA2 = values
	if err := m.updateCache(); err != nil {
		return nil, err
	}
	return m.SSIMULACRA2, nil
}

// Percentile reduces a per-frame metric vector to a scalar using either
// the configured percentile or the mean, matching the bisection loop's
// "reduce the sample vector to a scalar" step.
func Percentile(values []float64, percentile float64, useMean bool) float64 {
	if len(values) == 0 {
		return 0
	}
	if useMean {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(percentile * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
