// Package engine implements the Encode Engine: a worker pool that encodes
// every scene independently and, when an objective-quality metric is
// configured, runs a bisection search over the codec's quality axis for
// each scene before adopting a result.
package engine

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vodstage/vodstage/internal/codec"
	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/metrics"
	"github.com/vodstage/vodstage/internal/probe"
	"github.com/vodstage/vodstage/internal/scene"
	"github.com/vodstage/vodstage/internal/splitter"
)

// SceneResult is the adopted outcome for one scene: the clip it produced,
// the quality value it was encoded at, and (when a metric search ran) the
// measured metric value and number of probes it took to converge.
type SceneResult struct {
	Scene       scene.Scene
	ClipPath    string
	Quality     float64
	MetricValue float64
	Probes      int
}

// ProgressFunc receives a raw encoder stderr line for a given scene index,
// for live progress reporting.
type ProgressFunc func(sceneIndex int, line string)

// ProbeFunc receives each bisection probe's outcome for a scene: the
// quality that was tried, the reduced metric value it measured, and the
// 1-based probe ordinal.
type ProbeFunc func(sceneIndex, probe int, quality, metricValue float64)

// SceneCompleteFunc is invoked by the aggregator as each scene's result
// arrives from a worker, in nondeterministic completion order, so a
// caller can drive a live progress display without waiting for the whole
// pool to drain.
type SceneCompleteFunc func(SceneResult)

// EncodeAll drives every scene in scenes through the configured encode
// procedure with a fixed pool of cfg.Workers goroutines (defaulting to
// runtime.NumCPU() when unset). Scenes are queued longest-first so the
// slowest units of work start earliest. One scene's failure does not
// cancel its siblings; the first error encountered is returned alongside
// whatever results did complete. onProbe, if non-nil, is called from the
// owning worker after each bisection probe; onComplete, if non-nil, is
// called on the aggregator as each scene's result arrives (completion
// order, not scene order) for live progress reporting.
func EncodeAll(cfg *config.Config, scenes []scene.Scene, meta *probe.Metadata, onProgress ProgressFunc, onProbe ProbeFunc, onComplete SceneCompleteFunc) ([]SceneResult, error) {
	if len(scenes) == 0 {
		return nil, nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(scenes) {
		workers = len(scenes)
	}
	if workers < 1 {
		workers = 1
	}

	ordered := append([]scene.Scene(nil), scenes...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Length() > ordered[j].Length() })

	queue := make(chan scene.Scene, len(ordered))
	for _, s := range ordered {
		queue <- s
	}
	close(queue)

	kf := keyframeInterval(meta.FrameCount, meta.Duration)

	results := make(chan SceneResult, len(ordered))
	var firstErr atomic.Pointer[error]
	live := int64(workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer atomic.AddInt64(&live, -1)
			for s := range queue {
				threads := workers
				if l := atomic.LoadInt64(&live); l > 0 {
					threads = workers / int(l)
				}
				if threads < 1 {
					threads = 1
				}

				res, err := encodeScene(cfg, s, kf, threads, func(line string) {
					if onProgress != nil {
						onProgress(s.Index, line)
					}
				}, onProbe)
				if err != nil {
					wrapped := fmt.Errorf("scene %d: %w", s.Index, err)
					firstErr.CompareAndSwap(nil, &wrapped)
					continue
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	collected := make([]SceneResult, 0, len(ordered))
	for r := range results {
		collected = append(collected, r)
		if onComplete != nil {
			onComplete(r)
		}
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].Scene.Index < collected[j].Scene.Index })

	if p := firstErr.Load(); p != nil {
		return collected, *p
	}
	return collected, nil
}

// passesFor returns how many encode passes a mode should run. Bitrate
// targets run two-pass for rate-control accuracy; CRF/QP axes are
// single-pass.
func passesFor(mode config.Mode) int {
	if mode == config.ModeBitrate {
		return 2
	}
	return 1
}

// encodeScene runs the per-scene encode procedure: a direct single encode
// when the configured metric is Direct (Case A), otherwise a bisection
// search over the codec's quality domain against the configured metric and
// rule (Case B).
func encodeScene(cfg *config.Config, s scene.Scene, keyframeInt, threads int, onLine progressFunc, onProbe ProbeFunc) (SceneResult, error) {
	scenePath := splitter.ScenePath(cfg.OutputDir, s.Index)
	passes := passesFor(cfg.Mode)

	if cfg.IsDirect() {
		clip, err := encodeSceneSingle(cfg, scenePath, s.Index, passes, cfg.Quality, keyframeInt, onLine)
		if err != nil {
			return SceneResult{}, err
		}
		return SceneResult{Scene: s, ClipPath: clip, Quality: cfg.Quality, Probes: 1}, nil
	}

	if cfg.Mode == config.ModeBitrate && cfg.Metric == config.MetricBitrate && cfg.Rule == config.RuleTarget {
		// A direct bitrate target with no floor/ceiling constraint is
		// just a single encode at the requested bitrate.
		clip, err := encodeSceneSingle(cfg, scenePath, s.Index, passes, cfg.Quality, keyframeInt, onLine)
		if err != nil {
			return SceneResult{}, err
		}
		return SceneResult{Scene: s, ClipPath: clip, Quality: cfg.Quality, MetricValue: cfg.Quality, Probes: 1}, nil
	}

	rng, err := codec.QualityRangeFor(cfg.Encoder, cfg.Mode)
	if err != nil {
		return SceneResult{}, err
	}
	fallbackQ := seedQuality(cfg, rng.Minimum(), rng.Maximum())

	probes := 0
	probe := func(q float64) (string, float64, error) {
		clip, err := encodeSceneSingle(cfg, scenePath, s.Index, passes, q, keyframeInt, onLine)
		if err != nil {
			return "", 0, err
		}
		value, err := measureMetric(cfg, scenePath, clip, threads)
		if err != nil {
			return "", 0, err
		}
		probes++
		if onProbe != nil {
			onProbe(s.Index, probes, q, value)
		}
		return clip, value, nil
	}

	result, err := search(cfg, rng, cfg.Quality, probe)
	if err != nil {
		return SceneResult{}, err
	}
	if result == nil {
		// No probe satisfied the predicate; fall back to the extreme of
		// the quality domain so the scene still produces its best clip.
		clip, value, err := probe(fallbackQ)
		if err != nil {
			return SceneResult{}, err
		}
		result = &searchResult{ClipPath: clip, Quality: fallbackQ, MetricValue: value, Probes: probes}
	}

	return SceneResult{
		Scene:       s,
		ClipPath:    result.ClipPath,
		Quality:     result.Quality,
		MetricValue: result.MetricValue,
		Probes:      result.Probes,
	}, nil
}

// measureMetric computes the scalar reduction of cfg's configured metric
// for one probed clip against its lossless scene source.
func measureMetric(cfg *config.Config, originalPath, clipPath string, threads int) (float64, error) {
	if cfg.Metric == config.MetricBitrate {
		m, err := metrics.New(clipPath, originalPath, "")
		if err != nil {
			return 0, err
		}
		sizes, err := m.PacketSizes()
		if err != nil {
			return 0, err
		}
		duration, err := m.Duration()
		if err != nil {
			return 0, err
		}
		if duration <= 0 {
			return 0, fmt.Errorf("clip %s reported non-positive duration", clipPath)
		}
		perFrameSeconds := duration / float64(len(sizes))
		values := make([]float64, len(sizes))
		for i, sz := range sizes {
			values[i] = float64(sz*8) / perFrameSeconds
		}
		return metrics.Percentile(values, cfg.Percentile, cfg.UseMean), nil
	}

	m, err := metrics.New(clipPath, originalPath, "")
	if err != nil {
		return 0, err
	}

	var values []float64
	switch cfg.Metric {
	case config.MetricPSNR:
		values, err = m.PSNRValues(threads)
	case config.MetricSSIM:
		values, err = m.SSIMValues(threads)
	case config.MetricVMAF:
		values, err = m.VMAFValues(threads)
	case config.MetricSSIMULACRA2:
		values, err = m.SSIMULACRA2Values(threads)
	default:
		return 0, fmt.Errorf("unsupported metric %v for bisection", cfg.Metric)
	}
	if err != nil {
		return 0, err
	}

	return metrics.Percentile(values, cfg.Percentile, cfg.UseMean), nil
}
