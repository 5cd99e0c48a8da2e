package engine

import (
	"fmt"
	"math"
	"testing"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/qrange"
)

func TestQualityIncreasesWithMetric(t *testing.T) {
	if qualityIncreasesWithMetric(config.ModeCRF) {
		t.Fatalf("CRF axis: increasing quality parameter should decrease the metric")
	}
	if qualityIncreasesWithMetric(config.ModeQP) {
		t.Fatalf("QP axis: increasing quality parameter should decrease the metric")
	}
	if !qualityIncreasesWithMetric(config.ModeBitrate) {
		t.Fatalf("Bitrate axis: increasing quality parameter should increase the metric")
	}
}

// monotoneDecreasingProbe returns a probeFunc over a CRF-like axis (0..63) where the
// metric decreases as q increases, mirroring a real quality/CRF relationship.
func monotoneDecreasingProbe() probeFunc {
	return func(q float64) (string, float64, error) {
		return fmt.Sprintf("clip-%v", q), 100 - q, nil
	}
}

// monotoneIncreasingProbe mirrors a bitrate-like axis where the metric
// increases with q.
func monotoneIncreasingProbe() probeFunc {
	return func(q float64) (string, float64, error) {
		return fmt.Sprintf("clip-%v", q), q, nil
	}
}

func TestSearchRuleMinimumCRF(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeCRF, Rule: config.RuleMinimum}
	rng := qrange.New(0, 63, 1, false)
	result, err := search(cfg, rng, 50, monotoneDecreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a satisfying result")
	}
	if result.MetricValue < 50 {
		t.Fatalf("RuleMinimum result must satisfy metric >= target, got %v", result.MetricValue)
	}
	if result.Probes == 0 {
		t.Fatalf("expected a positive probe count")
	}
}

func TestSearchRuleMaximumCRF(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeCRF, Rule: config.RuleMaximum}
	rng := qrange.New(0, 63, 1, false)
	result, err := search(cfg, rng, 50, monotoneDecreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a satisfying result")
	}
	if result.MetricValue > 50 {
		t.Fatalf("RuleMaximum result must satisfy metric <= target, got %v", result.MetricValue)
	}
}

func TestSearchRuleTargetCRF(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeCRF, Rule: config.RuleTarget}
	rng := qrange.New(0, 63, 1, false)
	result, err := search(cfg, rng, 50, monotoneDecreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a result")
	}
	if math.Abs(result.MetricValue-50) > 1 {
		t.Fatalf("RuleTarget result should converge near target 50, got %v", result.MetricValue)
	}
}

func TestSearchRuleMinimumBitrate(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeBitrate, Rule: config.RuleMinimum}
	rng := qrange.New(0, 1000, 1, true)
	result, err := search(cfg, rng, 500, monotoneIncreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a satisfying result")
	}
	if result.MetricValue < 500 {
		t.Fatalf("RuleMinimum result must satisfy metric >= target, got %v", result.MetricValue)
	}
}

func TestSearchRuleMaximumBitrate(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeBitrate, Rule: config.RuleMaximum}
	rng := qrange.New(0, 1000, 1, true)
	result, err := search(cfg, rng, 500, monotoneIncreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a satisfying result")
	}
	if result.MetricValue > 500 {
		t.Fatalf("RuleMaximum result must satisfy metric <= target, got %v", result.MetricValue)
	}
}

func TestSearchRuleTargetBitrate(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeBitrate, Rule: config.RuleTarget}
	rng := qrange.New(0, 1000, 1, true)
	result, err := search(cfg, rng, 500, monotoneIncreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result == nil {
		t.Fatalf("expected a result")
	}
	if math.Abs(result.MetricValue-500) > 2 {
		t.Fatalf("RuleTarget result should converge near target 500, got %v", result.MetricValue)
	}
}

func TestSearchUnsatisfiableReturnsNil(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeCRF, Rule: config.RuleMinimum}
	rng := qrange.New(0, 63, 1, false)
	// No probe ever reaches 1000, so RuleMinimum should never adopt a result.
	result, err := search(cfg, rng, 1000, monotoneDecreasingProbe())
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for an unsatisfiable floor, got %+v", result)
	}
}

func TestSeedQualityEndpoints(t *testing.T) {
	cases := []struct {
		mode config.Mode
		rule config.Rule
		want float64
	}{
		{config.ModeBitrate, config.RuleMaximum, 0},
		{config.ModeBitrate, config.RuleMinimum, 1000},
		{config.ModeCRF, config.RuleMaximum, 63},
		{config.ModeCRF, config.RuleMinimum, 0},
		{config.ModeQP, config.RuleMinimum, 0},
	}
	for _, tc := range cases {
		cfg := &config.Config{Mode: tc.mode, Rule: tc.rule}
		max := 63.0
		if tc.mode == config.ModeBitrate {
			max = 1000
		}
		if got := seedQuality(cfg, 0, max); got != tc.want {
			t.Fatalf("seedQuality(%v,%v) = %v, want %v", tc.mode, tc.rule, got, tc.want)
		}
	}
}

func TestSearchPropagatesProbeError(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeCRF, Rule: config.RuleMinimum}
	rng := qrange.New(0, 63, 1, false)
	boom := fmt.Errorf("boom")
	_, err := search(cfg, rng, 50, func(q float64) (string, float64, error) {
		return "", 0, boom
	})
	if err == nil {
		t.Fatalf("expected the probe error to propagate")
	}
}

func TestQualityBasenameFormatting(t *testing.T) {
	cfg := &config.Config{Mode: config.ModeQP}
	if got := qualityBasename(cfg, 24); got != "qp-024" {
		t.Fatalf("expected qp-024, got %q", got)
	}

	cfg.Mode = config.ModeCRF
	if got := qualityBasename(cfg, 27.25); got != "crf-27.25" {
		t.Fatalf("expected crf-27.25, got %q", got)
	}

	cfg.Mode = config.ModeBitrate
	if got := qualityBasename(cfg, 4_500_000); got != "bitrate-4500000" {
		t.Fatalf("expected bitrate-4500000, got %q", got)
	}
}

func TestKeyframeInterval(t *testing.T) {
	// 5 seconds at 24000 frames over 1000 seconds (24 fps) should be ~120 frames.
	if got := keyframeInterval(24000, 1000); got != 120 {
		t.Fatalf("expected 120, got %d", got)
	}
	if got := keyframeInterval(100, 0); got != 100 {
		t.Fatalf("expected frameCount fallback for zero duration, got %d", got)
	}
}
