// Package config holds the user-facing configuration for a vodstage run:
// codec selection, quality axis, search parameters, and derived identifiers.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Encoder identifies a supported codec family. The set is closed; there is
// no plugin mechanism for adding encoders at runtime.
type Encoder int

const (
	EncoderAomenc Encoder = iota
	EncoderRav1e
	EncoderSvtAV1
	EncoderVpxenc
	EncoderX264
	EncoderX265
)

func (e Encoder) String() string {
	switch e {
	case EncoderAomenc:
		return "aomenc"
	case EncoderRav1e:
		return "rav1e"
	case EncoderSvtAV1:
		return "svt-av1"
	case EncoderVpxenc:
		return "vpxenc"
	case EncoderX264:
		return "x264"
	case EncoderX265:
		return "x265"
	default:
		return "unknown"
	}
}

// ParseEncoder parses the --encoder flag value.
func ParseEncoder(s string) (Encoder, error) {
	switch s {
	case "aomenc":
		return EncoderAomenc, nil
	case "rav1e":
		return EncoderRav1e, nil
	case "svt-av1":
		return EncoderSvtAV1, nil
	case "vpxenc":
		return EncoderVpxenc, nil
	case "x264":
		return EncoderX264, nil
	case "x265":
		return EncoderX265, nil
	default:
		return 0, fmt.Errorf("unknown encoder %q", s)
	}
}

// Extension returns the container extension used for a scene's encoded clip.
func (e Encoder) Extension() string {
	switch e {
	case EncoderAomenc, EncoderRav1e, EncoderSvtAV1, EncoderVpxenc:
		return "ivf"
	case EncoderX264:
		return "mkv"
	case EncoderX265:
		return "hevc"
	default:
		return "bin"
	}
}

// Mode is the quality axis an encoder is driven by.
type Mode int

const (
	ModeQP Mode = iota
	ModeCRF
	ModeBitrate
)

func (m Mode) String() string {
	switch m {
	case ModeQP:
		return "qp"
	case ModeCRF:
		return "crf"
	case ModeBitrate:
		return "bitrate"
	default:
		return "unknown"
	}
}

// ParseMode parses the --mode flag value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "qp":
		return ModeQP, nil
	case "crf":
		return ModeCRF, nil
	case "bitrate":
		return ModeBitrate, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// Metric is the objective-quality target a bisection search probes against.
type Metric int

const (
	MetricDirect Metric = iota
	MetricPSNR
	MetricSSIM
	MetricVMAF
	MetricSSIMULACRA2
	MetricBitrate
)

func (m Metric) String() string {
	switch m {
	case MetricDirect:
		return "direct"
	case MetricPSNR:
		return "psnr"
	case MetricSSIM:
		return "ssim"
	case MetricVMAF:
		return "vmaf"
	case MetricSSIMULACRA2:
		return "ssimulacra2"
	case MetricBitrate:
		return "bitrate"
	default:
		return "unknown"
	}
}

// ParseMetric parses the --quality-metric flag value.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "direct":
		return MetricDirect, nil
	case "psnr":
		return MetricPSNR, nil
	case "ssim":
		return MetricSSIM, nil
	case "vmaf":
		return MetricVMAF, nil
	case "ssimulacra2":
		return MetricSSIMULACRA2, nil
	case "bitrate":
		return MetricBitrate, nil
	default:
		return 0, fmt.Errorf("unknown quality metric %q", s)
	}
}

// Rule governs how a bisection search interprets the target/predicate.
type Rule int

const (
	RuleMaximum Rule = iota
	RuleMinimum
	RuleTarget
)

func (r Rule) String() string {
	switch r {
	case RuleMaximum:
		return "maximum"
	case RuleMinimum:
		return "minimum"
	case RuleTarget:
		return "target"
	default:
		return "unknown"
	}
}

// ParseRule parses the --quality-rule flag value.
func ParseRule(s string) (Rule, error) {
	switch s {
	case "maximum":
		return RuleMaximum, nil
	case "minimum":
		return RuleMinimum, nil
	case "target":
		return RuleTarget, nil
	default:
		return 0, fmt.Errorf("unknown quality rule %q", s)
	}
}

// Defaults mirror the CLI defaults documented in the flag table.
const (
	DefaultEncoder           = EncoderX264
	DefaultPreset            = "ultrafast"
	DefaultMode              = ModeQP
	DefaultMetric            = MetricDirect
	DefaultRule              = RuleMinimum
	DefaultQualityPercentile = 0.05
	DefaultQuality           = 23.0
)

// Config is the immutable user input for one run. It is constructed once
// (by the CLI or a library caller), validated, and shared read-only by
// every downstream component.
type Config struct {
	Source    string
	OutputDir string

	Encoder Encoder
	Preset  string
	Workers int

	Mode       Mode
	Metric     Metric
	Rule       Rule
	Percentile float64
	UseMean    bool
	Quality    float64

	DisableCrop bool
}

// New builds a Config with the documented CLI defaults.
func New(source, outputDir string) *Config {
	return &Config{
		Source:     source,
		OutputDir:  outputDir,
		Encoder:    DefaultEncoder,
		Preset:     DefaultPreset,
		Workers:    0,
		Mode:       DefaultMode,
		Metric:     DefaultMetric,
		Rule:       DefaultRule,
		Percentile: DefaultQualityPercentile,
		Quality:    DefaultQuality,
	}
}

// Validate rejects configurations that must never reach the pipeline,
// including the documented forbidden (encoder, mode) combination.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Encoder == EncoderRav1e && c.Mode == ModeCRF {
		return fmt.Errorf("forbidden combination: encoder=rav1e does not support mode=crf")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.Percentile < 0 || c.Percentile > 1 {
		return fmt.Errorf("quality-percentile must be in [0,1], got %g", c.Percentile)
	}
	return nil
}

// IsDirect reports whether the configured metric takes the direct-quality
// shortcut (Case A of the per-scene encoding procedure) rather than running
// a bisection search.
func (c *Config) IsDirect() bool {
	return c.Metric == MetricDirect
}

// EncodeArgumentsHash hashes the tune-argument list for this
// configuration, independent of quality, so that artifacts produced by
// equivalent tune arguments share a cache key: SHA-256 over the tune
// arguments joined by a single space, hex-encoded.
func (c *Config) EncodeArgumentsHash(tuneArgs []string) string {
	sum := sha256.Sum256([]byte(strings.Join(tuneArgs, " ")))
	return hex.EncodeToString(sum[:])
}

// EncodeIdentifier produces the deterministic slug used to address the set
// of encoded artifacts for this configuration. When includeQuality is
// false the identifier omits the quality discriminator, yielding the
// directory name shared by every quality probed during a scene's bisection
// search; when true it yields the final output's file stem.
func (c *Config) EncodeIdentifier(includeQuality bool, tuneArgs []string) string {
	hash := c.EncodeArgumentsHash(tuneArgs)
	parts := []string{c.Encoder.String(), c.Preset, c.Mode.String()}
	if includeQuality {
		if c.Metric != MetricDirect {
			parts = append(parts, c.Metric.String(), c.Rule.String())
			if c.UseMean {
				parts = append(parts, "mean")
			} else {
				parts = append(parts, fmt.Sprintf("p%02.0f", c.Percentile*100))
			}
		}
		parts = append(parts, formatQuality(c.Mode, c.Quality))
	}
	parts = append(parts, "unconstrained", hash[:16])
	return strings.Join(parts, "-")
}

// formatQuality renders a quality value for the identifier: Bitrate values
// as plain integers; QP and CRF values as three-digit zero-padded integers
// when whole and as two-decimal fixed point otherwise.
func formatQuality(mode Mode, q float64) string {
	if mode == ModeBitrate {
		return fmt.Sprintf("%d", int64(q))
	}
	if q == float64(int64(q)) {
		return fmt.Sprintf("%03d", int64(q))
	}
	return fmt.Sprintf("%05.2f", q)
}
