// Package codec builds per-family external-encoder command lines and
// defines each family's quality grid. It keeps the per-codec argument
// tables in one swappable place, behind the narrow interface the encode
// engine consumes.
package codec

import (
	"fmt"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/qrange"
)

// PassInput describes one invocation of a codec family's encoder binary.
type PassInput struct {
	Preset           string
	Mode             config.Mode
	Quality          float64
	Pass             int // 1-based; a single-pass encode is pass 1 of 1
	Passes           int
	StatsFile        string
	KeyframeInterval int
	OutputPath       string
}

// QualityRangeFor returns the bisection domain for an (encoder, mode)
// pair. The AV1/VP9 command-line tools share a 0-63 constant-quality
// grid; rav1e exposes a 0-255 quantizer and no CRF; x264/x265 use their
// CRF ranges at quarter-step resolution.
func QualityRangeFor(enc config.Encoder, mode config.Mode) (*qrange.Range, error) {
	if mode == config.ModeBitrate {
		// Bitrate is expressed in bits per second; coarsen to 1kbps steps.
		return qrange.New(100_000, 100_000_000, 1000, true), nil
	}
	switch enc {
	case config.EncoderAomenc, config.EncoderSvtAV1, config.EncoderVpxenc:
		return qrange.New(0, 63, 1, false), nil
	case config.EncoderRav1e:
		if mode == config.ModeCRF {
			return nil, fmt.Errorf("rav1e does not support mode=crf")
		}
		return qrange.New(0, 255, 1, false), nil
	case config.EncoderX264:
		return qrange.New(0, 51, 4, false), nil
	case config.EncoderX265:
		return qrange.New(-10, 51, 4, false), nil
	default:
		return nil, fmt.Errorf("unknown encoder %v", enc)
	}
}

// Family builds argument vectors for one codec family. Implementations are
// free of subprocess-spawning concerns; the engine owns exec.Command.
type Family interface {
	// Name returns the binary to invoke (looked up on PATH).
	Name() string
	// Arguments builds the full argument vector for one pass, excluding
	// the binary name and the input redirection (stdin is always the raw
	// frame pipe).
	Arguments(in PassInput) []string
}

// ForEncoder returns the Family implementation for enc.
func ForEncoder(enc config.Encoder) (Family, error) {
	switch enc {
	case config.EncoderAomenc:
		return aomenc{}, nil
	case config.EncoderRav1e:
		return rav1e{}, nil
	case config.EncoderSvtAV1:
		return svtav1{}, nil
	case config.EncoderVpxenc:
		return vpxenc{}, nil
	case config.EncoderX264:
		return x264{}, nil
	case config.EncoderX265:
		return x265{}, nil
	default:
		return nil, fmt.Errorf("unknown encoder %v", enc)
	}
}

func qualityFlag(mode config.Mode, q float64) string {
	if mode == config.ModeBitrate {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%g", q)
}

// aomenc (AV1, libaom) follows the --passes/--pass/--fpf shape common to
// the aom/vpx command-line tools.
type aomenc struct{}

func (aomenc) Name() string { return "aomenc" }

func (aomenc) Arguments(in PassInput) []string {
	args := []string{
		"-o", in.OutputPath,
		"--ivf",
		"--cpu-used=" + in.Preset,
		fmt.Sprintf("--kf-max-dist=%d", in.KeyframeInterval),
	}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--end-usage=vbr", "--target-bitrate="+qualityFlag(in.Mode, in.Quality))
	default:
		args = append(args, "--end-usage=q", "--cq-level="+qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, fmt.Sprintf("--passes=%d", in.Passes), fmt.Sprintf("--pass=%d", in.Pass), "--fpf="+in.StatsFile)
	}
	args = append(args, "-")
	return args
}

// rav1e is QP/bitrate only; CRF is rejected earlier by config.Validate.
type rav1e struct{}

func (rav1e) Name() string { return "rav1e" }

func (rav1e) Arguments(in PassInput) []string {
	args := []string{"-o", in.OutputPath, "--speed", in.Preset, "--keyint", fmt.Sprintf("%d", in.KeyframeInterval)}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--bitrate", qualityFlag(in.Mode, in.Quality))
	default:
		args = append(args, "--quantizer", qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, "--first-pass", fmt.Sprintf("%d", in.Pass), in.StatsFile)
	}
	args = append(args, "-")
	return args
}

// svtav1 drives SvtAv1EncApp, which takes its input path ("stdin") as an
// argument rather than a trailing "-".
type svtav1 struct{}

func (svtav1) Name() string { return "SvtAv1EncApp" }

func (svtav1) Arguments(in PassInput) []string {
	args := []string{
		"-i", "stdin",
		"-b", in.OutputPath,
		"--preset", in.Preset,
		"--keyint", fmt.Sprintf("%d", in.KeyframeInterval),
	}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--rc", "1", "--tbr", qualityFlag(in.Mode, in.Quality))
	case config.ModeQP:
		args = append(args, "--rc", "0", "--qp", qualityFlag(in.Mode, in.Quality))
	default: // CRF
		args = append(args, "--rc", "0", "--crf", qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, "--pass", fmt.Sprintf("%d", in.Pass), "--stats", in.StatsFile)
	}
	return args
}

// vpxenc drives libvpx (VP9), argument shape parallel to aomenc.
type vpxenc struct{}

func (vpxenc) Name() string { return "vpxenc" }

func (vpxenc) Arguments(in PassInput) []string {
	args := []string{
		"-o", in.OutputPath,
		"--ivf",
		"--codec=vp9",
		"--cpu-used=" + in.Preset,
		fmt.Sprintf("--kf-max-dist=%d", in.KeyframeInterval),
	}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--end-usage=vbr", "--target-bitrate="+qualityFlag(in.Mode, in.Quality))
	default:
		args = append(args, "--end-usage=q", "--cq-level="+qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, fmt.Sprintf("--passes=%d", in.Passes), fmt.Sprintf("--pass=%d", in.Pass), "--fpf="+in.StatsFile)
	}
	args = append(args, "-")
	return args
}

// x264: --qp for QP mode, --crf for CRF mode, --bitrate for Bitrate mode.
type x264 struct{}

func (x264) Name() string { return "x264" }

func (x264) Arguments(in PassInput) []string {
	args := []string{
		"--demuxer", "y4m",
		"--preset", in.Preset,
		"--keyint", fmt.Sprintf("%d", in.KeyframeInterval),
		"-o", in.OutputPath,
	}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--bitrate", qualityFlag(in.Mode, in.Quality))
	case config.ModeQP:
		args = append(args, "--qp", qualityFlag(in.Mode, in.Quality))
	default:
		args = append(args, "--crf", qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, "--pass", fmt.Sprintf("%d", in.Pass), "--stats", in.StatsFile)
	}
	args = append(args, "-")
	return args
}

// x265 mirrors x264's shape with the HEVC-specific binary and extension.
type x265 struct{}

func (x265) Name() string { return "x265" }

func (x265) Arguments(in PassInput) []string {
	args := []string{
		"--y4m",
		"--preset", in.Preset,
		"--keyint", fmt.Sprintf("%d", in.KeyframeInterval),
		"-o", in.OutputPath,
	}
	switch in.Mode {
	case config.ModeBitrate:
		args = append(args, "--bitrate", qualityFlag(in.Mode, in.Quality))
	case config.ModeQP:
		args = append(args, "--qp", qualityFlag(in.Mode, in.Quality))
	default:
		args = append(args, "--crf", qualityFlag(in.Mode, in.Quality))
	}
	if in.Passes > 1 {
		args = append(args, "--pass", fmt.Sprintf("%d", in.Pass), "--stats", in.StatsFile)
	}
	args = append(args, "-")
	return args
}
