package codec

import (
	"strings"
	"testing"

	"github.com/vodstage/vodstage/internal/config"
)

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestQualityRangeForBitrateIsSharedAcrossEncoders(t *testing.T) {
	encoders := []config.Encoder{
		config.EncoderAomenc, config.EncoderRav1e, config.EncoderSvtAV1,
		config.EncoderVpxenc, config.EncoderX264, config.EncoderX265,
	}
	for _, enc := range encoders {
		rng, err := QualityRangeFor(enc, config.ModeBitrate)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", enc, err)
		}
		if rng.Minimum() != 100_000 || rng.Maximum() != 100_000_000 {
			t.Fatalf("%v: expected shared bitrate domain, got [%v,%v]", enc, rng.Minimum(), rng.Maximum())
		}
	}
}

func TestQualityRangeForRav1eForbidsCRF(t *testing.T) {
	if _, err := QualityRangeFor(config.EncoderRav1e, config.ModeCRF); err == nil {
		t.Fatalf("expected rav1e+crf to be rejected")
	}
}

func TestQualityRangeForRav1eAllowsQP(t *testing.T) {
	rng, err := QualityRangeFor(config.EncoderRav1e, config.ModeQP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rng.Minimum() != 0 || rng.Maximum() != 255 {
		t.Fatalf("expected rav1e QP domain [0,255], got [%v,%v]", rng.Minimum(), rng.Maximum())
	}
}

func TestQualityRangeForX264AndX265(t *testing.T) {
	x264Rng, err := QualityRangeFor(config.EncoderX264, config.ModeCRF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x264Rng.Minimum() != 0 || x264Rng.Maximum() != 51 {
		t.Fatalf("expected x264 CRF domain [0,51], got [%v,%v]", x264Rng.Minimum(), x264Rng.Maximum())
	}

	x265Rng, err := QualityRangeFor(config.EncoderX265, config.ModeCRF)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if x265Rng.Minimum() != -10 || x265Rng.Maximum() != 51 {
		t.Fatalf("expected x265 CRF domain [-10,51], got [%v,%v]", x265Rng.Minimum(), x265Rng.Maximum())
	}
}

func TestForEncoderCoversAllFamilies(t *testing.T) {
	encoders := []config.Encoder{
		config.EncoderAomenc, config.EncoderRav1e, config.EncoderSvtAV1,
		config.EncoderVpxenc, config.EncoderX264, config.EncoderX265,
	}
	for _, enc := range encoders {
		fam, err := ForEncoder(enc)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", enc, err)
		}
		if fam.Name() == "" {
			t.Fatalf("%v: expected a non-empty binary name", enc)
		}
	}
}

func TestAomencArguments(t *testing.T) {
	in := PassInput{Preset: "4", Mode: config.ModeCRF, Quality: 30, KeyframeInterval: 120, OutputPath: "out.ivf"}
	args := aomenc{}.Arguments(in)
	if !contains(args, "--cq-level=30") {
		t.Fatalf("expected a --cq-level flag, got %v", args)
	}
	if !contains(args, "--end-usage=q") {
		t.Fatalf("expected constant-quality end-usage, got %v", args)
	}

	bitrateIn := PassInput{Preset: "4", Mode: config.ModeBitrate, Quality: 4_000_000, Passes: 2, Pass: 1, StatsFile: "stats.log", OutputPath: "out.ivf", KeyframeInterval: 120}
	bitrateArgs := aomenc{}.Arguments(bitrateIn)
	if !contains(bitrateArgs, "--target-bitrate=4000000") {
		t.Fatalf("expected a --target-bitrate flag, got %v", bitrateArgs)
	}
	if !contains(bitrateArgs, "--passes=2") || !contains(bitrateArgs, "--pass=1") {
		t.Fatalf("expected multi-pass flags, got %v", bitrateArgs)
	}
}

func TestRav1eArguments(t *testing.T) {
	in := PassInput{Preset: "6", Mode: config.ModeQP, Quality: 100, KeyframeInterval: 120, OutputPath: "out.ivf"}
	args := rav1e{}.Arguments(in)
	if !contains(args, "--quantizer") || !contains(args, "100") {
		t.Fatalf("expected a --quantizer flag with value, got %v", args)
	}
}

func TestSvtAv1ArgumentsAllModes(t *testing.T) {
	crfIn := PassInput{Preset: "8", Mode: config.ModeCRF, Quality: 28, KeyframeInterval: 120, OutputPath: "out.ivf"}
	crfArgs := svtav1{}.Arguments(crfIn)
	if !contains(crfArgs, "--crf") {
		t.Fatalf("expected a --crf flag for CRF mode, got %v", crfArgs)
	}

	qpIn := PassInput{Preset: "8", Mode: config.ModeQP, Quality: 24, KeyframeInterval: 120, OutputPath: "out.ivf"}
	qpArgs := svtav1{}.Arguments(qpIn)
	if !contains(qpArgs, "--qp") {
		t.Fatalf("expected a --qp flag for QP mode, got %v", qpArgs)
	}

	bitrateIn := PassInput{Preset: "8", Mode: config.ModeBitrate, Quality: 5_000_000, KeyframeInterval: 120, OutputPath: "out.ivf"}
	bitrateArgs := svtav1{}.Arguments(bitrateIn)
	if !contains(bitrateArgs, "--tbr") {
		t.Fatalf("expected a --tbr flag for Bitrate mode, got %v", bitrateArgs)
	}
}

func TestVpxencArguments(t *testing.T) {
	in := PassInput{Preset: "2", Mode: config.ModeCRF, Quality: 32, KeyframeInterval: 120, OutputPath: "out.ivf"}
	args := vpxenc{}.Arguments(in)
	if !contains(args, "--codec=vp9") {
		t.Fatalf("expected --codec=vp9, got %v", args)
	}
	if !contains(args, "--cq-level=32") {
		t.Fatalf("expected --cq-level=32, got %v", args)
	}
}

func TestX264ArgumentsAllModes(t *testing.T) {
	qpIn := PassInput{Preset: "ultrafast", Mode: config.ModeQP, Quality: 24, KeyframeInterval: 120, OutputPath: "out.mkv"}
	qpArgs := x264{}.Arguments(qpIn)
	if !contains(qpArgs, "--qp") {
		t.Fatalf("expected a --qp flag, got %v", qpArgs)
	}

	crfIn := PassInput{Preset: "ultrafast", Mode: config.ModeCRF, Quality: 23, KeyframeInterval: 120, OutputPath: "out.mkv"}
	crfArgs := x264{}.Arguments(crfIn)
	if !contains(crfArgs, "--crf") {
		t.Fatalf("expected a --crf flag, got %v", crfArgs)
	}

	bitrateIn := PassInput{Preset: "ultrafast", Mode: config.ModeBitrate, Quality: 3_000_000, Passes: 2, Pass: 2, StatsFile: "stats.log", KeyframeInterval: 120, OutputPath: "out.mkv"}
	bitrateArgs := x264{}.Arguments(bitrateIn)
	if !contains(bitrateArgs, "--bitrate") {
		t.Fatalf("expected a --bitrate flag, got %v", bitrateArgs)
	}
	if !contains(bitrateArgs, "--pass") || !contains(bitrateArgs, "--stats") {
		t.Fatalf("expected multi-pass flags, got %v", bitrateArgs)
	}
	if !strings.HasSuffix(bitrateArgs[len(bitrateArgs)-1], "-") {
		t.Fatalf("expected x264 arguments to end with the stdin marker, got %v", bitrateArgs)
	}
}

func TestX265ArgumentsAllModes(t *testing.T) {
	crfIn := PassInput{Preset: "medium", Mode: config.ModeCRF, Quality: 27.25, KeyframeInterval: 120, OutputPath: "out.hevc"}
	crfArgs := x265{}.Arguments(crfIn)
	if !contains(crfArgs, "--crf") {
		t.Fatalf("expected a --crf flag, got %v", crfArgs)
	}
	if !contains(crfArgs, "--y4m") {
		t.Fatalf("expected --y4m input mode, got %v", crfArgs)
	}
}
