// Package validate implements the post-merge sanity pass: a set of
// independent checks comparing the merged output's duration,
// dimensions, and dynamic range against what the source's metadata
// promised, via direct ffprobe invocations.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
)

const durationToleranceSecs = 1.0

// Step is one pass/fail check.
type Step struct {
	Name    string
	Passed  bool
	Details string
}

// Result is the full outcome of validating one merged output.
type Result struct {
	Passed bool
	Steps  []Step
}

// Expected carries what the source metadata said the output should look
// like, so validation doesn't need to re-probe the source.
type Expected struct {
	Duration float64
	Width    uint32
	Height   uint32
	IsHDR    bool
}

// Run validates outputPath against the expectations captured from the
// source's probed metadata.
func Run(outputPath string, exp Expected) (*Result, error) {
	props, err := probeOutput(outputPath)
	if err != nil {
		return nil, fmt.Errorf("probe merged output %s: %w", outputPath, err)
	}

	steps := []Step{
		validateDuration(props.duration, exp.Duration),
		validateDimensions(props.width, props.height, exp.Width, exp.Height),
		validateHDR(props.isHDR, exp.IsHDR),
	}

	passed := true
	for _, s := range steps {
		if !s.Passed {
			passed = false
		}
	}
	return &Result{Passed: passed, Steps: steps}, nil
}

func validateDuration(actual, expected float64) Step {
	drift := math.Abs(actual - expected)
	ok := drift <= durationToleranceSecs
	return Step{
		Name:    "Duration",
		Passed:  ok,
		Details: fmt.Sprintf("expected %.2fs, got %.2fs (drift %.2fs)", expected, actual, drift),
	}
}

func validateDimensions(actualW, actualH, expectedW, expectedH uint32) Step {
	ok := actualW == expectedW && actualH == expectedH
	return Step{
		Name:    "Dimensions",
		Passed:  ok,
		Details: fmt.Sprintf("expected %dx%d, got %dx%d", expectedW, expectedH, actualW, actualH),
	}
}

func validateHDR(actual, expected bool) Step {
	ok := actual == expected
	return Step{
		Name:    "Dynamic range",
		Passed:  ok,
		Details: fmt.Sprintf("expected HDR=%v, got HDR=%v", expected, actual),
	}
}

type outputProps struct {
	duration float64
	width    uint32
	height   uint32
	isHDR    bool
}

func probeOutput(path string) (*outputProps, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=duration,width,height,color_transfer",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed struct {
		Streams []struct {
			Duration      string `json:"duration"`
			Width         uint32 `json:"width"`
			Height        uint32 `json:"height"`
			ColorTransfer string `json:"color_transfer"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", path, err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}
	s := parsed.Streams[0]

	var duration float64
	_, _ = fmt.Sscanf(s.Duration, "%f", &duration)

	isHDR := s.ColorTransfer == "smpte2084" || s.ColorTransfer == "arib-std-b67"

	return &outputProps{duration: duration, width: s.Width, height: s.Height, isHDR: isHDR}, nil
}
