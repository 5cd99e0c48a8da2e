package scene

import (
	"fmt"
	"math"

	"github.com/vodstage/vodstage/internal/ffmpegio"
)

// Detection parameters are fixed: standard analysis speed, flash
// detection enabled, a 5-frame lookahead, and no min/max scenecut
// distance constraints. The detector is a luma-difference scan with
// flash suppression.
const (
	lookaheadFrames = 5
	// lumaSampleStride downsamples the luma plane for the difference
	// score; standard-speed detection trades per-pixel precision for
	// throughput on multi-thousand-frame sources.
	lumaSampleStride = 4
)

// detectSceneChanges decodes source (with cropFilter applied, if any) once
// and returns the frame indices at which a new scene begins, plus the
// total frame count the detector itself observed.
func detectSceneChanges(source, cropFilter string) ([]uint64, uint64, error) {
	dec, err := ffmpegio.NewDecoder(source, cropFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("open decoder: %w", err)
	}
	defer dec.Close()

	var scores []float64
	var frame, prevFrame []byte
	var frameCount uint64

	for {
		cur, err := dec.ReadFrame()
		if err != nil {
			break
		}
		frameCount++
		frame = cur
		if prevFrame != nil {
			scores = append(scores, lumaDiff(prevFrame, frame, dec.Width, dec.Height))
		} else {
			scores = append(scores, 0)
		}
		prevFrame = frame
	}

	return pickCuts(scores), frameCount, nil
}

// lumaDiff returns the mean absolute difference between the luma planes of
// two frames, sampled on a stride grid and normalized to [0,1].
func lumaDiff(a, b []byte, width, height int) float64 {
	lumaBytes := width * height * 2 // 10-bit samples, 2 bytes each
	if len(a) < lumaBytes || len(b) < lumaBytes {
		return 0
	}

	var sum float64
	var n int
	for y := 0; y < height; y += lumaSampleStride {
		for x := 0; x < width; x += lumaSampleStride {
			idx := (y*width + x) * 2
			av := uint16(a[idx]) | uint16(a[idx+1])<<8
			bv := uint16(b[idx]) | uint16(b[idx+1])<<8
			d := int(av) - int(bv)
			if d < 0 {
				d = -d
			}
			sum += float64(d)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) / 1023.0
}

// pickCuts applies a threshold of the mean plus 6 standard deviations of
// all per-frame difference scores (floored at 0.02) and keeps each frame
// whose score exceeds it, dropping a candidate whose next frame also
// exceeds it (flash detection, see isFlash). Candidates also pass through
// sustained, which accepts every frame whose own score is positive.
func pickCuts(scores []float64) []uint64 {
	if len(scores) < 2 {
		return nil
	}

	mean, stddev := meanStddev(scores)
	threshold := mean + 6*stddev
	if threshold < 0.02 {
		threshold = 0.02
	}

	var cuts []uint64
	for i := 1; i < len(scores); i++ {
		if scores[i] <= threshold {
			continue
		}
		if isFlash(scores, i, threshold) {
			continue
		}
		if !sustained(scores, i) {
			continue
		}
		cuts = append(cuts, uint64(i))
	}
	return cuts
}

func meanStddev(xs []float64) (mean, stddev float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(len(xs)))
	return mean, stddev
}

// isFlash reports whether the spike at i is a brief flash rather than a
// real scene change: the very next frame's score also exceeds threshold
// (a return toward the pre-spike content), indicating a two-frame blip
// rather than a sustained cut.
func isFlash(scores []float64, i int, threshold float64) bool {
	if i+1 >= len(scores) {
		return false
	}
	return scores[i+1] > threshold
}

// sustained averages the difference scores over the lookahead window
// starting at frame i and reports whether that average is positive.
// Scores are non-negative, so a frame whose own score is positive always
// passes; the content before and after the window is not compared.
func sustained(scores []float64, i int) bool {
	end := i + lookaheadFrames
	if end > len(scores) {
		end = len(scores)
	}
	if end-i < 2 {
		return true
	}
	var sum float64
	for j := i; j < end; j++ {
		sum += scores[j]
	}
	avg := sum / float64(end-i)
	return avg > 0
}
