// Package qrange implements the bisection state used to search a codec's
// quality domain: a closed integer interval [min, max] at a fixed precision.
package qrange

import "math"

// Range is a bisection interval over an integer grid. Non-bitrate axes
// store their endpoints scaled by Divisor so that fractional-step axes
// (e.g. CRF at 0.25 steps) are representable as integers; bitrate axes use
// Divisor as a coarsening factor instead. Zero value is not usable; build
// with New.
type Range struct {
	min, max int64
	divisor  int64
	bitrate  bool
}

// New constructs a Range over [min, max] at the given divisor. For
// non-bitrate axes quality is measured at 1/divisor resolution, so the
// stored endpoints are min*divisor and max*divisor. For bitrate axes the
// divisor coarsens the domain, so the stored endpoints are min/divisor and
// max/divisor.
func New(min, max float64, divisor int64, isBitrate bool) *Range {
	r := &Range{divisor: divisor, bitrate: isBitrate}
	if isBitrate {
		r.min = int64(min) / divisor
		r.max = int64(max) / divisor
	} else {
		r.min = int64(math.Round(min * float64(divisor)))
		r.max = int64(math.Round(max * float64(divisor)))
	}
	return r
}

// Current returns the real-valued midpoint and true, or (0, false) once the
// interval is exhausted (min > max).
func (r *Range) Current() (float64, bool) {
	if r.min > r.max {
		return 0, false
	}
	mid := r.min + (r.max-r.min)/2
	return r.toUser(mid), true
}

// midpointInt returns the raw integer midpoint used by Lower/Higher; it
// must only be called when Current would return ok==true.
func (r *Range) midpointInt() int64 {
	return r.min + (r.max-r.min)/2
}

// Lower contracts the interval to [min, mid-1].
func (r *Range) Lower() {
	r.max = r.midpointInt() - 1
}

// Higher contracts the interval to [mid+1, max].
func (r *Range) Higher() {
	r.min = r.midpointInt() + 1
}

// Integer reports whether the quality axis should be displayed as a whole
// number; it governs formatting only.
func (r *Range) Integer() bool {
	return r.bitrate || r.divisor == 1
}

// Minimum returns the current lower endpoint in user units.
func (r *Range) Minimum() float64 {
	return r.toUser(r.min)
}

// Maximum returns the current upper endpoint in user units.
func (r *Range) Maximum() float64 {
	return r.toUser(r.max)
}

// Width returns max(0, max-min+1) on the raw integer grid, used by tests to
// assert monotone shrinkage.
func (r *Range) Width() int64 {
	if r.max < r.min {
		return 0
	}
	return r.max - r.min + 1
}

func (r *Range) toUser(v int64) float64 {
	if r.bitrate {
		return float64(v * r.divisor)
	}
	return float64(v) / float64(r.divisor)
}
