package engine

import (
	"math"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/qrange"
)

// probeFunc runs a single-quality encode of one scene and returns the clip
// path together with the reduced scalar quality-metric value observed at
// that quality.
type probeFunc func(q float64) (clipPath string, metricValue float64, err error)

// searchResult is the outcome of a bisection search for one scene.
type searchResult struct {
	ClipPath    string
	Quality     float64
	MetricValue float64
	Probes      int
}

// qualityIncreasesWithMetric reports whether increasing the raw encode
// quality parameter q increases the measured objective-quality metric.
// Bitrate axes: more bitrate, better quality. CRF/QP axes: a larger
// quality parameter means more compression and worse quality.
func qualityIncreasesWithMetric(mode config.Mode) bool {
	return mode == config.ModeBitrate
}

// search runs cfg.Rule's bisection search over rng, probing at each
// midpoint via probe, and returns the adopted quality/clip.
//
//   - RuleMinimum treats target as a floor (metric must be >= target).
//     Among satisfying probes it keeps the one that invests the least
//     encode effort — the common "smallest file that still clears a
//     quality bar" search, and the default rule.
//   - RuleMaximum treats target as a ceiling (metric must be <= target).
//     Among satisfying probes it keeps the one that invests the most
//     encode effort while staying under the ceiling — used when the
//     metric is itself a resource cap, e.g. MetricBitrate as a size
//     budget.
//   - RuleTarget has no inequality constraint; it converges on whichever
//     probe's metric value lands closest to target.
func search(cfg *config.Config, rng *qrange.Range, target float64, probe probeFunc) (*searchResult, error) {
	var best *searchResult
	increases := qualityIncreasesWithMetric(cfg.Mode)
	probes := 0

	for {
		q, ok := rng.Current()
		if !ok {
			break
		}
		clip, metric, err := probe(q)
		if err != nil {
			return nil, err
		}
		probes++
		candidate := &searchResult{ClipPath: clip, Quality: q, MetricValue: metric, Probes: probes}

		switch cfg.Rule {
		case config.RuleMinimum:
			if metric >= target {
				best = candidate
				if increases {
					rng.Lower()
				} else {
					rng.Higher()
				}
			} else {
				if increases {
					rng.Higher()
				} else {
					rng.Lower()
				}
			}
		case config.RuleMaximum:
			if metric <= target {
				best = candidate
				if increases {
					rng.Higher()
				} else {
					rng.Lower()
				}
			} else {
				if increases {
					rng.Lower()
				} else {
					rng.Higher()
				}
			}
		default: // RuleTarget
			if best == nil || math.Abs(metric-target) < math.Abs(best.MetricValue-target) {
				best = candidate
			}
			var raise bool
			if increases {
				raise = metric <= target
			} else {
				raise = metric >= target
			}
			if raise {
				rng.Higher()
			} else {
				rng.Lower()
			}
		}
	}

	if best == nil {
		return nil, nil
	}
	best.Probes = probes
	return best, nil
}

// seedQuality is the quality adopted when no probe ever satisfies the
// rule's predicate. For RuleMinimum and RuleTarget it is the endpoint of
// the untouched range that invests the most encode effort, so an
// unsatisfiable floor still yields the best clip the codec's domain
// allows; for RuleMaximum it is the endpoint that invests the least, the
// closest the domain gets to an unsatisfiable ceiling.
func seedQuality(cfg *config.Config, rangeMin, rangeMax float64) float64 {
	if cfg.Mode == config.ModeBitrate {
		if cfg.Rule == config.RuleMaximum {
			return rangeMin
		}
		return rangeMax
	}
	if cfg.Rule == config.RuleMaximum {
		return rangeMax
	}
	return rangeMin
}
