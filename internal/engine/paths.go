package engine

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/vodstage/vodstage/internal/config"
)

// TuneArguments is the set of arguments hashed into the identifier besides
// the encoder/preset/mode already named explicitly. The CLI surface this
// driver exposes (§6) carries no further per-encoder tuning flags beyond
// preset, so the tune-argument list degenerates to the preset alone; a
// richer CLI would extend this slice without changing EncodeIdentifier's
// contract. Exported so the CLI can derive the same identifier the engine
// uses for cache paths when it names the final output.
func TuneArguments(cfg *config.Config) []string {
	return []string{cfg.Preset}
}

// encodeDir returns "<out>/encode/<id-no-q>/scene-NNNNN".
func encodeDir(cfg *config.Config, sceneIndex int) string {
	id := cfg.EncodeIdentifier(false, TuneArguments(cfg))
	return filepath.Join(cfg.OutputDir, "encode", id, fmt.Sprintf("scene-%05d", sceneIndex))
}

// qualityBasename renders the "<mode>-<q>" file stem used for per-quality
// probe outputs, matching formatQuality's zero-padded-integer /
// two-decimal convention.
func qualityBasename(cfg *config.Config, q float64) string {
	if cfg.Mode == config.ModeBitrate || q == math.Trunc(q) {
		return fmt.Sprintf("%s-%03d", cfg.Mode, int64(math.Round(q)))
	}
	return fmt.Sprintf("%s-%05.2f", cfg.Mode, q)
}

// outputPath returns the final per-quality encoded clip path for a scene.
func outputPath(cfg *config.Config, sceneIndex int, q float64) string {
	return filepath.Join(encodeDir(cfg, sceneIndex), qualityBasename(cfg, q)+"."+cfg.Encoder.Extension())
}

// statsPath returns the shared multi-pass stats file path for a scene/quality.
func statsPath(cfg *config.Config, sceneIndex int, q float64) string {
	return filepath.Join(encodeDir(cfg, sceneIndex), qualityBasename(cfg, q)+".stats.log")
}

// keyframeInterval computes "every 5 seconds" in frames, rounded, from the
// whole-source frame count and duration.
func keyframeInterval(frameCount uint64, duration float64) int {
	if duration <= 0 {
		return int(frameCount)
	}
	return int(math.Round(float64(frameCount) * 5 / duration))
}
