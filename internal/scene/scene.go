// Package scene holds the Scene Catalog: the deterministic partition of a
// source into scenes, persisted per output directory.
package scene

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/probe"
	"github.com/vodstage/vodstage/internal/util"
)

// Scene is a contiguous run of source frames bounded by detected scene
// changes. Index is stable across runs; it is the persistence key and the
// basis for scene-NNNNN file naming.
type Scene struct {
	Index      int    `json:"index"`
	StartFrame uint64 `json:"start_frame"`
	EndFrame   uint64 `json:"end_frame"`
}

// Length returns the scene's frame count.
func (s Scene) Length() uint64 {
	return s.EndFrame - s.StartFrame + 1
}

// Get returns the scene partition for cfg.Source, loading it from
// "<out>/config/scenes.json" if present, otherwise running scene-change
// detection and persisting the result atomically.
func Get(cfg *config.Config, meta *probe.Metadata) ([]Scene, error) {
	cachePath := filepath.Join(cfg.OutputDir, "config", "scenes.json")

	if scenes, err := load(cachePath); err == nil {
		return scenes, nil
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return nil, fmt.Errorf("create scene cache directory: %w", err)
	}

	cuts, detectedFrames, err := detectSceneChanges(cfg.Source, meta.CropFilter)
	if err != nil {
		return nil, fmt.Errorf("detect scene changes in %s: %w", cfg.Source, err)
	}

	if detectedFrames != meta.FrameCount {
		fmt.Fprintf(os.Stderr, "warning: scene detector frame count (%d) does not match metadata frame count (%d)\n",
			detectedFrames, meta.FrameCount)
	}

	scenes := buildScenes(cuts, meta.FrameCount)

	data, err := json.MarshalIndent(scenes, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scene catalog: %w", err)
	}
	if err := util.WriteAtomic(cachePath, data, 0644); err != nil {
		return nil, fmt.Errorf("persist scene catalog: %w", err)
	}

	return scenes, nil
}

func load(cachePath string) ([]Scene, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var scenes []Scene
	if err := json.Unmarshal(data, &scenes); err != nil {
		return nil, fmt.Errorf("deserialize scene cache %s: %w", cachePath, err)
	}
	return scenes, nil
}

// buildScenes appends the sentinel frameCount to the scene-change index
// list and pairs consecutive values into Scene entries.
func buildScenes(cuts []uint64, frameCount uint64) []Scene {
	bounds := make([]uint64, 0, len(cuts)+1)
	for _, c := range cuts {
		if c != 0 { // a detector reporting a cut at frame 0 is not a boundary
			bounds = append(bounds, c)
		}
	}
	bounds = append(bounds, frameCount)

	scenes := make([]Scene, 0, len(bounds))
	start := uint64(0)
	for i, b := range bounds {
		scenes = append(scenes, Scene{
			Index:      i,
			StartFrame: start,
			EndFrame:   b - 1,
		})
		start = b
	}
	return scenes
}
