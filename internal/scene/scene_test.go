package scene

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildScenesPartitionInvariants(t *testing.T) {
	cuts := []uint64{0, 100, 250, 400}
	frameCount := uint64(600)

	scenes := buildScenes(cuts, frameCount)

	if len(scenes) == 0 {
		t.Fatalf("expected at least one scene")
	}
	if scenes[0].StartFrame != 0 {
		t.Fatalf("first scene must start at frame 0, got %d", scenes[0].StartFrame)
	}
	if last := scenes[len(scenes)-1]; last.EndFrame != frameCount-1 {
		t.Fatalf("last scene must end at frameCount-1 (%d), got %d", frameCount-1, last.EndFrame)
	}
	for i := 0; i+1 < len(scenes); i++ {
		if scenes[i+1].StartFrame != scenes[i].EndFrame+1 {
			t.Fatalf("scene %d ends at %d but scene %d starts at %d, expected contiguous partition",
				i, scenes[i].EndFrame, i+1, scenes[i+1].StartFrame)
		}
		if scenes[i].Index != i {
			t.Fatalf("expected scene index %d, got %d", i, scenes[i].Index)
		}
	}
}

func TestBuildScenesIgnoresCutAtFrameZero(t *testing.T) {
	// A detector reporting a cut at frame 0 should not produce a
	// zero-length leading scene.
	scenes := buildScenes([]uint64{0}, 100)
	if len(scenes) != 1 {
		t.Fatalf("expected a single scene spanning the whole source, got %d", len(scenes))
	}
	if scenes[0].StartFrame != 0 || scenes[0].EndFrame != 99 {
		t.Fatalf("expected scene [0,99], got [%d,%d]", scenes[0].StartFrame, scenes[0].EndFrame)
	}
}

func TestBuildScenesSingleScene(t *testing.T) {
	scenes := buildScenes(nil, 1)
	if len(scenes) != 1 {
		t.Fatalf("expected one scene for a single-frame source, got %d", len(scenes))
	}
	if scenes[0].StartFrame != 0 || scenes[0].EndFrame != 0 {
		t.Fatalf("expected scene [0,0], got [%d,%d]", scenes[0].StartFrame, scenes[0].EndFrame)
	}
}

func TestSceneLength(t *testing.T) {
	s := Scene{Index: 0, StartFrame: 10, EndFrame: 19}
	if got := s.Length(); got != 10 {
		t.Fatalf("expected length 10, got %d", got)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "scenes.json")

	want := buildScenes([]uint64{0, 50, 120}, 200)

	data, err := json.MarshalIndent(want, "", "  ")
	if err != nil {
		t.Fatalf("marshal scenes: %v", err)
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	got, err := load(cachePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d scenes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scene %d mismatch: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLoadMissingCacheReturnsError(t *testing.T) {
	dir := t.TempDir()
	if _, err := load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected an error loading a nonexistent cache file")
	}
}
