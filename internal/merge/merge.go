// Package merge implements the Merger: concatenation of every scene's
// adopted encoded clip, in scene order, into the final output file via an
// external muxer invoked with mkvmerge's append syntax (first file
// positional, every subsequent file prefixed by "+").
package merge

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/vodstage/vodstage/internal/engine"
)

// muxArgs builds the mkvmerge argument vector: "-o target file0 + file1
// + file2 ...".
func muxArgs(target string, paths []string) []string {
	args := []string{"-o", target}
	for i, p := range paths {
		if i > 0 {
			args = append(args, "+")
		}
		args = append(args, p)
	}
	return args
}

// Merge concatenates results (sorted by scene index) into outputPath via
// mkvmerge. The target is skipped entirely if it already exists; the
// write is published via the same tmp-then-rename idiom used throughout
// the driver. On muxer failure, the exit code and captured output are
// reported.
func Merge(results []engine.SceneResult, outputPath string) error {
	if fileExists(outputPath) {
		return nil
	}
	if len(results) == 0 {
		return fmt.Errorf("no scene results to merge")
	}

	ordered := append([]engine.SceneResult(nil), results...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Scene.Index < ordered[j].Scene.Index })

	paths := make([]string, len(ordered))
	for i, r := range ordered {
		paths[i] = r.ClipPath
	}

	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp := outputPath + ".tmp.mkv"
	_ = os.Remove(tmp)

	cmd := exec.Command("mkvmerge", muxArgs(tmp, paths)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("mkvmerge failed (exit %d): %w\n%s", cmd.ProcessState.ExitCode(), err, out)
	}
	if !fileExists(tmp) {
		return fmt.Errorf("mkvmerge reported success but %s was not produced", tmp)
	}

	if err := os.Rename(tmp, outputPath); err != nil {
		return fmt.Errorf("publish merged output: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
