package metrics

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// calculateSSIMULACRA2 extracts frame pairs from the reference and
// distorted clips to temporary PNGs, then scores each pair with the
// external ssimulacra2 binary, spread across threads goroutines.
func calculateSSIMULACRA2(originalPath, originalFilter, distortedPath string, threads int) ([]float64, error) {
	if threads < 1 {
		threads = 1
	}
	if err := threadBudget.Acquire(context.Background(), 1); err != nil {
		return nil, fmt.Errorf("acquire metric thread budget: %w", err)
	}
	defer threadBudget.Release(1)

	workDir, err := os.MkdirTemp("", "vodstage-ssimu2-*")
	if err != nil {
		return nil, fmt.Errorf("create ssimulacra2 work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	refDir := filepath.Join(workDir, "ref")
	distDir := filepath.Join(workDir, "dist")
	if err := os.MkdirAll(refDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(distDir, 0755); err != nil {
		return nil, err
	}

	if err := extractFrames(originalPath, originalFilter, refDir); err != nil {
		return nil, fmt.Errorf("extract reference frames: %w", err)
	}
	if err := extractFrames(distortedPath, "", distDir); err != nil {
		return nil, fmt.Errorf("extract distorted frames: %w", err)
	}

	refFrames, err := sortedPNGs(refDir)
	if err != nil {
		return nil, err
	}
	distFrames, err := sortedPNGs(distDir)
	if err != nil {
		return nil, err
	}
	n := len(refFrames)
	if len(distFrames) < n {
		n = len(distFrames)
	}

	scores := make([]float64, n)
	errs := make([]error, n)

	sem := make(chan struct{}, threads)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scores[i], errs[i] = scoreFramePair(refFrames[i], distFrames[i])
		}(i)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return scores, nil
}

func extractFrames(path, filter, outDir string) error {
	args := []string{"-i", path}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args, filepath.Join(outDir, "frame-%06d.png"))
	cmd := exec.Command("ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg frame extraction for %s failed: %w (%s)", path, err, out)
	}
	return nil
}

func sortedPNGs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frames in %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			names = append(names, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(names)
	return names, nil
}

func scoreFramePair(refPath, distPath string) (float64, error) {
	cmd := exec.Command("ssimulacra2", refPath, distPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ssimulacra2 %s %s: %w", refPath, distPath, err)
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ssimulacra2 output %q: %w", string(out), err)
	}
	return score, nil
}
