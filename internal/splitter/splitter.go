// Package splitter implements the Scene Splitter: one sequential decode of
// the source, re-muxed into per-scene losslessly-compressed intermediate
// files so the Encode Engine can operate on scenes independently.
package splitter

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vodstage/vodstage/internal/config"
	"github.com/vodstage/vodstage/internal/ffmpegio"
	"github.com/vodstage/vodstage/internal/probe"
	"github.com/vodstage/vodstage/internal/scene"
)

// ProgressFunc is called after each scene finishes (or is skipped), with
// the scene's frame count.
type ProgressFunc func(frames uint64)

// ScenePath returns the expected path of a finalized scene file.
func ScenePath(outDir string, index int) string {
	return filepath.Join(outDir, "source", fmt.Sprintf("scene-%05d.mkv", index))
}

// Split produces "<out>/source/scene-NNNNN.mkv" for every scene, reusing
// one decoder across the whole source. Scenes whose final file already
// exists have their frames drained from the decoder and discarded rather
// than re-encoded, preserving stream alignment for subsequent scenes.
func Split(cfg *config.Config, meta *probe.Metadata, scenes []scene.Scene, onProgress ProgressFunc) error {
	outDir := filepath.Join(cfg.OutputDir, "source")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create scene output directory: %w", err)
	}

	dec, err := ffmpegio.NewDecoder(cfg.Source, meta.CropFilter)
	if err != nil {
		return fmt.Errorf("open source decoder: %w", err)
	}
	defer dec.Close()

	for _, sc := range scenes {
		finalPath := ScenePath(cfg.OutputDir, sc.Index)
		length := int(sc.Length())

		if fileExists(finalPath) {
			if err := dec.Drain(length); err != nil {
				return fmt.Errorf("drain scene %d (already split): %w", sc.Index, err)
			}
			if onProgress != nil {
				onProgress(sc.Length())
			}
			continue
		}

		tmpPath := finalPath + ".tmp.mkv"
		_ = os.Remove(tmpPath)

		if err := writeSceneClip(dec, tmpPath, length); err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("split scene %d: %w", sc.Index, err)
		}
		if err := os.Rename(tmpPath, finalPath); err != nil {
			return fmt.Errorf("publish scene %d: %w", sc.Index, err)
		}
		if onProgress != nil {
			onProgress(sc.Length())
		}
	}

	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeSceneClip spawns a lossless (FFV1, level 3) encoder, streams
// exactly length frames from dec through a re-assembled yuv4mpegpipe
// stream into its stdin, then waits for it to exit successfully.
func writeSceneClip(dec *ffmpegio.Decoder, tmpPath string, length int) error {
	cmd := exec.Command("ffmpeg",
		"-f", "yuv4mpegpipe",
		"-i", "-",
		"-c:v", "ffv1",
		"-level", "3",
		"-y", tmpPath,
	)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open encoder stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn lossless encoder: %w", err)
	}

	writeErr := streamFrames(dec, stdin, length)
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("lossless encoder exited with error: %w", err)
	}
	if writeErr != nil {
		return writeErr
	}
	if !fileExists(tmpPath) {
		return fmt.Errorf("expected output %s not produced", tmpPath)
	}
	return nil
}

func streamFrames(dec *ffmpegio.Decoder, w io.Writer, length int) error {
	// Replay the source stream's own header so frame rate, aspect, and
	// pixel format survive the per-scene re-containering.
	if _, err := io.WriteString(w, dec.Header+"\n"); err != nil {
		return fmt.Errorf("write y4m header: %w", err)
	}

	for i := 0; i < length; i++ {
		frame, err := dec.ReadFrame()
		if err != nil {
			return fmt.Errorf("read frame %d of %d: %w", i, length, err)
		}
		if _, err := io.WriteString(w, "FRAME\n"); err != nil {
			return fmt.Errorf("write frame marker: %w", err)
		}
		if _, err := w.Write(frame); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}
