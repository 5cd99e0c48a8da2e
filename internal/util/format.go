package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// videoExtensions is the set of extensions treated as video files by batch
// directory discovery.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".mov": true, ".avi": true,
	".webm": true, ".m4v": true, ".ts": true, ".wmv": true,
}

// IsVideoFile reports whether path has a recognized video file extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// FormatBytesReadable renders a byte count as a human-readable size
// ("1.20 GB"), matching the base-1000 convention used for bitrate reporting
// elsewhere in the reporter output.
func FormatBytesReadable(n int64) string {
	const unit = 1000.0
	v := float64(n)
	units := []string{"B", "kB", "MB", "GB", "TB"}
	i := 0
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", n, units[i])
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}

// FormatDurationFromSecs renders a second count as "1h23m45s"-style text,
// dropping leading zero components.
func FormatDurationFromSecs(secs int64) string {
	d := time.Duration(secs) * time.Second
	h := int64(d.Hours())
	m := int64(d.Minutes()) % 60
	s := int64(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// CalculateSizeReduction returns the percentage size reduction from
// original to encoded, 0 when the original size is unknown.
func CalculateSizeReduction(original, encoded int64) float64 {
	if original <= 0 {
		return 0
	}
	return (1 - float64(encoded)/float64(original)) * 100
}

// WriteAtomic writes data to a ".tmp" sibling of path and renames it into
// place, the publish idiom load-bearing for every cache and artifact in
// the pipeline.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}
