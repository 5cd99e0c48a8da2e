package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
)

// probePacketSizes iterates a clip's video-stream packets via ffprobe,
// returning each packet's byte size and the stream's duration.
func probePacketSizes(path string) ([]int64, float64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "packet=size",
		"-show_entries", "stream=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed struct {
		Packets []struct {
			Size string `json:"size"`
		} `json:"packets"`
		Streams []struct {
			Duration string `json:"duration"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, 0, fmt.Errorf("parse ffprobe packet list for %s: %w", path, err)
	}

	sizes := make([]int64, 0, len(parsed.Packets))
	for _, p := range parsed.Packets {
		var sz int64
		_, _ = fmt.Sscanf(p.Size, "%d", &sz)
		sizes = append(sizes, sz)
	}

	var duration float64
	if len(parsed.Streams) > 0 {
		_, _ = fmt.Sscanf(parsed.Streams[0].Duration, "%f", &duration)
	}

	return sizes, duration, nil
}

// libvmafLog is the shape of the JSON log libvmaf writes per invocation.
type libvmafLog struct {
	Frames []struct {
		Metrics map[string]float64 `json:"metrics"`
	} `json:"frames"`
}

// calculateFFmpegMetrics runs one ffmpeg+libvmaf process that populates
// PSNR, SSIM, and VMAF simultaneously via a single lavfi filter graph with
// a JSON log path, then parses and deletes the log. Caller must hold m.mu.
func (m *ClipMetrics) calculateFFmpegMetrics(threads int) error {
	if threads < 1 {
		threads = 1
	}
	if err := threadBudget.Acquire(context.Background(), 1); err != nil {
		return fmt.Errorf("acquire metric thread budget: %w", err)
	}
	defer threadBudget.Release(1)

	logPath := m.OutputPath + ".vmaf.json"
	defer os.Remove(logPath)

	distortedFilter := ""
	referenceFilter := m.OriginalFilter

	filterGraph := fmt.Sprintf(
		"[0:v]%ssetpts=PTS-STARTPTS[dist];[1:v]%ssetpts=PTS-STARTPTS[ref];"+
			"[dist][ref]libvmaf=log_fmt=json:log_path=%s:feature=name=psnr|name=float_ssim:n_threads=%d",
		filterPrefix(distortedFilter), filterPrefix(referenceFilter), logPath, threads,
	)

	cmd := exec.Command("ffmpeg",
		"-i", m.OutputPath,
		"-i", m.OriginalPath,
		"-lavfi", filterGraph,
		"-f", "null", "-",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg metrics run for %s failed: %w (%s)", m.OutputPath, err, out)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		return fmt.Errorf("read libvmaf log for %s: %w", m.OutputPath, err)
	}
	var log libvmafLog
	if err := json.Unmarshal(data, &log); err != nil {
		return fmt.Errorf("parse libvmaf log for %s: %w", m.OutputPath, err)
	}

	psnr := make([]float64, 0, len(log.Frames))
	ssim := make([]float64, 0, len(log.Frames))
	vmaf := make([]float64, 0, len(log.Frames))
	for _, f := range log.Frames {
		psnr = append(psnr, f.Metrics["psnr_y"])
		ssim = append(ssim, f.Metrics["float_ssim"])
		vmaf = append(vmaf, f.Metrics["vmaf"])
	}
	m.PSNR, m.SSIM, m.VMAF = psnr, ssim, vmaf

	return m.updateCache()
}

func filterPrefix(filter string) string {
	if filter == "" {
		return ""
	}
	return filter + ","
}
