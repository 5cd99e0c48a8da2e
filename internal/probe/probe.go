// Package probe computes and caches per-source metadata: frame count,
// duration, dimensions, dynamic range, and an optional crop filter.
package probe

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/vodstage/vodstage/internal/util"
)

// Metadata is the single-shot per-source record persisted as
// config/metadata.json. Once cached, it is never mutated.
type Metadata struct {
	FrameCount uint64  `json:"frame_count"`
	Duration   float64 `json:"duration_secs"`
	CropFilter string  `json:"crop_filter,omitempty"`
	Width      uint32  `json:"width"`
	Height     uint32  `json:"height"`
	IsHDR      bool    `json:"is_hdr"`
}

// inflight de-duplicates concurrent probes of the same source within one
// process.
var inflight sync.Map // map[string]*sync.Once

// Get returns the Metadata for source, loading it from
// "<outDir>/config/metadata.json" if present, otherwise computing and
// atomically persisting it.
func Get(source, outDir string, disableCrop bool) (*Metadata, error) {
	cachePath := filepath.Join(outDir, "config", "metadata.json")

	onceI, _ := inflight.LoadOrStore(cachePath, &sync.Once{})
	once := onceI.(*sync.Once)

	var result *Metadata
	var resultErr error
	once.Do(func() {
		result, resultErr = loadOrCompute(source, cachePath, disableCrop)
	})
	if result != nil || resultErr != nil {
		return result, resultErr
	}
	// Another call already ran Do(); re-read from the now-persisted cache.
	return loadCache(cachePath)
}

func loadOrCompute(source, cachePath string, disableCrop bool) (*Metadata, error) {
	if m, err := loadCache(cachePath); err == nil {
		return m, nil
	}

	if err := ensureDir(filepath.Dir(cachePath)); err != nil {
		return nil, err
	}

	props, err := ffprobeStream(source)
	if err != nil {
		return nil, fmt.Errorf("probe metadata for %s: %w", source, err)
	}

	crop := ""
	if !disableCrop {
		crop = detectCrop(source, props)
	}

	m := &Metadata{
		FrameCount: props.frameCount,
		Duration:   props.duration,
		CropFilter: crop,
		Width:      props.width,
		Height:     props.height,
		IsHDR:      props.isHDR,
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata for %s: %w", source, err)
	}
	if err := util.WriteAtomic(cachePath, data, 0644); err != nil {
		return nil, fmt.Errorf("persist metadata cache: %w", err)
	}
	return m, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

func loadCache(cachePath string) (*Metadata, error) {
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("deserialize metadata cache %s: %w", cachePath, err)
	}
	return &m, nil
}

type streamProps struct {
	frameCount uint64
	duration   float64
	width      uint32
	height     uint32
	isHDR      bool
}

// ffprobeStream shells out to ffprobe to count video-stream packets and
// read duration, width, height, and transfer characteristics, rather
// than reimplementing a demuxer in-process.
func ffprobeStream(source string) (*streamProps, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-count_packets",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_read_packets,duration,width,height,color_transfer",
		"-of", "json",
		source,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", source, err)
	}

	var parsed struct {
		Streams []struct {
			NbReadPackets string `json:"nb_read_packets"`
			Duration      string `json:"duration"`
			Width         uint32 `json:"width"`
			Height        uint32 `json:"height"`
			ColorTransfer string `json:"color_transfer"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", source, err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no video stream found in %s", source)
	}
	s := parsed.Streams[0]

	frames, err := strconv.ParseUint(s.NbReadPackets, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse frame count for %s: %w", source, err)
	}
	duration, err := strconv.ParseFloat(s.Duration, 64)
	if err != nil {
		duration = 0
	}

	isHDR := s.ColorTransfer == "smpte2084" || s.ColorTransfer == "arib-std-b67"

	return &streamProps{
		frameCount: frames,
		duration:   duration,
		width:      s.Width,
		height:     s.Height,
		isHDR:      isHDR,
	}, nil
}

const cropDetectionConcurrency = 8

var cropRegex = regexp.MustCompile(`crop=(\d+:\d+:\d+:\d+)`)

// detectCrop samples the source at 141 points between 15% and 85% of its
// duration, running ffmpeg's cropdetect filter at each point and taking
// a majority vote. A crop is only adopted when one candidate dominates
// the vote; mixed-aspect sources stay uncropped.
func detectCrop(source string, props *streamProps) string {
	threshold := 16
	if props.isHDR {
		threshold = 100
	}

	var samplePoints []float64
	for i := 30; i <= 170; i++ {
		samplePoints = append(samplePoints, float64(i)/200.0)
	}

	cropCounts := make(map[string]int)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, cropDetectionConcurrency)

	for _, position := range samplePoints {
		wg.Add(1)
		go func(pos float64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			startTime := props.duration * pos
			crop := sampleCropAt(source, startTime, threshold)
			if crop != "" {
				mu.Lock()
				cropCounts[crop]++
				mu.Unlock()
			}
		}(position)
	}
	wg.Wait()

	if len(cropCounts) == 0 {
		return ""
	}

	type count struct {
		crop string
		n    int
	}
	var sorted []count
	total := 0
	for c, n := range cropCounts {
		sorted = append(sorted, count{c, n})
		total += n
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].n > sorted[j].n })

	best := sorted[0]
	if len(cropCounts) > 1 && float64(best.n)/float64(total) <= 0.8 {
		return "" // no dominant crop, multiple aspect ratios
	}
	if !isEffectiveCrop(best.crop, props.width, props.height) {
		return ""
	}
	return "crop=" + best.crop
}

func sampleCropAt(source string, startTime float64, threshold int) string {
	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-ss", fmt.Sprintf("%.2f", startTime),
		"-i", source,
		"-vframes", "10",
		"-vf", fmt.Sprintf("cropdetect=limit=%d:round=2:reset=1", threshold),
		"-f", "null", "-",
	)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return ""
	}
	if err := cmd.Start(); err != nil {
		return ""
	}

	counts := make(map[string]int)
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if m := cropRegex.FindStringSubmatch(scanner.Text()); len(m) >= 2 && isValidCropFormat(m[1]) {
			counts[m[1]]++
		}
	}
	_ = cmd.Wait()

	best, bestN := "", 0
	for c, n := range counts {
		if n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func isValidCropFormat(crop string) bool {
	parts := strings.Split(crop, ":")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if _, err := strconv.ParseUint(p, 10, 32); err != nil {
			return false
		}
	}
	return true
}

func isEffectiveCrop(crop string, width, height uint32) bool {
	parts := strings.Split(crop, ":")
	if len(parts) < 2 {
		return true
	}
	w, err1 := strconv.ParseUint(parts[0], 10, 32)
	h, err2 := strconv.ParseUint(parts[1], 10, 32)
	if err1 != nil || err2 != nil {
		return true
	}
	return uint32(w) != width || uint32(h) != height
}
