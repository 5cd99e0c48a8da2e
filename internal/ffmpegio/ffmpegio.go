// Package ffmpegio wraps the external frame producer: an ffmpeg process
// emitting raw 10-bit 4:2:0 frames in the yuv4mpegpipe streaming format,
// consumed by scene detection and the scene splitter. Only the stdout
// framing is load-bearing here; decoding itself stays in the subprocess.
package ffmpegio

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Decoder streams successive raw frames from one ffmpeg process. Frames
// must be read strictly in order; Close terminates the subprocess.
type Decoder struct {
	cmd       *exec.Cmd
	r         *bufio.Reader
	Width     int
	Height    int
	Header    string // the stream header line, without trailing newline
	frameSize int
}

// NewDecoder spawns ffmpeg against source, optionally applying cropFilter,
// and parses the yuv4mpegpipe stream header to learn frame dimensions.
func NewDecoder(source, cropFilter string) (*Decoder, error) {
	args := []string{"-i", source}
	if cropFilter != "" {
		args = append(args, "-vf", cropFilter)
	}
	args = append(args, "-pix_fmt", "yuv420p10le", "-f", "yuv4mpegpipe", "-strict", "-1", "-")

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open decoder stdout for %s: %w", source, err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("spawn decoder for %s: %w", source, err)
	}

	r := bufio.NewReaderSize(stdout, 1<<20)
	header, err := r.ReadString('\n')
	if err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("read y4m header for %s: %w", source, err)
	}

	width, height, err := parseHeader(header)
	if err != nil {
		_ = cmd.Wait()
		return nil, fmt.Errorf("parse y4m header for %s: %w", source, err)
	}

	chromaW, chromaH := (width+1)/2, (height+1)/2
	frameSize := width*height*2 + 2*chromaW*chromaH*2 // 10-bit: 2 bytes/sample, 4:2:0

	return &Decoder{
		cmd:       cmd,
		r:         r,
		Width:     width,
		Height:    height,
		Header:    strings.TrimRight(header, "\n"),
		frameSize: frameSize,
	}, nil
}

func parseHeader(header string) (width, height int, err error) {
	for _, tok := range strings.Fields(header) {
		switch {
		case strings.HasPrefix(tok, "W"):
			width, err = strconv.Atoi(tok[1:])
		case strings.HasPrefix(tok, "H"):
			height, err = strconv.Atoi(tok[1:])
		}
		if err != nil {
			return 0, 0, err
		}
	}
	if width == 0 || height == 0 {
		return 0, 0, fmt.Errorf("missing width/height in header %q", header)
	}
	return width, height, nil
}

// ReadFrame returns the next frame's raw plane bytes, or io.EOF once the
// stream is exhausted.
func (d *Decoder) ReadFrame() ([]byte, error) {
	if _, err := d.r.ReadString('\n'); err != nil {
		return nil, io.EOF
	}
	buf := make([]byte, d.frameSize)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, io.EOF
	}
	return buf, nil
}

// Drain discards n frames without copying their payload into caller-owned
// buffers, used by the scene splitter to skip already-finalized scenes.
func (d *Decoder) Drain(n int) error {
	for i := 0; i < n; i++ {
		if _, err := d.ReadFrame(); err != nil {
			return fmt.Errorf("drain frame %d of %d: %w", i, n, err)
		}
	}
	return nil
}

// FrameSize returns the byte length of one raw frame.
func (d *Decoder) FrameSize() int { return d.frameSize }

// Close terminates the decoder subprocess and releases its resources.
func (d *Decoder) Close() error {
	if d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	_ = d.cmd.Wait()
	return nil
}
