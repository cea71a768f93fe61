package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const probeTimeout = 30 * time.Second

var errNoFFprobe = errors.New("ffprobe unavailable")

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NbFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

// ffprobe runs ffprobe against path and decodes its JSON report.
// Decoder diagnostics go to stderr which is discarded; -v quiet keeps
// the JSON stream clean.
func (e *Extractor) ffprobe(ctx context.Context, path string) (*ffprobeOutput, error) {
	if e.ffprobePath == "" {
		return nil, errNoFFprobe
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	var report ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// videoStream returns the first video stream in the report, if any.
func (r *ffprobeOutput) videoStream() *ffprobeStream {
	for i := range r.Streams {
		if r.Streams[i].CodecType == "video" {
			return &r.Streams[i]
		}
	}
	return nil
}

// durationSeconds parses the container duration, falling back to the
// first stream that carries one.
func (r *ffprobeOutput) durationSeconds() (float64, bool) {
	if d, err := strconv.ParseFloat(r.Format.Duration, 64); err == nil && d >= 0 {
		return d, true
	}
	for _, s := range r.Streams {
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d >= 0 {
			return d, true
		}
	}
	return 0, false
}

// frameRate parses an avg_frame_rate fraction like "30000/1001".
func (s *ffprobeStream) frameRate() (float64, bool) {
	parts := strings.SplitN(s.AvgFrameRate, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 || num <= 0 {
		return 0, false
	}
	return num / den, true
}

// frameCount returns the stream's total frame count, computed from
// duration and frame rate when the container does not record it.
func (s *ffprobeStream) frameCount() (int64, bool) {
	if n, err := strconv.ParseInt(s.NbFrames, 10, 64); err == nil && n > 0 {
		return n, true
	}
	d, err := strconv.ParseFloat(s.Duration, 64)
	if err != nil || d <= 0 {
		return 0, false
	}
	fps, ok := s.frameRate()
	if !ok {
		return 0, false
	}
	return int64(d * fps), true
}
