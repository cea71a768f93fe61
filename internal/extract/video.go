package extract

import (
	"bytes"
	"context"
	"image"
	"io"
	"os/exec"
	"strconv"
)

// probeVideo fills duration and dimensions for a video file. Duration
// comes from the container report. Dimensions come from decoding a
// representative frame sampled at 25% of the total frame count, falling
// back to frame 0 when seeking fails or the frame count is unknown; the
// frame itself is discarded once measured.
func (e *Extractor) probeVideo(ctx context.Context, path string, m *Metadata) {
	report, err := e.ffprobe(ctx, path)
	if err != nil {
		reason := ReasonDecodeError
		if err == errNoFFprobe {
			reason = ReasonToolMissing
		}
		m.fail("video_container", reason)
		return
	}

	if d, ok := report.durationSeconds(); ok {
		m.DurationSeconds = &d
	} else {
		m.fail("video_duration", ReasonDecodeError)
	}

	stream := report.videoStream()
	if stream == nil {
		m.fail("video_dimensions", ReasonNoStream)
		return
	}

	seek := 0.0
	if frames, ok := stream.frameCount(); ok {
		if fps, fpsOK := stream.frameRate(); fpsOK {
			seek = float64(frames) / 4 / fps
		}
	}

	w, h, err := e.sampleFrameDimensions(ctx, path, seek)
	if err != nil && seek > 0 {
		// Seek point unreadable; retry at the first frame.
		w, h, err = e.sampleFrameDimensions(ctx, path, 0)
	}
	if err != nil {
		if err == errNoFFmpeg {
			m.fail("video_dimensions", ReasonToolMissing)
		} else {
			m.fail("video_dimensions", ReasonDecodeError)
		}
		return
	}
	if w <= 0 || h <= 0 {
		m.fail("video_dimensions", ReasonZeroFrames)
		return
	}
	m.Width = &w
	m.Height = &h
}

var errNoFFmpeg = errNoTool("ffmpeg")

type errNoTool string

func (e errNoTool) Error() string { return string(e) + " unavailable" }

// sampleFrameDimensions decodes one frame at the given offset and
// returns its pixel dimensions. Decoder noise on stderr is discarded.
func (e *Extractor) sampleFrameDimensions(ctx context.Context, path string, seekSeconds float64) (int64, int64, error) {
	if e.ffmpegPath == "" {
		return 0, 0, errNoFFmpeg
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := []string{"-v", "quiet"}
	if seekSeconds > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seekSeconds, 'f', 3, 64))
	}
	args = append(args,
		"-i", path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		return 0, 0, err
	}

	cfg, _, err := image.DecodeConfig(&out)
	if err != nil {
		return 0, 0, err
	}
	return int64(cfg.Width), int64(cfg.Height), nil
}
