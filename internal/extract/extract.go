package extract

import (
	"context"
	"os/exec"
	"time"

	"github.com/vncgregorio/videoteka-media-center/internal/filesystem"
	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/metrics"
)

// Probe failure reasons. A probe either succeeds or records exactly one
// of these; nothing is silently swallowed.
const (
	ReasonOpenFailed  = "open_failed"
	ReasonDecodeError = "decode_error"
	ReasonNoStream    = "no_stream"
	ReasonZeroFrames  = "zero_frames"
	ReasonToolMissing = "tool_missing"
)

// Failure identifies which probe failed and why. Failures are carried
// on the Metadata result so the skip policy is observable; they never
// abort extraction.
type Failure struct {
	Probe  string `json:"probe"`
	Reason string `json:"reason"`
}

// Metadata is the result of extracting one file. Duration is populated
// only for audio and video, dimensions only for video and image; either
// may be absent when the corresponding probe failed.
type Metadata struct {
	SizeBytes       int64
	ModifiedAt      time.Time
	DurationSeconds *float64
	Width           *int64
	Height          *int64
	Tags            map[string]string
	Failures        []Failure
}

func (m *Metadata) fail(probe, reason string) {
	m.Failures = append(m.Failures, Failure{Probe: probe, Reason: reason})
	metrics.ExtractProbeFailures.WithLabelValues(probe, reason).Inc()
	logging.Debug("extract: probe %s failed: %s", probe, reason)
}

// Extractor probes media files for duration and pixel dimensions.
// Container probing shells out to ffprobe/ffmpeg when present; audio
// falls back to native decoders when they are not. Tool availability
// is resolved once at construction.
type Extractor struct {
	ffprobePath string
	ffmpegPath  string
}

// New locates the external probe tools. A missing tool is not an
// error; the affected probes record tool_missing and the native
// fallbacks still run.
func New() *Extractor {
	e := &Extractor{}
	if p, err := exec.LookPath("ffprobe"); err == nil {
		e.ffprobePath = p
	} else {
		logging.Warn("ffprobe not found in PATH; container probing limited to native decoders")
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		e.ffmpegPath = p
	} else {
		logging.Warn("ffmpeg not found in PATH; video frame sampling unavailable")
	}
	return e
}

// Extract stats path and runs the probes appropriate for kind. The
// only hard failure is the file being gone at stat time; every probe
// failure is recorded on the result instead.
func (e *Extractor) Extract(ctx context.Context, path string, kind mediatypes.Kind) (*Metadata, error) {
	start := time.Now()
	defer func() {
		metrics.ExtractDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}

	m := &Metadata{
		SizeBytes:  info.Size(),
		ModifiedAt: info.ModTime(),
	}

	switch kind {
	case mediatypes.KindVideo:
		e.probeVideo(ctx, path, m)
	case mediatypes.KindAudio:
		e.probeAudio(ctx, path, m)
	case mediatypes.KindImage:
		probeImage(path, m)
	}
	return m, nil
}
