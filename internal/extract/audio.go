package extract

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/vncgregorio/videoteka-media-center/internal/filesystem"
)

// probeAudio fills duration and embedded tags for an audio file.
// Duration prefers the container report; when ffprobe is unavailable
// or fails, native decoders handle mp3 and wav.
func (e *Extractor) probeAudio(ctx context.Context, path string, m *Metadata) {
	if report, err := e.ffprobe(ctx, path); err == nil {
		if d, ok := report.durationSeconds(); ok {
			m.DurationSeconds = &d
		}
	}
	if m.DurationSeconds == nil {
		if d, ok := nativeAudioDuration(path); ok {
			m.DurationSeconds = &d
		} else {
			m.fail("audio_duration", ReasonDecodeError)
		}
	}

	readAudioTags(path, m)
}

// nativeAudioDuration decodes mp3 and wav durations without external
// tools. Other formats report false.
func nativeAudioDuration(path string) (float64, bool) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, false
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		dec, err := mp3.NewDecoder(f)
		if err != nil {
			return 0, false
		}
		// Decoded stream is 16-bit stereo at the source sample rate.
		bytesPerSecond := float64(dec.SampleRate() * 4)
		if bytesPerSecond == 0 {
			return 0, false
		}
		return float64(dec.Length()) / bytesPerSecond, true
	case ".wav":
		dec := wav.NewDecoder(f)
		dur, err := dec.Duration()
		if err != nil {
			return 0, false
		}
		return dur.Seconds(), true
	default:
		return 0, false
	}
}

// readAudioTags pulls embedded metadata (artist, album, title) into the
// record's tag map. Files without tags are common and not a failure;
// only an unreadable file counts as one.
func readAudioTags(path string, m *Metadata) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		m.fail("audio_tags", ReasonOpenFailed)
		return
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return
		}
		m.fail("audio_tags", ReasonDecodeError)
		return
	}

	tags := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			tags[key] = value
		}
	}
	put("title", meta.Title())
	put("artist", meta.Artist())
	put("album", meta.Album())
	put("album_artist", meta.AlbumArtist())
	put("genre", meta.Genre())
	if y := meta.Year(); y > 0 {
		tags["year"] = strconv.Itoa(y)
	}
	if n, _ := meta.Track(); n > 0 {
		tags["track"] = strconv.Itoa(n)
	}
	if len(tags) > 0 {
		m.Tags = tags
	}
}
