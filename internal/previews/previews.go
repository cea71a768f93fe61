package previews

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
	"github.com/vncgregorio/videoteka-media-center/internal/mediatypes"
	"github.com/vncgregorio/videoteka-media-center/internal/metrics"
)

const (
	previewWidth  = 200
	previewHeight = 200
	jpegQuality   = 80

	genTimeout = 60 * time.Second
)

// ErrUnsupported is returned for kinds that have no preview rendering
// (documents, and audio without embedded art handling).
var ErrUnsupported = errors.New("no preview for this media kind")

// Cache renders and stores small JPEG previews keyed by source path.
// Requests for a path already being rendered attach to the pending
// render instead of spawning a duplicate.
type Cache struct {
	dir        string
	ffmpegPath string

	mu       sync.Mutex
	inFlight map[string]chan struct{}
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preview cache dir: %w", err)
	}
	c := &Cache{
		dir:      dir,
		inFlight: make(map[string]chan struct{}),
	}
	if p, err := exec.LookPath("ffmpeg"); err == nil {
		c.ffmpegPath = p
	} else {
		logging.Warn("ffmpeg not found in PATH; video previews unavailable")
	}
	return c, nil
}

// PreviewPath returns the cache file path for a source path, whether or
// not it exists yet.
func (c *Cache) PreviewPath(sourcePath string) string {
	sum := md5.Sum([]byte(sourcePath))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".jpg")
}

// Cached reports whether a preview for sourcePath is already on disk.
func (c *Cache) Cached(sourcePath string) bool {
	_, err := os.Stat(c.PreviewPath(sourcePath))
	return err == nil
}

// Get returns the path of the preview for sourcePath, rendering it if
// absent. Concurrent calls for the same path share one render.
func (c *Cache) Get(ctx context.Context, sourcePath string, kind mediatypes.Kind) (string, error) {
	out := c.PreviewPath(sourcePath)
	if _, err := os.Stat(out); err == nil {
		metrics.PreviewCacheHits.Inc()
		return out, nil
	}
	metrics.PreviewCacheMisses.Inc()

	c.mu.Lock()
	if ch, ok := c.inFlight[sourcePath]; ok {
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		// The other renderer finished; succeed or fail on its result.
		if _, err := os.Stat(out); err == nil {
			return out, nil
		}
		return "", fmt.Errorf("preview render failed for %s", sourcePath)
	}
	ch := make(chan struct{})
	c.inFlight[sourcePath] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, sourcePath)
		c.mu.Unlock()
		close(ch)
	}()

	start := time.Now()
	err := c.render(ctx, sourcePath, out, kind)
	metrics.PreviewGenDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PreviewGenErrors.Inc()
		return "", err
	}
	return out, nil
}

func (c *Cache) render(ctx context.Context, sourcePath, out string, kind mediatypes.Kind) error {
	switch kind {
	case mediatypes.KindImage:
		return c.renderImage(sourcePath, out)
	case mediatypes.KindVideo:
		return c.renderVideoFrame(ctx, sourcePath, out)
	default:
		return ErrUnsupported
	}
}

// renderImage downscales with vips when available, otherwise decodes
// and resizes in-process.
func (c *Cache) renderImage(sourcePath, out string) error {
	if vipsAvailable() {
		if err := vipsThumbnail(sourcePath, out, previewWidth, previewHeight, jpegQuality); err == nil {
			return nil
		}
		// vips failed on this file; fall through to the pure-Go path.
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image %s: %w", sourcePath, err)
	}
	thumb := imaging.Fit(img, previewWidth, previewHeight, imaging.Lanczos)
	return writeJPEGAtomic(out, func(w io.Writer) error {
		return jpeg.Encode(w, thumb, &jpeg.Options{Quality: jpegQuality})
	})
}

// renderVideoFrame grabs a frame one second in and downscales it.
func (c *Cache) renderVideoFrame(ctx context.Context, sourcePath, out string) error {
	if c.ffmpegPath == "" {
		return ErrUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, genTimeout)
	defer cancel()

	tmp := out + ".tmp"
	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-v", "quiet",
		"-ss", "1",
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", previewWidth, previewHeight),
		"-q:v", "4",
		"-y", tmp)
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ffmpeg frame grab for %s: %w", sourcePath, err)
	}
	return os.Rename(tmp, out)
}

func writeBytesAtomic(out string, data []byte) error {
	return writeJPEGAtomic(out, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeJPEGAtomic writes through a temp file so a crashed render never
// leaves a truncated preview that Cached would treat as valid.
func writeJPEGAtomic(out string, encode func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".preview-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), out)
}
