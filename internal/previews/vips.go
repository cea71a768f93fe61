package previews

import (
	"fmt"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"github.com/vncgregorio/videoteka-media-center/internal/logging"
)

var (
	vipsMu    sync.Mutex
	vipsReady bool
)

// InitVips starts libvips once, with conservative memory settings.
// Previews work without it; the pure-Go resize path takes over.
func InitVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsReady {
		return
	}

	// Route vips diagnostics through our logger, warnings and up only.
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch level {
		case vips.LogLevelError, vips.LogLevelCritical:
			logging.Error("[vips/%s] %s", domain, msg)
		case vips.LogLevelWarning:
			logging.Warn("[vips/%s] %s", domain, msg)
		default:
			logging.Debug("[vips/%s] %s", domain, msg)
		}
	}, vips.LogLevelWarning)

	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsReady = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsReady {
		vips.Shutdown()
		vipsReady = false
	}
}

func vipsAvailable() bool {
	vipsMu.Lock()
	defer vipsMu.Unlock()
	return vipsReady
}

// vipsThumbnail downscales src during decode and writes a JPEG to out.
// Decode-time shrinking keeps memory flat on very large images.
func vipsThumbnail(src, out string, width, height, quality int) error {
	ref, err := vips.LoadImageFromFile(src, vips.NewImportParams())
	if err != nil {
		return fmt.Errorf("vips load %s: %w", src, err)
	}
	defer ref.Close()

	if err := ref.Thumbnail(width, height, vips.InterestingNone); err != nil {
		return fmt.Errorf("vips thumbnail %s: %w", src, err)
	}

	buf, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		OptimizeCoding: true,
	})
	if err != nil {
		return fmt.Errorf("vips export %s: %w", src, err)
	}

	return writeBytesAtomic(out, buf)
}
