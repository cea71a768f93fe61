package extract

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// probeImage reads the image header for pixel dimensions, falling back
// to a full decode for files whose headers the config decoder rejects.
// Formats without any registered decoder (svg, ico) record a decode
// failure and leave dimensions unset.
func probeImage(path string, m *Metadata) {
	f, err := os.Open(path)
	if err != nil {
		m.fail("image_dimensions", ReasonOpenFailed)
		return
	}
	defer f.Close()

	var width, height int
	if cfg, _, err := image.DecodeConfig(f); err == nil {
		width, height = cfg.Width, cfg.Height
	} else if img, err := imaging.Open(path); err == nil {
		bounds := img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	} else {
		m.fail("image_dimensions", ReasonDecodeError)
		return
	}

	if width <= 0 || height <= 0 {
		m.fail("image_dimensions", ReasonZeroFrames)
		return
	}

	w, h := int64(width), int64(height)
	m.Width = &w
	m.Height = &h
}
