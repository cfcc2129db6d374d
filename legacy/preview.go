package legacy

import (
	"image"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
)

// PreviewKind returns the file extension of an encoded preview image, such
// as "png" or "jpg", or "unknown".
func PreviewKind(b []byte) string {
	kind, err := filetype.Match(b)
	if err != nil || kind == filetype.Unknown {
		return "unknown"
	}
	return kind.Extension
}

// Thumbnail scales src to fit within a size by size square, preserving the
// aspect ratio.
func Thumbnail(src image.Image, size int) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || size <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	if w >= h {
		h = max(1, h*size/w)
		w = size
	} else {
		w = max(1, w*size/h)
		h = size
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
