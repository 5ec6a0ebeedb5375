// internal/img/thumb.go
package img

import (
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP with image.Decode

	"github.com/tendant/thumbcache/internal/media"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 85

// Decode opens and decodes a still image without applying EXIF orientation.
func Decode(path string, format media.ImageFormat) (image.Image, error) {
	if !format.Decodable() {
		return nil, &media.UnsupportedFormatError{Extension: media.Extension(path), Capability: format.Capability()}
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &media.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	src, err := imaging.Decode(f)
	if err != nil {
		return nil, &media.DecodeError{Format: format.String(), Detail: "corrupt or truncated image", Err: err}
	}
	return src, nil
}

// TargetHeight preserves the aspect ratio of a w×h image scaled to width.
func TargetHeight(w, h, width int) int {
	if w <= 0 || h <= 0 {
		return 1
	}
	th := int(math.Round(float64(h) * float64(width) / float64(w)))
	if th < 1 {
		th = 1
	}
	return th
}

// ResizeToWidth scales src to exactly width pixels wide. Smaller sources are
// upscaled.
func ResizeToWidth(src image.Image, width int) *image.NRGBA {
	b := src.Bounds()
	return imaging.Resize(src, width, TargetHeight(b.Dx(), b.Dy(), width), imaging.Lanczos)
}

// EncodeJPEG writes img as a JPEG. Out-of-range quality falls back to the default.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("encode jpeg: %w", err)
	}
	return nil
}

// Thumbnail returns a writer func that resizes src to width and encodes it.
func Thumbnail(src image.Image, width, quality int) func(io.Writer) error {
	return func(w io.Writer) error {
		return EncodeJPEG(w, ResizeToWidth(src, width), quality)
	}
}
