package img

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/tendant/thumbcache/internal/media"
)

// DefaultMaxPixels caps the decoded size of a single image.
const DefaultMaxPixels = 100_000_000

// Generator produces the full-resolution, upright frame that thumbnails are
// resized from. Images are decoded in process; videos go through a frame extractor.
type Generator interface {
	// Frame returns the upright source frame
	Frame(ctx context.Context, src media.Source) (image.Image, error)

	// Name returns the generator name for logging
	Name() string
}

// Generators routes sources to the generator for their kind.
type Generators struct {
	Image Generator
	Video Generator
}

// GetGenerator returns the generator for src.Kind. Unknown extensions fail
// with UnsupportedFormatError.
func (g Generators) GetGenerator(src media.Source) (Generator, error) {
	switch src.Kind {
	case media.KindImage:
		if g.Image != nil {
			return g.Image, nil
		}
	case media.KindVideo:
		if g.Video != nil {
			return g.Video, nil
		}
	}
	return nil, &media.UnsupportedFormatError{Extension: src.Extension(), Capability: media.FormatUnknown.Capability()}
}

// ImageGenerator decodes still images and applies their EXIF orientation.
type ImageGenerator struct {
	MaxPixels int
	Logger    *slog.Logger
}

// NewImageGenerator returns an ImageGenerator with the default pixel limit.
func NewImageGenerator(logger *slog.Logger) *ImageGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageGenerator{MaxPixels: DefaultMaxPixels, Logger: logger}
}

// Frame implements Generator.Frame for images
func (g *ImageGenerator) Frame(_ context.Context, src media.Source) (image.Image, error) {
	if !src.Format.Decodable() {
		return nil, &media.UnsupportedFormatError{Extension: src.Extension(), Capability: src.Format.Capability()}
	}
	if err := g.checkPixels(src); err != nil {
		return nil, err
	}

	decoded, err := Decode(src.Path, src.Format)
	if err != nil {
		return nil, err
	}

	o, ok := ReadOrientation(src.Path)
	if !ok {
		g.logger().Debug("no usable exif orientation", "path", src.Path, "format", src.Format.String())
		return decoded, nil
	}
	return ApplyOrientation(decoded, o), nil
}

func (g *ImageGenerator) checkPixels(src media.Source) error {
	if g.MaxPixels <= 0 {
		return nil
	}
	f, err := os.Open(src.Path)
	if err != nil {
		return &media.IOError{Op: "open", Path: src.Path, Err: err}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return &media.DecodeError{Format: src.Format.String(), Detail: "unreadable image header", Err: err}
	}
	if px := cfg.Width * cfg.Height; px > g.MaxPixels {
		return &media.DecodeError{
			Format: src.Format.String(),
			Detail: fmt.Sprintf("image is %dx%d, exceeds limit of %d pixels", cfg.Width, cfg.Height, g.MaxPixels),
		}
	}
	return nil
}

func (g *ImageGenerator) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Name implements Generator.Name
func (g *ImageGenerator) Name() string {
	return "image"
}
