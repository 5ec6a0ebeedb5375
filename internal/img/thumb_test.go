package img

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/thumbcache/internal/media"
)

func TestTargetHeight(t *testing.T) {
	tests := []struct {
		w, h, width int
		want        int
	}{
		{2000, 1000, 150, 75},
		{2000, 1000, 600, 300},
		{1000, 2000, 150, 300},
		{4032, 3024, 150, 113}, // 112.5 rounds half away from zero
		{1920, 1080, 600, 338},
		{100, 1, 150, 2},
		{10000, 1, 150, 1},
		{0, 100, 150, 1},
	}
	for _, tt := range tests {
		if got := TargetHeight(tt.w, tt.h, tt.width); got != tt.want {
			t.Errorf("TargetHeight(%d, %d, %d) = %d, want %d", tt.w, tt.h, tt.width, got, tt.want)
		}
	}
}

func TestResizeToWidthUpscales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 100, 50))
	out := ResizeToWidth(src, 600)
	if b := out.Bounds(); b.Dx() != 600 || b.Dy() != 300 {
		t.Fatalf("unexpected size %v", b)
	}
}

func TestThumbnailEncodesJPEG(t *testing.T) {
	src := solidImage(2000, 1000, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	for _, tc := range []struct{ width, height int }{{150, 75}, {600, 300}} {
		var buf bytes.Buffer
		if err := Thumbnail(src, tc.width, DefaultJPEGQuality)(&buf); err != nil {
			t.Fatalf("Thumbnail: %v", err)
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("decode output: %v", err)
		}
		if format != "jpeg" {
			t.Fatalf("output format %q, want jpeg", format)
		}
		if cfg.Width != tc.width || cfg.Height != tc.height {
			t.Fatalf("output %dx%d, want %dx%d", cfg.Width, cfg.Height, tc.width, tc.height)
		}
	}
}

func TestEncodeJPEGInvalidQualityFallsBack(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, solidImage(8, 8, color.NRGBA{A: 255}), 0); err != nil {
		t.Fatalf("EncodeJPEG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xFF, 0xD8}) {
		t.Fatalf("output is not a JPEG stream")
	}
}

func TestDecodeFormats(t *testing.T) {
	tmp := t.TempDir()
	pngPath := filepath.Join(tmp, "source.png")
	createTestImage(t, pngPath, 400, 200)

	got, err := Decode(pngPath, media.FormatPNG)
	if err != nil {
		t.Fatalf("Decode png: %v", err)
	}
	if b := got.Bounds(); b.Dx() != 400 || b.Dy() != 200 {
		t.Fatalf("unexpected bounds %v", b)
	}

	jpgPath := filepath.Join(tmp, "source.jpg")
	writeJPEG(t, jpgPath, 64, 32, 0)
	if _, err := Decode(jpgPath, media.FormatJPEG); err != nil {
		t.Fatalf("Decode jpeg: %v", err)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "broken.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\nnot really"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Decode(path, media.FormatPNG)
	var decErr *media.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decErr.Format != "png" {
		t.Fatalf("unexpected format %q", decErr.Format)
	}
}

func TestDecodeMissingSource(t *testing.T) {
	_, err := Decode(filepath.Join(t.TempDir(), "missing.png"), media.FormatPNG)
	var ioErr *media.IOError
	if !errors.As(err, &ioErr) || ioErr.Op != "open" {
		t.Fatalf("expected open IOError, got %v", err)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	for _, tc := range []struct {
		name   string
		format media.ImageFormat
	}{
		{"IMG_0001.HEIC", media.FormatHEIC},
		{"DSC_0001.nef", media.FormatRAW},
	} {
		_, err := Decode(filepath.Join(t.TempDir(), tc.name), tc.format)
		var unsup *media.UnsupportedFormatError
		if !errors.As(err, &unsup) {
			t.Fatalf("%s: expected UnsupportedFormatError, got %v", tc.name, err)
		}
		if unsup.Capability == "" {
			t.Fatalf("%s: capability should be named", tc.name)
		}
	}
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func createTestImage(t *testing.T, path string, w, h int) {
	t.Helper()

	img := solidImage(w, h, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		t.Fatalf("encode png: %v", err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

// writeJPEG writes a w×h JPEG. A non-zero orientation is stored in a minimal
// EXIF APP1 segment placed right after SOI.
func writeJPEG(t *testing.T, path string, w, h, orientation int) {
	t.Helper()

	var body bytes.Buffer
	if err := jpeg.Encode(&body, solidImage(w, h, color.NRGBA{R: 30, G: 90, B: 160, A: 255}), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	data := body.Bytes()
	if orientation != 0 {
		out := []byte{0xFF, 0xD8}
		out = append(out, exifSegment(orientation)...)
		out = append(out, data[2:]...)
		data = out
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
}

func exifSegment(orientation int) []byte {
	tiff := []byte{
		'I', 'I', 0x2A, 0x00, // little-endian TIFF header
		0x08, 0x00, 0x00, 0x00, // IFD0 offset
		0x01, 0x00, // one entry
		0x12, 0x01, // tag 0x0112 Orientation
		0x03, 0x00, // SHORT
		0x01, 0x00, 0x00, 0x00, // count
		byte(orientation), 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	return append([]byte{0xFF, 0xE1, byte(n >> 8), byte(n)}, payload...)
}
