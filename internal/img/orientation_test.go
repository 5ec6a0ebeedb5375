package img

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestReadOrientation(t *testing.T) {
	tmp := t.TempDir()

	for o := 1; o <= 8; o++ {
		path := filepath.Join(tmp, "oriented.jpg")
		writeJPEG(t, path, 16, 8, o)
		got, ok := ReadOrientation(path)
		if !ok || got != o {
			t.Fatalf("orientation %d: got (%d, %v)", o, got, ok)
		}
	}
}

func TestReadOrientationAbsent(t *testing.T) {
	tmp := t.TempDir()

	plain := filepath.Join(tmp, "plain.jpg")
	writeJPEG(t, plain, 16, 8, 0)

	pngPath := filepath.Join(tmp, "plain.png")
	createTestImage(t, pngPath, 16, 8)

	outOfRange := filepath.Join(tmp, "weird.jpg")
	writeJPEG(t, outOfRange, 16, 8, 9)

	garbage := filepath.Join(tmp, "garbage.jpg")
	if err := os.WriteFile(garbage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, p := range []string{plain, pngPath, outOfRange, garbage, filepath.Join(tmp, "missing.jpg")} {
		if got, ok := ReadOrientation(p); ok || got != 1 {
			t.Errorf("%s: got (%d, %v), want (1, false)", filepath.Base(p), got, ok)
		}
	}
}

func TestApplyOrientation(t *testing.T) {
	const w, h = 4, 2
	marker := color.NRGBA{R: 255, A: 255}

	tests := []struct {
		o       int
		wantW   int
		wantH   int
		markerX int
		markerY int
	}{
		{1, w, h, 0, 0},
		{2, w, h, w - 1, 0},
		{3, w, h, w - 1, h - 1},
		{4, w, h, 0, h - 1},
		{5, h, w, 0, 0},
		{6, h, w, h - 1, 0},
		{7, h, w, h - 1, w - 1},
		{8, h, w, 0, w - 1},
	}

	for _, tt := range tests {
		src := image.NewNRGBA(image.Rect(0, 0, w, h))
		src.SetNRGBA(0, 0, marker)

		out := ApplyOrientation(src, tt.o)
		b := out.Bounds()
		if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
			t.Errorf("orientation %d: size %dx%d, want %dx%d", tt.o, b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			continue
		}
		r, _, _, _ := out.At(b.Min.X+tt.markerX, b.Min.Y+tt.markerY).RGBA()
		if r>>8 != 255 {
			t.Errorf("orientation %d: top-left pixel not found at (%d,%d)", tt.o, tt.markerX, tt.markerY)
		}
	}
}
