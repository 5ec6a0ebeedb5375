package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path   string
		kind   Kind
		format ImageFormat
	}{
		{"a.jpg", KindImage, FormatJPEG},
		{"A.JPEG", KindImage, FormatJPEG},
		{"a.png", KindImage, FormatPNG},
		{"a.webp", KindImage, FormatWebP},
		{"a.tiff", KindImage, FormatTIFF},
		{"IMG_0001.HEIC", KindImage, FormatHEIC},
		{"shot.cr2", KindImage, FormatRAW},
		{"shot.nef", KindImage, FormatRAW},
		{"clip.mp4", KindVideo, FormatUnknown},
		{"clip.MOV", KindVideo, FormatUnknown},
		{"notes.txt", KindUnknown, FormatUnknown},
		{"noext", KindUnknown, FormatUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			kind, format := Classify(tc.path)
			if kind != tc.kind || format != tc.format {
				t.Fatalf("Classify(%q) = %v/%v, want %v/%v", tc.path, kind, format, tc.kind, tc.format)
			}
		})
	}
}

func TestFormatDecodable(t *testing.T) {
	for _, f := range []ImageFormat{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWebP} {
		if !f.Decodable() {
			t.Errorf("%v should be decodable", f)
		}
		if f.Capability() != "" {
			t.Errorf("%v should not need a capability", f)
		}
	}
	for _, f := range []ImageFormat{FormatHEIC, FormatRAW, FormatUnknown} {
		if f.Decodable() {
			t.Errorf("%v should not be decodable", f)
		}
		if f.Capability() == "" {
			t.Errorf("%v should name a missing capability", f)
		}
	}
}

func TestParseCodec(t *testing.T) {
	cases := map[string]string{
		"h264":   "h264",
		"AVC1":   "h264",
		"hevc":   "hevc",
		"h265":   "hevc",
		"vp9":    "vp9",
		"mpeg4":  "mpeg4",
		"prores": "prores",
		"":       "unknown",
		"  ":     "unknown",
	}
	for in, want := range cases {
		if got := ParseCodec(in).String(); got != want {
			t.Errorf("ParseCodec(%q) = %q, want %q", in, got, want)
		}
	}
	if ParseCodec("").Known() {
		t.Fatalf("empty codec should be unknown")
	}
	if c := ParseCodec("av1"); c.Family != CodecOther || c.Name != "av1" {
		t.Fatalf("unexpected codec %+v", c)
	}
}

func TestStat(t *testing.T) {
	tmp := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := Stat(filepath.Join(tmp, "missing.jpg"))
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Stat(tmp)
		var naf *NotAFileError
		if !errors.As(err, &naf) {
			t.Fatalf("expected NotAFileError, got %v", err)
		}
	})

	t.Run("regular", func(t *testing.T) {
		path := filepath.Join(tmp, "clip.mp4")
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		src, err := Stat(path)
		if err != nil {
			t.Fatalf("Stat: %v", err)
		}
		if src.Kind != KindVideo || src.Size != 4 || src.ModTime.IsZero() {
			t.Fatalf("unexpected source %+v", src)
		}
		if !filepath.IsAbs(src.Path) {
			t.Fatalf("path should be absolute: %s", src.Path)
		}
	})
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", &NotFoundError{Path: "x"}, true},
		{"wrapped unsupported", fmt.Errorf("thumbnail: %w", &UnsupportedFormatError{Extension: ".heic"}), true},
		{"decode", &DecodeError{Format: "png"}, true},
		{"tool", &ExternalToolError{Tool: "ffmpeg"}, true},
		{"io", &IOError{Op: "write", Path: "x", Err: fs.ErrPermission}, false},
		{"deadline", fmt.Errorf("ffmpeg: %w", context.DeadlineExceeded), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPermanent(tc.err); got != tc.want {
				t.Fatalf("IsPermanent(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := &UnsupportedFormatError{Extension: ".heic", Capability: FormatHEIC.Capability()}
	if !strings.Contains(err.Error(), ".heic") || !strings.Contains(err.Error(), "libheif") {
		t.Fatalf("unexpected message: %v", err)
	}

	tool := &ExternalToolError{Tool: "ffmpeg", Codec: "hevc", Stderr: "moov atom not found\n", Err: errors.New("exit status 1")}
	msg := tool.Error()
	for _, want := range []string{"ffmpeg", "hevc", "moov atom not found", "exit status 1"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message %q missing %q", msg, want)
		}
	}

	ioErr := &IOError{Op: "open", Path: "/x", Err: fs.ErrNotExist}
	if !errors.Is(ioErr, fs.ErrNotExist) {
		t.Fatalf("IOError should unwrap to the os error")
	}
}

func TestSniff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upload.bin")
	data := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Sniff(path)
	if err != nil {
		t.Fatalf("Sniff: %v", err)
	}
	if got != "image/png" {
		t.Fatalf("Sniff = %q, want image/png", got)
	}

	if _, err := Sniff(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
