package img

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/media"
)

func TestGetGenerator(t *testing.T) {
	gens := Generators{Image: NewImageGenerator(nil), Video: NewVideoGenerator(&fakeExtractor{}, nil, nil)}

	tests := []struct {
		name        string
		path        string
		wantGen     string
		shouldError bool
	}{
		{"image jpeg", "a.jpg", "image", false},
		{"image heic", "a.heic", "image", false},
		{"video mp4", "a.mp4", "video", false},
		{"video quicktime", "a.mov", "video", false},
		{"unsupported", "a.zip", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, format := media.Classify(tt.path)
			gen, err := gens.GetGenerator(media.Source{Path: tt.path, Kind: kind, Format: format})

			if tt.shouldError {
				var unsup *media.UnsupportedFormatError
				if !errors.As(err, &unsup) {
					t.Errorf("expected UnsupportedFormatError for %s, got %v", tt.path, err)
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if gen.Name() != tt.wantGen {
				t.Errorf("GetGenerator(%s) = %s, want %s", tt.path, gen.Name(), tt.wantGen)
			}
		})
	}
}

func stat(t *testing.T, path string) media.Source {
	t.Helper()
	src, err := media.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return src
}

func TestImageGeneratorFrame(t *testing.T) {
	tmp := t.TempDir()
	ctx := context.Background()
	gen := NewImageGenerator(nil)

	for _, tc := range []struct {
		orientation  int
		wantW, wantH int
	}{
		{0, 40, 20},
		{1, 40, 20},
		{3, 40, 20},
		{6, 20, 40},
		{8, 20, 40},
	} {
		path := filepath.Join(tmp, "photo.jpg")
		writeJPEG(t, path, 40, 20, tc.orientation)

		frame, err := gen.Frame(ctx, stat(t, path))
		if err != nil {
			t.Fatalf("orientation %d: Frame: %v", tc.orientation, err)
		}
		if b := frame.Bounds(); b.Dx() != tc.wantW || b.Dy() != tc.wantH {
			t.Fatalf("orientation %d: frame %dx%d, want %dx%d", tc.orientation, b.Dx(), b.Dy(), tc.wantW, tc.wantH)
		}
	}
}

func TestImageGeneratorUnsupported(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "IMG_0001.HEIC")
	if err := os.WriteFile(path, []byte("ftypheic"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewImageGenerator(nil).Frame(context.Background(), stat(t, path))
	var unsup *media.UnsupportedFormatError
	if !errors.As(err, &unsup) || unsup.Extension != ".heic" {
		t.Fatalf("expected UnsupportedFormatError for .heic, got %v", err)
	}
}

func TestImageGeneratorMaxPixels(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "big.png")
	createTestImage(t, path, 200, 100)

	gen := NewImageGenerator(nil)
	gen.MaxPixels = 10_000
	_, err := gen.Frame(context.Background(), stat(t, path))
	var decErr *media.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}

	gen.MaxPixels = 0
	if _, err := gen.Frame(context.Background(), stat(t, path)); err != nil {
		t.Fatalf("no limit should decode: %v", err)
	}
}

type fakeExtractor struct {
	info       *converters.FileInfo
	probeErr   error
	extractErr error
	frame      image.Image

	mu      sync.Mutex
	offsets []time.Duration
	probes  int
}

func (f *fakeExtractor) Probe(context.Context, string) (*converters.FileInfo, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	return f.info, nil
}

func (f *fakeExtractor) ExtractFrame(_ context.Context, _ string, offset time.Duration) (image.Image, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	f.mu.Unlock()
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return f.frame, nil
}

type sample struct {
	codec   string
	success bool
}

type fakeRecorder struct {
	mu      sync.Mutex
	samples []sample
}

func (r *fakeRecorder) Record(codec string, _ time.Duration, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample{codec, success})
}

func TestVideoGeneratorOffsets(t *testing.T) {
	for _, tc := range []struct {
		duration float64
		want     time.Duration
	}{
		{2.4, 0},
		{42, 5 * time.Second},
	} {
		ext := &fakeExtractor{
			info:  &converters.FileInfo{Codec: media.ParseCodec("h264"), Width: 64, Height: 36, Duration: tc.duration},
			frame: image.NewNRGBA(image.Rect(0, 0, 64, 36)),
		}
		rec := &fakeRecorder{}
		gen := NewVideoGenerator(ext, rec, nil)

		frame, err := gen.Frame(context.Background(), media.Source{Path: "clip.mp4", Kind: media.KindVideo})
		if err != nil {
			t.Fatalf("Frame: %v", err)
		}
		if frame.Bounds().Dx() != 64 {
			t.Fatalf("unexpected frame %v", frame.Bounds())
		}
		if len(ext.offsets) != 1 || ext.offsets[0] != tc.want {
			t.Fatalf("duration %v: offsets %v, want [%v]", tc.duration, ext.offsets, tc.want)
		}
		if len(rec.samples) != 1 || rec.samples[0] != (sample{"h264", true}) {
			t.Fatalf("unexpected samples %+v", rec.samples)
		}
	}
}

func TestVideoGeneratorRecordsFailures(t *testing.T) {
	ext := &fakeExtractor{
		info:       &converters.FileInfo{Codec: media.ParseCodec("hevc"), Width: 64, Height: 36, Duration: 10},
		extractErr: &media.ExternalToolError{Tool: "ffmpeg", Stderr: "decoder not found"},
	}
	rec := &fakeRecorder{}
	_, err := NewVideoGenerator(ext, rec, nil).Frame(context.Background(), media.Source{Path: "clip.mkv", Kind: media.KindVideo})

	var toolErr *media.ExternalToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ExternalToolError, got %v", err)
	}
	if toolErr.Codec != "hevc" {
		t.Fatalf("codec should be preserved on the error, got %q", toolErr.Codec)
	}
	if len(rec.samples) != 1 || rec.samples[0] != (sample{"hevc", false}) {
		t.Fatalf("unexpected samples %+v", rec.samples)
	}
}

func TestVideoGeneratorUndecodableFrameKeepsCodec(t *testing.T) {
	ext := &fakeExtractor{
		info:       &converters.FileInfo{Codec: media.ParseCodec("hevc"), Width: 64, Height: 36, Duration: 10},
		extractErr: &media.DecodeError{Format: "png", Detail: "frame output from ffmpeg", Err: errors.New("png: invalid format: not a PNG file")},
	}
	rec := &fakeRecorder{}
	_, err := NewVideoGenerator(ext, rec, nil).Frame(context.Background(), media.Source{Path: "clip.mkv", Kind: media.KindVideo})

	var decErr *media.DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decErr.Format != "hevc" {
		t.Fatalf("decode error format = %q, want hevc", decErr.Format)
	}
	if !strings.Contains(err.Error(), "hevc") || !strings.Contains(err.Error(), "png frame output") {
		t.Fatalf("error lacks codec or frame detail: %v", err)
	}
	if len(rec.samples) != 1 || rec.samples[0] != (sample{"hevc", false}) {
		t.Fatalf("unexpected samples %+v", rec.samples)
	}
}

func TestVideoGeneratorProbeFailure(t *testing.T) {
	ext := &fakeExtractor{probeErr: &media.ExternalToolError{Tool: "ffprobe"}}
	rec := &fakeRecorder{}
	_, err := NewVideoGenerator(ext, rec, nil).Frame(context.Background(), media.Source{Path: "clip.mp4", Kind: media.KindVideo})

	var toolErr *media.ExternalToolError
	if !errors.As(err, &toolErr) || toolErr.Tool != "ffprobe" {
		t.Fatalf("expected ffprobe error, got %v", err)
	}
	if toolErr.Codec != "" {
		t.Fatalf("codec should be undetermined, got %q", toolErr.Codec)
	}
	if len(ext.offsets) != 0 {
		t.Fatalf("extraction should not run after a failed probe")
	}
	if len(rec.samples) != 1 || rec.samples[0] != (sample{"unknown", false}) {
		t.Fatalf("unexpected samples %+v", rec.samples)
	}
}
