package converters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tendant/thumbcache/internal/media"
)

// DefaultSeek is the offset used for videos long enough to skip their intro.
const DefaultSeek = 5 * time.Second

var (
	// ErrNoVideoStream is returned by Probe when ffprobe finds no video stream.
	ErrNoVideoStream = errors.New("no video stream")
	// ErrNoFrame is returned by ExtractFrame when ffmpeg produced no image.
	ErrNoFrame = errors.New("no frame produced")
)

// SelectOffset picks the extraction offset: DefaultSeek for videos longer than
// it, otherwise the first frame.
func SelectOffset(duration time.Duration) time.Duration {
	if duration > DefaultSeek {
		return DefaultSeek
	}
	return 0
}

// FFmpegConverter extracts frames with ffmpeg and reads metadata with ffprobe
type FFmpegConverter struct {
	ffmpeg  string
	ffprobe string
	run     Runner
}

// Option configures an FFmpegConverter.
type Option func(*FFmpegConverter)

// WithBinaries overrides the ffmpeg and ffprobe executables. Empty values keep the default.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(f *FFmpegConverter) {
		if ffmpeg != "" {
			f.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			f.ffprobe = ffprobe
		}
	}
}

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(f *FFmpegConverter) {
		if r != nil {
			f.run = r
		}
	}
}

// NewFFmpegConverter creates a converter using ffmpeg and ffprobe from PATH
func NewFFmpegConverter(opts ...Option) *FFmpegConverter {
	f := &FFmpegConverter{
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		run:     ExecRunner,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the converter name
func (f *FFmpegConverter) Name() string {
	return "ffmpeg"
}

// Binaries returns the configured ffmpeg and ffprobe executables.
func (f *FFmpegConverter) Binaries() (ffmpeg, ffprobe string) {
	return f.ffmpeg, f.ffprobe
}

// Probe returns metadata about the first video stream of input
func (f *FFmpegConverter) Probe(ctx context.Context, input string) (*FileInfo, error) {
	stdout, stderr, err := f.run(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,duration",
		"-show_entries", "format=duration,size",
		"-of", "default=noprint_wrappers=1",
		input,
	)
	if err != nil {
		return nil, toolError(ctx, "ffprobe", stderr, err)
	}

	info := parseProbe(string(stdout))
	if !info.Codec.Known() && info.Width == 0 && info.Height == 0 {
		return nil, &media.ExternalToolError{Tool: "ffprobe", Stderr: string(stderr), Err: ErrNoVideoStream}
	}
	return info, nil
}

// parseProbe reads ffprobe's key=value output. The stream and the container
// can both report a duration; the longest valid one wins.
func parseProbe(output string) *FileInfo {
	info := &FileInfo{Codec: media.UnknownCodec}

	for _, line := range strings.Split(output, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], strings.TrimSpace(parts[1])

		switch key {
		case "codec_name":
			info.Codec = media.ParseCodec(value)
		case "width":
			if w, err := strconv.Atoi(value); err == nil {
				info.Width = w
			}
		case "height":
			if h, err := strconv.Atoi(value); err == nil {
				info.Height = h
			}
		case "duration":
			if d, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(d) && !math.IsInf(d, 0) && d > info.Duration {
				info.Duration = d
			}
		case "size":
			if s, err := strconv.ParseInt(value, 10, 64); err == nil {
				info.Size = s
			}
		}
	}

	return info
}

// ExtractFrame decodes a single frame at offset. ffmpeg writes the frame as
// PNG to stdout so nothing touches the disk.
func (f *FFmpegConverter) ExtractFrame(ctx context.Context, input string, offset time.Duration) (image.Image, error) {
	if offset < 0 {
		offset = 0
	}
	args := []string{
		"-v", "error",
		"-ss", formatSeconds(offset), // seek before -i for fast input seeking
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	stdout, stderr, err := f.run(ctx, f.ffmpeg, args...)
	if err != nil {
		return nil, toolError(ctx, "ffmpeg", stderr, err)
	}
	if len(stdout) == 0 {
		return nil, &media.ExternalToolError{Tool: "ffmpeg", Stderr: string(stderr), Err: ErrNoFrame}
	}

	frame, err := png.Decode(bytes.NewReader(stdout))
	if err != nil {
		return nil, &media.DecodeError{Format: "png", Detail: "frame output from ffmpeg", Err: err}
	}
	return frame, nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func toolError(ctx context.Context, tool string, stderr []byte, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("%w: %v", ctxErr, err)
	}
	return &media.ExternalToolError{Tool: tool, Stderr: string(stderr), Err: err}
}
