// Package converters wraps the external tools used to turn video files into
// still frames.
package converters

import (
	"bytes"
	"context"
	"image"
	"os/exec"
	"time"

	"github.com/tendant/thumbcache/internal/media"
)

// FrameExtractor probes a video and pulls a single decoded frame out of it.
type FrameExtractor interface {
	// Probe returns stream metadata without decoding any frames
	Probe(ctx context.Context, input string) (*FileInfo, error)

	// ExtractFrame decodes the frame at offset from the start of the video
	ExtractFrame(ctx context.Context, input string, offset time.Duration) (image.Image, error)
}

// FileInfo contains metadata about a video file
type FileInfo struct {
	Codec    media.VideoCodec // Codec of the first video stream
	Width    int              // Width in pixels
	Height   int              // Height in pixels
	Duration float64          // Duration in seconds, 0 when unknown
	Size     int64            // Container size in bytes
}

// Length returns Duration as a time.Duration.
func (fi *FileInfo) Length() time.Duration {
	return time.Duration(fi.Duration * float64(time.Second))
}

// Runner starts a process and returns what it wrote to stdout and stderr.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// ExecRunner runs name through os/exec, killing it when ctx is done.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
