package img

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/media"
)

// CodecRecorder receives one sample per extraction attempt.
type CodecRecorder interface {
	Record(codec string, elapsed time.Duration, success bool)
}

// VideoGenerator pulls a representative frame out of a video file.
type VideoGenerator struct {
	extractor converters.FrameExtractor
	recorder  CodecRecorder
	logger    *slog.Logger
}

// NewVideoGenerator creates a video frame generator. recorder may be nil.
func NewVideoGenerator(extractor converters.FrameExtractor, recorder CodecRecorder, logger *slog.Logger) *VideoGenerator {
	if extractor == nil {
		extractor = converters.NewFFmpegConverter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoGenerator{extractor: extractor, recorder: recorder, logger: logger}
}

// Frame implements Generator.Frame for videos. The probe decides the seek
// offset; every attempt is recorded against the probed codec, or "unknown"
// when probing failed.
func (g *VideoGenerator) Frame(ctx context.Context, src media.Source) (image.Image, error) {
	start := time.Now()

	info, err := g.extractor.Probe(ctx, src.Path)
	if err != nil {
		g.record(media.UnknownCodec, time.Since(start), false)
		return nil, fmt.Errorf("probe video: %w", err)
	}

	offset := converters.SelectOffset(info.Length())
	frame, err := g.extractor.ExtractFrame(ctx, src.Path, offset)
	elapsed := time.Since(start)
	g.record(info.Codec, elapsed, err == nil)
	if err != nil {
		var (
			toolErr *media.ExternalToolError
			decErr  *media.DecodeError
		)
		switch {
		case errors.As(err, &toolErr):
			if toolErr.Codec == "" && info.Codec.Known() {
				toolErr.Codec = info.Codec.String()
			}
		case errors.As(err, &decErr):
			// The frame decoder only sees ffmpeg's pipe format; report the video codec.
			if info.Codec.Known() {
				decErr.Detail = strings.TrimSpace(decErr.Format + " " + decErr.Detail)
				decErr.Format = info.Codec.String()
			}
		}
		return nil, fmt.Errorf("extract frame: %w", err)
	}

	g.logger.Debug("extracted video frame",
		"path", src.Path,
		"codec", info.Codec.String(),
		"offset", offset,
		"duration_ms", elapsed.Milliseconds(),
	)
	return frame, nil
}

func (g *VideoGenerator) record(codec media.VideoCodec, elapsed time.Duration, success bool) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(codec.String(), elapsed, success)
}

// Name implements Generator.Name
func (g *VideoGenerator) Name() string {
	return "video"
}
