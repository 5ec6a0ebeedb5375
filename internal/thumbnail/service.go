// Package thumbnail produces the cached small and medium JPEG previews for a
// source image or video, reusing earlier output whenever the cache is valid.
package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tendant/thumbcache/internal/cache"
	"github.com/tendant/thumbcache/internal/checksum"
	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/img"
	"github.com/tendant/thumbcache/internal/media"
	"github.com/tendant/thumbcache/internal/metrics"
)

// Observer receives cache and generation outcomes, labelled by media kind.
type Observer interface {
	ObserveCacheHit(kind string)
	ObserveCacheMiss(kind string)
	ObserveGeneration(kind string, durationSeconds float64, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCacheHit(string)                   {}
func (noopObserver) ObserveCacheMiss(string)                  {}
func (noopObserver) ObserveGeneration(string, float64, error) {}

// Service generates and caches thumbnails. It is safe for concurrent use.
type Service struct {
	tracker   *metrics.CodecTracker
	extractor converters.FrameExtractor
	observer  Observer
	logger    *slog.Logger
	quality   int
	maxPixels int

	generators img.Generators
	flights    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithTracker records video extraction samples into t instead of a private tracker.
func WithTracker(t *metrics.CodecTracker) Option {
	return func(s *Service) {
		if t != nil {
			s.tracker = t
		}
	}
}

// WithExtractor replaces the ffmpeg frame extractor.
func WithExtractor(e converters.FrameExtractor) Option {
	return func(s *Service) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithObserver reports cache and generation outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJPEGQuality sets the output quality, 1 to 100.
func WithJPEGQuality(q int) Option {
	return func(s *Service) {
		if q >= 1 && q <= 100 {
			s.quality = q
		}
	}
}

// WithMaxPixels limits the decoded size of still images. Zero disables the check.
func WithMaxPixels(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxPixels = n
		}
	}
}

// New builds a Service.
func New(opts ...Option) *Service {
	s := &Service{
		observer:  noopObserver{},
		logger:    slog.Default(),
		quality:   img.DefaultJPEGQuality,
		maxPixels: img.DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracker == nil {
		s.tracker = metrics.NewCodecTracker()
	}
	if s.extractor == nil {
		s.extractor = converters.NewFFmpegConverter()
	}

	imageGen := img.NewImageGenerator(s.logger)
	imageGen.MaxPixels = s.maxPixels
	s.generators = img.Generators{
		Image: imageGen,
		Video: img.NewVideoGenerator(s.extractor, s.tracker, s.logger),
	}
	return s
}

// Tracker returns the codec tracker video extractions are recorded into.
func (s *Service) Tracker() *metrics.CodecTracker {
	return s.tracker
}

// EnsureThumbnails returns the small and medium thumbnails for path under
// cacheDir, generating them only when no valid cached pair exists. Concurrent
// calls for the same content and directory share a single generation.
func (s *Service) EnsureThumbnails(ctx context.Context, path, cacheDir string) (cache.ThumbnailSet, error) {
	src, err := media.Stat(path)
	if err != nil {
		return cache.ThumbnailSet{}, err
	}

	key, err := checksum.Compute(src.Path)
	if err != nil {
		return cache.ThumbnailSet{}, fmt.Errorf("checksum: %w", err)
	}

	idx, err := cache.NewIndex(cacheDir)
	if err != nil {
		return cache.ThumbnailSet{}, err
	}
	set := idx.Paths(key)
	kind := src.Kind.String()

	if idx.Check(set, src.ModTime) == cache.Reuse {
		s.observer.ObserveCacheHit(kind)
		s.logger.Debug("thumbnail cache hit", "path", src.Path, "key", key)
		return set, nil
	}

	v, err, shared := s.flights.Do(idx.Dir()+"\x00"+key, func() (any, error) {
		// Another flight may have committed this key since the first check.
		if idx.Check(set, src.ModTime) == cache.Reuse {
			return set, nil
		}
		s.observer.ObserveCacheMiss(kind)
		return s.generate(ctx, src, idx, key)
	})
	if err != nil {
		return cache.ThumbnailSet{}, err
	}
	if shared {
		s.logger.Debug("shared in-flight thumbnail generation", "path", src.Path, "key", key)
	}
	return v.(cache.ThumbnailSet), nil
}

func (s *Service) generate(ctx context.Context, src media.Source, idx *cache.Index, key string) (set cache.ThumbnailSet, err error) {
	start := time.Now()
	kind := src.Kind.String()
	defer func() {
		s.observer.ObserveGeneration(kind, time.Since(start).Seconds(), err)
	}()

	gen, err := s.generators.GetGenerator(src)
	if err != nil {
		return cache.ThumbnailSet{}, err
	}

	frame, err := gen.Frame(ctx, src)
	if err != nil {
		return cache.ThumbnailSet{}, fmt.Errorf("%s frame: %w", gen.Name(), err)
	}

	encoders := make(map[cache.Size]cache.EncodeFunc, len(cache.Sizes))
	for _, size := range cache.Sizes {
		encoders[size] = img.Thumbnail(frame, size.Width, s.quality)
	}
	set, err = idx.Commit(key, encoders)
	if err != nil {
		return cache.ThumbnailSet{}, fmt.Errorf("commit thumbnails: %w", err)
	}

	s.logger.Info("thumbnails generated",
		"path", src.Path,
		"key", key,
		"kind", kind,
		"generator", gen.Name(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return set, nil
}
