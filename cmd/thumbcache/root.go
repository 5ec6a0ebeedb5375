package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tendant/thumbcache/internal/config"
	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/logging"
	"github.com/tendant/thumbcache/internal/thumbnail"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type app struct {
	cfg    config.Config
	run    converters.Runner
	logger *slog.Logger
	svc    *thumbnail.Service
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "thumbcache",
		Short: "Generate and cache image and video thumbnails",
		Long: `thumbcache produces a small (150px) and a medium (600px) JPEG thumbnail for
images and videos and keeps them in a content-addressed cache. Files whose
content has not changed are never processed twice.

Examples:
  thumbcache ensure photo.jpg clip.mp4
  find ./media -type f | thumbcache batch --from -
  thumbcache cache size
  thumbcache doctor`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.CacheDir, "cache-dir", a.cfg.CacheDir, "directory holding cached thumbnails")
	flags.StringVar(&a.cfg.FFmpegPath, "ffmpeg", a.cfg.FFmpegPath, "ffmpeg executable")
	flags.StringVar(&a.cfg.FFprobePath, "ffprobe", a.cfg.FFprobePath, "ffprobe executable")
	flags.IntVar(&a.cfg.JPEGQuality, "quality", a.cfg.JPEGQuality, "JPEG quality for new thumbnails (1-100)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "text, json or console")

	root.AddCommand(
		newEnsureCmd(a),
		newBatchCmd(a),
		newProbeCmd(a),
		newCacheCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	level, err := logging.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return err
	}
	if logging.DebugForced() {
		level = slog.LevelDebug
	}
	a.logger, err = logging.New(cmd.ErrOrStderr(), level, a.cfg.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) converter() *converters.FFmpegConverter {
	return converters.NewFFmpegConverter(
		converters.WithBinaries(a.cfg.FFmpegPath, a.cfg.FFprobePath),
		converters.WithRunner(a.run),
	)
}

func (a *app) service() *thumbnail.Service {
	if a.svc == nil {
		a.svc = thumbnail.New(
			thumbnail.WithExtractor(a.converter()),
			thumbnail.WithLogger(a.logger),
			thumbnail.WithJPEGQuality(a.cfg.JPEGQuality),
			thumbnail.WithMaxPixels(a.cfg.MaxPixels),
		)
	}
	return a.svc
}
