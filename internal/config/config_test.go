package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"THUMB_CACHE_DIR", "FFMPEG_PATH", "FFPROBE_PATH", "THUMBNAIL_WORKERS",
		"THUMB_JPEG_QUALITY", "THUMB_MAX_PIXELS", "LOG_LEVEL", "LOG_FORMAT",
		"NATS_URL", "THUMBNAIL_REQUEST_SUBJECT", "THUMBNAIL_QUEUE", "THUMBNAIL_DONE_SUBJECT",
		"CODEC_METRICS_SUBJECT", "METRICS_ADDR", "CONTENT_SYNC_ENABLED",
		"DEFAULT_STORAGE_BACKEND", "AWS_S3_USE_PATH_STYLE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CacheDir != "./data/thumbs" {
		t.Fatalf("unexpected cache dir: %s", cfg.CacheDir)
	}
	if cfg.FFmpegPath != "ffmpeg" || cfg.FFprobePath != "ffprobe" {
		t.Fatalf("unexpected binaries: %s %s", cfg.FFmpegPath, cfg.FFprobePath)
	}
	if cfg.Workers != 0 || cfg.JPEGQuality != 85 || cfg.MaxPixels != 100_000_000 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	if cfg.NATSURL != "nats://127.0.0.1:4222" || cfg.MetricsAddr != ":9090" {
		t.Fatalf("unexpected endpoints: %s %s", cfg.NATSURL, cfg.MetricsAddr)
	}
	if cfg.ContentSyncEnabled {
		t.Fatal("content sync should be off by default")
	}
	if cfg.Content.StorageBackend != "s3" || !cfg.Content.S3UsePathStyle {
		t.Fatalf("unexpected content config: %+v", cfg.Content)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("THUMB_CACHE_DIR", "/var/cache/thumbs")
	t.Setenv("THUMBNAIL_WORKERS", "6")
	t.Setenv("THUMB_JPEG_QUALITY", "70")
	t.Setenv("CONTENT_SYNC_ENABLED", "true")
	t.Setenv("AWS_S3_USE_PATH_STYLE", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.CacheDir != "/var/cache/thumbs" || cfg.Workers != 6 || cfg.JPEGQuality != 70 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if !cfg.ContentSyncEnabled || cfg.Content.S3UsePathStyle {
		t.Fatalf("boolean overrides not applied: %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"quality not a number", "THUMB_JPEG_QUALITY", "high"},
		{"quality too large", "THUMB_JPEG_QUALITY", "101"},
		{"quality zero", "THUMB_JPEG_QUALITY", "0"},
		{"negative workers", "THUMBNAIL_WORKERS", "-2"},
		{"zero max pixels", "THUMB_MAX_PIXELS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
