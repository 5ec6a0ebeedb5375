// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tendant/thumbcache/internal/img"
)

// Config holds the settings shared by the CLI and the worker.
type Config struct {
	CacheDir    string
	FFmpegPath  string
	FFprobePath string
	Workers     int
	JPEGQuality int
	MaxPixels   int
	LogLevel    string
	LogFormat   string

	NATSURL             string
	RequestSubject      string
	WorkerQueue         string
	DoneSubject         string
	CodecMetricsSubject string
	MetricsAddr         string

	ContentSyncEnabled bool
	Content            ContentConfig
}

// ContentConfig carries the simple-content repository and storage settings.
type ContentConfig struct {
	DatabaseType   string
	DatabaseURL    string
	DatabaseSchema string
	StorageBackend string

	S3Bucket          string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3UseSSL          bool
	S3UsePathStyle    bool
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		CacheDir:    getenv("THUMB_CACHE_DIR", "./data/thumbs"),
		FFmpegPath:  getenv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getenv("FFPROBE_PATH", "ffprobe"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogFormat:   getenv("LOG_FORMAT", "text"),

		NATSURL:             getenv("NATS_URL", "nats://127.0.0.1:4222"),
		RequestSubject:      getenv("THUMBNAIL_REQUEST_SUBJECT", "thumbnails.requested"),
		WorkerQueue:         getenv("THUMBNAIL_QUEUE", "thumbnail-workers"),
		DoneSubject:         getenv("THUMBNAIL_DONE_SUBJECT", "thumbnails.done"),
		CodecMetricsSubject: getenv("CODEC_METRICS_SUBJECT", "thumbnails.codec_metrics"),
		MetricsAddr:         getenv("METRICS_ADDR", ":9090"),

		ContentSyncEnabled: getenvBool("CONTENT_SYNC_ENABLED", false),
		Content: ContentConfig{
			DatabaseType:      getenv("DATABASE_TYPE", "postgres"),
			DatabaseURL:       getenv("DATABASE_URL", ""),
			DatabaseSchema:    getenv("DATABASE_SCHEMA", "content"),
			StorageBackend:    getenv("DEFAULT_STORAGE_BACKEND", "s3"),
			S3Bucket:          getenv("AWS_S3_BUCKET", "thumbnails"),
			S3Region:          getenv("AWS_S3_REGION", "us-east-1"),
			S3AccessKeyID:     getenv("AWS_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY", ""),
			S3Endpoint:        getenv("AWS_S3_ENDPOINT", ""),
			S3UseSSL:          getenvBool("AWS_S3_USE_SSL", false),
			S3UsePathStyle:    getenvBool("AWS_S3_USE_PATH_STYLE", true),
		},
	}

	workers, err := parseNonNegativeInt(getenv("THUMBNAIL_WORKERS", "0"), "THUMBNAIL_WORKERS")
	if err != nil {
		return Config{}, err
	}
	cfg.Workers = workers

	quality, err := parsePositiveInt(getenv("THUMB_JPEG_QUALITY", strconv.Itoa(img.DefaultJPEGQuality)), "THUMB_JPEG_QUALITY")
	if err != nil {
		return Config{}, err
	}
	if quality > 100 {
		return Config{}, fmt.Errorf("THUMB_JPEG_QUALITY must be between 1 and 100 (got %d)", quality)
	}
	cfg.JPEGQuality = quality

	maxPixels, err := parsePositiveInt(getenv("THUMB_MAX_PIXELS", strconv.Itoa(img.DefaultMaxPixels)), "THUMB_MAX_PIXELS")
	if err != nil {
		return Config{}, err
	}
	cfg.MaxPixels = maxPixels

	return cfg, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getenvBool(key string, defaultValue bool) bool {
	val := getenv(key, "")
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func parseNonNegativeInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative (got %d)", name, v)
	}
	return v, nil
}
