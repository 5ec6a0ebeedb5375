// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	simpleconfig "github.com/tendant/simple-content/pkg/simplecontent/config"

	"github.com/tendant/thumbcache/internal/batch"
	"github.com/tendant/thumbcache/internal/bus"
	"github.com/tendant/thumbcache/internal/config"
	"github.com/tendant/thumbcache/internal/converters"
	"github.com/tendant/thumbcache/internal/logging"
	"github.com/tendant/thumbcache/internal/memory"
	"github.com/tendant/thumbcache/internal/metrics"
	"github.com/tendant/thumbcache/internal/thumbnail"
	"github.com/tendant/thumbcache/internal/upload"
)

func loadSimpleContentConfig(c config.ContentConfig) (*simpleconfig.ServerConfig, error) {
	opts := []simpleconfig.Option{
		simpleconfig.WithDatabase(c.DatabaseType, c.DatabaseURL),
		simpleconfig.WithDatabaseSchema(c.DatabaseSchema),
		simpleconfig.WithDefaultStorage(c.StorageBackend),
	}

	switch c.StorageBackend {
	case "s3":
		opts = append(opts, simpleconfig.WithS3StorageFull(
			"s3",
			c.S3Bucket,
			c.S3Region,
			c.S3AccessKeyID,
			c.S3SecretAccessKey,
			c.S3Endpoint,
			c.S3UseSSL,
			c.S3UsePathStyle,
		))
	case "memory":
		opts = append(opts, simpleconfig.WithMemoryStorage("memory"))
	}

	opts = append(opts,
		simpleconfig.WithEventLogging(false),
		simpleconfig.WithPreviews(true),
		simpleconfig.WithStorageDelegatedURLs(),
	)

	return simpleconfig.Load(opts...)
}

func newUploader(c config.ContentConfig, logger *slog.Logger) (*upload.Client, error) {
	contentCfg, err := loadSimpleContentConfig(c)
	if err != nil {
		return nil, fmt.Errorf("load simplecontent config: %w", err)
	}
	backendSummaries := make([]string, 0, len(contentCfg.StorageBackends))
	for _, b := range contentCfg.StorageBackends {
		backendSummaries = append(backendSummaries, fmt.Sprintf("%s(%s)", b.Name, b.Type))
	}
	logger.Info("loaded simplecontent config", "default_backend", contentCfg.DefaultStorageBackend, "storage_backends", backendSummaries, "has_database_url", contentCfg.DatabaseURL != "")

	contentSvc, err := contentCfg.BuildService()
	if err != nil {
		return nil, fmt.Errorf("build simplecontent service: %w", err)
	}
	return upload.NewClient(contentSvc, contentCfg.DefaultStorageBackend, logger), nil
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fatal(slog.Default(), "parse log level", err)
	}
	if logging.DebugForced() {
		level = slog.LevelDebug
	}
	logger, err := logging.New(os.Stdout, level, cfg.LogFormat)
	if err != nil {
		fatal(slog.Default(), "build logger", err)
	}
	slog.SetDefault(logger)

	workers := batch.WorkerCount(cfg.Workers, 0)
	logger.Info("worker starting", "nats_url", cfg.NATSURL, "request_subject", cfg.RequestSubject, "queue", cfg.WorkerQueue, "done_subject", cfg.DoneSubject, "cache_dir", cfg.CacheDir, "workers", workers)

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		fatal(logger, "ensure cache directory", err, "cache_dir", cfg.CacheDir)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tracker := metrics.NewCodecTracker()
	reg.MustRegister(metrics.NewCodecCollector(tracker))

	svc := thumbnail.New(
		thumbnail.WithTracker(tracker),
		thumbnail.WithExtractor(converters.NewFFmpegConverter(converters.WithBinaries(cfg.FFmpegPath, cfg.FFprobePath))),
		thumbnail.WithObserver(metrics.NewThumbnailObserver(reg)),
		thumbnail.WithLogger(logger),
		thumbnail.WithJPEGQuality(cfg.JPEGQuality),
		thumbnail.WithMaxPixels(cfg.MaxPixels),
	)

	h := &handler{
		ensurer:     svc,
		tracker:     tracker,
		memory:      memory.NewMonitor(memory.DefaultConfig(), logger),
		cacheDir:    cfg.CacheDir,
		doneSubject: cfg.DoneSubject,
		objective:   metrics.DefaultObjective,
		logger:      logger,
	}

	if cfg.ContentSyncEnabled {
		uploader, err := newUploader(cfg.Content, logger)
		if err != nil {
			fatal(logger, "content sync", err)
		}
		h.sync = uploader
		logger.Info("content sync enabled", "backend", cfg.Content.StorageBackend)
	}

	nc, err := bus.Connect(cfg.NATSURL, "thumbcache-worker", logger)
	if err != nil {
		fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
	}
	defer nc.Close()
	h.pub = nc
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL)

	for i := 0; i < workers; i++ {
		if _, err := nc.QueueSubscribeJSON(cfg.RequestSubject, cfg.WorkerQueue, h.handleRequest); err != nil {
			fatal(logger, "subscribe worker", err, "subject", cfg.RequestSubject, "queue", cfg.WorkerQueue)
		}
	}
	if _, err := nc.HandleRequests(cfg.CodecMetricsSubject, h.handleCodecMetrics); err != nil {
		fatal(logger, "subscribe codec metrics", err, "subject", cfg.CodecMetricsSubject)
	}
	logger.Info("listening for requests", "subject", cfg.RequestSubject, "queue", cfg.WorkerQueue, "codec_metrics_subject", cfg.CodecMetricsSubject)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !nc.Conn().IsConnected() {
			http.Error(w, "nats disconnected", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", cfg.MetricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "err", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
