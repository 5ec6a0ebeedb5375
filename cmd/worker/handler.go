package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/thumbcache/internal/batch"
	"github.com/tendant/thumbcache/internal/cache"
	"github.com/tendant/thumbcache/internal/media"
	"github.com/tendant/thumbcache/internal/metrics"
	"github.com/tendant/thumbcache/internal/process"
	"github.com/tendant/thumbcache/internal/upload"
	"github.com/tendant/thumbcache/pkg/schema"
)

type publisher interface {
	PublishJSON(subject string, v any) error
}

type syncer interface {
	SyncThumbnailSet(ctx context.Context, parentID uuid.UUID, set cache.ThumbnailSet) ([]upload.Uploaded, error)
}

type waiter interface {
	WaitUntilSafe(ctx context.Context) error
}

type handler struct {
	ensurer     batch.Ensurer
	tracker     *metrics.CodecTracker
	pub         publisher
	sync        syncer // nil when content sync is disabled
	memory      waiter
	cacheDir    string
	doneSubject string
	objective   metrics.Objective
	logger      *slog.Logger
}

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

func classifyError(err error) schema.FailureType {
	if err == nil {
		return ""
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		return schema.FailureTypeValidation
	}
	var notReady *upload.NotReadyError
	if errors.As(err, &notReady) {
		return schema.FailureTypeValidation
	}

	if media.IsPermanent(err) {
		return schema.FailureTypePermanent
	}
	return schema.FailureTypeRetryable
}

// handleRequest processes one ThumbnailRequested message and always publishes
// a ThumbnailDone for it.
func (h *handler) handleRequest(ctx context.Context, data []byte) {
	var req schema.ThumbnailRequested
	if err := json.Unmarshal(data, &req); err != nil {
		job := process.NewJob("thumbnail", uuid.NewString(), nil)
		h.fail(job, ValidationError{Message: fmt.Sprintf("decode request: %v", err)})
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	job := process.NewJob("thumbnail", req.ID, req)
	job.SourcePath = req.Path
	job.ContentID = req.ContentID
	logger := h.logger.With("job_id", job.ID, "source", req.Path)
	logger.Info("received request")

	var contentID uuid.UUID
	switch {
	case req.Path == "":
		h.fail(job, ValidationError{Message: "request has no path"})
		return
	case req.ContentID != "":
		id, err := uuid.Parse(req.ContentID)
		if err != nil {
			h.fail(job, ValidationError{Message: fmt.Sprintf("invalid content_id %q: %v", req.ContentID, err)})
			return
		}
		contentID = id
	}
	h.publishStage(job.Stage(schema.StageValidation, nil, ""))

	if h.memory != nil {
		if err := h.memory.WaitUntilSafe(ctx); err != nil {
			h.fail(job, fmt.Errorf("wait for memory: %w", err))
			return
		}
	}

	cacheDir := req.CacheDir
	if cacheDir == "" {
		cacheDir = h.cacheDir
	}

	process.MarkRunning(job)
	h.publishStage(job.Lifecycle[len(job.Lifecycle)-1])

	set, err := h.ensurer.EnsureThumbnails(ctx, req.Path, cacheDir)
	if err != nil {
		logger.Error("thumbnail generation failed", "err", err)
		h.fail(job, err)
		return
	}

	var results []schema.ThumbnailResult
	if contentID != uuid.Nil && h.sync != nil {
		h.publishStage(job.Stage(schema.StageUpload, nil, ""))
		uploaded, err := h.sync.SyncThumbnailSet(ctx, contentID, set)
		results = toResults(uploaded)
		if err != nil {
			logger.Error("content sync failed", "content_id", contentID, "err", err)
			h.failWith(job, set, results, err)
			return
		}
	}

	process.MarkSucceeded(job)
	done := job.Done()
	done.SmallPath, done.MediumPath = set.SmallPath, set.MediumPath
	done.Results = results
	h.publishDone(done)
	logger.Info("completed request", "small", set.SmallPath, "medium", set.MediumPath, "processing_time_ms", done.ProcessingTimeMs)
}

func (h *handler) fail(job *process.Job, err error) {
	h.failWith(job, cache.ThumbnailSet{}, nil, err)
}

func (h *handler) failWith(job *process.Job, set cache.ThumbnailSet, results []schema.ThumbnailResult, err error) {
	process.MarkFailed(job, err, classifyError(err))
	done := job.Done()
	done.SmallPath, done.MediumPath = set.SmallPath, set.MediumPath
	done.Results = results
	h.publishDone(done)
}

func (h *handler) publishStage(event schema.ThumbnailLifecycleEvent) {
	subject := h.doneSubject + ".lifecycle"
	if err := h.pub.PublishJSON(subject, event); err != nil {
		h.logger.Error("publish lifecycle event failed", "subject", subject, "stage", event.Stage, "err", err)
	}
}

func (h *handler) publishDone(done schema.ThumbnailDone) {
	if err := h.pub.PublishJSON(h.doneSubject, done); err != nil {
		h.logger.Error("publish result failed", "subject", h.doneSubject, "id", done.ID, "err", err)
	}
}

func toResults(uploaded []upload.Uploaded) []schema.ThumbnailResult {
	if len(uploaded) == 0 {
		return nil
	}
	out := make([]schema.ThumbnailResult, len(uploaded))
	for i, u := range uploaded {
		out[i] = schema.ThumbnailResult{
			Size:      u.Size,
			Variant:   u.Variant,
			ContentID: u.ContentID.String(),
			Width:     u.Width,
			Height:    u.Height,
			Status:    "processed",
		}
	}
	return out
}

// handleCodecMetrics answers a CodecMetricsRequest.
func (h *handler) handleCodecMetrics(_ context.Context, data []byte) any {
	var req schema.CodecMetricsRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return schema.CodecMetricsResponse{Error: fmt.Sprintf("decode request: %v", err), HappenedAt: time.Now().Unix()}
		}
	}

	var snapshot []metrics.CodecMetrics
	if req.Reset {
		snapshot = h.tracker.Reset()
		h.logger.Info("codec metrics reset", "codecs", len(snapshot))
	} else {
		snapshot = h.tracker.Snapshot()
	}

	resp := schema.CodecMetricsResponse{
		Codecs:     make([]schema.CodecMetric, len(snapshot)),
		HappenedAt: time.Now().Unix(),
	}
	for i, m := range snapshot {
		resp.Codecs[i] = schema.CodecMetric{
			CodecName:           m.Codec,
			AvgExtractionTimeMs: m.AvgExtractionTimeMs,
			SampleCount:         m.SampleCount,
			SuccessRate:         m.SuccessRate,
			MeetsTarget:         m.MeetsTarget(h.objective.MaxExtraction),
		}
	}
	return resp
}
