// Package schema defines the JSON messages the worker exchanges over NATS.
package schema

// ThumbnailRequested asks a worker to ensure thumbnails for a local file.
type ThumbnailRequested struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	CacheDir   string `json:"cache_dir,omitempty"`
	ContentID  string `json:"content_id,omitempty"`
	HappenedAt int64  `json:"happened_at"`
}

type ProcessingStage string

const (
	StageValidation ProcessingStage = "validation"
	StageProcessing ProcessingStage = "processing"
	StageUpload     ProcessingStage = "upload"
	StageCompleted  ProcessingStage = "completed"
	StageFailed     ProcessingStage = "failed"
)

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

// ThumbnailResult describes one thumbnail synced to the content service.
type ThumbnailResult struct {
	Size      string `json:"size"`
	Variant   string `json:"variant"`
	ContentID string `json:"content_id,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type ThumbnailLifecycleEvent struct {
	JobID           string          `json:"job_id"`
	SourcePath      string          `json:"source_path"`
	ContentID       string          `json:"content_id,omitempty"`
	Stage           ProcessingStage `json:"stage"`
	ProcessingStart int64           `json:"processing_start,omitempty"`
	ProcessingEnd   int64           `json:"processing_end,omitempty"`
	Error           string          `json:"error,omitempty"`
	FailureType     FailureType     `json:"failure_type,omitempty"`
	HappenedAt      int64           `json:"happened_at"`
}

// ThumbnailDone is published once per request, successful or not.
type ThumbnailDone struct {
	ID               string                    `json:"id"`
	SourcePath       string                    `json:"source_path"`
	ContentID        string                    `json:"content_id,omitempty"`
	SmallPath        string                    `json:"small_path,omitempty"`
	MediumPath       string                    `json:"medium_path,omitempty"`
	ProcessingTimeMs int64                     `json:"processing_time_ms"`
	Results          []ThumbnailResult         `json:"results,omitempty"`
	Lifecycle        []ThumbnailLifecycleEvent `json:"lifecycle,omitempty"`
	Error            string                    `json:"error,omitempty"`
	FailureType      FailureType               `json:"failure_type,omitempty"`
	HappenedAt       int64                     `json:"happened_at"`
}

// CodecMetricsRequest queries the worker's codec statistics. Reset clears
// them after the snapshot is taken.
type CodecMetricsRequest struct {
	Reset bool `json:"reset,omitempty"`
}

type CodecMetric struct {
	CodecName           string  `json:"codec_name"`
	AvgExtractionTimeMs float64 `json:"avg_extraction_time_ms"`
	SampleCount         int64   `json:"sample_count"`
	SuccessRate         float64 `json:"success_rate"`
	MeetsTarget         bool    `json:"meets_target"`
}

type CodecMetricsResponse struct {
	Codecs     []CodecMetric `json:"codecs"`
	Error      string        `json:"error,omitempty"`
	HappenedAt int64         `json:"happened_at"`
}
