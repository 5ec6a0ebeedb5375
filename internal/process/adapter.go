// Package process tracks the lifecycle of a single worker job.
package process

import (
	"time"

	"github.com/tendant/thumbcache/pkg/schema"
)

// JobStatus represents the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Job captures what the worker reports about one thumbnail request.
type Job struct {
	ID          string
	Kind        string
	Input       any
	Status      JobStatus
	Error       string
	FailureType schema.FailureType
	SourcePath  string
	ContentID   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Lifecycle   []schema.ThumbnailLifecycleEvent

	now func() time.Time
}

func NewJob(kind, id string, input any) *Job {
	return &Job{
		ID:     id,
		Kind:   kind,
		Input:  input,
		Status: JobStatusPending,
		now:    time.Now,
	}
}

func MarkRunning(j *Job) {
	j.Status = JobStatusRunning
	j.StartedAt = j.now()
	j.Stage(schema.StageProcessing, nil, "")
}

func MarkSucceeded(j *Job) {
	j.Status = JobStatusSucceeded
	j.FinishedAt = j.now()
	j.Stage(schema.StageCompleted, nil, "")
}

func MarkFailed(j *Job, err error, failureType schema.FailureType) {
	j.Status = JobStatusFailed
	j.FinishedAt = j.now()
	if err != nil {
		j.Error = err.Error()
		j.FailureType = failureType
	}
	j.Stage(schema.StageFailed, err, failureType)
}

// Stage appends a lifecycle event and returns it.
func (j *Job) Stage(stage schema.ProcessingStage, err error, failureType schema.FailureType) schema.ThumbnailLifecycleEvent {
	event := schema.ThumbnailLifecycleEvent{
		JobID:      j.ID,
		SourcePath: j.SourcePath,
		ContentID:  j.ContentID,
		Stage:      stage,
		HappenedAt: j.now().Unix(),
	}
	if !j.StartedAt.IsZero() {
		event.ProcessingStart = j.StartedAt.UnixMilli()
	}
	if stage == schema.StageCompleted || stage == schema.StageFailed {
		event.ProcessingEnd = j.FinishedAt.UnixMilli()
	}
	if err != nil {
		event.Error = err.Error()
		event.FailureType = failureType
	}
	j.Lifecycle = append(j.Lifecycle, event)
	return event
}

// Duration is the time between MarkRunning and completion, or until now
// while the job is still running.
func (j *Job) Duration() time.Duration {
	if j.StartedAt.IsZero() {
		return 0
	}
	end := j.FinishedAt
	if end.IsZero() {
		end = j.now()
	}
	return end.Sub(j.StartedAt)
}

// Done builds the result message for the job.
func (j *Job) Done() schema.ThumbnailDone {
	return schema.ThumbnailDone{
		ID:               j.ID,
		SourcePath:       j.SourcePath,
		ContentID:        j.ContentID,
		ProcessingTimeMs: j.Duration().Milliseconds(),
		Lifecycle:        j.Lifecycle,
		Error:            j.Error,
		FailureType:      j.FailureType,
		HappenedAt:       j.now().Unix(),
	}
}
