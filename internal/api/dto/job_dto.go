package dto

import (
	"time"

	"github.com/castforge/podcast-be/internal/domain"
)

// SubmitJobRequest is the body of POST /api/v1/jobs.
type SubmitJobRequest struct {
	ContentID   string `json:"content_id" binding:"required"`
	Content     string `json:"content" binding:"required"`
	SubmitterID string `json:"submitter_id" binding:"required"`
	Format      string `json:"format" binding:"required"`
}

// SubmitJobResponse acknowledges an accepted submission.
type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ListJobsRequest carries the query parameters of GET /api/v1/jobs.
type ListJobsRequest struct {
	SubmitterID string `form:"submitter_id"`
}

// ListJobsResponse lists a submitter's jobs, newest first.
type ListJobsResponse struct {
	Jobs  []JobDTO `json:"jobs"`
	Count int      `json:"count"`
}

// StatsResponse summarizes the store by lifecycle state.
type StatsResponse struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// ResultDTO is the completion payload attached to a finished job.
type ResultDTO struct {
	EpisodeID       string                `json:"episode_id"`
	AudioURL        string                `json:"audio_url"`
	DurationSeconds float64               `json:"duration_seconds"`
	Transcript      []domain.DialogueTurn `json:"transcript"`
}

// JobDTO is the full job projection returned by status and list endpoints.
type JobDTO struct {
	JobID         string     `json:"job_id"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"`
	CurrentStep   string     `json:"current_step,omitempty"`
	ContentID     string     `json:"content_id"`
	SubmitterID   string     `json:"submitter_id"`
	Format        string     `json:"format"`
	Result        *ResultDTO `json:"result,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     string     `json:"created_at"`
	StartedAt     string     `json:"started_at,omitempty"`
	CompletedAt   string     `json:"completed_at,omitempty"`
}

// NewJobDTO projects a job record into its API shape.
func NewJobDTO(job domain.Job) JobDTO {
	out := JobDTO{
		JobID:         job.ID,
		Status:        string(job.Status),
		Progress:      job.Progress,
		CurrentStep:   job.CurrentStep,
		ContentID:     job.Input.ContentID,
		SubmitterID:   job.Input.SubmitterID,
		Format:        string(job.Input.Format),
		FailureReason: job.FailureReason(),
		CreatedAt:     job.CreatedAt.UTC().Format(time.RFC3339),
	}

	if job.StartedAt != nil {
		out.StartedAt = job.StartedAt.UTC().Format(time.RFC3339)
	}
	if job.CompletedAt != nil {
		out.CompletedAt = job.CompletedAt.UTC().Format(time.RFC3339)
	}
	if result := job.Result(); result != nil {
		out.Result = &ResultDTO{
			EpisodeID:       result.EpisodeID,
			AudioURL:        result.AudioURL,
			DurationSeconds: result.Duration.Seconds(),
			Transcript:      result.Transcript,
		}
	}

	return out
}
