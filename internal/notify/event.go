// Package notify delivers terminal job events to external endpoints.
// Delivery is best-effort and at-most-once: failures are logged, never
// retried, and never surfaced to the job lifecycle.
package notify

import (
	"time"

	"github.com/castforge/podcast-be/internal/domain"
)

// Event kinds carried in the payload.
const (
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Event is the JSON payload announcing a terminal job transition.
// Result fields are set only on completion, FailureReason only on failure.
type Event struct {
	Event           string    `json:"event"`
	JobID           string    `json:"job_id"`
	ContentID       string    `json:"content_id"`
	SubmitterID     string    `json:"submitter_id"`
	Format          string    `json:"format"`
	EpisodeID       string    `json:"episode_id,omitempty"`
	AudioURL        string    `json:"audio_url,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	FailureReason   string    `json:"failure_reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewEvent builds the payload for a job that reached a terminal status.
func NewEvent(job domain.Job) Event {
	event := Event{
		JobID:       job.ID,
		ContentID:   job.Input.ContentID,
		SubmitterID: job.Input.SubmitterID,
		Format:      string(job.Input.Format),
		Timestamp:   time.Now().UTC(),
	}
	if job.CompletedAt != nil {
		event.Timestamp = job.CompletedAt.UTC()
	}

	switch job.Status {
	case domain.StatusCompleted:
		event.Event = EventCompleted
		if result := job.Result(); result != nil {
			event.EpisodeID = result.EpisodeID
			event.AudioURL = result.AudioURL
			event.DurationSeconds = result.Duration.Seconds()
		}
	case domain.StatusFailed:
		event.Event = EventFailed
		event.FailureReason = job.FailureReason()
	}

	return event
}
