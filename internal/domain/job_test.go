package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		terminal bool
	}{
		{name: "queued is not terminal", status: StatusQueued, terminal: false},
		{name: "processing is not terminal", status: StatusProcessing, terminal: false},
		{name: "completed is terminal", status: StatusCompleted, terminal: true},
		{name: "failed is terminal", status: StatusFailed, terminal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestFormatValid(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		valid  bool
	}{
		{name: "short", format: FormatShort, valid: true},
		{name: "standard", format: FormatStandard, valid: true},
		{name: "long", format: FormatLong, valid: true},
		{name: "unknown value", format: Format("extended"), valid: false},
		{name: "empty value", format: Format(""), valid: false},
		{name: "wrong case", format: Format("Short"), valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.format.Valid())
		})
	}
}

func TestJobOutcomeAccessors(t *testing.T) {
	t.Run("pending job has neither result nor failure", func(t *testing.T) {
		job := Job{Status: StatusProcessing}
		assert.Nil(t, job.Result())
		assert.Empty(t, job.FailureReason())
	})

	t.Run("completed job exposes result only", func(t *testing.T) {
		job := Job{
			Status:  StatusCompleted,
			Outcome: &Result{EpisodeID: "ep-1", AudioURL: "https://cdn.example.com/ep-1.mp3"},
		}
		require.NotNil(t, job.Result())
		assert.Equal(t, "ep-1", job.Result().EpisodeID)
		assert.Empty(t, job.FailureReason())
	})

	t.Run("failed job exposes reason only", func(t *testing.T) {
		job := Job{
			Status:  StatusFailed,
			Outcome: &Failure{Reason: "synthesize_audio: voice unavailable"},
		}
		assert.Nil(t, job.Result())
		assert.Equal(t, "synthesize_audio: voice unavailable", job.FailureReason())
	})
}

func TestJobClone(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	completed := started.Add(90 * time.Second)
	job := Job{
		ID:       "job-1",
		Status:   StatusCompleted,
		Progress: 100,
		Input: Submission{
			ContentID:   "content-1",
			Content:     "an article",
			SubmitterID: "user-1",
			Format:      FormatStandard,
		},
		Outcome: &Result{
			EpisodeID:  "ep-1",
			AudioURL:   "https://cdn.example.com/ep-1.mp3",
			Duration:   90 * time.Second,
			Transcript: []DialogueTurn{{Speaker: "HOST", Text: "Welcome back."}},
		},
		CreatedAt:   started.Add(-time.Minute),
		StartedAt:   &started,
		CompletedAt: &completed,
	}

	clone := job.Clone()
	require.Equal(t, job, clone)

	// Mutating the clone must not reach the original.
	*clone.StartedAt = clone.StartedAt.Add(time.Hour)
	clone.Result().Transcript[0].Text = "changed"
	clone.Result().AudioURL = "https://cdn.example.com/other.mp3"

	assert.Equal(t, started, *job.StartedAt)
	assert.Equal(t, "Welcome back.", job.Result().Transcript[0].Text)
	assert.Equal(t, "https://cdn.example.com/ep-1.mp3", job.Result().AudioURL)
}

func TestJobCloneFailure(t *testing.T) {
	job := Job{
		ID:      "job-2",
		Status:  StatusFailed,
		Outcome: &Failure{Reason: "generate_script: upstream timeout"},
	}

	clone := job.Clone()
	clone.Outcome.(*Failure).Reason = "changed"

	assert.Equal(t, "generate_script: upstream timeout", job.FailureReason())
}
