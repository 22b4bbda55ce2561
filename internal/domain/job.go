package domain

import "time"

// JobStatus is the lifecycle state of a generation job.
type JobStatus string

// Job status values. Transitions are forward-only:
// queued -> processing -> completed | failed.
const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transition is permitted.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Format selects the target episode length.
type Format string

const (
	FormatShort    Format = "short"
	FormatStandard Format = "standard"
	FormatLong     Format = "long"
)

// Valid reports whether f is a known format selector.
func (f Format) Valid() bool {
	switch f {
	case FormatShort, FormatStandard, FormatLong:
		return true
	}
	return false
}

// Submission is the caller-provided payload of a generation request.
// It is immutable after the job is created.
type Submission struct {
	ContentID   string
	Content     string
	SubmitterID string
	Format      Format
}

// DialogueTurn is one speaker/text pair of a generated script.
type DialogueTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AudioSegment is synthesized audio for one dialogue turn.
type AudioSegment struct {
	Data     []byte
	Duration time.Duration
}

// Outcome is the terminal outcome of a job. Exactly one variant is ever
// attached to a record: *Result once it completes, *Failure once it fails.
type Outcome interface {
	outcome()
}

// Result is the completion payload of a job.
type Result struct {
	EpisodeID  string
	AudioURL   string
	Duration   time.Duration
	Transcript []DialogueTurn
}

func (*Result) outcome() {}

// Failure carries the diagnostic for a failed job.
type Failure struct {
	Reason string
}

func (*Failure) outcome() {}

// EpisodeDraft identifies the durable episode record created at the start
// of a pipeline run, before any generation work happens.
type EpisodeDraft struct {
	EpisodeID   string
	JobID       string
	ContentID   string
	SubmitterID string
	Format      Format
}

// Update is a partial mutation of a live job record. Nil fields are
// left untouched.
type Update struct {
	Progress    *int
	CurrentStep *string
}

// Job is one generation request and its evolving state. Records are owned
// by the job store; callers and the scheduler only ever see copies.
type Job struct {
	ID          string
	Status      JobStatus
	Progress    int
	CurrentStep string
	Input       Submission
	Outcome     Outcome
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Result returns the completion payload, or nil while the job has not completed.
func (j *Job) Result() *Result {
	r, _ := j.Outcome.(*Result)
	return r
}

// FailureReason returns the failure diagnostic, or "" while the job has not failed.
func (j *Job) FailureReason() string {
	if f, ok := j.Outcome.(*Failure); ok {
		return f.Reason
	}
	return ""
}

// Clone returns a copy that shares no mutable state with the original.
func (j *Job) Clone() Job {
	out := *j
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if r := j.Result(); r != nil {
		rc := *r
		rc.Transcript = append([]DialogueTurn(nil), r.Transcript...)
		out.Outcome = &rc
	}
	if f, ok := j.Outcome.(*Failure); ok {
		fc := *f
		out.Outcome = &fc
	}
	return out
}
