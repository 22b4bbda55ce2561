// Package jobstore keeps the authoritative record of every generation job.
//
// Records live in process memory behind a single mutex. Every accessor
// returns a deep copy, so callers can never mutate a live record; all
// writes go through the store's transition methods, which enforce the
// job lifecycle rules.
package jobstore

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castforge/podcast-be/internal/domain"
)

// Store is an in-memory job registry safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	jobs         map[string]*domain.Job
	processingID string

	now   func() time.Time
	newID func() string
}

// Option customises a Store. Production code uses the defaults; tests
// inject deterministic clocks and ID generators.
type Option func(*Store)

// WithClock replaces the wall clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator replaces the job ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:  make(map[string]*domain.Job),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new queued job for the given submission and returns
// a copy of the record.
func (s *Store) Create(input domain.Submission) domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &domain.Job{
		ID:        s.newID(),
		Status:    domain.StatusQueued,
		Progress:  0,
		Input:     input,
		CreatedAt: s.now(),
	}
	s.jobs[job.ID] = job
	return job.Clone()
}

// Get returns a copy of the job with the given ID.
func (s *Store) Get(id string) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

// ApplyUpdate applies a partial update to a live job and returns the
// updated copy. Progress may only move forward within [0,100]; terminal
// jobs reject all updates.
func (s *Store) ApplyUpdate(id string, update domain.Update) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.Job{}, domain.ErrJobFinished
	}
	if update.Progress != nil {
		p := *update.Progress
		if p < job.Progress || p < 0 || p > 100 {
			return domain.Job{}, domain.ErrInvalidProgress
		}
		job.Progress = p
	}
	if update.CurrentStep != nil {
		job.CurrentStep = *update.CurrentStep
	}
	return job.Clone(), nil
}

// Claim transitions a queued job to processing. At most one job may be
// processing at a time; a second claim fails with ErrWorkerBusy until the
// running job finishes.
func (s *Store) Claim(id string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if job.Status != domain.StatusQueued {
		return domain.Job{}, domain.ErrJobNotQueued
	}
	if s.processingID != "" {
		return domain.Job{}, domain.ErrWorkerBusy
	}

	started := s.now()
	job.Status = domain.StatusProcessing
	job.StartedAt = &started
	s.processingID = job.ID
	return job.Clone(), nil
}

// Complete transitions a processing job to completed and attaches its
// result. Progress jumps to 100 and the step label is cleared.
func (s *Store) Complete(id string, result domain.Result) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.Job{}, domain.ErrJobFinished
	}
	if job.Status != domain.StatusProcessing {
		return domain.Job{}, domain.ErrJobNotProcessing
	}

	completed := s.now()
	job.Status = domain.StatusCompleted
	job.Progress = 100
	job.CurrentStep = ""
	job.Outcome = &result
	job.CompletedAt = &completed
	if s.processingID == job.ID {
		s.processingID = ""
	}
	return job.Clone(), nil
}

// Fail transitions a processing job to failed. The step label is kept as
// a pointer to where the pipeline stopped.
func (s *Store) Fail(id, reason string) (domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return domain.Job{}, domain.ErrJobFinished
	}
	if job.Status != domain.StatusProcessing {
		return domain.Job{}, domain.ErrJobNotProcessing
	}

	if reason == "" {
		reason = "unspecified failure"
	}
	completed := s.now()
	job.Status = domain.StatusFailed
	job.Outcome = &domain.Failure{Reason: reason}
	job.CompletedAt = &completed
	if s.processingID == job.ID {
		s.processingID = ""
	}
	return job.Clone(), nil
}

// ListBySubmitter returns copies of all jobs created by the given
// submitter, newest first.
func (s *Store) ListBySubmitter(submitterID string) []domain.Job {
	s.mu.RLock()
	jobs := make([]domain.Job, 0)
	for _, job := range s.jobs {
		if job.Input.SubmitterID == submitterID {
			jobs = append(jobs, job.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(jobs)
	return jobs
}

// ListAll returns copies of every job in the store, newest first.
func (s *Store) ListAll() []domain.Job {
	s.mu.RLock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job.Clone())
	}
	s.mu.RUnlock()

	sortNewestFirst(jobs)
	return jobs
}

// QueuedIDs returns the IDs of all queued jobs, oldest first, so a rescan
// re-dispatches them in submission order.
func (s *Store) QueuedIDs() []string {
	s.mu.RLock()
	queued := make([]domain.Job, 0)
	for _, job := range s.jobs {
		if job.Status == domain.StatusQueued {
			queued = append(queued, domain.Job{ID: job.ID, CreatedAt: job.CreatedAt})
		}
	}
	s.mu.RUnlock()

	sort.Slice(queued, func(i, j int) bool {
		if queued[i].CreatedAt.Equal(queued[j].CreatedAt) {
			return queued[i].ID < queued[j].ID
		}
		return queued[i].CreatedAt.Before(queued[j].CreatedAt)
	})

	ids := make([]string, len(queued))
	for i, job := range queued {
		ids[i] = job.ID
	}
	return ids
}

// CountByStatus returns the number of jobs in each lifecycle state.
func (s *Store) CountByStatus() map[domain.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.JobStatus]int, 4)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// Sweep removes every job older than maxAge, regardless of status, and
// returns the number of records dropped.
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			if s.processingID == id {
				s.processingID = ""
			}
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func sortNewestFirst(jobs []domain.Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
