// Package worker drives queued generation jobs through the production
// pipeline. A single scheduler goroutine pulls job IDs off the wake queue
// and runs one job at a time to completion, so at most one job is ever
// processing system-wide.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/castforge/podcast-be/internal/domain"
	"github.com/castforge/podcast-be/internal/jobstore"
	"github.com/castforge/podcast-be/internal/queue"
	"github.com/castforge/podcast-be/shared/logger"
)

// DefaultRescanInterval is how often the scheduler rescans the store for
// queued jobs whose wake signal was dropped.
const DefaultRescanInterval = 30 * time.Second

// Config holds scheduler configuration
type Config struct {
	Logger         *logger.Logger
	Store          *jobstore.Store
	Queue          *queue.Queue
	Stages         Stages
	Notifier       Notifier
	RescanInterval time.Duration

	// EpisodeIDGen overrides episode ID generation; tests inject
	// deterministic values. Defaults to uuid.NewString.
	EpisodeIDGen func() string
}

// Scheduler is the single worker that executes jobs. It blocks on the wake
// queue rather than polling on a fixed sleep; a coarse rescan ticker
// recovers jobs whose wake was dropped on a full queue.
type Scheduler struct {
	logger         *logger.Logger
	store          *jobstore.Store
	queue          *queue.Queue
	stages         Stages
	notifier       Notifier
	rescanInterval time.Duration
	newEpisodeID   func() string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler instance. A non-positive rescan interval
// falls back to DefaultRescanInterval.
func NewScheduler(cfg *Config) *Scheduler {
	rescan := cfg.RescanInterval
	if rescan <= 0 {
		rescan = DefaultRescanInterval
	}
	newEpisodeID := cfg.EpisodeIDGen
	if newEpisodeID == nil {
		newEpisodeID = uuid.NewString
	}

	return &Scheduler{
		logger:         cfg.Logger,
		store:          cfg.Store,
		queue:          cfg.Queue,
		stages:         cfg.Stages,
		notifier:       cfg.Notifier,
		rescanInterval: rescan,
		newEpisodeID:   newEpisodeID,
		stopChan:       make(chan struct{}),
	}
}

// Start launches the scheduler loop. It returns immediately; the loop runs
// until Stop is called or the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Scheduler started",
		slog.Duration("rescan_interval", s.rescanInterval))
}

// Stop halts the loop and waits for the in-flight job, if any, to finish.
func (s *Scheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.rescanInterval)
	defer ticker.Stop()

	// Jobs submitted before the scheduler started have no wake in flight.
	s.rescan(ctx)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case id := <-s.queue.Wait():
			s.runJob(ctx, id)
		case <-ticker.C:
			s.rescan(ctx)
		}
	}
}

// rescan runs every queued job found in the store, oldest first. Jobs that
// also have a wake buffered are claimed here and skipped when their wake
// arrives, so double delivery is harmless.
func (s *Scheduler) rescan(ctx context.Context) {
	ids := s.store.QueuedIDs()
	if len(ids) == 0 {
		return
	}

	s.logger.Debug("Rescan found queued jobs", slog.Int("count", len(ids)))

	for _, id := range ids {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}
		s.runJob(ctx, id)
	}
}

// runJob claims one job and drives it to a terminal state. It returns only
// when the job has finished, keeping execution serialized.
func (s *Scheduler) runJob(ctx context.Context, id string) {
	claimed, err := s.store.Claim(id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotQueued), errors.Is(err, domain.ErrJobNotFound):
			// Duplicate wake, or the record was swept while waiting.
			s.logger.Debug("Skipping wake",
				slog.String("job_id", id),
				slog.Any("error", err))
		default:
			s.logger.Error("Failed to claim job",
				slog.String("job_id", id),
				slog.Any("error", err))
		}
		return
	}

	s.logger.Info("Processing job",
		slog.String("job_id", claimed.ID),
		slog.String("content_id", claimed.Input.ContentID),
		slog.String("submitter_id", claimed.Input.SubmitterID),
		slog.String("format", string(claimed.Input.Format)),
	)

	run := &pipelineRun{scheduler: s, job: claimed}
	result, err := run.execute(ctx)
	if err != nil {
		s.finishWithFailure(ctx, run, err)
		return
	}

	finished, err := s.store.Complete(claimed.ID, result)
	if err != nil {
		// The record disappeared mid-run (retention sweep); the generated
		// episode still exists, there is just nobody left to tell.
		s.logger.Error("Failed to record job completion",
			slog.String("job_id", claimed.ID),
			slog.Any("error", err))
		return
	}

	s.logger.Info("Job completed",
		slog.String("job_id", finished.ID),
		slog.String("episode_id", result.EpisodeID),
		slog.String("audio_url", result.AudioURL),
		slog.Duration("audio_duration", result.Duration),
	)

	s.notifier.JobFinished(finished)
}

// finishWithFailure records a stage failure on the job, flags the draft
// episode row, and announces the terminal state. The scheduler loop itself
// keeps running; a failed job never takes the worker down with it.
func (s *Scheduler) finishWithFailure(ctx context.Context, run *pipelineRun, stageErr error) {
	reason := stageErr.Error()

	s.logger.Error("Job failed",
		slog.String("job_id", run.job.ID),
		slog.Any("error", stageErr))

	// The durable episode row is marked first: it must record the failure
	// even if the in-memory job record was swept mid-run.
	run.markEpisodeFailed(ctx, reason)

	failed, err := s.store.Fail(run.job.ID, reason)
	if err != nil {
		s.logger.Error("Failed to record job failure",
			slog.String("job_id", run.job.ID),
			slog.Any("error", err))
		return
	}

	s.notifier.JobFinished(failed)
}
