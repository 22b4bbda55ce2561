package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/castforge/podcast-be/internal/domain"
)

// pipelineRun tracks one job's trip through the pipeline stages. Progress
// checkpoints are fixed percentages written at stage boundaries; they only
// ever move forward.
type pipelineRun struct {
	scheduler *Scheduler
	job       domain.Job

	// episodeID is set once the draft episode row exists, so a later
	// failure can mark that row instead of leaving it dangling.
	episodeID string
}

// execute drives the job through every stage in order and returns the
// completion payload, or a *StageError naming the stage that stopped it.
func (r *pipelineRun) execute(ctx context.Context) (domain.Result, error) {
	stages := r.scheduler.stages
	input := r.job.Input

	r.advance(5, "Preparing")

	// The draft row is the durable trace of this run. It exists before any
	// generation work, so a failure at any later stage still has a record
	// to mark as failed.
	episodeID := r.scheduler.newEpisodeID()
	draft := domain.EpisodeDraft{
		EpisodeID:   episodeID,
		JobID:       r.job.ID,
		ContentID:   input.ContentID,
		SubmitterID: input.SubmitterID,
		Format:      input.Format,
	}
	if err := stages.Episodes.CreateDraft(ctx, draft); err != nil {
		return domain.Result{}, &StageError{Stage: StageInitEpisode, Err: err}
	}
	r.episodeID = episodeID
	r.advance(10, "Initializing episode record")

	turns, err := stages.Script.GenerateScript(ctx, input.Content, input.Format)
	if err != nil {
		return domain.Result{}, &StageError{Stage: StageGenerateScript, Err: err}
	}
	if len(turns) == 0 {
		return domain.Result{}, &StageError{Stage: StageGenerateScript, Err: errors.New("script has no dialogue turns")}
	}
	r.advance(25, "Script generated")

	r.advance(30, "Synthesizing speech")
	segments := make([]domain.AudioSegment, 0, len(turns))
	for i, turn := range turns {
		segment, err := stages.Speech.SynthesizeTurn(ctx, turn)
		if err != nil {
			return domain.Result{}, &StageError{
				Stage: StageSynthesizeAudio,
				Err:   fmt.Errorf("turn %d of %d: %w", i+1, len(turns), err),
			}
		}
		segments = append(segments, segment)
	}
	r.advance(60, "Speech synthesis complete")

	r.advance(65, "Assembling audio")
	combined, err := stages.Assembler.AssembleAudio(ctx, segments)
	if err != nil {
		return domain.Result{}, &StageError{Stage: StageAssembleAudio, Err: err}
	}
	r.advance(75, "Audio assembled")

	r.advance(80, "Publishing audio")
	audioURL, err := stages.Publisher.PublishArtifact(ctx, combined.Data, artifactName(r.job))
	if err != nil {
		return domain.Result{}, &StageError{Stage: StagePublishArtifact, Err: err}
	}
	r.advance(90, "Audio published")

	r.advance(95, "Saving episode")
	if err := stages.Episodes.Finish(ctx, episodeID, audioURL, combined.Duration, turns); err != nil {
		return domain.Result{}, &StageError{Stage: StagePersistResult, Err: err}
	}

	return domain.Result{
		EpisodeID:  episodeID,
		AudioURL:   audioURL,
		Duration:   combined.Duration,
		Transcript: turns,
	}, nil
}

// advance writes a progress checkpoint and step label to the job record.
// The scheduler is the record's only writer while it processes, so a
// rejected update means the record was swept mid-run; the pipeline keeps
// going and the terminal transition surfaces the missing record.
func (r *pipelineRun) advance(progress int, step string) {
	if _, err := r.scheduler.store.ApplyUpdate(r.job.ID, domain.Update{
		Progress:    &progress,
		CurrentStep: &step,
	}); err != nil {
		r.scheduler.logger.Warn("Failed to update job progress",
			slog.String("job_id", r.job.ID),
			slog.Int("progress", progress),
			slog.String("step", step),
			slog.Any("error", err),
		)
		return
	}

	r.scheduler.logger.Debug("Job progress updated",
		slog.String("job_id", r.job.ID),
		slog.Int("progress", progress),
		slog.String("step", step),
	)
}

// markEpisodeFailed flags the draft episode row after a stage failure.
// Best-effort: the job record already carries the failure reason.
func (r *pipelineRun) markEpisodeFailed(ctx context.Context, reason string) {
	if r.episodeID == "" {
		return
	}

	if err := r.scheduler.stages.Episodes.MarkFailed(ctx, r.episodeID, reason); err != nil {
		r.scheduler.logger.Warn("Failed to mark episode record as failed",
			slog.String("job_id", r.job.ID),
			slog.String("episode_id", r.episodeID),
			slog.Any("error", err),
		)
	}
}

// artifactName builds the storage name hint for a job's published audio.
func artifactName(job domain.Job) string {
	return job.Input.ContentID + "/" + job.ID
}
