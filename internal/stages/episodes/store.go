// Package episodes persists durable episode metadata in PostgreSQL. Job
// records are in-memory and swept away; the episodes table is what
// survives a restart.
package episodes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/castforge/podcast-be/internal/domain"
	"github.com/castforge/podcast-be/shared/postgresql"
)

// ErrEpisodeNotFound is returned when an update targets an episode row
// that does not exist.
var ErrEpisodeNotFound = errors.New("episode not found")

// Episode row statuses. A draft row starts as generating and is updated
// to completed or failed, never deleted.
const (
	statusGenerating = "generating"
	statusCompleted  = "completed"
	statusFailed     = "failed"
)

// Store reads and writes the episodes table. It implements the worker's
// EpisodeStore contract.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore creates an episode store on the shared PostgreSQL client.
func NewStore(pg *postgresql.Client) *Store {
	return &Store{
		db:  pg.GetDB(),
		now: time.Now,
	}
}

// CreateDraft inserts the draft row for a starting pipeline run.
func (s *Store) CreateDraft(ctx context.Context, draft domain.EpisodeDraft) error {
	query := `
		INSERT INTO episodes (
			episode_id, job_id, content_id, submitter_id,
			format, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	now := s.now()
	_, err := s.db.ExecContext(
		ctx,
		query,
		draft.EpisodeID,
		draft.JobID,
		draft.ContentID,
		draft.SubmitterID,
		string(draft.Format),
		statusGenerating,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create episode draft: %w", err)
	}

	return nil
}

// Finish marks an episode completed and stores the audio URL, duration
// and transcript.
func (s *Store) Finish(ctx context.Context, episodeID, audioURL string, duration time.Duration, transcript []domain.DialogueTurn) error {
	transcriptJSON, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	query := `
		UPDATE episodes
		SET status = $2, audio_url = $3, duration_seconds = $4,
			transcript = $5, completed_at = $6, updated_at = $6
		WHERE episode_id = $1
	`

	res, err := s.db.ExecContext(
		ctx,
		query,
		episodeID,
		statusCompleted,
		audioURL,
		int64(duration.Round(time.Second)/time.Second),
		transcriptJSON,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to finish episode: %w", err)
	}

	return s.requireRow(res, episodeID)
}

// MarkFailed records the failure reason on an episode row. The row is
// kept as the durable trace of the attempt.
func (s *Store) MarkFailed(ctx context.Context, episodeID, reason string) error {
	query := `
		UPDATE episodes
		SET status = $2, error_message = $3, updated_at = $4
		WHERE episode_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, episodeID, statusFailed, reason, s.now())
	if err != nil {
		return fmt.Errorf("failed to mark episode as failed: %w", err)
	}

	return s.requireRow(res, episodeID)
}

func (s *Store) requireRow(res sql.Result, episodeID string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("episode %s: %w", episodeID, ErrEpisodeNotFound)
	}
	return nil
}
