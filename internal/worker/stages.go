package worker

import (
	"context"
	"time"

	"github.com/castforge/podcast-be/internal/domain"
)

// Pipeline stage names, used to prefix failure reasons so a poller can
// tell where a job stopped.
const (
	StageInitEpisode     = "init_episode"
	StageGenerateScript  = "generate_script"
	StageSynthesizeAudio = "synthesize_audio"
	StageAssembleAudio   = "assemble_audio"
	StagePublishArtifact = "publish_artifact"
	StagePersistResult   = "persist_result"
)

// ScriptGenerator turns raw content into an ordered dialogue script.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, content string, format domain.Format) ([]domain.DialogueTurn, error)
}

// SpeechSynthesizer renders one dialogue turn as audio with a measured duration.
type SpeechSynthesizer interface {
	SynthesizeTurn(ctx context.Context, turn domain.DialogueTurn) (domain.AudioSegment, error)
}

// AudioAssembler combines ordered audio segments into a single episode track.
type AudioAssembler interface {
	AssembleAudio(ctx context.Context, segments []domain.AudioSegment) (domain.AudioSegment, error)
}

// ArtifactPublisher uploads the finished audio and returns a durable,
// publicly resolvable URL. The name hint identifies the artifact within
// the storage backend.
type ArtifactPublisher interface {
	PublishArtifact(ctx context.Context, data []byte, name string) (string, error)
}

// EpisodeStore persists durable episode metadata. A draft row is created
// before generation starts; it is finished on success and marked failed
// otherwise, never deleted.
type EpisodeStore interface {
	CreateDraft(ctx context.Context, draft domain.EpisodeDraft) error
	Finish(ctx context.Context, episodeID, audioURL string, duration time.Duration, transcript []domain.DialogueTurn) error
	MarkFailed(ctx context.Context, episodeID, reason string) error
}

// Stages bundles the external collaborators the scheduler drives a job
// through, in fixed order.
type Stages struct {
	Script    ScriptGenerator
	Speech    SpeechSynthesizer
	Assembler AudioAssembler
	Publisher ArtifactPublisher
	Episodes  EpisodeStore
}

// Notifier receives each job exactly once, after its terminal transition.
// *notify.Dispatcher satisfies it.
type Notifier interface {
	JobFinished(job domain.Job)
}

// StageError marks which pipeline stage a job failed in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
