package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castforge/podcast-be/internal/api/dto"
	"github.com/castforge/podcast-be/internal/api/handler"
	"github.com/castforge/podcast-be/internal/api/ratelimit"
	"github.com/castforge/podcast-be/internal/domain"
	"github.com/castforge/podcast-be/internal/jobstore"
	"github.com/castforge/podcast-be/internal/queue"
	"github.com/castforge/podcast-be/internal/worker"
	"github.com/castforge/podcast-be/shared/logger"
)

type routerEnv struct {
	engine *gin.Engine
	store  *jobstore.Store
	wake   *queue.Queue
}

func newRouterEnv(t *testing.T, limiter *ratelimit.Limiter) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var n int
	store := jobstore.New(jobstore.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("job-%03d", n)
	}))
	wake := queue.New(8)

	engine := SetupRouter(&handler.Dependencies{
		Logger: logger.NewDefault().Logger,
		Store:  store,
		Queue:  wake,
	}, limiter)

	return &routerEnv{engine: engine, store: store, wake: wake}
}

func (e *routerEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

const submission = `{
	"content_id": "content-1",
	"content": "an article about tidal power",
	"submitter_id": "user-1",
	"format": "short"
}`

func TestHealthEndpoint(t *testing.T) {
	env := newRouterEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "podcast-service", body["service"])
	assert.NotEmpty(t, body["time"])

	// No database wired means no catalog probe in the report.
	assert.NotContains(t, body, "database")
}

func TestCORSPreflight(t *testing.T) {
	env := newRouterEnv(t, nil)

	w := env.do(t, http.MethodOptions, "/api/v1/jobs", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubmitRateLimited(t *testing.T) {
	env := newRouterEnv(t, ratelimit.New(2, nil))

	first := env.do(t, http.MethodPost, "/api/v1/jobs", submission)
	require.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := env.do(t, http.MethodPost, "/api/v1/jobs", submission)
	require.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := env.do(t, http.MethodPost, "/api/v1/jobs", submission)
	require.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "0", third.Header().Get("X-RateLimit-Remaining"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(third.Body.Bytes(), &body))
	assert.Equal(t, "rate limit exceeded", body["error"])

	// The throttled submission never created a record.
	assert.Len(t, env.store.ListAll(), 2)

	// Reads stay unthrottled.
	list := env.do(t, http.MethodGet, "/api/v1/jobs?submitter_id=user-1", "")
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestSubmitWithoutLimiter(t *testing.T) {
	env := newRouterEnv(t, nil)

	for i := 0; i < 5; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/jobs", submission)
		require.Equal(t, http.StatusAccepted, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

// stubStages satisfies every pipeline stage with deterministic canned
// behavior so the lifecycle test exercises the real scheduler and store.
type stubStages struct{}

func (stubStages) GenerateScript(ctx context.Context, content string, format domain.Format) ([]domain.DialogueTurn, error) {
	return []domain.DialogueTurn{
		{Speaker: "HOST", Text: "Today: " + content},
		{Speaker: "GUEST", Text: "Glad to be here."},
	}, nil
}

func (stubStages) SynthesizeTurn(ctx context.Context, turn domain.DialogueTurn) (domain.AudioSegment, error) {
	return domain.AudioSegment{Data: []byte(turn.Text), Duration: 3 * time.Second}, nil
}

func (stubStages) AssembleAudio(ctx context.Context, segments []domain.AudioSegment) (domain.AudioSegment, error) {
	var merged domain.AudioSegment
	for _, segment := range segments {
		merged.Data = append(merged.Data, segment.Data...)
		merged.Duration += segment.Duration
	}
	return merged, nil
}

func (stubStages) PublishArtifact(ctx context.Context, data []byte, name string) (string, error) {
	return "https://cdn.example.com/" + name + ".mp3", nil
}

func (stubStages) CreateDraft(ctx context.Context, draft domain.EpisodeDraft) error {
	return nil
}

func (stubStages) Finish(ctx context.Context, episodeID, audioURL string, duration time.Duration, transcript []domain.DialogueTurn) error {
	return nil
}

func (stubStages) MarkFailed(ctx context.Context, episodeID, reason string) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) JobFinished(domain.Job) {}

func TestSubmitThenPollUntilCompleted(t *testing.T) {
	env := newRouterEnv(t, nil)

	scheduler := worker.NewScheduler(&worker.Config{
		Logger: logger.NewDefault(),
		Store:  env.store,
		Queue:  env.wake,
		Stages: worker.Stages{
			Script:    stubStages{},
			Speech:    stubStages{},
			Assembler: stubStages{},
			Publisher: stubStages{},
			Episodes:  stubStages{},
		},
		Notifier:       noopNotifier{},
		RescanInterval: time.Hour,
		EpisodeIDGen:   func() string { return "ep-e2e" },
	})
	scheduler.Start(context.Background())
	defer scheduler.Stop()

	w := env.do(t, http.MethodPost, "/api/v1/jobs", submission)
	require.Equal(t, http.StatusAccepted, w.Code)

	var accepted dto.SubmitJobResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.Equal(t, "job-001", accepted.JobID)

	var final dto.JobDTO
	require.Eventually(t, func() bool {
		poll := env.do(t, http.MethodGet, "/api/v1/jobs/"+accepted.JobID, "")
		if poll.Code != http.StatusOK {
			return false
		}
		if err := json.Unmarshal(poll.Body.Bytes(), &final); err != nil {
			return false
		}
		return final.Status == string(domain.StatusCompleted)
	}, 2*time.Second, 10*time.Millisecond, "job never completed")

	assert.Equal(t, 100, final.Progress)
	assert.NotEmpty(t, final.StartedAt)
	assert.NotEmpty(t, final.CompletedAt)
	assert.Empty(t, final.FailureReason)

	require.NotNil(t, final.Result)
	assert.Equal(t, "ep-e2e", final.Result.EpisodeID)
	assert.Equal(t, "https://cdn.example.com/content-1/job-001.mp3", final.Result.AudioURL)
	assert.Equal(t, float64(6), final.Result.DurationSeconds)
	require.Len(t, final.Result.Transcript, 2)
	assert.Equal(t, "HOST", final.Result.Transcript[0].Speaker)
	assert.Equal(t, "Today: an article about tidal power", final.Result.Transcript[0].Text)
}
