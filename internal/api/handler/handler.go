package handler

import (
	"log/slog"

	"github.com/castforge/podcast-be/internal/jobstore"
	"github.com/castforge/podcast-be/internal/queue"
	"github.com/castforge/podcast-be/shared/postgresql"
)

// Dependencies holds all dependencies needed by handlers. DB is optional;
// when present the health endpoint probes the episode catalog through it.
type Dependencies struct {
	Logger *slog.Logger
	Store  *jobstore.Store
	Queue  *queue.Queue
	DB     *postgresql.Client
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	store  *jobstore.Store
	queue  *queue.Queue
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		store:  deps.Store,
		queue:  deps.Queue,
	}
}
