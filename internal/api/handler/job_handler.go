package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/castforge/podcast-be/internal/api/dto"
	"github.com/castforge/podcast-be/internal/domain"
)

// SubmitJob handles POST /api/v1/jobs.
// Registers a generation job and wakes the scheduler; processing happens
// asynchronously, so the reply is an acknowledgement, not a result.
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var req dto.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	format := domain.Format(req.Format)
	if !format.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "format must be one of: short, standard, long",
		})
		return
	}

	job := h.store.Create(domain.Submission{
		ContentID:   req.ContentID,
		Content:     req.Content,
		SubmitterID: req.SubmitterID,
		Format:      format,
	})

	if !h.queue.Enqueue(job.ID) {
		// The record is already queued in the store; the scheduler's
		// rescan picks it up.
		h.logger.Warn("Wake queue full, job waits for rescan",
			slog.String("job_id", job.ID))
	}

	h.logger.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("content_id", req.ContentID),
		slog.String("submitter_id", req.SubmitterID),
		slog.String("format", req.Format),
	)

	c.JSON(http.StatusAccepted, dto.SubmitJobResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}

// GetJob handles GET /api/v1/jobs/:job_id.
// Returns the full projection of one job, poller-facing.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	job, err := h.store.Get(jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs?submitter_id=...
// Lists one submitter's jobs, newest first.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}
	if req.SubmitterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "submitter_id is required",
		})
		return
	}

	jobs := h.store.ListBySubmitter(req.SubmitterID)

	response := dto.ListJobsResponse{
		Jobs:  make([]dto.JobDTO, len(jobs)),
		Count: len(jobs),
	}
	for i, job := range jobs {
		response.Jobs[i] = dto.NewJobDTO(job)
	}

	c.JSON(http.StatusOK, response)
}

// Stats handles GET /api/v1/stats.
// Returns job counts by lifecycle state.
func (h *JobHandler) Stats(c *gin.Context) {
	counts := h.store.CountByStatus()

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Queued:     counts[domain.StatusQueued],
		Processing: counts[domain.StatusProcessing],
		Completed:  counts[domain.StatusCompleted],
		Failed:     counts[domain.StatusFailed],
		Total:      total,
	})
}
