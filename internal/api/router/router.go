package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/castforge/podcast-be/internal/api/handler"
	"github.com/castforge/podcast-be/internal/api/ratelimit"
)

// SetupRouter configures and returns the Gin router with all routes.
// A nil limiter leaves submissions unthrottled.
func SetupRouter(deps *handler.Dependencies, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint. The catalog probe is informational; job
	// submission and polling work without the database.
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": "podcast-service",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if deps.DB != nil {
			if err := deps.DB.HealthCheck(c.Request.Context()); err != nil {
				body["status"] = "degraded"
				body["database"] = "unavailable"
			} else {
				body["database"] = "ok"
			}
		}
		c.JSON(http.StatusOK, body)
	})

	jobHandler := handler.NewJobHandler(deps)

	// API v1 routes. Stats sits beside /jobs because gin cannot register
	// a static segment under the :job_id wildcard.
	v1 := r.Group("/api/v1")
	{
		v1.GET("/stats", jobHandler.Stats)

		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Submit a generation job
			if limiter != nil {
				jobs.POST("", RateLimitMiddleware(limiter, deps.Logger), jobHandler.SubmitJob)
			} else {
				jobs.POST("", jobHandler.SubmitJob)
			}

			// GET /api/v1/jobs - List a submitter's jobs
			jobs.GET("", jobHandler.ListJobs)

			// GET /api/v1/jobs/:job_id - Poll job status
			jobs.GET("/:job_id", jobHandler.GetJob)
		}
	}

	return r
}
