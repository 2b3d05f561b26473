package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opshub/backend/internal/infrastructure/logger"
	"github.com/opshub/backend/internal/infrastructure/scheduler"
	"go.uber.org/zap"
)

// JobRunner exposes the registered automation jobs
type JobRunner interface {
	Jobs() []scheduler.JobInfo
	RunNow(ctx context.Context, id uuid.UUID) error
}

// SchedulerHandler shows job status and triggers runs
type SchedulerHandler struct {
	BaseHandler
	jobs JobRunner
}

// NewSchedulerHandler creates a new SchedulerHandler
func NewSchedulerHandler(jobs JobRunner) *SchedulerHandler {
	return &SchedulerHandler{jobs: jobs}
}

// RunJobResponse reports a triggered run. Error holds a handler failure,
// which does not fail the request.
type RunJobResponse struct {
	ID       uuid.UUID `json:"id"`
	Duration string    `json:"duration"`
	Error    string    `json:"error,omitempty"`
}

// ListJobs godoc
// @Summary      List scheduled jobs
// @Tags         scheduler
// @Produce      json
// @Success      200 {object} dto.Response{data=[]scheduler.JobInfo}
// @Router       /admin/scheduler/jobs [get]
func (h *SchedulerHandler) ListJobs(c *gin.Context) {
	h.Success(c, h.jobs.Jobs())
}

// RunJob godoc
// @Summary      Run a job now
// @Description  Runs the job synchronously. A run already in progress finishes first.
// @Tags         scheduler
// @Produce      json
// @Param        id path string true "Job ID"
// @Success      200 {object} dto.Response{data=RunJobResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /admin/scheduler/jobs/{id}/run [post]
func (h *SchedulerHandler) RunJob(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.BadRequest(c, "Invalid job ID")
		return
	}
	ctx := c.Request.Context()

	start := time.Now()
	err := h.jobs.RunNow(ctx, id)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		h.NotFound(c, "Job not found")
		return
	}

	resp := RunJobResponse{ID: id, Duration: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		logger.FromContext(ctx).Warn("Manual job run failed", zap.String("job_id", id.String()), zap.Error(err))
		resp.Error = err.Error()
	}
	h.Success(c, resp)
}
