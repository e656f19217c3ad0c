package ops

import (
	"github.com/gin-gonic/gin"

	"github.com/lenskeep/studio-api/internal/scheduler"
	"github.com/lenskeep/studio-api/pkg/errors"
	"github.com/lenskeep/studio-api/pkg/httputil"
)

// Handler exposes manual, synchronous runs of the periodic jobs for
// operational testing.
type Handler struct {
	scheduler *scheduler.Scheduler
}

func NewHandler(scheduler *scheduler.Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ops := r.Group("/ops")
	{
		ops.POST("/lifecycle/run", h.RunLifecycle)
		ops.POST("/duedates/run", h.RunDueDates)
	}
}

func (h *Handler) RunLifecycle(c *gin.Context) {
	if err := h.scheduler.RunLifecycleNow(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"status": "completed"})
}

func (h *Handler) RunDueDates(c *gin.Context) {
	if err := h.scheduler.RunDueDateNow(c.Request.Context()); err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"status": "completed"})
}
