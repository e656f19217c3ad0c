package status

import (
	"github.com/gin-gonic/gin"

	"github.com/lenskeep/studio-api/internal/repository"
	"github.com/lenskeep/studio-api/pkg/errors"
	"github.com/lenskeep/studio-api/pkg/httputil"
)

// Handler exposes the delivery status catalog so clients can render status
// labels and ordering without hardcoding the codes.
type Handler struct {
	repo repository.DeliveryStatusRepository
}

func NewHandler(repo repository.DeliveryStatusRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/delivery-statuses", h.List)
}

func (h *Handler) List(c *gin.Context) {
	statuses, err := h.repo.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, statuses)
}
