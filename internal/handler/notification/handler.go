package notification

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lenskeep/studio-api/internal/middleware"
	notificationSvc "github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/pkg/errors"
	"github.com/lenskeep/studio-api/pkg/httputil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	svc notificationSvc.Service
}

func NewHandler(svc notificationSvc.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.POST("/read-all", h.MarkAllRead)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID, tenantID, err := identity(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	notifications, total, err := h.svc.List(c.Request.Context(), userID, tenantID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}

	httputil.RespondWithPagination(c, notifications, page, pageSize, total)
}

func (h *Handler) MarkRead(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.svc.MarkRead(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, errors.NotFound("notification", err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, tenantID, err := identity(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.svc.MarkAllRead(c.Request.Context(), userID, tenantID); err != nil {
		httputil.RespondWithError(c, errors.Internal(err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"status": "ok"})
}

func (h *Handler) Delete(c *gin.Context) {
	userID, _, err := identity(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, errors.NotFound("notification", err))
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"id": id})
}

func identity(c *gin.Context) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(c.GetString(middleware.ContextUserID))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.Unauthorized(err)
	}
	tenantID, err := uuid.Parse(c.GetString(middleware.ContextTenantID))
	if err != nil {
		return uuid.Nil, uuid.Nil, errors.Unauthorized(err)
	}
	return userID, tenantID, nil
}
