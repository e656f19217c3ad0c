package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lenskeep/studio-api/internal/middleware"
	"github.com/lenskeep/studio-api/internal/model"
	notificationSvc "github.com/lenskeep/studio-api/internal/service/notification"
	"github.com/lenskeep/studio-api/pkg/httputil"
)

type fakeService struct {
	notifications []*model.Notification
	markedRead    []uuid.UUID
	markedAll     bool
	deleted       []uuid.UUID
	err           error
}

func (s *fakeService) Dispatch(context.Context, *notificationSvc.DispatchInput) ([]*model.Notification, error) {
	return nil, nil
}

func (s *fakeService) List(_ context.Context, userID, tenantID uuid.UUID, unreadOnly bool, limit, offset int) ([]*model.Notification, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var out []*model.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && n.TenantID == tenantID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *fakeService) MarkRead(_ context.Context, id, _ uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.markedRead = append(s.markedRead, id)
	return nil
}

func (s *fakeService) MarkAllRead(context.Context, uuid.UUID, uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.markedAll = true
	return nil
}

func (s *fakeService) Delete(_ context.Context, id, _ uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeService) PurgeReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func setupRouter(svc *fakeService, userID, tenantID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/api/v1")
	group.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.ContextUserID, userID.String())
			c.Set(middleware.ContextTenantID, tenantID.String())
		}
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(group)
	return engine
}

func notificationFor(userID, tenantID uuid.UUID, read bool) *model.Notification {
	return &model.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: tenantID,
		Type:     model.NotificationTypeShootStarted,
		Title:    "Shoot started",
		Message:  "m",
		Read:     read,
	}
}

func TestListNotifications(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()
	svc := &fakeService{notifications: []*model.Notification{
		notificationFor(userID, tenantID, false),
		notificationFor(userID, tenantID, true),
		notificationFor(uuid.New(), tenantID, false), // someone else's
	}}
	router := setupRouter(svc, userID, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var page httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, 1, page.Pagination.Page)
}

func TestListNotificationsUnreadFilter(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()
	svc := &fakeService{notifications: []*model.Notification{
		notificationFor(userID, tenantID, false),
		notificationFor(userID, tenantID, true),
	}}
	router := setupRouter(svc, userID, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	raw, _ := json.Marshal(resp.Data)
	var page httputil.PaginatedResponse
	require.NoError(t, json.Unmarshal(raw, &page))
	assert.Equal(t, 1, page.Pagination.Total)
}

func TestListNotificationsRequiresIdentity(t *testing.T) {
	router := setupRouter(&fakeService{}, uuid.Nil, uuid.Nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListNotificationsServiceError(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()
	svc := &fakeService{err: errors.New("db down")}
	router := setupRouter(svc, userID, tenantID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMarkRead(t *testing.T) {
	userID, tenantID := uuid.New(), uuid.New()
	svc := &fakeService{}
	router := setupRouter(svc, userID, tenantID)

	id := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/"+id.String()+"/read", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.markedRead, 1)
	assert.Equal(t, id, svc.markedRead[0])
}

func TestMarkReadRejectsBadID(t *testing.T) {
	router := setupRouter(&fakeService{}, uuid.New(), uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/not-a-uuid/read", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkAllRead(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc, uuid.New(), uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read-all", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.markedAll)
}

func TestDeleteNotification(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc, uuid.New(), uuid.New())

	id := uuid.New()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/"+id.String(), nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.deleted, 1)
	assert.Equal(t, id, svc.deleted[0])
}

func TestDeleteNotificationNotFound(t *testing.T) {
	svc := &fakeService{err: errors.New("no rows")}
	router := setupRouter(svc, uuid.New(), uuid.New())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/"+uuid.NewString(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
