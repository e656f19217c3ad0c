package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lenskeep/studio-api/pkg/auth"
	"github.com/lenskeep/studio-api/pkg/logger"
	"github.com/lenskeep/studio-api/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub        *realtime.Hub
	jwtService auth.JWTService
	logger     *logger.Logger
}

func NewHandler(hub *realtime.Hub, jwtService auth.JWTService, logger *logger.Logger) *Handler {
	return &Handler{
		hub:        hub,
		jwtService: jwtService,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws", h.Connect)
}

// Connect upgrades an authenticated request to a websocket session. Browser
// websocket clients cannot set headers, so the token travels as a query
// parameter; it is validated before any subscription happens.
func (h *Handler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(err, "websocket upgrade failed")
		return
	}

	client := realtime.NewClient(userID, conn)
	h.hub.Register(client)
	h.logger.Debug("websocket session opened", "user_id", userID.String())

	go client.WritePump()
	go client.ReadPump(h.hub)
}
