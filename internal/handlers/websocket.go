package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thereayou/chatcore/internal/middleware"
	"github.com/thereayou/chatcore/internal/transport"
)

// WebSocketHandler управляет websocket-соединениями push-транспорта
type WebSocketHandler struct {
	hub      *transport.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *transport.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// TODO: Проверить origin в prod
				return true
			},
		},
	}
}

// HandleWebSocket поднимает сессию. Клиент передаёт cursor —
// последний подтверждённый seq; пропущенное с него доигрывается
// перед живым потоком.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	cursor := int64(-1)
	if raw := c.Query("cursor"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 {
			cursor = parsed
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session := transport.NewSession(h.hub, conn, userID.(uuid.UUID), cursor)

	h.hub.Register(session)

	go session.WritePump()
	go session.ReadPump()
}
