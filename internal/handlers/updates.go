package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/middleware"
	"github.com/thereayou/chatcore/internal/transport"
)

// UpdatesHandler polling-транспорт: выдача дельт с курсора
type UpdatesHandler struct {
	poller       *transport.Poller
	pollInterval time.Duration
}

func NewUpdatesHandler(poller *transport.Poller, pollInterval time.Duration) *UpdatesHandler {
	return &UpdatesHandler{poller: poller, pollInterval: pollInterval}
}

// GetUpdates события после курсора клиента. Запрос без серверного
// состояния: следующий курсор возвращается в ответе.
func (h *UpdatesHandler) GetUpdates(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var cursor int64
	if raw := c.Query("cursor"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		cursor = parsed
	}

	evs, next, err := h.poller.FetchSince(userID, cursor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch updates"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":           evs,
		"next_cursor":      next,
		"has_more":         len(evs) == h.poller.PageSize(),
		"poll_interval_ms": h.pollInterval.Milliseconds(),
	})
}
