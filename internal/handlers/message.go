package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/chat"
	"github.com/thereayou/chatcore/internal/handlers/dto"
	"github.com/thereayou/chatcore/internal/middleware"
)

type MessageHandler struct {
	lifecycle *chat.Lifecycle
}

func NewMessageHandler(lifecycle *chat.Lifecycle) *MessageHandler {
	return &MessageHandler{lifecycle: lifecycle}
}

// GetChatMessages история сообщений чата с пагинацией
func (h *MessageHandler) GetChatMessages(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var beforeID *uuid.UUID
	if before := c.Query("before"); before != "" {
		if id, err := uuid.Parse(before); err == nil {
			beforeID = &id
		}
	}

	messages, err := h.lifecycle.History(c.Request.Context(), chatID, userID, limit, beforeID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"has_more": len(messages) == limit,
	})
}

// SendMessage отправляет сообщение в чат
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.lifecycle.Send(c.Request.Context(), chatID, userID, req.Content)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chat.MessageToPayload(message))
}

// EditMessage правит сообщение; только автор
func (h *MessageHandler) EditMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req dto.EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.lifecycle.Edit(c.Request.Context(), messageID, userID, req.Content)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat.MessageToPayload(message))
}

// DeleteMessage мягко удаляет сообщение; только автор
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	if err := h.lifecycle.Delete(c.Request.Context(), messageID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "message deleted successfully"})
}

// React добавляет реакцию на сообщение
func (h *MessageHandler) React(c *gin.Context) {
	h.toggleReaction(c, true)
}

// Unreact снимает реакцию с сообщения
func (h *MessageHandler) Unreact(c *gin.Context) {
	h.toggleReaction(c, false)
}

func (h *MessageHandler) toggleReaction(c *gin.Context, add bool) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	var req dto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if add {
		err = h.lifecycle.React(c.Request.Context(), messageID, userID, req.Emoji)
	} else {
		err = h.lifecycle.Unreact(c.Request.Context(), messageID, userID, req.Emoji)
	}
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
