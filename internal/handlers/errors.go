package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/attach"
	"github.com/thereayou/chatcore/internal/chat"
)

// abortWithServiceError переводит доменные ошибки в HTTP-статусы
func abortWithServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this chat"})
	case errors.Is(err, chat.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	case errors.Is(err, chat.ErrAlreadyMember):
		c.JSON(http.StatusConflict, gin.H{"error": "already a member of this chat"})
	case errors.Is(err, chat.ErrMessageDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "message is deleted"})
	case errors.Is(err, chat.ErrAttachmentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "entity already has a chat"})
	case errors.Is(err, chat.ErrRoomNotJoinable):
		c.JSON(http.StatusBadRequest, gin.H{"error": "chat is not a joinable room"})
	case errors.Is(err, chat.ErrNotGroupChat):
		c.JSON(http.StatusBadRequest, gin.H{"error": "members can be added only to group chats"})
	case errors.Is(err, attach.ErrUnknownKind), errors.Is(err, attach.ErrEmptyRef):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
