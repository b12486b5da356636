package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/attach"
	"github.com/thereayou/chatcore/internal/chat"
	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/fanout"
	"github.com/thereayou/chatcore/internal/handlers/dto"
	"github.com/thereayou/chatcore/internal/middleware"
	"github.com/thereayou/chatcore/internal/models"
)

type ChatHandler struct {
	db          *database.Database
	store       *chat.Store
	memberships *chat.Memberships
	fanout      *fanout.Fanout
}

func NewChatHandler(db *database.Database, store *chat.Store, memberships *chat.Memberships, f *fanout.Fanout) *ChatHandler {
	return &ChatHandler{db: db, store: store, memberships: memberships, fanout: f}
}

// CreateGroup создает групповой чат
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		memberIDs = append(memberIDs, id)
	}

	created, err := h.store.CreateGroup(c.Request.Context(), userID, req.Title, memberIDs)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	full, err := h.db.GetChat(created.ID.String())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, formatChatResponse(full))
}

// CreateDirect создает или возвращает личный чат с пользователем
func (h *ChatHandler) CreateDirect(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.DirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	peerID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if peerID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot create direct chat with yourself"})
		return
	}

	result, created, err := h.store.CreateDirect(c.Request.Context(), userID, peerID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	full, err := h.db.GetChat(result.ID.String())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, formatChatResponse(full))
}

// CreateAttached возвращает комнату внешней сущности, создавая её
// при первом обращении
func (h *ChatHandler) CreateAttached(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	var req dto.AttachedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ref := attach.Ref{Kind: req.Kind, ID: req.ID}
	result, created, err := h.store.GetOrCreateAttached(c.Request.Context(), userID, ref, req.Title)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	full, err := h.db.GetChat(result.ID.String())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, formatChatResponse(full))
}

// ListChats список чатов пользователя с непрочитанным и последним сообщением.
// Непрочитанное считается в рамках сессии: у каждой вкладки свои бейджи.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	sessionID := c.MustGet(middleware.SessionIDKey).(string)

	chats, err := h.db.GetUserChats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get chats"})
		return
	}

	unread, err := h.fanout.UnreadCounts(c.Request.Context(), userID, sessionID)
	if err != nil {
		unread = map[string]int64{}
	}

	result := make([]gin.H, len(chats))
	for i := range chats {
		item := formatChatResponse(&chats[i])
		item["unread_count"] = unread[chats[i].ID.String()]

		if last, err := h.db.LastMessage(chats[i].ID); err == nil {
			item["last_message"] = chat.MessageToPayload(last)
		}

		result[i] = item
	}

	c.JSON(http.StatusOK, gin.H{"chats": result})
}

// GetChat информация о чате для участника
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	full, err := h.db.GetChat(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	if !isMember(full, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this chat"})
		return
	}

	c.JSON(http.StatusOK, formatChatResponse(full))
}

// Rename переименовывает чат
func (h *ChatHandler) Rename(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.RenameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.Rename(c.Request.Context(), chatID, userID, req.Title); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chat renamed successfully"})
}

// Delete удаляет чат
func (h *ChatHandler) Delete(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), chatID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chat deleted successfully"})
}

// Join вступление в открытую комнату
func (h *ChatHandler) Join(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	if err := h.memberships.Join(c.Request.Context(), chatID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "joined chat successfully"})
}

// Leave выход из чата
func (h *ChatHandler) Leave(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	if err := h.memberships.Leave(c.Request.Context(), chatID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "left chat successfully"})
}

// AddMember приглашение участника (только админ)
func (h *ChatHandler) AddMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	var req dto.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	memberID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.memberships.AddMember(c.Request.Context(), chatID, memberID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member added successfully"})
}

// RemoveMember исключение участника (только админ)
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	memberID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.memberships.RemoveMember(c.Request.Context(), chatID, memberID, userID); err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed successfully"})
}

// MarkRead делает чат активным для текущей сессии и сбрасывает
// её непрочитанное по нему
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID := c.MustGet(middleware.UserIDKey).(uuid.UUID)
	sessionID := c.MustGet(middleware.SessionIDKey).(string)

	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	if err := h.fanout.MarkRead(c.Request.Context(), userID, sessionID, chatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark chat as read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chat marked as read"})
}

func isMember(chat *models.Chat, userID uuid.UUID) bool {
	for _, m := range chat.Memberships {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// formatChatResponse форматирует ответ для чата
func formatChatResponse(chat *models.Chat) gin.H {
	members := make([]gin.H, len(chat.Memberships))
	for i, m := range chat.Memberships {
		members[i] = gin.H{
			"id":         m.UserID,
			"username":   m.User.Username,
			"avatar_url": m.User.AvatarURL,
			"role":       m.Role,
			"joined_at":  m.JoinedAt,
		}
	}

	response := gin.H{
		"id":           chat.ID,
		"title":        chat.Title,
		"is_group":     chat.IsGroup,
		"is_room":      chat.IsRoom,
		"created_by":   chat.CreatedBy,
		"created_at":   chat.CreatedAt,
		"members":      members,
		"member_count": len(members),
	}

	if chat.AttachKind != "" {
		response["attachment"] = gin.H{"kind": chat.AttachKind, "id": chat.AttachID}
	}

	return response
}
