package events

import (
	"time"

	"github.com/google/uuid"
)

// ChatPayload данные события чата
type ChatPayload struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	IsGroup bool      `json:"is_group"`
	IsRoom  bool      `json:"is_room"`
}

// MemberPayload данные события участника. MemberCount — количество
// участников после изменения, фронтенд показывает его в шапке чата.
type MemberPayload struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Role        string    `json:"role,omitempty"`
	MemberCount int64     `json:"member_count"`
}

// SenderInfo краткая информация об авторе сообщения
type SenderInfo struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// MessagePayload данные события сообщения. Для удалённого сообщения
// content пустой, deleted=true — клиент рисует надгробие.
type MessagePayload struct {
	ID        uuid.UUID       `json:"id"`
	ChatID    uuid.UUID       `json:"chat_id"`
	SenderID  uuid.UUID       `json:"sender_id"`
	Content   string          `json:"content,omitempty"`
	Deleted   bool            `json:"deleted,omitempty"`
	Edited    bool            `json:"edited,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	EditedAt  *time.Time      `json:"edited_at,omitempty"`
	Sender    *SenderInfo     `json:"sender,omitempty"`
	Reactions []ReactionGroup `json:"reactions,omitempty"`
}

// ReactionGroup сгруппированный вид реакций одного эмодзи на сообщение
type ReactionGroup struct {
	Emoji string      `json:"emoji"`
	Count int         `json:"count"`
	Users []uuid.UUID `json:"users"`
}

// ReactionPayload данные события реакции: полный снимок групп,
// чтобы клиенту не требовалось локальное вычитание
type ReactionPayload struct {
	MessageID uuid.UUID       `json:"message_id"`
	ChatID    uuid.UUID       `json:"chat_id"`
	Groups    []ReactionGroup `json:"groups"`
}
