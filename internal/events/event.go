package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type определяет типы событий
type Type string

const (
	// События чатов
	TypeChatCreated Type = "chat_created"
	TypeChatRenamed Type = "chat_renamed"
	TypeChatDeleted Type = "chat_deleted"

	// События участников
	TypeMemberJoined   Type = "member_joined"
	TypeMemberLeft     Type = "member_left"
	TypeMemberPromoted Type = "member_promoted"

	// События сообщений
	TypeMessageSent    Type = "message_sent"
	TypeMessageEdited  Type = "message_edited"
	TypeMessageDeleted Type = "message_deleted"

	// События реакций
	TypeReactionAdded   Type = "reaction_added"
	TypeReactionRemoved Type = "reaction_removed"
)

// Event единица доставки для обоих транспортов. Seq — позиция в журнале,
// клиент хранит её как курсор и отбрасывает дубликаты при переподключении.
// SubjectID заполнен у событий участников: это пользователь, которого
// событие касается (вышел, удалён, повышен).
type Event struct {
	Seq       int64           `json:"seq"`
	Type      Type            `json:"type"`
	ChatID    uuid.UUID       `json:"chat_id"`
	ActorID   uuid.UUID       `json:"actor_id"`
	SubjectID *uuid.UUID      `json:"subject_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
