package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message сообщение в чате. Удаление мягкое: deleted_at ставит надгробие,
// строка остаётся пока существует чат.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
	EditedAt  *time.Time
	DeletedAt *time.Time

	// Связи
	Sender    User       `gorm:"foreignKey:SenderID"`
	Reactions []Reaction `gorm:"foreignKey:MessageID"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}
