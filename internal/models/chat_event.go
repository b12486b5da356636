package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatEvent запись журнала событий. Seq монотонный и служит курсором
// для обоих транспортов; вставляется в той же транзакции, что и мутация.
type ChatEvent struct {
	Seq       int64      `gorm:"primaryKey;autoIncrement"`
	Type      string     `gorm:"not null"`
	ChatID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID  `gorm:"type:uuid"`
	SubjectID *uuid.UUID `gorm:"type:uuid"`
	Payload   []byte
	CreatedAt time.Time
}
