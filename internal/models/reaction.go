package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reaction эмодзи-реакция. Тройка (message, user, emoji) уникальна.
type Reaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_triple"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reactions_triple"`
	Emoji     string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_reactions_triple"`
	CreatedAt time.Time
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
