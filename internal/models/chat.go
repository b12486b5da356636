package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role роль участника в чате
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Chat переписка: личная (два участника), групповая или открытая комната.
// Комната может быть привязана к внешней сущности (attach_kind, attach_id),
// пара уникальна — у сущности не больше одного чата. У личного чата
// заполнен direct_key — нормализованная пара id участников; уникальный
// индекс гарантирует один личный чат на пару даже под гонкой созданий.
type Chat struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title      string
	IsGroup    bool      `gorm:"not null;default:false"`
	IsRoom     bool      `gorm:"not null;default:false"`
	DirectKey  string    `gorm:"index:idx_chats_direct_pair,unique,where:direct_key <> ''"`
	AttachKind string    `gorm:"index:idx_chats_attachment,unique,where:attach_kind <> ''"`
	AttachID   string    `gorm:"index:idx_chats_attachment,unique,where:attach_kind <> ''"`
	CreatedBy  uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time

	// Связи
	Memberships []Membership `gorm:"foreignKey:ChatID"`
	Messages    []Message    `gorm:"foreignKey:ChatID"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Membership участие пользователя в чате. Строка не удаляется при выходе:
// left_seq запоминает событие, после которого участник перестал получать
// обновления. Так курсорная выборка отдаёт ему его собственное удаление
// и ничего после.
type Membership struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_pair"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_pair"`
	Role     Role      `gorm:"type:varchar(16);not null;default:'member'"`
	JoinedAt time.Time
	LeftSeq  *int64

	// Связи
	User User `gorm:"foreignKey:UserID"`
}

func (m *Membership) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Membership) Active() bool {
	return m.LeftSeq == nil
}
