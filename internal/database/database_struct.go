package database

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thereayou/chatcore/internal/models"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// Transaction выполняет fn в транзакции, отдавая репозиторий поверх tx
func (d *Database) Transaction(fn func(tx *Database) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx})
	})
}

// LockChat берёт блокировку строки чата (SELECT ... FOR UPDATE).
// Все мутации одного чата сериализуются через неё, поэтому инварианты
// (>=1 админ, уникальность участия) выдерживают любые чередования.
func (d *Database) LockChat(id string) (*models.Chat, error) {
	var chat models.Chat
	err := d.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&chat, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// LockMessage берёт блокировку строки сообщения для edit/delete/react
func (d *Database) LockMessage(id string) (*models.Message, error) {
	var message models.Message
	err := d.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}
