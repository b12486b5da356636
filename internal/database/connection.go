package database

import (
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/models"
)

func (d *Database) Connect(dsn string) error {
	if dsn == "" {
		return errors.New("DATABASE_URL is not set")
	}

	// TranslateError нужен, чтобы нарушения уникальных индексов приходили
	// как gorm.ErrDuplicatedKey: на этом строится get-or-create под гонкой
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return err
	}

	if err := Migrate(db); err != nil {
		return err
	}

	d.db = db

	return nil
}

// Migrate создает схему; вынесено отдельно, чтобы тесты могли
// поднимать хранилище на другом драйвере
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.Membership{},
		&models.Message{},
		&models.Reaction{},
		&models.ChatEvent{},
	)
}
