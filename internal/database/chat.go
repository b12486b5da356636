package database

import (
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/models"
)

func (d *Database) CreateChat(chat *models.Chat) error {
	return d.db.Create(chat).Error
}

func (d *Database) GetChat(id string) (*models.Chat, error) {
	var chat models.Chat
	err := d.db.
		Preload("Memberships", "left_seq IS NULL").
		Preload("Memberships.User").
		First(&chat, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindDirectChat ищет личный чат пары по нормализованному ключу
func (d *Database) FindDirectChat(directKey string) (*models.Chat, error) {
	var chat models.Chat
	err := d.db.
		Where("direct_key = ?", directKey).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (d *Database) FindAttachedChat(kind, id string) (*models.Chat, error) {
	var chat models.Chat
	err := d.db.
		Where("attach_kind = ? AND attach_id = ?", kind, id).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetUserChats возвращает чаты, где пользователь сейчас состоит,
// с актуальными списками участников
func (d *Database) GetUserChats(userID uuid.UUID) ([]models.Chat, error) {
	var chats []models.Chat
	err := d.db.
		Joins("JOIN memberships m ON m.chat_id = chats.id AND m.user_id = ? AND m.left_seq IS NULL", userID).
		Preload("Memberships", "left_seq IS NULL").
		Preload("Memberships.User").
		Order("chats.created_at DESC").
		Find(&chats).Error
	return chats, err
}

func (d *Database) UpdateChatTitle(id string, title string) error {
	return d.db.Model(&models.Chat{}).Where("id = ?", id).Update("title", title).Error
}

// DeleteChatRows удаляет чат вместе с сообщениями и реакциями.
// Строки участия не трогает: вызывающий помечает их left_seq, чтобы
// бывшие участники ещё получили событие chat_deleted. Журнал событий
// тоже остаётся.
func (d *Database) DeleteChatRows(id string) error {
	if err := d.db.
		Where("message_id IN (?)", d.db.Model(&models.Message{}).Select("id").Where("chat_id = ?", id)).
		Delete(&models.Reaction{}).Error; err != nil {
		return err
	}

	if err := d.db.Delete(&models.Message{}, "chat_id = ?", id).Error; err != nil {
		return err
	}

	return d.db.Delete(&models.Chat{}, "id = ?", id).Error
}

// LastMessage последнее сообщение чата для списка чатов
func (d *Database) LastMessage(chatID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := d.db.
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Preload("Sender").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}
