package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/models"
)

func (d *Database) SaveMessage(message *models.Message) error {
	return d.db.Create(message).Error
}

func (d *Database) GetMessage(id string) (*models.Message, error) {
	var message models.Message
	err := d.db.
		Preload("Sender").
		Preload("Reactions").
		First(&message, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (d *Database) UpdateMessageContent(id uuid.UUID, content string, editedAt time.Time) error {
	return d.db.Model(&models.Message{}).Where("id = ?", id).Updates(map[string]interface{}{
		"content":   content,
		"edited_at": editedAt,
	}).Error
}

// SoftDeleteMessage ставит надгробие. Guard по deleted_at делает
// повторное удаление no-op: вернётся false без изменения строки.
func (d *Database) SoftDeleteMessage(id uuid.UUID, at time.Time) (bool, error) {
	res := d.db.Model(&models.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", at)
	return res.RowsAffected > 0, res.Error
}

// GetChatMessages получает сообщения чата с пагинацией
func (d *Database) GetChatMessages(chatID uuid.UUID, limit int, beforeID *uuid.UUID) ([]models.Message, error) {
	var messages []models.Message

	query := d.db.Where("chat_id = ?", chatID)

	if beforeID != nil {
		var beforeMsg models.Message
		if err := d.db.First(&beforeMsg, "id = ?", beforeID).Error; err == nil {
			query = query.Where("created_at < ?", beforeMsg.CreatedAt)
		}
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Preload("Sender").
		Preload("Reactions").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем порядок, чтобы старые сообщения были первыми
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
