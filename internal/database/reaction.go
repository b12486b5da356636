package database

import (
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/models"
)

// AddReaction создает реакцию, если тройки ещё нет.
// Возвращает false, когда реакция уже существовала.
func (d *Database) AddReaction(r *models.Reaction) (bool, error) {
	res := d.db.
		Where(models.Reaction{MessageID: r.MessageID, UserID: r.UserID, Emoji: r.Emoji}).
		FirstOrCreate(r)
	return res.RowsAffected > 0, res.Error
}

// RemoveReaction удаляет реакцию; false, если её не было
func (d *Database) RemoveReaction(messageID, userID uuid.UUID, emoji string) (bool, error) {
	res := d.db.
		Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.Reaction{})
	return res.RowsAffected > 0, res.Error
}

func (d *Database) GetMessageReactions(messageID uuid.UUID) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := d.db.
		Where("message_id = ?", messageID).
		Order("created_at ASC").
		Find(&reactions).Error
	return reactions, err
}
