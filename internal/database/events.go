package database

import (
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/models"
)

func (d *Database) AppendEvent(ev *models.ChatEvent) error {
	return d.db.Create(ev).Error
}

// EventsSince отдаёт события после курсора для чатов пользователя.
// Закрытые участия режут выборку по left_seq: бывший участник получает
// событие собственного удаления и ничего после него.
func (d *Database) EventsSince(userID uuid.UUID, afterSeq int64, limit int) ([]models.ChatEvent, error) {
	var evs []models.ChatEvent
	err := d.db.
		Joins("JOIN memberships m ON m.chat_id = chat_events.chat_id AND m.user_id = ?", userID).
		Where("chat_events.seq > ?", afterSeq).
		Where("m.left_seq IS NULL OR chat_events.seq <= m.left_seq").
		Order("chat_events.seq ASC").
		Limit(limit).
		Find(&evs).Error
	return evs, err
}
