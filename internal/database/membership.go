package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/models"
)

func (d *Database) CreateMembership(m *models.Membership) error {
	return d.db.Create(m).Error
}

// GetMembership возвращает строку участия, включая покинутые
func (d *Database) GetMembership(chatID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := d.db.
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ActiveMembership возвращает участие, если пользователь сейчас в чате
func (d *Database) ActiveMembership(chatID, userID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := d.db.
		Where("chat_id = ? AND user_id = ? AND left_seq IS NULL", chatID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ActiveMemberships список участников в порядке вступления.
// Этот порядок задаёт детерминированный выбор при передаче прав админа.
func (d *Database) ActiveMemberships(chatID uuid.UUID) ([]models.Membership, error) {
	var ms []models.Membership
	err := d.db.
		Where("chat_id = ? AND left_seq IS NULL", chatID).
		Order("joined_at ASC, id ASC").
		Preload("User").
		Find(&ms).Error
	return ms, err
}

func (d *Database) CountActiveMembers(chatID uuid.UUID) (int64, error) {
	var n int64
	err := d.db.Model(&models.Membership{}).
		Where("chat_id = ? AND left_seq IS NULL", chatID).
		Count(&n).Error
	return n, err
}

func (d *Database) CountActiveAdmins(chatID uuid.UUID) (int64, error) {
	var n int64
	err := d.db.Model(&models.Membership{}).
		Where("chat_id = ? AND left_seq IS NULL AND role = ?", chatID, models.RoleAdmin).
		Count(&n).Error
	return n, err
}

func (d *Database) SetMembershipRole(id uuid.UUID, role models.Role) error {
	return d.db.Model(&models.Membership{}).Where("id = ?", id).Update("role", role).Error
}

// MarkLeft закрывает участие: события с seq больше указанного
// пользователю этого чата больше не доставляются
func (d *Database) MarkLeft(id uuid.UUID, seq int64) error {
	return d.db.Model(&models.Membership{}).Where("id = ?", id).Update("left_seq", seq).Error
}

// MarkAllLeft закрывает все активные участия чата (удаление чата)
func (d *Database) MarkAllLeft(chatID uuid.UUID, seq int64) error {
	return d.db.Model(&models.Membership{}).
		Where("chat_id = ? AND left_seq IS NULL", chatID).
		Update("left_seq", seq).Error
}

// Revive возобновляет покинутое участие при повторном вступлении
func (d *Database) Revive(id uuid.UUID, role models.Role) error {
	return d.db.Model(&models.Membership{}).Where("id = ?", id).Updates(map[string]interface{}{
		"role":      role,
		"joined_at": time.Now(),
		"left_seq":  nil,
	}).Error
}
