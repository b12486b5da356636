package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// Memberships вступление, выход и управление участниками
type Memberships struct {
	db  *database.Database
	pub Publisher
}

func NewMemberships(db *database.Database, pub Publisher) *Memberships {
	return &Memberships{db: db, pub: pub}
}

func memberPayload(tx *database.Database, userID uuid.UUID, role models.Role, count int64) events.MemberPayload {
	p := events.MemberPayload{
		UserID:      userID,
		Role:        string(role),
		MemberCount: count,
	}
	if u, err := tx.GetUser(userID.String()); err == nil {
		p.Username = u.Username
	}
	return p
}

// Join вступление в открытую комнату. Первый участник чата без админов
// становится админом, чтобы инвариант ">=1 админ при >=1 участнике"
// держался и для комнат, засеянных обычными участниками.
func (s *Memberships) Join(ctx context.Context, chatID, userID uuid.UUID) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		chat, err := tx.LockChat(chatID.String())
		if err != nil {
			return err
		}
		if !chat.IsRoom {
			return ErrRoomNotJoinable
		}

		existing, err := tx.GetMembership(chatID, userID)
		if err == nil && existing.Active() {
			return ErrAlreadyMember
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		role := models.RoleMember
		admins, err := tx.CountActiveAdmins(chatID)
		if err != nil {
			return err
		}
		if admins == 0 {
			role = models.RoleAdmin
		}

		if existing != nil {
			if err := tx.Revive(existing.ID, role); err != nil {
				return err
			}
		} else {
			m := &models.Membership{
				ChatID:   chatID,
				UserID:   userID,
				Role:     role,
				JoinedAt: time.Now(),
			}
			if err := tx.CreateMembership(m); err != nil {
				return err
			}
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMemberJoined, chatID, userID, &userID,
			memberPayload(tx, userID, role, int64(len(members))))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, memberIDs(members)})
		return nil
	})
	if err != nil {
		return err
	}

	publishAll(ctx, s.pub, out)
	return nil
}

// Leave выход из чата. Если уходит единственный админ, а участники
// остаются, права атомарно переходят раньше всех вступившему; окна без
// админа нет — повышение и выход коммитятся одной транзакцией.
// Последний участник забирает чат с собой: пустые чаты не живут.
func (s *Memberships) Leave(ctx context.Context, chatID, userID uuid.UUID) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		chat, err := tx.LockChat(chatID.String())
		if err != nil {
			return err
		}

		m, err := activeMember(tx, chatID, userID)
		if err != nil {
			return err
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}
		audience := memberIDs(members)
		remaining := int64(len(members) - 1)

		if remaining == 0 {
			leftEv, err := appendEvent(tx, events.TypeMemberLeft, chatID, userID, &userID,
				memberPayload(tx, userID, m.Role, 0))
			if err != nil {
				return err
			}

			delEv, err := appendEvent(tx, events.TypeChatDeleted, chatID, userID, nil, events.ChatPayload{
				ID:      chat.ID,
				Title:   chat.Title,
				IsGroup: chat.IsGroup,
				IsRoom:  chat.IsRoom,
			})
			if err != nil {
				return err
			}

			if err := tx.MarkLeft(m.ID, delEv.Seq); err != nil {
				return err
			}
			if err := tx.DeleteChatRows(chatID.String()); err != nil {
				return err
			}

			out = append(out, emitted{leftEv, audience}, emitted{delEv, audience})
			return nil
		}

		if m.Role == models.RoleAdmin {
			admins, err := tx.CountActiveAdmins(chatID)
			if err != nil {
				return err
			}
			if admins == 1 {
				successor := earliestOther(members, userID)
				if err := tx.SetMembershipRole(successor.ID, models.RoleAdmin); err != nil {
					return err
				}

				ev, err := appendEvent(tx, events.TypeMemberPromoted, chatID, userID, &successor.UserID,
					memberPayload(tx, successor.UserID, models.RoleAdmin, int64(len(members))))
				if err != nil {
					return err
				}
				out = append(out, emitted{ev, audience})
			}
		}

		leftEv, err := appendEvent(tx, events.TypeMemberLeft, chatID, userID, &userID,
			memberPayload(tx, userID, m.Role, remaining))
		if err != nil {
			return err
		}
		if err := tx.MarkLeft(m.ID, leftEv.Seq); err != nil {
			return err
		}

		out = append(out, emitted{leftEv, audience})
		return nil
	})
	if err != nil {
		return err
	}

	publishAll(ctx, s.pub, out)
	return nil
}

// AddMember приглашение пользователя в чат; доступно только админу.
// Личный чат не расширяется: в нём всегда ровно два участника.
func (s *Memberships) AddMember(ctx context.Context, chatID, userID, actorID uuid.UUID) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		chat, err := tx.LockChat(chatID.String())
		if err != nil {
			return err
		}
		if !chat.IsGroup {
			return ErrNotGroupChat
		}

		actor, err := activeMember(tx, chatID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}

		existing, err := tx.GetMembership(chatID, userID)
		if err == nil && existing.Active() {
			return ErrAlreadyMember
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			if err := tx.Revive(existing.ID, models.RoleMember); err != nil {
				return err
			}
		} else {
			m := &models.Membership{
				ChatID:   chatID,
				UserID:   userID,
				Role:     models.RoleMember,
				JoinedAt: time.Now(),
			}
			if err := tx.CreateMembership(m); err != nil {
				return err
			}
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMemberJoined, chatID, actorID, &userID,
			memberPayload(tx, userID, models.RoleMember, int64(len(members))))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, memberIDs(members)})
		return nil
	})
	if err != nil {
		return err
	}

	publishAll(ctx, s.pub, out)
	return nil
}

// RemoveMember исключение участника; доступно только админу.
// Исключённый входит в аудиторию события собственного удаления,
// но ничего после него уже не получает.
func (s *Memberships) RemoveMember(ctx context.Context, chatID, userID, actorID uuid.UUID) error {
	if actorID == userID {
		return s.Leave(ctx, chatID, userID)
	}

	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		if _, err := tx.LockChat(chatID.String()); err != nil {
			return err
		}

		actor, err := activeMember(tx, chatID, actorID)
		if err != nil {
			return err
		}
		if actor.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}

		target, err := activeMember(tx, chatID, userID)
		if err != nil {
			return err
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMemberLeft, chatID, actorID, &userID,
			memberPayload(tx, userID, target.Role, int64(len(members)-1)))
		if err != nil {
			return err
		}
		if err := tx.MarkLeft(target.ID, ev.Seq); err != nil {
			return err
		}

		out = append(out, emitted{ev, memberIDs(members)})
		return nil
	})
	if err != nil {
		return err
	}

	publishAll(ctx, s.pub, out)
	return nil
}

// earliestOther первый по времени вступления участник, кроме исключаемого.
// ActiveMemberships уже отсортирован по joined_at, id.
func earliestOther(members []models.Membership, exclude uuid.UUID) *models.Membership {
	for i := range members {
		if members[i].UserID != exclude {
			return &members[i]
		}
	}
	return nil
}
