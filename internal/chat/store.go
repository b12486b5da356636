package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/attach"
	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// Store создание, переименование и удаление чатов
type Store struct {
	db  *database.Database
	pub Publisher
	reg *attach.Registry
}

func NewStore(db *database.Database, pub Publisher, reg *attach.Registry) *Store {
	return &Store{db: db, pub: pub, reg: reg}
}

func chatPayload(c *models.Chat) events.ChatPayload {
	return events.ChatPayload{
		ID:      c.ID,
		Title:   c.Title,
		IsGroup: c.IsGroup,
		IsRoom:  c.IsRoom,
	}
}

// directKey нормализованная пара id: меньший всегда слева, поэтому
// у пары один ключ независимо от того, кто инициировал чат
func directKey(a, b uuid.UUID) string {
	if b.String() < a.String() {
		a, b = b, a
	}
	return a.String() + ":" + b.String()
}

// CreateDirect возвращает личный чат пары, создавая его при первом
// обращении. Оба участника получают роль админа: в чате на двоих
// каждая сторона управляет им наравне. Уникальный индекс по direct_key
// закрывает гонку двух одновременных созданий: проигравший повторяет
// попытку и находит чат победителя. Если одна из сторон ранее вышла,
// её участие возобновляется.
func (s *Store) CreateDirect(ctx context.Context, userID, peerID uuid.UUID) (*models.Chat, bool, error) {
	key := directKey(userID, peerID)

	var (
		chat    *models.Chat
		created bool
		out     []emitted
	)

	run := func(tx *database.Database) error {
		existing, err := tx.FindDirectChat(key)
		if err == nil {
			if _, err := tx.LockChat(existing.ID.String()); err != nil {
				return err
			}
			chat = existing
			return s.reviveDirect(tx, existing, userID, peerID, &out)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		chat = &models.Chat{
			DirectKey: key,
			CreatedBy: userID,
			CreatedAt: time.Now(),
		}
		if err := tx.CreateChat(chat); err != nil {
			return err
		}

		for _, uid := range []uuid.UUID{userID, peerID} {
			m := &models.Membership{
				ChatID:   chat.ID,
				UserID:   uid,
				Role:     models.RoleAdmin,
				JoinedAt: time.Now(),
			}
			if err := tx.CreateMembership(m); err != nil {
				return err
			}
		}
		created = true

		ev, err := appendEvent(tx, events.TypeChatCreated, chat.ID, userID, nil, chatPayload(chat))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, []uuid.UUID{userID, peerID}})
		return nil
	}

	err := s.db.Transaction(run)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		out = nil
		created = false
		err = s.db.Transaction(run)
	}
	if err != nil {
		return nil, false, err
	}

	publishAll(ctx, s.pub, out)
	return chat, created, nil
}

// reviveDirect возвращает вышедшую сторону в личный чат
func (s *Store) reviveDirect(tx *database.Database, chat *models.Chat, userID, peerID uuid.UUID, out *[]emitted) error {
	for _, uid := range []uuid.UUID{userID, peerID} {
		m, err := tx.GetMembership(chat.ID, uid)
		if err != nil {
			return err
		}
		if m.Active() {
			continue
		}
		if err := tx.Revive(m.ID, models.RoleAdmin); err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMemberJoined, chat.ID, userID, &uid,
			memberPayload(tx, uid, models.RoleAdmin, 2))
		if err != nil {
			return err
		}
		*out = append(*out, emitted{ev, []uuid.UUID{userID, peerID}})
	}
	return nil
}

// CreateGroup создает групповой чат: создатель — админ, приглашённые — участники
func (s *Store) CreateGroup(ctx context.Context, creatorID uuid.UUID, title string, memberIDs []uuid.UUID) (*models.Chat, error) {
	var (
		chat *models.Chat
		out  []emitted
	)

	err := s.db.Transaction(func(tx *database.Database) error {
		chat = &models.Chat{
			Title:     title,
			IsGroup:   true,
			CreatedBy: creatorID,
			CreatedAt: time.Now(),
		}
		if err := tx.CreateChat(chat); err != nil {
			return err
		}

		audience := []uuid.UUID{creatorID}
		creator := &models.Membership{
			ChatID:   chat.ID,
			UserID:   creatorID,
			Role:     models.RoleAdmin,
			JoinedAt: time.Now(),
		}
		if err := tx.CreateMembership(creator); err != nil {
			return err
		}

		for _, uid := range memberIDs {
			if uid == creatorID {
				continue
			}
			m := &models.Membership{
				ChatID:   chat.ID,
				UserID:   uid,
				Role:     models.RoleMember,
				JoinedAt: time.Now(),
			}
			if err := tx.CreateMembership(m); err != nil {
				return err
			}
			audience = append(audience, uid)
		}

		ev, err := appendEvent(tx, events.TypeChatCreated, chat.ID, creatorID, nil, chatPayload(chat))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, audience})
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.pub, out)
	return chat, nil
}

// GetOrCreateAttached идемпотентно возвращает комнату внешней сущности.
// Уникальный индекс по (attach_kind, attach_id) закрывает гонку двух
// одновременных созданий: проигравший перечитывает чат победителя.
func (s *Store) GetOrCreateAttached(ctx context.Context, actorID uuid.UUID, ref attach.Ref, title string) (*models.Chat, bool, error) {
	if err := s.reg.Validate(ref); err != nil {
		return nil, false, err
	}

	if existing, err := s.db.FindAttachedChat(ref.Kind, ref.ID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	chat := &models.Chat{
		Title:      title,
		IsGroup:    true,
		IsRoom:     true,
		AttachKind: ref.Kind,
		AttachID:   ref.ID,
		CreatedBy:  actorID,
		CreatedAt:  time.Now(),
	}
	if err := s.db.CreateChat(chat); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := s.db.FindAttachedChat(ref.Kind, ref.ID)
			if ferr != nil {
				return nil, false, ErrAttachmentConflict
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	return chat, true, nil
}

// Rename переименовывает чат; доступно только админу
func (s *Store) Rename(ctx context.Context, chatID, actorID uuid.UUID, title string) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		chat, err := tx.LockChat(chatID.String())
		if err != nil {
			return err
		}

		m, err := activeMember(tx, chatID, actorID)
		if err != nil {
			return err
		}
		if m.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}

		if err := tx.UpdateChatTitle(chatID.String(), title); err != nil {
			return err
		}
		chat.Title = title

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeChatRenamed, chatID, actorID, nil, chatPayload(chat))
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

// Delete удаляет чат каскадом; доступно только админу.
// Участия закрываются на seq события chat_deleted, поэтому каждый
// бывший участник ещё получит само удаление через свой транспорт.
func (s *Store) Delete(ctx context.Context, chatID, actorID uuid.UUID) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		chat, err := tx.LockChat(chatID.String())
		if err != nil {
			return err
		}

		m, err := activeMember(tx, chatID, actorID)
		if err != nil {
			return err
		}
		if m.Role != models.RoleAdmin {
			return ErrPermissionDenied
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeChatDeleted, chatID, actorID, nil, chatPayload(chat))
		if err != nil {
			return err
		}

		if err := tx.MarkAllLeft(chatID, ev.Seq); err != nil {
			return err
		}
		if err := tx.DeleteChatRows(chatID.String()); err != nil {
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
