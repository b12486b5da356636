package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// Lifecycle жизненный цикл сообщения: отправка, правка, мягкое
// удаление и реакции. Правки и удаление сериализуются блокировкой
// строки сообщения; проверка deleted_at под блокировкой отбрасывает
// устаревшие мутации.
type Lifecycle struct {
	db  *database.Database
	pub Publisher
}

func NewLifecycle(db *database.Database, pub Publisher) *Lifecycle {
	return &Lifecycle{db: db, pub: pub}
}

// Send отправляет сообщение; отправитель обязан состоять в чате
func (s *Lifecycle) Send(ctx context.Context, chatID, senderID uuid.UUID, content string) (*models.Message, error) {
	var (
		message *models.Message
		out     []emitted
	)

	err := s.db.Transaction(func(tx *database.Database) error {
		if _, err := tx.LockChat(chatID.String()); err != nil {
			return err
		}

		if _, err := activeMember(tx, chatID, senderID); err != nil {
			return err
		}

		message = &models.Message{
			ChatID:    chatID,
			SenderID:  senderID,
			Content:   content,
			CreatedAt: time.Now(),
		}
		if err := tx.SaveMessage(message); err != nil {
			return err
		}

		if sender, err := tx.GetUser(senderID.String()); err == nil {
			message.Sender = *sender
		}

		members, err := tx.ActiveMemberships(chatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMessageSent, chatID, senderID, nil, MessageToPayload(message))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, memberIDs(members)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.pub, out)
	return message, nil
}

// Edit правит текст сообщения. Только автор; надгробие не правится.
func (s *Lifecycle) Edit(ctx context.Context, messageID, actorID uuid.UUID, content string) (*models.Message, error) {
	var (
		message *models.Message
		out     []emitted
	)

	err := s.db.Transaction(func(tx *database.Database) error {
		var err error
		message, err = tx.LockMessage(messageID.String())
		if err != nil {
			return err
		}

		if message.SenderID != actorID {
			return ErrPermissionDenied
		}
		if message.Deleted() {
			return ErrMessageDeleted
		}

		now := time.Now()
		if err := tx.UpdateMessageContent(message.ID, content, now); err != nil {
			return err
		}
		message.Content = content
		message.EditedAt = &now

		members, err := tx.ActiveMemberships(message.ChatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMessageEdited, message.ChatID, actorID, nil, MessageToPayload(message))
		if err != nil {
			return err
		}
		out = append(out, emitted{ev, memberIDs(members)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishAll(ctx, s.pub, out)
	return message, nil
}

// Delete ставит надгробие. Повторное удаление — no-op.
func (s *Lifecycle) Delete(ctx context.Context, messageID, actorID uuid.UUID) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		message, err := tx.LockMessage(messageID.String())
		if err != nil {
			return err
		}

		if message.SenderID != actorID {
			return ErrPermissionDenied
		}
		if message.Deleted() {
			return nil
		}

		now := time.Now()
		deleted, err := tx.SoftDeleteMessage(message.ID, now)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		message.DeletedAt = &now

		members, err := tx.ActiveMemberships(message.ChatID)
		if err != nil {
			return err
		}

		ev, err := appendEvent(tx, events.TypeMessageDeleted, message.ChatID, actorID, nil, MessageToPayload(message))
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

// React добавляет реакцию. Повторная та же тройка — no-op без события.
func (s *Lifecycle) React(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return s.toggleReaction(ctx, messageID, userID, emoji, true)
}

// Unreact снимает реакцию; отсутствующая — no-op
func (s *Lifecycle) Unreact(ctx context.Context, messageID, userID uuid.UUID, emoji string) error {
	return s.toggleReaction(ctx, messageID, userID, emoji, false)
}

func (s *Lifecycle) toggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string, add bool) error {
	var out []emitted

	err := s.db.Transaction(func(tx *database.Database) error {
		message, err := tx.LockMessage(messageID.String())
		if err != nil {
			return err
		}
		if message.Deleted() {
			return ErrMessageDeleted
		}

		if _, err := activeMember(tx, message.ChatID, userID); err != nil {
			return err
		}

		var changed bool
		if add {
			r := &models.Reaction{
				MessageID: messageID,
				UserID:    userID,
				Emoji:     emoji,
				CreatedAt: time.Now(),
			}
			changed, err = tx.AddReaction(r)
		} else {
			changed, err = tx.RemoveReaction(messageID, userID, emoji)
		}
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		reactions, err := tx.GetMessageReactions(messageID)
		if err != nil {
			return err
		}

		members, err := tx.ActiveMemberships(message.ChatID)
		if err != nil {
			return err
		}

		evType := events.TypeReactionAdded
		if !add {
			evType = events.TypeReactionRemoved
		}
		ev, err := appendEvent(tx, evType, message.ChatID, userID, nil, events.ReactionPayload{
			MessageID: messageID,
			ChatID:    message.ChatID,
			Groups:    GroupReactions(reactions),
		})
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

// History история чата для участника; удалённые сообщения приходят
// надгробиями, а не пропусками
func (s *Lifecycle) History(ctx context.Context, chatID, viewerID uuid.UUID, limit int, beforeID *uuid.UUID) ([]events.MessagePayload, error) {
	if _, err := activeMember(s.db, chatID, viewerID); err != nil {
		return nil, err
	}

	messages, err := s.db.GetChatMessages(chatID, limit, beforeID)
	if err != nil {
		return nil, err
	}

	result := make([]events.MessagePayload, len(messages))
	for i := range messages {
		result[i] = MessageToPayload(&messages[i])
	}
	return result, nil
}
