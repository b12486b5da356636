package chat

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// Publisher получает события после коммита транзакции вместе со списком
// адресатов — участников чата на момент мутации
type Publisher interface {
	Publish(ctx context.Context, ev *events.Event, audience []uuid.UUID)
}

// emitted событие, накопленное внутри транзакции до публикации
type emitted struct {
	event    *events.Event
	audience []uuid.UUID
}

// appendEvent пишет строку журнала в текущей транзакции; seq присваивается
// при вставке и определяет порядок доставки
func appendEvent(tx *database.Database, t events.Type, chatID, actorID uuid.UUID, subject *uuid.UUID, payload interface{}) (*events.Event, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	row := &models.ChatEvent{
		Type:      string(t),
		ChatID:    chatID,
		ActorID:   actorID,
		SubjectID: subject,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if err := tx.AppendEvent(row); err != nil {
		return nil, err
	}

	return &events.Event{
		Seq:       row.Seq,
		Type:      t,
		ChatID:    chatID,
		ActorID:   actorID,
		SubjectID: subject,
		Data:      data,
		Timestamp: row.CreatedAt,
	}, nil
}

func publishAll(ctx context.Context, pub Publisher, out []emitted) {
	for _, e := range out {
		pub.Publish(ctx, e.event, e.audience)
	}
}

// activeMember находит действующее участие, пряча gorm.ErrRecordNotFound
// за доменной ошибкой
func activeMember(tx *database.Database, chatID, userID uuid.UUID) (*models.Membership, error) {
	m, err := tx.ActiveMembership(chatID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotMember
	}
	return m, err
}

func memberIDs(ms []models.Membership) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.UserID)
	}
	return ids
}

// GroupReactions сворачивает реакции в группы по эмодзи, сохраняя
// порядок первого появления
func GroupReactions(rs []models.Reaction) []events.ReactionGroup {
	groups := make([]events.ReactionGroup, 0)
	index := make(map[string]int)

	for _, r := range rs {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, events.ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		groups[i].Users = append(groups[i].Users, r.UserID)
	}

	return groups
}

// MessageToPayload готовит сообщение к выдаче. Для удалённого отдаётся
// надгробие: без текста, с флагом deleted.
func MessageToPayload(m *models.Message) events.MessagePayload {
	p := events.MessagePayload{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		CreatedAt: m.CreatedAt,
	}

	if m.Deleted() {
		p.Deleted = true
		return p
	}

	p.Content = m.Content
	if m.EditedAt != nil {
		p.Edited = true
		p.EditedAt = m.EditedAt
	}
	if m.Sender.ID != uuid.Nil {
		p.Sender = &events.SenderInfo{
			ID:        m.Sender.ID,
			Username:  m.Sender.Username,
			AvatarURL: m.Sender.AvatarURL,
		}
	}
	if len(m.Reactions) > 0 {
		p.Reactions = GroupReactions(m.Reactions)
	}

	return p
}
