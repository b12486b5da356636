package transport

import (
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// EventSource читает журнал событий с позиции курсора.
// Общий источник для догоняющего чтения: опрос и websocket-переподключение
// восстанавливаются одинаково.
type EventSource interface {
	EventsSince(userID uuid.UUID, afterSeq int64, limit int) ([]models.ChatEvent, error)
}

// PollingGateway push-заглушка для режима опроса: активной доставки нет,
// клиенты забирают события из журнала запросом с курсором
type PollingGateway struct{}

func (PollingGateway) Deliver(uuid.UUID, *events.Event) {}

func toEvent(row *models.ChatEvent) *events.Event {
	return &events.Event{
		Seq:       row.Seq,
		Type:      events.Type(row.Type),
		ChatID:    row.ChatID,
		ActorID:   row.ActorID,
		SubjectID: row.SubjectID,
		Data:      row.Payload,
		Timestamp: row.CreatedAt,
	}
}
