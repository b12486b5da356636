package transport

import (
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/events"
)

// Poller выборка дельт для опрашивающего клиента. Запрос без состояния
// на сервере: вся позиция клиента — его курсор.
type Poller struct {
	source   EventSource
	pageSize int
}

func NewPoller(source EventSource, pageSize int) *Poller {
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Poller{source: source, pageSize: pageSize}
}

// FetchSince события после курсора в порядке журнала.
// Возвращает новый курсор; has_more выводится по размеру страницы.
func (p *Poller) FetchSince(userID uuid.UUID, cursor int64) ([]*events.Event, int64, error) {
	rows, err := p.source.EventsSince(userID, cursor, p.pageSize)
	if err != nil {
		return nil, cursor, err
	}

	out := make([]*events.Event, len(rows))
	next := cursor
	for i := range rows {
		out[i] = toEvent(&rows[i])
		if rows[i].Seq > next {
			next = rows[i].Seq
		}
	}
	return out, next, nil
}

func (p *Poller) PageSize() int { return p.pageSize }
