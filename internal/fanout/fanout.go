package fanout

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/events"
)

// Gateway доставляет событие во все активные сессии пользователя.
// Push-транспорт отправляет в соединения, polling-вариант ничего не
// делает: клиенты сами забирают события курсором.
type Gateway interface {
	Deliver(userID uuid.UUID, ev *events.Event)
}

// Fanout раздаёт событие аудитории и ведёт счётчики непрочитанного.
// Счётчики и активный чат живут в Redis с областью видимости сессии:
// у каждой вкладки свой активный чат и свой набор бейджей, открытый
// в одной вкладке чат не гасит непрочитанное в другой.
// Доставка каждому адресату независима: медленная или отвалившаяся
// сессия не задерживает остальных (это гарантирует сам Gateway).
type Fanout struct {
	gateway Gateway
	redis   *redis.Client

	// Срок жизни учёта сессии; совпадает со сроком жизни токена
	ttl time.Duration
}

func New(gateway Gateway, rdb *redis.Client, ttl time.Duration) *Fanout {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Fanout{gateway: gateway, redis: rdb, ttl: ttl}
}

func sessionsKey(userID uuid.UUID) string { return "sessions:" + userID.String() }

func unreadKey(userID uuid.UUID, sessionID string) string {
	return "unread:" + userID.String() + ":" + sessionID
}

func activeKey(userID uuid.UUID, sessionID string) string {
	return "active:" + userID.String() + ":" + sessionID
}

// TouchSession регистрирует сессию в учёте непрочитанного. Вызывается
// на каждом чтении счётчиков, поэтому живые сессии не протухают.
func (f *Fanout) TouchSession(ctx context.Context, userID uuid.UUID, sessionID string) error {
	if err := f.redis.SAdd(ctx, sessionsKey(userID), sessionID).Err(); err != nil {
		return err
	}
	return f.redis.Expire(ctx, sessionsKey(userID), f.ttl).Err()
}

// Publish раздаёт событие адресатам. Мутация уже закоммичена, поэтому
// ошибки учёта непрочитанного только логируются — доставка best-effort,
// polling доберёт событие из журнала в любом случае.
func (f *Fanout) Publish(ctx context.Context, ev *events.Event, audience []uuid.UUID) {
	for _, userID := range audience {
		f.bookkeep(ctx, ev, userID)
		f.gateway.Deliver(userID, ev)
	}
}

func (f *Fanout) bookkeep(ctx context.Context, ev *events.Event, userID uuid.UUID) {
	if ev.Type != events.TypeMessageSent && ev.Type != events.TypeChatDeleted {
		return
	}
	if ev.Type == events.TypeMessageSent && userID == ev.ActorID {
		return
	}

	sessions, err := f.redis.SMembers(ctx, sessionsKey(userID)).Result()
	if err != nil {
		log.Printf("unread bookkeeping failed for %s: %v", userID, err)
		return
	}

	switch ev.Type {
	case events.TypeMessageSent:
		for _, sessionID := range sessions {
			active, err := f.redis.Get(ctx, activeKey(userID, sessionID)).Result()
			if err != nil && err != redis.Nil {
				log.Printf("unread bookkeeping failed for %s: %v", userID, err)
				continue
			}
			// Сессия смотрит на этот чат — для неё сообщение прочитано
			if active == ev.ChatID.String() {
				continue
			}
			key := unreadKey(userID, sessionID)
			if err := f.redis.HIncrBy(ctx, key, ev.ChatID.String(), 1).Err(); err != nil {
				log.Printf("unread bookkeeping failed for %s: %v", userID, err)
				continue
			}
			f.redis.Expire(ctx, key, f.ttl)
		}

	case events.TypeChatDeleted:
		for _, sessionID := range sessions {
			f.redis.HDel(ctx, unreadKey(userID, sessionID), ev.ChatID.String())
		}
	}
}

// MarkRead делает чат активным для сессии и сбрасывает её счётчик
// непрочитанного по этому чату. Остальных сессий не касается.
func (f *Fanout) MarkRead(ctx context.Context, userID uuid.UUID, sessionID string, chatID uuid.UUID) error {
	if err := f.TouchSession(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := f.redis.Set(ctx, activeKey(userID, sessionID), chatID.String(), f.ttl).Err(); err != nil {
		return err
	}
	return f.redis.HDel(ctx, unreadKey(userID, sessionID), chatID.String()).Err()
}

// ClearActive снимает активный чат сессии (пользователь ушёл со страницы)
func (f *Fanout) ClearActive(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return f.redis.Del(ctx, activeKey(userID, sessionID)).Err()
}

// UnreadCounts счётчики непрочитанного по чатам для сессии
func (f *Fanout) UnreadCounts(ctx context.Context, userID uuid.UUID, sessionID string) (map[string]int64, error) {
	if err := f.TouchSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	raw, err := f.redis.HGetAll(ctx, unreadKey(userID, sessionID)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(raw))
	for chatID, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		counts[chatID] = n
	}
	return counts, nil
}
