package transport

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/thereayou/chatcore/internal/events"
)

// Hub push-транспорт: по одному websocket-соединению на сессию.
// У пользователя может быть несколько сессий, событие уходит в каждую.
// Отправка в сессию неблокирующая: переполненная очередь отстающей
// сессии не задерживает доставку остальным, клиент доберёт пропущенное
// курсором при переподключении.
type Hub struct {
	source      EventSource
	replayLimit int

	sessions     map[uuid.UUID]*Session
	userSessions map[uuid.UUID]map[uuid.UUID]*Session

	register   chan *Session
	unregister chan *Session

	mu sync.RWMutex

	// Контекст для graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(source EventSource, replayLimit int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	if replayLimit <= 0 {
		replayLimit = 500
	}
	return &Hub{
		source:       source,
		replayLimit:  replayLimit,
		sessions:     make(map[uuid.UUID]*Session),
		userSessions: make(map[uuid.UUID]map[uuid.UUID]*Session),
		register:     make(chan *Session),
		unregister:   make(chan *Session),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Run запускает hub
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case session := <-h.register:
			h.registerSession(session)

		case session := <-h.unregister:
			h.unregisterSession(session)
		}
	}
}

// Stop останавливает hub и закрывает все сессии
func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, session := range h.sessions {
		close(session.send)
		session.conn.Close()
	}
	h.sessions = make(map[uuid.UUID]*Session)
	h.userSessions = make(map[uuid.UUID]map[uuid.UUID]*Session)
}

// Register и Unregister не блокируются после остановки hub:
// Run уже не читает из каналов, а pump-горутины должны завершиться
func (h *Hub) Register(session *Session) {
	select {
	case h.register <- session:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(session *Session) {
	select {
	case h.unregister <- session:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerSession(session *Session) {
	h.mu.Lock()
	h.sessions[session.ID] = session
	if _, ok := h.userSessions[session.UserID]; !ok {
		h.userSessions[session.UserID] = make(map[uuid.UUID]*Session)
	}
	h.userSessions[session.UserID][session.ID] = session
	h.mu.Unlock()

	log.Printf("Session registered: %s (User: %s)", session.ID, session.UserID)

	// Догоняем пропущенное с курсора клиента, затем пойдёт живой поток.
	// На стыке возможен дубликат, клиент отбрасывает seq не выше курсора.
	go h.replay(session)
}

func (h *Hub) unregisterSession(session *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[session.ID]; !ok {
		return
	}

	delete(h.sessions, session.ID)
	if userSessions, ok := h.userSessions[session.UserID]; ok {
		delete(userSessions, session.ID)
		if len(userSessions) == 0 {
			delete(h.userSessions, session.UserID)
		}
	}
	close(session.send)

	log.Printf("Session unregistered: %s (User: %s)", session.ID, session.UserID)
}

func (h *Hub) replay(session *Session) {
	cursor := session.Cursor()
	if cursor < 0 {
		return
	}

	rows, err := h.source.EventsSince(session.UserID, cursor, h.replayLimit)
	if err != nil {
		log.Printf("Replay failed for session %s: %v", session.ID, err)
		return
	}

	for i := range rows {
		data, err := json.Marshal(toEvent(&rows[i]))
		if err != nil {
			continue
		}
		if !session.enqueue(data) {
			log.Printf("Session %s queue full during replay", session.ID)
			return
		}
	}
}

// Deliver отправляет событие во все сессии пользователя
func (h *Hub) Deliver(userID uuid.UUID, ev *events.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("Failed to marshal event %d: %v", ev.Seq, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, session := range h.userSessions[userID] {
		if !session.enqueue(data) {
			log.Printf("Session %s queue full, dropping event %d", session.ID, ev.Seq)
		}
	}
}

// OnlineUsers пользователи хотя бы с одной живой сессией
func (h *Hub) OnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userSessions))
	for userID := range h.userSessions {
		users = append(users, userID)
	}
	return users
}

// SessionCount количество живых сессий
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
