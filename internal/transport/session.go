package transport

import (
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время ожидания записи
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Интервал отправки ping
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего кадра
	maxMessageSize = 4 * 1024

	// Ёмкость очереди отправки сессии
	sendQueueSize = 256
)

// Session одно websocket-соединение. Клиент подтверждает приём
// кадрами {"type":"ack","cursor":N}; курсор нужен только для
// переподключения — повторная доставка идёт от него.
type Session struct {
	ID     uuid.UUID
	UserID uuid.UUID

	conn   *websocket.Conn
	send   chan []byte
	cursor atomic.Int64
	hub    *Hub
}

func NewSession(hub *Hub, conn *websocket.Conn, userID uuid.UUID, cursor int64) *Session {
	s := &Session{
		ID:     uuid.New(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		hub:    hub,
	}
	s.cursor.Store(cursor)
	return s
}

func (s *Session) Cursor() int64 {
	return s.cursor.Load()
}

// enqueue неблокирующая постановка кадра в очередь сессии
func (s *Session) enqueue(data []byte) bool {
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

type controlFrame struct {
	Type   string `json:"type"`
	Cursor int64  `json:"cursor"`
}

// ReadPump читает управляющие кадры клиента
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var frame controlFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		if frame.Type == "ack" && frame.Cursor > s.cursor.Load() {
			s.cursor.Store(frame.Cursor)
		}
	}
}

// WritePump отправляет события клиенту
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub закрыл канал
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
