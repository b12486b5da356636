package transport

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHub_UnregisterAfterStopDoesNotBlock(t *testing.T) {
	req := require.New(t)

	hub := NewHub(nil, 0)
	go hub.Run()
	hub.Stop()

	session := &Session{
		ID:     uuid.New(),
		UserID: uuid.New(),
		send:   make(chan []byte, 1),
		hub:    hub,
	}

	// После остановки hub pump-горутины должны завершаться,
	// а не виснуть на каналах без читателя
	done := make(chan struct{})
	go func() {
		hub.Unregister(session)
		hub.Register(session)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		req.Fail("Unregister blocked after hub stop")
	}

	req.Zero(hub.SessionCount())
}
