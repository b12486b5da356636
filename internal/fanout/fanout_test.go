package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/chatcore/internal/events"
)

// recordingGateway запоминает, кому что доставлено
type recordingGateway struct {
	delivered map[uuid.UUID][]*events.Event
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{delivered: make(map[uuid.UUID][]*events.Event)}
}

func (g *recordingGateway) Deliver(userID uuid.UUID, ev *events.Event) {
	g.delivered[userID] = append(g.delivered[userID], ev)
}

func newFanout(t *testing.T) (*Fanout, *recordingGateway) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	gw := newRecordingGateway()
	return New(gw, rdb, time.Hour), gw
}

func messageEvent(chatID, actorID uuid.UUID) *events.Event {
	return &events.Event{
		Seq:     1,
		Type:    events.TypeMessageSent,
		ChatID:  chatID,
		ActorID: actorID,
	}
}

func TestPublish_DeliversToAudience(t *testing.T) {
	req := require.New(t)
	f, gw := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	ev := messageEvent(chatID, alice)
	f.Publish(ctx, ev, []uuid.UUID{alice, bob})

	req.Len(gw.delivered[alice], 1)
	req.Len(gw.delivered[bob], 1)
	req.Equal(ev, gw.delivered[bob][0])
}

func TestPublish_UnreadBookkeeping(t *testing.T) {
	req := require.New(t)
	f, _ := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	req.NoError(f.TouchSession(ctx, alice, "a1"))
	req.NoError(f.TouchSession(ctx, bob, "b1"))

	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})
	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})

	// Счётчик растёт у получателя, но не у автора
	counts, err := f.UnreadCounts(ctx, bob, "b1")
	req.NoError(err)
	req.EqualValues(2, counts[chatID.String()])

	counts, err = f.UnreadCounts(ctx, alice, "a1")
	req.NoError(err)
	req.Empty(counts)
}

func TestPublish_ActiveChatSuppressesOnlyThatSession(t *testing.T) {
	req := require.New(t)
	f, _ := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	// Две вкладки одного пользователя: первая смотрит на чат,
	// вторая — нет
	req.NoError(f.MarkRead(ctx, bob, "tab1", chatID))
	req.NoError(f.TouchSession(ctx, bob, "tab2"))

	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})

	counts, err := f.UnreadCounts(ctx, bob, "tab1")
	req.NoError(err)
	req.Empty(counts)

	// Открытый в одной вкладке чат не гасит бейдж в другой
	counts, err = f.UnreadCounts(ctx, bob, "tab2")
	req.NoError(err)
	req.EqualValues(1, counts[chatID.String()])
}

func TestMarkRead_ClearsOnlyOwnSession(t *testing.T) {
	req := require.New(t)
	f, _ := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	req.NoError(f.TouchSession(ctx, bob, "tab1"))
	req.NoError(f.TouchSession(ctx, bob, "tab2"))

	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})

	req.NoError(f.MarkRead(ctx, bob, "tab1", chatID))

	counts, err := f.UnreadCounts(ctx, bob, "tab1")
	req.NoError(err)
	req.Empty(counts)

	counts, err = f.UnreadCounts(ctx, bob, "tab2")
	req.NoError(err)
	req.EqualValues(1, counts[chatID.String()])
}

func TestClearActive_ResumesCounting(t *testing.T) {
	req := require.New(t)
	f, _ := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	req.NoError(f.MarkRead(ctx, bob, "tab1", chatID))
	req.NoError(f.ClearActive(ctx, bob, "tab1"))

	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})

	counts, err := f.UnreadCounts(ctx, bob, "tab1")
	req.NoError(err)
	req.EqualValues(1, counts[chatID.String()])
}

func TestPublish_ChatDeletedDropsCounters(t *testing.T) {
	req := require.New(t)
	f, _ := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	req.NoError(f.TouchSession(ctx, bob, "tab1"))
	req.NoError(f.TouchSession(ctx, bob, "tab2"))

	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{alice, bob})

	deleted := &events.Event{
		Seq:     2,
		Type:    events.TypeChatDeleted,
		ChatID:  chatID,
		ActorID: alice,
	}
	f.Publish(ctx, deleted, []uuid.UUID{alice, bob})

	// Непрочитанное мёртвого чата не висит ни в одной сессии
	for _, session := range []string{"tab1", "tab2"} {
		counts, err := f.UnreadCounts(ctx, bob, session)
		req.NoError(err)
		req.Empty(counts)
	}
}

func TestPublish_NoSessionsNoCounters(t *testing.T) {
	req := require.New(t)
	f, gw := newFanout(t)
	ctx := context.Background()

	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	// Пользователь без зарегистрированных сессий: доставка идёт,
	// учёт просто пуст
	f.Publish(ctx, messageEvent(chatID, alice), []uuid.UUID{bob})
	req.Len(gw.delivered[bob], 1)

	counts, err := f.UnreadCounts(ctx, bob, "fresh")
	req.NoError(err)
	req.Empty(counts)
}
