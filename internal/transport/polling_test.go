package transport

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thereayou/chatcore/internal/chat"
	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// nopPublisher: транспортным тестам важен журнал, а не доставка
type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *events.Event, []uuid.UUID) {}

func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return database.NewDatabase(db)
}

func newUser(t *testing.T, db *database.Database, username string) *models.User {
	t.Helper()

	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, db.SaveUser(u))
	return u
}

func TestFetchSince_OrderAndCursor(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	store := chat.NewStore(db, nopPublisher{}, nil)
	lifecycle := chat.NewLifecycle(db, nopPublisher{})

	room, _, err := store.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)
	for _, text := range []string{"one", "two", "three"} {
		_, err := lifecycle.Send(ctx, room.ID, alice.ID, text)
		req.NoError(err)
	}

	poller := NewPoller(db, 100)

	evs, next, err := poller.FetchSince(bob.ID, 0)
	req.NoError(err)
	req.Len(evs, 4) // chat_created + три сообщения

	// Порядок журнала: seq строго возрастает, курсор равен последнему
	for i := 1; i < len(evs); i++ {
		req.Greater(evs[i].Seq, evs[i-1].Seq)
	}
	req.Equal(events.TypeChatCreated, evs[0].Type)
	req.Equal(evs[len(evs)-1].Seq, next)

	// Повторный запрос с новым курсором пуст и курсор не откатывается
	evs, next2, err := poller.FetchSince(bob.ID, next)
	req.NoError(err)
	req.Empty(evs)
	req.Equal(next, next2)
}

func TestFetchSince_Pagination(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	store := chat.NewStore(db, nopPublisher{}, nil)
	lifecycle := chat.NewLifecycle(db, nopPublisher{})

	room, _, err := store.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)
	for i := 0; i < 5; i++ {
		_, err := lifecycle.Send(ctx, room.ID, alice.ID, "msg")
		req.NoError(err)
	}

	poller := NewPoller(db, 2)

	var got []*events.Event
	cursor := int64(0)
	for {
		page, next, err := poller.FetchSince(bob.ID, cursor)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		req.LessOrEqual(len(page), poller.PageSize())
		got = append(got, page...)
		cursor = next
	}

	req.Len(got, 6)
	for i := 1; i < len(got); i++ {
		req.Greater(got[i].Seq, got[i-1].Seq)
	}
}

func TestFetchSince_ScopedToOwnChats(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	carol := newUser(t, db, "carol")

	store := chat.NewStore(db, nopPublisher{}, nil)
	lifecycle := chat.NewLifecycle(db, nopPublisher{})

	shared, _, err := store.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)
	private, _, err := store.CreateDirect(ctx, alice.ID, carol.ID)
	req.NoError(err)

	_, err = lifecycle.Send(ctx, shared.ID, alice.ID, "for bob")
	req.NoError(err)
	_, err = lifecycle.Send(ctx, private.ID, alice.ID, "not for bob")
	req.NoError(err)

	poller := NewPoller(db, 100)

	evs, _, err := poller.FetchSince(bob.ID, 0)
	req.NoError(err)
	req.NotEmpty(evs)
	for _, ev := range evs {
		req.Equal(shared.ID, ev.ChatID)
	}
}

func TestFetchSince_StopsAtRemoval(t *testing.T) {
	req := require.New(t)
	db := newTestDB(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")

	store := chat.NewStore(db, nopPublisher{}, nil)
	memberships := chat.NewMemberships(db, nopPublisher{})
	lifecycle := chat.NewLifecycle(db, nopPublisher{})

	group, err := store.CreateGroup(ctx, alice.ID, "team", []uuid.UUID{bob.ID})
	req.NoError(err)

	_, err = lifecycle.Send(ctx, group.ID, alice.ID, "before")
	req.NoError(err)
	req.NoError(memberships.RemoveMember(ctx, group.ID, bob.ID, alice.ID))
	_, err = lifecycle.Send(ctx, group.ID, alice.ID, "after")
	req.NoError(err)

	poller := NewPoller(db, 100)

	// Бывший участник получает событие собственного удаления и ничего после
	evs, _, err := poller.FetchSince(bob.ID, 0)
	req.NoError(err)
	req.Len(evs, 3)
	req.Equal(events.TypeChatCreated, evs[0].Type)
	req.Equal(events.TypeMessageSent, evs[1].Type)
	req.Equal(events.TypeMemberLeft, evs[2].Type)
	req.Equal(bob.ID, *evs[2].SubjectID)

	// Админ видит и сообщение, отправленное после удаления
	full, _, err := poller.FetchSince(alice.ID, 0)
	req.NoError(err)
	req.Len(full, 4)
	req.Equal(events.TypeMessageSent, full[3].Type)
}
