package chat

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

// recorder собирает опубликованные события вместо доставки
type recorder struct {
	published []published
}

type published struct {
	event    *events.Event
	audience []uuid.UUID
}

func (r *recorder) Publish(_ context.Context, ev *events.Event, audience []uuid.UUID) {
	r.published = append(r.published, published{event: ev, audience: audience})
}

func (r *recorder) types() []events.Type {
	out := make([]events.Type, len(r.published))
	for i, p := range r.published {
		out[i] = p.event.Type
	}
	return out
}

func (r *recorder) last() published {
	return r.published[len(r.published)-1]
}

func (r *recorder) reset() {
	r.published = nil
}

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

func addMember(t *testing.T, db *database.Database, chatID, userID uuid.UUID, role models.Role, joinedAt time.Time) *models.Membership {
	t.Helper()

	m := &models.Membership{
		ChatID:   chatID,
		UserID:   userID,
		Role:     role,
		JoinedAt: joinedAt,
	}
	require.NoError(t, db.CreateMembership(m))
	return m
}

func audienceSet(p published) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(p.audience))
	for _, id := range p.audience {
		set[id] = true
	}
	return set
}
