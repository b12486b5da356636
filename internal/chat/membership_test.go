package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/events"
	"github.com/thereayou/chatcore/internal/models"
)

func newMemberships(t *testing.T) (*Memberships, *recorder, *database.Database) {
	t.Helper()
	db := newTestDB(t)
	rec := &recorder{}
	return NewMemberships(db, rec), rec, db
}

func newRoom(t *testing.T, db *database.Database, createdBy *models.User) *models.Chat {
	t.Helper()
	room := &models.Chat{
		Title:     "room",
		IsGroup:   true,
		IsRoom:    true,
		CreatedBy: createdBy.ID,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateChat(room))
	return room
}

func newGroup(t *testing.T, db *database.Database, createdBy *models.User) *models.Chat {
	t.Helper()
	group := &models.Chat{
		Title:     "group",
		IsGroup:   true,
		CreatedBy: createdBy.ID,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.CreateChat(group))
	return group
}

func TestJoin_OnlyRooms(t *testing.T) {
	req := require.New(t)
	svc, _, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	group := newGroup(t, db, alice)
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, time.Now())

	err := svc.Join(ctx, group.ID, bob.ID)
	req.ErrorIs(err, ErrRoomNotJoinable)
}

func TestJoin_FirstMemberBecomesAdmin(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	room := newRoom(t, db, alice)

	req.NoError(svc.Join(ctx, room.ID, alice.ID))

	first, err := db.ActiveMembership(room.ID, alice.ID)
	req.NoError(err)
	req.Equal(models.RoleAdmin, first.Role)

	req.NoError(svc.Join(ctx, room.ID, bob.ID))

	second, err := db.ActiveMembership(room.ID, bob.ID)
	req.NoError(err)
	req.Equal(models.RoleMember, second.Role)

	req.Equal([]events.Type{events.TypeMemberJoined, events.TypeMemberJoined}, rec.types())

	err = svc.Join(ctx, room.ID, bob.ID)
	req.ErrorIs(err, ErrAlreadyMember)
}

func TestJoin_RejoinRevivesMembership(t *testing.T) {
	req := require.New(t)
	svc, _, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	room := newRoom(t, db, alice)

	req.NoError(svc.Join(ctx, room.ID, alice.ID))
	req.NoError(svc.Join(ctx, room.ID, bob.ID))

	before, err := db.GetMembership(room.ID, bob.ID)
	req.NoError(err)

	req.NoError(svc.Leave(ctx, room.ID, bob.ID))
	req.NoError(svc.Join(ctx, room.ID, bob.ID))

	// Та же строка участия: уникальность пары (chat, user) не нарушается
	after, err := db.GetMembership(room.ID, bob.ID)
	req.NoError(err)
	req.Equal(before.ID, after.ID)
	req.True(after.Active())
}

func TestLeave_SoleAdminPromotesEarliestJoined(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	carol := newUser(t, db, "carol")
	group := newGroup(t, db, alice)

	base := time.Now()
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, base)
	addMember(t, db, group.ID, carol.ID, models.RoleMember, base.Add(2*time.Hour))
	addMember(t, db, group.ID, bob.ID, models.RoleMember, base.Add(time.Hour))

	req.NoError(svc.Leave(ctx, group.ID, alice.ID))

	// Права переходят раньше всех вступившему, а не случайному участнику
	promoted, err := db.ActiveMembership(group.ID, bob.ID)
	req.NoError(err)
	req.Equal(models.RoleAdmin, promoted.Role)

	still, err := db.ActiveMembership(group.ID, carol.ID)
	req.NoError(err)
	req.Equal(models.RoleMember, still.Role)

	admins, err := db.CountActiveAdmins(group.ID)
	req.NoError(err)
	req.EqualValues(1, admins)

	// Повышение публикуется до выхода: окна без админа не видно и в журнале
	req.Equal([]events.Type{events.TypeMemberPromoted, events.TypeMemberLeft}, rec.types())
}

func TestLeave_LastMemberDeletesChat(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	room := newRoom(t, db, alice)

	req.NoError(svc.Join(ctx, room.ID, alice.ID))
	rec.reset()

	req.NoError(svc.Leave(ctx, room.ID, alice.ID))

	_, err := db.GetChat(room.ID.String())
	req.ErrorIs(err, gorm.ErrRecordNotFound)

	req.Equal([]events.Type{events.TypeMemberLeft, events.TypeChatDeleted}, rec.types())

	// Участие закрыто на последнем событии: alice получает и выход,
	// и удаление, но ничего после
	m, err := db.GetMembership(room.ID, alice.ID)
	req.NoError(err)
	req.NotNil(m.LeftSeq)
	req.Equal(rec.last().event.Seq, *m.LeftSeq)
}

func TestLeave_NotMember(t *testing.T) {
	req := require.New(t)
	svc, _, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	group := newGroup(t, db, alice)
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, time.Now())

	err := svc.Leave(ctx, group.ID, bob.ID)
	req.ErrorIs(err, ErrNotMember)
}

func TestAddMember_AdminGate(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	carol := newUser(t, db, "carol")
	group := newGroup(t, db, alice)
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, time.Now())
	addMember(t, db, group.ID, bob.ID, models.RoleMember, time.Now())
	rec.reset()

	err := svc.AddMember(ctx, group.ID, carol.ID, bob.ID)
	req.ErrorIs(err, ErrPermissionDenied)

	req.NoError(svc.AddMember(ctx, group.ID, carol.ID, alice.ID))

	m, err := db.ActiveMembership(group.ID, carol.ID)
	req.NoError(err)
	req.Equal(models.RoleMember, m.Role)

	err = svc.AddMember(ctx, group.ID, carol.ID, alice.ID)
	req.ErrorIs(err, ErrAlreadyMember)

	req.Equal([]events.Type{events.TypeMemberJoined}, rec.types())
	req.True(audienceSet(rec.last())[carol.ID])
}

func TestAddMember_DirectChatNotExpandable(t *testing.T) {
	req := require.New(t)
	svc, _, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	carol := newUser(t, db, "carol")

	store := NewStore(db, &recorder{}, nil)
	dm, _, err := store.CreateDirect(ctx, alice.ID, bob.ID)
	req.NoError(err)

	// Личный чат не растёт: ровно два участника, даже для админа
	err = svc.AddMember(ctx, dm.ID, carol.ID, alice.ID)
	req.ErrorIs(err, ErrNotGroupChat)

	n, err := db.CountActiveMembers(dm.ID)
	req.NoError(err)
	req.EqualValues(2, n)
}

func TestRemoveMember_CutsEventStream(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	group := newGroup(t, db, alice)
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, time.Now())
	addMember(t, db, group.ID, bob.ID, models.RoleMember, time.Now())

	err := svc.RemoveMember(ctx, group.ID, alice.ID, bob.ID)
	req.ErrorIs(err, ErrPermissionDenied)

	req.NoError(svc.RemoveMember(ctx, group.ID, bob.ID, alice.ID))

	// Исключённый входит в аудиторию собственного удаления
	req.Equal([]events.Type{events.TypeMemberLeft}, rec.types())
	req.True(audienceSet(rec.last())[bob.ID])
	removalSeq := rec.last().event.Seq

	// Дальнейшая жизнь чата для него невидима
	lifecycle := NewLifecycle(db, rec)
	_, err = lifecycle.Send(ctx, group.ID, alice.ID, "after removal")
	req.NoError(err)

	evs, err := db.EventsSince(bob.ID, 0, 100)
	req.NoError(err)
	req.NotEmpty(evs)
	req.Equal(removalSeq, evs[len(evs)-1].Seq)

	_, err = lifecycle.Send(ctx, group.ID, bob.ID, "let me in")
	req.ErrorIs(err, ErrNotMember)
}

func TestRemoveMember_SelfIsLeave(t *testing.T) {
	req := require.New(t)
	svc, rec, db := newMemberships(t)
	ctx := context.Background()

	alice := newUser(t, db, "alice")
	bob := newUser(t, db, "bob")
	group := newGroup(t, db, alice)
	addMember(t, db, group.ID, alice.ID, models.RoleAdmin, time.Now())
	addMember(t, db, group.ID, bob.ID, models.RoleMember, time.Now())
	rec.reset()

	req.NoError(svc.RemoveMember(ctx, group.ID, bob.ID, bob.ID))

	req.Equal([]events.Type{events.TypeMemberLeft}, rec.types())

	_, err := db.ActiveMembership(group.ID, bob.ID)
	req.ErrorIs(err, gorm.ErrRecordNotFound)
}
