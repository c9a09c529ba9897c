package match

import (
	"context"
	"database/sql"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/db/dbtest"
	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

func newTestMatchService(t *testing.T) (*Service, *dbtest.Fake) {
	t.Helper()
	fake := dbtest.NewFake()
	service := &Service{
		clock:     clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		schedule:  season.DefaultSchedule(),
		generator: newMapListGenerator(DefaultMapPool(), rand.New(rand.NewSource(1))),
	}
	return service, fake
}

// seedGroup inserts an ACTIVE group with n members and returns its ID plus
// the member user IDs.
func seedGroup(t *testing.T, fake *dbtest.Fake, n int) (uuid.UUID, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repo := group.NewRepository(fake)
	created, err := repo.CreateGroup(ctx, uuid.New(), time.Now())
	require.NoError(t, err)

	users := make([]uuid.UUID, n)
	for i := range users {
		users[i] = uuid.New()
		role := models.MemberRoleRegular
		if i == 0 {
			role = models.MemberRoleOwner
		}
		require.NoError(t, repo.AddMember(ctx, created.ID, users[i], role, time.Now()))
	}
	return created.ID, users
}

func TestCreateMatchPairsTwoGroups(t *testing.T) {
	service, fake := newTestMatchService(t)
	ctx := context.Background()
	alphaID, alphaUsers := seedGroup(t, fake, 4)
	bravoID, _ := seedGroup(t, fake, 4)

	// One player has history; they should appear in the memento.
	seasonN := service.schedule.Latest(service.clock.Now())
	_, err := fake.InsertSkill(ctx, db.InsertSkillParams{
		ID:           uuid.New(),
		UserID:       uuid.NullUUID{UUID: alphaUsers[0], Valid: true},
		Season:       int32(seasonN),
		Type:         string(models.SkillTypeRanked),
		Mu:           26.5,
		Sigma:        7.2,
		Ordinal:      models.Ordinal(26.5, 7.2),
		MatchesCount: 3,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	created, err := service.createMatchTx(ctx, fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: bravoID,
	})
	require.NoError(t, err)

	assert.Equal(t, alphaID, created.AlphaGroupID)
	assert.Equal(t, bravoID, created.BravoGroupID)
	assert.False(t, created.Resolved())
	for _, entry := range created.MapList {
		assert.NotEmpty(t, entry.Stage)
	}

	require.NotNil(t, created.Memento)
	snap, ok := created.Memento.Users[alphaUsers[0]]
	require.True(t, ok)
	assert.InDelta(t, 26.5, snap.Mu, 1e-9)
	assert.Equal(t, 3, snap.MatchesCount)

	// Groups stay ACTIVE while the match is in progress.
	for _, g := range fake.Groups {
		assert.Equal(t, string(models.GroupStatusActive), g.Status)
	}
}

func TestCreateMatchRejectsInactiveGroup(t *testing.T) {
	service, fake := newTestMatchService(t)
	ctx := context.Background()
	alphaID, _ := seedGroup(t, fake, 4)
	bravoID, _ := seedGroup(t, fake, 4)
	require.NoError(t, fake.SetGroupInactive(ctx, bravoID))

	_, err := service.createMatchTx(ctx, fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: bravoID,
	})
	assert.ErrorIs(t, err, ErrPairingPrecondition)
}

func TestCreateMatchRejectsEmptyGroup(t *testing.T) {
	service, fake := newTestMatchService(t)
	alphaID, _ := seedGroup(t, fake, 4)
	bravoID, _ := seedGroup(t, fake, 0)

	_, err := service.createMatchTx(context.Background(), fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: bravoID,
	})
	assert.ErrorIs(t, err, ErrPairingPrecondition)
}

func TestCreateMatchRejectsOverlappingMembers(t *testing.T) {
	service, fake := newTestMatchService(t)
	ctx := context.Background()
	alphaID, alphaUsers := seedGroup(t, fake, 4)
	bravoID, _ := seedGroup(t, fake, 3)

	// Shared member between both sides. Inserted directly because the group
	// service would refuse the double membership.
	require.NoError(t, group.NewRepository(fake).AddMember(ctx, bravoID, alphaUsers[0], models.MemberRoleRegular, time.Now()))

	_, err := service.createMatchTx(ctx, fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: bravoID,
	})
	assert.ErrorIs(t, err, ErrPairingPrecondition)
}

func TestCreateMatchUnknownGroup(t *testing.T) {
	service, fake := newTestMatchService(t)
	alphaID, _ := seedGroup(t, fake, 4)

	_, err := service.createMatchTx(context.Background(), fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: uuid.New(),
	})
	assert.ErrorIs(t, err, group.ErrGroupNotFound)
}

func TestMementoSkipsPartialGroupsForTeams(t *testing.T) {
	service, fake := newTestMatchService(t)
	ctx := context.Background()
	alphaID, alphaUsers := seedGroup(t, fake, 4)
	bravoID, _ := seedGroup(t, fake, 3)

	seasonN := service.schedule.Latest(service.clock.Now())
	identifier := models.TeamIdentifier(alphaUsers)
	_, err := fake.InsertSkill(ctx, db.InsertSkillParams{
		ID:           uuid.New(),
		Identifier:   sql.NullString{String: identifier, Valid: true},
		Season:       int32(seasonN),
		Type:         string(models.SkillTypeRanked),
		Mu:           28,
		Sigma:        6,
		Ordinal:      models.Ordinal(28, 6),
		MatchesCount: 5,
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	created, err := service.createMatchTx(ctx, fake, CreateMatchRequest{
		AlphaGroupID: alphaID,
		BravoGroupID: bravoID,
	})
	require.NoError(t, err)

	require.NotNil(t, created.Memento)
	_, alphaOk := created.Memento.Groups[alphaID]
	_, bravoOk := created.Memento.Groups[bravoID]
	assert.True(t, alphaOk, "full group has a team snapshot")
	assert.False(t, bravoOk, "partial group has none")
}

func TestFindMatchByIDNotFound(t *testing.T) {
	_, fake := newTestMatchService(t)

	_, err := NewRepository(fake).Match(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
