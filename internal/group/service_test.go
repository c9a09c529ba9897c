package group

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/db/dbtest"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

func newTestService(t *testing.T) (*Service, *dbtest.Fake, *Repository) {
	t.Helper()
	fake := dbtest.NewFake()
	service := &Service{clock: clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))}
	return service, fake, NewRepository(fake)
}

func TestCreateGroupAddsOwner(t *testing.T) {
	service, fake, repo := newTestService(t)
	userID := uuid.New()

	created, err := service.createGroupTx(context.Background(), repo, userID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, models.GroupStatusActive, created.Status)

	members, err := repo.Members(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, userID, members[0].UserID)
	assert.Equal(t, models.MemberRoleOwner, members[0].Role)
	assert.Len(t, fake.Groups, 1)
}

func TestCreateGroupRejectsAlreadyQueuedUser(t *testing.T) {
	service, _, repo := newTestService(t)
	userID := uuid.New()

	_, err := service.createGroupTx(context.Background(), repo, userID)
	require.NoError(t, err)

	_, err = service.createGroupTx(context.Background(), repo, userID)
	assert.ErrorIs(t, err, ErrUserAlreadyQueued)
}

func TestAddMemberFillsGroupToFour(t *testing.T) {
	service, _, repo := newTestService(t)
	owner := uuid.New()
	ctx := context.Background()

	created, err := service.createGroupTx(ctx, repo, owner)
	require.NoError(t, err)

	for i := 0; i < models.MaxGroupSize-1; i++ {
		require.NoError(t, service.addMemberTx(ctx, repo, created.ID, uuid.New()))
	}

	err = service.addMemberTx(ctx, repo, created.ID, uuid.New())
	assert.ErrorIs(t, err, ErrGroupFull)

	count, err := repo.CountMembers(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MaxGroupSize, count)
}

func TestAddMemberRejectsUserInAnotherActiveGroup(t *testing.T) {
	service, _, repo := newTestService(t)
	ctx := context.Background()

	first, err := service.createGroupTx(ctx, repo, uuid.New())
	require.NoError(t, err)
	second, err := service.createGroupTx(ctx, repo, uuid.New())
	require.NoError(t, err)

	joiner := uuid.New()
	require.NoError(t, service.addMemberTx(ctx, repo, first.ID, joiner))

	err = service.addMemberTx(ctx, repo, second.ID, joiner)
	assert.ErrorIs(t, err, ErrUserAlreadyQueued)
}

func TestAddMemberRejectsInactiveGroup(t *testing.T) {
	service, _, repo := newTestService(t)
	ctx := context.Background()

	created, err := service.createGroupTx(ctx, repo, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.SetInactive(ctx, created.ID))

	err = service.addMemberTx(ctx, repo, created.ID, uuid.New())
	assert.ErrorIs(t, err, ErrGroupInactive)
}

func TestAddMemberUnknownGroup(t *testing.T) {
	service, _, repo := newTestService(t)

	err := service.addMemberTx(context.Background(), repo, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestRemoveMember(t *testing.T) {
	service, _, repo := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	created, err := service.createGroupTx(ctx, repo, owner)
	require.NoError(t, err)

	require.NoError(t, service.removeMemberTx(ctx, repo, created.ID, owner))

	// Emptied group stays ACTIVE until the sweeper collects it.
	g, err := repo.Group(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GroupStatusActive, g.Status)

	err = service.removeMemberTx(ctx, repo, created.ID, owner)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestUserCanRequeueAfterLeaving(t *testing.T) {
	service, _, repo := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := service.createGroupTx(ctx, repo, userID)
	require.NoError(t, err)
	require.NoError(t, service.removeMemberTx(ctx, repo, first.ID, userID))

	second, err := service.createGroupTx(ctx, repo, userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSweepEmptyRespectsMinAge(t *testing.T) {
	service, fake, repo := newTestService(t)
	ctx := context.Background()
	now := service.clock.Now()

	// Old empty group, fresh empty group, old group with a member.
	old, err := repo.CreateGroup(ctx, uuid.New(), now.Add(-10*time.Minute))
	require.NoError(t, err)
	_, err = repo.CreateGroup(ctx, uuid.New(), now.Add(-10*time.Second))
	require.NoError(t, err)
	populated, err := repo.CreateGroup(ctx, uuid.New(), now.Add(-10*time.Minute))
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, populated.ID, uuid.New(), models.MemberRoleOwner, now))

	n, err := repo.SweepEmpty(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Group(ctx, old.ID)
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Len(t, fake.Groups, 2)
}

func TestAddMemberRejectsPairedGroup(t *testing.T) {
	service, fake, repo := newTestService(t)
	ctx := context.Background()

	paired, err := service.createGroupTx(ctx, repo, uuid.New())
	require.NoError(t, err)
	opponent, err := service.createGroupTx(ctx, repo, uuid.New())
	require.NoError(t, err)

	matchID := uuid.New()
	_, err = fake.CreateMatch(ctx, db.CreateMatchParams{
		ID:           matchID,
		AlphaGroupID: paired.ID,
		BravoGroupID: opponent.ID,
		MapList:      json.RawMessage(`[]`),
		CreatedAt:    service.clock.Now(),
	})
	require.NoError(t, err)

	err = service.addMemberTx(ctx, repo, paired.ID, uuid.New())
	assert.ErrorIs(t, err, ErrGroupPaired)
	err = service.addMemberTx(ctx, repo, opponent.ID, uuid.New())
	assert.ErrorIs(t, err, ErrGroupPaired)

	// The guard keys on unresolved matches only; once the match resolves the
	// group is done (it goes INACTIVE at resolution), not frozen.
	_, err = fake.ResolveMatch(ctx, db.ResolveMatchParams{
		ID:         matchID,
		Winners:    json.RawMessage(`["ALPHA"]`),
		ReportedAt: service.clock.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, service.addMemberTx(ctx, repo, paired.ID, uuid.New()))
}
