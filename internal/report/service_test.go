package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db/dbtest"
	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/match"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/rating"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

func TestDetermineWinner(t *testing.T) {
	a, b := models.SideAlpha, models.SideBravo

	tests := []struct {
		name    string
		winners []models.Side
		want    models.Side
		wantErr bool
	}{
		{"alpha sweep", []models.Side{a, a, a, a}, a, false},
		{"bravo sweep", []models.Side{b, b, b, b}, b, false},
		{"full series alpha", []models.Side{a, b, a, b, a, b, a}, a, false},
		{"comeback bravo", []models.Side{a, a, a, b, b, b, b}, b, false},
		{"even split last map decides", []models.Side{a, b, a, b}, b, false},
		{"single map", []models.Side{a}, a, false},
		{"empty report", nil, "", true},
		{"too many maps", []models.Side{a, a, a, a, a, a, a, a}, "", true},
		{"played after decided", []models.Side{a, a, a, a, b}, "", true},
		{"unknown side", []models.Side{a, "CHARLIE"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetermineWinner(tt.winners)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWinners)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type resolveFixture struct {
	service    *Service
	fake       *dbtest.Fake
	matchID    uuid.UUID
	alphaID    uuid.UUID
	bravoID    uuid.UUID
	alphaUsers []uuid.UUID
	bravoUsers []uuid.UUID
}

// newResolveFixture seeds two full groups and an unresolved match between
// them.
func newResolveFixture(t *testing.T) *resolveFixture {
	t.Helper()
	ctx := context.Background()
	fake := dbtest.NewFake()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	groupRepo := group.NewRepository(fake)
	seed := func(n int) (uuid.UUID, []uuid.UUID) {
		g, err := groupRepo.CreateGroup(ctx, uuid.New(), clock.Now())
		require.NoError(t, err)
		users := make([]uuid.UUID, n)
		for i := range users {
			users[i] = uuid.New()
			require.NoError(t, groupRepo.AddMember(ctx, g.ID, users[i], models.MemberRoleRegular, clock.Now()))
		}
		return g.ID, users
	}
	alphaID, alphaUsers := seed(4)
	bravoID, bravoUsers := seed(4)

	matchRepo := match.NewRepository(fake)
	created, err := matchRepo.CreateMatch(ctx, uuid.New(), alphaID, bravoID, testMapList(), &models.Memento{}, clock.Now())
	require.NoError(t, err)

	service := &Service{
		clock:    clock,
		schedule: season.DefaultSchedule(),
		rater:    rating.NewRater(rating.DefaultConfig()),
	}
	return &resolveFixture{
		service:    service,
		fake:       fake,
		matchID:    created.ID,
		alphaID:    alphaID,
		bravoID:    bravoID,
		alphaUsers: alphaUsers,
		bravoUsers: bravoUsers,
	}
}

func testMapList() models.MapList {
	var list models.MapList
	stages := []string{
		"Scorch Gorge", "MakoMart", "Manta Maria", "Wahoo World",
		"Flounder Heights", "Hammerhead Bridge", "Mahi-Mahi Resort",
	}
	modes := models.RankedModes
	for i := range list {
		list[i] = models.MapListEntry{Mode: modes[i%len(modes)], Stage: stages[i]}
	}
	return list
}

func TestReportScoreResolvesMatch(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()
	winners := []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha}

	err := fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{Winners: winners})
	require.NoError(t, err)

	// Match carries the outcome.
	resolved, err := match.NewRepository(fx.fake).Match(ctx, fx.matchID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved())
	assert.Equal(t, winners, resolved.Winners)

	// Eight user skill rows plus two team identifier rows.
	var userRows, teamRows int
	for _, s := range fx.fake.Skills {
		switch {
		case s.UserID.Valid:
			userRows++
			assert.Equal(t, int32(1), s.MatchesCount)
		case s.Identifier.Valid:
			teamRows++
		}
	}
	assert.Equal(t, 8, userRows)
	assert.Equal(t, 2, teamRows)

	// Winners gained, losers lost, relative to the default prior.
	def := fx.service.rater.DefaultRating()
	winnerSet := make(map[uuid.UUID]bool)
	for _, id := range fx.alphaUsers {
		winnerSet[id] = true
	}
	for _, s := range fx.fake.Skills {
		if !s.UserID.Valid {
			continue
		}
		if winnerSet[s.UserID.UUID] {
			assert.Greater(t, s.Mu, def.Mu)
		} else {
			assert.Less(t, s.Mu, def.Mu)
		}
		assert.Less(t, s.Sigma, def.Sigma)
		assert.InDelta(t, models.Ordinal(s.Mu, s.Sigma), s.Ordinal, 1e-9)
	}

	// Both groups retired from the queue.
	for _, g := range fx.fake.Groups {
		assert.Equal(t, "INACTIVE", g.Status)
	}

	// Derived rows: one per played map, one per player.
	assert.Len(t, fx.fake.MapResults, len(winners))
	assert.Len(t, fx.fake.PlayerRes, 8)
	for _, pr := range fx.fake.PlayerRes {
		assert.Equal(t, int32(len(winners)), pr.MapsPlayed)
		assert.Equal(t, winnerSet[pr.UserID], pr.Won)
	}

	// Outbox event enqueued with the outcome.
	require.Len(t, fx.fake.OutboxEvents, 1)
	event := fx.fake.OutboxEvents[0]
	assert.Equal(t, "match.resolved", event.EventType)
	var payload MatchResolvedEvent
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, fx.matchID, payload.MatchID)
	assert.Equal(t, fx.alphaID, payload.WinnerGroupID)
	assert.Equal(t, fx.bravoID, payload.LoserGroupID)
	assert.Equal(t, models.SideAlpha, payload.WinnerSide)
	assert.Equal(t, len(winners), payload.MapsPlayed)
}

func TestReportScoreSecondReportChangesNothing(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()
	winners := []models.Side{models.SideBravo, models.SideBravo, models.SideBravo, models.SideBravo}

	require.NoError(t, fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{Winners: winners}))
	skillsBefore := len(fx.fake.Skills)
	eventsBefore := len(fx.fake.OutboxEvents)

	err := fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{
		Winners: []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha},
	})
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	assert.Len(t, fx.fake.Skills, skillsBefore)
	assert.Len(t, fx.fake.OutboxEvents, eventsBefore)
	resolved, err := match.NewRepository(fx.fake).Match(ctx, fx.matchID)
	require.NoError(t, err)
	assert.Equal(t, winners, resolved.Winners)
}

func TestReportScoreInvalidWinnersLeavesMatchOpen(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()

	err := fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{
		Winners: []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideBravo},
	})
	assert.ErrorIs(t, err, ErrInvalidWinners)

	open, err := match.NewRepository(fx.fake).Match(ctx, fx.matchID)
	require.NoError(t, err)
	assert.False(t, open.Resolved())
	assert.Empty(t, fx.fake.Skills)
}

func TestReportScoreUnknownMatch(t *testing.T) {
	fx := newResolveFixture(t)

	err := fx.service.reportScoreTx(context.Background(), fx.fake, uuid.New(), ReportScoreRequest{
		Winners: []models.Side{models.SideAlpha},
	})
	assert.ErrorIs(t, err, match.ErrMatchNotFound)
}

func TestReportScoreGrowsTeamSkillHistory(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()
	winners := []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha}

	require.NoError(t, fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{Winners: winners}))

	identifier := models.TeamIdentifier(fx.alphaUsers)
	found := false
	for _, s := range fx.fake.Skills {
		if s.Identifier.Valid && s.Identifier.String == identifier {
			found = true
			assert.Equal(t, int32(1), s.MatchesCount)
		}
	}
	assert.True(t, found, "winning team identifier row written")
}

func TestReportScoreSkipsTeamRowsForPartialGroups(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()

	// Shrink bravo to three members; no team rows should be written.
	groupRepo := group.NewRepository(fx.fake)
	removed, err := groupRepo.RemoveMember(ctx, fx.bravoID, fx.bravoUsers[3])
	require.NoError(t, err)
	require.True(t, removed)

	winners := []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha}
	require.NoError(t, fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{Winners: winners}))

	var userRows, teamRows int
	for _, s := range fx.fake.Skills {
		if s.UserID.Valid {
			userRows++
		}
		if s.Identifier.Valid {
			teamRows++
		}
	}
	assert.Equal(t, 7, userRows)
	assert.Zero(t, teamRows)
}

func TestReportScoreWeaponValidation(t *testing.T) {
	fx := newResolveFixture(t)
	ctx := context.Background()
	winners := []models.Side{models.SideAlpha, models.SideAlpha, models.SideAlpha, models.SideAlpha}

	err := fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{
		Winners: winners,
		Weapons: []WeaponReport{{UserID: fx.alphaUsers[0], MapIndex: 6, WeaponID: 40}},
	})
	assert.ErrorIs(t, err, ErrInvalidWinners)

	fx = newResolveFixture(t)
	err = fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{
		Winners: winners,
		Weapons: []WeaponReport{{UserID: uuid.New(), MapIndex: 0, WeaponID: 40}},
	})
	assert.ErrorIs(t, err, ErrInvalidWinners)

	fx = newResolveFixture(t)
	err = fx.service.reportScoreTx(ctx, fx.fake, fx.matchID, ReportScoreRequest{
		Winners: winners,
		Weapons: []WeaponReport{
			{UserID: fx.alphaUsers[0], MapIndex: 0, WeaponID: 40},
			{UserID: fx.bravoUsers[1], MapIndex: 3, WeaponID: 1021},
		},
	})
	require.NoError(t, err)
	assert.Len(t, fx.fake.Weapons, 2)
}
