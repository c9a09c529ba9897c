package leaderboard

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/db/dbtest"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

const testSeason = 3

func newTestLeaderboard(t *testing.T, cfg Config) (*Service, *dbtest.Fake) {
	t.Helper()
	fake := dbtest.NewFake()
	ttl := cfg.RosterCacheTTL
	if ttl <= 0 {
		ttl = DefaultConfig().RosterCacheTTL
	}
	ignored := make(map[string]bool, len(cfg.IgnoredTeams))
	for _, members := range cfg.IgnoredTeams {
		ignored[models.TeamIdentifier(members)] = true
	}
	service := &Service{
		repo:     NewRepository(fake),
		clock:    clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
		schedule: season.DefaultSchedule(),
		ignored:  ignored,
		rosters:  newRosterCache(ttl),
	}
	return service, fake
}

// fourUsers returns a sorted team of four so member order is deterministic.
func fourUsers() []uuid.UUID {
	users := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	sort.Slice(users, func(i, j int) bool { return users[i].String() < users[j].String() })
	return users
}

func insertTeamSkill(t *testing.T, fake *dbtest.Fake, members []uuid.UUID, ordinal float64, matches int) {
	t.Helper()
	// Ordinal drives ranking; mu/sigma are backed out so the row is coherent.
	sigma := 5.0
	mu := ordinal + 3*sigma
	_, err := fake.InsertSkill(context.Background(), db.InsertSkillParams{
		ID:           uuid.New(),
		Identifier:   sql.NullString{String: models.TeamIdentifier(members), Valid: true},
		Season:       testSeason,
		Type:         string(models.SkillTypeRanked),
		Mu:           mu,
		Sigma:        sigma,
		Ordinal:      ordinal,
		MatchesCount: int32(matches),
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
}

func insertUserSkill(t *testing.T, fake *dbtest.Fake, userID uuid.UUID, ordinal float64, matches int) {
	t.Helper()
	sigma := 5.0
	mu := ordinal + 3*sigma
	_, err := fake.InsertSkill(context.Background(), db.InsertSkillParams{
		ID:           uuid.New(),
		UserID:       uuid.NullUUID{UUID: userID, Valid: true},
		Season:       testSeason,
		Type:         string(models.SkillTypeRanked),
		Mu:           mu,
		Sigma:        sigma,
		Ordinal:      ordinal,
		MatchesCount: int32(matches),
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)
}

func TestTeamLeaderboardOrdersByOrdinal(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	strong, weak := fourUsers(), fourUsers()
	for _, u := range append(append([]uuid.UUID(nil), strong...), weak...) {
		insertUserSkill(t, fake, u, 10, season.DefaultMinMatches)
	}
	insertTeamSkill(t, fake, weak, 5.0, 8)
	insertTeamSkill(t, fake, strong, 12.5, 9)

	entries, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.TeamIdentifier(strong), entries[0].Identifier)
	assert.Equal(t, 1, entries[0].PlacementRank)
	assert.Equal(t, 2, entries[1].PlacementRank)
	assert.Equal(t, PowerFromOrdinal(12.5), entries[0].Power)
	assert.Equal(t, strong, entries[0].Members)
}

func TestTeamLeaderboardOneEntryPerUser(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	shared := fourUsers()
	// Same four users under two identifiers (ordering differences collapse
	// into one identifier, so mutate one member instead).
	other := append([]uuid.UUID(nil), shared[:3]...)
	other = append(other, uuid.New())

	for _, u := range append(append([]uuid.UUID(nil), shared...), other[3]) {
		insertUserSkill(t, fake, u, 10, season.DefaultMinMatches)
	}
	insertTeamSkill(t, fake, shared, 20, 10)
	insertTeamSkill(t, fake, other, 15, 10)

	entries, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)

	// The lower entry shares three members with the higher one and is
	// dropped.
	require.Len(t, entries, 1)
	assert.Equal(t, models.TeamIdentifier(shared), entries[0].Identifier)

	all, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTeamLeaderboardMinMatchesGate(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	team := fourUsers()
	for i, u := range team {
		matches := season.DefaultMinMatches
		if i == 0 {
			matches = season.DefaultMinMatches - 1
		}
		insertUserSkill(t, fake, u, 10, matches)
	}
	insertTeamSkill(t, fake, team, 20, 10)

	entries, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Empty(t, entries, "one member below the season minimum hides the team")
}

func TestTeamLeaderboardIgnoreList(t *testing.T) {
	banned := fourUsers()
	service, fake := newTestLeaderboard(t, Config{IgnoredTeams: [][]uuid.UUID{banned}})
	for _, u := range banned {
		insertUserSkill(t, fake, u, 10, season.DefaultMinMatches)
	}
	insertTeamSkill(t, fake, banned, 30, 12)

	entries, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTeamLeaderboardSharedTeamBadge(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	members := fourUsers()
	for _, u := range members {
		insertUserSkill(t, fake, u, 10, season.DefaultMinMatches)
	}
	insertTeamSkill(t, fake, members, 18, 9)

	teamID := uuid.New()
	for _, u := range members {
		fake.Rosters = append(fake.Rosters, db.TeamRoster{TeamID: teamID, UserID: u})
	}
	// A second team that only has three of the four members.
	partialTeamID := uuid.New()
	for _, u := range members[:3] {
		fake.Rosters = append(fake.Rosters, db.TeamRoster{TeamID: partialTeamID, UserID: u})
	}

	entries, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].SharedTeamID)
	assert.Equal(t, teamID, *entries[0].SharedTeamID)
}

func TestRosterCacheServesStaleUntilInvalidated(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	members := fourUsers()
	for _, u := range members {
		insertUserSkill(t, fake, u, 10, season.DefaultMinMatches)
	}
	insertTeamSkill(t, fake, members, 18, 9)

	first, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Nil(t, first[0].SharedTeamID)

	// Roster appears after the cache was primed with "no team".
	teamID := uuid.New()
	for _, u := range members {
		fake.Rosters = append(fake.Rosters, db.TeamRoster{TeamID: teamID, UserID: u})
	}

	stale, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	assert.Nil(t, stale[0].SharedTeamID, "cached roster still served")

	service.InvalidateRosters()
	fresh, err := service.TeamLeaderboardBySeason(context.Background(), testSeason, true)
	require.NoError(t, err)
	require.NotNil(t, fresh[0].SharedTeamID)
	assert.Equal(t, teamID, *fresh[0].SharedTeamID)
}

func TestUserSPLeaderboardDenseRank(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	first, secondA, secondB, third := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	insertUserSkill(t, fake, first, 20, season.DefaultMinMatches)
	insertUserSkill(t, fake, secondA, 15, season.DefaultMinMatches)
	insertUserSkill(t, fake, secondB, 15, season.DefaultMinMatches)
	insertUserSkill(t, fake, third, 10, season.DefaultMinMatches)
	// Below the play threshold; never listed.
	insertUserSkill(t, fake, uuid.New(), 25, season.DefaultMinMatches-1)

	entries, err := service.UserSPLeaderboard(context.Background(), testSeason)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, 1, entries[0].PlacementRank)
	assert.Equal(t, 2, entries[1].PlacementRank)
	assert.Equal(t, 2, entries[2].PlacementRank)
	assert.Equal(t, 3, entries[3].PlacementRank)
}

func TestUserSPLeaderboardUsesLatestRow(t *testing.T) {
	service, fake := newTestLeaderboard(t, DefaultConfig())
	userID := uuid.New()
	insertUserSkill(t, fake, userID, 10, season.DefaultMinMatches)
	insertUserSkill(t, fake, userID, 14, season.DefaultMinMatches+1)

	entries, err := service.UserSPLeaderboard(context.Background(), testSeason)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 14, entries[0].Ordinal, 1e-9)
	assert.Equal(t, season.DefaultMinMatches+1, entries[0].MatchesCount)
}

func TestPowerFromOrdinal(t *testing.T) {
	assert.InDelta(t, 1000.0, PowerFromOrdinal(0), 1e-9)
	assert.InDelta(t, 1150.0, PowerFromOrdinal(10), 1e-9)
	assert.Greater(t, PowerFromOrdinal(5), PowerFromOrdinal(4.9))
	// One decimal place.
	assert.InDelta(t, 1000.2, PowerFromOrdinal(0.0123), 1e-9)
}

func TestParseIdentifierRoundTrip(t *testing.T) {
	members := fourUsers()
	parsed, ok := parseIdentifier(models.TeamIdentifier(members))
	require.True(t, ok)
	assert.Equal(t, members, parsed)

	_, ok = parseIdentifier("not-an-identifier")
	assert.False(t, ok)
}
