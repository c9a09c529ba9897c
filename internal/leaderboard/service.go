package leaderboard

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
)

// Config holds leaderboard tuning: banned member sets (anti-abuse) and the
// roster-cache TTL.
type Config struct {
	// IgnoredTeams drops any entry whose member set exactly matches one of
	// these sets.
	IgnoredTeams   [][]uuid.UUID `yaml:"ignored_teams"`
	RosterCacheTTL time.Duration `yaml:"roster_cache_ttl"`
}

func DefaultConfig() Config {
	return Config{RosterCacheTTL: 5 * time.Minute}
}

// Service computes the derived, read-only leaderboards over persisted skill
// rows. It never mutates rating state.
type Service struct {
	repo     *Repository
	clock    clockwork.Clock
	schedule season.Schedule
	ignored  map[string]bool
	rosters  *rosterCache
}

// NewService creates a new leaderboard service.
func NewService(database *sql.DB, clock clockwork.Clock, schedule season.Schedule, cfg Config) *Service {
	ttl := cfg.RosterCacheTTL
	if ttl <= 0 {
		ttl = DefaultConfig().RosterCacheTTL
	}
	ignored := make(map[string]bool, len(cfg.IgnoredTeams))
	for _, members := range cfg.IgnoredTeams {
		ignored[models.TeamIdentifier(members)] = true
	}
	return &Service{
		repo:     NewRepository(db.New(database)),
		clock:    clock,
		schedule: schedule,
		ignored:  ignored,
		rosters:  newRosterCache(ttl),
	}
}

// InvalidateRosters drops the roster cache; called when a collaborator
// signals that persistent-team membership changed.
func (s *Service) InvalidateRosters() {
	s.rosters.Flush()
}

// TeamLeaderboardBySeason ranks team-of-four identifiers by their latest
// ordinal for the season. With onlyOneEntryPerUser it (a) drops entries whose
// members lack the season's individual min matches, (b) applies the banned
// member-set ignore-list, and (c) keeps only the first (highest) entry
// containing each user.
func (s *Service) TeamLeaderboardBySeason(ctx context.Context, seasonN int, onlyOneEntryPerUser bool) ([]models.LeaderboardEntry, error) {
	rows, err := s.repo.LatestTeamSkills(ctx, seasonN, models.SkillTypeRanked)
	if err != nil {
		return nil, err
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		if !row.Identifier.Valid {
			continue
		}
		members, ok := parseIdentifier(row.Identifier.String)
		if !ok {
			log.Warn().Str("identifier", row.Identifier.String).Msg("skipping malformed team identifier")
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Identifier:   row.Identifier.String,
			Members:      members,
			Mu:           row.Mu,
			Sigma:        row.Sigma,
			Ordinal:      row.Ordinal,
			Power:        PowerFromOrdinal(row.Ordinal),
			MatchesCount: int(row.MatchesCount),
		})
	}

	// Descending ordinal; ties keep the underlying query order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Ordinal > entries[j].Ordinal
	})

	if onlyOneEntryPerUser {
		entries, err = s.filterOneEntryPerUser(ctx, entries, seasonN)
		if err != nil {
			return nil, err
		}
	}

	if err := s.attachSharedTeamBadges(ctx, entries); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].PlacementRank = i + 1
	}
	return entries, nil
}

func (s *Service) filterOneEntryPerUser(ctx context.Context, entries []models.LeaderboardEntry, seasonN int) ([]models.LeaderboardEntry, error) {
	userRows, err := s.repo.LatestUserSkills(ctx, seasonN, models.SkillTypeRanked)
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int, len(userRows))
	for _, row := range userRows {
		if row.UserID.Valid {
			counts[row.UserID.UUID] = int(row.MatchesCount)
		}
	}

	minMatches := s.schedule.MinMatchesFor(seasonN)
	seen := make(map[uuid.UUID]bool)

	kept := entries[:0]
	for _, entry := range entries {
		if s.ignored[entry.Identifier] {
			continue
		}
		eligible := pie.All(entry.Members, func(id uuid.UUID) bool {
			return counts[id] >= minMatches
		})
		if !eligible {
			continue
		}
		taken := pie.Any(entry.Members, func(id uuid.UUID) bool {
			return seen[id]
		})
		if taken {
			continue
		}
		for _, id := range entry.Members {
			seen[id] = true
		}
		kept = append(kept, entry)
	}
	return kept, nil
}

// attachSharedTeamBadges marks an entry with a persistent team only when all
// four members currently belong to that one team (exact 4-of-4 overlap);
// otherwise the entry stays an ad-hoc group.
func (s *Service) attachSharedTeamBadges(ctx context.Context, entries []models.LeaderboardEntry) error {
	var allMembers []uuid.UUID
	for _, e := range entries {
		allMembers = append(allMembers, e.Members...)
	}
	if len(allMembers) == 0 {
		return nil
	}

	rosters, err := s.rosters.teamsFor(ctx, pie.Unique(allMembers), s.repo.TeamRosters)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		if len(entry.Members) != models.MaxGroupSize {
			continue
		}
		teamCounts := make(map[uuid.UUID]int)
		for _, member := range entry.Members {
			for _, teamID := range rosters[member] {
				teamCounts[teamID]++
			}
		}
		for teamID, n := range teamCounts {
			if n == models.MaxGroupSize {
				id := teamID
				entries[i].SharedTeamID = &id
				break
			}
		}
	}
	return nil
}

// UserSPLeaderboard ranks users by their latest ordinal for the season,
// filtered by the minimum matches requirement, with a dense placement rank.
func (s *Service) UserSPLeaderboard(ctx context.Context, seasonN int) ([]models.LeaderboardEntry, error) {
	rows, err := s.repo.LatestUserSkills(ctx, seasonN, models.SkillTypeRanked)
	if err != nil {
		return nil, err
	}

	minMatches := s.schedule.MinMatchesFor(seasonN)
	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		if !row.UserID.Valid || int(row.MatchesCount) < minMatches {
			continue
		}
		entries = append(entries, models.LeaderboardEntry{
			Identifier:   row.UserID.UUID.String(),
			Members:      []uuid.UUID{row.UserID.UUID},
			Mu:           row.Mu,
			Sigma:        row.Sigma,
			Ordinal:      row.Ordinal,
			Power:        PowerFromOrdinal(row.Ordinal),
			MatchesCount: int(row.MatchesCount),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Ordinal > entries[j].Ordinal
	})

	// Dense rank: equal ordinals share a placement, the next distinct
	// ordinal takes the next consecutive one.
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Ordinal != entries[i-1].Ordinal {
			rank++
		}
		entries[i].PlacementRank = rank
	}
	return entries, nil
}

// WeaponPopularityBySeason aggregates reported weapon usage over the season's
// date range.
func (s *Service) WeaponPopularityBySeason(ctx context.Context, seasonN int) ([]models.WeaponPopularityEntry, error) {
	startsAt, endsAt := s.schedule.Boundary(seasonN)
	return s.repo.WeaponPopularity(ctx, db.WeaponPopularityBySeasonParams{
		StartsAt: startsAt,
		EndsAt:   endsAt,
	})
}

func parseIdentifier(identifier string) ([]uuid.UUID, bool) {
	parts := strings.Split(identifier, "-")
	// UUIDs themselves contain dashes; a team-of-four identifier is four
	// UUIDs (5 dash-separated segments each) joined by single dashes.
	if len(parts)%5 != 0 {
		return nil, false
	}
	members := make([]uuid.UUID, 0, len(parts)/5)
	for i := 0; i+5 <= len(parts); i += 5 {
		id, err := uuid.Parse(strings.Join(parts[i:i+5], "-"))
		if err != nil {
			return nil, false
		}
		members = append(members, id)
	}
	return members, true
}
