package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListLatestIdentifierSkillsBySeason(ctx context.Context, arg db.ListLatestIdentifierSkillsBySeasonParams) ([]db.Skill, error)
	ListLatestUserSkillsBySeason(ctx context.Context, arg db.ListLatestUserSkillsBySeasonParams) ([]db.Skill, error)
	WeaponPopularityBySeason(ctx context.Context, arg db.WeaponPopularityBySeasonParams) ([]db.WeaponPopularityBySeasonRow, error)
	ListTeamRostersByUsers(ctx context.Context, userIDs []uuid.UUID) ([]db.TeamRoster, error)
}

// Repository implements the read-only leaderboard data access. Leaderboard
// reads take no locks and may observe a slightly stale snapshot.
type Repository struct {
	queries Querier
}

// NewRepository creates a new leaderboard repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// LatestTeamSkills returns the most recent skill row per team identifier for
// a season.
func (r *Repository) LatestTeamSkills(ctx context.Context, seasonN int, skillType models.SkillType) ([]db.Skill, error) {
	rows, err := r.queries.ListLatestIdentifierSkillsBySeason(ctx, db.ListLatestIdentifierSkillsBySeasonParams{
		Season: int32(seasonN),
		Type:   string(skillType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list latest team skills: %w", err)
	}
	return rows, nil
}

// LatestUserSkills returns the most recent skill row per user for a season.
func (r *Repository) LatestUserSkills(ctx context.Context, seasonN int, skillType models.SkillType) ([]db.Skill, error) {
	rows, err := r.queries.ListLatestUserSkillsBySeason(ctx, db.ListLatestUserSkillsBySeasonParams{
		Season: int32(seasonN),
		Type:   string(skillType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list latest user skills: %w", err)
	}
	return rows, nil
}

// WeaponPopularity aggregates reported weapon usage over a season's window.
func (r *Repository) WeaponPopularity(ctx context.Context, arg db.WeaponPopularityBySeasonParams) ([]models.WeaponPopularityEntry, error) {
	rows, err := r.queries.WeaponPopularityBySeason(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate weapon popularity: %w", err)
	}
	entries := make([]models.WeaponPopularityEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.WeaponPopularityEntry{
			WeaponID:   int(row.WeaponID),
			UsageCount: int(row.UsageCount),
			UserCount:  int(row.UserCount),
		}
	}
	return entries, nil
}

// TeamRosters returns persistent-team memberships for the given users,
// grouped by user.
func (r *Repository) TeamRosters(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := r.queries.ListTeamRostersByUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list team rosters: %w", err)
	}
	byUser := make(map[uuid.UUID][]uuid.UUID)
	for _, row := range rows {
		byUser[row.UserID] = append(byUser[row.UserID], row.TeamID)
	}
	return byUser, nil
}
