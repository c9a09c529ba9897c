package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.Match, error)
	GetMatch(ctx context.Context, id uuid.UUID) (db.Match, error)
	GetMatchForUpdate(ctx context.Context, id uuid.UUID) (db.Match, error)
	ResolveMatch(ctx context.Context, arg db.ResolveMatchParams) (int64, error)
	GetLatestUserSkill(ctx context.Context, arg db.GetLatestUserSkillParams) (db.Skill, error)
	GetLatestIdentifierSkill(ctx context.Context, arg db.GetLatestIdentifierSkillParams) (db.Skill, error)
	GetSeedingSkill(ctx context.Context, arg db.GetSeedingSkillParams) (db.SeedingSkill, error)
}

// Repository implements match data access. It is the single
// (de)serialization boundary for the map list, memento and winners columns;
// business logic only ever sees the structured value types.
type Repository struct {
	queries Querier
}

// NewRepository creates a new match repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// CreateMatch persists a new unresolved match.
func (r *Repository) CreateMatch(ctx context.Context, id uuid.UUID, alpha, bravo uuid.UUID, mapList models.MapList, memento *models.Memento, now time.Time) (*models.Match, error) {
	mapListJSON, err := json.Marshal(mapList)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal map list: %w", err)
	}
	mementoCol := pqtype.NullRawMessage{}
	if memento != nil {
		raw, err := json.Marshal(memento)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal memento: %w", err)
		}
		mementoCol = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	m, err := r.queries.CreateMatch(ctx, db.CreateMatchParams{
		ID:           id,
		AlphaGroupID: alpha,
		BravoGroupID: bravo,
		MapList:      mapListJSON,
		Memento:      mementoCol,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return dbMatchToModel(m)
}

// Match retrieves a match by ID; ErrMatchNotFound when absent.
func (r *Repository) Match(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := r.queries.GetMatch(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return dbMatchToModel(m)
}

// MatchForUpdate retrieves a match under a row lock so the resolved check
// and the resolution write share one critical section.
func (r *Repository) MatchForUpdate(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	m, err := r.queries.GetMatchForUpdate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock match: %w", err)
	}
	return dbMatchToModel(m)
}

// Resolve writes winners and reportedAt, reporting whether the write landed
// (false means another report already resolved the match).
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, winners []models.Side, reportedAt time.Time) (bool, error) {
	winnersJSON, err := json.Marshal(winners)
	if err != nil {
		return false, fmt.Errorf("failed to marshal winners: %w", err)
	}
	n, err := r.queries.ResolveMatch(ctx, db.ResolveMatchParams{
		ID:         id,
		Winners:    winnersJSON,
		ReportedAt: reportedAt,
	})
	if err != nil {
		return false, fmt.Errorf("failed to resolve match: %w", err)
	}
	return n > 0, nil
}

// UserSnapshot returns the user's current rating belief for the memento:
// latest skill row, else seeding skill, else nothing (ok=false).
func (r *Repository) UserSnapshot(ctx context.Context, userID uuid.UUID, seasonN int, skillType models.SkillType) (models.SkillSnapshot, bool, error) {
	row, err := r.queries.GetLatestUserSkill(ctx, db.GetLatestUserSkillParams{
		UserID: userID,
		Season: int32(seasonN),
		Type:   string(skillType),
	})
	if err == nil {
		return models.SkillSnapshot{
			Mu:           row.Mu,
			Sigma:        row.Sigma,
			Ordinal:      row.Ordinal,
			MatchesCount: int(row.MatchesCount),
		}, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.SkillSnapshot{}, false, fmt.Errorf("failed to get latest user skill: %w", err)
	}

	seed, err := r.queries.GetSeedingSkill(ctx, db.GetSeedingSkillParams{
		UserID: userID,
		Type:   string(skillType),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.SkillSnapshot{}, false, nil
	}
	if err != nil {
		return models.SkillSnapshot{}, false, fmt.Errorf("failed to get seeding skill: %w", err)
	}
	return models.SkillSnapshot{Mu: seed.Mu, Sigma: seed.Sigma, Ordinal: seed.Ordinal}, true, nil
}

// TeamSnapshot returns the latest rating belief for a team identifier.
func (r *Repository) TeamSnapshot(ctx context.Context, identifier string, seasonN int, skillType models.SkillType) (models.SkillSnapshot, bool, error) {
	row, err := r.queries.GetLatestIdentifierSkill(ctx, db.GetLatestIdentifierSkillParams{
		Identifier: identifier,
		Season:     int32(seasonN),
		Type:       string(skillType),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.SkillSnapshot{}, false, nil
	}
	if err != nil {
		return models.SkillSnapshot{}, false, fmt.Errorf("failed to get latest team skill: %w", err)
	}
	return models.SkillSnapshot{
		Mu:           row.Mu,
		Sigma:        row.Sigma,
		Ordinal:      row.Ordinal,
		MatchesCount: int(row.MatchesCount),
	}, true, nil
}

func dbMatchToModel(m db.Match) (*models.Match, error) {
	var mapList models.MapList
	if err := json.Unmarshal(m.MapList, &mapList); err != nil {
		return nil, fmt.Errorf("failed to unmarshal map list: %w", err)
	}

	var memento *models.Memento
	if m.Memento.Valid {
		memento = &models.Memento{}
		if err := json.Unmarshal(m.Memento.RawMessage, memento); err != nil {
			return nil, fmt.Errorf("failed to unmarshal memento: %w", err)
		}
	}

	var winners []models.Side
	if m.Winners.Valid {
		if err := json.Unmarshal(m.Winners.RawMessage, &winners); err != nil {
			return nil, fmt.Errorf("failed to unmarshal winners: %w", err)
		}
	}

	return &models.Match{
		ID:           m.ID,
		AlphaGroupID: m.AlphaGroupID,
		BravoGroupID: m.BravoGroupID,
		MapList:      mapList,
		Memento:      memento,
		CreatedAt:    m.CreatedAt,
		ReportedAt:   sqlutil.FromSqlTime(m.ReportedAt),
		Winners:      winners,
	}, nil
}
