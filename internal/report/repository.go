package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	InsertSkill(ctx context.Context, arg db.InsertSkillParams) (db.Skill, error)
	InsertMapResult(ctx context.Context, arg db.InsertMapResultParams) error
	InsertPlayerResult(ctx context.Context, arg db.InsertPlayerResultParams) error
	InsertReportedWeapon(ctx context.Context, arg db.InsertReportedWeaponParams) error
	InsertOutboxEvent(ctx context.Context, arg db.InsertOutboxEventParams) error
}

// Repository persists the write side of match resolution: skill rows, the
// derived result rows and the outbox event. All of it runs inside the
// reporter's transaction.
type Repository struct {
	queries Querier
}

// NewRepository creates a new report repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// InsertUserSkill appends one skill row for a user.
func (r *Repository) InsertUserSkill(ctx context.Context, userID, groupMatchID uuid.UUID, seasonN int, skillType models.SkillType, mu, sigma float64, matchesCount int, now time.Time) error {
	_, err := r.queries.InsertSkill(ctx, db.InsertSkillParams{
		ID:           uuid.New(),
		UserID:       sqlutil.ToNullUUID(&userID),
		GroupMatchID: sqlutil.ToNullUUID(&groupMatchID),
		Season:       int32(seasonN),
		Type:         string(skillType),
		Mu:           mu,
		Sigma:        sigma,
		Ordinal:      models.Ordinal(mu, sigma),
		MatchesCount: int32(matchesCount),
		CreatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to insert user skill: %w", err)
	}
	return nil
}

// InsertTeamSkill appends one skill row for a team-of-four identifier.
func (r *Repository) InsertTeamSkill(ctx context.Context, identifier string, groupMatchID uuid.UUID, seasonN int, skillType models.SkillType, mu, sigma float64, matchesCount int, now time.Time) error {
	_, err := r.queries.InsertSkill(ctx, db.InsertSkillParams{
		ID:           uuid.New(),
		Identifier:   sqlutil.ToSqlString(&identifier),
		GroupMatchID: sqlutil.ToNullUUID(&groupMatchID),
		Season:       int32(seasonN),
		Type:         string(skillType),
		Mu:           mu,
		Sigma:        sigma,
		Ordinal:      models.Ordinal(mu, sigma),
		MatchesCount: int32(matchesCount),
		CreatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to insert team skill: %w", err)
	}
	return nil
}

// InsertMapResult persists one derived per-map row.
func (r *Repository) InsertMapResult(ctx context.Context, res models.MapResult) error {
	err := r.queries.InsertMapResult(ctx, db.InsertMapResultParams{
		GroupMatchID:  res.GroupMatchID,
		MapIndex:      int32(res.MapIndex),
		Mode:          string(res.Mode),
		Stage:         res.Stage,
		WinnerGroupID: res.WinnerGroupID,
	})
	if err != nil {
		return fmt.Errorf("failed to insert map result: %w", err)
	}
	return nil
}

// InsertPlayerResult persists one derived per-player row.
func (r *Repository) InsertPlayerResult(ctx context.Context, res models.PlayerResult) error {
	err := r.queries.InsertPlayerResult(ctx, db.InsertPlayerResultParams{
		GroupMatchID: res.GroupMatchID,
		UserID:       res.UserID,
		Side:         string(res.Side),
		Won:          res.Won,
		MapsPlayed:   int32(res.MapsPlayed),
	})
	if err != nil {
		return fmt.Errorf("failed to insert player result: %w", err)
	}
	return nil
}

// InsertReportedWeapon persists one weapon-usage row.
func (r *Repository) InsertReportedWeapon(ctx context.Context, w models.ReportedWeapon) error {
	err := r.queries.InsertReportedWeapon(ctx, db.InsertReportedWeaponParams{
		GroupMatchID: w.GroupMatchID,
		UserID:       w.UserID,
		MapIndex:     int32(w.MapIndex),
		WeaponID:     int32(w.WeaponID),
	})
	if err != nil {
		return fmt.Errorf("failed to insert reported weapon: %w", err)
	}
	return nil
}

// InsertMatchResolvedEvent enqueues the outbox event in the same transaction
// as the resolution writes, so the event exists iff the resolution committed.
func (r *Repository) InsertMatchResolvedEvent(ctx context.Context, event MatchResolvedEvent, now time.Time) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal match resolved event: %w", err)
	}
	err = r.queries.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:        uuid.New(),
		MatchID:   event.MatchID,
		EventType: "match.resolved",
		Payload:   payload,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
