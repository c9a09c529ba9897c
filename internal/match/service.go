package match

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/group"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/season"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// CreateMatchRequest carries the pairing the matchmaker decided on, plus the
// modes both groups agreed to exclude from the rotation.
type CreateMatchRequest struct {
	AlphaGroupID  uuid.UUID
	BravoGroupID  uuid.UUID
	ExcludedModes []models.Mode
}

// Service pairs two active groups into a match and generates its map list.
// Preconditions (both active, disjoint members, non-empty) are the
// matchmaker's job; violations here are programming errors.
type Service struct {
	database  *sql.DB
	clock     clockwork.Clock
	schedule  season.Schedule
	generator *mapListGenerator
}

// NewService creates a new match service.
func NewService(database *sql.DB, clock clockwork.Clock, schedule season.Schedule, pool MapPool, rng *rand.Rand) *Service {
	return &Service{
		database:  database,
		clock:     clock,
		schedule:  schedule,
		generator: newMapListGenerator(pool, rng),
	}
}

// CreateMatch pairs the two groups inside one transaction, locking both group
// rows so neither can gain a member or be deactivated mid-pairing.
func (s *Service) CreateMatch(ctx context.Context, req CreateMatchRequest) (*models.Match, error) {
	var created *models.Match
	err := sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		m, err := s.createMatchTx(ctx, q, req)
		if err != nil {
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("match_id", created.ID.String()).
		Str("alpha_group_id", req.AlphaGroupID.String()).
		Str("bravo_group_id", req.BravoGroupID.String()).
		Msg("match created")
	return created, nil
}

func (s *Service) createMatchTx(ctx context.Context, q Txq, req CreateMatchRequest) (*models.Match, error) {
	groupRepo := group.NewRepository(q)
	repo := NewRepository(q)

	alphaMembers, bravoMembers, err := s.lockAndValidate(ctx, groupRepo, req.AlphaGroupID, req.BravoGroupID)
	if err != nil {
		return nil, err
	}

	mapList, err := s.generator.Generate(req.AlphaGroupID, req.BravoGroupID, req.ExcludedModes)
	if err != nil {
		return nil, err
	}

	memento, err := s.buildMemento(ctx, repo, req, alphaMembers, bravoMembers)
	if err != nil {
		return nil, err
	}

	return repo.CreateMatch(ctx, uuid.New(), req.AlphaGroupID, req.BravoGroupID, mapList, memento, s.clock.Now())
}

// Txq is the union of query surfaces CreateMatch touches in one transaction.
type Txq interface {
	Querier
	group.Querier
}

func (s *Service) lockAndValidate(ctx context.Context, groupRepo *group.Repository, alphaID, bravoID uuid.UUID) (alpha, bravo []models.GroupMember, err error) {
	// Lock in a stable order so concurrent pairings cannot deadlock.
	first, second := alphaID, bravoID
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		g, err := groupRepo.GroupForUpdate(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if g.Status != models.GroupStatusActive {
			return nil, nil, s.precondition("group %s is not active", id)
		}
	}

	alpha, err = groupRepo.Members(ctx, alphaID)
	if err != nil {
		return nil, nil, err
	}
	bravo, err = groupRepo.Members(ctx, bravoID)
	if err != nil {
		return nil, nil, err
	}
	if len(alpha) == 0 || len(bravo) == 0 {
		return nil, nil, s.precondition("cannot pair empty groups %s vs %s", alphaID, bravoID)
	}

	seen := make(map[uuid.UUID]bool, len(alpha))
	for _, m := range alpha {
		seen[m.UserID] = true
	}
	for _, m := range bravo {
		if seen[m.UserID] {
			return nil, nil, s.precondition("user %s is in both groups", m.UserID)
		}
	}
	return alpha, bravo, nil
}

func (s *Service) precondition(format string, args ...any) error {
	err := fmt.Errorf(format+": %w", append(args, ErrPairingPrecondition)...)
	log.Error().Err(err).Msg("match pairing rejected")
	return err
}

// buildMemento snapshots everyone's current rating so a resolved match can be
// recomputed and audited against the state that existed at pairing time.
func (s *Service) buildMemento(ctx context.Context, repo *Repository, req CreateMatchRequest, alphaMembers, bravoMembers []models.GroupMember) (*models.Memento, error) {
	seasonN := s.schedule.Latest(s.clock.Now())

	memento := &models.Memento{
		Users:  make(map[uuid.UUID]models.SkillSnapshot),
		Groups: make(map[uuid.UUID]models.SkillSnapshot),
	}
	for _, m := range append(append([]models.GroupMember(nil), alphaMembers...), bravoMembers...) {
		snap, ok, err := repo.UserSnapshot(ctx, m.UserID, seasonN, models.SkillTypeRanked)
		if err != nil {
			return nil, err
		}
		if ok {
			memento.Users[m.UserID] = snap
		}
	}

	for groupID, members := range map[uuid.UUID][]models.GroupMember{
		req.AlphaGroupID: alphaMembers,
		req.BravoGroupID: bravoMembers,
	} {
		if len(members) != models.MaxGroupSize {
			continue // team identifiers only exist for full groups
		}
		ids := make([]uuid.UUID, len(members))
		for i, m := range members {
			ids[i] = m.UserID
		}
		snap, ok, err := repo.TeamSnapshot(ctx, models.TeamIdentifier(ids), seasonN, models.SkillTypeRanked)
		if err != nil {
			return nil, err
		}
		if ok {
			memento.Groups[groupID] = snap
		}
	}
	return memento, nil
}

// FindMatchByID returns a match by ID.
func (s *Service) FindMatchByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	return NewRepository(db.New(s.database)).Match(ctx, id)
}
