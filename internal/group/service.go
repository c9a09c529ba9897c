package group

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
	"github.com/sendou-ink/sendou.ink-sub003/internal/sqlutil"
)

// Service owns the group/member lifecycle: create, join, leave, deactivate.
// Every mutation runs in its own transaction with the group row locked, so
// member churn serializes against pairing and resolution.
type Service struct {
	database *sql.DB
	clock    clockwork.Clock
}

// NewService creates a new group service.
func NewService(database *sql.DB, clock clockwork.Clock) *Service {
	return &Service{
		database: database,
		clock:    clock,
	}
}

// CreateGroup creates an ACTIVE group with the caller as OWNER.
// Fails with ErrUserAlreadyQueued if the user is already in an active group.
func (s *Service) CreateGroup(ctx context.Context, userID uuid.UUID) (*models.Group, error) {
	var created *models.Group
	err := sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		g, err := s.createGroupTx(ctx, NewRepository(q), userID)
		if err != nil {
			return err
		}
		created = g
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("group_id", created.ID.String()).
		Str("user_id", userID.String()).
		Msg("group created")
	return created, nil
}

func (s *Service) createGroupTx(ctx context.Context, repo *Repository, userID uuid.UUID) (*models.Group, error) {
	existing, err := repo.ActiveGroupByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserAlreadyQueued
	}

	now := s.clock.Now()
	g, err := repo.CreateGroup(ctx, uuid.New(), now)
	if err != nil {
		return nil, err
	}
	if err := repo.AddMember(ctx, g.ID, userID, models.MemberRoleOwner, now); err != nil {
		return nil, err
	}
	return g, nil
}

// AddMember adds a user to a group as REGULAR. Fails with ErrGroupFull when
// the group already has four members and ErrUserAlreadyQueued when the user
// is in another active group.
func (s *Service) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		return s.addMemberTx(ctx, NewRepository(q), groupID, userID)
	})
}

func (s *Service) addMemberTx(ctx context.Context, repo *Repository, groupID, userID uuid.UUID) error {
	g, err := repo.GroupForUpdate(ctx, groupID)
	if err != nil {
		return err
	}
	if g.Status != models.GroupStatusActive {
		return ErrGroupInactive
	}

	// Once paired, the roster is frozen: resolution rates whoever is in the
	// group, so a late joiner would get skill rows for a match they never
	// played.
	paired, err := repo.HasUnresolvedMatch(ctx, groupID)
	if err != nil {
		return err
	}
	if paired {
		return ErrGroupPaired
	}

	count, err := repo.CountMembers(ctx, groupID)
	if err != nil {
		return err
	}
	if count >= models.MaxGroupSize {
		return ErrGroupFull
	}

	existing, err := repo.ActiveGroupByUser(ctx, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserAlreadyQueued
	}

	return repo.AddMember(ctx, groupID, userID, models.MemberRoleRegular, s.clock.Now())
}

// RemoveMember removes a user from a group. An emptied group stays ACTIVE
// with zero members; the sweeper garbage-collects it later.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		return s.removeMemberTx(ctx, NewRepository(q), groupID, userID)
	})
}

func (s *Service) removeMemberTx(ctx context.Context, repo *Repository, groupID, userID uuid.UUID) error {
	if _, err := repo.GroupForUpdate(ctx, groupID); err != nil {
		return err
	}
	removed, err := repo.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrMemberNotFound
	}
	return nil
}

// SetInactive marks a group INACTIVE. Idempotent; a group never returns to
// ACTIVE once deactivated.
func (s *Service) SetInactive(ctx context.Context, groupID uuid.UUID) error {
	return sqlutil.Run(ctx, s.database, db.NewTx, func(q *db.Queries) error {
		repo := NewRepository(q)
		if _, err := repo.GroupForUpdate(ctx, groupID); err != nil {
			return err
		}
		return repo.SetInactive(ctx, groupID)
	})
}

// Group returns a group by ID.
func (s *Service) Group(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	return NewRepository(db.New(s.database)).Group(ctx, groupID)
}

// Members returns a group's members.
func (s *Service) Members(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	return NewRepository(db.New(s.database)).Members(ctx, groupID)
}

// ActiveGroupByUser returns a user's current active group, or nil.
func (s *Service) ActiveGroupByUser(ctx context.Context, userID uuid.UUID) (*models.Group, error) {
	return NewRepository(db.New(s.database)).ActiveGroupByUser(ctx, userID)
}

// sweepOnce deletes zero-member ACTIVE groups older than minAge.
func (s *Service) sweepOnce(ctx context.Context, minAge time.Duration) (int64, error) {
	n, err := NewRepository(db.New(s.database)).SweepEmpty(ctx, s.clock.Now().Add(-minAge))
	if err != nil {
		return 0, fmt.Errorf("sweep empty groups: %w", err)
	}
	return n, nil
}
