package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/db"
	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateGroup(ctx context.Context, arg db.CreateGroupParams) (db.Group, error)
	GetGroup(ctx context.Context, id uuid.UUID) (db.Group, error)
	GetGroupForUpdate(ctx context.Context, id uuid.UUID) (db.Group, error)
	GetActiveGroupByUser(ctx context.Context, userID uuid.UUID) (db.Group, error)
	SetGroupInactive(ctx context.Context, id uuid.UUID) error
	InsertGroupMember(ctx context.Context, arg db.InsertGroupMemberParams) error
	DeleteGroupMember(ctx context.Context, arg db.DeleteGroupMemberParams) (int64, error)
	ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]db.GroupMember, error)
	CountGroupMembers(ctx context.Context, groupID uuid.UUID) (int64, error)
	DeleteEmptyActiveGroups(ctx context.Context, before time.Time) (int64, error)
	CountUnresolvedMatchesByGroup(ctx context.Context, groupID uuid.UUID) (int64, error)
}

// Repository implements group data access operations
type Repository struct {
	queries Querier
}

// NewRepository creates a new group repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// CreateGroup inserts a new ACTIVE group.
func (r *Repository) CreateGroup(ctx context.Context, id uuid.UUID, now time.Time) (*models.Group, error) {
	g, err := r.queries.CreateGroup(ctx, db.CreateGroupParams{
		ID:        id,
		Status:    string(models.GroupStatusActive),
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return dbGroupToModel(g), nil
}

// Group retrieves a group by ID; ErrGroupNotFound when absent.
func (r *Repository) Group(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	g, err := r.queries.GetGroup(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return dbGroupToModel(g), nil
}

// GroupForUpdate retrieves a group under a row lock. Callers inside a
// transaction use this to serialize pairing, member churn and deactivation.
func (r *Repository) GroupForUpdate(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	g, err := r.queries.GetGroupForUpdate(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock group: %w", err)
	}
	return dbGroupToModel(g), nil
}

// ActiveGroupByUser returns the user's current ACTIVE group, or nil.
func (r *Repository) ActiveGroupByUser(ctx context.Context, userID uuid.UUID) (*models.Group, error) {
	g, err := r.queries.GetActiveGroupByUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active group for user: %w", err)
	}
	return dbGroupToModel(g), nil
}

// SetInactive marks a group INACTIVE. Idempotent.
func (r *Repository) SetInactive(ctx context.Context, id uuid.UUID) error {
	if err := r.queries.SetGroupInactive(ctx, id); err != nil {
		return fmt.Errorf("failed to set group inactive: %w", err)
	}
	return nil
}

// AddMember inserts a membership row.
func (r *Repository) AddMember(ctx context.Context, groupID, userID uuid.UUID, role models.MemberRole, now time.Time) error {
	err := r.queries.InsertGroupMember(ctx, db.InsertGroupMemberParams{
		GroupID:   groupID,
		UserID:    userID,
		Role:      string(role),
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row, reporting whether it existed.
func (r *Repository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	n, err := r.queries.DeleteGroupMember(ctx, db.DeleteGroupMemberParams{
		GroupID: groupID,
		UserID:  userID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove group member: %w", err)
	}
	return n > 0, nil
}

// Members lists a group's members in join order.
func (r *Repository) Members(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	rows, err := r.queries.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	members := make([]models.GroupMember, len(rows))
	for i, m := range rows {
		members[i] = models.GroupMember{
			GroupID:   m.GroupID,
			UserID:    m.UserID,
			Role:      models.MemberRole(m.Role),
			CreatedAt: m.CreatedAt,
		}
	}
	return members, nil
}

// CountMembers returns the group's member count.
func (r *Repository) CountMembers(ctx context.Context, groupID uuid.UUID) (int, error) {
	n, err := r.queries.CountGroupMembers(ctx, groupID)
	if err != nil {
		return 0, fmt.Errorf("failed to count group members: %w", err)
	}
	return int(n), nil
}

// HasUnresolvedMatch reports whether the group is paired into a match that
// has not been resolved yet.
func (r *Repository) HasUnresolvedMatch(ctx context.Context, groupID uuid.UUID) (bool, error) {
	n, err := r.queries.CountUnresolvedMatchesByGroup(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to count unresolved matches: %w", err)
	}
	return n > 0, nil
}

// SweepEmpty deletes zero-member ACTIVE groups created before the cutoff.
func (r *Repository) SweepEmpty(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.queries.DeleteEmptyActiveGroups(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep empty groups: %w", err)
	}
	return n, nil
}

func dbGroupToModel(g db.Group) *models.Group {
	return &models.Group{
		ID:        g.ID,
		Status:    models.GroupStatus(g.Status),
		CreatedAt: g.CreatedAt,
	}
}
