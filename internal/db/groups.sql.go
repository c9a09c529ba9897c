package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const createGroup = `
INSERT INTO groups (id, status, created_at)
VALUES ($1, $2, $3)
RETURNING id, status, created_at
`

type CreateGroupParams struct {
	ID        uuid.UUID
	Status    string
	CreatedAt time.Time
}

func (q *Queries) CreateGroup(ctx context.Context, arg CreateGroupParams) (Group, error) {
	row := q.db.QueryRowContext(ctx, createGroup, arg.ID, arg.Status, arg.CreatedAt)
	var i Group
	err := row.Scan(&i.ID, &i.Status, &i.CreatedAt)
	return i, err
}

const getGroup = `
SELECT id, status, created_at FROM groups WHERE id = $1
`

func (q *Queries) GetGroup(ctx context.Context, id uuid.UUID) (Group, error) {
	row := q.db.QueryRowContext(ctx, getGroup, id)
	var i Group
	err := row.Scan(&i.ID, &i.Status, &i.CreatedAt)
	return i, err
}

const getGroupForUpdate = `
SELECT id, status, created_at FROM groups WHERE id = $1 FOR UPDATE
`

// GetGroupForUpdate takes a row lock on the group so pairing, member churn
// and deactivation serialize against each other.
func (q *Queries) GetGroupForUpdate(ctx context.Context, id uuid.UUID) (Group, error) {
	row := q.db.QueryRowContext(ctx, getGroupForUpdate, id)
	var i Group
	err := row.Scan(&i.ID, &i.Status, &i.CreatedAt)
	return i, err
}

const setGroupInactive = `
UPDATE groups SET status = 'INACTIVE' WHERE id = $1
`

func (q *Queries) SetGroupInactive(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, setGroupInactive, id)
	return err
}

const getActiveGroupByUser = `
SELECT g.id, g.status, g.created_at
FROM groups g
JOIN group_members gm ON gm.group_id = g.id
WHERE gm.user_id = $1 AND g.status = 'ACTIVE'
`

func (q *Queries) GetActiveGroupByUser(ctx context.Context, userID uuid.UUID) (Group, error) {
	row := q.db.QueryRowContext(ctx, getActiveGroupByUser, userID)
	var i Group
	err := row.Scan(&i.ID, &i.Status, &i.CreatedAt)
	return i, err
}

const insertGroupMember = `
INSERT INTO group_members (group_id, user_id, role, created_at)
VALUES ($1, $2, $3, $4)
`

type InsertGroupMemberParams struct {
	GroupID   uuid.UUID
	UserID    uuid.UUID
	Role      string
	CreatedAt time.Time
}

func (q *Queries) InsertGroupMember(ctx context.Context, arg InsertGroupMemberParams) error {
	_, err := q.db.ExecContext(ctx, insertGroupMember, arg.GroupID, arg.UserID, arg.Role, arg.CreatedAt)
	return err
}

const deleteGroupMember = `
DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
`

type DeleteGroupMemberParams struct {
	GroupID uuid.UUID
	UserID  uuid.UUID
}

func (q *Queries) DeleteGroupMember(ctx context.Context, arg DeleteGroupMemberParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteGroupMember, arg.GroupID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listGroupMembers = `
SELECT group_id, user_id, role, created_at
FROM group_members
WHERE group_id = $1
ORDER BY created_at
`

func (q *Queries) ListGroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error) {
	rows, err := q.db.QueryContext(ctx, listGroupMembers, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupMember
	for rows.Next() {
		var i GroupMember
		if err := rows.Scan(&i.GroupID, &i.UserID, &i.Role, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countGroupMembers = `
SELECT COUNT(*) FROM group_members WHERE group_id = $1
`

func (q *Queries) CountGroupMembers(ctx context.Context, groupID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countGroupMembers, groupID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteEmptyActiveGroups = `
DELETE FROM groups g
WHERE g.status = 'ACTIVE'
  AND g.created_at < $1
  AND NOT EXISTS (SELECT 1 FROM group_members gm WHERE gm.group_id = g.id)
`

// DeleteEmptyActiveGroups garbage-collects zero-member groups left behind by
// RemoveMember. Returns the number of groups swept.
func (q *Queries) DeleteEmptyActiveGroups(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEmptyActiveGroups, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
