package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createMatch = `
INSERT INTO matches (id, alpha_group_id, bravo_group_id, map_list, memento, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, alpha_group_id, bravo_group_id, map_list, memento, created_at, reported_at, winners
`

type CreateMatchParams struct {
	ID           uuid.UUID
	AlphaGroupID uuid.UUID
	BravoGroupID uuid.UUID
	MapList      json.RawMessage
	Memento      pqtype.NullRawMessage
	CreatedAt    time.Time
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	row := q.db.QueryRowContext(ctx, createMatch,
		arg.ID,
		arg.AlphaGroupID,
		arg.BravoGroupID,
		arg.MapList,
		arg.Memento,
		arg.CreatedAt,
	)
	var i Match
	err := row.Scan(
		&i.ID,
		&i.AlphaGroupID,
		&i.BravoGroupID,
		&i.MapList,
		&i.Memento,
		&i.CreatedAt,
		&i.ReportedAt,
		&i.Winners,
	)
	return i, err
}

const getMatch = `
SELECT id, alpha_group_id, bravo_group_id, map_list, memento, created_at, reported_at, winners
FROM matches WHERE id = $1
`

func (q *Queries) GetMatch(ctx context.Context, id uuid.UUID) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatch, id)
	var i Match
	err := row.Scan(
		&i.ID,
		&i.AlphaGroupID,
		&i.BravoGroupID,
		&i.MapList,
		&i.Memento,
		&i.CreatedAt,
		&i.ReportedAt,
		&i.Winners,
	)
	return i, err
}

const getMatchForUpdate = `
SELECT id, alpha_group_id, bravo_group_id, map_list, memento, created_at, reported_at, winners
FROM matches WHERE id = $1 FOR UPDATE
`

// GetMatchForUpdate locks the match row so the not-already-resolved check and
// the resolution write happen under one lock, closing the double-submit race.
func (q *Queries) GetMatchForUpdate(ctx context.Context, id uuid.UUID) (Match, error) {
	row := q.db.QueryRowContext(ctx, getMatchForUpdate, id)
	var i Match
	err := row.Scan(
		&i.ID,
		&i.AlphaGroupID,
		&i.BravoGroupID,
		&i.MapList,
		&i.Memento,
		&i.CreatedAt,
		&i.ReportedAt,
		&i.Winners,
	)
	return i, err
}

const countUnresolvedMatchesByGroup = `
SELECT COUNT(*) FROM matches
WHERE (alpha_group_id = $1 OR bravo_group_id = $1) AND reported_at IS NULL
`

// CountUnresolvedMatchesByGroup reports whether a group is currently paired
// into a match that has not been resolved yet.
func (q *Queries) CountUnresolvedMatchesByGroup(ctx context.Context, groupID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUnresolvedMatchesByGroup, groupID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const resolveMatch = `
UPDATE matches
SET winners = $2, reported_at = $3
WHERE id = $1 AND reported_at IS NULL
`

type ResolveMatchParams struct {
	ID         uuid.UUID
	Winners    json.RawMessage
	ReportedAt time.Time
}

// ResolveMatch writes the outcome exactly once; the reported_at IS NULL guard
// makes a second write a no-op at the SQL level as well.
func (q *Queries) ResolveMatch(ctx context.Context, arg ResolveMatchParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, resolveMatch, arg.ID, arg.Winners, arg.ReportedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
