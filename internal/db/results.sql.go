package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const insertMapResult = `
INSERT INTO map_results (group_match_id, map_index, mode, stage, winner_group_id)
VALUES ($1, $2, $3, $4, $5)
`

type InsertMapResultParams struct {
	GroupMatchID  uuid.UUID
	MapIndex      int32
	Mode          string
	Stage         string
	WinnerGroupID uuid.UUID
}

func (q *Queries) InsertMapResult(ctx context.Context, arg InsertMapResultParams) error {
	_, err := q.db.ExecContext(ctx, insertMapResult,
		arg.GroupMatchID, arg.MapIndex, arg.Mode, arg.Stage, arg.WinnerGroupID)
	return err
}

const insertPlayerResult = `
INSERT INTO player_results (group_match_id, user_id, side, won, maps_played)
VALUES ($1, $2, $3, $4, $5)
`

type InsertPlayerResultParams struct {
	GroupMatchID uuid.UUID
	UserID       uuid.UUID
	Side         string
	Won          bool
	MapsPlayed   int32
}

func (q *Queries) InsertPlayerResult(ctx context.Context, arg InsertPlayerResultParams) error {
	_, err := q.db.ExecContext(ctx, insertPlayerResult,
		arg.GroupMatchID, arg.UserID, arg.Side, arg.Won, arg.MapsPlayed)
	return err
}

const insertReportedWeapon = `
INSERT INTO reported_weapons (group_match_id, user_id, map_index, weapon_id)
VALUES ($1, $2, $3, $4)
`

type InsertReportedWeaponParams struct {
	GroupMatchID uuid.UUID
	UserID       uuid.UUID
	MapIndex     int32
	WeaponID     int32
}

func (q *Queries) InsertReportedWeapon(ctx context.Context, arg InsertReportedWeaponParams) error {
	_, err := q.db.ExecContext(ctx, insertReportedWeapon,
		arg.GroupMatchID, arg.UserID, arg.MapIndex, arg.WeaponID)
	return err
}

const weaponPopularityBySeason = `
SELECT rw.weapon_id, COUNT(*) AS usage_count, COUNT(DISTINCT rw.user_id) AS user_count
FROM reported_weapons rw
JOIN matches m ON m.id = rw.group_match_id
WHERE m.reported_at >= $1 AND m.reported_at < $2
GROUP BY rw.weapon_id
ORDER BY usage_count DESC, rw.weapon_id
`

type WeaponPopularityBySeasonParams struct {
	StartsAt time.Time
	EndsAt   time.Time
}

type WeaponPopularityBySeasonRow struct {
	WeaponID   int32
	UsageCount int64
	UserCount  int64
}

func (q *Queries) WeaponPopularityBySeason(ctx context.Context, arg WeaponPopularityBySeasonParams) ([]WeaponPopularityBySeasonRow, error) {
	rows, err := q.db.QueryContext(ctx, weaponPopularityBySeason, arg.StartsAt, arg.EndsAt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []WeaponPopularityBySeasonRow
	for rows.Next() {
		var i WeaponPopularityBySeasonRow
		if err := rows.Scan(&i.WeaponID, &i.UsageCount, &i.UserCount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listTeamRostersByUsers = `
SELECT team_id, user_id
FROM team_rosters
WHERE user_id = ANY($1)
`

// ListTeamRostersByUsers reads the persistent-team roster table owned by the
// team-profile collaborator; this core only ever reads it.
func (q *Queries) ListTeamRostersByUsers(ctx context.Context, userIDs []uuid.UUID) ([]TeamRoster, error) {
	rows, err := q.db.QueryContext(ctx, listTeamRostersByUsers, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TeamRoster
	for rows.Next() {
		var i TeamRoster
		if err := rows.Scan(&i.TeamID, &i.UserID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
