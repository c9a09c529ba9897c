package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const skillColumns = `id, identifier, user_id, group_match_id, season, type, mu, sigma, ordinal, matches_count, created_at`

func scanSkill(row *sql.Row) (Skill, error) {
	var i Skill
	err := row.Scan(
		&i.ID,
		&i.Identifier,
		&i.UserID,
		&i.GroupMatchID,
		&i.Season,
		&i.Type,
		&i.Mu,
		&i.Sigma,
		&i.Ordinal,
		&i.MatchesCount,
		&i.CreatedAt,
	)
	return i, err
}

func scanSkills(rows *sql.Rows) ([]Skill, error) {
	defer rows.Close()
	var items []Skill
	for rows.Next() {
		var i Skill
		if err := rows.Scan(
			&i.ID,
			&i.Identifier,
			&i.UserID,
			&i.GroupMatchID,
			&i.Season,
			&i.Type,
			&i.Mu,
			&i.Sigma,
			&i.Ordinal,
			&i.MatchesCount,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertSkill = `
INSERT INTO skills (id, identifier, user_id, group_match_id, season, type, mu, sigma, ordinal, matches_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + skillColumns

type InsertSkillParams struct {
	ID           uuid.UUID
	Identifier   sql.NullString
	UserID       uuid.NullUUID
	GroupMatchID uuid.NullUUID
	Season       int32
	Type         string
	Mu           float64
	Sigma        float64
	Ordinal      float64
	MatchesCount int32
	CreatedAt    time.Time
}

func (q *Queries) InsertSkill(ctx context.Context, arg InsertSkillParams) (Skill, error) {
	row := q.db.QueryRowContext(ctx, insertSkill,
		arg.ID,
		arg.Identifier,
		arg.UserID,
		arg.GroupMatchID,
		arg.Season,
		arg.Type,
		arg.Mu,
		arg.Sigma,
		arg.Ordinal,
		arg.MatchesCount,
		arg.CreatedAt,
	)
	return scanSkill(row)
}

const getLatestUserSkill = `
SELECT ` + skillColumns + `
FROM skills
WHERE user_id = $1 AND season = $2 AND type = $3
ORDER BY created_at DESC, matches_count DESC
LIMIT 1
`

type GetLatestUserSkillParams struct {
	UserID uuid.UUID
	Season int32
	Type   string
}

func (q *Queries) GetLatestUserSkill(ctx context.Context, arg GetLatestUserSkillParams) (Skill, error) {
	row := q.db.QueryRowContext(ctx, getLatestUserSkill, arg.UserID, arg.Season, arg.Type)
	return scanSkill(row)
}

const getLatestIdentifierSkill = `
SELECT ` + skillColumns + `
FROM skills
WHERE identifier = $1 AND season = $2 AND type = $3
ORDER BY created_at DESC, matches_count DESC
LIMIT 1
`

type GetLatestIdentifierSkillParams struct {
	Identifier string
	Season     int32
	Type       string
}

func (q *Queries) GetLatestIdentifierSkill(ctx context.Context, arg GetLatestIdentifierSkillParams) (Skill, error) {
	row := q.db.QueryRowContext(ctx, getLatestIdentifierSkill, arg.Identifier, arg.Season, arg.Type)
	return scanSkill(row)
}

const listLatestUserSkillsBySeason = `
SELECT DISTINCT ON (user_id) ` + skillColumns + `
FROM skills
WHERE season = $1 AND type = $2 AND user_id IS NOT NULL
ORDER BY user_id, created_at DESC, matches_count DESC
`

type ListLatestUserSkillsBySeasonParams struct {
	Season int32
	Type   string
}

func (q *Queries) ListLatestUserSkillsBySeason(ctx context.Context, arg ListLatestUserSkillsBySeasonParams) ([]Skill, error) {
	rows, err := q.db.QueryContext(ctx, listLatestUserSkillsBySeason, arg.Season, arg.Type)
	if err != nil {
		return nil, err
	}
	return scanSkills(rows)
}

const listLatestIdentifierSkillsBySeason = `
SELECT DISTINCT ON (identifier) ` + skillColumns + `
FROM skills
WHERE season = $1 AND type = $2 AND identifier IS NOT NULL
ORDER BY identifier, created_at DESC, matches_count DESC
`

type ListLatestIdentifierSkillsBySeasonParams struct {
	Season int32
	Type   string
}

func (q *Queries) ListLatestIdentifierSkillsBySeason(ctx context.Context, arg ListLatestIdentifierSkillsBySeasonParams) ([]Skill, error) {
	rows, err := q.db.QueryContext(ctx, listLatestIdentifierSkillsBySeason, arg.Season, arg.Type)
	if err != nil {
		return nil, err
	}
	return scanSkills(rows)
}

const getSeedingSkill = `
SELECT user_id, type, mu, sigma, ordinal
FROM seeding_skills
WHERE user_id = $1 AND type = $2
`

type GetSeedingSkillParams struct {
	UserID uuid.UUID
	Type   string
}

func (q *Queries) GetSeedingSkill(ctx context.Context, arg GetSeedingSkillParams) (SeedingSkill, error) {
	row := q.db.QueryRowContext(ctx, getSeedingSkill, arg.UserID, arg.Type)
	var i SeedingSkill
	err := row.Scan(&i.UserID, &i.Type, &i.Mu, &i.Sigma, &i.Ordinal)
	return i, err
}

const countSkillsByGroupMatch = `
SELECT COUNT(*) FROM skills WHERE group_match_id = $1
`

func (q *Queries) CountSkillsByGroupMatch(ctx context.Context, groupMatchID uuid.UUID) (int64, error) {
	row := q.db.QueryRowContext(ctx, countSkillsByGroupMatch, groupMatchID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
