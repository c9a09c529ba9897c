package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SkillType separates the ranked ladder from unranked play.
type SkillType string

const (
	SkillTypeRanked   SkillType = "RANKED"
	SkillTypeUnranked SkillType = "UNRANKED"
)

// Skill is one row of the append-only rating history. Every resolved match
// inserts fresh rows; old rows are never mutated. A row belongs to either a
// single user (UserID set) or a team-of-four identifier (Identifier set).
type Skill struct {
	ID           uuid.UUID  `json:"id"`
	Identifier   *string    `json:"identifier,omitempty"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	GroupMatchID *uuid.UUID `json:"group_match_id,omitempty"`
	Season       int        `json:"season"`
	Type         SkillType  `json:"type"`
	Mu           float64    `json:"mu"`
	Sigma        float64    `json:"sigma"`
	Ordinal      float64    `json:"ordinal"`
	MatchesCount int        `json:"matches_count"`
	CreatedAt    time.Time  `json:"created_at"`
}

// SeedingSkill is a one-time bootstrap rating derived from external prior
// performance, consulted only when a user has no skill history yet.
type SeedingSkill struct {
	UserID  uuid.UUID `json:"user_id"`
	Type    SkillType `json:"type"`
	Mu      float64   `json:"mu"`
	Sigma   float64   `json:"sigma"`
	Ordinal float64   `json:"ordinal"`
}

// Ordinal is the conservative point estimate used everywhere ratings are
// compared: mu - 3*sigma.
func Ordinal(mu, sigma float64) float64 {
	return mu - 3*sigma
}

// TeamIdentifier derives the stable identifier of a team-of-four: the
// members' IDs sorted and dash-joined, so the same four users always map to
// the same rating history regardless of join order.
func TeamIdentifier(userIDs []uuid.UUID) string {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}
