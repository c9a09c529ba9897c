package models

import (
	"github.com/google/uuid"
)

// LeaderboardEntry is a derived ranking row; it is computed from the latest
// Skill rows of a season and never stored.
type LeaderboardEntry struct {
	Identifier    string      `json:"identifier"`
	Members       []uuid.UUID `json:"members,omitempty"`
	Mu            float64     `json:"mu"`
	Sigma         float64     `json:"sigma"`
	Ordinal       float64     `json:"ordinal"`
	Power         float64     `json:"power"`
	MatchesCount  int         `json:"matches_count"`
	PlacementRank int         `json:"placement_rank"`
	// SharedTeamID is set only when all four members of the entry are,
	// right now, members of one common persistent team.
	SharedTeamID *uuid.UUID `json:"shared_team_id,omitempty"`
}

// WeaponPopularityEntry aggregates how often a weapon was reported across a
// season's resolved matches.
type WeaponPopularityEntry struct {
	WeaponID   int `json:"weapon_id"`
	UsageCount int `json:"usage_count"`
	UserCount  int `json:"user_count"`
}

// MapResult is the per-map read-model row derived from a resolved match.
type MapResult struct {
	GroupMatchID  uuid.UUID `json:"group_match_id"`
	MapIndex      int       `json:"map_index"`
	Mode          Mode      `json:"mode"`
	Stage         string    `json:"stage"`
	WinnerGroupID uuid.UUID `json:"winner_group_id"`
}

// PlayerResult is the per-player read-model row derived from a resolved match.
type PlayerResult struct {
	GroupMatchID uuid.UUID `json:"group_match_id"`
	UserID       uuid.UUID `json:"user_id"`
	Side         Side      `json:"side"`
	Won          bool      `json:"won"`
	MapsPlayed   int       `json:"maps_played"`
}

// ReportedWeapon records the weapon a player used on one played map.
type ReportedWeapon struct {
	GroupMatchID uuid.UUID `json:"group_match_id"`
	UserID       uuid.UUID `json:"user_id"`
	MapIndex     int       `json:"map_index"`
	WeaponID     int       `json:"weapon_id"`
}
