package report

import (
	"github.com/google/uuid"

	"github.com/sendou-ink/sendou.ink-sub003/internal/models"
)

// WeaponReport records the weapon one player used on one played map.
// Weapon reports are optional; a score report without them is complete.
type WeaponReport struct {
	UserID   uuid.UUID `json:"user_id"`
	MapIndex int       `json:"map_index"`
	WeaponID int       `json:"weapon_id"`
}

// ReportScoreRequest is the full outcome report for a match: one winner per
// map actually played, in played order, plus optional weapon usage.
type ReportScoreRequest struct {
	Winners []models.Side  `json:"winners"`
	Weapons []WeaponReport `json:"weapons,omitempty"`
}

// MatchResolvedEvent is the outbox payload published when a match resolves.
// Collaborators (notifications, activity feeds) consume it off the stream.
type MatchResolvedEvent struct {
	MatchID       uuid.UUID   `json:"match_id"`
	WinnerGroupID uuid.UUID   `json:"winner_group_id"`
	LoserGroupID  uuid.UUID   `json:"loser_group_id"`
	WinnerSide    models.Side `json:"winner_side"`
	MapsPlayed    int         `json:"maps_played"`
	Season        int         `json:"season"`
}

// participant carries a resolved prior through the rating step.
type participant struct {
	userID       uuid.UUID
	prior        models.SkillSnapshot
	matchesCount int
}
