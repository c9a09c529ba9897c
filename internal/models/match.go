package models

import (
	"time"

	"github.com/google/uuid"
)

// Side identifies one of the two parties of a match.
type Side string

const (
	SideAlpha Side = "ALPHA"
	SideBravo Side = "BRAVO"
)

// Mode is a game mode in the map rotation.
type Mode string

const (
	ModeTW Mode = "TW" // Turf War
	ModeSZ Mode = "SZ" // Splat Zones
	ModeTC Mode = "TC" // Tower Control
	ModeRM Mode = "RM" // Rainmaker
	ModeCB Mode = "CB" // Clam Blitz
)

// RankedModes is the fallback rotation used when every preferred mode has
// been excluded by the paired groups.
var RankedModes = []Mode{ModeSZ, ModeTC, ModeRM, ModeCB}

// MapListSize is the fixed length of a match's map list.
const MapListSize = 7

// MapSource records which party a map pick is attributed to. Exactly one
// entry of a map list (the last one) is shared, i.e. picked by neither side.
type MapSource struct {
	GroupID uuid.UUID `json:"group_id,omitempty"`
	Shared  bool      `json:"shared,omitempty"`
}

// SourceGroup attributes a pick to one group.
func SourceGroup(id uuid.UUID) MapSource {
	return MapSource{GroupID: id}
}

// SourceShared marks a pick as the shared tiebreaker.
func SourceShared() MapSource {
	return MapSource{Shared: true}
}

// MapListEntry is a single mode/stage pick of a match's map list.
type MapListEntry struct {
	Mode   Mode      `json:"mode"`
	Stage  string    `json:"stage"`
	Source MapSource `json:"source"`
}

// MapList is the ordered, fixed-length sequence of picks for a match.
type MapList [MapListSize]MapListEntry

// SkillSnapshot is a point-in-time (mu, sigma) belief captured in a memento.
type SkillSnapshot struct {
	Mu           float64 `json:"mu"`
	Sigma        float64 `json:"sigma"`
	Ordinal      float64 `json:"ordinal"`
	MatchesCount int     `json:"matches_count"`
}

// Memento is the opaque prior-state snapshot persisted with a match. It holds
// everyone's rating at pairing time so a resolved match can be recomputed and
// audited without depending on rows written after pairing.
type Memento struct {
	Users  map[uuid.UUID]SkillSnapshot `json:"users"`
	Groups map[uuid.UUID]SkillSnapshot `json:"groups"`
}

// Match is a paired contest between two groups.
type Match struct {
	ID           uuid.UUID  `json:"id"`
	AlphaGroupID uuid.UUID  `json:"alpha_group_id"`
	BravoGroupID uuid.UUID  `json:"bravo_group_id"`
	MapList      MapList    `json:"map_list"`
	Memento      *Memento   `json:"memento,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ReportedAt   *time.Time `json:"reported_at,omitempty"`
	Winners      []Side     `json:"winners,omitempty"`
}

// Resolved reports whether the match outcome has been written. Resolution is
// irreversible; a resolved match never becomes unresolved again.
func (m *Match) Resolved() bool {
	return m.ReportedAt != nil
}
