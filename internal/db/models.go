package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Group struct {
	ID        uuid.UUID
	Status    string
	CreatedAt time.Time
}

type GroupMember struct {
	GroupID   uuid.UUID
	UserID    uuid.UUID
	Role      string
	CreatedAt time.Time
}

type Match struct {
	ID           uuid.UUID
	AlphaGroupID uuid.UUID
	BravoGroupID uuid.UUID
	MapList      json.RawMessage
	Memento      pqtype.NullRawMessage
	CreatedAt    time.Time
	ReportedAt   sql.NullTime
	Winners      pqtype.NullRawMessage
}

type Skill struct {
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

type SeedingSkill struct {
	UserID  uuid.UUID
	Type    string
	Mu      float64
	Sigma   float64
	Ordinal float64
}

type MapResult struct {
	GroupMatchID  uuid.UUID
	MapIndex      int32
	Mode          string
	Stage         string
	WinnerGroupID uuid.UUID
}

type PlayerResult struct {
	GroupMatchID uuid.UUID
	UserID       uuid.UUID
	Side         string
	Won          bool
	MapsPlayed   int32
}

type ReportedWeapon struct {
	GroupMatchID uuid.UUID
	UserID       uuid.UUID
	MapIndex     int32
	WeaponID     int32
}

type TeamRoster struct {
	TeamID uuid.UUID
	UserID uuid.UUID
}

type OutboxEvent struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    sql.NullTime
}
