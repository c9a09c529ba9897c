package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupStatus defines the lifecycle state of a queue group.
type GroupStatus string

const (
	GroupStatusActive   GroupStatus = "ACTIVE"
	GroupStatusInactive GroupStatus = "INACTIVE"
)

// MemberRole defines a member's role inside a group.
type MemberRole string

const (
	MemberRoleOwner   MemberRole = "OWNER"
	MemberRoleRegular MemberRole = "REGULAR"
)

// MaxGroupSize is the hard member cap for a queue group.
const MaxGroupSize = 4

// Group represents a queued party of 1-4 players. A group is created when a
// user starts queueing and becomes INACTIVE permanently once its match is
// resolved; the next queue session creates a fresh group.
type Group struct {
	ID        uuid.UUID   `json:"id"`
	Status    GroupStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// GroupMember represents a user's membership in a group.
type GroupMember struct {
	GroupID   uuid.UUID  `json:"group_id"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      MemberRole `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}
