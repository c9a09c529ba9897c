package group

import "errors"

var (
	// ErrUserAlreadyQueued is returned when a user already belongs to an
	// ACTIVE group; correcting state (leaving that group) makes a retry safe.
	ErrUserAlreadyQueued = errors.New("user already belongs to an active group")

	// ErrGroupFull is returned when a group already has the maximum number
	// of members.
	ErrGroupFull = errors.New("group is full")

	// ErrGroupNotFound is returned when the group does not exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupInactive is returned when an operation requires an ACTIVE
	// group but the group has already been deactivated.
	ErrGroupInactive = errors.New("group is inactive")

	// ErrGroupPaired is returned when adding a member to a group that is
	// currently in an unresolved match; the roster is frozen until the
	// match resolves.
	ErrGroupPaired = errors.New("group is in an unresolved match")

	// ErrMemberNotFound is returned when removing a user who is not a
	// member of the group.
	ErrMemberNotFound = errors.New("member not found in group")
)
