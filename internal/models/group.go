package models

// GroupCapacity is the number of members a group accepts before a new group
// is opened.
const GroupCapacity = 50

// Group is a capacity-bounded set of members.
type Group struct {
	// ID is the database identifier of the group.
	ID int64

	// MemberCount is the number of members at read time.
	MemberCount int

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}
