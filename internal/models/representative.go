package models

// RepresentativeBallot is one voter's endorsement of a candidate within a
// group. There is at most one per (GroupID, VoterID).
type RepresentativeBallot struct {
	GroupID     int64
	VoterID     int64
	CandidateID int64
	CastAt      int64
}

// Candidate is a group member with the number of endorsements they hold.
type Candidate struct {
	MemberID int64
	GroupID  int64
	Nickname string
	Icon     string
	Votes    int
}

// RepresentativeOverview is the election state of a group as seen by one
// member.
type RepresentativeOverview struct {
	// Members lists every member of the group with their endorsement count.
	Members []Candidate

	// Representative is the strict-plurality winner, nil on a tie or when
	// nobody has been endorsed.
	Representative *Candidate

	// IsCallerRepresentative reports whether the requesting member is the
	// representative.
	IsCallerRepresentative bool
}
