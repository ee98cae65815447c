package models

// UnknownName is shown in place of a nickname that could not be resolved,
// typically because the member has been deleted.
const UnknownName = "不明"

// Member is an account. Members are anonymous: they log in with a secret
// key handed out once at creation.
type Member struct {
	// ID is the database identifier of the member.
	ID int64

	// GroupID is the group the member was assigned to at creation.
	GroupID int64

	// Nickname is the display name, "user<ID>" until changed.
	Nickname string

	// Icon is the asset path of the member's avatar, empty when unset.
	Icon string

	// SecretHash is the bcrypt hash of the member's secret key.
	SecretHash string

	// FirstLoginDone is set once the member has logged in for the first time.
	FirstLoginDone bool

	// LastLogin is the Unix timestamp of the latest login, 0 if none.
	LastLogin int64

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// Footprint counts the records a member owns. It is used to verify that a
// cascade delete left nothing behind.
type Footprint struct {
	Exists             bool
	Posts              int
	PostComments       int
	VoteComments       int
	Endorsements       int
	ProposalsTargeting int
	Ballots            int
}

// Empty reports whether nothing of the member remains.
func (f Footprint) Empty() bool {
	return !f.Exists && f.Posts == 0 && f.PostComments == 0 && f.VoteComments == 0 &&
		f.Endorsements == 0 && f.ProposalsTargeting == 0 && f.Ballots == 0
}
