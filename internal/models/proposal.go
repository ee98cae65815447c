package models

// ProposalKind names what a proposal decides.
type ProposalKind string

const (
	// KindExpel proposes removing TargetID from the group.
	KindExpel ProposalKind = "expel"
)

// Valid reports whether k is a kind the lifecycle engine handles.
func (k ProposalKind) Valid() bool {
	return k == KindExpel
}

// RequiresTarget reports whether proposals of kind k must name a member.
func (k ProposalKind) RequiresTarget() bool {
	return k == KindExpel
}

// Action is the label recorded in vote history for this kind.
func (k ProposalKind) Action() string {
	switch k {
	case KindExpel:
		return "追放"
	default:
		return string(k)
	}
}

// Choice is a ballot value.
type Choice string

const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

// Valid reports whether c is yes or no.
func (c Choice) Valid() bool {
	return c == ChoiceYes || c == ChoiceNo
}

// Outcome is the result of a resolved proposal.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Proposal is a time-boxed group decision. It is Open until Resolved is set,
// and Resolved is terminal.
type Proposal struct {
	// ID is the unique identifier (UUID format).
	ID string

	// GroupID is the group voting on the proposal.
	GroupID int64

	// Kind is what the proposal decides.
	Kind ProposalKind

	// Reason is the free-text motivation. After resolution it holds the
	// final reason, which an early-resolve request may override.
	Reason string

	// Deadline is the Unix timestamp at which the proposal auto-resolves.
	Deadline int64

	// Resolved is set exactly once, when the proposal is resolved.
	Resolved bool

	// InitiatorID is the member who created the proposal, 0 once deleted.
	InitiatorID int64

	// TargetID is the member the proposal is about, 0 if none.
	TargetID int64

	// InitiatorName and TargetName are nickname snapshots taken at
	// resolution time, because either member may be gone afterwards.
	InitiatorName string
	TargetName    string

	// ResolvedTally holds the final counts once Resolved is set.
	ResolvedTally Tally

	// CreatedAt is the Unix timestamp when the proposal was created.
	CreatedAt int64
}

// ProposalSummary is a proposal with its current counts.
type ProposalSummary struct {
	Proposal
	Tally Tally
}

// Tally counts the ballots of one proposal.
type Tally struct {
	Yes int
	No  int
}

// Passed reports whether yes strictly outnumbers no. Ties, including zero
// ballots, fail.
func (t Tally) Passed() bool {
	return t.Yes > t.No
}

// Outcome maps Passed to an Outcome.
func (t Tally) Outcome() Outcome {
	if t.Passed() {
		return OutcomePass
	}
	return OutcomeFail
}

// Ballot is one member's current choice on an open proposal. There is at
// most one ballot per (ProposalID, MemberID).
type Ballot struct {
	ProposalID string
	MemberID   int64
	GroupID    int64
	Choice     Choice
	CastAt     int64
}

// Overrides replace stored proposal fields when a proposal is resolved by
// explicit request. Zero values fall back to the stored proposal.
type Overrides struct {
	Reason      string
	InitiatorID int64
	TargetID    int64
	GroupID     int64
}

// Resolution describes what a resolve attempt did.
type Resolution struct {
	ProposalID string

	// Skipped is set when the proposal was missing or already resolved.
	Skipped bool

	Outcome Outcome
	Tally   Tally

	// TargetRemoved is set when the cascade deleted the target member.
	TargetRemoved bool

	// TargetIcon is the asset path of the removed target's icon, to be
	// deleted once the transaction has committed.
	TargetIcon string

	// HistoryID is the HistoryEntry written for this resolution.
	HistoryID int64
}

// HistoryEntry is the immutable archive of a resolved proposal.
type HistoryEntry struct {
	ID                 int64
	ProposalID         string
	Action             string
	Reason             string
	Yes                int
	No                 int
	Resolved           bool
	ResolvedAt         int64
	TargetName         string
	RepresentativeName string
	GroupID            int64
	CreatedAt          int64
}

// VoteComment is a remark on a proposal. It is never edited.
type VoteComment struct {
	ID         string
	ProposalID string
	MemberID   int64
	Nickname   string
	Body       string
	CreatedAt  int64
}

// ScheduledProposal is the part of an open proposal the scheduler needs.
type ScheduledProposal struct {
	ID       string
	Deadline int64
}
