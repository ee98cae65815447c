package service

import (
	"github.com/folkout/folkout/internal/models"
)

// Timestamps are Unix seconds throughout.

type CreateProposalRequest struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=expel"`
	Reason   string `json:"reason" validate:"required,max=1000"`
	Deadline *int64 `json:"deadline,omitempty" validate:"omitempty,gt=0"`
	TargetID int64  `json:"targetId" validate:"gte=0"`
}

type CreateProposalResponse struct {
	ProposalID string `json:"proposalId"`
}

type CastBallotRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Choice     string `json:"choice" validate:"required,oneof=yes no"`
}

type TallyResponse struct {
	Yes int `json:"yesCount"`
	No  int `json:"noCount"`
}

type ListProposalsRequest struct{}

type Proposal struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Reason        string `json:"reason"`
	Resolved      bool   `json:"resolved"`
	Deadline      int64  `json:"deadline"`
	InitiatorID   int64  `json:"initiatorId,omitempty"`
	TargetID      int64  `json:"targetId,omitempty"`
	InitiatorName string `json:"initiatorName,omitempty"`
	TargetName    string `json:"targetName,omitempty"`
	GroupID       int64  `json:"groupId"`
	Yes           int    `json:"yesCount"`
	No            int    `json:"noCount"`
	CreatedAt     int64  `json:"createdAt"`
}

type ListProposalsResponse struct {
	Proposals []Proposal `json:"proposals"`
}

type ResolveProposalRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Reason     string `json:"reason,omitempty" validate:"max=1000"`
	TargetID   int64  `json:"targetId,omitempty" validate:"gte=0"`
	GroupID    int64  `json:"groupId,omitempty" validate:"gte=0"`
}

type ResolveProposalResponse struct {
	Skipped       bool   `json:"skipped"`
	Outcome       string `json:"outcome,omitempty"`
	Yes           int    `json:"yesCount"`
	No            int    `json:"noCount"`
	TargetRemoved bool   `json:"targetRemoved"`
}

type DeleteProposalRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

type DeleteProposalResponse struct{}

type ListHistoryRequest struct{}

type HistoryEntry struct {
	ID             int64  `json:"id"`
	ProposalID     string `json:"proposalId"`
	Action         string `json:"action"`
	Reason         string `json:"reason"`
	Yes            int    `json:"yes"`
	No             int    `json:"no"`
	Resolved       bool   `json:"resolved"`
	ResolvedAt     int64  `json:"resolvedAt"`
	TargetName     string `json:"targetName"`
	Representative string `json:"representative"`
}

type ListHistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

type AddCommentRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Text       string `json:"text" validate:"required,max=1000"`
}

type AddCommentResponse struct {
	CommentID string `json:"commentId"`
	Nickname  string `json:"nickname"`
	CreatedAt int64  `json:"createdAt"`
}

type ListCommentsRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
}

type Comment struct {
	ID        string `json:"id"`
	MemberID  int64  `json:"memberId"`
	Nickname  string `json:"nickname"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"createdAt"`
}

type ListCommentsResponse struct {
	Comments []Comment `json:"comments"`
}

type CastRepresentativeBallotRequest struct {
	CandidateID int64 `json:"candidateId" validate:"gt=0"`
}

type CastRepresentativeBallotResponse struct {
	TotalVotes int `json:"totalVotes"`
}

type GetRepresentativeOverviewRequest struct{}

type Candidate struct {
	MemberID int64  `json:"memberId"`
	Nickname string `json:"nickname"`
	Icon     string `json:"icon,omitempty"`
	Votes    int    `json:"votes"`
}

type GetRepresentativeOverviewResponse struct {
	Members                []Candidate `json:"members"`
	Representative         *Candidate  `json:"representative"`
	IsCallerRepresentative bool        `json:"isCallerRepresentative"`
}

type CreateAccountRequest struct{}

type CreateAccountResponse struct {
	MemberID  int64  `json:"memberId"`
	GroupID   int64  `json:"groupId"`
	Nickname  string `json:"nickname"`
	SecretKey string `json:"secretKey"`
}

type LoginRequest struct {
	SecretKey string `json:"secretKey" validate:"required,secret_key"`
}

type LoginResponse struct {
	Member     Member `json:"member"`
	Token      string `json:"token"`
	ExpiresIn  int64  `json:"expiresIn"`
	FirstLogin bool   `json:"firstLogin"`
}

type MeRequest struct{}

type Member struct {
	ID        int64  `json:"id"`
	GroupID   int64  `json:"groupId"`
	Nickname  string `json:"nickname"`
	Icon      string `json:"icon,omitempty"`
	LastLogin int64  `json:"lastLogin,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

type DeleteAccountRequest struct{}

type DeleteAccountResponse struct{}

type CreateTagRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

type ListTagsRequest struct{}

type ListTagsResponse struct {
	Tags []Tag `json:"tags"`
}

type DeleteTagRequest struct {
	TagID int64 `json:"tagId" validate:"gt=0"`
}

type DeleteTagResponse struct{}

func toProposal(s models.ProposalSummary) Proposal {
	return Proposal{
		ID:            s.ID,
		Kind:          string(s.Kind),
		Reason:        s.Reason,
		Resolved:      s.Resolved,
		Deadline:      s.Deadline,
		InitiatorID:   s.InitiatorID,
		TargetID:      s.TargetID,
		InitiatorName: s.InitiatorName,
		TargetName:    s.TargetName,
		GroupID:       s.GroupID,
		Yes:           s.Tally.Yes,
		No:            s.Tally.No,
		CreatedAt:     s.CreatedAt,
	}
}

func toCandidate(c models.Candidate) Candidate {
	return Candidate{MemberID: c.MemberID, Nickname: c.Nickname, Icon: c.Icon, Votes: c.Votes}
}

func toMember(m *models.Member) Member {
	return Member{
		ID:        m.ID,
		GroupID:   m.GroupID,
		Nickname:  m.Nickname,
		Icon:      m.Icon,
		LastLogin: m.LastLogin,
		CreatedAt: m.CreatedAt,
	}
}
