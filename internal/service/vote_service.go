package service

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/vote"
)

const (
	VoteServiceName = "folkout.v1.VoteService"

	CreateProposalProcedure  = "/" + VoteServiceName + "/CreateProposal"
	CastBallotProcedure      = "/" + VoteServiceName + "/CastBallot"
	ListProposalsProcedure   = "/" + VoteServiceName + "/ListProposals"
	ResolveProposalProcedure = "/" + VoteServiceName + "/ResolveProposal"
	DeleteProposalProcedure  = "/" + VoteServiceName + "/DeleteProposal"
	ListHistoryProcedure     = "/" + VoteServiceName + "/ListHistory"
	AddCommentProcedure      = "/" + VoteServiceName + "/AddComment"
	ListCommentsProcedure    = "/" + VoteServiceName + "/ListComments"
)

// VoteService exposes the proposal lifecycle over Connect.
type VoteService struct {
	engine *vote.Engine
}

// NewVoteService creates a new VoteService.
func NewVoteService(engine *vote.Engine) *VoteService {
	return &VoteService{engine: engine}
}

// Register mounts the service's procedures on mux.
func (s *VoteService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(CreateProposalProcedure, unary(CreateProposalProcedure, s.CreateProposal, opts...))
	mux.Handle(CastBallotProcedure, unary(CastBallotProcedure, s.CastBallot, opts...))
	mux.Handle(ListProposalsProcedure, unary(ListProposalsProcedure, s.ListProposals, opts...))
	mux.Handle(ResolveProposalProcedure, unary(ResolveProposalProcedure, s.ResolveProposal, opts...))
	mux.Handle(DeleteProposalProcedure, unary(DeleteProposalProcedure, s.DeleteProposal, opts...))
	mux.Handle(ListHistoryProcedure, unary(ListHistoryProcedure, s.ListHistory, opts...))
	mux.Handle(AddCommentProcedure, unary(AddCommentProcedure, s.AddComment, opts...))
	mux.Handle(ListCommentsProcedure, unary(ListCommentsProcedure, s.ListComments, opts...))
}

// CreateProposal opens a proposal in the caller's group.
func (s *VoteService) CreateProposal(ctx context.Context, caller identity, req *CreateProposalRequest) (*CreateProposalResponse, error) {
	kind := models.ProposalKind(req.Kind)
	if kind == "" {
		kind = models.KindExpel
	}

	in := vote.CreateInput{
		GroupID:     caller.GroupID,
		InitiatorID: caller.MemberID,
		Kind:        kind,
		Reason:      req.Reason,
		TargetID:    req.TargetID,
	}
	if req.Deadline != nil {
		deadline := time.Unix(*req.Deadline, 0)
		in.Deadline = &deadline
	}

	id, err := s.engine.CreateProposal(ctx, in)
	if err != nil {
		return nil, err
	}
	return &CreateProposalResponse{ProposalID: id}, nil
}

// CastBallot records the caller's choice on a proposal.
func (s *VoteService) CastBallot(ctx context.Context, caller identity, req *CastBallotRequest) (*TallyResponse, error) {
	tally, err := s.engine.CastBallot(ctx, req.ProposalID, caller.MemberID, caller.GroupID, models.Choice(req.Choice))
	if err != nil {
		return nil, err
	}
	return &TallyResponse{Yes: tally.Yes, No: tally.No}, nil
}

// ListProposals lists every proposal of the caller's group.
func (s *VoteService) ListProposals(ctx context.Context, caller identity, _ *ListProposalsRequest) (*ListProposalsResponse, error) {
	summaries, err := s.engine.ListProposals(ctx, caller.GroupID)
	if err != nil {
		return nil, err
	}

	res := &ListProposalsResponse{Proposals: make([]Proposal, 0, len(summaries))}
	for _, sum := range summaries {
		res.Proposals = append(res.Proposals, toProposal(sum))
	}
	return res, nil
}

// ResolveProposal closes a proposal before its deadline.
func (s *VoteService) ResolveProposal(ctx context.Context, caller identity, req *ResolveProposalRequest) (*ResolveProposalResponse, error) {
	res, err := s.engine.ResolveEarly(ctx, vote.ResolveInput{
		ProposalID:    req.ProposalID,
		CallerID:      caller.MemberID,
		CallerGroupID: caller.GroupID,
		Reason:        req.Reason,
		TargetID:      req.TargetID,
		GroupID:       req.GroupID,
	})
	if err != nil {
		return nil, err
	}

	return &ResolveProposalResponse{
		Skipped:       res.Skipped,
		Outcome:       string(res.Outcome),
		Yes:           res.Tally.Yes,
		No:            res.Tally.No,
		TargetRemoved: res.TargetRemoved,
	}, nil
}

// DeleteProposal withdraws an open proposal.
func (s *VoteService) DeleteProposal(ctx context.Context, caller identity, req *DeleteProposalRequest) (*DeleteProposalResponse, error) {
	if err := s.engine.DeleteProposal(ctx, req.ProposalID, caller.MemberID, caller.GroupID); err != nil {
		return nil, err
	}
	return &DeleteProposalResponse{}, nil
}

// ListHistory lists the resolved outcomes of the caller's group.
func (s *VoteService) ListHistory(ctx context.Context, caller identity, _ *ListHistoryRequest) (*ListHistoryResponse, error) {
	entries, err := s.engine.ListHistory(ctx, caller.GroupID)
	if err != nil {
		return nil, err
	}

	res := &ListHistoryResponse{Entries: make([]HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		res.Entries = append(res.Entries, HistoryEntry{
			ID:             e.ID,
			ProposalID:     e.ProposalID,
			Action:         e.Action,
			Reason:         e.Reason,
			Yes:            e.Yes,
			No:             e.No,
			Resolved:       e.Resolved,
			ResolvedAt:     e.ResolvedAt,
			TargetName:     e.TargetName,
			Representative: e.RepresentativeName,
		})
	}
	return res, nil
}

// AddComment comments on a proposal.
func (s *VoteService) AddComment(ctx context.Context, caller identity, req *AddCommentRequest) (*AddCommentResponse, error) {
	c, err := s.engine.AddComment(ctx, req.ProposalID, caller.MemberID, caller.GroupID, req.Text)
	if err != nil {
		return nil, err
	}
	return &AddCommentResponse{CommentID: c.ID, Nickname: c.Nickname, CreatedAt: c.CreatedAt}, nil
}

// ListComments lists the comments of a proposal, newest first.
func (s *VoteService) ListComments(ctx context.Context, caller identity, req *ListCommentsRequest) (*ListCommentsResponse, error) {
	comments, err := s.engine.ListComments(ctx, req.ProposalID, caller.GroupID)
	if err != nil {
		return nil, err
	}

	res := &ListCommentsResponse{Comments: make([]Comment, 0, len(comments))}
	for _, c := range comments {
		res.Comments = append(res.Comments, Comment{
			ID:        c.ID,
			MemberID:  c.MemberID,
			Nickname:  c.Nickname,
			Text:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return res, nil
}
