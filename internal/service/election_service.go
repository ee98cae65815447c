package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/election"
)

const (
	ElectionServiceName = "folkout.v1.ElectionService"

	CastRepresentativeBallotProcedure  = "/" + ElectionServiceName + "/CastRepresentativeBallot"
	GetRepresentativeOverviewProcedure = "/" + ElectionServiceName + "/GetRepresentativeOverview"
)

// ElectionService exposes representative elections over Connect.
type ElectionService struct {
	elections *election.Service
}

func NewElectionService(elections *election.Service) *ElectionService {
	return &ElectionService{elections: elections}
}

func (s *ElectionService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(CastRepresentativeBallotProcedure, unary(CastRepresentativeBallotProcedure, s.CastRepresentativeBallot, opts...))
	mux.Handle(GetRepresentativeOverviewProcedure, unary(GetRepresentativeOverviewProcedure, s.GetRepresentativeOverview, opts...))
}

// CastRepresentativeBallot endorses a candidate in the caller's group.
func (s *ElectionService) CastRepresentativeBallot(ctx context.Context, caller identity, req *CastRepresentativeBallotRequest) (*CastRepresentativeBallotResponse, error) {
	votes, err := s.elections.CastBallot(ctx, caller.GroupID, caller.MemberID, req.CandidateID)
	if err != nil {
		return nil, err
	}
	return &CastRepresentativeBallotResponse{TotalVotes: votes}, nil
}

// GetRepresentativeOverview shows the election state of the caller's group.
func (s *ElectionService) GetRepresentativeOverview(ctx context.Context, caller identity, _ *GetRepresentativeOverviewRequest) (*GetRepresentativeOverviewResponse, error) {
	ov, err := s.elections.Overview(ctx, caller.GroupID, caller.MemberID)
	if err != nil {
		return nil, err
	}

	res := &GetRepresentativeOverviewResponse{
		Members:                make([]Candidate, 0, len(ov.Members)),
		IsCallerRepresentative: ov.IsCallerRepresentative,
	}
	for _, c := range ov.Members {
		res.Members = append(res.Members, toCandidate(c))
	}
	if ov.Representative != nil {
		rep := toCandidate(*ov.Representative)
		res.Representative = &rep
	}
	return res, nil
}
