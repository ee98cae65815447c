// Package election derives each group's representative from the members'
// endorsements.
//
// Every member holds at most one endorsement per group. The representative
// is the member with strictly more endorsements than anyone else; a tie for
// the top count, or no endorsements at all, means the group has none. The
// representative is computed on every read and never stored.
package election

import (
	"context"
	"log/slog"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/storage"
)

// Store is the persistence the election needs.
type Store interface {
	storage.ElectionStore
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
}

// Service runs representative elections.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new election Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "election"),
		now:    time.Now,
	}
}

// Elect returns the strict-plurality winner among candidates, or nil.
func Elect(candidates []models.Candidate) *models.Candidate {
	var best *models.Candidate
	tied := false
	for i := range candidates {
		c := &candidates[i]
		switch {
		case best == nil || c.Votes > best.Votes:
			best, tied = c, false
		case c.Votes == best.Votes:
			tied = true
		}
	}
	if best == nil || best.Votes == 0 || tied {
		return nil
	}
	winner := *best
	return &winner
}

// Overview lists the group's members with their endorsement counts and the
// current representative as seen by callerID.
func (s *Service) Overview(ctx context.Context, groupID, callerID int64) (*models.RepresentativeOverview, error) {
	candidates, err := s.store.ListCandidates(ctx, groupID)
	if err != nil {
		return nil, err
	}

	rep := Elect(candidates)
	return &models.RepresentativeOverview{
		Members:                candidates,
		Representative:         rep,
		IsCallerRepresentative: rep != nil && rep.MemberID == callerID,
	}, nil
}

// Current returns the representative of a group, or nil if there is none.
func (s *Service) Current(ctx context.Context, groupID int64) (*models.Candidate, error) {
	candidates, err := s.store.ListCandidates(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return Elect(candidates), nil
}

// RequireRepresentative fails with an Authorization error unless memberID is
// the current representative of groupID.
func (s *Service) RequireRepresentative(ctx context.Context, groupID, memberID int64) error {
	rep, err := s.Current(ctx, groupID)
	if err != nil {
		return err
	}
	if rep == nil || rep.MemberID != memberID {
		return apperr.Authorization("only the group representative may do this")
	}
	return nil
}

// CastBallot records voterID's endorsement of candidateID, replacing any
// earlier endorsement by the voter in the group. It returns the candidate's
// endorsement count afterwards.
func (s *Service) CastBallot(ctx context.Context, groupID, voterID, candidateID int64) (int, error) {
	if candidateID <= 0 {
		return 0, apperr.Validation("candidate is required")
	}

	voter, err := s.store.GetMember(ctx, voterID)
	if err != nil {
		return 0, err
	}
	if voter.GroupID != groupID {
		return 0, apperr.Validation("voter and candidate must belong to the same group")
	}

	votes, err := s.store.UpsertRepresentativeBallot(ctx, models.RepresentativeBallot{
		GroupID:     groupID,
		VoterID:     voterID,
		CandidateID: candidateID,
		CastAt:      s.now().Unix(),
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Representative ballot cast",
		"group_id", groupID,
		"voter_id", voterID,
		"candidate_id", candidateID,
		"votes", votes,
	)
	return votes, nil
}
