// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/folkout/folkout/internal/models"
)

// MemberStore persists accounts and groups.
type MemberStore interface {
	// CreateMember assigns a new member to the lowest-numbered group with
	// fewer than capacity members, opening a new group when all are full.
	// The nickname is set to "user<ID>".
	CreateMember(ctx context.Context, capacity int, secretHash string) (*models.Member, error)

	// GetMember retrieves a member by ID.
	// Returns a NotFound error if the member does not exist.
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)

	// RecordLogin marks the member's first login, or updates LastLogin on
	// later ones. It reports whether this was the first login.
	RecordLogin(ctx context.Context, memberID int64, at time.Time) (bool, error)

	// DeleteMember removes the member and everything it owns in one
	// transaction. It returns the member's icon path, if any.
	DeleteMember(ctx context.Context, memberID int64) (string, error)

	// ListInactiveMembers returns members that never logged in and were
	// created before probationCutoff, plus members whose last login is
	// before dormantCutoff.
	ListInactiveMembers(ctx context.Context, probationCutoff, dormantCutoff time.Time) ([]int64, error)

	// MemberFootprint counts the records the member still owns.
	MemberFootprint(ctx context.Context, memberID int64) (models.Footprint, error)
}

// ProposalStore persists vote proposals, ballots, history and comments.
type ProposalStore interface {
	// CreateProposal persists a new open proposal. The proposal.ID and
	// proposal.CreatedAt fields are populated by the store. It fails with a
	// Conflict error if the group already has an open proposal of the same
	// kind.
	CreateProposal(ctx context.Context, proposal *models.Proposal) error

	// GetProposal retrieves a proposal by ID.
	GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error)

	// ListProposals returns all proposals of a group with their counts,
	// newest first.
	ListProposals(ctx context.Context, groupID int64) ([]models.ProposalSummary, error)

	// DeleteProposal removes an open proposal with its ballots and comments.
	DeleteProposal(ctx context.Context, proposalID string) error

	// CastBallot replaces the member's ballot on an open proposal and
	// returns the new tally.
	CastBallot(ctx context.Context, ballot models.Ballot, now time.Time) (models.Tally, error)

	// Tally counts the ballots of a proposal.
	Tally(ctx context.Context, proposalID string) (models.Tally, error)

	// ResolveProposal resolves an open proposal in one transaction. A
	// missing or already resolved proposal yields Resolution.Skipped.
	ResolveProposal(ctx context.Context, proposalID string, overrides models.Overrides, now time.Time) (*models.Resolution, error)

	// ListOpenProposals returns every unresolved proposal.
	ListOpenProposals(ctx context.Context) ([]models.ScheduledProposal, error)

	// ListDueProposals returns unresolved proposals whose deadline is not
	// after now.
	ListDueProposals(ctx context.Context, now time.Time) ([]models.ScheduledProposal, error)

	// ListHistory returns the resolved outcomes of a group, newest first.
	ListHistory(ctx context.Context, groupID int64) ([]models.HistoryEntry, error)

	// AddVoteComment persists a comment. comment.ID, comment.CreatedAt and
	// comment.Nickname are populated by the store.
	AddVoteComment(ctx context.Context, comment *models.VoteComment) error

	// ListVoteComments returns the comments of a proposal, newest first.
	ListVoteComments(ctx context.Context, proposalID string) ([]models.VoteComment, error)
}

// ElectionStore persists representative endorsements.
type ElectionStore interface {
	// ListCandidates returns every member of the group with the number of
	// endorsements they hold within the group.
	ListCandidates(ctx context.Context, groupID int64) ([]models.Candidate, error)

	// UpsertRepresentativeBallot replaces the voter's endorsement and
	// returns the candidate's new endorsement count.
	UpsertRepresentativeBallot(ctx context.Context, ballot models.RepresentativeBallot) (int, error)
}

// LibraryStore persists tags and the posts they label.
type LibraryStore interface {
	CreateTag(ctx context.Context, tag *models.Tag) error
	ListTags(ctx context.Context, groupID int64) ([]models.Tag, error)

	// DeleteTag removes a tag and clears it from the group's posts.
	DeleteTag(ctx context.Context, groupID, tagID int64) error

	CreatePost(ctx context.Context, post *models.Post) error
	CreatePostComment(ctx context.Context, comment *models.PostComment) error
}

// Store defines the full storage surface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	MemberStore
	ProposalStore
	ElectionStore
	LibraryStore

	// Close releases any resources held by the store.
	Close() error
}
