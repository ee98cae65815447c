// Package vote implements the lifecycle of group vote proposals: creation,
// ballots, resolution at the deadline or on request, and the history and
// comments that accompany them.
package vote

import (
	"context"
	"log/slog"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/assets"
	"github.com/folkout/folkout/internal/metrics"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/sanitize"
	"github.com/folkout/folkout/internal/storage"
)

// DefaultDuration is how long a proposal stays open when no deadline is
// given.
const DefaultDuration = 72 * time.Hour

// NoReason replaces an empty reason in history listings.
const NoReason = "理由なし"

// Scheduler arms a one-shot resolution at a proposal's deadline.
type Scheduler interface {
	Schedule(proposalID string, at time.Time)
}

// Authorizer checks representative-only actions.
type Authorizer interface {
	RequireRepresentative(ctx context.Context, groupID, memberID int64) error
}

// Engine runs the proposal lifecycle.
type Engine struct {
	store     storage.ProposalStore
	scheduler Scheduler
	auth      Authorizer
	assets    assets.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger

	duration time.Duration
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAssets sets the store used to delete icons of expelled members.
func WithAssets(s assets.Store) Option {
	return func(e *Engine) { e.assets = s }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDefaultDuration overrides DefaultDuration.
func WithDefaultDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.duration = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine.
func NewEngine(store storage.ProposalStore, scheduler Scheduler, auth Authorizer, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		scheduler: scheduler,
		auth:      auth,
		logger:    slog.Default(),
		duration:  DefaultDuration,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "vote")
	return e
}

// CreateInput describes a new proposal.
type CreateInput struct {
	GroupID     int64
	InitiatorID int64
	Kind        models.ProposalKind
	Reason      string
	Deadline    *time.Time
	TargetID    int64
}

// CreateProposal opens a proposal in the initiator's group and arms its
// deadline. Only the group's representative may open proposals.
func (e *Engine) CreateProposal(ctx context.Context, in CreateInput) (string, error) {
	reason := sanitize.Text(in.Reason)
	if reason == "" {
		return "", apperr.Validation("reason is required")
	}
	if !in.Kind.Valid() {
		return "", apperr.Validation("unknown proposal kind: %q", in.Kind)
	}
	if in.Kind.RequiresTarget() && in.TargetID <= 0 {
		return "", apperr.Validation("target member is required for %s proposals", in.Kind)
	}

	now := e.now()
	deadline := now.Add(e.duration)
	if in.Deadline != nil {
		if !in.Deadline.After(now) {
			return "", apperr.Validation("deadline must be in the future")
		}
		deadline = *in.Deadline
	}

	if err := e.auth.RequireRepresentative(ctx, in.GroupID, in.InitiatorID); err != nil {
		return "", err
	}

	proposal := &models.Proposal{
		GroupID:     in.GroupID,
		Kind:        in.Kind,
		Reason:      reason,
		Deadline:    deadline.Unix(),
		InitiatorID: in.InitiatorID,
		TargetID:    in.TargetID,
		CreatedAt:   now.Unix(),
	}
	if err := e.store.CreateProposal(ctx, proposal); err != nil {
		return "", err
	}

	e.scheduler.Schedule(proposal.ID, time.Unix(proposal.Deadline, 0))
	e.metrics.ProposalCreated()
	e.logger.Info("Proposal created",
		"proposal_id", proposal.ID,
		"group_id", proposal.GroupID,
		"kind", proposal.Kind,
		"target_id", proposal.TargetID,
		"deadline", time.Unix(proposal.Deadline, 0),
	)

	return proposal.ID, nil
}

// CastBallot records the voter's choice, replacing any earlier ballot, and
// returns the tally afterwards.
func (e *Engine) CastBallot(ctx context.Context, proposalID string, voterID, voterGroupID int64, choice models.Choice) (models.Tally, error) {
	if !choice.Valid() {
		return models.Tally{}, apperr.Validation("choice must be yes or no")
	}
	if proposalID == "" {
		return models.Tally{}, apperr.Validation("proposal id is required")
	}

	tally, err := e.store.CastBallot(ctx, models.Ballot{
		ProposalID: proposalID,
		MemberID:   voterID,
		GroupID:    voterGroupID,
		Choice:     choice,
	}, e.now())
	if err != nil {
		return models.Tally{}, err
	}

	e.metrics.BallotCast()
	e.logger.Debug("Ballot cast", "proposal_id", proposalID, "member_id", voterID, "choice", choice)
	return tally, nil
}

// Tally counts the ballots of a proposal. Unknown proposals count zero.
func (e *Engine) Tally(ctx context.Context, proposalID string) (models.Tally, error) {
	return e.store.Tally(ctx, proposalID)
}

// ListProposals returns every proposal of the group, newest first.
func (e *Engine) ListProposals(ctx context.Context, groupID int64) ([]models.ProposalSummary, error) {
	return e.store.ListProposals(ctx, groupID)
}

// Resolve closes a proposal using its stored fields. It is safe to call
// more than once and is what the scheduler invokes at the deadline.
func (e *Engine) Resolve(ctx context.Context, proposalID string) (*models.Resolution, error) {
	return e.resolve(ctx, proposalID, models.Overrides{})
}

// ResolveInput is an explicit request to close a proposal before its
// deadline.
type ResolveInput struct {
	ProposalID    string
	CallerID      int64
	CallerGroupID int64
	Reason        string
	TargetID      int64
	GroupID       int64
}

// ResolveEarly closes a proposal on behalf of the group's representative.
// The caller is recorded as the representative in history. A non-empty
// reason replaces the stored one.
func (e *Engine) ResolveEarly(ctx context.Context, in ResolveInput) (*models.Resolution, error) {
	p, err := e.store.GetProposal(ctx, in.ProposalID)
	if err != nil {
		return nil, err
	}
	if p.GroupID != in.CallerGroupID {
		return nil, apperr.Authorization("proposal %s belongs to another group", in.ProposalID)
	}
	if in.GroupID != 0 && in.GroupID != p.GroupID {
		return nil, apperr.Validation("group %d does not match the proposal", in.GroupID)
	}
	if in.TargetID != 0 && p.TargetID != 0 && in.TargetID != p.TargetID {
		return nil, apperr.Validation("target %d does not match the proposal", in.TargetID)
	}
	if err := e.auth.RequireRepresentative(ctx, p.GroupID, in.CallerID); err != nil {
		return nil, err
	}

	return e.resolve(ctx, in.ProposalID, models.Overrides{
		Reason:      sanitize.Text(in.Reason),
		InitiatorID: in.CallerID,
		TargetID:    in.TargetID,
		GroupID:     p.GroupID,
	})
}

func (e *Engine) resolve(ctx context.Context, proposalID string, overrides models.Overrides) (*models.Resolution, error) {
	res, err := e.store.ResolveProposal(ctx, proposalID, overrides, e.now())
	if err != nil {
		return nil, err
	}
	if res.Skipped {
		e.logger.Debug("Proposal already resolved", "proposal_id", proposalID)
		return res, nil
	}

	e.metrics.Resolved(string(res.Outcome))
	e.logger.Info("Proposal resolved",
		"proposal_id", proposalID,
		"outcome", res.Outcome,
		"yes", res.Tally.Yes,
		"no", res.Tally.No,
		"target_removed", res.TargetRemoved,
	)

	if res.TargetRemoved {
		e.metrics.MemberRemoved("expelled")
		e.deleteIcon(ctx, res.TargetIcon)
	}
	return res, nil
}

// deleteIcon removes an icon after its owner has been deleted. Failures are
// logged and otherwise ignored; the member is already gone.
func (e *Engine) deleteIcon(ctx context.Context, icon string) {
	if icon == "" || e.assets == nil {
		return
	}
	if err := e.assets.Delete(ctx, icon); err != nil {
		e.logger.Warn("Failed to delete icon", "icon", icon, "error", err)
	}
}

// DeleteProposal withdraws an open proposal. Only the group's representative
// may do so.
func (e *Engine) DeleteProposal(ctx context.Context, proposalID string, callerID, callerGroupID int64) error {
	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.GroupID != callerGroupID {
		return apperr.Authorization("proposal %s belongs to another group", proposalID)
	}
	if err := e.auth.RequireRepresentative(ctx, p.GroupID, callerID); err != nil {
		return err
	}

	if err := e.store.DeleteProposal(ctx, proposalID); err != nil {
		return err
	}

	e.logger.Info("Proposal deleted", "proposal_id", proposalID, "member_id", callerID)
	return nil
}

// ListHistory returns the resolved outcomes of a group, newest first.
func (e *Engine) ListHistory(ctx context.Context, groupID int64) ([]models.HistoryEntry, error) {
	entries, err := e.store.ListHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].TargetName == "" {
			entries[i].TargetName = models.UnknownName
		}
		if entries[i].RepresentativeName == "" {
			entries[i].RepresentativeName = models.UnknownName
		}
		if entries[i].Reason == "" {
			entries[i].Reason = NoReason
		}
	}
	return entries, nil
}

// AddComment attaches a comment to a proposal of the author's group.
func (e *Engine) AddComment(ctx context.Context, proposalID string, authorID, authorGroupID int64, text string) (*models.VoteComment, error) {
	body := sanitize.Text(text)
	if body == "" {
		return nil, apperr.Validation("comment text is required")
	}

	if err := e.checkGroup(ctx, proposalID, authorGroupID); err != nil {
		return nil, err
	}

	comment := &models.VoteComment{
		ProposalID: proposalID,
		MemberID:   authorID,
		Body:       body,
	}
	if err := e.store.AddVoteComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the comments of a proposal, newest first.
func (e *Engine) ListComments(ctx context.Context, proposalID string, callerGroupID int64) ([]models.VoteComment, error) {
	if err := e.checkGroup(ctx, proposalID, callerGroupID); err != nil {
		return nil, err
	}
	return e.store.ListVoteComments(ctx, proposalID)
}

func (e *Engine) checkGroup(ctx context.Context, proposalID string, groupID int64) error {
	p, err := e.store.GetProposal(ctx, proposalID)
	if err != nil {
		return err
	}
	if p.GroupID != groupID {
		return apperr.Authorization("proposal %s belongs to another group", proposalID)
	}
	return nil
}
