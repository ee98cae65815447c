package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// CastBallot replaces the member's ballot on an open proposal. The delete and
// insert share one write transaction, so no reader sees the member without a
// ballot and two concurrent ballots from the member cannot both land.
func (s *SQLiteStore) CastBallot(ctx context.Context, ballot models.Ballot, now time.Time) (models.Tally, error) {
	var tally models.Tally
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var groupID, deadline int64
		var resolved bool
		err := tx.QueryRowContext(ctx,
			"SELECT group_id, resolved, deadline FROM vote_proposals WHERE id = ?",
			ballot.ProposalID,
		).Scan(&groupID, &resolved, &deadline)
		if err == sql.ErrNoRows {
			return apperr.NotFound("proposal not found: %s", ballot.ProposalID)
		}
		if err != nil {
			return apperr.Storage("failed to load proposal", err)
		}

		// The voter's stored group is authoritative; the caller's claim may
		// predate an expulsion or account deletion.
		voter, err := getMember(ctx, tx, ballot.MemberID)
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.Authorization("member %d no longer exists", ballot.MemberID)
		}
		if err != nil {
			return err
		}
		if groupID != ballot.GroupID || voter.GroupID != groupID {
			return apperr.Authorization("member %d cannot vote in group %d", ballot.MemberID, groupID)
		}
		if resolved {
			return apperr.Conflict("proposal %s is already resolved", ballot.ProposalID)
		}
		if deadline <= now.Unix() {
			return apperr.Conflict("proposal %s is past its deadline", ballot.ProposalID)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vote_ballots WHERE proposal_id = ? AND member_id = ?",
			ballot.ProposalID, ballot.MemberID,
		); err != nil {
			return apperr.Storage("failed to remove previous ballot", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vote_ballots (proposal_id, member_id, group_id, choice, cast_at)
			 VALUES (?, ?, ?, ?, ?)`,
			ballot.ProposalID, ballot.MemberID, ballot.GroupID, ballot.Choice, now.Unix(),
		); err != nil {
			return apperr.Storage("failed to insert ballot", err)
		}

		tally, err = countBallots(ctx, tx, ballot.ProposalID)
		return err
	})
	return tally, err
}

// Tally counts the ballots of a proposal.
func (s *SQLiteStore) Tally(ctx context.Context, proposalID string) (models.Tally, error) {
	return countBallots(ctx, s.db, proposalID)
}

func countBallots(ctx context.Context, q querier, proposalID string) (models.Tally, error) {
	var t models.Tally
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(choice = 'yes'), 0), COALESCE(SUM(choice = 'no'), 0)
		 FROM vote_ballots WHERE proposal_id = ?`,
		proposalID,
	).Scan(&t.Yes, &t.No)
	if err != nil {
		return t, apperr.Storage("failed to tally ballots", err)
	}
	return t, nil
}
