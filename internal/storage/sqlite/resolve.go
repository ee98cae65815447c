package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// ResolveProposal closes an open proposal in a single write transaction:
// the tally is frozen on the proposal, a history row is recorded, the
// ballots are cleared and, for a passing expel vote, the target's records
// are removed. Repeated calls for the same proposal are no-ops.
func (s *SQLiteStore) ResolveProposal(ctx context.Context, proposalID string, overrides models.Overrides, now time.Time) (*models.Resolution, error) {
	res := &models.Resolution{ProposalID: proposalID}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if apperr.Is(err, apperr.KindNotFound) {
			res.Skipped = true
			return nil
		}
		if err != nil {
			return err
		}
		if p.Resolved {
			res.Skipped = true
			return nil
		}

		reason, initiatorID, targetID, groupID := p.Reason, p.InitiatorID, p.TargetID, p.GroupID
		if overrides.Reason != "" {
			reason = overrides.Reason
		}
		if overrides.InitiatorID != 0 {
			initiatorID = overrides.InitiatorID
		}
		if overrides.TargetID != 0 {
			targetID = overrides.TargetID
		}
		if overrides.GroupID != 0 {
			groupID = overrides.GroupID
		}

		tally, err := countBallots(ctx, tx, proposalID)
		if err != nil {
			return err
		}

		initiatorName, err := nicknameOr(ctx, tx, initiatorID, models.UnknownName)
		if err != nil {
			return err
		}
		targetName, err := nicknameOr(ctx, tx, targetID, models.UnknownName)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE vote_proposals
			 SET resolved = 1, reason = ?, resolved_yes = ?, resolved_no = ?, initiator_name = ?, target_name = ?
			 WHERE id = ? AND resolved = 0`,
			reason, tally.Yes, tally.No, initiatorName, targetName, proposalID,
		)
		if err != nil {
			return apperr.Storage("failed to mark proposal resolved", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return apperr.Storage("failed to mark proposal resolved", err)
		} else if n == 0 {
			res.Skipped = true
			return nil
		}

		outcome := tally.Outcome()
		result, err = tx.ExecContext(ctx,
			`INSERT INTO vote_history
			 (proposal_id, action, reason, yes, no, resolved, resolved_at, target_name, representative_name, group_id, created_at)
			 VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?)`,
			proposalID, p.Kind.Action(), reason, tally.Yes, tally.No, now.Unix(),
			targetName, initiatorName, groupID, now.Unix(),
		)
		if err != nil {
			return apperr.Storage("failed to insert history", err)
		}
		if res.HistoryID, err = result.LastInsertId(); err != nil {
			return apperr.Storage("failed to read history id", err)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vote_ballots WHERE proposal_id = ?", proposalID,
		); err != nil {
			return apperr.Storage("failed to clear ballots", err)
		}

		res.Outcome = outcome
		res.Tally = tally

		if outcome == models.OutcomePass && p.Kind.RequiresTarget() && targetID != 0 {
			icon, removed, err := deleteMemberFootprint(ctx, tx, targetID, proposalID)
			if err != nil {
				return err
			}
			res.TargetRemoved = removed
			res.TargetIcon = icon
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}
