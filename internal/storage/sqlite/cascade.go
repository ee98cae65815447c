package sqlite

import (
	"context"
	"database/sql"

	"github.com/folkout/folkout/internal/apperr"
)

// cascadeStep is one statement of a member cascade delete. Statements bind
// the member ID as ?1 and, when withProposal is set, the ID of the proposal
// being resolved as ?2 (empty when the delete is not the result of a vote).
type cascadeStep struct {
	name         string
	query        string
	withProposal bool
}

// memberCascade removes a member's records children before parents, so that
// the foreign keys enabled on every connection verify the order.
//
// A proposal being resolved against the member is detached rather than
// deleted; its name snapshots already identify the target.
var memberCascade = []cascadeStep{
	{"vote comments",
		`DELETE FROM vote_comments
		 WHERE member_id = ?1
		    OR proposal_id IN (SELECT id FROM vote_proposals WHERE target_id = ?1 AND id != ?2)`, true},
	{"post comments",
		`DELETE FROM post_comments
		 WHERE member_id = ?1
		    OR post_id IN (SELECT id FROM posts WHERE member_id = ?1)`, false},
	{"posts",
		`DELETE FROM posts WHERE member_id = ?1`, false},
	{"ballots",
		`DELETE FROM vote_ballots
		 WHERE member_id = ?1
		    OR proposal_id = ?2
		    OR proposal_id IN (SELECT id FROM vote_proposals WHERE target_id = ?1)`, true},
	{"proposals targeting member",
		`DELETE FROM vote_proposals WHERE target_id = ?1 AND id != ?2`, true},
	{"resolved proposal target",
		`UPDATE vote_proposals SET target_id = NULL WHERE target_id = ?1`, false},
	{"proposal initiator",
		`UPDATE vote_proposals SET initiator_id = NULL WHERE initiator_id = ?1`, false},
	{"representative ballots",
		`DELETE FROM representative_ballots WHERE voter_id = ?1 OR candidate_id = ?1`, false},
	{"member",
		`DELETE FROM members WHERE id = ?1`, false},
}

// deleteMemberFootprint runs the member cascade inside tx. It returns the
// member's icon path and whether the member existed.
func deleteMemberFootprint(ctx context.Context, tx *sql.Tx, memberID int64, resolvingProposalID string) (string, bool, error) {
	var icon sql.NullString
	err := tx.QueryRowContext(ctx, "SELECT icon FROM members WHERE id = ?", memberID).Scan(&icon)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Storage("failed to load member icon", err)
	}

	for _, step := range memberCascade {
		args := []any{memberID}
		if step.withProposal {
			args = append(args, resolvingProposalID)
		}
		if _, err := tx.ExecContext(ctx, step.query, args...); err != nil {
			return "", false, apperr.Storage("failed to delete "+step.name, err)
		}
	}

	return icon.String, true, nil
}
