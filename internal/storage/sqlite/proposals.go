package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

const proposalColumns = `p.id, p.group_id, p.kind, p.reason, p.deadline, p.resolved, p.initiator_id,
	p.target_id, p.initiator_name, p.target_name, p.resolved_yes, p.resolved_no, p.created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanProposal reads proposalColumns plus any extra destinations.
func scanProposal(row rowScanner, p *models.Proposal, extra ...any) error {
	var initiatorID, targetID sql.NullInt64
	var initiatorName, targetName sql.NullString

	dest := []any{&p.ID, &p.GroupID, &p.Kind, &p.Reason, &p.Deadline, &p.Resolved, &initiatorID,
		&targetID, &initiatorName, &targetName, &p.ResolvedTally.Yes, &p.ResolvedTally.No, &p.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}

	p.InitiatorID = initiatorID.Int64
	p.TargetID = targetID.Int64
	p.InitiatorName = initiatorName.String
	p.TargetName = targetName.String
	return nil
}

func getProposal(ctx context.Context, q querier, proposalID string) (*models.Proposal, error) {
	p := &models.Proposal{}
	err := scanProposal(q.QueryRowContext(ctx,
		"SELECT "+proposalColumns+" FROM vote_proposals p WHERE p.id = ?", proposalID,
	), p)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("proposal not found: %s", proposalID)
	}
	if err != nil {
		return nil, apperr.Storage("failed to get proposal", err)
	}
	return p, nil
}

// CreateProposal persists a new open proposal.
func (s *SQLiteStore) CreateProposal(ctx context.Context, proposal *models.Proposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}
	if proposal.CreatedAt == 0 {
		proposal.CreatedAt = time.Now().Unix()
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if proposal.TargetID != 0 {
			var targetGroup int64
			err := tx.QueryRowContext(ctx,
				"SELECT group_id FROM members WHERE id = ?", proposal.TargetID,
			).Scan(&targetGroup)
			if err == sql.ErrNoRows {
				return apperr.NotFound("target member not found: %d", proposal.TargetID)
			}
			if err != nil {
				return apperr.Storage("failed to check target member", err)
			}
			if targetGroup != proposal.GroupID {
				return apperr.Validation("target member %d is not in group %d", proposal.TargetID, proposal.GroupID)
			}
		}

		var open int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM vote_proposals WHERE group_id = ? AND kind = ? AND resolved = 0",
			proposal.GroupID, proposal.Kind,
		).Scan(&open); err != nil {
			return apperr.Storage("failed to check open proposals", err)
		}
		if open > 0 {
			return apperr.Conflict("group %d already has an open %s vote", proposal.GroupID, proposal.Kind)
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO vote_proposals (id, group_id, kind, reason, deadline, resolved, initiator_id, target_id, created_at)
			 VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`,
			proposal.ID, proposal.GroupID, proposal.Kind, proposal.Reason, proposal.Deadline,
			nullInt64(proposal.InitiatorID), nullInt64(proposal.TargetID), proposal.CreatedAt,
		)
		if isUniqueViolation(err) {
			return apperr.Conflict("group %d already has an open %s vote", proposal.GroupID, proposal.Kind)
		}
		if err != nil {
			return apperr.Storage("failed to insert proposal", err)
		}
		return nil
	})
}

// GetProposal retrieves a proposal by ID.
func (s *SQLiteStore) GetProposal(ctx context.Context, proposalID string) (*models.Proposal, error) {
	return getProposal(ctx, s.db, proposalID)
}

// ListProposals returns every proposal of a group with its counts. Resolved
// proposals report the tally frozen at resolution.
func (s *SQLiteStore) ListProposals(ctx context.Context, groupID int64) ([]models.ProposalSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+proposalColumns+`,
		        COALESCE(SUM(b.choice = 'yes'), 0), COALESCE(SUM(b.choice = 'no'), 0)
		 FROM vote_proposals p
		 LEFT JOIN vote_ballots b ON b.proposal_id = p.id
		 WHERE p.group_id = ?
		 GROUP BY p.id
		 ORDER BY p.created_at DESC, p.rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list proposals", err)
	}
	defer rows.Close()

	var summaries []models.ProposalSummary
	for rows.Next() {
		var sum models.ProposalSummary
		if err := scanProposal(rows, &sum.Proposal, &sum.Tally.Yes, &sum.Tally.No); err != nil {
			return nil, apperr.Storage("failed to scan proposal", err)
		}
		if sum.Resolved {
			sum.Tally = sum.ResolvedTally
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate proposals", err)
	}

	return summaries, nil
}

// DeleteProposal removes an open proposal with its ballots and comments.
func (s *SQLiteStore) DeleteProposal(ctx context.Context, proposalID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := getProposal(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if p.Resolved {
			return apperr.Conflict("proposal %s is already resolved", proposalID)
		}

		for _, q := range []string{
			"DELETE FROM vote_comments WHERE proposal_id = ?",
			"DELETE FROM vote_ballots WHERE proposal_id = ?",
			"DELETE FROM vote_proposals WHERE id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, proposalID); err != nil {
				return apperr.Storage("failed to delete proposal", err)
			}
		}
		return nil
	})
}

// ListOpenProposals returns every unresolved proposal ordered by deadline.
func (s *SQLiteStore) ListOpenProposals(ctx context.Context) ([]models.ScheduledProposal, error) {
	return s.listScheduled(ctx,
		"SELECT id, deadline FROM vote_proposals WHERE resolved = 0 ORDER BY deadline")
}

// ListDueProposals returns unresolved proposals whose deadline has passed.
func (s *SQLiteStore) ListDueProposals(ctx context.Context, now time.Time) ([]models.ScheduledProposal, error) {
	return s.listScheduled(ctx,
		"SELECT id, deadline FROM vote_proposals WHERE resolved = 0 AND deadline <= ? ORDER BY deadline",
		now.Unix())
}

func (s *SQLiteStore) listScheduled(ctx context.Context, query string, args ...any) ([]models.ScheduledProposal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage("failed to list open proposals", err)
	}
	defer rows.Close()

	var out []models.ScheduledProposal
	for rows.Next() {
		var sp models.ScheduledProposal
		if err := rows.Scan(&sp.ID, &sp.Deadline); err != nil {
			return nil, apperr.Storage("failed to scan open proposal", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate open proposals", err)
	}

	return out, nil
}
