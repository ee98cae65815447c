package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// AddVoteComment persists a comment on an existing proposal.
func (s *SQLiteStore) AddVoteComment(ctx context.Context, comment *models.VoteComment) error {
	comment.ID = uuid.New().String()
	comment.CreatedAt = time.Now().Unix()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProposal(ctx, tx, comment.ProposalID); err != nil {
			return err
		}

		member, err := getMember(ctx, tx, comment.MemberID)
		if err != nil {
			return err
		}
		comment.Nickname = member.Nickname

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO vote_comments (id, proposal_id, member_id, body, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			comment.ID, comment.ProposalID, comment.MemberID, comment.Body, comment.CreatedAt,
		); err != nil {
			return apperr.Storage("failed to insert vote comment", err)
		}
		return nil
	})
}

// ListVoteComments returns the comments of a proposal, newest first.
func (s *SQLiteStore) ListVoteComments(ctx context.Context, proposalID string) ([]models.VoteComment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.proposal_id, c.member_id, m.nickname, c.body, c.created_at
		 FROM vote_comments c
		 JOIN members m ON m.id = c.member_id
		 WHERE c.proposal_id = ?
		 ORDER BY c.created_at DESC, c.rowid DESC`,
		proposalID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list vote comments", err)
	}
	defer rows.Close()

	var comments []models.VoteComment
	for rows.Next() {
		var c models.VoteComment
		if err := rows.Scan(&c.ID, &c.ProposalID, &c.MemberID, &c.Nickname, &c.Body, &c.CreatedAt); err != nil {
			return nil, apperr.Storage("failed to scan vote comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate vote comments", err)
	}

	return comments, nil
}
