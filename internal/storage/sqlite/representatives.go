package sqlite

import (
	"context"
	"database/sql"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// ListCandidates returns every member of the group with their endorsement
// count, in member ID order.
func (s *SQLiteStore) ListCandidates(ctx context.Context, groupID int64) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.group_id, m.nickname, m.icon, COUNT(rb.voter_id)
		 FROM members m
		 LEFT JOIN representative_ballots rb
		        ON rb.candidate_id = m.id AND rb.group_id = m.group_id
		 WHERE m.group_id = ?
		 GROUP BY m.id
		 ORDER BY m.id`,
		groupID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list candidates", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		var icon sql.NullString
		if err := rows.Scan(&c.MemberID, &c.GroupID, &c.Nickname, &icon, &c.Votes); err != nil {
			return nil, apperr.Storage("failed to scan candidate", err)
		}
		c.Icon = icon.String
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate candidates", err)
	}

	return candidates, nil
}

// UpsertRepresentativeBallot replaces the voter's endorsement in the group.
func (s *SQLiteStore) UpsertRepresentativeBallot(ctx context.Context, ballot models.RepresentativeBallot) (int, error) {
	var votes int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var candidateGroup int64
		err := tx.QueryRowContext(ctx,
			"SELECT group_id FROM members WHERE id = ?", ballot.CandidateID,
		).Scan(&candidateGroup)
		if err == sql.ErrNoRows {
			return apperr.NotFound("candidate not found: %d", ballot.CandidateID)
		}
		if err != nil {
			return apperr.Storage("failed to load candidate", err)
		}
		if candidateGroup != ballot.GroupID {
			return apperr.Validation("candidate %d is not in group %d", ballot.CandidateID, ballot.GroupID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO representative_ballots (group_id, voter_id, candidate_id, cast_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (group_id, voter_id)
			 DO UPDATE SET candidate_id = excluded.candidate_id, cast_at = excluded.cast_at`,
			ballot.GroupID, ballot.VoterID, ballot.CandidateID, ballot.CastAt,
		); err != nil {
			return apperr.Storage("failed to upsert representative ballot", err)
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM representative_ballots WHERE group_id = ? AND candidate_id = ?",
			ballot.GroupID, ballot.CandidateID,
		).Scan(&votes); err != nil {
			return apperr.Storage("failed to count endorsements", err)
		}
		return nil
	})
	return votes, err
}
