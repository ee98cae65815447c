package sqlite

import (
	"context"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// ListHistory returns the resolved outcomes of a group, newest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, groupID int64) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, proposal_id, action, reason, yes, no, resolved, resolved_at,
		        target_name, representative_name, group_id, created_at
		 FROM vote_history
		 WHERE group_id = ?
		 ORDER BY created_at DESC, id DESC`,
		groupID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list history", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ProposalID, &e.Action, &e.Reason, &e.Yes, &e.No,
			&e.Resolved, &e.ResolvedAt, &e.TargetName, &e.RepresentativeName,
			&e.GroupID, &e.CreatedAt); err != nil {
			return nil, apperr.Storage("failed to scan history entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate history", err)
	}

	return entries, nil
}
