package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// CreateMember inserts a new member into the first group with spare
// capacity, opening a new group if every group is full.
func (s *SQLiteStore) CreateMember(ctx context.Context, capacity int, secretHash string) (*models.Member, error) {
	if capacity <= 0 {
		capacity = models.GroupCapacity
	}
	now := time.Now().Unix()
	member := &models.Member{SecretHash: secretHash, CreatedAt: now}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT g.id FROM groups g
			 LEFT JOIN members m ON m.group_id = g.id
			 GROUP BY g.id
			 HAVING COUNT(m.id) < ?
			 ORDER BY g.id ASC
			 LIMIT 1`,
			capacity,
		).Scan(&member.GroupID)
		if err == sql.ErrNoRows {
			res, err := tx.ExecContext(ctx, "INSERT INTO groups (created_at) VALUES (?)", now)
			if err != nil {
				return apperr.Storage("failed to insert group", err)
			}
			if member.GroupID, err = res.LastInsertId(); err != nil {
				return apperr.Storage("failed to read group id", err)
			}
		} else if err != nil {
			return apperr.Storage("failed to find open group", err)
		}

		res, err := tx.ExecContext(ctx,
			"INSERT INTO members (group_id, secret_hash, created_at) VALUES (?, ?, ?)",
			member.GroupID, secretHash, now,
		)
		if err != nil {
			return apperr.Storage("failed to insert member", err)
		}
		if member.ID, err = res.LastInsertId(); err != nil {
			return apperr.Storage("failed to read member id", err)
		}

		member.Nickname = fmt.Sprintf("user%d", member.ID)
		if _, err := tx.ExecContext(ctx,
			"UPDATE members SET nickname = ? WHERE id = ?", member.Nickname, member.ID,
		); err != nil {
			return apperr.Storage("failed to set nickname", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return member, nil
}

// GetMember retrieves a member by ID.
func (s *SQLiteStore) GetMember(ctx context.Context, memberID int64) (*models.Member, error) {
	return getMember(ctx, s.db, memberID)
}

func getMember(ctx context.Context, q querier, memberID int64) (*models.Member, error) {
	member := &models.Member{}
	var icon sql.NullString
	var lastLogin sql.NullInt64

	err := q.QueryRowContext(ctx,
		`SELECT id, group_id, nickname, icon, secret_hash, first_login_done, last_login, created_at
		 FROM members WHERE id = ?`,
		memberID,
	).Scan(&member.ID, &member.GroupID, &member.Nickname, &icon, &member.SecretHash,
		&member.FirstLoginDone, &lastLogin, &member.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("member not found: %d", memberID)
	}
	if err != nil {
		return nil, apperr.Storage("failed to get member", err)
	}

	member.Icon = icon.String
	member.LastLogin = lastLogin.Int64
	return member, nil
}

// nicknameOr returns the member's nickname, or fallback when the member does
// not exist.
func nicknameOr(ctx context.Context, q querier, memberID int64, fallback string) (string, error) {
	if memberID == 0 {
		return fallback, nil
	}
	var nickname string
	err := q.QueryRowContext(ctx, "SELECT nickname FROM members WHERE id = ?", memberID).Scan(&nickname)
	if err == sql.ErrNoRows || (err == nil && nickname == "") {
		return fallback, nil
	}
	if err != nil {
		return "", apperr.Storage("failed to get nickname", err)
	}
	return nickname, nil
}

// RecordLogin updates the login bookkeeping of a member.
func (s *SQLiteStore) RecordLogin(ctx context.Context, memberID int64, at time.Time) (bool, error) {
	var first bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var done bool
		err := tx.QueryRowContext(ctx,
			"SELECT first_login_done FROM members WHERE id = ?", memberID,
		).Scan(&done)
		if err == sql.ErrNoRows {
			return apperr.NotFound("member not found: %d", memberID)
		}
		if err != nil {
			return apperr.Storage("failed to read login state", err)
		}

		first = !done
		if _, err := tx.ExecContext(ctx,
			"UPDATE members SET first_login_done = 1, last_login = ? WHERE id = ?",
			at.Unix(), memberID,
		); err != nil {
			return apperr.Storage("failed to record login", err)
		}
		return nil
	})
	return first, err
}

// DeleteMember removes a member and all records it owns.
func (s *SQLiteStore) DeleteMember(ctx context.Context, memberID int64) (string, error) {
	var icon string
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var removed bool
		var err error
		icon, removed, err = deleteMemberFootprint(ctx, tx, memberID, "")
		if err != nil {
			return err
		}
		if !removed {
			return apperr.NotFound("member not found: %d", memberID)
		}
		return nil
	})
	return icon, err
}

// ListInactiveMembers returns the IDs of members due for removal.
func (s *SQLiteStore) ListInactiveMembers(ctx context.Context, probationCutoff, dormantCutoff time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM members
		 WHERE (last_login IS NULL AND created_at < ?)
		    OR (last_login IS NOT NULL AND last_login < ?)
		 ORDER BY id`,
		probationCutoff.Unix(), dormantCutoff.Unix(),
	)
	if err != nil {
		return nil, apperr.Storage("failed to list inactive members", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("failed to scan member id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate members", err)
	}

	return ids, nil
}

// MemberFootprint counts what remains of a member.
func (s *SQLiteStore) MemberFootprint(ctx context.Context, memberID int64) (models.Footprint, error) {
	var fp models.Footprint
	var exists int

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM members WHERE id = ?", &exists},
		{"SELECT COUNT(*) FROM posts WHERE member_id = ?", &fp.Posts},
		{"SELECT COUNT(*) FROM post_comments WHERE member_id = ?", &fp.PostComments},
		{"SELECT COUNT(*) FROM vote_comments WHERE member_id = ?", &fp.VoteComments},
		{"SELECT COUNT(*) FROM representative_ballots WHERE candidate_id = ?", &fp.Endorsements},
		{"SELECT COUNT(*) FROM vote_proposals WHERE target_id = ?", &fp.ProposalsTargeting},
		{"SELECT COUNT(*) FROM vote_ballots WHERE member_id = ?", &fp.Ballots},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, memberID).Scan(c.dest); err != nil {
			return fp, apperr.Storage("failed to count member records", err)
		}
	}

	fp.Exists = exists > 0
	return fp, nil
}
