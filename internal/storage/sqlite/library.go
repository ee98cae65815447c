package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
)

// CreateTag adds a tag to a group. Names are unique within a group.
func (s *SQLiteStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	tag.CreatedAt = time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO tags (group_id, name, created_at) VALUES (?, ?, ?)",
		tag.GroupID, tag.Name, tag.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Conflict("tag %q already exists", tag.Name)
	}
	if err != nil {
		return apperr.Storage("failed to insert tag", err)
	}

	if tag.ID, err = res.LastInsertId(); err != nil {
		return apperr.Storage("failed to read tag id", err)
	}
	return nil
}

// ListTags returns the tags of a group sorted by name.
func (s *SQLiteStore) ListTags(ctx context.Context, groupID int64) ([]models.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, group_id, name, created_at FROM tags WHERE group_id = ? ORDER BY name",
		groupID,
	)
	if err != nil {
		return nil, apperr.Storage("failed to list tags", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.GroupID, &t.Name, &t.CreatedAt); err != nil {
			return nil, apperr.Storage("failed to scan tag", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("failed to iterate tags", err)
	}

	return tags, nil
}

// DeleteTag removes a tag and clears it from the group's posts.
func (s *SQLiteStore) DeleteTag(ctx context.Context, groupID, tagID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx,
			"SELECT name FROM tags WHERE id = ? AND group_id = ?", tagID, groupID,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return apperr.NotFound("tag not found: %d", tagID)
		}
		if err != nil {
			return apperr.Storage("failed to load tag", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE posts SET tag = NULL WHERE group_id = ? AND tag = ?", groupID, name,
		); err != nil {
			return apperr.Storage("failed to untag posts", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", tagID); err != nil {
			return apperr.Storage("failed to delete tag", err)
		}
		return nil
	})
}

// CreatePost inserts a post.
func (s *SQLiteStore) CreatePost(ctx context.Context, post *models.Post) error {
	if post.CreatedAt == 0 {
		post.CreatedAt = time.Now().Unix()
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (group_id, member_id, body, tag, created_at) VALUES (?, ?, ?, ?, ?)",
		post.GroupID, post.MemberID, post.Body, nullString(post.Tag), post.CreatedAt,
	)
	if err != nil {
		return apperr.Storage("failed to insert post", err)
	}

	if post.ID, err = res.LastInsertId(); err != nil {
		return apperr.Storage("failed to read post id", err)
	}
	return nil
}

// CreatePostComment inserts a comment on a post.
func (s *SQLiteStore) CreatePostComment(ctx context.Context, comment *models.PostComment) error {
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().Unix()
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO post_comments (post_id, member_id, body, created_at) VALUES (?, ?, ?, ?)",
		comment.PostID, comment.MemberID, comment.Body, comment.CreatedAt,
	)
	if err != nil {
		return apperr.Storage("failed to insert post comment", err)
	}

	if comment.ID, err = res.LastInsertId(); err != nil {
		return apperr.Storage("failed to read post comment id", err)
	}
	return nil
}
