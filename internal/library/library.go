// Package library manages the tags a group uses to curate posts.
package library

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/sanitize"
	"github.com/folkout/folkout/internal/storage"
)

const maxTagLength = 32

// Authorizer checks representative-only actions.
type Authorizer interface {
	RequireRepresentative(ctx context.Context, groupID, memberID int64) error
}

// Service implements tag operations.
type Service struct {
	store  storage.LibraryStore
	auth   Authorizer
	logger *slog.Logger
}

func NewService(store storage.LibraryStore, auth Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, auth: auth, logger: logger.With("component", "library")}
}

// CreateTag adds a tag to the group. Any member may create tags.
func (s *Service) CreateTag(ctx context.Context, groupID int64, name string) (*models.Tag, error) {
	name = sanitize.Text(name)
	if name == "" {
		return nil, apperr.Validation("tag name is required")
	}
	if utf8.RuneCountInString(name) > maxTagLength {
		return nil, apperr.Validation("tag name must be at most %d characters", maxTagLength)
	}

	tag := &models.Tag{GroupID: groupID, Name: name}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, err
	}

	s.logger.Info("Tag created", "group_id", groupID, "tag_id", tag.ID, "name", name)
	return tag, nil
}

// ListTags returns the group's tags sorted by name.
func (s *Service) ListTags(ctx context.Context, groupID int64) ([]models.Tag, error) {
	return s.store.ListTags(ctx, groupID)
}

// DeleteTag removes a tag. Only the group's representative may do so.
func (s *Service) DeleteTag(ctx context.Context, groupID, callerID, tagID int64) error {
	if err := s.auth.RequireRepresentative(ctx, groupID, callerID); err != nil {
		return err
	}
	if err := s.store.DeleteTag(ctx, groupID, tagID); err != nil {
		return err
	}

	s.logger.Info("Tag deleted", "group_id", groupID, "tag_id", tagID, "member_id", callerID)
	return nil
}
