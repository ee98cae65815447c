package service

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/library"
)

const (
	LibraryServiceName = "folkout.v1.LibraryService"

	CreateTagProcedure = "/" + LibraryServiceName + "/CreateTag"
	ListTagsProcedure  = "/" + LibraryServiceName + "/ListTags"
	DeleteTagProcedure = "/" + LibraryServiceName + "/DeleteTag"
)

// LibraryService exposes tag management over Connect.
type LibraryService struct {
	library *library.Service
}

func NewLibraryService(lib *library.Service) *LibraryService {
	return &LibraryService{library: lib}
}

func (s *LibraryService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(CreateTagProcedure, unary(CreateTagProcedure, s.CreateTag, opts...))
	mux.Handle(ListTagsProcedure, unary(ListTagsProcedure, s.ListTags, opts...))
	mux.Handle(DeleteTagProcedure, unary(DeleteTagProcedure, s.DeleteTag, opts...))
}

func (s *LibraryService) CreateTag(ctx context.Context, caller identity, req *CreateTagRequest) (*Tag, error) {
	tag, err := s.library.CreateTag(ctx, caller.GroupID, req.Name)
	if err != nil {
		return nil, err
	}
	return &Tag{ID: tag.ID, Name: tag.Name, CreatedAt: tag.CreatedAt}, nil
}

func (s *LibraryService) ListTags(ctx context.Context, caller identity, _ *ListTagsRequest) (*ListTagsResponse, error) {
	tags, err := s.library.ListTags(ctx, caller.GroupID)
	if err != nil {
		return nil, err
	}

	res := &ListTagsResponse{Tags: make([]Tag, 0, len(tags))}
	for _, t := range tags {
		res.Tags = append(res.Tags, Tag{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt})
	}
	return res, nil
}

// DeleteTag removes a tag. Representative only.
func (s *LibraryService) DeleteTag(ctx context.Context, caller identity, req *DeleteTagRequest) (*DeleteTagResponse, error) {
	if err := s.library.DeleteTag(ctx, caller.GroupID, caller.MemberID, req.TagID); err != nil {
		return nil, err
	}
	return &DeleteTagResponse{}, nil
}
