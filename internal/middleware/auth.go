package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/models"
)

// ErrMemberGone is returned for a valid token whose member has been deleted.
var ErrMemberGone = errors.New("member no longer exists")

// MemberLookup loads the member a token was issued to.
type MemberLookup interface {
	GetMember(ctx context.Context, memberID int64) (*models.Member, error)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// MemberIDKey is the context key for storing the authenticated member ID.
	MemberIDKey contextKey = "member_id"
	// GroupIDKey is the context key for storing the authenticated member's group.
	GroupIDKey contextKey = "group_id"
)

// TokenCookie is the cookie browsers carry the session token in.
const TokenCookie = "access_token"

// GetMemberID extracts the member ID from the context.
// Returns 0 if not found.
func GetMemberID(ctx context.Context) int64 {
	id, _ := ctx.Value(MemberIDKey).(int64)
	return id
}

// GetGroupID extracts the member's group ID from the context.
// Returns 0 if not found.
func GetGroupID(ctx context.Context) int64 {
	id, _ := ctx.Value(GroupIDKey).(int64)
	return id
}

// WithIdentity returns a context carrying the member identity.
func WithIdentity(ctx context.Context, memberID, groupID int64) context.Context {
	ctx = context.WithValue(ctx, MemberIDKey, memberID)
	return context.WithValue(ctx, GroupIDKey, groupID)
}

// tokenFrom reads a bearer token from the Authorization header, falling back
// to the access_token cookie.
func tokenFrom(header http.Header) (string, error) {
	if authHeader := header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", auth.ErrInvalidToken
		}
		return parts[1], nil
	}

	req := http.Request{Header: header}
	if c, err := req.Cookie(TokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", auth.ErrMissingToken
}

// RequireAuth returns an interceptor that validates JWT tokens and requires
// authentication. The member must still exist, and the identity carries its
// stored group rather than the one in the token. Procedures in public skip
// the check.
func RequireAuth(jwtManager *auth.JWTManager, members MemberLookup, public ...string) connect.UnaryInterceptorFunc {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if skip[req.Spec().Procedure] {
				return next(ctx, req)
			}

			tokenString, err := tokenFrom(req.Header())
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			member, err := members.GetMember(ctx, claims.MemberID)
			if apperr.Is(err, apperr.KindNotFound) {
				return nil, connect.NewError(connect.CodeUnauthenticated, ErrMemberGone)
			}
			if err != nil {
				return nil, connect.NewError(connect.CodeInternal, errors.New("failed to load member"))
			}

			return next(WithIdentity(ctx, member.ID, member.GroupID), req)
		}
	}
}
