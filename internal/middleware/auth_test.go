package middleware

import (
	"context"
	"net/http"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/models"
)

func TestTokenFrom(t *testing.T) {
	t.Run("bearer header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		tok, err := tokenFrom(h)
		assert.NoError(t, err)
		assert.Equal(t, "abc", tok)
	})

	t.Run("malformed header", func(t *testing.T) {
		h := http.Header{}
		h.Set("Authorization", "Token abc")
		_, err := tokenFrom(h)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		h := http.Header{}
		h.Set("Cookie", TokenCookie+"=xyz")
		tok, err := tokenFrom(h)
		assert.NoError(t, err)
		assert.Equal(t, "xyz", tok)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := tokenFrom(http.Header{})
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})
}

type memberMap map[int64]*models.Member

func (m memberMap) GetMember(_ context.Context, id int64) (*models.Member, error) {
	if member, ok := m[id]; ok {
		return member, nil
	}
	return nil, apperr.NotFound("member not found: %d", id)
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	members := memberMap{
		1: {ID: 1, GroupID: 7},
	}

	call := func(token string) (int64, int64, error) {
		var memberID, groupID int64
		next := func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
			memberID, groupID = GetMemberID(ctx), GetGroupID(ctx)
			return nil, nil
		}
		req := connect.NewRequest(&struct{}{})
		if token != "" {
			req.Header().Set("Authorization", "Bearer "+token)
		}
		_, err := RequireAuth(jwtManager, members)(next)(context.Background(), req)
		return memberID, groupID, err
	}

	t.Run("existing member", func(t *testing.T) {
		token, err := jwtManager.Generate(&models.Member{ID: 1, GroupID: 7}, 0)
		require.NoError(t, err)

		memberID, groupID, err := call(token)
		require.NoError(t, err)
		assert.Equal(t, int64(1), memberID)
		assert.Equal(t, int64(7), groupID)
	})

	t.Run("stored group wins over the token", func(t *testing.T) {
		token, err := jwtManager.Generate(&models.Member{ID: 1, GroupID: 3}, 0)
		require.NoError(t, err)

		_, groupID, err := call(token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), groupID)
	})

	t.Run("deleted member", func(t *testing.T) {
		token, err := jwtManager.Generate(&models.Member{ID: 2, GroupID: 7}, 0)
		require.NoError(t, err)

		_, _, err = call(token)
		require.Error(t, err)
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		assert.ErrorIs(t, err, ErrMemberGone)
	})

	t.Run("missing token", func(t *testing.T) {
		_, _, err := call("")
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})
}
