package library

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/election"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/storage/sqlite"
)

func TestTags(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer store.Close()

	rep, err := store.CreateMember(ctx, models.GroupCapacity, "hash")
	require.NoError(t, err)
	other, err := store.CreateMember(ctx, models.GroupCapacity, "hash")
	require.NoError(t, err)

	elections := election.NewService(store, nil)
	_, err = elections.CastBallot(ctx, rep.GroupID, rep.ID, rep.ID)
	require.NoError(t, err)

	svc := NewService(store, elections, nil)
	group := rep.GroupID

	t.Run("CreateTag sanitizes and validates", func(t *testing.T) {
		tag, err := svc.CreateTag(ctx, group, " <b>news</b> ")
		require.NoError(t, err)
		assert.Equal(t, "news", tag.Name)

		_, err = svc.CreateTag(ctx, group, "news")
		assert.True(t, apperr.Is(err, apperr.KindConflict))

		_, err = svc.CreateTag(ctx, group, "   ")
		assert.True(t, apperr.Is(err, apperr.KindValidation))

		_, err = svc.CreateTag(ctx, group, strings.Repeat("あ", maxTagLength+1))
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("DeleteTag is representative-only", func(t *testing.T) {
		tag, err := svc.CreateTag(ctx, group, "art")
		require.NoError(t, err)

		err = svc.DeleteTag(ctx, group, other.ID, tag.ID)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))

		require.NoError(t, svc.DeleteTag(ctx, group, rep.ID, tag.ID))

		err = svc.DeleteTag(ctx, group, rep.ID, tag.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		tags, err := svc.ListTags(ctx, group)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "news", tags[0].Name)
	})
}
