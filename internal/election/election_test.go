package election

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/storage/sqlite"
)

func TestElect(t *testing.T) {
	c := func(id int64, votes int) models.Candidate {
		return models.Candidate{MemberID: id, Votes: votes}
	}

	tests := []struct {
		name       string
		candidates []models.Candidate
		want       int64
	}{
		{"no members", nil, 0},
		{"no endorsements", []models.Candidate{c(1, 0), c(2, 0)}, 0},
		{"single leader", []models.Candidate{c(1, 1), c(2, 3), c(3, 2)}, 2},
		{"tie at the top", []models.Candidate{c(1, 2), c(2, 2), c(3, 1)}, 0},
		{"tie below the top", []models.Candidate{c(1, 1), c(2, 1), c(3, 2)}, 3},
		{"leader first", []models.Candidate{c(1, 4), c(2, 1), c(3, 1)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Elect(tt.candidates)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.MemberID)
		})
	}
}

func setup(t *testing.T, n int) (*Service, []*models.Member) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	members := make([]*models.Member, n)
	for i := range members {
		members[i], err = store.CreateMember(context.Background(), models.GroupCapacity, "hash")
		require.NoError(t, err)
	}
	return NewService(store, nil), members
}

func TestCastBallot(t *testing.T) {
	ctx := context.Background()
	svc, m := setup(t, 4)
	group := m[0].GroupID

	// A endorses B, C endorses B, D endorses C: B leads 2 to 1.
	for _, b := range [][2]int{{0, 1}, {2, 1}, {3, 2}} {
		_, err := svc.CastBallot(ctx, group, m[b[0]].ID, m[b[1]].ID)
		require.NoError(t, err)
	}

	ov, err := svc.Overview(ctx, group, m[1].ID)
	require.NoError(t, err)
	require.NotNil(t, ov.Representative)
	assert.Equal(t, m[1].ID, ov.Representative.MemberID)
	assert.True(t, ov.IsCallerRepresentative)
	assert.Len(t, ov.Members, 4)

	// C switches to itself: B 1, C 2.
	votes, err := svc.CastBallot(ctx, group, m[2].ID, m[2].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, votes)

	rep, err := svc.Current(ctx, group)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, m[2].ID, rep.MemberID)

	// Each member holds a single endorsement, so switching moves it:
	// D to B (B 2, C 1), A to C (B 1, C 2), C to B (B 2, C 1).
	for _, b := range [][2]int{{3, 1}, {0, 2}, {2, 1}} {
		_, err := svc.CastBallot(ctx, group, m[b[0]].ID, m[b[1]].ID)
		require.NoError(t, err)
	}

	rep, err = svc.Current(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, m[1].ID, rep.MemberID)
}

func TestRequireRepresentative(t *testing.T) {
	ctx := context.Background()
	svc, m := setup(t, 3)
	group := m[0].GroupID

	err := svc.RequireRepresentative(ctx, group, m[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "no representative yet")

	_, err = svc.CastBallot(ctx, group, m[0].ID, m[0].ID)
	require.NoError(t, err)
	_, err = svc.CastBallot(ctx, group, m[1].ID, m[1].ID)
	require.NoError(t, err)

	err = svc.RequireRepresentative(ctx, group, m[0].ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "tie means no representative")

	_, err = svc.CastBallot(ctx, group, m[2].ID, m[0].ID)
	require.NoError(t, err)
	assert.NoError(t, svc.RequireRepresentative(ctx, group, m[0].ID))
	assert.True(t, apperr.Is(svc.RequireRepresentative(ctx, group, m[1].ID), apperr.KindAuthorization))
}

func TestCastBallotValidation(t *testing.T) {
	ctx := context.Background()
	svc, m := setup(t, 2)

	_, err := svc.CastBallot(ctx, m[0].GroupID, m[0].ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CastBallot(ctx, m[0].GroupID+1, m[0].ID, m[1].ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CastBallot(ctx, m[0].GroupID, m[0].ID, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = svc.CastBallot(ctx, m[0].GroupID, 999, m[1].ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
