package account

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/auth"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/storage/sqlite"
)

func setup(t *testing.T) (*Service, *sqlite.SQLiteStore, *auth.JWTManager) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	tokens := auth.NewJWTManager("test-secret", time.Hour)
	authn := auth.NewSecretAuthenticator(store, models.GroupCapacity).WithCost(bcrypt.MinCost)
	return NewService(store, authn, tokens, nil, nil, DefaultConfig(), nil), store, tokens
}

func TestCreateAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := setup(t)

	acct, err := svc.CreateAccount(ctx)
	require.NoError(t, err)
	assert.NotZero(t, acct.Member.GroupID)
	assert.NotEmpty(t, acct.SecretKey)

	first, err := svc.Login(ctx, acct.SecretKey)
	require.NoError(t, err)
	assert.True(t, first.FirstLogin)
	assert.Equal(t, time.Hour, first.TTL)

	claims, err := tokens.Validate(first.Token)
	require.NoError(t, err)
	assert.Equal(t, acct.Member.ID, claims.MemberID)
	assert.Equal(t, acct.Member.GroupID, claims.GroupID)

	again, err := svc.Login(ctx, acct.SecretKey)
	require.NoError(t, err)
	assert.False(t, again.FirstLogin)
	assert.Equal(t, DefaultConfig().SessionTTL, again.TTL)

	me, err := svc.Me(ctx, acct.Member.ID)
	require.NoError(t, err)
	assert.True(t, me.FirstLoginDone)
}

func TestLoginRejectsBadKeys(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	acct, err := svc.CreateAccount(ctx)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "garbage")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	wrong := strconv.FormatInt(acct.Member.ID, 10) + ".deadbeef"
	_, err = svc.Login(ctx, wrong)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup(t)

	acct, err := svc.CreateAccount(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAccount(ctx, acct.Member.ID))
	_, err = store.GetMember(ctx, acct.Member.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = svc.DeleteAccount(ctx, acct.Member.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestSweepInactive(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := setup(t)

	fresh, err := svc.CreateAccount(ctx)
	require.NoError(t, err)
	active, err := svc.CreateAccount(ctx)
	require.NoError(t, err)
	_, err = svc.Login(ctx, active.SecretKey)
	require.NoError(t, err)

	// Eight days on, the member that never logged in is past probation.
	svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	n, err := svc.SweepInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetMember(ctx, fresh.Member.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = store.GetMember(ctx, active.Member.ID)
	assert.NoError(t, err)

	// Past the dormant period the active member goes too.
	svc.now = func() time.Time { return time.Now().Add(366 * 24 * time.Hour) }
	n, err = svc.SweepInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
