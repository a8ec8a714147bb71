package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/idilsaglam/neontodo/internal/model"
	"github.com/idilsaglam/neontodo/internal/store/jsonstore"
)

func noEnv(string) string { return "" }

func signed(t *testing.T, email string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte("test-secret-at-least-32-characters!!"))
	require.NoError(t, err)
	return s
}

func TestBeginPersistsAndInitRestores(t *testing.T) {
	store := jsonstore.Open(filepath.Join(t.TempDir(), "session.json"))
	ctx := New(store, WithGetenv(noEnv))
	require.NoError(t, ctx.Init())
	require.False(t, ctx.Authenticated())

	user := model.User{Email: "ada@example.com", ID: "ada@example.com"}
	require.NoError(t, ctx.Begin(model.Session{Token: "Bearer abc", User: user}))
	require.Equal(t, "abc", ctx.Token())

	again := New(store, WithGetenv(noEnv))
	require.NoError(t, again.Init())
	require.True(t, again.Authenticated())
	require.Equal(t, user, again.User())
	require.Equal(t, SourceFile, again.Source())
}

func TestInitNeedsBothKeys(t *testing.T) {
	store := NewMemoryStorage()
	require.NoError(t, store.SetMany(map[string]string{TokenKey: "abc"}))
	ctx := New(store, WithGetenv(noEnv))
	require.NoError(t, ctx.Init())
	require.False(t, ctx.Authenticated())
}

func TestTeardownClearsBothKeysAndRunsHooks(t *testing.T) {
	store := NewMemoryStorage()
	ctx := New(store, WithGetenv(noEnv))
	require.NoError(t, ctx.Begin(model.Session{Token: "abc", User: model.User{Email: "a@b"}}))

	fired := 0
	ctx.OnTeardown(func() { fired++ })
	require.NoError(t, ctx.Teardown())

	require.Equal(t, 1, fired)
	require.False(t, ctx.Authenticated())
	require.Equal(t, model.User{}, ctx.User())
	_, ok, _ := store.Get(TokenKey)
	require.False(t, ok)
	_, ok, _ = store.Get(UserKey)
	require.False(t, ok)
}

func TestEnvOverrideDerivesUserFromClaims(t *testing.T) {
	tok := signed(t, "grace@example.com", time.Now().Add(time.Hour))
	ctx := New(NewMemoryStorage(), WithGetenv(func(k string) string {
		if k == EnvToken {
			return "bearer " + tok
		}
		return ""
	}))
	require.NoError(t, ctx.Init())
	require.Equal(t, SourceEnv, ctx.Source())
	require.Equal(t, "grace@example.com", ctx.User().Email)

	claims, err := ctx.Claims()
	require.NoError(t, err)
	require.NotNil(t, claims.Expiry())
	require.True(t, claims.Expiry().After(time.Now()))
}

func TestClaimsOpaqueToken(t *testing.T) {
	ctx := New(NewMemoryStorage(), WithGetenv(noEnv))
	_, err := ctx.Claims()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, ctx.Begin(model.Session{Token: "opaque", User: model.User{Email: "x"}}))
	_, err = ctx.Claims()
	require.Error(t, err)
}
