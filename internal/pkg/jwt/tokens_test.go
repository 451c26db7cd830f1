// internal/pkg/jwt/tokens_test.go
package jwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	jwtpkg "sentra-service/internal/pkg/jwt"
)

func newManager(t *testing.T) *jwtpkg.Manager {
	t.Helper()

	m, err := jwtpkg.NewManager(jwtpkg.Config{
		Secret:     "test-secret",
		Issuer:     "sentra",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestManagerRequiresSecret(t *testing.T) {
	_, err := jwtpkg.NewManager(jwtpkg.Config{AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestRefreshTokenCarriesSessionID(t *testing.T) {
	m := newManager(t)

	token, err := m.GenerateRefresh("user-1", "sess-1")
	require.NoError(t, err)

	claims, err := m.Parse(token, jwtpkg.TypeRefresh)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "sess-1", claims.SessionID)
}

func TestParseRejectsWrongTokenType(t *testing.T) {
	m := newManager(t)

	access, err := m.GenerateAccess("user-1", "sess-1")
	require.NoError(t, err)

	// An access token must not pass as a refresh token.
	_, err = m.Parse(access, jwtpkg.TypeRefresh)
	require.Error(t, err)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	m := newManager(t)

	other, err := jwtpkg.NewManager(jwtpkg.Config{
		Secret:     "different-secret",
		Issuer:     "sentra",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	})
	require.NoError(t, err)

	token, err := other.GenerateAccess("user-1", "sess-1")
	require.NoError(t, err)

	_, err = m.Parse(token, jwtpkg.TypeAccess)
	require.Error(t, err)
}
