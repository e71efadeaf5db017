package auth_test

import (
	"testing"
	"time"

	"github.com/geocoder89/eventparser/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	raw, err := m.GenerateAccessToken("alice", "user")
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(raw)
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestManager_RejectsExpired(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)

	raw, err := m.GenerateAccessToken("alice", "user")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestManager_RejectsForeignSignature(t *testing.T) {
	other := auth.NewManager("other-secret", time.Hour)
	raw, err := other.GenerateAccessToken("alice", "user")
	require.NoError(t, err)

	_, err = auth.NewManager("test-secret", time.Hour).VerifyAccessToken(raw)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestManager_RejectsNoneAlgAndGarbage(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for _, tok := range []string{raw, "", "not-a-jwt", "a.b.c"} {
		_, err := m.VerifyAccessToken(tok)
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "token %q", tok)
	}
}

func TestManager_RejectsMissingSubject(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	raw, err := m.GenerateAccessToken("", "user")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
