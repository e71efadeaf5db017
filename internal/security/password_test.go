package security_test

import (
	"strings"
	"testing"

	"github.com/geocoder89/eventparser/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := security.HashPassword("s3cret")
	require.NoError(t, err)

	assert.NotEqual(t, "s3cret", hash, "hash must never equal the plaintext")
	assert.NoError(t, security.CheckPassword(hash, "s3cret"))
	assert.ErrorIs(t, security.CheckPassword(hash, "wrong"), security.ErrPasswordMismatch)
}

func TestHashPassword_IsSalted(t *testing.T) {
	a, err := security.HashPassword("same")
	require.NoError(t, err)
	b, err := security.HashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHashPassword_LimitCountsBytes(t *testing.T) {
	// 36 Cyrillic letters are 72 bytes, 42 are 84.
	fits := strings.Repeat("пароль", 6)
	hash, err := security.HashPassword(fits)
	require.NoError(t, err)
	assert.NoError(t, security.CheckPassword(hash, fits))

	_, err = security.HashPassword(strings.Repeat("пароль", 7))
	assert.ErrorIs(t, err, security.ErrPasswordTooLong)
}
