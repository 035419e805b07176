package security_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/IgoorDrt/ErroOps-v1/internal/security"
)

func TestTokenService(t *testing.T) {
	svc := security.NewTokenService("secret", time.Hour)

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := svc.Issue("u1")
		require.NoError(t, err)
		sub, err := svc.Subject(token)
		require.NoError(t, err)
		assert.Equal(t, "u1", sub)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := svc.IssueWithTTL("u1", -time.Minute)
		require.NoError(t, err)
		_, err = svc.Subject(token)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := security.NewTokenService("other", time.Hour).Issue("u1")
		require.NoError(t, err)
		_, err = svc.Subject(token)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})

	t.Run("UnsignedRejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Subject(token)
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.Subject("not-a-token")
		assert.ErrorIs(t, err, security.ErrInvalidToken)
	})
}

func TestPasswordHasher(t *testing.T) {
	h := security.NewPasswordHasher(bcrypt.MinCost)

	hashed, err := h.Hash("Password1!")
	require.NoError(t, err)
	assert.NoError(t, h.Verify("Password1!", hashed))
	assert.ErrorIs(t, h.Verify("wrong-password", hashed), security.ErrPasswordMismatch)

	_, err = h.Hash("abc")
	assert.ErrorIs(t, err, security.ErrPasswordTooShort)
}
