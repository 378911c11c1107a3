package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = &HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2", fastParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	again, err := HashPassword("hunter2", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, h := range []string{"", "plain", "$argon2id$v=19$m=1,t=1,p=1$%%%$abc", "$bcrypt$v=19$m=1,t=1,p=1$YQ$YQ"} {
		_, err := VerifyPassword("x", h)
		assert.ErrorIs(t, err, ErrInvalidHash, h)
	}
	_, err := VerifyPassword("x", "$argon2id$v=18$m=1024,t=1,p=1$YWJj$YWJj")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)

	_, err = HashPassword("", fastParams)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner(time.Hour)
	require.NoError(t, err)

	tok, err := s.CreateJWT("ana")
	require.NoError(t, err)

	c, err := s.ParseJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "ana", c.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), c.ExpiresAt, 5*time.Second)
	assert.Greater(t, c.TTL(), 59*time.Minute)

	sub, err := s.AuthenticateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "ana", sub)
}

func TestSignerWithoutExpiry(t *testing.T) {
	s, err := NewSigner(0)
	require.NoError(t, err)
	tok, err := s.CreateJWT("bo")
	require.NoError(t, err)
	c, err := s.ParseJWT(tok)
	require.NoError(t, err)
	assert.True(t, c.ExpiresAt.IsZero())
	assert.Zero(t, c.TTL())
}

func TestSignerRejectsForeignAndExpiredTokens(t *testing.T) {
	a, err := NewSigner(time.Hour)
	require.NoError(t, err)
	b, err := NewSigner(time.Hour)
	require.NoError(t, err)

	tok, err := a.CreateJWT("ana")
	require.NoError(t, err)
	_, err = b.ParseJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": "ana",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := expired.SignedString(a.privateKey)
	require.NoError(t, err)
	_, err = a.ParseJWT(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "ana"})
	raw, err = hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.ParseJWT(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
