package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := NewSigner(GenerateSecret())
	require.NoError(t, err)
	return s
}

func TestIssueAndValidate(t *testing.T) {
	s := newSigner(t)

	token, err := s.Issue("mapper", true, time.Hour)
	require.NoError(t, err)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "mapper", claims.Editor)
	assert.True(t, claims.CanWrite)
	assert.Equal(t, "mapper", claims.Subject)
}

func TestValidateRejectsForeignAndExpired(t *testing.T) {
	s := newSigner(t)
	other := newSigner(t)

	token, err := other.Issue("mapper", true, time.Hour)
	require.NoError(t, err)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err = s.Issue("mapper", true, time.Minute)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	s := newSigner(t)
	claims := &Claims{Editor: "x", CanWrite: true, RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerRejectsShortSecret(t *testing.T) {
	_, err := NewSigner("c2hvcnQ=")
	assert.Error(t, err)
	_, err = NewSigner("%%%")
	assert.Error(t, err)
}
