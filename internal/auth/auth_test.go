package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickekring/berget-gpt/internal/config"
	apperrors "github.com/mickekring/berget-gpt/internal/errors"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{Secret: "test-secret", TokenTTL: "1h"})
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager(config.AuthConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIssueAndVerify(t *testing.T) {
	m := testManager(t)

	token, err := m.Issue(7, "micke", "micke@example.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "micke", claims.Username)
	assert.Equal(t, "micke@example.com", claims.Email)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := testManager(t)
	other, err := NewManager(config.AuthConfig{Secret: "other-secret"})
	require.NoError(t, err)

	token, err := other.Issue(7, "micke", "")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := testManager(t)

	claims := Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestVerify_RejectsUnexpectedAlgorithm(t *testing.T) {
	m := testManager(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = BearerToken("")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = BearerToken("Basic dXNlcg==")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = BearerToken("Bearer ")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &Claims{UserID: 7}
	ctx := WithClaims(context.Background(), claims)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
