package security

import (
	"context"
	"testing"
	"time"

	"toolrent-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.GenerateAccessToken("u-1", "maria", []Role{RoleEmployee})
	require.NoError(t, err)

	claims, err := m.ValidateToken("Bearer " + token)
	require.NoError(t, err)

	p := claims.Principal()
	assert.Equal(t, "u-1", p.Subject)
	assert.Equal(t, "maria", p.Username)
	assert.True(t, p.HasRole(RoleEmployee))
	assert.False(t, p.HasRole(RoleAdmin))
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
		token, _ := other.GenerateAccessToken("u-1", "maria", nil)
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		past := &tokenManager{secret: []byte(testSecret), expiry: time.Minute, now: func() time.Time { return time.Now().Add(-time.Hour) }}
		token, _ := past.GenerateAccessToken("u-1", "maria", nil)
		_, err := m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, UserClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}})
		s, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		_, err := m.ValidateToken(s)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_PrincipalDropsUnknownRoles(t *testing.T) {
	c := &UserClaims{Roles: []string{"role_admin", "AUDITOR"}, RegisteredClaims: jwt.RegisteredClaims{Subject: "u-9"}}
	p := c.Principal()
	assert.Equal(t, []Role{RoleAdmin}, p.Roles)
	assert.Equal(t, "u-9", p.Username)
}

func TestRequire(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, Require(ctx, RoleAdmin), domain.ErrForbidden)

	emp := WithPrincipal(ctx, Principal{Username: "maria", Roles: []Role{RoleEmployee}})
	assert.ErrorIs(t, Require(emp, RoleAdmin), domain.ErrForbidden)
	assert.NoError(t, Require(emp, RoleAdmin, RoleEmployee))
	assert.Equal(t, "maria", Actor(emp))
	assert.Equal(t, SystemActor, Actor(ctx))
}
