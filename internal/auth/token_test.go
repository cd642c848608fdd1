package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/request-tracker/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	principal := domain.Principal{AgentID: "agent-1", Name: "Alice Johnson", Role: domain.RoleAdmin}

	token, err := tm.GenerateToken(principal)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, token.ExpiresAt.Sub(token.IssuedAt))

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, principal, claims.Principal())
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenManager("one", time.Hour).GenerateToken(domain.Principal{AgentID: "a", Name: "A", Role: domain.RoleAgent})
	require.NoError(t, err)

	_, err = NewTokenManager("two", time.Hour).ParseToken(token.Value)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenManager("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.GenerateToken(domain.Principal{AgentID: "a", Name: "A", Role: domain.RoleAgent})
	require.NoError(t, err)

	_, err = NewTokenManager("secret", time.Minute).ParseToken(token.Value)
	assert.Error(t, err)
}

func TestParseTokenRequiresRole(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, err := tm.GenerateToken(domain.Principal{AgentID: "a", Name: "A", Role: "Owner"})
	require.NoError(t, err)

	_, err = tm.ParseToken(token.Value)
	assert.Error(t, err)
}

func TestParseTokenUsesManagerClock(t *testing.T) {
	tm := NewTokenManager("secret", time.Minute)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := tm.GenerateToken(domain.Principal{AgentID: "a", Name: "A", Role: domain.RoleAgent})
	require.NoError(t, err)

	claims, err := tm.ParseToken(token.Value)
	require.NoError(t, err)
	assert.Equal(t, Issuer, claims.Issuer)
}
