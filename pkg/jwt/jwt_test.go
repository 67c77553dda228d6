package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("secret", "nclexkeys", time.Hour, 24*time.Hour)
	id := Identity{UserID: uuid.New(), Email: "a@example.com", Role: "admin"}

	token, err := m.GenerateAccessToken(id)
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, id.UserID.String(), claims.Subject)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateRejectsForeignIssuerAndExpiry(t *testing.T) {
	issuer := NewManager("secret", "someone-else", time.Hour, time.Hour)
	token, err := issuer.GenerateAccessToken(Identity{UserID: uuid.New()})
	require.NoError(t, err)

	m := NewManager("secret", "nclexkeys", time.Hour, time.Hour)
	_, err = m.Validate(token)
	assert.Error(t, err)

	now := time.Now()
	m.now = func() time.Time { return now }
	token, err = m.GenerateAccessToken(Identity{UserID: uuid.New()})
	require.NoError(t, err)
	m.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	a := NewManager("key-a", "nclexkeys", time.Hour, time.Hour)
	b := NewManager("key-b", "nclexkeys", time.Hour, time.Hour)
	token, _, err := a.GenerateRefreshToken(Identity{UserID: uuid.New()})
	require.NoError(t, err)
	_, err = b.Validate(token)
	assert.Error(t, err)
}
