package token

import (
	"testing"
	"time"

	"presence-svc/src/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("secret", 15*time.Minute)

	signed, expiresAt, err := m.Issue("u1", "sess_1", "a@example.com", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	claims, err := m.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "sess_1", claims.SessionID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, TypeAccess, claims.TokenType)
}

func TestParse_WrongSecret(t *testing.T) {
	signed, _, err := NewManager("one", time.Minute).Issue("u1", "s", "", "user")
	require.NoError(t, err)

	_, err = NewManager("two", time.Minute).Parse(signed)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestParse_Expired(t *testing.T) {
	m := NewManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }

	signed, _, err := m.Issue("u1", "s", "", "user")
	require.NoError(t, err)

	_, err = NewManager("secret", time.Minute).Parse(signed)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestParse_WrongType(t *testing.T) {
	claims := Claims{
		UserID:    "u1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", time.Minute).Parse(signed)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestParse_Garbage(t *testing.T) {
	_, err := NewManager("secret", time.Minute).Parse("not.a.token")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}
