package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mail_agent/internal/models"
)

const testSecret = "test-secret"

func TestNewToken_RoundTrip(t *testing.T) {
	user := models.User{ID: 1, Email: "user@example.com"}

	token, err := NewToken(user, testSecret, 30*time.Minute)
	require.NoError(t, err)

	email, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", email)
}

func TestParseToken_Expired(t *testing.T) {
	user := models.User{ID: 1, Email: "user@example.com"}

	token, err := NewToken(user, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, testSecret)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	user := models.User{ID: 1, Email: "user@example.com"}

	token, err := NewToken(user, testSecret, 30*time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "another-secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSecret)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewRefreshToken_Unique(t *testing.T) {
	first, err := NewRefreshToken()
	require.NoError(t, err)

	second, err := NewRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
