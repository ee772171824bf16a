package auth

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"mail_agent/internal/models"
	"mail_agent/internal/storage"
)

type fakeStorage struct {
	users  map[string]models.User
	nextID int64
	tokens []models.RefreshToken
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		users:  make(map[string]models.User),
		nextID: 1,
	}
}

func (f *fakeStorage) SaveUser(_ context.Context, email string, passHash []byte) (int64, error) {
	if _, ok := f.users[email]; ok {
		return 0, storage.ErrUserExists
	}

	id := f.nextID
	f.nextID++
	f.users[email] = models.User{ID: id, Email: email, PassHash: passHash}

	return id, nil
}

func (f *fakeStorage) User(_ context.Context, email string) (models.User, error) {
	u, ok := f.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStorage) UserByID(_ context.Context, id int64) (models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return models.User{}, storage.ErrUserNotFound
}

func (f *fakeStorage) SaveRefreshToken(_ context.Context, userID int64, tokenHash []byte, expiresAt time.Time) error {
	f.tokens = append(f.tokens, models.RefreshToken{
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	return nil
}

func (f *fakeStorage) GetRefreshToken(_ context.Context, rawToken string) (models.RefreshToken, error) {
	for _, rt := range f.tokens {
		if bcrypt.CompareHashAndPassword(rt.TokenHash, []byte(rawToken)) == nil {
			return rt, nil
		}
	}
	return models.RefreshToken{}, storage.ErrTokenNotFound
}

func (f *fakeStorage) UpdateRefreshToken(_ context.Context, userID int64, oldTokenHash, newTokenHash []byte, expiresAt time.Time) error {
	for i, rt := range f.tokens {
		if rt.UserID == userID && bytes.Equal(rt.TokenHash, oldTokenHash) {
			f.tokens[i] = models.RefreshToken{
				TokenHash: newTokenHash,
				UserID:    userID,
				ExpiresAt: expiresAt,
			}
			return nil
		}
	}
	return storage.ErrTokenNotFound
}

func (f *fakeStorage) DeleteRefreshToken(_ context.Context, tokenHash []byte) error {
	for i, rt := range f.tokens {
		if bytes.Equal(rt.TokenHash, tokenHash) {
			f.tokens = append(f.tokens[:i], f.tokens[i+1:]...)
			return nil
		}
	}
	return storage.ErrTokenNotFound
}

func newTestAuth(t *testing.T, store *fakeStorage) *Auth {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(log, store, store, "test-secret", 30*time.Minute, 24*time.Hour)
}

func TestRegisterThenLogin(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	id, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	accessToken, refreshToken, err := a.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, _, err = a.Login(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)

	_, _, err := a.Login(context.Background(), "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Duplicate(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, err = a.RegisterNewUser(ctx, "user@example.com", "other-password")
	assert.ErrorIs(t, err, ErrUserExists)

	assert.Len(t, store.users, 1)
}

func TestResolveToken(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	accessToken, _, err := a.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	user, err := a.ResolveToken(ctx, accessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestResolveToken_Invalid(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)

	_, err := a.ResolveToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveToken_UnknownSubject(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	accessToken, _, err := a.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	delete(store.users, "user@example.com")

	_, err = a.ResolveToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesToken(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, refreshToken, err := a.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	newAccess, newRefresh, err := a.Refresh(ctx, refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, newAccess)
	assert.NotEqual(t, refreshToken, newRefresh)

	// old token is gone after rotation
	_, _, err = a.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	store := newFakeStorage()
	a := newTestAuth(t, store)
	ctx := context.Background()

	_, err := a.RegisterNewUser(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	_, refreshToken, err := a.Login(ctx, "user@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx, refreshToken))

	_, _, err = a.Refresh(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
