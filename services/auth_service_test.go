package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

type memUsers struct {
	byName map[string]models.User
	err    error
}

func newMemUsers() *memUsers { return &memUsers{byName: map[string]models.User{}} }

func (m *memUsers) Insert(_ context.Context, u models.User) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, ok := m.byName[u.Username]; ok {
		return "", errors.ErrConflict
	}
	m.byName[u.Username] = u
	return "oid-" + u.Username, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (models.User, error) {
	if m.err != nil {
		return models.User{}, m.err
	}
	u, ok := m.byName[username]
	if !ok {
		return models.User{}, errors.ErrNotFound
	}
	return u, nil
}

func newTestPasswordProvider(users UserRepository) *PasswordProvider {
	p := NewPasswordProvider(users)
	p.cost = bcrypt.MinCost
	return p
}

func TestPasswordProvider_RegisterAndAuthenticate(t *testing.T) {
	users := newMemUsers()
	p := newTestPasswordProvider(users)
	ctx := context.Background()

	publicID, err := p.Register(ctx, " alice ", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, publicID)
	assert.NotEqual(t, "s3cret", users.byName["alice"].PasswordHash)

	id, err := p.Authenticate(ctx, Credentials{Provider: models.ProviderPassword, Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, &models.Identity{UserID: publicID, Username: "alice", Provider: models.ProviderPassword}, id)
}

func TestPasswordProvider_RegisterValidation(t *testing.T) {
	p := newTestPasswordProvider(newMemUsers())
	ctx := context.Background()

	_, err := p.Register(ctx, "", "a@example.com", "pw")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = p.Register(ctx, "bob", "bob@example.com", "pw")
	require.NoError(t, err)
	_, err = p.Register(ctx, "bob", "bob2@example.com", "pw")
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestPasswordProvider_AuthenticateFailures(t *testing.T) {
	users := newMemUsers()
	p := newTestPasswordProvider(users)
	ctx := context.Background()
	_, err := p.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name  string
		creds Credentials
	}{
		{"wrong password", Credentials{Username: "alice", Password: "nope"}},
		{"unknown user", Credentials{Username: "mallory", Password: "s3cret"}},
		{"empty", Credentials{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Authenticate(ctx, tt.creds)
			assert.True(t, errors.Is(err, errInvalidCredentials))
		})
	}

	users.err = errors.ErrUnavailable
	_, err = p.Authenticate(ctx, Credentials{Username: "alice", Password: "s3cret"})
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}

func TestTokenProvider_Authenticate(t *testing.T) {
	tokens, _ := newTestTokens(nil)
	p := NewTokenProvider(tokens)
	tok, err := tokens.Issue(&models.Identity{UserID: "fed-1", Username: "fed", Provider: models.ProviderToken})
	require.NoError(t, err)

	id, err := p.Authenticate(context.Background(), Credentials{Provider: models.ProviderToken, Token: tok})
	require.NoError(t, err)
	assert.Equal(t, "fed-1", id.UserID)
	assert.Equal(t, models.ProviderToken, id.Provider)

	_, err = p.Authenticate(context.Background(), Credentials{Provider: models.ProviderToken})
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}
