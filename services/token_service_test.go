package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

type memRevocations struct {
	ttls  map[string]time.Duration
	err   error
	check error
}

func newMemRevocations() *memRevocations {
	return &memRevocations{ttls: map[string]time.Duration{}}
}

func (m *memRevocations) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.ttls[id] = ttl
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	if m.check != nil {
		return false, m.check
	}
	_, ok := m.ttls[id]
	return ok, nil
}

func newTestTokens(revoked RevocationList) (*TokenService, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewTokenService("test-secret", time.Hour, revoked)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestTokenService_IssueVerify(t *testing.T) {
	s, _ := newTestTokens(newMemRevocations())

	tok, err := s.Issue(alice())
	require.NoError(t, err)

	id, err := s.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, alice(), id)
}

func TestTokenService_IssueRequiresIdentity(t *testing.T) {
	s, _ := newTestTokens(nil)
	_, err := s.Issue(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestTokenService_VerifyRejects(t *testing.T) {
	s, now := newTestTokens(nil)
	tok, err := s.Issue(alice())
	require.NoError(t, err)

	other := NewTokenService("other-secret", time.Hour, nil)
	other.now = s.now
	_, err = other.Verify(context.Background(), tok)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized), "wrong key")

	_, err = s.Verify(context.Background(), "not-a-jwt")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized), "garbage")

	*now = now.Add(2 * time.Hour)
	_, err = s.Verify(context.Background(), tok)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized), "expired")
}

func TestTokenService_Revoke(t *testing.T) {
	rl := newMemRevocations()
	s, now := newTestTokens(rl)
	tok, err := s.Issue(alice())
	require.NoError(t, err)

	*now = now.Add(15 * time.Minute)
	require.NoError(t, s.Revoke(context.Background(), tok))
	require.Len(t, rl.ttls, 1)
	for _, ttl := range rl.ttls {
		assert.Equal(t, 45*time.Minute, ttl, "kept only until the token expires")
	}

	_, err = s.Verify(context.Background(), tok)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestTokenService_RevokeExpiredIsNoop(t *testing.T) {
	rl := newMemRevocations()
	s, now := newTestTokens(rl)
	tok, err := s.Issue(alice())
	require.NoError(t, err)

	*now = now.Add(3 * time.Hour)
	assert.NoError(t, s.Revoke(context.Background(), tok))
	assert.Empty(t, rl.ttls)
}

func TestTokenService_RevocationBackendDown(t *testing.T) {
	rl := newMemRevocations()
	s, _ := newTestTokens(rl)
	tok, err := s.Issue(&models.Identity{UserID: "u1", Provider: models.ProviderToken})
	require.NoError(t, err)

	rl.err = assert.AnError
	err = s.Revoke(context.Background(), tok)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	rl.check = assert.AnError
	_, err = s.Verify(context.Background(), tok)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
}
