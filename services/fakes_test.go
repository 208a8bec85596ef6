package services

import (
	"context"
	"fmt"
	"sync"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
)

// fakeStore is an in-memory MarkerStore with failure injection.
type fakeStore struct {
	mu        sync.Mutex
	byUser    map[string][]models.Marker
	nextID    int
	listErr   error
	addErr    error
	removeErr map[string]error
	removed   []string

	// beforeAdd runs before Add returns; used to interleave operations.
	beforeAdd func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{byUser: map[string][]models.Marker{}, removeErr: map[string]error{}}
}

func (s *fakeStore) seed(uid string, markers ...models.Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[uid] = append(s.byUser[uid], markers...)
}

func (s *fakeStore) List(_ context.Context, identity *models.Identity) ([]models.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Marker, len(s.byUser[identity.UserID]))
	copy(out, s.byUser[identity.UserID])
	return out, nil
}

func (s *fakeStore) Add(_ context.Context, identity *models.Identity, m models.Marker) (string, error) {
	if s.beforeAdd != nil {
		s.beforeAdd()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return "", s.addErr
	}
	s.nextID++
	m.ID = fmt.Sprintf("doc-%d", s.nextID)
	s.byUser[identity.UserID] = append([]models.Marker{m}, s.byUser[identity.UserID]...)
	return m.ID, nil
}

func (s *fakeStore) Remove(_ context.Context, identity *models.Identity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.removeErr[id]; err != nil {
		return err
	}
	list := s.byUser[identity.UserID]
	for i, m := range list {
		if m.ID == id {
			s.byUser[identity.UserID] = append(list[:i:i], list[i+1:]...)
			s.removed = append(s.removed, id)
			return nil
		}
	}
	return errors.ErrNotFound
}

// fakeResolver answers with a fixed name. When gate is set, ResolveName
// signals entered and waits for the gate to close.
type fakeResolver struct {
	name    string
	calls   int
	mu      sync.Mutex
	entered chan struct{}
	gate    chan struct{}
}

func (r *fakeResolver) ResolveName(_ context.Context, _, _ float64) string {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.gate != nil {
		if r.entered != nil {
			r.entered <- struct{}{}
		}
		<-r.gate
	}
	return r.name
}

// fakeTokens is a TokenAuthority that records revocations.
type fakeTokens struct {
	revokeErr error
	revoked   []string
	issued    int
}

func (f *fakeTokens) Issue(identity *models.Identity) (string, error) {
	f.issued++
	return fmt.Sprintf("token-%s-%d", identity.UserID, f.issued), nil
}

func (f *fakeTokens) Revoke(_ context.Context, token string) error {
	f.revoked = append(f.revoked, token)
	return f.revokeErr
}

// fakeProvider accepts one username/password pair.
type fakeProvider struct {
	kind     models.ProviderKind
	username string
	password string
	err      error
}

func (p *fakeProvider) Kind() models.ProviderKind { return p.kind }

func (p *fakeProvider) Authenticate(_ context.Context, creds Credentials) (*models.Identity, error) {
	if p.err != nil {
		return nil, p.err
	}
	if creds.Username != p.username || creds.Password != p.password {
		return nil, errInvalidCredentials
	}
	return &models.Identity{UserID: "uid-" + p.username, Username: p.username, Provider: p.kind}, nil
}

func alice() *models.Identity {
	return &models.Identity{UserID: "uid-alice", Username: "alice", Provider: models.ProviderPassword}
}
