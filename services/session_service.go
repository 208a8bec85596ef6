package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pinpoint-server/models"
	"pinpoint-server/utils/errors"
	"pinpoint-server/utils/logger"
	"pinpoint-server/utils/metrics"
)

// IdentityHandler is told about every identity transition. A nil identity
// means signed out.
type IdentityHandler func(ctx context.Context, identity *models.Identity)

// TokenAuthority issues session tokens and revokes them on sign-out.
type TokenAuthority interface {
	Issue(identity *models.Identity) (string, error)
	Revoke(ctx context.Context, token string) error
}

// SessionState tracks who is signed in for one workspace.
type SessionState struct {
	mu          sync.Mutex
	identity    *models.Identity
	token       string
	gen         uint64
	providers   map[models.ProviderKind]IdentityProvider
	tokens      TokenAuthority
	handlers    map[int]IdentityHandler
	nextHandler int
	minSignOut  time.Duration
	sleep       func(ctx context.Context, d time.Duration)
	log         *slog.Logger
}

type SessionOption func(*SessionState)

// WithSignOutDelay makes SignOut take at least d, so the client does not
// flicker between states.
func WithSignOutDelay(d time.Duration) SessionOption {
	return func(s *SessionState) { s.minSignOut = d }
}

func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *SessionState) { s.log = l }
}

func NewSessionState(tokens TokenAuthority, providers []IdentityProvider, opts ...SessionOption) *SessionState {
	s := &SessionState{
		providers: make(map[models.ProviderKind]IdentityProvider, len(providers)),
		tokens:    tokens,
		handlers:  make(map[int]IdentityHandler),
		sleep:     sleepContext,
		log:       logger.L(),
	}
	for _, p := range providers {
		s.providers[p.Kind()] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the signed-in identity, or nil.
func (s *SessionState) Identity() *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Current returns the signed-in identity together with the generation of
// the transition that set it. Every transition bumps the generation, so a
// subscriber can tell a late notification from the latest state.
func (s *SessionState) Current() (*models.Identity, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, s.gen
	}
	id := *s.identity
	return &id, s.gen
}

// Token returns the session token of the signed-in identity.
func (s *SessionState) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Providers lists the supported provider kinds.
func (s *SessionState) Providers() []models.ProviderKind {
	kinds := make([]models.ProviderKind, 0, len(s.providers))
	for k := range s.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Subscribe registers h for identity transitions. The returned func removes
// it and is safe to call more than once.
func (s *SessionState) Subscribe(h IdentityHandler) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextHandler
	s.nextHandler++
	s.handlers[id] = h
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}
}

// SignIn authenticates creds. On failure the session is left as it was.
func (s *SessionState) SignIn(ctx context.Context, creds Credentials) (*models.Identity, error) {
	provider, ok := s.providers[creds.Provider]
	if !ok {
		metrics.SignInsTotal.WithLabelValues(string(creds.Provider), "unsupported").Inc()
		return nil, errors.ErrLoginFailed.WithDetails("unsupported provider " + string(creds.Provider))
	}
	identity, err := provider.Authenticate(ctx, creds)
	if err != nil {
		metrics.SignInsTotal.WithLabelValues(string(creds.Provider), "failed").Inc()
		s.log.Info("sign_in_failed", "provider", creds.Provider, "err", err)
		return nil, errors.ErrLoginFailed.WithCause(err)
	}

	token := creds.Token
	if creds.Provider != models.ProviderToken {
		token, err = s.tokens.Issue(identity)
		if err != nil {
			metrics.SignInsTotal.WithLabelValues(string(creds.Provider), "failed").Inc()
			return nil, errors.ErrLoginFailed.WithCause(err)
		}
	}

	s.mu.Lock()
	changed := !models.SameUser(s.identity, identity)
	previous := s.token
	s.identity = identity
	s.token = token
	if changed {
		s.gen++
	}
	s.mu.Unlock()

	// The replaced token must not stay usable until it expires.
	if previous != "" && previous != token && s.tokens != nil {
		if err := s.tokens.Revoke(ctx, previous); err != nil {
			s.log.Warn("replaced_token_revoke_failed", "err", err)
		}
	}

	metrics.SignInsTotal.WithLabelValues(string(creds.Provider), "ok").Inc()
	s.log.Info("signed_in", "user_id", identity.UserID, "provider", identity.Provider)
	if changed {
		s.notify(ctx, identity)
	}
	out := *identity
	return &out, nil
}

// SignOut clears the local session unconditionally. A failed remote
// revocation is reported as LogoutFailed after the local reset.
func (s *SessionState) SignOut(ctx context.Context) error {
	start := time.Now()

	s.mu.Lock()
	token := s.token
	wasSignedIn := s.identity != nil
	s.mu.Unlock()

	var revokeErr error
	if token != "" && s.tokens != nil {
		revokeErr = s.tokens.Revoke(ctx, token)
	}

	if remaining := s.minSignOut - time.Since(start); remaining > 0 {
		s.sleep(ctx, remaining)
	}

	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.gen++
	s.mu.Unlock()

	// Subscribers clear their state even when nobody was signed in.
	s.notify(ctx, nil)

	if revokeErr != nil {
		s.log.Warn("sign_out_revoke_failed", "err", revokeErr)
		return errors.ErrLogoutFailed.WithCause(revokeErr)
	}
	if wasSignedIn {
		s.log.Info("signed_out")
	}
	return nil
}

func (s *SessionState) notify(ctx context.Context, identity *models.Identity) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]IdentityHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.Unlock()

	for _, h := range handlers {
		var arg *models.Identity
		if identity != nil {
			cp := *identity
			arg = &cp
		}
		h(ctx, arg)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
