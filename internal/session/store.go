// Package session tracks who, if anyone, is signed in.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"journal/internal/core"
)

// call is one in-flight resolution; late callers join it instead of issuing another request.
type call struct {
	done chan struct{}
	user *core.User
}

// Store is the single source of truth for the authenticated user.
// It is loading until the first resolution completes, successful or not.
type Store struct {
	API    core.SessionAPI
	Logger *slog.Logger

	mu       sync.Mutex
	user     *core.User
	resolved bool
	ready    chan struct{}
	inflight *call
	// generation is bumped by logout and invalidation so late resolutions are discarded.
	generation uint64
}

func New(api core.SessionAPI, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		API:    api,
		Logger: logger.With("component", "session"),
		ready:  make(chan struct{}),
	}
}

// Resolve asks the collaborator who is signed in. Any failure means nobody is.
// Concurrent calls share one request.
func (s *Store) Resolve(ctx context.Context) *core.User {
	s.mu.Lock()
	c := s.inflight
	if c == nil {
		c = s.start()
	}
	s.mu.Unlock()

	return s.wait(ctx, c)
}

// start must be called with mu held.
func (s *Store) start() *call {
	c := &call{done: make(chan struct{})}
	s.inflight = c
	generation := s.generation

	go func() {
		// The request outlives any single caller: others may have joined it.
		user, err := s.API.Me(context.Background())
		if err != nil {
			if !errors.Is(err, core.ErrAuth) {
				s.Logger.Warn("Failed to resolve session", "error", err)
			}
			user = nil
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.generation == generation {
			s.user = user
		}
		c.user = s.user
		s.inflight = nil
		s.markResolved()
		close(c.done)
	}()

	return c
}

func (s *Store) wait(ctx context.Context, c *call) *core.User {
	select {
	case <-c.done:
		return c.user
	case <-ctx.Done():
		user, _ := s.Current()
		return user
	}
}

// markResolved must be called with mu held.
func (s *Store) markResolved() {
	if s.resolved {
		return
	}
	s.resolved = true
	close(s.ready)
}

// Login authenticates and re-resolves. On failure the session is left as it was.
func (s *Store) Login(ctx context.Context, email, password string) (*core.User, error) {
	if err := s.API.Login(ctx, email, password); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if prev := s.inflight; prev != nil {
		// A resolution started before the login would report the old identity.
		s.mu.Unlock()
		<-prev.done
		s.mu.Lock()
	}
	c := s.inflight
	if c == nil {
		c = s.start()
	}
	s.mu.Unlock()

	user := s.wait(ctx, c)
	if user == nil {
		return nil, core.AuthError("Could not load your account. Please sign in again.")
	}
	s.Logger.Info("Signed in", "user", user.ID)
	return user, nil
}

// Logout ends the session locally even if the collaborator call fails.
// Only a non-auth failure is reported; an already expired session counts as logged out.
func (s *Store) Logout(ctx context.Context) error {
	err := s.API.Logout(ctx)

	s.Invalidate()

	if err != nil && !errors.Is(err, core.ErrAuth) {
		s.Logger.Warn("Logout failed, session cleared locally", "error", err)
		return err
	}
	return nil
}

// Invalidate forgets the user, for example after the collaborator rejected the session.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.user = nil
	s.markResolved()
}

// Register creates an account. The session does not change: the account must be verified first.
func (s *Store) Register(ctx context.Context, reg core.Registration) error {
	if err := validateRegistration(reg); err != nil {
		return err
	}
	return s.API.Register(ctx, reg)
}

// VerifyEmail confirms an account with the token from the verification email.
func (s *Store) VerifyEmail(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return core.ValidationError("Invalid verification token")
	}
	return s.API.VerifyEmail(ctx, token)
}

// Current returns the user and whether the session has been resolved at least once.
func (s *Store) Current() (*core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.resolved
}

func (s *Store) Loading() bool {
	_, resolved := s.Current()
	return !resolved
}

// Ready is closed once the first resolution completes.
func (s *Store) Ready() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Require returns the signed in user, or an error telling why there is none.
func (s *Store) Require() (*core.User, error) {
	user, resolved := s.Current()
	switch {
	case !resolved:
		return nil, core.ErrNotReady
	case user == nil:
		return nil, core.AuthError("Please sign in")
	default:
		return user, nil
	}
}
