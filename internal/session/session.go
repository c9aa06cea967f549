// Package session tracks whether the user is signed in and drives the
// password and browser based sign-in flows.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/theakshaypant/calmerge/internal/core"
)

// State is the authentication state.
type State int

const (
	SignedOut State = iota
	Authenticating
	SignedIn
)

func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case Authenticating:
		return "authenticating"
	case SignedIn:
		return "signed in"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// DefaultLoginTimeout bounds a browser sign-in when ctx has no deadline.
const DefaultLoginTimeout = 5 * time.Minute

// Authenticator is the part of the backend the session needs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (core.Credentials, error)
	Register(ctx context.Context, email, password, name string) (core.Credentials, error)
	GoogleLoginURL(redirectURI string) (string, error)
}

// ChangeFunc observes state transitions.
type ChangeFunc func(state State, user core.User)

// Session is the sign-in state machine. A new Session always starts
// SignedOut; persisted credentials are not restored.
type Session struct {
	auth   Authenticator
	store  core.CredentialStore
	bus    *Bus
	logger *slog.Logger
	port   int

	mu        sync.Mutex
	state     State
	user      core.User
	waiting   chan error
	observers []ChangeFunc
}

// Option configures a Session.
type Option func(*Session)

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithCallbackPort sets the loopback port used by LoginWithGoogle.
func WithCallbackPort(port int) Option {
	return func(s *Session) { s.port = port }
}

// New creates a signed out session.
func New(auth Authenticator, store core.CredentialStore, opts ...Option) *Session {
	s := &Session{
		auth:   auth,
		store:  store,
		logger: slog.Default(),
		port:   DefaultCallbackPort,
		state:  SignedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.bus = NewBus(s.logger)
	s.bus.Subscribe(s.HandleCallback)
	return s
}

// Bus is where inbound login callbacks are published.
func (s *Session) Bus() *Bus { return s.bus }

// Current returns the state and the signed in user.
func (s *Session) Current() (State, core.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.user
}

// OnChange registers an observer called after every transition.
func (s *Session) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Stored returns the user of the persisted credentials without changing
// the session state.
func (s *Session) Stored() (core.User, error) {
	creds, err := s.store.Load()
	if err != nil {
		return core.User{}, err
	}
	return creds.User, nil
}

// Login signs in with email and password.
func (s *Session) Login(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, &core.ValidationError{Field: "email", Reason: "email and password are required"}
	}
	return s.authenticate(func() (core.Credentials, error) {
		return s.auth.Login(ctx, email, password)
	})
}

// Register creates an account and signs in with it.
func (s *Session) Register(ctx context.Context, email, password, name string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, &core.ValidationError{Field: "email", Reason: "email and password are required"}
	}
	return s.authenticate(func() (core.Credentials, error) {
		return s.auth.Register(ctx, email, password, strings.TrimSpace(name))
	})
}

func (s *Session) authenticate(call func() (core.Credentials, error)) (core.User, error) {
	s.transition(Authenticating, core.User{})

	creds, err := call()
	if err != nil {
		s.transition(SignedOut, core.User{})
		return core.User{}, err
	}
	if err := s.persist(creds); err != nil {
		return core.User{}, err
	}
	return creds.User, nil
}

func (s *Session) persist(creds core.Credentials) error {
	if err := s.store.Save(creds); err != nil {
		s.transition(SignedOut, core.User{})
		return fmt.Errorf("save session: %w", err)
	}
	s.transition(SignedIn, creds.User)
	return nil
}

// LoginWithGoogle runs the browser sign-in: it starts the loopback
// listener, passes the backend's Google login URL to open and waits for
// the callback. Without a ctx deadline the wait ends after
// DefaultLoginTimeout.
func (s *Session) LoginWithGoogle(ctx context.Context, open func(url string)) (core.User, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultLoginTimeout)
		defer cancel()
	}

	listener := NewListener(s.port, s.bus)
	if err := listener.Start(); err != nil {
		return core.User{}, err
	}
	defer listener.Close()

	authURL, err := s.auth.GoogleLoginURL(listener.RedirectURI())
	if err != nil {
		return core.User{}, err
	}

	done := s.beginCallbackLogin()
	open(authURL)

	select {
	case err := <-done:
		if err != nil {
			return core.User{}, err
		}
		_, user := s.Current()
		return user, nil
	case err := <-listener.Errors():
		s.abandonCallbackLogin()
		return core.User{}, fmt.Errorf("callback listener: %w", err)
	case <-ctx.Done():
		s.abandonCallbackLogin()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return core.User{}, fmt.Errorf("timeout waiting for authorization")
		}
		return core.User{}, ctx.Err()
	}
}

func (s *Session) beginCallbackLogin() <-chan error {
	done := make(chan error, 1)
	s.mu.Lock()
	s.waiting = done
	s.mu.Unlock()
	s.transition(Authenticating, core.User{})
	return done
}

func (s *Session) abandonCallbackLogin() {
	s.mu.Lock()
	pending := s.waiting != nil
	s.waiting = nil
	s.mu.Unlock()
	if pending {
		s.transition(SignedOut, core.User{})
	}
}

// HandleCallback completes a browser sign-in. It is the single handler for
// callbacks from every channel. A callback is consumed once: when a login
// has already finished, later callbacks return ErrCallbackIgnored.
func (s *Session) HandleCallback(cb Callback) error {
	s.mu.Lock()
	if s.state == SignedIn {
		s.mu.Unlock()
		return ErrCallbackIgnored
	}
	done := s.waiting
	s.waiting = nil
	s.mu.Unlock()

	err := cb.Err
	if err == nil && cb.Token == "" {
		err = ErrNoToken
	}
	if err != nil {
		s.transition(SignedOut, core.User{})
	} else {
		err = s.persist(core.Credentials{Token: cb.Token, User: cb.User})
	}

	if done != nil {
		done <- err
	}
	if err != nil {
		s.logger.Info("login callback rejected", "err", err)
	}
	return err
}

// HandleDeepLink parses a callback URL delivered by the operating system
// and publishes it on the bus.
func (s *Session) HandleDeepLink(raw string) error {
	cb, err := ParseDeepLink(raw)
	if err != nil {
		return err
	}
	return s.bus.Publish(cb)
}

// Logout clears the persisted credentials. The session is SignedOut when
// it returns, even if clearing failed.
func (s *Session) Logout() error {
	err := s.store.Clear()
	s.transition(SignedOut, core.User{})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Session) transition(state State, user core.User) {
	s.mu.Lock()
	s.state = state
	s.user = user
	observers := append([]ChangeFunc(nil), s.observers...)
	s.mu.Unlock()

	s.logger.Debug("session state changed", "state", state.String())
	for _, fn := range observers {
		fn(state, user)
	}
}
