// Package session owns the authentication lifecycle of the agent: it is the
// single authority for "is this client authenticated", and the only writer
// of the credential vault and the token store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/baccaristic/foodify-restaurant-agent/internal/apperrors"
	"github.com/baccaristic/foodify-restaurant-agent/internal/domain"
	"github.com/baccaristic/foodify-restaurant-agent/internal/token"
	"github.com/baccaristic/foodify-restaurant-agent/internal/vault"
)

// State is the supervisor's position in its lifecycle.
type State int

const (
	// StateHydrating is the initial state, before Hydrate has completed.
	StateHydrating State = iota
	// StateUnauthenticated means no complete session is held.
	StateUnauthenticated
	// StateAuthenticated means tokens and user profile are all present.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateHydrating:
		return "hydrating"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// LoginRequest carries staff credentials for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is the payload returned by a successful login.
type LoginResult struct {
	Tokens domain.TokenPair
	User   *domain.User
}

// AuthAPI is the transport used for the auth endpoints. The implementation
// must not route through the 401-retry layer; refresh must never recurse.
type AuthAPI interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
	Heartbeat(ctx context.Context) error
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Supervisor implements the session state machine
// {hydrating, unauthenticated, authenticated}.
type Supervisor struct {
	log    *slog.Logger
	api    AuthAPI
	vault  vault.Vault
	tokens *token.Store

	mu        sync.Mutex
	state     State
	user      *domain.User
	listeners []func(authenticated bool)

	// Concurrent 401 recoveries collapse into one refresh call.
	refreshGroup singleflight.Group
}

// NewSupervisor creates a supervisor in the hydrating state.
func NewSupervisor(api AuthAPI, v vault.Vault, tokens *token.Store, log *slog.Logger) *Supervisor {
	return &Supervisor{
		log:    log,
		api:    api,
		vault:  v,
		tokens: tokens,
		state:  StateHydrating,
	}
}

// OnStateChange registers a listener invoked whenever the authenticated flag
// flips. Listeners must be registered before Hydrate is called; they run on
// the goroutine that caused the transition.
func (s *Supervisor) OnStateChange(fn func(authenticated bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Authenticated reports whether a complete session is held.
func (s *Supervisor) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// User returns the authenticated staff profile, nil when logged out.
func (s *Supervisor) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Hydrate loads the stored session record and decides the initial state.
// Authenticated requires access token, refresh token and user profile all
// present. Hydrate is idempotent; calls after the first are no-ops.
func (s *Supervisor) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateHydrating {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	creds, err := s.vault.Load(ctx)
	if err != nil && err != vault.ErrNoCredentials {
		// A broken vault degrades to logged-out, it never blocks startup.
		s.log.Warn("vault load failed, starting unauthenticated", slog.String("error", err.Error()))
	}

	if creds.Complete() {
		s.tokens.Set(creds.Tokens)
		s.setState(StateAuthenticated, creds.User)
		s.log.Info("session hydrated", slog.Int64("user_id", creds.User.ID))
		return nil
	}

	s.setState(StateUnauthenticated, nil)
	return nil
}

// Login authenticates with the backend and commits the returned session.
// Transport and validation errors surface unchanged; nothing is committed
// on failure.
func (s *Supervisor) Login(ctx context.Context, req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return apperrors.InvalidInput(err.Error())
	}

	result, err := s.api.Login(ctx, req)
	if err != nil {
		return err
	}

	creds := &domain.Credentials{Tokens: result.Tokens, User: result.User}
	if !creds.Complete() {
		return fmt.Errorf("login response missing tokens or user")
	}

	s.persist(ctx, creds)
	s.tokens.Set(creds.Tokens)
	s.setState(StateAuthenticated, creds.User)
	s.log.Info("logged in", slog.Int64("user_id", creds.User.ID))
	return nil
}

// Logout clears the session. Safe to call when already logged out.
func (s *Supervisor) Logout(ctx context.Context) error {
	if err := s.vault.Clear(ctx); err != nil {
		s.log.Warn("vault clear failed", slog.String("error", err.Error()))
	}
	s.tokens.Clear()
	s.setState(StateUnauthenticated, nil)
	return nil
}

// Refresh exchanges the held refresh token for a new token pair and returns
// the new access token. Concurrent callers share a single in-flight refresh.
// Any failure, including a missing refresh token, forces logout; the caller
// must treat an error as "fail the original request".
func (s *Supervisor) Refresh(ctx context.Context) (string, error) {
	access, err, _ := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return access.(string), nil
}

func (s *Supervisor) refresh(ctx context.Context) (string, error) {
	refreshToken := s.tokens.RefreshToken()
	if refreshToken == "" {
		_ = s.Logout(ctx)
		return "", apperrors.ErrSessionExpired
	}

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.log.Warn("token refresh failed, forcing logout", slog.String("error", err.Error()))
		_ = s.Logout(ctx)
		return "", fmt.Errorf("refresh session: %w", err)
	}

	s.tokens.Set(pair)
	s.persist(ctx, &domain.Credentials{Tokens: pair, User: s.User()})
	s.log.Debug("session refreshed")
	return pair.AccessToken, nil
}

// Heartbeat probes backend liveness. Advisory only; all errors collapse to
// false.
func (s *Supervisor) Heartbeat(ctx context.Context) bool {
	if err := s.api.Heartbeat(ctx); err != nil {
		s.log.Debug("heartbeat failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// AccessTokenExpiresIn returns the time until the held access token expires.
// The token is decoded without signature verification; the agent never holds
// the signing secret. Returns false when no token is held or it carries no
// expiry claim.
func (s *Supervisor) AccessTokenExpiresIn() (time.Duration, bool) {
	raw := s.tokens.AccessToken()
	if raw == "" {
		return 0, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}

	return time.Until(claims.ExpiresAt.Time), true
}

// persist writes the credentials record best-effort: a failed vault write is
// logged and the in-memory session proceeds.
func (s *Supervisor) persist(ctx context.Context, creds *domain.Credentials) {
	if err := s.vault.Store(ctx, creds); err != nil {
		s.log.Warn("vault store failed", slog.String("error", err.Error()))
	}
}

// setState updates the state and, when the authenticated flag flips,
// notifies listeners outside the lock.
func (s *Supervisor) setState(next State, user *domain.User) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.user = user
	listeners := make([]func(bool), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	wasAuth := prev == StateAuthenticated
	isAuth := next == StateAuthenticated
	if wasAuth == isAuth && prev != StateHydrating {
		return
	}
	if prev == StateHydrating && !isAuth {
		return
	}
	for _, fn := range listeners {
		fn(isAuth)
	}
}
