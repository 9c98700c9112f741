// Package session owns the single logged-in session of this client: the
// bearer credential the gateway attaches, the user it belongs to, and the
// theme preference. It is the one source of truth for both.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"budgetbook/internal/core"
	"budgetbook/internal/log"
)

// Store persists the auth record and preferences.
type Store interface {
	LoadAuth(ctx context.Context) (core.AuthRecord, bool, error)
	SaveAuth(ctx context.Context, rec core.AuthRecord) error
	DeleteAuth(ctx context.Context) error
	Preference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	themeKey     = "theme"
	storeTimeout = 5 * time.Second
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark }

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

var ErrNotAuthenticated = errors.New("not authenticated")

// Snapshot is a read-only copy of the session for one request.
type Snapshot struct {
	User          core.User
	Authenticated bool
	// ExpiresAt is the bearer token's exp claim when it is a JWT.
	ExpiresAt time.Time
	Theme     Theme
}

// Expired reports whether the token's exp claim is in the past. Tokens
// without one never expire locally.
func (s Snapshot) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func (s Snapshot) HasRole(roles ...core.Role) bool {
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}

// Manager implements gateway.CredentialStore.
type Manager struct {
	store  Store
	logger *log.Logger

	mu    sync.RWMutex
	rec   core.AuthRecord
	authd bool
	theme Theme
}

func NewManager(store Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		store:  store,
		logger: logger.WithComponent(log.ComponentSession),
		theme:  ThemeLight,
	}
}

// Load rehydrates the session and theme from the store at startup.
func (m *Manager) Load(ctx context.Context) error {
	rec, ok, err := m.store.LoadAuth(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	theme, tok, err := m.store.Preference(ctx, themeKey)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ok && rec.Token != "" {
		m.rec, m.authd = rec, true
	}
	if tok && Theme(theme).Valid() {
		m.theme = Theme(theme)
	}
	m.logger.InfoContext(ctx, "session loaded", "authenticated", m.authd, "theme", m.theme)
	return nil
}

// Begin stores a fresh login.
func (m *Manager) Begin(ctx context.Context, user core.User, token, refreshToken string) error {
	if token == "" {
		return errors.New("login response carried no token")
	}
	rec := core.AuthRecord{User: user, Token: token, RefreshToken: refreshToken, UpdatedAt: time.Now()}

	m.mu.Lock()
	m.rec, m.authd = rec, true
	m.mu.Unlock()

	if err := m.store.SaveAuth(ctx, rec); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	m.logger.InfoContext(ctx, "session started", log.FieldOperation, log.OpLogin, "user", user.Email)
	return nil
}

func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec.Token
}

func (m *Manager) RefreshToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec.RefreshToken
}

// Store replaces the credential after a refresh, keeping the user. An
// empty refreshToken keeps the previous one. A refresh that lands after
// logout does not bring the session back: Store then returns
// ErrNotAuthenticated and persists nothing.
func (m *Manager) Store(token, refreshToken string) error {
	m.mu.Lock()
	if !m.authd {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.rec.Token = token
	if refreshToken != "" {
		m.rec.RefreshToken = refreshToken
	}
	m.rec.UpdatedAt = time.Now()
	m.authd = token != ""
	rec := m.rec
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.store.SaveAuth(ctx, rec); err != nil {
		return fmt.Errorf("persist refreshed session: %w", err)
	}
	return nil
}

// Clear drops the credential and removes the persisted session. The theme
// survives.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.rec, m.authd = core.AuthRecord{}, false
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.store.DeleteAuth(ctx); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	m.logger.Info("session cleared", log.FieldOperation, log.OpLogout)
	return nil
}

// UpdateUser replaces the stored user summary (e.g. after a role change).
func (m *Manager) UpdateUser(ctx context.Context, user core.User) error {
	m.mu.Lock()
	if !m.authd {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	m.rec.User = user
	rec := m.rec
	m.mu.Unlock()
	return m.store.SaveAuth(ctx, rec)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{User: m.rec.User, Authenticated: m.authd, Theme: m.theme}
	if m.authd {
		s.ExpiresAt = tokenExpiry(m.rec.Token)
	}
	return s
}

func (m *Manager) Theme() Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.theme
}

func (m *Manager) SetTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	m.mu.Lock()
	m.theme = t
	m.mu.Unlock()
	if err := m.store.SetPreference(ctx, themeKey, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	return nil
}

// ToggleTheme flips the theme and returns the new one.
func (m *Manager) ToggleTheme(ctx context.Context) (Theme, error) {
	next := m.Theme().Toggle()
	return next, m.SetTheme(ctx, next)
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend does the verifying.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
