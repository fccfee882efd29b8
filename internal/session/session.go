package session

import (
	"fmt"
	"time"

	"boutique/internal/models"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"
)

const (
	// CookieName is the name of the session id cookie.
	CookieName = "sid"

	loginKey  = "login"
	flashKey  = "flashes"
	localsKey = "session_state"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Login is the authenticated user captured at login time. ExpiresAt is fixed
// when the login happens and is only moved by logging in again.
type Login struct {
	User      models.UserSnapshot
	ExpiresAt time.Time
}

// Flashes maps a flash kind to its pending messages.
type Flashes map[string][]string

// Config configures a Manager.
type Config struct {
	Storage      fiber.Storage // nil selects fiber's in-memory storage
	TTL          time.Duration
	CookieSecure bool
}

// Manager hands out per-request session state backed by fiber's session store.
type Manager struct {
	store *fibersession.Store
	ttl   time.Duration
}

// NewManager creates a new Manager.
func NewManager(cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	store := fibersession.New(fibersession.Config{
		Expiration:     cfg.TTL,
		Storage:        cfg.Storage,
		KeyLookup:      "cookie:" + CookieName,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})
	store.RegisterType(Login{})
	store.RegisterType(Flashes{})
	return &Manager{store: store, ttl: cfg.TTL}
}

// TTL returns the lifetime of a login.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Load returns the session state of the request, fetching it from storage
// at most once per request.
func (m *Manager) Load(c *fiber.Ctx) (*State, error) {
	if st, ok := c.Locals(localsKey).(*State); ok {
		return st, nil
	}
	sess, err := m.store.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	st := &State{sess: sess, ttl: m.ttl}
	c.Locals(localsKey, st)
	return st, nil
}

// Middleware persists any session state the request changed once the rest
// of the chain has run.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		chainErr := c.Next()
		st, ok := c.Locals(localsKey).(*State)
		if !ok {
			return chainErr
		}
		if err := st.save(); err != nil {
			log.Error().Err(err).Str("path", c.Path()).Msg("Failed to save session")
			if chainErr == nil {
				chainErr = err
			}
		}
		return chainErr
	}
}

// State is the session of a single request. It is not safe for concurrent use.
type State struct {
	sess  *fibersession.Session
	ttl   time.Duration
	dirty bool
	saved bool
}

// ID returns the current session id.
func (s *State) ID() string {
	return s.sess.ID()
}

func (s *State) login() (Login, bool) {
	login, ok := s.sess.Get(loginKey).(Login)
	return login, ok
}

// User returns the logged in user, or nil when there is no login or it has expired.
func (s *State) User() *models.UserSnapshot {
	login, ok := s.login()
	if !ok || !time.Now().Before(login.ExpiresAt) {
		return nil
	}
	u := login.User
	return &u
}

// ExpiresAt returns the expiry of the current login.
func (s *State) ExpiresAt() (time.Time, bool) {
	login, ok := s.login()
	return login.ExpiresAt, ok
}

// SetUser starts a new login under a fresh session id. Pending flashes survive.
func (s *State) SetUser(user models.UserSnapshot) error {
	if err := s.sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	s.sess.Set(loginKey, Login{User: user, ExpiresAt: time.Now().Add(s.ttl)})
	s.dirty = true
	return nil
}

// RefreshUser replaces the stored snapshot without moving the expiry.
func (s *State) RefreshUser(user models.UserSnapshot) {
	login, ok := s.login()
	if !ok {
		return
	}
	login.User = user
	s.sess.Set(loginKey, login)
	s.dirty = true
}

// Destroy drops all session data and its stored copy. Later writes go to a
// new session id.
func (s *State) Destroy() error {
	if err := s.sess.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	if err := s.sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	s.dirty = false
	return nil
}

// AddFlash queues a message for the next rendered page.
func (s *State) AddFlash(kind, message string) {
	flashes, _ := s.sess.Get(flashKey).(Flashes)
	if flashes == nil {
		flashes = Flashes{}
	}
	flashes[kind] = append(flashes[kind], message)
	s.sess.Set(flashKey, flashes)
	s.dirty = true
}

// TakeFlashes returns and clears the pending messages.
func (s *State) TakeFlashes() Flashes {
	flashes, ok := s.sess.Get(flashKey).(Flashes)
	if !ok || len(flashes) == 0 {
		return nil
	}
	s.sess.Delete(flashKey)
	s.dirty = true
	return flashes
}

// save writes the session when it changed. A login keeps the expiry set at login;
// once that has passed the session is destroyed instead.
func (s *State) save() error {
	if !s.dirty || s.saved {
		return nil
	}
	s.saved = true

	if login, ok := s.login(); ok {
		remaining := time.Until(login.ExpiresAt)
		if remaining <= 0 {
			return s.sess.Destroy()
		}
		s.sess.SetExpiry(remaining)
	} else {
		s.sess.SetExpiry(s.ttl)
	}
	// Save releases the underlying session.
	return s.sess.Save()
}
