// Package session stores the viewer session with scs.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/handout-viewer/internal/config"
	"github.com/stemsi/handout-viewer/internal/model"
)

// Session keys shared with the portal.
const (
	KeyUserID    = "user_id"
	KeyUserRole  = "user_role"
	KeyUserEmail = "user_email"
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
)

// Store names accepted by SESSION_STORE.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ErrNoSession means the request carries no logged-in user.
var ErrNoSession = errors.New("session not found")

// Manager reads and writes the viewer session.
type Manager struct {
	impl *scs.SessionManager
}

// NewManager builds a Manager from config. rdb is required for the redis store.
func NewManager(cfg *config.Config, rdb *redis.Client) (*Manager, error) {
	var store scs.Store
	switch cfg.SessionStore {
	case StoreRedis, "":
		if rdb == nil {
			return nil, errors.New("redis session store needs a redis client")
		}
		store = NewRedisStore(rdb)
	case StoreMemory:
		store = memstore.New()
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}

	return NewWithStore(cfg, store), nil
}

// NewWithStore builds a Manager over an explicit scs store.
func NewWithStore(cfg *config.Config, store scs.Store) *Manager {
	sm := scs.New()
	sm.Store = store
	if cfg.SessionLifetime > 0 {
		sm.Lifetime = cfg.SessionLifetime
	}
	if cfg.SessionCookie != "" {
		sm.Cookie.Name = cfg.SessionCookie
	}
	sm.Cookie.HttpOnly = true
	sm.Cookie.Path = "/"
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.SecureCookies

	return &Manager{impl: sm}
}

// Wrap loads the session before next and saves it afterwards.
func (m *Manager) Wrap(next http.Handler) http.Handler {
	return m.impl.LoadAndSave(next)
}

// Load returns the logged-in user, or ErrNoSession.
// The role is returned as stored; callers validate it.
func (m *Manager) Load(ctx context.Context) (*model.Session, error) {
	if !m.impl.Exists(ctx, KeyUserID) {
		return nil, ErrNoSession
	}

	id := m.impl.GetInt(ctx, KeyUserID)
	if id == 0 {
		return nil, ErrNoSession
	}

	return &model.Session{
		UserID:    id,
		Role:      model.Role(m.impl.GetString(ctx, KeyUserRole)),
		Email:     m.impl.GetString(ctx, KeyUserEmail),
		FirstName: m.impl.GetString(ctx, KeyFirstName),
		LastName:  m.impl.GetString(ctx, KeyLastName),
	}, nil
}

// Establish writes sess under a fresh session token.
func (m *Manager) Establish(ctx context.Context, sess model.Session) error {
	if err := m.impl.RenewToken(ctx); err != nil {
		return fmt.Errorf("renew session token: %w", err)
	}

	m.impl.Put(ctx, KeyUserID, sess.UserID)
	m.impl.Put(ctx, KeyUserRole, string(sess.Role))
	m.impl.Put(ctx, KeyUserEmail, sess.Email)
	m.impl.Put(ctx, KeyFirstName, sess.FirstName)
	m.impl.Put(ctx, KeyLastName, sess.LastName)
	return nil
}

// Destroy removes the session and expires the cookie.
func (m *Manager) Destroy(ctx context.Context) error {
	return m.impl.Destroy(ctx)
}

// Put sets a single session value. Used by tooling and tests to write
// sessions the way the portal does.
func (m *Manager) Put(ctx context.Context, key string, val any) {
	m.impl.Put(ctx, key, val)
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.impl.Cookie.Name
}
