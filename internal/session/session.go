// Package session holds the signed-in identity as an explicit context object.
//
// The bearer token and user record live under two well-known storage keys and
// are always written and cleared together. A Context is created once at start
// up, initialized from storage, and handed to whatever talks to the API.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"

	"github.com/idilsaglam/neontodo/internal/logging"
	"github.com/idilsaglam/neontodo/internal/model"
)

const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"

	// EnvToken overrides the stored token when set.
	EnvToken = "TADA_TOKEN"
)

// Where the active token came from.
const (
	SourceNone = ""
	SourceEnv  = "env"
	SourceFile = "file"
)

// ErrNoToken is returned by Claims when nobody is signed in.
var ErrNoToken = errors.New("not logged in")

// Storage is the persistence a Context needs.
type Storage interface {
	Get(key string) (string, bool, error)
	SetMany(values map[string]string) error
	Delete(keys ...string) error
}

// Context is the process-wide session state.
type Context struct {
	mu     sync.RWMutex
	store  Storage
	getenv func(string) string
	logger *log.Logger

	token  string
	user   model.User
	source string
	hooks  []func()
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Context) { c.logger = l } }

// WithGetenv replaces os.Getenv, mainly for tests.
func WithGetenv(fn func(string) string) Option { return func(c *Context) { c.getenv = fn } }

// New returns an unauthenticated context backed by store.
func New(store Storage, opts ...Option) *Context {
	c := &Context{store: store, getenv: os.Getenv, logger: logging.Discard()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init loads the persisted session. The env override wins over storage;
// otherwise both keys must be present for the session to count.
func (c *Context) Init() error {
	if env := strings.TrimSpace(c.getenv(EnvToken)); env != "" {
		tok := stripBearer(env)
		user := userFromToken(tok)
		c.mu.Lock()
		c.token, c.user, c.source = tok, user, SourceEnv
		c.mu.Unlock()
		c.logger.Debug("session from environment", "email", user.Email)
		return nil
	}

	tok, okTok, err := c.store.Get(TokenKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	rawUser, okUser, err := c.store.Get(UserKey)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	if !okTok || !okUser || strings.TrimSpace(tok) == "" {
		return nil // not logged in
	}
	var user model.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return fmt.Errorf("parse stored user: %w", err)
	}
	c.mu.Lock()
	c.token, c.user, c.source = stripBearer(tok), user, SourceFile
	c.mu.Unlock()
	c.logger.Debug("session restored", "email", user.Email)
	return nil
}

// Begin persists a freshly issued session and makes it current.
func (c *Context) Begin(s model.Session) error {
	tok := stripBearer(strings.TrimSpace(s.Token))
	if tok == "" {
		return fmt.Errorf("empty token")
	}
	b, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := c.store.SetMany(map[string]string{TokenKey: tok, UserKey: string(b)}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.mu.Lock()
	c.token, c.user, c.source = tok, s.User, SourceFile
	c.mu.Unlock()
	c.logger.Info("signed in", "email", s.User.Email)
	return nil
}

// Teardown clears token and user together and notifies observers.
// It runs on sign-out and whenever the API answers 401.
func (c *Context) Teardown() error {
	c.mu.Lock()
	c.token, c.user, c.source = "", model.User{}, SourceNone
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()

	err := c.store.Delete(TokenKey, UserKey)
	for _, fn := range hooks {
		fn()
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.logger.Info("session cleared")
	return nil
}

// OnTeardown registers fn to run after every Teardown.
func (c *Context) OnTeardown(fn func()) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Token returns the bearer token, empty when signed out.
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the signed-in user.
func (c *Context) User() model.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Source reports where the token came from: "env", "file" or "".
func (c *Context) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// Authenticated reports whether a token is present.
func (c *Context) Authenticated() bool {
	return c.Token() != ""
}

// Claims are the fields we read from a JWT bearer token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Expiry returns the expiration time if the token carries one.
func (c Claims) Expiry() *time.Time {
	if c.ExpiresAt == nil {
		return nil
	}
	t := c.ExpiresAt.Time
	return &t
}

// Claims decodes the token payload locally. The signature is not verified;
// only the server can do that.
func (c *Context) Claims() (Claims, error) {
	tok := c.Token()
	if tok == "" {
		return Claims{}, ErrNoToken
	}
	return ParseClaims(tok)
}

// ParseClaims decodes an unverified JWT.
func ParseClaims(token string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("opaque token: %w", err)
	}
	return claims, nil
}

func userFromToken(tok string) model.User {
	claims, err := ParseClaims(tok)
	if err != nil {
		return model.User{}
	}
	email := claims.Email
	if email == "" {
		email = claims.Subject
	}
	return model.User{Email: email, ID: claims.Subject}
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
