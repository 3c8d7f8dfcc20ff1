package auth

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/khadijaf/securevault/pkg/audit"
	"github.com/khadijaf/securevault/pkg/settings"
)

// State is the gate's position in the login state machine.
type State string

const (
	StateLoggedOut      State = "logged_out"
	StateAuthenticating State = "authenticating"
	StateLoggedIn       State = "logged_in"
	StateLocked         State = "locked"
)

// Session is returned on successful authentication and identifies the
// logged-in user for subsequent vault and audit calls.
type Session struct {
	Username  string
	Email     string
	StartedAt time.Time
}

// Gate validates logins and counts consecutive failures per username.
// Counters live in process memory only; a restart clears them. Once a
// username reaches its failure limit the lock is terminal for the
// process lifetime.
type Gate struct {
	dir      *Directory
	audit    *audit.Logger
	settings *settings.Store
	device   string
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures map[string]int
	locked   map[string]bool
}

// NewGate creates a login gate over the directory. The device label is
// attached to login audit events.
func NewGate(dir *Directory, logger *audit.Logger, cfg *settings.Store) *Gate {
	device, err := os.Hostname()
	if err != nil || device == "" {
		device = "local"
	}
	return &Gate{
		dir:      dir,
		audit:    logger,
		settings: cfg,
		device:   device,
		now:      time.Now,
		state:    StateLoggedOut,
		failures: make(map[string]int),
		locked:   make(map[string]bool),
	}
}

// Authenticate verifies the master password for username. A locked
// username is rejected before any hash comparison and without touching
// its failure counter. Reaching the failure limit transitions the gate
// to Locked; the caller decides what to do with its session.
func (g *Gate) Authenticate(username, password string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.state = StateAuthenticating

	if g.locked[username] {
		g.state = StateLocked
		return nil, ErrAccountLocked
	}

	maxAttempts := settings.Defaults().MaxFailedAttempts
	if cfg, err := g.settings.Get(username); err == nil {
		maxAttempts = cfg.MaxFailedAttempts
	}

	user, err := g.dir.Lookup(username)
	if err != nil {
		return nil, g.fail(username, username, "Account not found", maxAttempts)
	}

	email := user.Email
	if email == "" {
		email = username
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, g.fail(username, email, "Invalid username or password", maxAttempts)
	}

	g.failures[username] = 0
	g.state = StateLoggedIn
	if _, err := g.audit.LogLoginSuccess(email, g.device); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record audit event: %v\n", err)
	}
	return &Session{Username: username, Email: email, StartedAt: g.now()}, nil
}

// fail records one failed attempt and locks the username when the limit
// is reached. Called with the gate mutex held.
func (g *Gate) fail(username, email, reason string, maxAttempts int) error {
	g.failures[username]++
	g.state = StateLoggedOut

	if _, err := g.audit.LogLoginFailed(email, reason, g.device); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record audit event: %v\n", err)
	}

	if g.failures[username] >= maxAttempts {
		g.locked[username] = true
		g.state = StateLocked
		ip := audit.SyntheticExternalIP()
		if _, err := g.audit.LogMultipleFailedAttempts(email, g.failures[username], ip); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to record audit event: %v\n", err)
		}
		return ErrAccountLocked
	}
	return ErrInvalidCredentials
}

// Logout returns the gate to the logged-out state. Lockouts survive.
func (g *Gate) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = StateLoggedOut
}

// State returns the gate's current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// FailedAttempts returns the in-memory failure count for username.
func (g *Gate) FailedAttempts(username string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures[username]
}

// Locked reports whether the username is locked out.
func (g *Gate) Locked(username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.locked[username]
}
