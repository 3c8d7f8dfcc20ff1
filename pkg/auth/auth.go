// Package auth holds the user directory and the login gate with
// failed-attempt lockout.
package auth

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/khadijaf/securevault/internal/storage"
	"github.com/khadijaf/securevault/pkg/audit"
)

// MinPasswordLength is the minimum master password length accepted at
// registration and reset.
const MinPasswordLength = 8

// CreatedDateFormat is the display format for account creation dates.
const CreatedDateFormat = "2006-01-02 15:04:05"

// Errors
var (
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUserExists         = errors.New("auth: user already exists")
	ErrEmptyUsername      = errors.New("auth: username must not be empty")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrAccountLocked      = errors.New("auth: account locked after too many failed attempts")
)

// User is one entry in the user directory.
type User struct {
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	Email        string `json:"email"`
	CreatedDate  string `json:"created_date"`
}

// Directory persists the username to account mapping.
type Directory struct {
	store storage.DocStore
	audit *audit.Logger
	cost  int
	mu    sync.Mutex
	now   func() time.Time
}

// NewDirectory creates a user directory. cost is the bcrypt work factor.
func NewDirectory(store storage.DocStore, logger *audit.Logger, cost int) *Directory {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		store: store,
		audit: logger,
		cost:  cost,
		now:   time.Now,
	}
}

// Register creates a new account with a bcrypt-hashed master password.
func (d *Directory) Register(username, name, email, password string) error {
	if username == "" {
		return ErrEmptyUsername
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	users := d.loadAll()
	if _, exists := users[username]; exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return fmt.Errorf("auth: failed to hash password: %w", err)
	}

	users[username] = User{
		Name:         name,
		PasswordHash: string(hash),
		Email:        email,
		CreatedDate:  d.now().Format(CreatedDateFormat),
	}
	return d.saveAll(users)
}

// Lookup returns the account for username.
func (d *Directory) Lookup(username string) (User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	user, ok := d.loadAll()[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Email returns the user's email, falling back to the username when the
// account has none. Audit events prefer the email as the user identity.
func (d *Directory) Email(username string) string {
	user, err := d.Lookup(username)
	if err != nil || user.Email == "" {
		return username
	}
	return user.Email
}

// ResetPassword replaces the stored hash for an existing account and
// records the reset in the audit log.
func (d *Directory) ResetPassword(username, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	d.mu.Lock()
	users := d.loadAll()
	user, ok := users[username]
	if !ok {
		d.mu.Unlock()
		return ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), d.cost)
	if err != nil {
		d.mu.Unlock()
		return fmt.Errorf("auth: failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	users[username] = user
	if err := d.saveAll(users); err != nil {
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()

	email := user.Email
	if email == "" {
		email = username
	}
	if _, err := d.audit.LogPasswordReset(email); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record audit event: %v\n", err)
	}
	return nil
}

// loadAll reads the user directory; missing or corrupt reads yield an
// empty directory.
func (d *Directory) loadAll() map[string]User {
	users := make(map[string]User)
	if err := d.store.Load(storage.DocUsers, &users); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "warning: failed to read user directory, starting empty: %v\n", err)
		}
		return make(map[string]User)
	}
	return users
}

func (d *Directory) saveAll(users map[string]User) error {
	if err := d.store.Save(storage.DocUsers, users); err != nil {
		return fmt.Errorf("auth: failed to persist user directory: %w", err)
	}
	return nil
}
