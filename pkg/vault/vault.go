// Package vault stores per-user credential records encrypted at rest.
// Every mutation is a whole-document read-modify-write of the vault
// document and emits one audit event.
package vault

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/khadijaf/securevault/internal/storage"
	"github.com/khadijaf/securevault/pkg/audit"
	"github.com/khadijaf/securevault/pkg/crypto"
	"github.com/khadijaf/securevault/pkg/strength"
)

// CreatedAtFormat is the display format for record creation times.
const CreatedAtFormat = "2006-01-02 15:04:05"

// DefaultCategory is assigned to records created without a category.
const DefaultCategory = "General"

// Errors
var (
	ErrCredentialNotFound = errors.New("vault: credential not found")
	ErrEmptyService       = errors.New("vault: service must not be empty")
	ErrEmptySecret        = errors.New("vault: secret must not be empty")
)

// Credential is the decrypted, in-memory view of one stored record.
type Credential struct {
	ID        string
	Service   string
	Username  string
	Secret    string
	Category  string
	Strength  strength.Classification
	CreatedAt string
}

// record is the at-rest shape: service, username and secret are
// ciphertext; category, strength and timestamps stay plaintext so
// views and sweeps work without decrypting.
type record struct {
	ID        string `json:"id"`
	Service   string `json:"service"`
	Username  string `json:"username"`
	Secret    string `json:"secret"`
	Category  string `json:"category"`
	Strength  string `json:"strength"`
	CreatedAt string `json:"created_at"`
}

// Store maps each username to an ordered sequence of credential records.
type Store struct {
	store     storage.DocStore
	cipher    *crypto.Cipher
	audit     *audit.Logger
	attribute func(user string) string
	mu        sync.RWMutex
	now       func() time.Time
}

// NewStore creates a vault store. Every mutation round-trips through
// cipher and emits an event on logger. The vault document is keyed by
// username; attribute maps that key to the identity recorded on audit
// events (the account email, when one exists). A nil attribute records
// events under the username itself.
func NewStore(store storage.DocStore, cipher *crypto.Cipher, logger *audit.Logger, attribute func(user string) string) *Store {
	if attribute == nil {
		attribute = func(user string) string { return user }
	}
	return &Store{
		store:     store,
		cipher:    cipher,
		audit:     logger,
		attribute: attribute,
		now:       time.Now,
	}
}

// Add encrypts and appends a new credential for the user, persists the
// vault document and returns the stored record.
func (s *Store) Add(user, service, username, secret string) (Credential, error) {
	service = norm.NFC.String(service)
	username = norm.NFC.String(username)

	if service == "" {
		return Credential{}, ErrEmptyService
	}
	if secret == "" {
		return Credential{}, ErrEmptySecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cred := Credential{
		ID:        uuid.NewString(),
		Service:   service,
		Username:  username,
		Secret:    secret,
		Category:  DefaultCategory,
		Strength:  strength.Evaluate(secret),
		CreatedAt: s.now().Format(CreatedAtFormat),
	}

	doc := s.loadDoc()
	enc, err := s.seal(cred)
	if err != nil {
		return Credential{}, err
	}
	doc[user] = append(doc[user], enc)

	if err := s.saveDoc(doc); err != nil {
		return Credential{}, err
	}

	s.logOperation(audit.OpAdded, service, user)
	s.sweepWeak(doc[user], user)
	return cred, nil
}

// Update replaces the fields of the identified credential in place.
// Strength is recomputed only when the secret changed.
func (s *Store) Update(user, id, service, username, secret string) (Credential, error) {
	service = norm.NFC.String(service)
	username = norm.NFC.String(username)

	if service == "" {
		return Credential{}, ErrEmptyService
	}
	if secret == "" {
		return Credential{}, ErrEmptySecret
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadDoc()
	records := doc[user]
	idx := indexByID(records, id)
	if idx < 0 {
		return Credential{}, ErrCredentialNotFound
	}

	old, err := s.open(records[idx])
	if err != nil {
		return Credential{}, err
	}

	cred := old
	cred.Service = service
	cred.Username = username
	cred.Secret = secret
	if secret != old.Secret {
		cred.Strength = strength.Evaluate(secret)
	}

	enc, err := s.seal(cred)
	if err != nil {
		return Credential{}, err
	}
	records[idx] = enc
	doc[user] = records

	if err := s.saveDoc(doc); err != nil {
		return Credential{}, err
	}

	s.logOperation(audit.OpEdited, service, user)
	s.sweepWeak(records, user)
	return cred, nil
}

// Remove deletes the identified credential. Removal is keyed on the
// record id, so field-identical duplicates are unambiguous.
func (s *Store) Remove(user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.loadDoc()
	records := doc[user]
	idx := indexByID(records, id)
	if idx < 0 {
		return ErrCredentialNotFound
	}

	service := records[idx].Service
	if plain, err := s.cipher.Decrypt(service); err == nil {
		service = plain
	}

	doc[user] = append(records[:idx], records[idx+1:]...)
	if err := s.saveDoc(doc); err != nil {
		return err
	}

	s.logOperation(audit.OpDeleted, service, user)
	return nil
}

// List returns the user's decrypted credentials in insertion order.
// Reading never mutates the persisted document.
func (s *Store) List(user string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.loadDoc()[user]
	creds := make([]Credential, 0, len(records))
	for _, r := range records {
		cred, err := s.open(r)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// Get returns one decrypted credential by id.
func (s *Store) Get(user, id string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.loadDoc()[user]
	idx := indexByID(records, id)
	if idx < 0 {
		return Credential{}, ErrCredentialNotFound
	}
	return s.open(records[idx])
}

// LogView records that a credential's secret was revealed to the user.
func (s *Store) LogView(user, service string) {
	s.logOperation(audit.OpViewed, service, user)
}

// seal encrypts the sensitive fields of a credential for storage.
func (s *Store) seal(c Credential) (record, error) {
	service, err := s.cipher.Encrypt(c.Service)
	if err != nil {
		return record{}, fmt.Errorf("vault: failed to encrypt service: %w", err)
	}
	username, err := s.cipher.Encrypt(c.Username)
	if err != nil {
		return record{}, fmt.Errorf("vault: failed to encrypt username: %w", err)
	}
	secret, err := s.cipher.Encrypt(c.Secret)
	if err != nil {
		return record{}, fmt.Errorf("vault: failed to encrypt secret: %w", err)
	}

	return record{
		ID:        c.ID,
		Service:   service,
		Username:  username,
		Secret:    secret,
		Category:  c.Category,
		Strength:  string(c.Strength),
		CreatedAt: c.CreatedAt,
	}, nil
}

// open decrypts a stored record. A failed decrypt is fatal to the
// calling operation.
func (s *Store) open(r record) (Credential, error) {
	service, err := s.cipher.Decrypt(r.Service)
	if err != nil {
		return Credential{}, fmt.Errorf("vault: failed to decrypt service: %w", err)
	}
	username, err := s.cipher.Decrypt(r.Username)
	if err != nil {
		return Credential{}, fmt.Errorf("vault: failed to decrypt username: %w", err)
	}
	secret, err := s.cipher.Decrypt(r.Secret)
	if err != nil {
		return Credential{}, fmt.Errorf("vault: failed to decrypt secret: %w", err)
	}

	category := r.Category
	if category == "" {
		category = DefaultCategory
	}

	return Credential{
		ID:        r.ID,
		Service:   service,
		Username:  username,
		Secret:    secret,
		Category:  category,
		Strength:  strength.Classification(r.Strength),
		CreatedAt: r.CreatedAt,
	}, nil
}

// loadDoc reads the vault document; missing or corrupt reads yield an
// empty vault.
func (s *Store) loadDoc() map[string][]record {
	doc := make(map[string][]record)
	if err := s.store.Load(storage.DocVault, &doc); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "warning: failed to read vault, starting empty: %v\n", err)
		}
		return make(map[string][]record)
	}
	return doc
}

// saveDoc rewrites the whole vault document. Write failures always
// propagate to the caller.
func (s *Store) saveDoc(doc map[string][]record) error {
	if err := s.store.Save(storage.DocVault, doc); err != nil {
		return fmt.Errorf("vault: failed to persist: %w", err)
	}
	return nil
}

// logOperation emits the audit event for a credential operation.
// Audit failures are reported but never fail the vault operation.
func (s *Store) logOperation(op, service, user string) {
	if _, err := s.audit.LogPasswordOperation(op, service, s.attribute(user)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record audit event: %v\n", err)
	}
}

// sweepWeak runs the weak-password check over the user's records after
// a mutation, feeding the dedup-guarded alert.
func (s *Store) sweepWeak(records []record, user string) {
	candidates := make([]audit.WeakCandidate, 0, len(records))
	for _, r := range records {
		service := r.Service
		if plain, err := s.cipher.Decrypt(service); err == nil {
			service = plain
		}
		candidates = append(candidates, audit.WeakCandidate{
			Service: service,
			Weak:    r.Strength == string(strength.Weak),
		})
	}
	if _, err := s.audit.CheckWeakPasswords(candidates, s.attribute(user)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to record weak-password alert: %v\n", err)
	}
}

func indexByID(records []record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
