// Package storage persists securevault's named JSON documents.
//
// Every persisted document (user directory, vault, audit log, settings) is
// read and written wholesale: callers load the full document, mutate it in
// memory, and save it back. A DocStore provides exclusive access for the
// duration of each call; concurrent writers against the same backing store
// are unsupported (last writer wins at document granularity).
package storage

import "errors"

// Document names used by securevault.
const (
	DocUsers    = "users"
	DocVault    = "vault"
	DocAuditLog = "audit_logs"
	DocSettings = "settings"
)

// ErrNotFound indicates the named document has never been saved. Callers
// treat it as "empty document", never as a fatal error.
var ErrNotFound = errors.New("storage: document not found")

// DocStore is the whole-document persistence contract. Load decodes the
// named document into v; Save encodes v and replaces the named document.
type DocStore interface {
	Load(name string, v any) error
	Save(name string, v any) error
	Close() error
}
