// Package crypto provides the symmetric cipher service for securevault.
//
// A Cipher owns one AES-256-GCM key for the process lifetime. The key is
// generated once and persisted to a key file; every later startup loads the
// same file verbatim. Each Encrypt call is independent: a fresh random
// 96-bit nonce is generated and prepended to the ciphertext, and the result
// is base64url-encoded so encrypted fields can live inside JSON documents.
//
// # Example Usage
//
//	c, err := crypto.NewCipher(filepath.Join(dir, "vault.key"))
//	ct, err := c.Encrypt("hunter2")
//	pt, err := c.Decrypt(ct)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"runtime"
)

const (
	// KeyLength is the length of encryption keys in bytes (256 bits).
	KeyLength = 32

	// NonceLength is the length of GCM nonces in bytes (96 bits).
	NonceLength = 12

	// keyFileMode restricts the key file to the owner.
	keyFileMode = 0600
)

// Sentinel errors returned by the cipher service.
var (
	// ErrInvalidKeyLength indicates the persisted key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrDecryptionFailed indicates decryption or authentication tag
	// verification failed: wrong key or corrupted ciphertext.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the decoded ciphertext is shorter
	// than a nonce plus the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
)

// Cipher encrypts and decrypts opaque strings with a single persisted key.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher opens the key file at keyPath, generating and persisting a new
// random key first if no file exists. The loaded key is used verbatim.
func NewCipher(keyPath string) (*Cipher, error) {
	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	defer SecureWipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// loadOrCreateKey reads an existing key file or generates a fresh key and
// writes it before first use.
func loadOrCreateKey(keyPath string) ([]byte, error) {
	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != KeyLength {
			return nil, ErrInvalidKeyLength
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("crypto: failed to read key file: %w", err)
	}

	key = make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("crypto: failed to generate key: %w", err)
	}
	if err := os.WriteFile(keyPath, key, keyFileMode); err != nil {
		return nil, fmt.Errorf("crypto: failed to write key file: %w", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext and returns a base64url token with the nonce
// prepended to the sealed data.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(append(nonce, sealed...)), nil
}

// Decrypt reverses Encrypt. A token produced under a different key, or one
// that was modified, fails with ErrDecryptionFailed.
func (c *Cipher) Decrypt(token string) (string, error) {
	blob, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	if len(blob) < NonceLength+c.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}

	nonce := blob[:NonceLength]
	sealed := blob[NonceLength:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
