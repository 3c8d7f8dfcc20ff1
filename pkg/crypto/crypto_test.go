package crypto

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewCipherCreatesKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "vault.key")

	if _, err := NewCipher(keyPath); err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("key file not created: %v", err)
	}
	if info.Size() != KeyLength {
		t.Errorf("expected key file of %d bytes, got %d", KeyLength, info.Size())
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected key file mode 0600, got %04o", perm)
	}
}

func TestNewCipherReusesExistingKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "vault.key")

	c1, err := NewCipher(keyPath)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	token, err := c1.Encrypt("secret data")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Second startup must load the same key verbatim.
	c2, err := NewCipher(keyPath)
	if err != nil {
		t.Fatalf("NewCipher (reopen) failed: %v", err)
	}
	plaintext, err := c2.Decrypt(token)
	if err != nil {
		t.Fatalf("Decrypt with reloaded key failed: %v", err)
	}
	if plaintext != "secret data" {
		t.Errorf("expected %q, got %q", "secret data", plaintext)
	}
}

func TestNewCipherRejectsTruncatedKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "vault.key")
	if err := os.WriteFile(keyPath, []byte("short"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewCipher(keyPath); !errors.Is(err, ErrInvalidKeyLength) {
		t.Errorf("expected ErrInvalidKeyLength, got %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := NewCipher(filepath.Join(t.TempDir(), "vault.key"))
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	cases := []string{
		"",
		"password123",
		"unicode: pässwörd ✓",
		"multi\nline\nvalue",
	}
	for _, plaintext := range cases {
		token, err := c.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("Encrypt(%q) failed: %v", plaintext, err)
		}
		got, err := c.Decrypt(token)
		if err != nil {
			t.Fatalf("Decrypt(%q) failed: %v", plaintext, err)
		}
		if got != plaintext {
			t.Errorf("round trip: expected %q, got %q", plaintext, got)
		}
	}
}

func TestEncryptIsNondeterministic(t *testing.T) {
	c, err := NewCipher(filepath.Join(t.TempDir(), "vault.key"))
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	t1, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	t2, err := c.Encrypt("same input")
	if err != nil {
		t.Fatal(err)
	}
	if t1 == t2 {
		t.Error("expected distinct ciphertexts for repeated encryption of the same input")
	}
}

func TestDecryptWithDifferentKeyFails(t *testing.T) {
	dir := t.TempDir()

	c1, err := NewCipher(filepath.Join(dir, "key1"))
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewCipher(filepath.Join(dir, "key2"))
	if err != nil {
		t.Fatal(err)
	}

	token, err := c1.Encrypt("cross-key data")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Decrypt(token); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	c, err := NewCipher(filepath.Join(t.TempDir(), "vault.key"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Decrypt("not base64!!"); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed for invalid encoding, got %v", err)
	}
	if _, err := c.Decrypt("c2hvcnQ="); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

func TestSecureWipe(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	SecureWipe(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d not wiped: %d", i, v)
		}
	}
}
