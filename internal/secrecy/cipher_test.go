package secrecy

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "encryption.key"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	plain := "Hi AdinavAI, how are you today?"
	sealed, err := c.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if sealed == plain {
		t.Fatalf("Encrypt() returned plaintext")
	}

	got, err := c.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if got != plain {
		t.Fatalf("Decrypt() = %q, want %q", got, plain)
	}
}

func TestNoncesDiffer(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "encryption.key"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	a, _ := c.Encrypt("same message")
	b, _ := c.Encrypt("same message")
	if a == b {
		t.Fatalf("two encryptions of the same text should differ")
	}
}

func TestKeyPersistsAcrossOpens(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "encryption.key")

	c1, err := Open(keyPath)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	sealed, _ := c1.Encrypt("remember me")

	c2, err := Open(keyPath)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	got, err := c2.Decrypt(sealed)
	if err != nil || got != "remember me" {
		t.Fatalf("Decrypt() with reloaded key = (%q, %v)", got, err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key file: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("key file mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "encryption.key"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sealed, _ := c.Encrypt("secret")

	tampered := "A" + sealed[1:]
	if _, err := c.Decrypt(tampered); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt(tampered) error = %v, want ErrDecrypt", err)
	}
	if _, err := c.Decrypt("not base64!!"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("Decrypt(garbage) error = %v, want ErrDecrypt", err)
	}
}
