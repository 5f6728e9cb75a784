package crypto

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("test-key")
	plaintext := []byte(`{"items":[{"product_id":"p-42","quantity":1}]}`)

	ciphertext, err := Encrypt(plaintext, key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if ciphertext == string(plaintext) {
		t.Error("ciphertext should not equal plaintext")
	}

	decrypted, err := Decrypt(ciphertext, key)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", decrypted, plaintext)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ciphertext, err := Encrypt([]byte("secret"), []byte("key-a"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := Decrypt(ciphertext, []byte("key-b")); err != ErrInvalidCiphertext {
		t.Errorf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestDecryptGarbage(t *testing.T) {
	if _, err := Decrypt("not base64 at all!!!", []byte("key")); err != ErrInvalidCiphertext {
		t.Errorf("expected ErrInvalidCiphertext for garbage input, got %v", err)
	}
}

func TestEncryptEmptyKey(t *testing.T) {
	if _, err := Encrypt([]byte("data"), nil); err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestEncryptNondeterministic(t *testing.T) {
	key := []byte("key")
	a, err := Encrypt([]byte("same input"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := Encrypt([]byte("same input"), key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	// Random nonce: identical plaintexts must not produce identical ciphertexts.
	if a == b {
		t.Error("two encryptions of the same plaintext produced identical output")
	}
}

func TestDeriveKey(t *testing.T) {
	a := DeriveKey("machine-1")
	b := DeriveKey("machine-1")
	c := DeriveKey("machine-2")

	if len(a) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Error("DeriveKey is not deterministic for the same machine id")
	}
	if bytes.Equal(a, c) {
		t.Error("different machine ids derived the same key")
	}
}

func TestEncryptStringDecryptString(t *testing.T) {
	ciphertext, err := EncryptString("hello", "pass")
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	plain, err := DecryptString(ciphertext, "pass")
	if err != nil {
		t.Fatalf("DecryptString failed: %v", err)
	}
	if plain != "hello" {
		t.Errorf("expected %q, got %q", "hello", plain)
	}

	if _, err := EncryptString("x", ""); err != ErrInvalidKey {
		t.Errorf("expected ErrInvalidKey for empty key, got %v", err)
	}
}
