package storage

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("1. What is the capital of France?\n\n   A. Paris\n   B. Lyon")

	enc, err := encryptGCM(plaintext, "secret")
	if err != nil {
		t.Fatalf("encryptGCM: %v", err)
	}
	if !strings.HasPrefix(string(enc), encMagic) {
		t.Fatalf("missing magic prefix")
	}

	dec, err := decryptGCM(enc, "secret")
	if err != nil {
		t.Fatalf("decryptGCM: %v", err)
	}
	if !bytes.Equal(dec, plaintext) {
		t.Errorf("round trip mismatch: %q", dec)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	enc, err := encryptGCM([]byte("payload"), "right")
	if err != nil {
		t.Fatalf("encryptGCM: %v", err)
	}
	if _, err := decryptGCM(enc, "wrong"); err == nil {
		t.Fatal("expected auth failure with wrong password")
	}
}

func TestDecryptTruncatedPayload(t *testing.T) {
	if _, err := decryptGCM([]byte(encMagic+"short"), "pw"); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
