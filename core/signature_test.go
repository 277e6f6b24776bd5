package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestSignPayload_MatchesCanonicalForm(t *testing.T) {
	secret := "test-secret"
	payload := []byte(`{"type":"status.created"}`)
	timestamp := int64(1717243200)

	signature, err := SignPayload(secret, timestamp, payload)
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	if !strings.HasPrefix(signature, "v1=") {
		t.Fatalf("expected v1 scheme prefix, got %q", signature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:1717243200:"))
	mac.Write(payload)
	expected := "v1=" + hex.EncodeToString(mac.Sum(nil))
	if signature != expected {
		t.Fatalf("signature mismatch:\n got %q\nwant %q", signature, expected)
	}
}

func TestSignPayload_RequiresSecret(t *testing.T) {
	if _, err := SignPayload("  ", 1, []byte("x")); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestVerifySignature_RoundTripAndTamper(t *testing.T) {
	secret := "another-secret"
	payload := []byte(`{"emoji":"🎉"}`)
	timestamp := int64(1717243300)

	signature, err := SignPayload(secret, timestamp, payload)
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	if !VerifySignature(secret, timestamp, payload, signature) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature(secret, timestamp, []byte(`{"emoji":"💥"}`), signature) {
		t.Fatalf("tampered payload must not verify")
	}
	if VerifySignature(secret, timestamp+1, payload, signature) {
		t.Fatalf("shifted timestamp must not verify")
	}
	if VerifySignature("wrong-secret", timestamp, payload, signature) {
		t.Fatalf("wrong secret must not verify")
	}
}

func TestGenerateSecret_HexEncoded256Bits(t *testing.T) {
	first, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
	if _, err := hex.DecodeString(first); err != nil {
		t.Fatalf("expected hex encoding: %v", err)
	}

	second, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct secrets")
	}
}
