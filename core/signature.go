package core

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	SignatureHeader   = "X-Status-Signature"
	TimestampHeader   = "X-Status-Timestamp"
	EventIDHeader     = "X-Status-Event-Id"
	IdempotencyHeader = "Idempotency-Key"

	signatureBasePrefix = "v0"
	signatureVersion    = "v1"

	generatedSecretBytes = 32
)

// SignPayload computes the HMAC-SHA256 signature a receiver must reproduce to
// trust a delivery. The signing base is "v0:<unix seconds>:<payload>" and the
// result carries a "v1=" scheme prefix so the format can evolve without
// breaking existing receivers.
func SignPayload(secret string, timestamp int64, payload []byte) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("core: signing secret is required")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signatureBasePrefix))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(":"))
	mac.Write(payload)
	return signatureVersion + "=" + hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature reports whether a presented signature matches the payload.
// Comparison is constant time.
func VerifySignature(secret string, timestamp int64, payload []byte, signature string) bool {
	expected, err := SignPayload(secret, timestamp, payload)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// GenerateSecret returns a hex-encoded 256-bit key for new subscriptions.
func GenerateSecret() (string, error) {
	buf := make([]byte, generatedSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("core: generate webhook secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
