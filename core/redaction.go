package core

import "strings"

const RedactedValue = "[REDACTED]"

const maskedSecretPrefix = "****"

// MaskSecret hides everything but the last four characters of HMAC key
// material. Short secrets collapse to the mask alone so their length is not
// recoverable either.
func MaskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if len(secret) <= 4 {
		return maskedSecretPrefix
	}
	return maskedSecretPrefix + secret[len(secret)-4:]
}

// MaskSubscription returns a copy safe for reads outside create/rotate.
func MaskSubscription(sub WebhookSubscription) WebhookSubscription {
	sub.Secret = MaskSecret(sub.Secret)
	return sub
}

func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	sensitiveTokens := []string{
		"password",
		"secret",
		"token",
		"authorization",
		"api_key",
		"apikey",
		"credential",
		"signature",
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "owner_did",
		"author_did",
		"subscription_id",
		"event_id",
		"event_type",
		"uri",
		"idempotency_key",
		"trace_id",
		"request_id":
		return true
	default:
		return false
	}
}
