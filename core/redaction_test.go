package core

import "testing"

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":             "****",
		"abcd":         "****",
		"abcde":        "****bcde",
		"a1b2c3d4e5f6": "****e5f6",
	}
	for secret, want := range cases {
		if got := MaskSecret(secret); got != want {
			t.Fatalf("MaskSecret(%q) = %q, want %q", secret, got, want)
		}
	}
}

func TestMaskSubscription_OnlyTouchesSecret(t *testing.T) {
	sub := WebhookSubscription{
		ID:       "sub_1",
		OwnerDID: "did:plc:owner",
		URL:      "https://example.com/hooks",
		Secret:   "deadbeefcafe",
	}
	masked := MaskSubscription(sub)
	if masked.Secret != "****cafe" {
		t.Fatalf("unexpected masked secret: %q", masked.Secret)
	}
	if masked.ID != sub.ID || masked.URL != sub.URL || masked.OwnerDID != sub.OwnerDID {
		t.Fatalf("masking must not alter other fields: %+v", masked)
	}
	if sub.Secret != "deadbeefcafe" {
		t.Fatalf("original subscription must stay untouched")
	}
}

func TestRedactSensitiveMap(t *testing.T) {
	redacted := RedactSensitiveMap(map[string]any{
		"owner_did":     "did:plc:owner",
		"event_id":      "evt_1",
		"webhook_secret": "super-secret",
		"authorization": "Bearer abc",
		"nested": map[string]any{
			"api_key": "key123",
			"uri":     "at://did:plc:owner/io.zzstoatzz.status.record/1",
		},
		"items": []any{
			map[string]any{"token": "tok"},
			"plain",
		},
	})

	if redacted["owner_did"] != "did:plc:owner" {
		t.Fatalf("traceability keys must survive: %+v", redacted)
	}
	if redacted["webhook_secret"] != RedactedValue {
		t.Fatalf("expected webhook_secret to be redacted")
	}
	if redacted["authorization"] != RedactedValue {
		t.Fatalf("expected authorization to be redacted")
	}

	nested, ok := redacted["nested"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested map, got %T", redacted["nested"])
	}
	if nested["api_key"] != RedactedValue {
		t.Fatalf("expected nested api_key to be redacted")
	}
	if nested["uri"] == RedactedValue {
		t.Fatalf("nested uri must survive")
	}

	items, ok := redacted["items"].([]any)
	if !ok || len(items) != 2 {
		t.Fatalf("expected items slice to survive, got %+v", redacted["items"])
	}
	inner, ok := items[0].(map[string]any)
	if !ok || inner["token"] != RedactedValue {
		t.Fatalf("expected token inside slice to be redacted")
	}
}
