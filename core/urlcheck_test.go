package core

import "testing"

func TestValidateWebhookURL_Production(t *testing.T) {
	valid := []string{
		"https://example.com/hooks/status",
		"https://hooks.example.com:8443/receive",
	}
	for _, raw := range valid {
		if err := ValidateWebhookURL(raw, true); err != nil {
			t.Fatalf("expected %q to be accepted: %v", raw, err)
		}
	}

	rejected := []string{
		"",
		"not a url at all\x7f",
		"/relative/path",
		"ftp://example.com/hooks",
		"http://example.com/hooks",
		"https://localhost/hooks",
		"https://LOCALHOST:9000/hooks",
		"https://127.0.0.1/hooks",
		"https://[::1]/hooks",
		"https://10.0.0.8/hooks",
		"https://192.168.1.20/hooks",
		"https://172.16.5.5/hooks",
		"https://169.254.1.1/hooks",
		"https://0.0.0.0/hooks",
		"https://224.0.0.1/hooks",
	}
	for _, raw := range rejected {
		if err := ValidateWebhookURL(raw, true); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestValidateWebhookURL_DevelopmentAllowsLocalTargets(t *testing.T) {
	valid := []string{
		"http://localhost:8080/hooks",
		"http://127.0.0.1:9999/receive",
		"https://example.com/hooks",
	}
	for _, raw := range valid {
		if err := ValidateWebhookURL(raw, false); err != nil {
			t.Fatalf("expected %q to be accepted in development: %v", raw, err)
		}
	}

	if err := ValidateWebhookURL("ftp://example.com", false); err == nil {
		t.Fatalf("expected non-http scheme to be rejected in development")
	}
	if err := ValidateWebhookURL("", false); err == nil {
		t.Fatalf("expected blank url to be rejected in development")
	}
}
