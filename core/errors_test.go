package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestStatuswireErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := statuswireErrorMapper(stderrors.New("core: status record not found"))
	if mapped.TextCode != StatuswireErrorNotFound {
		t.Fatalf("expected not found text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected 404 code, got %d", mapped.Code)
	}

	mapped = statuswireErrorMapper(stderrors.New("core: webhook url must use https"))
	if mapped.TextCode != StatuswireErrorInvalidURL {
		t.Fatalf("expected invalid url code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", mapped.Category)
	}

	mapped = statuswireErrorMapper(stderrors.New("core: unknown event type: \"status.vanished\""))
	if mapped.TextCode != StatuswireErrorUnknownEvent {
		t.Fatalf("expected unknown event code, got %q", mapped.TextCode)
	}

	mapped = statuswireErrorMapper(stderrors.New("core: dispatch queue is full"))
	if mapped.TextCode != StatuswireErrorQueueFull {
		t.Fatalf("expected queue full code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryRateLimit {
		t.Fatalf("expected rate limit category, got %q", mapped.Category)
	}

	mapped = statuswireErrorMapper(stderrors.New("firehose: decode commit record: unexpected end of JSON input"))
	if mapped.TextCode != StatuswireErrorDecodeFailed {
		t.Fatalf("expected decode failed code, got %q", mapped.TextCode)
	}

	mapped = statuswireErrorMapper(stderrors.New("core: invalid delivery status transition: delivered -> failed"))
	if mapped.TextCode != StatuswireErrorDeliveryStale {
		t.Fatalf("expected delivery finalized code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryConflict {
		t.Fatalf("expected conflict category, got %q", mapped.Category)
	}

	mapped = statuswireErrorMapper(stderrors.New("core: owner did is required"))
	if mapped.TextCode != StatuswireErrorBadInput {
		t.Fatalf("expected bad input code, got %q", mapped.TextCode)
	}
}

func TestStatuswireErrorMapper_PreservesExistingEnvelope(t *testing.T) {
	original := goerrors.New("subscription not found", goerrors.CategoryNotFound).
		WithTextCode("STATUSWIRE_NOT_FOUND")

	mapped := statuswireErrorMapper(original)
	if mapped.TextCode != StatuswireErrorNotFound {
		t.Fatalf("expected preserved text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected envelope to fill http code, got %d", mapped.Code)
	}
}

func TestEnsureStatuswireErrorEnvelope_FillsInternalDefaults(t *testing.T) {
	err := ensureStatuswireErrorEnvelope(goerrors.New("", goerrors.CategoryInternal))
	if err.Message != "An unexpected error occurred" {
		t.Fatalf("expected default internal message, got %q", err.Message)
	}
	if err.TextCode != StatuswireErrorInternal {
		t.Fatalf("expected internal text code, got %q", err.TextCode)
	}
	if err.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 code, got %d", err.Code)
	}
}
