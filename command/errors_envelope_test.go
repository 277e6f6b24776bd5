package command

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/zzstoatzz/statuswire/core"
)

func TestSetStatusMessage_ValidateReturnsRichError(t *testing.T) {
	err := (SetStatusMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.StatuswireErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.StatuswireErrorBadInput, rich.TextCode)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected %d code, got %d", http.StatusBadRequest, rich.Code)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 {
		t.Fatalf("expected validation errors in envelope")
	}
	if validation[0].Field != "author_did" {
		t.Fatalf("expected author_did validation field, got %q", validation[0].Field)
	}
}

func TestSetStatusCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *SetStatusCommand
	err := cmd.Execute(context.Background(), SetStatusMessage{})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.StatuswireErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.StatuswireErrorInternal, rich.TextCode)
	}
}
