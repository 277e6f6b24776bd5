package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	StatuswireErrorBadInput      = "STATUSWIRE_BAD_INPUT"
	StatuswireErrorNotFound      = "STATUSWIRE_NOT_FOUND"
	StatuswireErrorInvalidURL    = "STATUSWIRE_INVALID_URL"
	StatuswireErrorUnknownEvent  = "STATUSWIRE_UNKNOWN_EVENT"
	StatuswireErrorQueueFull     = "STATUSWIRE_QUEUE_FULL"
	StatuswireErrorDecodeFailed  = "STATUSWIRE_DECODE_FAILED"
	StatuswireErrorDeliveryStale = "STATUSWIRE_DELIVERY_FINALIZED"
	StatuswireErrorInternal      = "STATUSWIRE_INTERNAL_ERROR"
)

func statuswireErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureStatuswireErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newStatuswireError(err.Error(), goerrors.CategoryNotFound, StatuswireErrorNotFound)
	case strings.Contains(msg, "webhook url"):
		return newStatuswireError(err.Error(), goerrors.CategoryBadInput, StatuswireErrorInvalidURL)
	case strings.Contains(msg, "unknown event type"):
		return newStatuswireError(err.Error(), goerrors.CategoryBadInput, StatuswireErrorUnknownEvent)
	case strings.Contains(msg, "queue is full"):
		return newStatuswireError(err.Error(), goerrors.CategoryRateLimit, StatuswireErrorQueueFull)
	case strings.Contains(msg, "decode"), strings.Contains(msg, "malformed"):
		return newStatuswireError(err.Error(), goerrors.CategoryBadInput, StatuswireErrorDecodeFailed)
	case strings.Contains(msg, "delivery status transition"):
		return newStatuswireError(err.Error(), goerrors.CategoryConflict, StatuswireErrorDeliveryStale)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newStatuswireError(err.Error(), goerrors.CategoryBadInput, StatuswireErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureStatuswireErrorEnvelope(mapped)
}

func newStatuswireError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureStatuswireErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureStatuswireErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = statuswireHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultStatuswireTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultStatuswireTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return StatuswireErrorBadInput
	case goerrors.CategoryNotFound:
		return StatuswireErrorNotFound
	case goerrors.CategoryConflict:
		return StatuswireErrorDeliveryStale
	case goerrors.CategoryRateLimit:
		return StatuswireErrorQueueFull
	default:
		return StatuswireErrorInternal
	}
}

func statuswireHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
