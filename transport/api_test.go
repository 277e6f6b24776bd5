package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/zzstoatzz/statuswire/core"
)

func TestNewHandlerRequiresService(t *testing.T) {
	if _, err := NewHandler(Deps{}); err == nil {
		t.Fatalf("expected error for missing service")
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body map[string]string
	decodeTestBody(t, recorder, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body %#v", body)
	}
}

func TestCursorEndpointReportsSnapshot(t *testing.T) {
	service := &stubService{}
	handler, err := NewHandler(Deps{
		Service: service,
		Cursor: func() core.CursorSnapshot {
			return core.CursorSnapshot{TimeUS: 42, Processed: 7, Skipped: 1}
		},
	})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/cursor", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body cursorResponse
	decodeTestBody(t, recorder, &body)
	if body.TimeUS != 42 || body.Processed != 7 || body.Skipped != 1 {
		t.Fatalf("unexpected cursor body %#v", body)
	}
}

func TestMissingActorHeaderIsRejected(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/webhooks", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	var body errorResponse
	decodeTestBody(t, recorder, &body)
	if body.Error.Code != core.StatuswireErrorBadInput {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
}

func TestCreateWebhookReturnsPlaintextSecretOnce(t *testing.T) {
	service := &stubService{
		createWebhookResult: core.WebhookSubscription{
			ID:          "hook-1",
			OwnerDID:    "did:plc:owner",
			URL:         "https://example.com/hook",
			Secret:      "super-secret-material",
			EventFilter: "*",
			Active:      true,
		},
		createWebhookSecret: "super-secret-material",
	}
	handler := newTestHandler(t, service)

	request := httptest.NewRequest(http.MethodPost, "/webhooks",
		strings.NewReader(`{"url":"https://example.com/hook","event_filter":"*"}`))
	request.Header.Set(ActorHeader, "did:plc:owner")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if service.createWebhookInput.OwnerDID != "did:plc:owner" {
		t.Fatalf("expected actor as owner, got %q", service.createWebhookInput.OwnerDID)
	}
	if service.createWebhookInput.URL != "https://example.com/hook" {
		t.Fatalf("unexpected url %q", service.createWebhookInput.URL)
	}

	var body createWebhookResponse
	decodeTestBody(t, recorder, &body)
	if body.Secret != "super-secret-material" {
		t.Fatalf("expected plaintext secret in create response, got %q", body.Secret)
	}
	if strings.Contains(body.Webhook.Secret, "super-secret-mater") {
		t.Fatalf("webhook view must carry the masked secret, got %q", body.Webhook.Secret)
	}
	if !strings.HasSuffix(body.Webhook.Secret, "rial") {
		t.Fatalf("masked secret should keep the last 4 chars, got %q", body.Webhook.Secret)
	}
}

func TestListWebhooksMasksSecrets(t *testing.T) {
	service := &stubService{
		listWebhooksResult: []core.WebhookSubscription{{
			ID:       "hook-1",
			OwnerDID: "did:plc:owner",
			URL:      "https://example.com/hook",
			Secret:   "0123456789abcdef",
			Active:   true,
		}},
	}
	handler := newTestHandler(t, service)

	request := httptest.NewRequest(http.MethodGet, "/webhooks", nil)
	request.Header.Set(ActorHeader, "did:plc:owner")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	var body []webhookResponse
	decodeTestBody(t, recorder, &body)
	if len(body) != 1 {
		t.Fatalf("expected one webhook, got %d", len(body))
	}
	if body[0].Secret != "****cdef" {
		t.Fatalf("expected masked secret, got %q", body[0].Secret)
	}
}

func TestServiceErrorEnvelopeDrivesStatusAndCode(t *testing.T) {
	service := &stubService{
		updateWebhookErr: goerrors.New("webhook subscription not found", goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(core.StatuswireErrorNotFound),
	}
	handler := newTestHandler(t, service)

	request := httptest.NewRequest(http.MethodPatch, "/webhooks/hook-9",
		strings.NewReader(`{"active":false}`))
	request.Header.Set(ActorHeader, "did:plc:intruder")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
	var body errorResponse
	decodeTestBody(t, recorder, &body)
	if body.Error.Code != core.StatuswireErrorNotFound {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
	if service.updateWebhookInput.OwnerDID != "did:plc:intruder" {
		t.Fatalf("expected actor forwarded, got %q", service.updateWebhookInput.OwnerDID)
	}
	if service.updateWebhookInput.Active == nil || *service.updateWebhookInput.Active {
		t.Fatalf("expected active=false forwarded")
	}
}

func TestSetStatusUsesActorAsAuthor(t *testing.T) {
	expires := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := &stubService{
		setStatusResult: core.StatusRecord{
			URI:       "at://did:plc:owner/io.zzstoatzz.status.record/3k2x9",
			AuthorDID: "did:plc:owner",
			Status:    "🚀",
			Text:      "shipping",
		},
	}
	handler := newTestHandler(t, service)

	request := httptest.NewRequest(http.MethodPost, "/statuses",
		strings.NewReader(`{"rkey":"3k2x9","status":"🚀","text":"shipping","expires_at":"2026-09-01T12:00:00Z"}`))
	request.Header.Set(ActorHeader, "did:plc:owner")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if service.setStatusInput.AuthorDID != "did:plc:owner" {
		t.Fatalf("expected actor as author, got %q", service.setStatusInput.AuthorDID)
	}
	if service.setStatusInput.ExpiresAt == nil || !service.setStatusInput.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry forwarded, got %#v", service.setStatusInput.ExpiresAt)
	}
	var body statusResponse
	decodeTestBody(t, recorder, &body)
	if body.Status != "🚀" || body.Text != "shipping" {
		t.Fatalf("unexpected status body %#v", body)
	}
}

func TestGetStatusRequiresURI(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/statuses/lookup", nil))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestRecentDeliveriesForwardsLimit(t *testing.T) {
	service := &stubService{
		recentDeliveriesResult: []core.DeliveryAttempt{{
			ID:             "attempt-1",
			SubscriptionID: "hook-1",
			EventID:        "evt-1",
			EventType:      "status.created",
			Status:         core.DeliveryStatusDelivered,
			Success:        true,
		}},
	}
	handler := newTestHandler(t, service)

	request := httptest.NewRequest(http.MethodGet, "/webhooks/hook-1/deliveries?limit=5", nil)
	request.Header.Set(ActorHeader, "did:plc:owner")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if service.recentDeliveriesLimit != 5 {
		t.Fatalf("expected limit 5, got %d", service.recentDeliveriesLimit)
	}
	if service.recentDeliveriesID != "hook-1" {
		t.Fatalf("expected subscription id forwarded, got %q", service.recentDeliveriesID)
	}

	var body []deliveryResponse
	decodeTestBody(t, recorder, &body)
	if len(body) != 1 || body[0].Status != "delivered" {
		t.Fatalf("unexpected deliveries body %#v", body)
	}
}

func TestBadLimitIsRejected(t *testing.T) {
	handler := newTestHandler(t, &stubService{})

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/statuses/recent?limit=zero", nil))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func newTestHandler(t *testing.T, service core.StatusService) http.Handler {
	t.Helper()
	handler, err := NewHandler(Deps{Service: service})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func decodeTestBody(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(recorder.Body).Decode(target); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

type stubService struct {
	setStatusInput  core.SetStatusInput
	setStatusResult core.StatusRecord

	createWebhookInput  core.CreateWebhookInput
	createWebhookResult core.WebhookSubscription
	createWebhookSecret string

	updateWebhookInput core.UpdateWebhookInput
	updateWebhookErr   error

	listWebhooksResult []core.WebhookSubscription

	recentDeliveriesID     string
	recentDeliveriesLimit  int
	recentDeliveriesResult []core.DeliveryAttempt
}

func (s *stubService) SetStatus(_ context.Context, in core.SetStatusInput) (core.StatusRecord, error) {
	s.setStatusInput = in
	return s.setStatusResult, nil
}

func (s *stubService) ClearStatus(context.Context, string, string) error { return nil }

func (s *stubService) HideStatus(context.Context, string, bool) error { return nil }

func (s *stubService) GetStatus(context.Context, string) (core.StatusRecord, error) {
	return core.StatusRecord{}, nil
}

func (s *stubService) ListAuthorStatuses(context.Context, string, int) ([]core.StatusRecord, error) {
	return nil, nil
}

func (s *stubService) ListRecentStatuses(context.Context, int) ([]core.StatusRecord, error) {
	return nil, nil
}

func (s *stubService) CreateWebhook(_ context.Context, in core.CreateWebhookInput) (core.WebhookSubscription, string, error) {
	s.createWebhookInput = in
	return s.createWebhookResult, s.createWebhookSecret, nil
}

func (s *stubService) UpdateWebhook(_ context.Context, in core.UpdateWebhookInput) (core.WebhookSubscription, error) {
	s.updateWebhookInput = in
	if s.updateWebhookErr != nil {
		return core.WebhookSubscription{}, s.updateWebhookErr
	}
	return core.WebhookSubscription{}, nil
}

func (s *stubService) RotateWebhookSecret(context.Context, string, string) (core.WebhookSubscription, string, error) {
	return core.WebhookSubscription{}, "", nil
}

func (s *stubService) DeleteWebhook(context.Context, string, string) error { return nil }

func (s *stubService) ListWebhooks(context.Context, string) ([]core.WebhookSubscription, error) {
	return s.listWebhooksResult, nil
}

func (s *stubService) RecentDeliveries(_ context.Context, _ string, id string, limit int) ([]core.DeliveryAttempt, error) {
	s.recentDeliveriesID = id
	s.recentDeliveriesLimit = limit
	return s.recentDeliveriesResult, nil
}

func (s *stubService) SendTestEvent(context.Context, string, string) (core.DeliveryAttempt, error) {
	return core.DeliveryAttempt{}, nil
}

var _ core.StatusService = (*stubService)(nil)
