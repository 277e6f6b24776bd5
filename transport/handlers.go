package transport

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/zzstoatzz/statuswire/core"
)

func withActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

func actorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey).(string)
	return actor
}

type statusResponse struct {
	URI       string     `json:"uri"`
	AuthorDID string     `json:"author_did"`
	Status    string     `json:"status"`
	Text      string     `json:"text,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IndexedAt time.Time  `json:"indexed_at"`
	Hidden    bool       `json:"hidden"`
}

func toStatusResponse(record core.StatusRecord) statusResponse {
	return statusResponse{
		URI:       record.URI,
		AuthorDID: record.AuthorDID,
		Status:    record.Status,
		Text:      record.Text,
		StartedAt: record.StartedAt,
		ExpiresAt: record.ExpiresAt,
		IndexedAt: record.IndexedAt,
		Hidden:    record.Hidden,
	}
}

func toStatusResponses(records []core.StatusRecord) []statusResponse {
	out := make([]statusResponse, 0, len(records))
	for _, record := range records {
		out = append(out, toStatusResponse(record))
	}
	return out
}

type setStatusRequest struct {
	RKey      string     `json:"rkey"`
	Handle    string     `json:"handle,omitempty"`
	Status    string     `json:"status"`
	Text      string     `json:"text,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (a *api) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := a.decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	input := core.SetStatusInput{
		AuthorDID: actorFromContext(r.Context()),
		RKey:      req.RKey,
		Handle:    req.Handle,
		Status:    req.Status,
		Text:      req.Text,
		ExpiresAt: req.ExpiresAt,
	}
	if req.StartedAt != nil {
		input.StartedAt = *req.StartedAt
	}

	record, err := a.service.SetStatus(r.Context(), input)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toStatusResponse(record))
}

type clearStatusRequest struct {
	URI string `json:"uri"`
}

func (a *api) handleClearStatus(w http.ResponseWriter, r *http.Request) {
	var req clearStatusRequest
	if err := a.decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.service.ClearStatus(r.Context(), actorFromContext(r.Context()), req.URI); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type hideStatusRequest struct {
	URI    string `json:"uri"`
	Hidden bool   `json:"hidden"`
}

// handleHideStatus is the moderation toggle. The caller is trusted to have
// already decided who may moderate.
func (a *api) handleHideStatus(w http.ResponseWriter, r *http.Request) {
	var req hideStatusRequest
	if err := a.decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.service.HideStatus(r.Context(), req.URI, req.Hidden); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	uri := strings.TrimSpace(r.URL.Query().Get("uri"))
	if uri == "" {
		a.writeError(w, r, goerrors.New("transport: uri query parameter is required", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.StatuswireErrorBadInput))
		return
	}
	record, err := a.service.GetStatus(r.Context(), uri)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toStatusResponse(record))
}

func (a *api) handleListRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.service.ListRecentStatuses(r.Context(), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toStatusResponses(records))
}

func (a *api) handleListAuthor(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	records, err := a.service.ListAuthorStatuses(r.Context(), chi.URLParam(r, "did"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toStatusResponses(records))
}

type webhookResponse struct {
	ID                  string     `json:"id"`
	OwnerDID            string     `json:"owner_did"`
	URL                 string     `json:"url"`
	Secret              string     `json:"secret"`
	EventFilter         string     `json:"event_filter"`
	Active              bool       `json:"active"`
	LastDeliveryAt      *time.Time `json:"last_delivery_at,omitempty"`
	LastDeliverySuccess *bool      `json:"last_delivery_success,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// toWebhookResponse always renders the masked secret. The plaintext travels
// only in createWebhookResponse / rotateWebhookResponse, exactly once.
func toWebhookResponse(sub core.WebhookSubscription) webhookResponse {
	masked := core.MaskSubscription(sub)
	return webhookResponse{
		ID:                  masked.ID,
		OwnerDID:            masked.OwnerDID,
		URL:                 masked.URL,
		Secret:              masked.Secret,
		EventFilter:         masked.EventFilter,
		Active:              masked.Active,
		LastDeliveryAt:      masked.LastDeliveryAt,
		LastDeliverySuccess: masked.LastDeliverySuccess,
		CreatedAt:           masked.CreatedAt,
		UpdatedAt:           masked.UpdatedAt,
	}
}

type createWebhookRequest struct {
	URL         string `json:"url"`
	Secret      string `json:"secret,omitempty"`
	EventFilter string `json:"event_filter,omitempty"`
}

type createWebhookResponse struct {
	Webhook webhookResponse `json:"webhook"`
	Secret  string          `json:"secret"`
}

func (a *api) handleCreateWebhook(w http.ResponseWriter, r *http.Request) {
	var req createWebhookRequest
	if err := a.decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	sub, plaintext, err := a.service.CreateWebhook(r.Context(), core.CreateWebhookInput{
		OwnerDID:    actorFromContext(r.Context()),
		URL:         req.URL,
		Secret:      req.Secret,
		EventFilter: req.EventFilter,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, createWebhookResponse{
		Webhook: toWebhookResponse(sub),
		Secret:  plaintext,
	})
}

func (a *api) handleListWebhooks(w http.ResponseWriter, r *http.Request) {
	subs, err := a.service.ListWebhooks(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]webhookResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toWebhookResponse(sub))
	}
	a.writeJSON(w, http.StatusOK, out)
}

type updateWebhookRequest struct {
	URL         *string `json:"url,omitempty"`
	EventFilter *string `json:"event_filter,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

func (a *api) handleUpdateWebhook(w http.ResponseWriter, r *http.Request) {
	var req updateWebhookRequest
	if err := a.decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	sub, err := a.service.UpdateWebhook(r.Context(), core.UpdateWebhookInput{
		OwnerDID:    actorFromContext(r.Context()),
		ID:          chi.URLParam(r, "id"),
		URL:         req.URL,
		EventFilter: req.EventFilter,
		Active:      req.Active,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toWebhookResponse(sub))
}

type rotateWebhookResponse struct {
	Webhook webhookResponse `json:"webhook"`
	Secret  string          `json:"secret"`
}

func (a *api) handleRotateWebhook(w http.ResponseWriter, r *http.Request) {
	sub, plaintext, err := a.service.RotateWebhookSecret(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rotateWebhookResponse{
		Webhook: toWebhookResponse(sub),
		Secret:  plaintext,
	})
}

func (a *api) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteWebhook(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deliveryResponse struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	Status         string     `json:"status"`
	AttemptedAt    time.Time  `json:"attempted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ResponseStatus *int       `json:"response_status,omitempty"`
	ResponseBody   string     `json:"response_body,omitempty"`
	Success        bool       `json:"success"`
	RetryCount     int        `json:"retry_count"`
}

func toDeliveryResponse(attempt core.DeliveryAttempt) deliveryResponse {
	return deliveryResponse{
		ID:             attempt.ID,
		SubscriptionID: attempt.SubscriptionID,
		EventID:        attempt.EventID,
		EventType:      attempt.EventType,
		Status:         string(attempt.Status),
		AttemptedAt:    attempt.AttemptedAt,
		CompletedAt:    attempt.CompletedAt,
		ResponseStatus: attempt.ResponseStatus,
		ResponseBody:   attempt.ResponseBody,
		Success:        attempt.Success,
		RetryCount:     attempt.RetryCount,
	}
}

func (a *api) handleRecentDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, 0)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	attempts, err := a.service.RecentDeliveries(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]deliveryResponse, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, toDeliveryResponse(attempt))
	}
	a.writeJSON(w, http.StatusOK, out)
}

func (a *api) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	attempt, err := a.service.SendTestEvent(r.Context(), actorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toDeliveryResponse(attempt))
}
