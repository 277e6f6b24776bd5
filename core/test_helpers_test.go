package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

type memoryStatusStore struct {
	mu   sync.Mutex
	rows map[string]StatusRecord
}

func newMemoryStatusStore() *memoryStatusStore {
	return &memoryStatusStore{rows: map[string]StatusRecord{}}
}

func (s *memoryStatusStore) Upsert(_ context.Context, record StatusRecord) (StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.rows[record.URI]
	s.rows[record.URI] = record
	return record, !exists, nil
}

func (s *memoryStatusStore) GetByURI(_ context.Context, uri string) (StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.rows[uri]
	if !ok {
		return StatusRecord{}, fmt.Errorf("status record not found")
	}
	return record, nil
}

func (s *memoryStatusStore) DeleteByURI(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, uri)
	return nil
}

func (s *memoryStatusStore) SetHidden(_ context.Context, uri string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.rows[uri]
	if !ok {
		return fmt.Errorf("status record not found")
	}
	record.Hidden = hidden
	s.rows[uri] = record
	return nil
}

func (s *memoryStatusStore) ListByAuthor(_ context.Context, did string, limit int) ([]StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusRecord, 0)
	for _, record := range s.rows {
		if record.AuthorDID == did && !record.Hidden {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndexedAt.After(out[j].IndexedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStatusStore) ListRecent(_ context.Context, limit int) ([]StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StatusRecord, 0, len(s.rows))
	for _, record := range s.rows {
		if !record.Hidden {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndexedAt.After(out[j].IndexedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memorySubscriptionStore struct {
	mu     sync.Mutex
	rows   map[string]WebhookSubscription
	nextID int
}

func newMemorySubscriptionStore() *memorySubscriptionStore {
	return &memorySubscriptionStore{rows: map[string]WebhookSubscription{}}
}

func (s *memorySubscriptionStore) Create(_ context.Context, in CreateSubscriptionInput) (WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	sub := WebhookSubscription{
		ID:          fmt.Sprintf("sub_%d", s.nextID),
		OwnerDID:    in.OwnerDID,
		URL:         in.URL,
		Secret:      in.Secret,
		EventFilter: in.EventFilter,
		Active:      in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.rows[sub.ID] = sub
	return sub, nil
}

func (s *memorySubscriptionStore) GetOwned(_ context.Context, ownerDID string, id string) (WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOwnedLocked(ownerDID, id)
}

func (s *memorySubscriptionStore) getOwnedLocked(ownerDID string, id string) (WebhookSubscription, error) {
	sub, ok := s.rows[id]
	if !ok || sub.OwnerDID != ownerDID {
		return WebhookSubscription{}, fmt.Errorf("subscription not found")
	}
	return sub, nil
}

func (s *memorySubscriptionStore) ListByOwner(_ context.Context, ownerDID string) ([]WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]WebhookSubscription, 0)
	for _, sub := range s.rows {
		if sub.OwnerDID == ownerDID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memorySubscriptionStore) Update(_ context.Context, in UpdateSubscriptionInput) (WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.getOwnedLocked(in.OwnerDID, in.ID)
	if err != nil {
		return WebhookSubscription{}, err
	}
	if in.URL != nil {
		sub.URL = *in.URL
	}
	if in.EventFilter != nil {
		sub.EventFilter = *in.EventFilter
	}
	if in.Active != nil {
		sub.Active = *in.Active
	}
	sub.UpdatedAt = time.Now().UTC()
	s.rows[sub.ID] = sub
	return sub, nil
}

func (s *memorySubscriptionStore) UpdateSecret(_ context.Context, ownerDID string, id string, secret string) (WebhookSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.getOwnedLocked(ownerDID, id)
	if err != nil {
		return WebhookSubscription{}, err
	}
	sub.Secret = secret
	sub.UpdatedAt = time.Now().UTC()
	s.rows[sub.ID] = sub
	return sub, nil
}

func (s *memorySubscriptionStore) Delete(_ context.Context, ownerDID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	if !ok || sub.OwnerDID != ownerDID {
		return nil
	}
	delete(s.rows, id)
	return nil
}

func (s *memorySubscriptionStore) MarkDelivery(_ context.Context, id string, at time.Time, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("subscription not found")
	}
	deliveredAt := at
	delivered := success
	sub.LastDeliveryAt = &deliveredAt
	sub.LastDeliverySuccess = &delivered
	s.rows[id] = sub
	return nil
}

type memoryDeliveryStore struct {
	mu    sync.Mutex
	rows  map[string]DeliveryAttempt
	order []string
}

func newMemoryDeliveryStore() *memoryDeliveryStore {
	return &memoryDeliveryStore{rows: map[string]DeliveryAttempt{}}
}

func (s *memoryDeliveryStore) Create(_ context.Context, attempt DeliveryAttempt) (DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[attempt.ID]; exists {
		return DeliveryAttempt{}, fmt.Errorf("delivery already exists")
	}
	s.rows[attempt.ID] = attempt
	s.order = append(s.order, attempt.ID)
	return attempt, nil
}

func (s *memoryDeliveryStore) RecordOutcome(_ context.Context, id string, outcome DeliveryOutcome) (DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.rows[id]
	if !ok {
		return DeliveryAttempt{}, fmt.Errorf("delivery not found")
	}
	target := DeliveryStatusFailed
	if outcome.Success {
		target = DeliveryStatusDelivered
	}
	if err := attempt.TransitionTo(target, outcome.CompletedAt); err != nil {
		return DeliveryAttempt{}, err
	}
	completedAt := outcome.CompletedAt
	attempt.Success = outcome.Success
	attempt.ResponseStatus = outcome.ResponseStatus
	attempt.ResponseBody = outcome.ResponseBody
	attempt.CompletedAt = &completedAt
	s.rows[id] = attempt
	return attempt, nil
}

func (s *memoryDeliveryStore) ListBySubscription(_ context.Context, subscriptionID string, limit int) ([]DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeliveryAttempt, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		attempt := s.rows[s.order[i]]
		if attempt.SubscriptionID != subscriptionID {
			continue
		}
		out = append(out, attempt)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type stubSender struct {
	mu       sync.Mutex
	requests []DeliveryRequest
	byURL    map[string]DeliveryResult
	fallback DeliveryResult
}

func (s *stubSender) Send(_ context.Context, req DeliveryRequest) DeliveryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if result, ok := s.byURL[req.URL]; ok {
		return result
	}
	return s.fallback
}

func (s *stubSender) sent() []DeliveryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DeliveryRequest(nil), s.requests...)
}

type captureEnqueuer struct {
	mu       sync.Mutex
	messages []*DispatchMessage
	fail     error
}

func (e *captureEnqueuer) Enqueue(_ context.Context, msg *DispatchMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return e.fail
	}
	e.messages = append(e.messages, msg)
	return nil
}

func (e *captureEnqueuer) enqueued() []*DispatchMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*DispatchMessage(nil), e.messages...)
}

type staticHandleResolver struct {
	handle string
	err    error
}

func (r staticHandleResolver) ResolveHandle(context.Context, string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.handle, nil
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type staticStoreProvider struct {
	status       StatusStore
	subscription SubscriptionStore
	delivery     DeliveryStore
}

func (p staticStoreProvider) StatusStore() StatusStore             { return p.status }
func (p staticStoreProvider) SubscriptionStore() SubscriptionStore { return p.subscription }
func (p staticStoreProvider) DeliveryStore() DeliveryStore         { return p.delivery }

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func strPtr(value string) *string { return &value }

func boolPtr(value bool) *bool { return &value }

func testServiceConfig() Config {
	cfg := DefaultConfig()
	cfg.Environment = EnvironmentDevelopment
	return cfg
}

func mustContain(t *testing.T, haystack string, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
