package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateWebhook registers a delivery target for the owner. The plaintext
// secret is returned exactly once here; every later read sees the masked
// form. When the caller supplies no secret a fresh one is generated.
func (s *Service) CreateWebhook(ctx context.Context, in CreateWebhookInput) (sub WebhookSubscription, plaintext string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did": in.OwnerDID,
	}
	defer func() {
		if sub.ID != "" {
			fields["subscription_id"] = sub.ID
		}
		s.observeOperation(ctx, startedAt, "create_webhook", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return WebhookSubscription{}, "", err
	}
	ownerDID := strings.TrimSpace(in.OwnerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return WebhookSubscription{}, "", err
	}
	if err = ValidateWebhookURL(in.URL, s.config.IsProduction()); err != nil {
		err = s.mapError(err)
		return WebhookSubscription{}, "", err
	}
	filter, filterErr := NormalizeEventFilter(in.EventFilter)
	if filterErr != nil {
		err = s.mapError(filterErr)
		return WebhookSubscription{}, "", err
	}

	secret := strings.TrimSpace(in.Secret)
	if secret == "" {
		secret, err = GenerateSecret()
		if err != nil {
			err = s.mapError(err)
			return WebhookSubscription{}, "", err
		}
	}

	created, createErr := s.subscriptionStore.Create(ctx, CreateSubscriptionInput{
		OwnerDID:    ownerDID,
		URL:         strings.TrimSpace(in.URL),
		Secret:      secret,
		EventFilter: filter,
		Active:      true,
	})
	if createErr != nil {
		err = s.mapError(createErr)
		return WebhookSubscription{}, "", err
	}

	sub = MaskSubscription(created)
	return sub, secret, nil
}

func (s *Service) UpdateWebhook(ctx context.Context, in UpdateWebhookInput) (sub WebhookSubscription, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did":       in.OwnerDID,
		"subscription_id": in.ID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "update_webhook", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return WebhookSubscription{}, err
	}
	ownerDID := strings.TrimSpace(in.OwnerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return WebhookSubscription{}, err
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return WebhookSubscription{}, err
	}

	update := UpdateSubscriptionInput{OwnerDID: ownerDID, ID: id, Active: in.Active}
	if in.URL != nil {
		if err = ValidateWebhookURL(*in.URL, s.config.IsProduction()); err != nil {
			err = s.mapError(err)
			return WebhookSubscription{}, err
		}
		trimmed := strings.TrimSpace(*in.URL)
		update.URL = &trimmed
	}
	if in.EventFilter != nil {
		filter, filterErr := NormalizeEventFilter(*in.EventFilter)
		if filterErr != nil {
			err = s.mapError(filterErr)
			return WebhookSubscription{}, err
		}
		update.EventFilter = &filter
	}

	updated, updateErr := s.subscriptionStore.Update(ctx, update)
	if updateErr != nil {
		err = s.mapError(updateErr)
		return WebhookSubscription{}, err
	}

	sub = MaskSubscription(updated)
	return sub, nil
}

// RotateWebhookSecret replaces the HMAC key and reveals the new plaintext
// once. The old secret stops validating immediately.
func (s *Service) RotateWebhookSecret(ctx context.Context, ownerDID string, id string) (sub WebhookSubscription, plaintext string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did":       ownerDID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "rotate_webhook_secret", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return WebhookSubscription{}, "", err
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return WebhookSubscription{}, "", err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return WebhookSubscription{}, "", err
	}

	secret, secretErr := GenerateSecret()
	if secretErr != nil {
		err = s.mapError(secretErr)
		return WebhookSubscription{}, "", err
	}

	updated, updateErr := s.subscriptionStore.UpdateSecret(ctx, ownerDID, id, secret)
	if updateErr != nil {
		err = s.mapError(updateErr)
		return WebhookSubscription{}, "", err
	}

	sub = MaskSubscription(updated)
	return sub, secret, nil
}

func (s *Service) DeleteWebhook(ctx context.Context, ownerDID string, id string) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did":       ownerDID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "delete_webhook", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return err
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return err
	}

	if deleteErr := s.subscriptionStore.Delete(ctx, ownerDID, id); deleteErr != nil {
		err = s.mapError(deleteErr)
		return err
	}
	return nil
}

func (s *Service) ListWebhooks(ctx context.Context, ownerDID string) (subs []WebhookSubscription, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did": ownerDID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "list_webhooks", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return nil, err
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return nil, err
	}

	listed, listErr := s.subscriptionStore.ListByOwner(ctx, ownerDID)
	if listErr != nil {
		err = s.mapError(listErr)
		return nil, err
	}

	subs = make([]WebhookSubscription, 0, len(listed))
	for _, sub := range listed {
		subs = append(subs, MaskSubscription(sub))
	}
	return subs, nil
}

// RecentDeliveries lists the newest ledger rows for one of the owner's
// subscriptions. Asking about a subscription the owner does not hold reports
// not found, the same as asking about one that never existed.
func (s *Service) RecentDeliveries(ctx context.Context, ownerDID string, id string, limit int) (attempts []DeliveryAttempt, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did":       ownerDID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "recent_deliveries", err, fields)
	}()

	if s.subscriptionStore == nil || s.deliveryStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription and delivery stores are required"))
		return nil, err
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return nil, err
	}

	if _, ownErr := s.subscriptionStore.GetOwned(ctx, ownerDID, id); ownErr != nil {
		err = s.mapError(ownErr)
		return nil, err
	}

	attempts, err = s.deliveryStore.ListBySubscription(ctx, id, s.clampRecentLimit(limit))
	if err != nil {
		err = s.mapError(err)
		return nil, err
	}
	return attempts, nil
}

// SendTestEvent pushes a synthetic created event through the full signing and
// delivery path so owners can verify their receiver end to end.
func (s *Service) SendTestEvent(ctx context.Context, ownerDID string, id string) (attempt DeliveryAttempt, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner_did":       ownerDID,
		"subscription_id": id,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "send_test_event", err, fields)
	}()

	if s.subscriptionStore == nil {
		err = s.mapError(fmt.Errorf("core: subscription store is required"))
		return DeliveryAttempt{}, err
	}
	if s.dispatcher == nil {
		err = s.mapError(fmt.Errorf("core: dispatcher is required"))
		return DeliveryAttempt{}, err
	}
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		err = s.mapError(fmt.Errorf("core: owner did is required"))
		return DeliveryAttempt{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		err = s.mapError(fmt.Errorf("core: subscription id is required"))
		return DeliveryAttempt{}, err
	}

	sub, getErr := s.subscriptionStore.GetOwned(ctx, ownerDID, id)
	if getErr != nil {
		err = s.mapError(getErr)
		return DeliveryAttempt{}, err
	}

	uri, uriErr := MakeRecordURI(ownerDID, StatusCollectionNSID, "test")
	if uriErr != nil {
		err = s.mapError(uriErr)
		return DeliveryAttempt{}, err
	}

	event := WebhookEvent{
		Type:      EventStatusCreated,
		UserDID:   ownerDID,
		Emoji:     "✅",
		Text:      "statuswire test delivery",
		StatusURI: uri,
		Timestamp: s.now(),
		EventID:   uuid.NewString(),
		Schema:    WebhookEventSchema,
	}
	if s.handleResolver != nil {
		if handle, resolveErr := s.handleResolver.ResolveHandle(ctx, ownerDID); resolveErr == nil {
			event.Handle = handle
		}
	}

	attempt, err = s.dispatcher.DeliverTo(ctx, sub, event)
	if err != nil {
		err = s.mapError(err)
		return DeliveryAttempt{}, err
	}
	return attempt, nil
}

func (s *Service) clampRecentLimit(limit int) int {
	max := s.config.Ledger.RecentLimit
	if max < 1 {
		max = DefaultConfig().Ledger.RecentLimit
	}
	if limit < 1 || limit > max {
		return max
	}
	return limit
}
