package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/zzstoatzz/statuswire/core"
)

const subscriptionCacheKeyPrefix = "statuswire::webhook_subscriptions::v1"

// CachedSubscriptionStore fronts owner-list reads with a cache. The
// dispatcher lists an owner's subscriptions on every firehose event, so that
// read is the one worth caching; every owner-scoped mutation invalidates the
// owner's entry. MarkDelivery carries no owner did, so delivery metadata in
// a cached list refreshes on TTL rather than invalidation.
type CachedSubscriptionStore struct {
	base  core.SubscriptionStore
	cache repositorycache.CacheService
}

func NewCachedSubscriptionStore(
	base core.SubscriptionStore,
	cacheService repositorycache.CacheService,
) (*CachedSubscriptionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base subscription store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: subscription cache service is required")
	}
	return &CachedSubscriptionStore{base: base, cache: cacheService}, nil
}

// SubscriptionCacheKey returns the deterministic cache key for an owner's
// subscription list: statuswire::webhook_subscriptions::v1::<owner_did>
// with the owner segment URL-path escaped.
func SubscriptionCacheKey(ownerDID string) (string, error) {
	ownerDID = strings.TrimSpace(ownerDID)
	if ownerDID == "" {
		return "", fmt.Errorf("sqlstore: owner did is required")
	}
	return subscriptionCacheKeyPrefix + "::" + url.PathEscape(ownerDID), nil
}

func (s *CachedSubscriptionStore) Create(ctx context.Context, in core.CreateSubscriptionInput) (core.WebhookSubscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	created, err := s.base.Create(ctx, in)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	if err := s.invalidateOwner(ctx, created.OwnerDID); err != nil {
		return core.WebhookSubscription{}, err
	}
	return created, nil
}

func (s *CachedSubscriptionStore) GetOwned(ctx context.Context, ownerDID string, id string) (core.WebhookSubscription, error) {
	if s == nil || s.base == nil {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	return s.base.GetOwned(ctx, ownerDID, id)
}

func (s *CachedSubscriptionStore) ListByOwner(ctx context.Context, ownerDID string) ([]core.WebhookSubscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return nil, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	ownerDID = strings.TrimSpace(ownerDID)
	cacheKey, err := SubscriptionCacheKey(ownerDID)
	if err != nil {
		return nil, err
	}

	subs, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) ([]core.WebhookSubscription, error) {
		fetched, fetchErr := s.base.ListByOwner(ctx, ownerDID)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return cloneSubscriptions(fetched), nil
	})
	if err != nil {
		return nil, err
	}
	return cloneSubscriptions(subs), nil
}

func (s *CachedSubscriptionStore) Update(ctx context.Context, in core.UpdateSubscriptionInput) (core.WebhookSubscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	updated, err := s.base.Update(ctx, in)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	if err := s.invalidateOwner(ctx, updated.OwnerDID); err != nil {
		return core.WebhookSubscription{}, err
	}
	return updated, nil
}

func (s *CachedSubscriptionStore) UpdateSecret(ctx context.Context, ownerDID string, id string, secret string) (core.WebhookSubscription, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.WebhookSubscription{}, fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	updated, err := s.base.UpdateSecret(ctx, ownerDID, id, secret)
	if err != nil {
		return core.WebhookSubscription{}, err
	}
	if err := s.invalidateOwner(ctx, updated.OwnerDID); err != nil {
		return core.WebhookSubscription{}, err
	}
	return updated, nil
}

func (s *CachedSubscriptionStore) Delete(ctx context.Context, ownerDID string, id string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	if err := s.base.Delete(ctx, ownerDID, id); err != nil {
		return err
	}
	return s.invalidateOwner(ctx, ownerDID)
}

func (s *CachedSubscriptionStore) MarkDelivery(ctx context.Context, id string, at time.Time, success bool) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("sqlstore: cached subscription store is not configured")
	}
	return s.base.MarkDelivery(ctx, id, at, success)
}

func (s *CachedSubscriptionStore) invalidateOwner(ctx context.Context, ownerDID string) error {
	cacheKey, err := SubscriptionCacheKey(ownerDID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func cloneSubscriptions(subs []core.WebhookSubscription) []core.WebhookSubscription {
	out := make([]core.WebhookSubscription, 0, len(subs))
	for _, sub := range subs {
		sub.LastDeliveryAt = cloneTimePointer(sub.LastDeliveryAt)
		sub.LastDeliverySuccess = cloneBoolPointer(sub.LastDeliverySuccess)
		out = append(out, sub)
	}
	return out
}

var _ core.SubscriptionStore = (*CachedSubscriptionStore)(nil)
