package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/zzstoatzz/statuswire/core"
)

func TestGetStatusQuery_QueryDelegates(t *testing.T) {
	expected := core.StatusRecord{
		URI:       "at://did:plc:abc/io.zzstoatzz.status.record/3k2x9",
		AuthorDID: "did:plc:abc",
		Status:    "🚀",
	}
	called := false
	reader := stubStatusReader{
		getFn: func(_ context.Context, uri string) (core.StatusRecord, error) {
			called = true
			if uri != expected.URI {
				t.Fatalf("unexpected get uri: %q", uri)
			}
			return expected, nil
		},
	}

	qry := NewGetStatusQuery(reader)
	result, err := qry.Query(context.Background(), GetStatusMessage{URI: expected.URI})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if !called {
		t.Fatalf("expected status reader invocation")
	}
	if result.Status != expected.Status {
		t.Fatalf("unexpected status result: %#v", result)
	}
}

func TestStatusListQueries_Delegate(t *testing.T) {
	calledAuthor := false
	calledRecent := false
	reader := stubStatusReader{
		listAuthorFn: func(_ context.Context, did string, limit int) ([]core.StatusRecord, error) {
			calledAuthor = true
			if did != "did:plc:abc" || limit != 5 {
				t.Fatalf("unexpected author list input: %q %d", did, limit)
			}
			return []core.StatusRecord{{AuthorDID: did, Status: "🔥"}}, nil
		},
		listRecentFn: func(_ context.Context, limit int) ([]core.StatusRecord, error) {
			calledRecent = true
			if limit != 10 {
				t.Fatalf("unexpected recent limit: %d", limit)
			}
			return []core.StatusRecord{{AuthorDID: "did:plc:abc", Status: "🔥"}}, nil
		},
	}

	authorResult, err := NewListAuthorStatusesQuery(reader).Query(context.Background(), ListAuthorStatusesMessage{
		AuthorDID: "did:plc:abc",
		Limit:     5,
	})
	if err != nil {
		t.Fatalf("list author statuses query: %v", err)
	}
	if !calledAuthor || len(authorResult) != 1 {
		t.Fatalf("expected author list delegation")
	}

	recentResult, err := NewListRecentStatusesQuery(reader).Query(context.Background(), ListRecentStatusesMessage{
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("list recent statuses query: %v", err)
	}
	if !calledRecent || len(recentResult) != 1 {
		t.Fatalf("expected recent list delegation")
	}
}

func TestWebhookQueries_Delegate(t *testing.T) {
	calledList := false
	calledDeliveries := false
	reader := stubWebhookReader{
		listFn: func(_ context.Context, ownerDID string) ([]core.WebhookSubscription, error) {
			calledList = true
			if ownerDID != "did:plc:abc" {
				t.Fatalf("unexpected list owner: %q", ownerDID)
			}
			return []core.WebhookSubscription{{ID: "sub_1", OwnerDID: ownerDID}}, nil
		},
		deliveriesFn: func(_ context.Context, ownerDID string, id string, limit int) ([]core.DeliveryAttempt, error) {
			calledDeliveries = true
			if ownerDID != "did:plc:abc" || id != "sub_1" || limit != 20 {
				t.Fatalf("unexpected deliveries input: %q %q %d", ownerDID, id, limit)
			}
			return []core.DeliveryAttempt{{ID: "att_1", SubscriptionID: id}}, nil
		},
	}

	listResult, err := NewListWebhooksQuery(reader).Query(context.Background(), ListWebhooksMessage{
		OwnerDID: "did:plc:abc",
	})
	if err != nil {
		t.Fatalf("list webhooks query: %v", err)
	}
	if !calledList || len(listResult) != 1 {
		t.Fatalf("expected webhook list delegation")
	}

	deliveriesResult, err := NewRecentDeliveriesQuery(reader).Query(context.Background(), RecentDeliveriesMessage{
		OwnerDID: "did:plc:abc",
		ID:       "sub_1",
		Limit:    20,
	})
	if err != nil {
		t.Fatalf("recent deliveries query: %v", err)
	}
	if !calledDeliveries || len(deliveriesResult) != 1 {
		t.Fatalf("expected deliveries delegation")
	}
}

func TestResolveHandleQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubHandleReader{
		resolveFn: func(_ context.Context, did string) (string, error) {
			called = true
			if did != "did:plc:abc" {
				t.Fatalf("unexpected resolve did: %q", did)
			}
			return "alice.bsky.social", nil
		},
	}

	handle, err := NewResolveHandleQuery(reader).Query(context.Background(), ResolveHandleMessage{DID: "did:plc:abc"})
	if err != nil {
		t.Fatalf("resolve handle query: %v", err)
	}
	if !called {
		t.Fatalf("expected handle reader invocation")
	}
	if handle != "alice.bsky.social" {
		t.Fatalf("unexpected handle: %q", handle)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "get status valid",
			msg:     GetStatusMessage{URI: "at://did:plc:abc/io.zzstoatzz.status.record/3k2x9"},
			wantErr: false,
		},
		{
			name:    "get status missing uri",
			msg:     GetStatusMessage{},
			wantErr: true,
		},
		{
			name:    "author list negative limit",
			msg:     ListAuthorStatusesMessage{AuthorDID: "did:plc:abc", Limit: -1},
			wantErr: true,
		},
		{
			name:    "recent list valid",
			msg:     ListRecentStatusesMessage{Limit: 25},
			wantErr: false,
		},
		{
			name:    "webhook list missing owner",
			msg:     ListWebhooksMessage{},
			wantErr: true,
		},
		{
			name:    "deliveries valid",
			msg:     RecentDeliveriesMessage{OwnerDID: "did:plc:abc", ID: "sub_1"},
			wantErr: false,
		},
		{
			name:    "deliveries missing id",
			msg:     RecentDeliveriesMessage{OwnerDID: "did:plc:abc"},
			wantErr: true,
		},
		{
			name:    "resolve handle missing did",
			msg:     ResolveHandleMessage{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubStatusReader struct {
	getFn        func(ctx context.Context, uri string) (core.StatusRecord, error)
	listAuthorFn func(ctx context.Context, did string, limit int) ([]core.StatusRecord, error)
	listRecentFn func(ctx context.Context, limit int) ([]core.StatusRecord, error)
}

func (s stubStatusReader) GetStatus(ctx context.Context, uri string) (core.StatusRecord, error) {
	if s.getFn == nil {
		return core.StatusRecord{}, fmt.Errorf("get status not configured")
	}
	return s.getFn(ctx, uri)
}

func (s stubStatusReader) ListAuthorStatuses(ctx context.Context, did string, limit int) ([]core.StatusRecord, error) {
	if s.listAuthorFn == nil {
		return nil, fmt.Errorf("list author statuses not configured")
	}
	return s.listAuthorFn(ctx, did, limit)
}

func (s stubStatusReader) ListRecentStatuses(ctx context.Context, limit int) ([]core.StatusRecord, error) {
	if s.listRecentFn == nil {
		return nil, fmt.Errorf("list recent statuses not configured")
	}
	return s.listRecentFn(ctx, limit)
}

type stubWebhookReader struct {
	listFn       func(ctx context.Context, ownerDID string) ([]core.WebhookSubscription, error)
	deliveriesFn func(ctx context.Context, ownerDID string, id string, limit int) ([]core.DeliveryAttempt, error)
}

func (s stubWebhookReader) ListWebhooks(ctx context.Context, ownerDID string) ([]core.WebhookSubscription, error) {
	if s.listFn == nil {
		return nil, fmt.Errorf("list webhooks not configured")
	}
	return s.listFn(ctx, ownerDID)
}

func (s stubWebhookReader) RecentDeliveries(ctx context.Context, ownerDID string, id string, limit int) ([]core.DeliveryAttempt, error) {
	if s.deliveriesFn == nil {
		return nil, fmt.Errorf("recent deliveries not configured")
	}
	return s.deliveriesFn(ctx, ownerDID, id, limit)
}

type stubHandleReader struct {
	resolveFn func(ctx context.Context, did string) (string, error)
}

func (s stubHandleReader) ResolveHandle(ctx context.Context, did string) (string, error) {
	if s.resolveFn == nil {
		return "", fmt.Errorf("resolve handle not configured")
	}
	return s.resolveFn(ctx, did)
}

var (
	_ StatusReader  = stubStatusReader{}
	_ WebhookReader = stubWebhookReader{}
	_ HandleReader  = stubHandleReader{}
)
