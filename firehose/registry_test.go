package firehose

import (
	"context"
	"testing"
)

type staticIngestor struct {
	collection string
}

func (i staticIngestor) Collection() string { return i.collection }

func (i staticIngestor) Ingest(context.Context, Event) error { return nil }

func TestIngestorRegistry_RegisterAndGet(t *testing.T) {
	registry := NewIngestorRegistry()

	if err := registry.Register(staticIngestor{collection: "io.zzstoatzz.status.record"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := registry.Get("io.zzstoatzz.status.record"); !ok {
		t.Fatalf("expected registered ingestor")
	}
	if _, ok := registry.Get("app.bsky.feed.post"); ok {
		t.Fatalf("unexpected ingestor for unregistered collection")
	}
	if _, ok := registry.Get("  "); ok {
		t.Fatalf("blank collection must not resolve")
	}
}

func TestIngestorRegistry_RejectsDuplicatesAndNil(t *testing.T) {
	registry := NewIngestorRegistry()

	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected error for nil ingestor")
	}
	if err := registry.Register(staticIngestor{collection: " "}); err == nil {
		t.Fatalf("expected error for blank collection")
	}

	if err := registry.Register(staticIngestor{collection: "io.zzstoatzz.status.record"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := registry.Register(staticIngestor{collection: "io.zzstoatzz.status.record"})
	if err == nil {
		t.Fatalf("expected error for duplicate registration")
	}
	mustContain(t, err.Error(), "already registered")
}

func TestIngestorRegistry_CollectionsSorted(t *testing.T) {
	registry := NewIngestorRegistry()
	for _, collection := range []string{"io.zzstoatzz.status.record", "app.bsky.feed.post", "app.bsky.actor.profile"} {
		if err := registry.Register(staticIngestor{collection: collection}); err != nil {
			t.Fatalf("register %s: %v", collection, err)
		}
	}

	collections := registry.Collections()
	want := []string{"app.bsky.actor.profile", "app.bsky.feed.post", "io.zzstoatzz.status.record"}
	if len(collections) != len(want) {
		t.Fatalf("expected %d collections, got %d", len(want), len(collections))
	}
	for i := range want {
		if collections[i] != want[i] {
			t.Fatalf("expected sorted collections %v, got %v", want, collections)
		}
	}
}
