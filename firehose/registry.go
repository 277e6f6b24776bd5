package firehose

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Ingestor applies commit events for one record collection to local state.
type Ingestor interface {
	Collection() string
	Ingest(ctx context.Context, evt Event) error
}

type IngestorRegistry struct {
	mu        sync.RWMutex
	ingestors map[string]Ingestor
}

func NewIngestorRegistry() *IngestorRegistry {
	return &IngestorRegistry{ingestors: make(map[string]Ingestor)}
}

func (r *IngestorRegistry) Register(ingestor Ingestor) error {
	if ingestor == nil {
		return fmt.Errorf("firehose: ingestor is nil")
	}
	collection := strings.TrimSpace(ingestor.Collection())
	if collection == "" {
		return fmt.Errorf("firehose: ingestor collection is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ingestors[collection]; exists {
		return fmt.Errorf("firehose: ingestor already registered: %s", collection)
	}
	r.ingestors[collection] = ingestor
	return nil
}

func (r *IngestorRegistry) Get(collection string) (Ingestor, bool) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, false
	}
	r.mu.RLock()
	ingestor, ok := r.ingestors[collection]
	r.mu.RUnlock()
	return ingestor, ok
}

// Collections returns every registered collection NSID in sorted order. The
// consumer subscribes with exactly this set.
func (r *IngestorRegistry) Collections() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	collections := make([]string, 0, len(r.ingestors))
	for collection := range r.ingestors {
		collections = append(collections, collection)
	}
	r.mu.RUnlock()
	sort.Strings(collections)
	return collections
}
