package firehose

import (
	"strings"
	"sync"
	"time"
)

type CoalesceOptions struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

// Coalescer suppresses exact duplicate commits (same did, collection, rkey,
// operation, cid) observed within a short window. Suppression is safe only
// because ingestion is idempotent; a dropped duplicate converges to the same
// stored state.
type Coalescer struct {
	window     time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewCoalescer(opts CoalesceOptions) *Coalescer {
	window := opts.Window
	if window <= 0 {
		window = 2 * time.Second
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Coalescer{
		window:     window,
		maxEntries: maxEntries,
		now:        now,
		entries:    map[string]time.Time{},
	}
}

// Allow reports whether the event should be processed. Events without a
// usable dedupe key always pass.
func (c *Coalescer) Allow(evt Event) bool {
	if c == nil {
		return true
	}
	key, ok := coalesceKey(evt)
	if !ok {
		return true
	}

	now := c.now().UTC()
	c.mu.Lock()
	defer c.mu.Unlock()

	lastSeen, exists := c.entries[key]
	c.entries[key] = now
	c.cleanup(now)
	if !exists {
		return true
	}
	return now.Sub(lastSeen) >= c.window
}

func (c *Coalescer) cleanup(now time.Time) {
	if len(c.entries) <= c.maxEntries {
		for key, seenAt := range c.entries {
			if now.Sub(seenAt) > c.window*4 {
				delete(c.entries, key)
			}
		}
		return
	}
	for key, seenAt := range c.entries {
		if now.Sub(seenAt) > c.window {
			delete(c.entries, key)
		}
		if len(c.entries) <= c.maxEntries {
			break
		}
	}
}

func coalesceKey(evt Event) (string, bool) {
	if evt.Commit == nil {
		return "", false
	}
	did := strings.TrimSpace(evt.DID)
	collection := strings.TrimSpace(evt.Commit.Collection)
	rkey := strings.TrimSpace(evt.Commit.RKey)
	if did == "" || collection == "" || rkey == "" {
		return "", false
	}
	operation := strings.ToLower(strings.TrimSpace(evt.Commit.Operation))
	cid := strings.TrimSpace(evt.Commit.CID)
	return strings.Join([]string{did, collection, rkey, operation, cid}, "/"), true
}
