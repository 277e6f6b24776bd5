package core

import "sync"

// CursorSnapshot is a point-in-time view of stream progress.
type CursorSnapshot struct {
	TimeUS      int64
	Regressions int64
	Processed   int64
	Skipped     int64
}

// Cursor tracks the highest observed jetstream position in microseconds.
// Positions can arrive out of order, so Advance keeps the maximum and counts
// regressions instead of rewinding. The zero value is ready to use.
type Cursor struct {
	mu          sync.Mutex
	timeUS      int64
	regressions int64
	processed   int64
	skipped     int64
}

// Advance records an observed position and reports whether it was older than
// the current one.
func (c *Cursor) Advance(timeUS int64) bool {
	if c == nil || timeUS <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeUS < c.timeUS {
		c.regressions++
		return true
	}
	c.timeUS = timeUS
	return false
}

// MarkProcessed counts a message that reached an ingestor and was applied.
func (c *Cursor) MarkProcessed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.processed++
	c.mu.Unlock()
}

// MarkSkipped counts a message that was observed but not applied, whether
// malformed, unroutable, or suppressed.
func (c *Cursor) MarkSkipped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.skipped++
	c.mu.Unlock()
}

// Position returns the highest position observed so far.
func (c *Cursor) Position() int64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeUS
}

func (c *Cursor) Snapshot() CursorSnapshot {
	if c == nil {
		return CursorSnapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return CursorSnapshot{
		TimeUS:      c.timeUS,
		Regressions: c.regressions,
		Processed:   c.processed,
		Skipped:     c.skipped,
	}
}
