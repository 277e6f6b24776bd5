package firehose

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zzstoatzz/statuswire/core"
)

func testClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func commitPayload(did string, timeUS int64, operation string, rkey string, record string) []byte {
	if record == "" {
		return []byte(fmt.Sprintf(
			`{"did":%q,"time_us":%d,"kind":"commit","commit":{"rev":"r1","operation":%q,"collection":%q,"rkey":%q}}`,
			did, timeUS, operation, core.StatusCollectionNSID, rkey,
		))
	}
	return []byte(fmt.Sprintf(
		`{"did":%q,"time_us":%d,"kind":"commit","commit":{"rev":"r1","operation":%q,"collection":%q,"rkey":%q,"record":%s,"cid":"bafyone"}}`,
		did, timeUS, operation, core.StatusCollectionNSID, rkey, record,
	))
}

func mustContain(t *testing.T, haystack string, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

type memoryStatusStore struct {
	mu      sync.Mutex
	records map[string]core.StatusRecord
	upserts int
	deletes int
}

func newMemoryStatusStore() *memoryStatusStore {
	return &memoryStatusStore{records: map[string]core.StatusRecord{}}
}

func (s *memoryStatusStore) Upsert(_ context.Context, record core.StatusRecord) (core.StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	_, exists := s.records[record.URI]
	s.records[record.URI] = record
	return record, !exists, nil
}

func (s *memoryStatusStore) GetByURI(_ context.Context, uri string) (core.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[uri]
	if !ok {
		return core.StatusRecord{}, fmt.Errorf("status record not found: %s", uri)
	}
	return record, nil
}

func (s *memoryStatusStore) DeleteByURI(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.records, uri)
	return nil
}

func (s *memoryStatusStore) SetHidden(_ context.Context, uri string, hidden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[uri]
	if !ok {
		return fmt.Errorf("status record not found: %s", uri)
	}
	record.Hidden = hidden
	s.records[uri] = record
	return nil
}

func (s *memoryStatusStore) ListByAuthor(_ context.Context, did string, limit int) ([]core.StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []core.StatusRecord
	for _, record := range s.records {
		if record.AuthorDID == did {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].URI < records[j].URI })
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *memoryStatusStore) ListRecent(_ context.Context, limit int) ([]core.StatusRecord, error) {
	return s.ListByAuthor(context.Background(), "", limit)
}

func (s *memoryStatusStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStatusStore) get(uri string) (core.StatusRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[uri]
	return record, ok
}

func (s *memoryStatusStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

type scriptedConn struct {
	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func newScriptedConn(payloads ...[]byte) *scriptedConn {
	return &scriptedConn{payloads: payloads}
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, nil, errors.New("firehose test: connection closed")
	}
	if len(c.payloads) == 0 {
		return 0, nil, io.EOF
	}
	payload := c.payloads[0]
	c.payloads = c.payloads[1:]
	return 1, payload, nil
}

func (c *scriptedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type blockingConn struct {
	once   sync.Once
	closed chan struct{}
}

func newBlockingConn() *blockingConn {
	return &blockingConn{closed: make(chan struct{})}
}

func (c *blockingConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("firehose test: connection closed")
}

func (c *blockingConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type scriptedDialer struct {
	mu        sync.Mutex
	conns     []Conn
	endpoints []string
	dials     int
}

func (d *scriptedDialer) DialContext(_ context.Context, endpoint string, _ http.Header) (Conn, *http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.endpoints = append(d.endpoints, endpoint)
	if len(d.conns) == 0 {
		return nil, nil, errors.New("firehose test: dial refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil, nil
}

func (d *scriptedDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *scriptedDialer) lastEndpoint() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.endpoints) == 0 {
		return ""
	}
	return d.endpoints[len(d.endpoints)-1]
}

var _ core.StatusStore = (*memoryStatusStore)(nil)

var _ Dialer = (*scriptedDialer)(nil)
