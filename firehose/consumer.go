package firehose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/gorilla/websocket"
	"github.com/zzstoatzz/statuswire/core"
)

// ErrConnectExhausted reports that the consumer burned through its reconnect
// budget without establishing a connection. The daemon treats it as fatal.
var ErrConnectExhausted = errors.New("firehose: connect attempts exhausted")

const (
	reconnectInitialDelay = time.Second
	reconnectMaxDelay     = 30 * time.Second
)

// Conn is the subset of a websocket connection the consumer reads from.
type Conn interface {
	ReadMessage() (messageType int, payload []byte, err error)
	Close() error
}

type Dialer interface {
	DialContext(ctx context.Context, endpoint string, header http.Header) (Conn, *http.Response, error)
}

type websocketDialer struct {
	dialer *websocket.Dialer
}

func (d websocketDialer) DialContext(ctx context.Context, endpoint string, header http.Header) (Conn, *http.Response, error) {
	return d.dialer.DialContext(ctx, endpoint, header)
}

type ConsumerOptions struct {
	Config    core.FirehoseConfig
	Registry  *IngestorRegistry
	Cursor    *core.Cursor
	Coalescer *Coalescer
	Dialer    Dialer
	Logger    core.Logger
	Metrics   core.MetricsRecorder
}

// Consumer maintains the jetstream subscription, routes commit events to the
// ingestor registered for their collection, and owns the resumption cursor.
// Malformed messages are logged and skipped; the stream keeps flowing.
type Consumer struct {
	config    core.FirehoseConfig
	registry  *IngestorRegistry
	cursor    *core.Cursor
	coalescer *Coalescer
	dialer    Dialer
	logger    core.Logger
	metrics   core.MetricsRecorder
}

func NewConsumer(opts ConsumerOptions) *Consumer {
	config := opts.Config
	if strings.TrimSpace(config.Endpoint) == "" {
		config.Endpoint = core.DefaultConfig().Firehose.Endpoint
	}
	if config.MaxReconnectAttempts <= 0 {
		config.MaxReconnectAttempts = core.DefaultConfig().Firehose.MaxReconnectAttempts
	}

	registry := opts.Registry
	if registry == nil {
		registry = NewIngestorRegistry()
	}
	cursor := opts.Cursor
	if cursor == nil {
		cursor = &core.Cursor{}
	}
	coalescer := opts.Coalescer
	if coalescer == nil && config.CoalesceWindowMS > 0 {
		coalescer = NewCoalescer(CoalesceOptions{
			Window: time.Duration(config.CoalesceWindowMS) * time.Millisecond,
		})
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocketDialer{dialer: websocket.DefaultDialer}
	}
	logger := opts.Logger
	if logger == nil {
		logger = glog.Nop()
	}

	return &Consumer{
		config:    config,
		registry:  registry,
		cursor:    cursor,
		coalescer: coalescer,
		dialer:    dialer,
		logger:    logger,
		metrics:   opts.Metrics,
	}
}

func (c *Consumer) Register(ingestor Ingestor) error {
	if c == nil {
		return fmt.Errorf("firehose: consumer is nil")
	}
	return c.registry.Register(ingestor)
}

// Cursor exposes stream progress for health reporting.
func (c *Consumer) Cursor() core.CursorSnapshot {
	if c == nil {
		return core.CursorSnapshot{}
	}
	return c.cursor.Snapshot()
}

// Run connects and reads until ctx is canceled. Lost connections are
// redialed with exponential backoff; MaxReconnectAttempts consecutive dial
// failures return ErrConnectExhausted.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("firehose: consumer is nil")
	}
	if len(c.registry.Collections()) == 0 {
		return fmt.Errorf("firehose: at least one ingestor is required")
	}
	endpoint, err := c.subscribeURL()
	if err != nil {
		return err
	}

	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			attempts++
			if attempts >= c.config.MaxReconnectAttempts {
				return fmt.Errorf("%w after %d attempts: %v", ErrConnectExhausted, attempts, err)
			}
			delay := reconnectDelay(attempts)
			c.logError(ctx, "jetstream connect failed", err, map[string]any{
				"endpoint": endpoint,
				"attempt":  attempts,
				"retry_in": delay.String(),
			})
			c.recordCounter(ctx, "statuswire.firehose_connect_failed.total", nil)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		attempts = 0
		c.logInfo(ctx, "jetstream connected", map[string]any{
			"endpoint":    endpoint,
			"collections": strings.Join(c.registry.Collections(), ","),
		})

		readErr := c.readLoop(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logError(ctx, "jetstream connection lost", readErr, map[string]any{"endpoint": endpoint})
		c.recordCounter(ctx, "statuswire.firehose_disconnected.total", nil)
	}
}

func (c *Consumer) readLoop(ctx context.Context, conn Conn) error {
	// ReadMessage blocks without honoring ctx; closing the connection is the
	// documented way to unblock it.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer close(done)
	defer conn.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.processMessage(ctx, payload)
	}
}

func (c *Consumer) processMessage(ctx context.Context, payload []byte) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		c.cursor.Advance(peekTimeUS(payload))
		c.cursor.MarkSkipped()
		c.recordCounter(ctx, "statuswire.firehose_malformed.total", nil)
		c.logError(ctx, "malformed jetstream message skipped", err, map[string]any{"bytes": len(payload)})
		return
	}

	if regressed := c.cursor.Advance(evt.TimeUS); regressed {
		c.recordCounter(ctx, "statuswire.firehose_regression.total", nil)
	}

	if evt.Kind != KindCommit || evt.Commit == nil {
		c.cursor.MarkSkipped()
		return
	}

	ingestor, ok := c.registry.Get(evt.Commit.Collection)
	if !ok {
		c.cursor.MarkSkipped()
		return
	}

	if c.coalescer != nil && !c.coalescer.Allow(evt) {
		c.cursor.MarkSkipped()
		c.recordCounter(ctx, "statuswire.firehose_coalesced.total", map[string]string{
			"collection": evt.Commit.Collection,
		})
		return
	}

	if err := ingestor.Ingest(ctx, evt); err != nil {
		c.cursor.MarkSkipped()
		c.recordCounter(ctx, "statuswire.firehose_ingest_failed.total", map[string]string{
			"collection": evt.Commit.Collection,
			"operation":  evt.Commit.Operation,
		})
		c.logError(ctx, "ingest failed", err, map[string]any{
			"did":        evt.DID,
			"collection": evt.Commit.Collection,
			"rkey":       evt.Commit.RKey,
			"operation":  evt.Commit.Operation,
		})
		return
	}

	c.cursor.MarkProcessed()
	c.recordCounter(ctx, "statuswire.firehose_ingested.total", map[string]string{
		"collection": evt.Commit.Collection,
		"operation":  evt.Commit.Operation,
	})
}

// subscribeURL appends one wantedCollections parameter per registered
// collection to the configured endpoint.
func (c *Consumer) subscribeURL() (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(c.config.Endpoint))
	if err != nil {
		return "", fmt.Errorf("firehose: invalid jetstream endpoint: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("firehose: jetstream endpoint must use ws or wss, got %q", parsed.Scheme)
	}
	query := parsed.Query()
	query.Del("wantedCollections")
	for _, collection := range c.registry.Collections() {
		query.Add("wantedCollections", collection)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// peekTimeUS extracts the position from a message that failed full decoding
// so the cursor can still advance past it.
func peekTimeUS(payload []byte) int64 {
	var probe struct {
		TimeUS int64 `json:"time_us"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0
	}
	return probe.TimeUS
}

func reconnectDelay(attempt int) time.Duration {
	delay := reconnectInitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return delay
}

func (c *Consumer) logInfo(ctx context.Context, message string, fields map[string]any) {
	c.logWithLevel(ctx, "info", message, nil, fields)
}

func (c *Consumer) logError(ctx context.Context, message string, cause error, fields map[string]any) {
	c.logWithLevel(ctx, "error", message, cause, fields)
}

func (c *Consumer) logWithLevel(ctx context.Context, level string, message string, cause error, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	copied := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		copied[key] = value
	}
	if cause != nil {
		copied["error"] = cause.Error()
	}

	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(copied)
	}

	keys := make([]string, 0, len(copied))
	for key := range copied {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, copied[key])
	}

	switch level {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (c *Consumer) recordCounter(ctx context.Context, name string, tags map[string]string) {
	if c == nil || c.metrics == nil {
		return
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	c.metrics.IncCounter(ctx, name, 1, copied)
}

var _ Dialer = websocketDialer{}
