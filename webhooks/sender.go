package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zzstoatzz/statuswire/core"
)

const defaultClientTimeout = 30 * time.Second

type SenderOptions struct {
	Client            core.HTTPDoer
	UserAgent         string
	ResponseBodyLimit int
}

// HTTPSender signs and POSTs one delivery per call. Each request carries its
// own timeout from the dispatcher, so the underlying client timeout is only
// a backstop.
type HTTPSender struct {
	client            core.HTTPDoer
	userAgent         string
	responseBodyLimit int
}

func NewHTTPSender(opts SenderOptions) *HTTPSender {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = core.DefaultConfig().Dispatch.UserAgent
	}
	limit := opts.ResponseBodyLimit
	if limit <= 0 {
		limit = core.DefaultConfig().Dispatch.ResponseBodyLimit
	}
	return &HTTPSender{
		client:            client,
		userAgent:         userAgent,
		responseBodyLimit: limit,
	}
}

// Send posts the payload to the subscriber endpoint. Any 2xx response is a
// success; everything else, including transport failure, comes back as a
// failed result with the cause in Error.
func (s *HTTPSender) Send(ctx context.Context, req core.DeliveryRequest) core.DeliveryResult {
	startedAt := time.Now()
	if s == nil || s.client == nil {
		return core.DeliveryResult{
			Error:    "webhooks: sender requires an http client",
			Duration: time.Since(startedAt),
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timestamp := req.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}
	unixTS := timestamp.Unix()

	signature, err := core.SignPayload(req.Secret, unixTS, req.Payload)
	if err != nil {
		return core.DeliveryResult{
			Error:    fmt.Sprintf("webhooks: sign payload: %v", err),
			Duration: time.Since(startedAt),
		}
	}

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, strings.TrimSpace(req.URL), bytes.NewReader(req.Payload))
	if err != nil {
		return core.DeliveryResult{
			Error:    fmt.Sprintf("webhooks: create http request: %v", err),
			Duration: time.Since(startedAt),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set(core.TimestampHeader, strconv.FormatInt(unixTS, 10))
	httpReq.Header.Set(core.EventIDHeader, req.EventID)
	httpReq.Header.Set(core.IdempotencyHeader, req.EventID)
	httpReq.Header.Set(core.SignatureHeader, signature)

	httpRes, err := s.client.Do(httpReq)
	if err != nil {
		return core.DeliveryResult{
			Error:    err.Error(),
			Duration: time.Since(startedAt),
		}
	}
	defer httpRes.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(httpRes.Body, int64(s.responseBodyLimit)))
	statusCode := httpRes.StatusCode

	result := core.DeliveryResult{
		Success:    statusCode >= 200 && statusCode < 300,
		StatusCode: &statusCode,
		Body:       string(body),
		Duration:   time.Since(startedAt),
	}
	if readErr != nil {
		result.Error = fmt.Sprintf("webhooks: read response body: %v", readErr)
	}
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("webhooks: endpoint returned status %d", statusCode)
	}
	return result
}

var _ core.DeliverySender = (*HTTPSender)(nil)
