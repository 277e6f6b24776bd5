package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/zzstoatzz/statuswire/core"
)

const (
	defaultRequestTimeout    = 10 * time.Second
	defaultDirectoryURL      = "https://plc.directory"
	defaultCacheTTL          = 15 * time.Minute
	defaultMaxCacheEntries   = 8192
	maxDIDDocumentBytes      = 1 << 20 // 1 MiB
	didMethodPLC             = "did:plc:"
	didMethodWeb             = "did:web:"
	handleURIPrefix          = "at://"
	wellKnownDIDDocumentPath = "/.well-known/did.json"
)

var ErrHandleNotFound = errors.New("identity: handle not found")

type HandleNotFoundError struct {
	DID   string
	Cause error
}

func (e *HandleNotFoundError) Error() string {
	if e == nil {
		return ErrHandleNotFound.Error()
	}
	message := ErrHandleNotFound.Error()
	if strings.TrimSpace(e.DID) != "" {
		message += " for " + e.DID
	}
	if e.Cause != nil {
		message += ": " + e.Cause.Error()
	}
	return message
}

func (e *HandleNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrHandleNotFound
	}
	return errors.Join(ErrHandleNotFound, e.Cause)
}

func (e *HandleNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrHandleNotFound.Error()
	if e != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.StatuswireErrorNotFound)
}

func handleNotFound(did string, cause error) error {
	return &HandleNotFoundError{DID: did, Cause: cause}
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// didDocument is the subset of a DID document this resolver reads. The
// handle is the first alsoKnownAs entry carrying the at:// scheme.
type didDocument struct {
	ID          string   `json:"id"`
	AlsoKnownAs []string `json:"alsoKnownAs"`
}

type Config struct {
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
	// DirectoryURL is the plc directory base used for did:plc documents.
	DirectoryURL string
	CacheTTL     time.Duration
	// MaxCacheEntries bounds the resolution cache; zero keeps the default.
	MaxCacheEntries int
	Now             func() time.Time
}

type cacheEntry struct {
	handle    string
	expiresAt time.Time
}

// Resolver maps dids to their declared handle. did:plc documents come from
// the plc directory, did:web documents from the host's well-known path.
// Resolutions are cached; the dispatcher hits this on every event that
// arrives without a handle.
type Resolver struct {
	httpClient      HTTPDoer
	requestTimeout  time.Duration
	directoryURL    string
	cacheTTL        time.Duration
	maxCacheEntries int
	now             func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

func NewResolver(cfg Config) *Resolver {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	directoryURL := strings.TrimRight(strings.TrimSpace(cfg.DirectoryURL), "/")
	if directoryURL == "" {
		directoryURL = defaultDirectoryURL
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	maxCacheEntries := cfg.MaxCacheEntries
	if maxCacheEntries <= 0 {
		maxCacheEntries = defaultMaxCacheEntries
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Resolver{
		httpClient:      httpClient,
		requestTimeout:  requestTimeout,
		directoryURL:    directoryURL,
		cacheTTL:        cacheTTL,
		maxCacheEntries: maxCacheEntries,
		now:             now,
		cache:           map[string]cacheEntry{},
	}
}

func DefaultResolver() *Resolver {
	return NewResolver(Config{})
}

func (r *Resolver) ResolveHandle(ctx context.Context, did string) (string, error) {
	if r == nil {
		return "", handleNotFound(did, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	did = strings.TrimSpace(did)
	if did == "" {
		return "", fmt.Errorf("identity: did is required")
	}

	if handle, ok := r.cached(did); ok {
		return handle, nil
	}

	endpoint, err := r.documentURL(did)
	if err != nil {
		return "", err
	}
	document, err := r.fetchDIDDocument(ctx, endpoint)
	if err != nil {
		return "", handleNotFound(did, err)
	}
	handle := handleFromDocument(document)
	if handle == "" {
		return "", handleNotFound(did, fmt.Errorf("document lists no %s alias", handleURIPrefix))
	}

	r.store(did, handle)
	return handle, nil
}

func (r *Resolver) documentURL(did string) (string, error) {
	switch {
	case strings.HasPrefix(did, didMethodPLC):
		return r.directoryURL + "/" + url.PathEscape(did), nil
	case strings.HasPrefix(did, didMethodWeb):
		return didWebDocumentURL(did)
	default:
		return "", fmt.Errorf("identity: unsupported did method %q", did)
	}
}

// didWebDocumentURL expands did:web:<host>[:<path segments>] into the
// document location: bare hosts use the well-known path, path-carrying dids
// append did.json under the decoded segments.
func didWebDocumentURL(did string) (string, error) {
	rest := strings.TrimPrefix(did, didMethodWeb)
	if strings.TrimSpace(rest) == "" {
		return "", fmt.Errorf("identity: did:web host is required")
	}
	segments := strings.Split(rest, ":")
	for i, segment := range segments {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return "", fmt.Errorf("identity: decode did segment %q: %w", segment, err)
		}
		if strings.TrimSpace(decoded) == "" {
			return "", fmt.Errorf("identity: empty did:web segment in %q", did)
		}
		segments[i] = decoded
	}
	host := segments[0]
	if len(segments) == 1 {
		return "https://" + host + wellKnownDIDDocumentPath, nil
	}
	return "https://" + host + "/" + strings.Join(segments[1:], "/") + "/did.json", nil
}

func (r *Resolver) fetchDIDDocument(ctx context.Context, endpoint string) (didDocument, error) {
	requestCtx := ctx
	cancel := func() {}
	if r.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return didDocument{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := r.httpClient.Do(req)
	if err != nil {
		return didDocument{}, err
	}
	defer res.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxDIDDocumentBytes+1))
	if readErr != nil {
		return didDocument{}, fmt.Errorf("identity: read did document: %w", readErr)
	}
	if int64(len(body)) > maxDIDDocumentBytes {
		return didDocument{}, fmt.Errorf("identity: did document exceeds %d bytes", maxDIDDocumentBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return didDocument{}, fmt.Errorf("identity: did document endpoint returned status %d", res.StatusCode)
	}
	var document didDocument
	if err := json.Unmarshal(body, &document); err != nil {
		return didDocument{}, fmt.Errorf("identity: decode did document: %w", err)
	}
	return document, nil
}

func handleFromDocument(document didDocument) string {
	for _, alias := range document.AlsoKnownAs {
		alias = strings.TrimSpace(alias)
		if !strings.HasPrefix(alias, handleURIPrefix) {
			continue
		}
		handle := strings.TrimSpace(strings.TrimPrefix(alias, handleURIPrefix))
		if handle != "" {
			return handle
		}
	}
	return ""
}

func (r *Resolver) cached(did string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.cache[did]
	if !ok {
		return "", false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.cache, did)
		return "", false
	}
	return entry.handle, true
}

func (r *Resolver) store(did string, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.cache[did] = cacheEntry{
		handle:    handle,
		expiresAt: now.Add(r.cacheTTL),
	}
	if len(r.cache) <= r.maxCacheEntries {
		return
	}
	for key, entry := range r.cache {
		if now.After(entry.expiresAt) {
			delete(r.cache, key)
		}
	}
	for key := range r.cache {
		if len(r.cache) <= r.maxCacheEntries {
			break
		}
		delete(r.cache, key)
	}
}

var _ core.HandleResolver = (*Resolver)(nil)
