// Package transport exposes the statuswire management surface over HTTP: the
// owner-scoped webhook registry, feed reads, the local status write path, and
// operational probes. The caller is the trusted web app; it asserts the acting
// DID through the X-Actor-Did header and the registry's ownership checks keep
// foreign rows reading as not-found.
package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/zzstoatzz/statuswire/core"
)

// ActorHeader names the header the trusted caller uses to assert the acting
// DID. There is no credential here on purpose: authentication lives in the
// web app collaborator, not in the pipeline.
const ActorHeader = "X-Actor-Did"

const maxRequestBodySize = 64 << 10 // 64KB

type contextKey string

const actorContextKey contextKey = "statuswire.actor"

// Deps carries everything the handler set needs. Service is required; Cursor
// is optional and, when present, exposes the firehose position on /cursor.
type Deps struct {
	Service core.StatusService
	Logger  core.Logger
	Cursor  func() core.CursorSnapshot
}

type api struct {
	service core.StatusService
	logger  core.Logger
	cursor  func() core.CursorSnapshot
}

// NewHandler builds the chi router for the management surface.
func NewHandler(deps Deps) (http.Handler, error) {
	if deps.Service == nil {
		return nil, goerrors.New("transport: service is required", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.StatuswireErrorBadInput)
	}

	server := &api{
		service: deps.Service,
		logger:  glog.Ensure(deps.Logger),
		cursor:  deps.Cursor,
	}

	r := chi.NewRouter()

	r.Get("/health", server.handleHealth)
	r.Get("/cursor", server.handleCursor)

	r.Route("/statuses", func(r chi.Router) {
		r.Get("/lookup", server.handleGetStatus)
		r.Get("/recent", server.handleListRecent)
		r.Get("/author/{did}", server.handleListAuthor)

		r.Group(func(r chi.Router) {
			r.Use(server.requireActor)
			r.Post("/", server.handleSetStatus)
			r.Post("/clear", server.handleClearStatus)
			r.Post("/hide", server.handleHideStatus)
		})
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Use(server.requireActor)
		r.Get("/", server.handleListWebhooks)
		r.Post("/", server.handleCreateWebhook)
		r.Patch("/{id}", server.handleUpdateWebhook)
		r.Delete("/{id}", server.handleDeleteWebhook)
		r.Post("/{id}/rotate", server.handleRotateWebhook)
		r.Post("/{id}/test", server.handleTestWebhook)
		r.Get("/{id}/deliveries", server.handleRecentDeliveries)
	})

	return r, nil
}

// requireActor rejects requests that carry no acting DID. Everything behind
// it reads the actor from the request context.
func (a *api) requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			a.writeError(w, r, goerrors.New("transport: "+ActorHeader+" header is required", goerrors.CategoryAuth).
				WithCode(http.StatusUnauthorized).
				WithTextCode(core.StatuswireErrorBadInput))
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) handleCursor(w http.ResponseWriter, r *http.Request) {
	if a.cursor == nil {
		a.writeError(w, r, goerrors.New("transport: cursor is not exposed", goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(core.StatuswireErrorNotFound))
		return
	}
	snapshot := a.cursor()
	a.writeJSON(w, http.StatusOK, cursorResponse{
		TimeUS:      snapshot.TimeUS,
		Regressions: snapshot.Regressions,
		Processed:   snapshot.Processed,
		Skipped:     snapshot.Skipped,
	})
}

func (a *api) decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "transport: invalid request body").
			WithCode(http.StatusBadRequest).
			WithTextCode(core.StatuswireErrorBadInput)
	}
	return nil
}

func (a *api) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("transport: encode response", "error", err)
	}
}

// writeError renders the goerrors envelope: the numeric code becomes the HTTP
// status, the text code the machine-checkable reason.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		rich = goerrors.Wrap(err, goerrors.CategoryInternal, "transport: request failed").
			WithTextCode(core.StatuswireErrorInternal)
	}
	status := rich.Code
	if status < http.StatusBadRequest || status > 599 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("transport: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	a.writeJSON(w, status, errorResponse{Error: errorBody{
		Message: rich.Message,
		Code:    rich.TextCode,
	}})
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, goerrors.New("transport: limit must be a positive integer", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(core.StatuswireErrorBadInput)
	}
	return limit, nil
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type cursorResponse struct {
	TimeUS      int64 `json:"time_us"`
	Regressions int64 `json:"regressions"`
	Processed   int64 `json:"processed"`
	Skipped     int64 `json:"skipped"`
}
