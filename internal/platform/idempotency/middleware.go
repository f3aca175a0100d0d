package idempotency

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acp-commerce/api/internal/platform/httpx"
)

const (
	defaultHeaderName = "Idempotency-Key"
	replayHeaderName  = "X-Idempotent-Replay"
)

// Logger abstracts the logging dependency used inside the middleware.
type Logger interface {
	Printf(format string, args ...any)
}

type clockFunc func() time.Time

// KeyResolver derives the ledger scope for a request. Operation should be a
// stable name per route; sessionID is empty for create.
type KeyResolver func(r *http.Request) (operation, sessionID string)

type middlewareConfig struct {
	headerName string
	ttl        time.Duration
	resolver   KeyResolver
	clock      clockFunc
	logger     Logger
}

// MiddlewareOption customises middleware behaviour.
type MiddlewareOption func(*middlewareConfig)

// WithHeader overrides the header name used to extract the idempotency key.
func WithHeader(name string) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		name = strings.TrimSpace(name)
		if name != "" {
			cfg.headerName = name
		}
	}
}

// WithTTL configures how long completed idempotency records are retained.
func WithTTL(ttl time.Duration) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if ttl > 0 {
			cfg.ttl = ttl
		}
	}
}

// WithKeyResolver overrides how the operation and session scope are derived.
func WithKeyResolver(resolver KeyResolver) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if resolver != nil {
			cfg.resolver = resolver
		}
	}
}

// WithLogger injects a logger for background persistence errors.
func WithLogger(logger Logger) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.logger = logger
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock clockFunc) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

func defaultKeyResolver(r *http.Request) (string, string) {
	operation := strings.ToUpper(r.Method) + " " + r.URL.Path
	sessionID := ""
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			operation = strings.ToUpper(r.Method) + " " + pattern
		}
		sessionID = routeCtx.URLParam("checkout_session_id")
	}
	return operation, sessionID
}

// Middleware constructs an HTTP middleware enforcing idempotency semantics
// for mutating requests. Non-mutating methods pass through untouched.
func Middleware(store Store, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	if store == nil {
		return func(next http.Handler) http.Handler { return next }
	}

	cfg := middlewareConfig{
		headerName: defaultHeaderName,
		ttl:        DefaultTTL,
		resolver:   defaultKeyResolver,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.ttl <= 0 {
		cfg.ttl = DefaultTTL
	}
	if cfg.clock == nil {
		cfg.clock = time.Now
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			keyValue := strings.TrimSpace(r.Header.Get(cfg.headerName))
			if keyValue == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeInvalidRequest, "invalid_request", "missing idempotency key header", http.StatusBadRequest).WithParam("$.idempotency_key"))
				return
			}
			w.Header().Set(cfg.headerName, keyValue)

			body, err := readAndReplayBody(r)
			if err != nil {
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeServiceUnavailable, "request_body_unreadable", "unable to read request body", http.StatusInternalServerError))
				return
			}

			operation, sessionID := cfg.resolver(r)
			key := Key{Operation: operation, SessionID: sessionID, Value: keyValue}
			fingerprint := Fingerprint(r.Method, r.URL.Path, body)
			now := cfg.clock().UTC()

			reservation, err := store.Reserve(r.Context(), key, fingerprint, now, cfg.ttl)
			if err != nil {
				handleStoreError(w, r, cfg.logger, err)
				return
			}

			switch reservation.State {
			case ReservationStateCompleted:
				writeStoredResponse(w, cfg.headerName, keyValue, reservation.Record)
				return
			case ReservationStatePending:
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeInvalidRequest, "request_in_progress", "another request is processing this idempotency key", http.StatusConflict))
				return
			case ReservationStateNew:
				// Continue to handler.
			default:
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeServiceUnavailable, "idempotency_unknown_state", "unexpected idempotency state", http.StatusInternalServerError))
				return
			}

			recorder := newResponseRecorder(w)
			next.ServeHTTP(recorder, r)

			response := Response{
				Status:  recorder.Status(),
				Headers: recorder.HeaderSnapshot(),
				Body:    recorder.Body(),
			}

			if retryableOutcome(response.Status, response.Body) {
				// Transient failures must not be pinned to the key, or every
				// retry would replay the same error. Release the reservation
				// so the next attempt re-executes.
				if err := store.Release(r.Context(), key, fingerprint); err != nil && cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to release key %s after retryable outcome: %v", keyValue, err)
				}
				if err := recorder.Commit(); err != nil && cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to flush response for key %s: %v", keyValue, err)
				}
				return
			}

			if err := store.SaveResponse(r.Context(), key, fingerprint, response, cfg.clock().UTC(), cfg.ttl); err != nil {
				if cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to persist response for key %s: %v", keyValue, err)
				}
				if releaseErr := store.Release(r.Context(), key, fingerprint); releaseErr != nil && cfg.logger != nil {
					cfg.logger.Printf("idempotency: failed to release key %s after save failure: %v", keyValue, releaseErr)
				}
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeServiceUnavailable, "idempotency_store_error", "unable to persist idempotency state", http.StatusInternalServerError))
				return
			}

			if err := recorder.Commit(); err != nil && cfg.logger != nil {
				cfg.logger.Printf("idempotency: failed to flush response for key %s: %v", keyValue, err)
			}
		})
	}
}

// retryableOutcome reports whether a response reflects a transient condition
// the caller is expected to retry: upstream gateway failures, or an optimistic
// concurrency conflict. Such responses are never stored for replay.
func retryableOutcome(status int, body []byte) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	case http.StatusConflict:
		return envelopeCode(body) == "concurrent_modification"
	default:
		return false
	}
}

func envelopeCode(body []byte) string {
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Code
}

func readAndReplayBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if err := r.Body.Close(); err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func handleStoreError(w http.ResponseWriter, r *http.Request, logger Logger, err error) {
	switch {
	case errors.Is(err, ErrFingerprintMismatch):
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeRequestNotIdempotent, "request_not_idempotent", "idempotency key already used for a different request", http.StatusConflict))
	default:
		if logger != nil {
			logger.Printf("idempotency: store error: %v", err)
		}
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.TypeServiceUnavailable, "idempotency_store_error", "unable to process idempotency key", http.StatusInternalServerError))
	}
}

func writeStoredResponse(w http.ResponseWriter, headerName, keyValue string, record Record) {
	headers := headersFromRecord(record.ResponseHeaders)
	for key := range w.Header() {
		w.Header().Del(key)
	}
	for key, values := range headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.Header().Set(headerName, keyValue)
	w.Header().Set(replayHeaderName, "true")

	status := record.ResponseStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(record.ResponseBody) > 0 {
		_, _ = w.Write(record.ResponseBody)
	}
}

type responseRecorder struct {
	parent http.ResponseWriter
	header http.Header
	status int
	body   bytes.Buffer
}

func newResponseRecorder(parent http.ResponseWriter) *responseRecorder {
	recorder := &responseRecorder{
		parent: parent,
		header: make(http.Header),
	}
	for key, values := range parent.Header() {
		copied := make([]string, len(values))
		copy(copied, values)
		recorder.header[key] = copied
	}
	return recorder
}

func (r *responseRecorder) Header() http.Header {
	return r.header
}

func (r *responseRecorder) WriteHeader(status int) {
	if status <= 0 {
		status = http.StatusOK
	}
	r.status = status
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(data)
}

func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) Body() []byte {
	if r.body.Len() == 0 {
		return nil
	}
	return r.body.Bytes()
}

func (r *responseRecorder) HeaderSnapshot() http.Header {
	return cloneHeader(r.header)
}

func (r *responseRecorder) Commit() error {
	dst := r.parent.Header()
	for key := range dst {
		dst.Del(key)
	}
	for key, values := range r.header {
		for _, value := range values {
			dst.Add(key, value)
		}
	}

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	r.parent.WriteHeader(status)
	if r.body.Len() == 0 {
		return nil
	}
	_, err := r.parent.Write(r.body.Bytes())
	return err
}

func cloneHeader(src http.Header) http.Header {
	if len(src) == 0 {
		return http.Header{}
	}
	dst := make(http.Header, len(src))
	for key, values := range src {
		copied := make([]string, len(values))
		copy(copied, values)
		dst[key] = copied
	}
	return dst
}
