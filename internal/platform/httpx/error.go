package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Error type families used in the ACP error envelope.
const (
	TypeInvalidRequest       = "invalid_request"
	TypeRequestNotIdempotent = "request_not_idempotent"
	TypeOutOfStock           = "out_of_stock"
	TypePaymentDeclined      = "payment_declined"
	TypeServiceUnavailable   = "service_unavailable"
)

// Error represents the canonical JSON error envelope returned by the API.
// The wire shape is {"error": {"type", "code", "message", "param"}}.
type Error struct {
	Type    string
	Code    string
	Message string
	Param   string
	Status  int
}

// NewError constructs an Error with the provided type family, code and status.
func NewError(errType, code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if errType == "" {
		errType = TypeInvalidRequest
	}
	return Error{
		Type:    sanitize(errType, 80),
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithParam sets the JSONPath-style pointer to the offending request field.
func (e Error) WithParam(param string) Error {
	e.Param = sanitize(param, 120)
	return e
}

type errorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// WriteError writes the structured error as JSON to the provided response writer.
func WriteError(_ context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	envelope := errorEnvelope{Error: errorBody{
		Type:    err.Type,
		Code:    err.Code,
		Message: err.Message,
		Param:   err.Param,
	}}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope)
}

// WriteJSON serialises the payload with the given status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
