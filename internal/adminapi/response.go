package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/queue"
	"github.com/dmitrymomot/cafetal/pkg/requestid"
	"github.com/dmitrymomot/cafetal/pkg/validator"
)

// Response renders itself to the client.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Details   map[string][]string `json:"details,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if j.body.Error != nil {
		j.body.Error.RequestID = requestid.FromContext(r.Context())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON responds with data under "data".
func JSON(status int, data any) Response {
	return jsonResponse{status: status, body: Envelope{Data: data}}
}

// JSONWithMeta responds with data and meta.
func JSONWithMeta(status int, data any, meta map[string]any) Response {
	return jsonResponse{status: status, body: Envelope{Data: data, Meta: meta}}
}

// HTTPError is an error with a status code and a machine-readable key.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e *HTTPError) Error() string { return e.Message }

func badRequest(msg string) *HTTPError {
	return &HTTPError{Code: http.StatusBadRequest, Key: "bad_request", Message: msg}
}

var (
	errNotFound          = &HTTPError{Code: http.StatusNotFound, Key: "not_found", Message: "notification not found"}
	errStreamUnsupported = &HTTPError{Code: http.StatusInternalServerError, Key: "stream_unsupported", Message: "streaming is not supported"}
	errFeedDisabled      = &HTTPError{Code: http.StatusNotImplemented, Key: "feed_disabled", Message: "live feed is not enabled"}
	errRateLimited       = &HTTPError{Code: http.StatusTooManyRequests, Key: "rate_limited", Message: "too many notifications, retry later"}
)

// Error maps err to a status code and error body. Unknown errors become a
// 500 without leaking their text.
func Error(err error) Response {
	status, detail := classify(err)
	return jsonResponse{status: status, body: Envelope{Error: detail}}
}

func classify(err error) (int, *ErrorDetail) {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, &ErrorDetail{Code: httpErr.Key, Message: httpErr.Message}
	case validator.IsValidationError(err):
		details := make(map[string][]string)
		for _, ve := range validator.ExtractValidationErrors(err) {
			details[ve.Field] = append(details[ve.Field], ve.Message)
		}
		return http.StatusUnprocessableEntity, &ErrorDetail{Code: "validation_error", Message: "invalid notification", Details: details}
	case errors.Is(err, notifications.ErrRecordNotFound):
		return http.StatusNotFound, &ErrorDetail{Code: "not_found", Message: "notification not found"}
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, &ErrorDetail{Code: "queue_full", Message: "notification queue is full, retry later"}
	case errors.Is(err, queue.ErrPoolStopped):
		return http.StatusServiceUnavailable, &ErrorDetail{Code: "unavailable", Message: "notification queue is shutting down"}
	default:
		return http.StatusInternalServerError, &ErrorDetail{Code: "internal_error", Message: http.StatusText(http.StatusInternalServerError)}
	}
}
