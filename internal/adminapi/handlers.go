package adminapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/cafetal/pkg/notifications"
	"github.com/dmitrymomot/cafetal/pkg/validator"
)

const maxBodyBytes = 1 << 20

type notifyRequest struct {
	RecipientID  int64          `json:"recipient_id"`
	Channel      string         `json:"channel"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	Payload      map[string]any `json:"payload"`
	TemplateName string         `json:"template_name"`
}

func (req notifyRequest) event() notifications.Event {
	return notifications.Event{
		RecipientID:  req.RecipientID,
		Channel:      notifications.Channel(req.Channel),
		Title:        req.Title,
		Message:      req.Message,
		Payload:      req.Payload,
		TemplateName: req.TemplateName,
	}
}

type notifyResult struct {
	Status  string `json:"status"` // queued, delivered or failed
	Success bool   `json:"success"`
}

func (a *API) createNotification(r *http.Request) Response {
	var req notifyRequest
	if err := decodeJSON(r, &req); err != nil {
		return Error(err)
	}
	ev := req.event()
	if err := ev.Validate(); err != nil {
		return Error(err)
	}

	wait := r.URL.Query().Get("wait") == "true"
	if a.async == nil {
		return JSON(http.StatusOK, result(a.orch.Notify(r.Context(), ev)))
	}

	future, err := a.async.Notify(r.Context(), ev)
	if err != nil {
		return Error(err)
	}
	if !wait {
		return JSON(http.StatusAccepted, notifyResult{Status: "queued"})
	}
	ok, err := future.AwaitContext(r.Context())
	if err != nil {
		return Error(err)
	}
	return JSON(http.StatusOK, result(ok))
}

func result(ok bool) notifyResult {
	if ok {
		return notifyResult{Status: "delivered", Success: true}
	}
	return notifyResult{Status: "failed"}
}

func (a *API) getNotification(r *http.Request) Response {
	rec, err := a.orch.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return Error(err)
	}
	return JSON(http.StatusOK, rec)
}

func (a *API) testEmail(r *http.Request) Response {
	res := a.orch.TestEmailConfiguration(r.Context())
	return JSON(http.StatusOK, res)
}

func (a *API) listNotifications(r *http.Request) Response {
	recipientID, err := recipientParam(r)
	if err != nil {
		return Error(err)
	}
	opts, err := listOptions(r)
	if err != nil {
		return Error(err)
	}
	records, err := a.orch.ListForUser(r.Context(), recipientID, opts)
	if err != nil {
		return Error(err)
	}
	if records == nil {
		records = []notifications.Record{}
	}
	return JSONWithMeta(http.StatusOK, records, map[string]any{
		"limit":  opts.Limit,
		"offset": opts.Offset,
		"count":  len(records),
	})
}

func (a *API) unreadCount(r *http.Request) Response {
	recipientID, err := recipientParam(r)
	if err != nil {
		return Error(err)
	}
	n, err := a.orch.UnreadCount(r.Context(), recipientID)
	if err != nil {
		return Error(err)
	}
	return JSON(http.StatusOK, map[string]int{"unread": n})
}

func (a *API) markRead(r *http.Request) Response {
	recipientID, err := recipientParam(r)
	if err != nil {
		return Error(err)
	}
	if !a.orch.MarkRead(r.Context(), chi.URLParam(r, "id"), recipientID) {
		return Error(errNotFound)
	}
	return JSON(http.StatusOK, map[string]bool{"read": true})
}

func recipientParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "recipientID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, validator.ValidationErrors{{Field: "recipient_id", Message: "must be a positive integer"}}
	}
	return id, nil
}

func listOptions(r *http.Request) (notifications.ListOptions, error) {
	q := r.URL.Query()
	opts := notifications.ListOptions{
		Channel: notifications.Channel(q.Get("channel")),
		Limit:   notifications.DefaultListLimit,
	}

	var errs validator.ValidationErrors
	if opts.Channel != "" && !opts.Channel.Valid() {
		errs = append(errs, validator.ValidationError{Field: "channel", Message: "unknown channel"})
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, validator.ValidationError{Field: "limit", Message: "must be a positive integer"})
		}
		opts.Limit = min(n, MaxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, validator.ValidationError{Field: "offset", Message: "must not be negative"})
		}
		opts.Offset = n
	}
	if len(errs) > 0 {
		return opts, errs
	}
	return opts, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}
