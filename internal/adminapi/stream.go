package adminapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/cafetal/pkg/logger"
	"github.com/dmitrymomot/cafetal/pkg/notifications"
)

type streamResponse struct {
	api         *API
	recipientID int64
}

func (a *API) stream(r *http.Request) Response {
	if a.feed == nil {
		return Error(errFeedDisabled)
	}
	recipientID, err := recipientParam(r)
	if err != nil {
		return Error(err)
	}
	return streamResponse{api: a, recipientID: recipientID}
}

// Render writes records as server-sent events until the client leaves or the
// feed closes the subscription.
func (s streamResponse) Render(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return Error(errStreamUnsupported).Render(w, r)
	}

	ctx := r.Context()
	sub := s.api.feed.Subscribe(ctx, s.recipientID)
	defer sub.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return err
	}
	flusher.Flush()

	s.api.logger.LogAttrs(ctx, slog.LevelDebug, "stream opened", logger.RecipientID(s.recipientID))
	defer s.api.logger.LogAttrs(ctx, slog.LevelDebug, "stream closed", logger.RecipientID(s.recipientID))

	heartbeat := time.NewTicker(s.api.heartbeat)
	defer heartbeat.Stop()

	messages := sub.Receive(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := writeEvent(w, msg.Data); err != nil {
				return err
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, rec notifications.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %s\nevent: notification\ndata: %s\n\n", rec.ID, data)
	return err
}
