package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepAliveInterval keeps idle event streams from being reaped by proxies.
var keepAliveInterval = 15 * time.Second

// eventStream writes server-sent events to one client.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *eventStream) keepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// compositionEventsHandler streams the session state, starting with the
// current snapshot. A slow client skips to the latest state.
func compositionEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream, ok := newEventStream(w)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		snaps, unsubscribe := cfg.Studio.Subscribe()
		defer unsubscribe()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				if err := stream.send("composition", SnapshotToState(snap)); err != nil {
					return
				}
			case <-ticker.C:
				if err := stream.keepAlive(); err != nil {
					return
				}
			}
		}
	}
}

// projectEventsHandler streams the ordered project list after every change,
// starting with the current list.
func projectEventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream, ok := newEventStream(w)
		if !ok {
			WriteError(w, http.StatusInternalServerError, "streaming unsupported", "INTERNAL_ERROR")
			return
		}

		lists := cfg.Projects.Watch(r.Context())

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case list, ok := <-lists:
				if !ok {
					return
				}
				if err := stream.send("projects", ProjectsToResponse(list)); err != nil {
					return
				}
			case <-ticker.C:
				if err := stream.keepAlive(); err != nil {
					return
				}
			}
		}
	}
}
