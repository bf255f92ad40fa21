package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"taskboard/internal/events"
	"taskboard/internal/logger"

	"go.uber.org/zap"
)

// StreamEvents sends board events to the page as Server-Sent Events. The
// first event is always a full render of the current board.
func (h *TaskHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch, unsubscribe := h.Events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	board := h.Board.View(r.Context())
	if err := writeEvent(w, events.Event{Type: events.TypeRender, Board: &board}); err != nil {
		return
	}
	flusher.Flush()

	logger.Debug("HTTP: event stream opened", zap.String("client_ip", r.RemoteAddr))
	defer logger.Debug("HTTP: event stream closed", zap.String("client_ip", r.RemoteAddr))

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logger.Warn("HTTP: event stream write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
