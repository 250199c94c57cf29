package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/boozedog/ticketflow/internal/web/sse"
)

// Events handles the SSE endpoint. Each broker message is written as a named
// event so htmx can route refresh and undo countdown separately.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.broker.Subscribe()
	defer h.broker.Unsubscribe(ch)

	if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	// Heartbeat detects stale connections when no events are flowing.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := writeMessage(w, msg); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeMessage(w http.ResponseWriter, msg sse.Message) error {
	data := msg.Data
	if data == "" {
		data = msg.Name
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Name, data)
	return err
}
