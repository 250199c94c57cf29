package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/web/sse"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	board     *board.Board
	eventsDir string
	broker    *sse.Broker
	loc       *time.Location
	now       func() time.Time
}

// New creates a new Handler. A nil loc means the local time zone.
func New(b *board.Board, eventsDir string, broker *sse.Broker, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		board:     b,
		eventsDir: eventsDir,
		broker:    broker,
		loc:       loc,
		now:       time.Now,
	}
}

// ticketEvents returns the activity of one ticket, oldest first, capped at limit.
func (h *Handler) ticketEvents(id, limit int) []event.Event {
	if h.eventsDir == "" {
		return nil
	}
	events, err := event.QueryEvents(h.eventsDir, event.Query{Ticket: id, Limit: limit})
	if err != nil {
		return nil
	}
	return events
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// done finishes a mutating request: htmx callers get 204 and wait for the
// sse refresh, plain form posts are redirected.
func done(w http.ResponseWriter, r *http.Request, location string) {
	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil && id > 0
}

// backTo returns the board URL the request came from, or "/".
func backTo(r *http.Request) string {
	if ref := r.Referer(); ref != "" {
		if u, err := r.URL.Parse(ref); err == nil && u.Host == r.Host && u.Path == "/" {
			return u.RequestURI()
		}
	}
	return "/"
}
