package handler

import (
	"bytes"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/web/templates"
	"github.com/boozedog/ticketflow/internal/workflow"
)

const activityLimit = 50

// Ticket renders the ticket detail page.
func (h *Handler) Ticket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	tk, err := h.board.Get(id)
	if err != nil {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	h.renderTicket(w, r, tk, "")
}

func (h *Handler) renderTicket(w http.ResponseWriter, r *http.Request, tk ticket.Ticket, msg string) {
	data := templates.TicketData{
		Ticket:   tk,
		NoteHTML: renderNote(tk.Note),
		Events:   h.ticketEvents(tk.ID, activityLimit),
		Error:    msg,
		Loc:      h.loc,
	}
	_ = templates.TicketPage(data).Render(r.Context(), w)
}

// renderNote converts a markdown note to HTML. Raw HTML in the note is
// omitted by goldmark's default renderer.
func renderNote(note string) string {
	if strings.TrimSpace(note) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(note), &buf); err != nil {
		return "<pre>" + html.EscapeString(note) + "</pre>"
	}
	return buf.String()
}

// CreateTicket adds a ticket. Form fields are optional; an empty form adds a
// blank row.
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	apply, err := formPatch(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var tk ticket.Ticket
	apply(&tk)
	added, err := h.board.Add(r.Context(), tk)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	done(w, r, ticketPath(added.ID))
}

// UpdateTicket applies the submitted fields to a ticket. Fields missing from
// the form are left alone, so a single-field htmx post edits one column.
func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}

	apply, err := formPatch(r)
	var updated ticket.Ticket
	if err == nil {
		updated, err = h.board.Update(r.Context(), id, apply)
	}
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	case err != nil && isHTMX(r):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		current, getErr := h.board.Get(id)
		if getErr != nil {
			http.Error(w, "Ticket not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		h.renderTicket(w, r, current, err.Error())
		return
	}
	done(w, r, ticketPath(updated.ID))
}

// DeleteTicket removes a ticket and returns to the board.
func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Ticket not found", http.StatusNotFound)
		return
	}
	if err := h.board.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			http.Error(w, "Ticket not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	done(w, r, "/")
}

// formPatch turns the fields present in r's form into an edit. Status and
// priority accept the same aliases as the CLI and are checked up front so a
// bad value rejects the whole edit.
func formPatch(r *http.Request) (func(*ticket.Ticket), error) {
	form := r.PostForm
	var (
		status   ticket.Status
		priority ticket.Priority
		err      error
	)
	if v := form.Get("priority"); v != "" {
		if priority, err = workflow.PriorityFromAlias(v); err != nil {
			return nil, err
		}
	}
	if v := form.Get("status"); v != "" {
		if status, err = workflow.StatusFromAlias(v); err != nil {
			return nil, err
		}
	}

	return func(t *ticket.Ticket) {
		if form.Has("ticketId") {
			t.TicketID = strings.TrimSpace(form.Get("ticketId"))
		}
		if form.Has("title") {
			t.Title = strings.TrimSpace(form.Get("title"))
		}
		if form.Has("owner") {
			t.Owner = strings.TrimSpace(form.Get("owner"))
		}
		if form.Has("note") {
			t.Note = form.Get("note")
		}
		if form.Has("age") {
			t.Age = ticket.ParseAgeInput(form.Get("age"))
		}
		if priority != "" {
			t.Priority = priority
		}
		if status != "" {
			t.Status = status
		}
	}, nil
}

func ticketPath(id int) string {
	return "/ticket/" + strconv.Itoa(id)
}
