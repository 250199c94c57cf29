package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/otrs"
	"github.com/boozedog/ticketflow/internal/ticket"
)

const maxSyncBody = 4 << 20

type syncResponse struct {
	Inserted  int             `json:"inserted"`
	Updated   int             `json:"updated"`
	Conflicts []ticket.Ticket `json:"conflicts"`
}

type reopenResponse struct {
	Reopened []ticket.Ticket `json:"reopened"`
}

// Sync accepts the scraped ticket list posted by the browser extension.
// Messages of another type are acknowledged with 202 and ignored.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSyncBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	msg, err := otrs.DecodeMessage(data)
	if errors.Is(err, otrs.ErrIgnoredMessage) {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.board.Sync(board.WithActor(r.Context(), event.ActorSync), msg.Payload)
	if err != nil {
		slog.Error("sync", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	conflicts := res.Conflicts
	if conflicts == nil {
		conflicts = []ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, syncResponse{Inserted: res.Inserted, Updated: res.Updated, Conflicts: conflicts})
}

// ReopenConfirm reopens the selected conflicting tickets.
func (h *Handler) ReopenConfirm(w http.ResponseWriter, r *http.Request) {
	req, err := decodeIDs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reopened, err := h.board.ConfirmReopen(r.Context(), req.IDs)
	if errors.Is(err, board.ErrNoPendingReopen) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if wantsJSON(r) {
		if reopened == nil {
			reopened = []ticket.Ticket{}
		}
		writeJSON(w, http.StatusOK, reopenResponse{Reopened: reopened})
		return
	}
	done(w, r, backTo(r))
}

// ReopenDecline keeps every conflicting ticket finished.
func (h *Handler) ReopenDecline(w http.ResponseWriter, r *http.Request) {
	h.board.DeclineReopen(r.Context())
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	done(w, r, backTo(r))
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Content-Type") == "application/json" ||
		r.Header.Get("Accept") == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write json", "err", err)
	}
}
