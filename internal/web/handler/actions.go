package handler

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/boozedog/ticketflow/internal/view"
)

type reorderRequest struct {
	IDs []int  `json:"ids"`
	Q   string `json:"q,omitempty"`
}

// Reorder stores a new manual order for the in-progress tab. It takes the
// in-progress ids in their new order, either as repeated "ids" form values or
// as JSON {"ids": [...]}; tickets left out keep their relative order after
// the listed ones. A reorder sent while a search is active is refused.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	req, err := decodeIDs(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !view.CanReorder(view.TabInProgress, req.Q) {
		http.Error(w, "reordering is disabled while searching", http.StatusConflict)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "no ids", http.StatusBadRequest)
		return
	}
	if err := h.board.Reorder(r.Context(), req.IDs); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the board and opens the undo window.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.board.Clear(r.Context()); err != nil {
		slog.Error("clear board", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	done(w, r, backTo(r))
}

// Undo restores the last cleared board while the window is open.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	ok, err := h.board.Undo(r.Context())
	if err != nil {
		slog.Error("undo clear", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok && isHTMX(r) {
		http.Error(w, "nothing to undo", http.StatusConflict)
		return
	}
	done(w, r, backTo(r))
}

// decodeIDs reads a list of ticket ids from a JSON body or a form.
func decodeIDs(r *http.Request) (reorderRequest, error) {
	var req reorderRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, err
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.Q = r.PostForm.Get("q")
	for _, v := range r.PostForm["ids"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return req, err
			}
			req.IDs = append(req.IDs, id)
		}
	}
	return req, nil
}
