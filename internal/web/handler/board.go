package handler

import (
	"net/http"

	"github.com/boozedog/ticketflow/internal/view"
	"github.com/boozedog/ticketflow/internal/web/templates"
)

// Board renders the board page.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	_ = templates.BoardPage(h.buildBoardData(r)).Render(r.Context(), w)
}

// PartialBoard renders the #board fragment for htmx swaps.
func (h *Handler) PartialBoard(w http.ResponseWriter, r *http.Request) {
	_ = templates.BoardPartial(h.buildBoardData(r)).Render(r.Context(), w)
}

func (h *Handler) buildBoardData(r *http.Request) templates.BoardData {
	q := r.URL.Query()
	tab := view.ParseTab(q.Get("tab"))
	query := q.Get("q")
	sortKey, err := view.ParseSortKey(q.Get("sort"))
	if err != nil {
		sortKey = view.SortOrder
	}
	desc := q.Get("desc") == "1"

	tickets := h.board.Tickets()
	data := templates.BoardData{
		Tab:        tab,
		Query:      query,
		Sort:       sortKey,
		Desc:       desc,
		Counts:     view.Counts(tickets, query),
		CanReorder: view.CanReorder(tab, query) && sortKey == view.SortOrder,
		Undo:       h.board.UndoStatus(r.Context()),
		Pending:    h.board.PendingReopen(),
		Loc:        h.loc,
	}

	if tab == view.TabDone {
		finished := view.Done(tickets, query)
		if sortKey != view.SortOrder {
			view.Sort(finished, sortKey, desc)
		}
		data.DoneGroups = view.GroupDone(finished, h.now(), h.loc)
		return data
	}

	data.InProgress = view.InProgress(tickets, query)
	if sortKey != view.SortOrder {
		view.Sort(data.InProgress, sortKey, desc)
	}
	return data
}
