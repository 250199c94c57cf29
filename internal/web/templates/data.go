package templates

import (
	"time"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/view"
)

// BoardData is everything the board page renders.
type BoardData struct {
	Tab        view.Tab
	Query      string
	Sort       view.SortKey
	Desc       bool
	Counts     view.TabCounts
	InProgress []ticket.Ticket
	DoneGroups []view.Group
	CanReorder bool
	Undo       board.UndoState
	Pending    *board.PendingReopen
	Loc        *time.Location
}

// TicketData is the ticket detail page.
type TicketData struct {
	Ticket   ticket.Ticket
	NoteHTML string
	Events   []event.Event
	Error    string
	Loc      *time.Location
}
