// Package event records board commands in a daily JSONL activity log.
package event

import (
	"time"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// Event type constants.
const (
	TicketCreated   = "ticket.created"
	TicketUpdated   = "ticket.updated"
	TicketDeleted   = "ticket.deleted"
	TicketReordered = "ticket.reordered"

	SyncMerged   = "sync.merged"
	SyncConflict = "sync.conflict"
	SyncReopened = "sync.reopened"
	SyncDeclined = "sync.declined"

	BoardCleared     = "board.cleared"
	BoardRestored    = "board.restored"
	BoardUndoExpired = "board.undo-expired"
)

// Actors.
const (
	ActorWeb    = "web"
	ActorCLI    = "cli"
	ActorSync   = "sync"
	ActorSystem = "system"
)

// StatusEvent returns the event type recorded for a move to s, such as
// "status.encerrado".
func StatusEvent(s ticket.Status) string {
	return "status." + statusSlugs[s]
}

var statusSlugs = map[ticket.Status]string{
	ticket.StatusPending:   "pendente",
	ticket.StatusInService: "em-atendimento",
	ticket.StatusAwaiting:  "aguardando-resposta",
	ticket.StatusClosed:    "encerrado",
	ticket.StatusMoved:     "movido",
	ticket.StatusUnblocked: "desbloqueado",
}

// Event is a single line in the activity log.
type Event struct {
	ID     string         `json:"id"`
	TS     time.Time      `json:"ts"`
	Event  string         `json:"event"`
	Ticket int            `json:"ticket,omitempty"`
	Actor  string         `json:"actor"`
	Data   map[string]any `json:"data,omitempty"`
}
