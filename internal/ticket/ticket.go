package ticket

import (
	"slices"
	"strconv"
	"time"
)

// Status represents the workflow status of a ticket.
type Status string

const (
	StatusPending   Status = "Pendente"
	StatusInService Status = "Em atendimento"
	StatusAwaiting  Status = "Aguardando resposta"
	StatusClosed    Status = "Encerrado"
	StatusMoved     Status = "Movido"
	StatusUnblocked Status = "Desbloqueado"
)

// InProgressStatuses are the statuses shown on the "Em andamento" tab.
var InProgressStatuses = []Status{StatusPending, StatusInService, StatusAwaiting}

// DoneStatuses are the statuses shown on the "Finalizados" tab.
var DoneStatuses = []Status{StatusClosed, StatusMoved, StatusUnblocked}

// ValidStatuses is the set of all valid status values.
var ValidStatuses = map[Status]bool{
	StatusPending:   true,
	StatusInService: true,
	StatusAwaiting:  true,
	StatusClosed:    true,
	StatusMoved:     true,
	StatusUnblocked: true,
}

// IsInProgress reports whether s belongs to the in-progress set.
func IsInProgress(s Status) bool {
	return slices.Contains(InProgressStatuses, s)
}

// IsDone reports whether s belongs to the done set.
func IsDone(s Status) bool {
	return slices.Contains(DoneStatuses, s)
}

// Priority is the ticket severity.
type Priority string

const (
	PriorityLow      Priority = "Baixa"
	PriorityMedium   Priority = "Média"
	PriorityHigh     Priority = "Alta"
	PriorityIncident Priority = "Incidente"
)

// DefaultPriority is the lowest severity, used for new and unrecognized tickets.
const DefaultPriority = PriorityLow

// ValidPriorities is the set of all valid priority values.
var ValidPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityIncident: true,
}

// Rank returns the severity rank (Baixa = 1 ... Incidente = 4, unknown = 0).
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityIncident:
		return 4
	default:
		return 0
	}
}

// ComparePriority orders a before b when a is more severe. Use it as a sort
// comparator for a highest-first listing.
func ComparePriority(a, b Priority) int {
	return b.Rank() - a.Rank()
}

// Ticket is a single row on the board.
//
// Timestamps are milliseconds since the Unix epoch, matching the persisted blob.
type Ticket struct {
	ID         int      `json:"id"`
	TicketID   string   `json:"ticketId,omitempty"`
	Title      string   `json:"title"`
	Owner      string   `json:"owner"`
	Priority   Priority `json:"priority"`
	Status     Status   `json:"status"`
	Age        int      `json:"age"`
	OrderIndex int      `json:"orderIndex"`
	LastSync   int64    `json:"lastSync,omitempty"`
	ClosedAt   *int64   `json:"closedAt,omitempty"`
	Note       string   `json:"note"`
}

// Key returns the merge key: the external ticket ID when present, otherwise a
// local-only key that no sync record can produce.
func (t Ticket) Key() string {
	if t.TicketID != "" {
		return t.TicketID
	}
	return LocalKey(t.ID)
}

// LocalKey is the merge key used for tickets without an external ID.
func LocalKey(id int) string {
	return "local-" + strconv.Itoa(id)
}

// ClosedTime returns closedAt as a time.Time.
func (t Ticket) ClosedTime() (time.Time, bool) {
	if t.ClosedAt == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*t.ClosedAt), true
}

// Millis converts a time to the millisecond timestamps stored on tickets.
func Millis(ts time.Time) int64 {
	return ts.UnixMilli()
}

// NewEmpty returns the skeleton ticket created by an explicit add.
func NewEmpty(id, orderIndex int, now time.Time) Ticket {
	return Ticket{
		ID:         id,
		Priority:   DefaultPriority,
		Status:     StatusPending,
		OrderIndex: orderIndex,
		LastSync:   Millis(now),
	}
}

// ApplyStatus moves t to status s and keeps closedAt consistent with it.
func ApplyStatus(t *Ticket, s Status, now time.Time) {
	was := t.Status
	t.Status = s

	switch {
	case IsDone(s) && (!IsDone(was) || t.ClosedAt == nil):
		ms := Millis(now)
		t.ClosedAt = &ms
	case !IsDone(s):
		t.ClosedAt = nil
	}
}

// NextID returns one past the largest ID, or 1 for an empty board.
func NextID(tickets []Ticket) int {
	next := 1
	for _, t := range tickets {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return next
}

// NextOrderIndex returns one past the largest orderIndex, or 0 for an empty board.
func NextOrderIndex(tickets []Ticket) int {
	if len(tickets) == 0 {
		return 0
	}
	maxIdx := tickets[0].OrderIndex
	for _, t := range tickets[1:] {
		maxIdx = max(maxIdx, t.OrderIndex)
	}
	return maxIdx + 1
}

// SortByOrder sorts tickets by orderIndex, keeping insertion order for ties.
func SortByOrder(tickets []Ticket) {
	slices.SortStableFunc(tickets, func(a, b Ticket) int {
		return a.OrderIndex - b.OrderIndex
	})
}

// Clone returns a deep copy of tickets.
func Clone(tickets []Ticket) []Ticket {
	if tickets == nil {
		return nil
	}
	out := make([]Ticket, len(tickets))
	for i, t := range tickets {
		if t.ClosedAt != nil {
			ms := *t.ClosedAt
			t.ClosedAt = &ms
		}
		out[i] = t
	}
	return out
}
