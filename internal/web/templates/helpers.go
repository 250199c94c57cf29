package templates

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/view"
)

// relativeTime returns a short pt-BR description of how long ago t was.
func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "agora"
	case d < 2*time.Minute:
		return "há 1 minuto"
	case d < time.Hour:
		return fmt.Sprintf("há %d minutos", int(d.Minutes()))
	case d < 2*time.Hour:
		return "há 1 hora"
	case d < 24*time.Hour:
		return fmt.Sprintf("há %d horas", int(d.Hours()))
	case d < 48*time.Hour:
		return "ontem"
	case d < 7*24*time.Hour:
		return fmt.Sprintf("há %d dias", int(d.Hours()/24))
	default:
		return t.Format("02/01/2006 15:04")
	}
}

func ticketURL(id int) string {
	return "/ticket/" + strconv.Itoa(id)
}

// boardURL builds a board link keeping the current search and sort.
func boardURL(base string, tab view.Tab, q string, sort view.SortKey, desc bool) string {
	v := url.Values{}
	v.Set("tab", string(tab))
	if q != "" {
		v.Set("q", q)
	}
	if sort != "" && sort != view.SortOrder {
		v.Set("sort", string(sort))
		if desc {
			v.Set("desc", "1")
		}
	}
	return base + "?" + v.Encode()
}

// priorityLevel is the CSS hook for a priority badge.
func priorityLevel(p ticket.Priority) string {
	switch p {
	case ticket.PriorityMedium:
		return "media"
	case ticket.PriorityHigh:
		return "alta"
	case ticket.PriorityIncident:
		return "incidente"
	default:
		return "baixa"
	}
}

func closedLabel(t ticket.Ticket, loc *time.Location) string {
	ts, ok := t.ClosedTime()
	if !ok {
		return ""
	}
	return ts.In(location(loc)).Format("15:04")
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

var eventLabels = map[string]string{
	event.TicketCreated:    "criado",
	event.TicketUpdated:    "editado",
	event.TicketDeleted:    "excluído",
	event.TicketReordered:  "reordenado",
	event.SyncMerged:       "sincronizado",
	event.SyncConflict:     "conflito de sincronização",
	event.SyncReopened:     "reaberto pela sincronização",
	event.SyncDeclined:     "reabertura recusada",
	event.BoardCleared:     "quadro limpo",
	event.BoardRestored:    "limpeza desfeita",
	event.BoardUndoExpired: "prazo para desfazer expirou",
}

// eventLabel describes an activity entry in pt-BR.
func eventLabel(e event.Event) string {
	if l, ok := eventLabels[e.Event]; ok {
		return l
	}
	if s, ok := strings.CutPrefix(e.Event, "status."); ok {
		return "status: " + strings.ReplaceAll(s, "-", " ")
	}
	return e.Event
}

var allStatuses = append(append([]ticket.Status{}, ticket.InProgressStatuses...), ticket.DoneStatuses...)

var allPriorities = []ticket.Priority{
	ticket.PriorityLow, ticket.PriorityMedium, ticket.PriorityHigh, ticket.PriorityIncident,
}

func tabCount(c view.TabCounts, tab view.Tab) string {
	if tab == view.TabDone {
		return strconv.Itoa(c.Done)
	}
	return strconv.Itoa(c.InProgress)
}

// sortURL links a column header: the active column flips direction, others
// start ascending.
func sortURL(d BoardData, key view.SortKey) string {
	return boardURL("/", d.Tab, d.Query, key, key == d.Sort && !d.Desc)
}

func sortMark(d BoardData, key view.SortKey) string {
	switch {
	case key != d.Sort:
		return ""
	case d.Desc:
		return " ▼"
	default:
		return " ▲"
	}
}

func ticketTitle(t ticket.Ticket) string {
	if t.TicketID == "" {
		return "Ticket sem número"
	}
	return "Ticket " + t.TicketID
}

func newestFirst(events []event.Event) []event.Event {
	out := slices.Clone(events)
	slices.Reverse(out)
	return out
}

type column struct {
	key   view.SortKey
	label string
}

var inProgressColumns = []column{
	{view.SortID, "ID"},
	{view.SortTicketID, "Ticket"},
	{view.SortTitle, "Título"},
	{view.SortOwner, "Responsável"},
	{view.SortPriority, "Prioridade"},
	{"", "Status"},
	{view.SortAge, "Idade"},
}

var doneColumns = []column{
	{view.SortID, "ID"},
	{view.SortTicketID, "Ticket"},
	{view.SortTitle, "Título"},
	{view.SortOwner, "Responsável"},
	{view.SortPriority, "Prioridade"},
	{"", "Status"},
	{view.SortClosed, "Encerrado"},
}
