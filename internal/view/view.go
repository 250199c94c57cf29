// Package view projects the board into the two tabs the UI shows.
package view

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// Tab names a board tab.
type Tab string

const (
	TabInProgress Tab = "andamento"
	TabDone       Tab = "finalizados"
)

// ParseTab maps a query value to a tab, defaulting to in-progress.
func ParseTab(s string) Tab {
	if Tab(strings.ToLower(strings.TrimSpace(s))) == TabDone {
		return TabDone
	}
	return TabInProgress
}

// Label is the tab title without its count.
func (t Tab) Label() string {
	if t == TabDone {
		return "Finalizados"
	}
	return "Em andamento"
}

// Matches reports whether t contains query in its title, owner, priority or
// external ID, ignoring case. A blank query matches everything.
func Matches(t ticket.Ticket, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{t.Title, t.Owner, string(t.Priority), t.TicketID} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// InProgress returns the matching in-progress tickets in manual order.
func InProgress(tickets []ticket.Ticket, query string) []ticket.Ticket {
	out := filter(tickets, query, ticket.IsInProgress)
	ticket.SortByOrder(out)
	return out
}

// Done returns the matching done tickets, most recently closed first. Tickets
// without a close time sort last.
func Done(tickets []ticket.Ticket, query string) []ticket.Ticket {
	out := filter(tickets, query, ticket.IsDone)
	slices.SortStableFunc(out, compareClosedDesc)
	return out
}

func filter(tickets []ticket.Ticket, query string, keep func(ticket.Status) bool) []ticket.Ticket {
	out := make([]ticket.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if keep(t.Status) && Matches(t, query) {
			out = append(out, t)
		}
	}
	return ticket.Clone(out)
}

func compareClosedDesc(a, b ticket.Ticket) int {
	switch {
	case a.ClosedAt == nil && b.ClosedAt == nil:
		return 0
	case a.ClosedAt == nil:
		return 1
	case b.ClosedAt == nil:
		return -1
	}
	return cmp.Compare(*b.ClosedAt, *a.ClosedAt)
}

// TabCounts are the tab badge numbers.
type TabCounts struct {
	InProgress int
	Done       int
}

// Counts tallies the matching tickets per tab.
func Counts(tickets []ticket.Ticket, query string) TabCounts {
	var c TabCounts
	for _, t := range tickets {
		if !Matches(t, query) {
			continue
		}
		switch {
		case ticket.IsInProgress(t.Status):
			c.InProgress++
		case ticket.IsDone(t.Status):
			c.Done++
		}
	}
	return c
}

// Group is a run of done tickets closed on the same day.
type Group struct {
	Label   string
	Tickets []ticket.Ticket
}

// NoDateLabel heads the group of done tickets without a close time.
const NoDateLabel = "Sem data"

var monthsPTBR = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// DayLabel names the calendar day of ts relative to now, both in loc.
func DayLabel(ts, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	ts, now = ts.In(loc), now.In(loc)
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch {
	case day.Equal(today):
		return "Hoje"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Ontem"
	case day.Year() != today.Year():
		return fmt.Sprintf("%02d de %s de %d", day.Day(), monthsPTBR[day.Month()-1], day.Year())
	default:
		return fmt.Sprintf("%02d de %s", day.Day(), monthsPTBR[day.Month()-1])
	}
}

// GroupDone buckets done tickets by close day. Input order is kept inside
// each group; the undated group always comes last.
func GroupDone(tickets []ticket.Ticket, now time.Time, loc *time.Location) []Group {
	var groups []Group
	var undated []ticket.Ticket
	index := map[string]int{}

	for _, t := range tickets {
		closed, ok := t.ClosedTime()
		if !ok {
			undated = append(undated, t)
			continue
		}
		label := DayLabel(closed, now, loc)
		i, seen := index[label]
		if !seen {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Tickets = append(groups[i].Tickets, t)
	}
	if len(undated) > 0 {
		groups = append(groups, Group{Label: NoDateLabel, Tickets: undated})
	}
	return groups
}

// SortKey names a sortable column.
type SortKey string

const (
	SortOrder    SortKey = "order"
	SortID       SortKey = "id"
	SortTicketID SortKey = "ticket"
	SortTitle    SortKey = "title"
	SortOwner    SortKey = "owner"
	SortPriority SortKey = "priority"
	SortAge      SortKey = "age"
	SortClosed   SortKey = "closed"
)

// ParseSortKey validates a column name. Blank means manual order.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return SortOrder, nil
	case SortOrder, SortID, SortTicketID, SortTitle, SortOwner, SortPriority, SortAge, SortClosed:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Sort orders tickets in place by key. Ties keep their current order.
func Sort(tickets []ticket.Ticket, key SortKey, desc bool) {
	compare := comparator(key)
	slices.SortStableFunc(tickets, func(a, b ticket.Ticket) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func comparator(key SortKey) func(a, b ticket.Ticket) int {
	switch key {
	case SortID:
		return func(a, b ticket.Ticket) int { return cmp.Compare(a.ID, b.ID) }
	case SortTicketID:
		return func(a, b ticket.Ticket) int { return compareTicketID(a.TicketID, b.TicketID) }
	case SortTitle:
		return func(a, b ticket.Ticket) int { return compareFold(a.Title, b.Title) }
	case SortOwner:
		return func(a, b ticket.Ticket) int { return compareFold(a.Owner, b.Owner) }
	case SortPriority:
		return func(a, b ticket.Ticket) int { return ticket.ComparePriority(b.Priority, a.Priority) }
	case SortAge:
		return func(a, b ticket.Ticket) int { return cmp.Compare(a.Age, b.Age) }
	case SortClosed:
		return func(a, b ticket.Ticket) int { return -compareClosedDesc(a, b) }
	default:
		return func(a, b ticket.Ticket) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) }
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// OTRS ticket numbers are long digit strings; compare them numerically when
// both parse.
func compareTicketID(a, b string) int {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}

// CanReorder reports whether drag-and-drop is allowed. Positions in a
// filtered list do not map onto the full manual order, so reordering is only
// offered on the unfiltered in-progress tab.
func CanReorder(tab Tab, query string) bool {
	return tab == TabInProgress && strings.TrimSpace(query) == ""
}

// Reorder returns ids with the element at from moved to position to. Out of
// range positions return an unchanged copy.
func Reorder(ids []int, from, to int) []int {
	out := slices.Clone(ids)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	id := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, id)
}

// IDs returns the board IDs of tickets in order.
func IDs(tickets []ticket.Ticket) []int {
	out := make([]int, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}
