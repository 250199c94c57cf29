package otrs

import (
	"strings"
	"time"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// Map converts scraped records into candidate tickets against the current
// board. It is pure: current is never modified.
//
// A record whose ID is already on the board carries over that ticket's
// identity, status, order, note and close time, refreshing only the scraped
// fields. Other records get fresh IDs and order indexes past the current
// maximum, in payload order. Records without an ID are skipped; they could
// never be matched by a later sync.
func Map(records []ExternalTicket, current []ticket.Ticket, table PriorityTable, now time.Time) []ticket.Ticket {
	byID := make(map[string]ticket.Ticket, len(current))
	for _, t := range current {
		if t.TicketID != "" {
			byID[t.TicketID] = t
		}
	}

	nextID := ticket.NextID(current)
	nextOrder := ticket.NextOrderIndex(current)
	stamp := ticket.Millis(now)

	candidates := make([]ticket.Ticket, 0, len(records))
	for _, rec := range records {
		extID := strings.TrimSpace(rec.TicketID)
		if extID == "" {
			continue
		}

		if existing, ok := byID[extID]; ok {
			c := ticket.Clone([]ticket.Ticket{existing})[0]
			c.Title = rec.Title
			c.Owner = rec.Owner
			c.Priority = table.Translate(rec.Priority)
			c.Age = int(rec.Age)
			c.LastSync = stamp
			candidates = append(candidates, c)
			continue
		}

		c := ticket.Ticket{
			ID:         nextID,
			TicketID:   extID,
			Title:      rec.Title,
			Owner:      rec.Owner,
			Priority:   table.Translate(rec.Priority),
			Status:     ticket.StatusPending,
			Age:        int(rec.Age),
			OrderIndex: nextOrder,
			LastSync:   stamp,
		}
		nextID++
		nextOrder++
		// Later duplicates in the same batch refresh this identity.
		byID[extID] = c
		candidates = append(candidates, c)
	}

	return candidates
}
