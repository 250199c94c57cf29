// Package reconcile merges externally synced candidates into the board.
//
// Reconciliation never reopens a finished ticket on its own. A candidate that
// targets a done ticket is reported as a conflict unless the caller lists the
// ticket's ID in reopenIDs, typically after asking the user.
package reconcile

import (
	"slices"
	"time"

	"github.com/boozedog/ticketflow/internal/ticket"
)

// Result is the outcome of one reconcile pass.
type Result struct {
	// Tickets is the merged board in orderIndex order.
	Tickets []ticket.Ticket
	// Conflicts are the current done tickets a candidate tried to update
	// without permission to reopen them. They are left untouched in Tickets.
	Conflicts []ticket.Ticket

	Inserted int
	Updated  int
	Reopened int
}

// Changed reports whether the pass produced a different board.
func (r Result) Changed() bool {
	return r.Inserted+r.Updated+r.Reopened > 0
}

// ConflictIDs returns the board IDs of the conflicting tickets.
func (r Result) ConflictIDs() []int {
	ids := make([]int, len(r.Conflicts))
	for i, c := range r.Conflicts {
		ids[i] = c.ID
	}
	return ids
}

// Reconcile merges candidates into current. Neither input is modified.
func Reconcile(current, candidates []ticket.Ticket, reopenIDs []int, now time.Time) Result {
	work := ticket.Clone(current)
	if work == nil {
		work = []ticket.Ticket{}
	}

	byKey := make(map[string]int, len(work))
	usedIDs := make(map[int]bool, len(work))
	for i, t := range work {
		byKey[t.Key()] = i
		usedIDs[t.ID] = true
	}
	reopen := make(map[int]bool, len(reopenIDs))
	for _, id := range reopenIDs {
		reopen[id] = true
	}

	nextOrder := ticket.NextOrderIndex(work)
	stamp := ticket.Millis(now)
	conflicted := make(map[int]bool)

	var res Result
	for _, c := range candidates {
		i, ok := byKey[c.Key()]
		if !ok {
			t := ticket.Clone([]ticket.Ticket{c})[0]
			if t.ID <= 0 || usedIDs[t.ID] {
				t.ID = ticket.NextID(work)
			}
			t.OrderIndex = nextOrder
			nextOrder++
			t.LastSync = stamp
			if !ticket.ValidStatuses[t.Status] {
				t.Status = ticket.StatusPending
			}

			usedIDs[t.ID] = true
			byKey[t.Key()] = len(work)
			work = append(work, t)
			res.Inserted++
			continue
		}

		existing := &work[i]
		if ticket.IsDone(existing.Status) {
			if !reopen[existing.ID] {
				if !conflicted[existing.ID] {
					conflicted[existing.ID] = true
					res.Conflicts = append(res.Conflicts, ticket.Clone([]ticket.Ticket{*existing})[0])
				}
				continue
			}
			refresh(existing, c, stamp)
			existing.Status = ticket.StatusPending
			existing.ClosedAt = nil
			existing.OrderIndex = nextOrder
			nextOrder++
			res.Reopened++
			continue
		}

		refresh(existing, c, stamp)
		res.Updated++
	}

	ticket.SortByOrder(work)
	res.Tickets = work
	return res
}

// Conflicting returns the candidates whose key matches one of the conflicts.
// The board keeps these around while the user decides on a reopen.
func Conflicting(candidates, conflicts []ticket.Ticket) []ticket.Ticket {
	keys := make(map[string]bool, len(conflicts))
	for _, c := range conflicts {
		keys[c.Key()] = true
	}
	var out []ticket.Ticket
	for _, c := range candidates {
		if keys[c.Key()] {
			out = append(out, c)
		}
	}
	return ticket.Clone(out)
}

func refresh(dst *ticket.Ticket, src ticket.Ticket, stamp int64) {
	dst.Title = src.Title
	dst.Owner = src.Owner
	if ticket.ValidPriorities[src.Priority] {
		dst.Priority = src.Priority
	}
	dst.Age = src.Age
	dst.LastSync = stamp
}

// Equal reports whether two boards hold the same tickets in the same order.
func Equal(a, b []ticket.Ticket) bool {
	return slices.EqualFunc(a, b, func(x, y ticket.Ticket) bool {
		if (x.ClosedAt == nil) != (y.ClosedAt == nil) {
			return false
		}
		if x.ClosedAt != nil && *x.ClosedAt != *y.ClosedAt {
			return false
		}
		x.ClosedAt, y.ClosedAt = nil, nil
		return x == y
	})
}
