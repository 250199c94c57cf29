package reconcile

import (
	"slices"
	"testing"
	"time"

	"github.com/boozedog/ticketflow/internal/otrs"
	"github.com/boozedog/ticketflow/internal/ticket"
)

var (
	t0      = time.Date(2026, 2, 1, 18, 0, 0, 0, time.UTC)
	testNow = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
)

func closedAt(ts time.Time) *int64 {
	ms := ticket.Millis(ts)
	return &ms
}

func TestReconcileExampleScenario(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "T1", Title: "old", Priority: ticket.PriorityLow, Status: ticket.StatusClosed, ClosedAt: closedAt(t0)},
	}
	candidates := otrs.Map([]otrs.ExternalTicket{{TicketID: "T1", Title: "new title"}}, current, otrs.DefaultPriorities(), testNow)

	first := Reconcile(current, candidates, nil, testNow)
	if got := first.ConflictIDs(); !slices.Equal(got, []int{1}) {
		t.Fatalf("conflicts = %v, want [1]", got)
	}
	if !Equal(first.Tickets, current) {
		t.Fatalf("board changed on conflict: %+v", first.Tickets)
	}
	if first.Changed() {
		t.Error("Changed() = true for conflict-only pass")
	}

	second := Reconcile(current, candidates, []int{1}, testNow)
	if len(second.Conflicts) != 0 {
		t.Fatalf("conflicts after confirm = %v", second.Conflicts)
	}
	got := second.Tickets[0]
	if got.ID != 1 || got.TicketID != "T1" || got.Title != "new title" {
		t.Errorf("reopened ticket = %+v", got)
	}
	if got.Status != ticket.StatusPending || got.ClosedAt != nil {
		t.Errorf("status/closedAt = %q/%v", got.Status, got.ClosedAt)
	}
	if got.OrderIndex != 1 {
		t.Errorf("orderIndex = %d, want appended 1", got.OrderIndex)
	}
	if second.Reopened != 1 {
		t.Errorf("Reopened = %d", second.Reopened)
	}
}

func TestReconcileIdentityStability(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 7, TicketID: "A", Title: "a", Priority: ticket.PriorityLow, Status: ticket.StatusInService, OrderIndex: 3, Note: "call back"},
	}
	candidates := []ticket.Ticket{
		{ID: 99, TicketID: "A", Title: "a2", Owner: "ana", Priority: ticket.PriorityHigh, Status: ticket.StatusPending, Age: 60, OrderIndex: 50},
	}

	res := Reconcile(current, candidates, nil, testNow)
	got := res.Tickets[0]
	if got.ID != 7 || got.OrderIndex != 3 || got.Status != ticket.StatusInService || got.Note != "call back" {
		t.Errorf("identity fields changed: %+v", got)
	}
	if got.Title != "a2" || got.Owner != "ana" || got.Priority != ticket.PriorityHigh || got.Age != 60 {
		t.Errorf("refresh fields not applied: %+v", got)
	}
	if got.LastSync != ticket.Millis(testNow) {
		t.Errorf("lastSync = %d", got.LastSync)
	}
	if res.Updated != 1 || res.Inserted != 0 {
		t.Errorf("counts = %+v", res)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", Priority: ticket.PriorityLow, Status: ticket.StatusPending},
		{ID: 2, Title: "local", Priority: ticket.PriorityLow, Status: ticket.StatusAwaiting, OrderIndex: 1},
	}
	records := []otrs.ExternalTicket{
		{TicketID: "A", Title: "a"},
		{TicketID: "B", Title: "b", Priority: "4 alto"},
	}

	once := Reconcile(current, otrs.Map(records, current, otrs.DefaultPriorities(), testNow), nil, testNow)
	twice := Reconcile(once.Tickets, otrs.Map(records, once.Tickets, otrs.DefaultPriorities(), testNow), nil, testNow)

	if !Equal(once.Tickets, twice.Tickets) {
		t.Fatalf("second pass changed board:\n%+v\n%+v", once.Tickets, twice.Tickets)
	}
	if twice.Inserted != 0 {
		t.Errorf("second pass inserted %d", twice.Inserted)
	}
}

func TestReconcileReopenHonoursSelection(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", Priority: ticket.PriorityLow, Status: ticket.StatusClosed, ClosedAt: closedAt(t0), OrderIndex: 0},
		{ID: 2, TicketID: "B", Priority: ticket.PriorityLow, Status: ticket.StatusMoved, ClosedAt: closedAt(t0), OrderIndex: 1},
		{ID: 3, TicketID: "C", Priority: ticket.PriorityLow, Status: ticket.StatusUnblocked, ClosedAt: closedAt(t0), OrderIndex: 2},
	}
	candidates := otrs.Map([]otrs.ExternalTicket{
		{TicketID: "A", Title: "a"}, {TicketID: "B", Title: "b"}, {TicketID: "C", Title: "c"},
	}, current, otrs.DefaultPriorities(), testNow)

	first := Reconcile(current, candidates, nil, testNow)
	if len(first.Conflicts) != 3 {
		t.Fatalf("conflicts = %d, want 3", len(first.Conflicts))
	}

	res := Reconcile(current, candidates, []int{1, 3}, testNow)
	byID := map[int]ticket.Ticket{}
	for _, tk := range res.Tickets {
		byID[tk.ID] = tk
	}
	for _, id := range []int{1, 3} {
		if byID[id].Status != ticket.StatusPending || byID[id].ClosedAt != nil {
			t.Errorf("ticket %d not reopened: %+v", id, byID[id])
		}
	}
	if byID[2].Status != ticket.StatusMoved || byID[2].ClosedAt == nil || byID[2].Title != "" {
		t.Errorf("ticket 2 should be untouched: %+v", byID[2])
	}
	if !slices.Equal(res.ConflictIDs(), []int{2}) {
		t.Errorf("remaining conflicts = %v, want [2]", res.ConflictIDs())
	}
	if byID[1].OrderIndex != 3 || byID[3].OrderIndex != 4 {
		t.Errorf("reopened order = %d,%d, want 3,4", byID[1].OrderIndex, byID[3].OrderIndex)
	}
}

func TestReconcileOrderAppend(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", Priority: ticket.PriorityLow, Status: ticket.StatusPending, OrderIndex: 4},
		{ID: 2, TicketID: "B", Priority: ticket.PriorityLow, Status: ticket.StatusPending, OrderIndex: 2},
	}
	candidates := otrs.Map([]otrs.ExternalTicket{{TicketID: "C"}, {TicketID: "D"}}, current, otrs.DefaultPriorities(), testNow)

	res := Reconcile(current, candidates, nil, testNow)
	var order []int
	for _, tk := range res.Tickets {
		order = append(order, tk.OrderIndex)
	}
	if !slices.Equal(order, []int{2, 4, 5, 6}) {
		t.Errorf("order = %v, want [2 4 5 6]", order)
	}
	if res.Tickets[2].TicketID != "C" || res.Tickets[3].TicketID != "D" {
		t.Errorf("inserted out of payload order: %+v", res.Tickets[2:])
	}
}

func TestReconcileReassignsCollidingID(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", Priority: ticket.PriorityLow, Status: ticket.StatusPending},
	}
	candidates := []ticket.Ticket{
		{ID: 1, TicketID: "Z", Priority: ticket.PriorityLow, Status: ticket.StatusPending},
	}

	res := Reconcile(current, candidates, nil, testNow)
	if len(res.Tickets) != 2 {
		t.Fatalf("len = %d", len(res.Tickets))
	}
	if res.Tickets[1].ID != 2 {
		t.Errorf("colliding id = %d, want 2", res.Tickets[1].ID)
	}
}

func TestReconcileDoesNotModifyInputs(t *testing.T) {
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", Title: "old", Priority: ticket.PriorityLow, Status: ticket.StatusPending},
	}
	candidates := []ticket.Ticket{
		{ID: 1, TicketID: "A", Title: "new", Priority: ticket.PriorityLow, Status: ticket.StatusPending},
	}
	Reconcile(current, candidates, nil, testNow)
	if current[0].Title != "old" {
		t.Error("current modified")
	}
}

func TestConflicting(t *testing.T) {
	candidates := []ticket.Ticket{{ID: 1, TicketID: "A"}, {ID: 2, TicketID: "B"}}
	conflicts := []ticket.Ticket{{ID: 9, TicketID: "B"}}

	got := Conflicting(candidates, conflicts)
	if len(got) != 1 || got[0].TicketID != "B" {
		t.Errorf("Conflicting = %+v", got)
	}
}
