package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/ticket"
)

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const syncPayload = `{
	// captured from the queue view
	"type": "OTRS_TICKETS_SYNC",
	"payload": [
		{"ticketId": "500", "title": "Servidor fora", "owner": "ana", "priority": "5 muito alto", "age": "2 h 0 min"},
		{"ticketId": "501", "title": "Acesso negado", "owner": "bia", "priority": "3 normal", "age": 15},
	]
}`

func TestSync_InsertsAndUpdates(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.runCmd(t, "sync", writePayload(t, syncPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Synced 2 records: 2 new, 0 updated") {
		t.Errorf("output = %q", out)
	}

	tk := env.get(t, 1)
	if tk.TicketID != "500" || tk.Priority != ticket.PriorityIncident || tk.Age != 120 {
		t.Errorf("ticket = %+v", tk)
	}

	// The same payload again keeps identities and inserts nothing.
	out, err = env.runCmd(t, "sync", writePayload(t, syncPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "0 new, 2 updated") {
		t.Errorf("output = %q", out)
	}
	if n := len(env.board(t).Tickets()); n != 2 {
		t.Errorf("tickets = %d, want 2", n)
	}
}

func TestSync_BareArray(t *testing.T) {
	env := newTestEnv(t)

	path := writePayload(t, `[{"ticketId": "9", "title": "x", "owner": "", "priority": "", "age": null}]`)
	if _, err := env.runCmd(t, "sync", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk := env.get(t, 1); tk.Priority != ticket.PriorityLow || tk.Age != 0 {
		t.Errorf("ticket = %+v", tk)
	}
}

func TestSync_IgnoredMessageType(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.runCmd(t, "sync", writePayload(t, `{"type":"PING"}`)); err == nil {
		t.Fatal("expected error for a non-sync message")
	}
}

func TestSync_ConflictKeptFinished(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{TicketID: "500", Title: "Servidor fora", Status: ticket.StatusClosed})

	out, err := env.runCmd(t, "sync", writePayload(t, syncPayload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "1 finished tickets") || !strings.Contains(out, "Kept finished") {
		t.Errorf("output = %q", out)
	}
	if tk := env.get(t, 1); tk.Status != ticket.StatusClosed {
		t.Errorf("ticket reopened without --reopen: %+v", tk)
	}

	events, err := event.QueryEvents(env.EventsDir, event.Query{Prefix: "sync.declined"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("declined events = %d, want 1", len(events))
	}
}

func TestSync_ReopenSelected(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{TicketID: "500", Title: "velho", Status: ticket.StatusClosed})
	env.addTicket(t, ticket.Ticket{TicketID: "501", Title: "velho", Status: ticket.StatusMoved})

	out, err := env.runCmd(t, "sync", writePayload(t, syncPayload), "--reopen", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Reopened #2: Acesso negado") {
		t.Errorf("output = %q", out)
	}
	if tk := env.get(t, 1); tk.Status != ticket.StatusClosed || tk.Title != "velho" {
		t.Errorf("unselected ticket changed: %+v", tk)
	}
	if tk := env.get(t, 2); tk.Status != ticket.StatusPending || tk.ClosedAt != nil {
		t.Errorf("selected ticket not reopened: %+v", tk)
	}
}

func TestSync_ReopenAll(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{TicketID: "500", Title: "velho", Status: ticket.StatusClosed})

	if _, err := env.runCmd(t, "sync", writePayload(t, syncPayload), "--reopen-all"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tk := env.get(t, 1); tk.Status != ticket.StatusPending || tk.Title != "Servidor fora" {
		t.Errorf("ticket = %+v", tk)
	}
}
