package cmd

import (
	"strings"
	"testing"

	"github.com/boozedog/ticketflow/internal/ticket"
)

func TestList_InProgress(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{TicketID: "10", Title: "rede lenta", Age: 90})
	env.addTicket(t, ticket.Ticket{TicketID: "11", Title: "já resolvido", Status: ticket.StatusClosed})

	out, err := env.runCmd(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "rede lenta") || !strings.Contains(out, "1 h 30 min") {
		t.Errorf("output = %q, want in-progress ticket with age", out)
	}
	if strings.Contains(out, "já resolvido") {
		t.Errorf("output = %q, should not contain finished ticket", out)
	}
}

func TestList_Done(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{Title: "aberto"})
	env.addTicket(t, ticket.Ticket{Title: "fechado", Status: ticket.StatusClosed})

	out, err := env.runCmd(t, "list", "--done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Hoje") || !strings.Contains(out, "fechado") {
		t.Errorf("output = %q, want finished ticket under Hoje", out)
	}
	if strings.Contains(out, "aberto") {
		t.Errorf("output = %q, should not contain in-progress ticket", out)
	}
}

func TestList_SearchAndSort(t *testing.T) {
	env := newTestEnv(t)
	env.addTicket(t, ticket.Ticket{Title: "vpn matriz", Owner: "zeca"})
	env.addTicket(t, ticket.Ticket{Title: "impressora", Owner: "ana"})
	env.addTicket(t, ticket.Ticket{Title: "vpn filial", Owner: "ana"})

	out, err := env.runCmd(t, "list", "--search", "VPN", "--sort", "owner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "impressora") {
		t.Errorf("output = %q, search should exclude impressora", out)
	}
	if strings.Index(out, "vpn filial") > strings.Index(out, "vpn matriz") {
		t.Errorf("output = %q, want ana's ticket first", out)
	}

	out, err = env.runCmd(t, "list", "--sort", "owner", "--desc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out), "#1") {
		t.Errorf("output = %q, want zeca's ticket first when descending", out)
	}
}

func TestList_BadSort(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.runCmd(t, "list", "--sort", "color"); err == nil {
		t.Fatal("expected error for unknown sort key")
	}
}

func TestList_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.runCmd(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No tickets found.") {
		t.Errorf("output = %q", out)
	}
}
