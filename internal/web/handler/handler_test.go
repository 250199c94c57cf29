package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/web/handler"
	"github.com/boozedog/ticketflow/internal/web/sse"
)

// testSetup opens a board on a memory backend with one in-progress and one
// finished ticket and returns a handler over it.
func testSetup(t *testing.T) (*handler.Handler, *board.Board, *sse.Broker) {
	t.Helper()
	ctx := context.Background()

	eventsDir := t.TempDir()
	b, err := board.Open(ctx, board.Options{Backend: storage.NewMemoryBackend(), EventsDir: eventsDir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(b.Close)

	if _, err := b.Add(ctx, ticket.Ticket{
		TicketID: "1001",
		Title:    "VPN fora do ar",
		Owner:    "ana",
		Priority: ticket.PriorityHigh,
		Note:     "Ligar para o **fornecedor**.",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Add(ctx, ticket.Ticket{
		TicketID: "1002",
		Title:    "Impressora travada",
		Owner:    "bruno",
		Status:   ticket.StatusClosed,
	}); err != nil {
		t.Fatal(err)
	}

	broker := sse.NewBroker()
	return handler.New(b, eventsDir, broker, time.UTC), b, broker
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBoard(t *testing.T) {
	h, _, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	h.Board(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"ticketflow", "VPN fora do ar", "Em andamento (1)", "Finalizados (1)", "+ Novo ticket"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected board to contain %q", want)
		}
	}
	if strings.Contains(body, "Impressora travada") {
		t.Error("finished ticket shown on the in-progress tab")
	}
}

func TestPartialBoard(t *testing.T) {
	h, _, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/partials/board?tab=finalizados", nil)
	w := httptest.NewRecorder()

	h.PartialBoard(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "sse:refresh") {
		t.Error("expected partial to contain SSE refresh trigger")
	}
	if !strings.Contains(body, "Impressora travada") || !strings.Contains(body, "Hoje") {
		t.Error("expected finished ticket grouped under Hoje")
	}
	// Partial should NOT include the full layout.
	if strings.Contains(body, "<!doctype html>") {
		t.Error("partial should not include full HTML layout")
	}
}

func TestBoardSearchDisablesReorder(t *testing.T) {
	h, _, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/?q=vpn", nil)
	w := httptest.NewRecorder()
	h.Board(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "VPN fora do ar") {
		t.Error("expected search hit")
	}
	if strings.Contains(body, "data-reorder") {
		t.Error("drag and drop offered while searching")
	}
}

func TestTicket(t *testing.T) {
	h, _, _ := testSetup(t)

	req := httptest.NewRequest(http.MethodGet, "/ticket/1", nil)
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	h.Ticket(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<strong>fornecedor</strong>") {
		t.Error("expected markdown note rendered to HTML")
	}
	if !strings.Contains(body, "criado") {
		t.Error("expected activity entry for creation")
	}
}

func TestTicketNotFound(t *testing.T) {
	h, _, _ := testSetup(t)

	for _, id := range []string{"99", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/ticket/"+id, nil)
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()

		h.Ticket(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("id %s: expected 404, got %d", id, w.Code)
		}
	}
}

func TestCreateTicket(t *testing.T) {
	h, b, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.CreateTicket(w, postForm("/tickets", url.Values{"title": {"Novo"}, "priority": {"alta"}}))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/ticket/3" {
		t.Errorf("Location = %q, want /ticket/3", loc)
	}
	got, err := b.Get(3)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Novo" || got.Priority != ticket.PriorityHigh || got.Status != ticket.StatusPending {
		t.Errorf("created = %+v", got)
	}
}

func TestCreateEmptyTicket(t *testing.T) {
	h, b, _ := testSetup(t)

	req := postForm("/tickets", url.Values{})
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	h.CreateTicket(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if n := len(b.Tickets()); n != 3 {
		t.Errorf("tickets = %d, want 3", n)
	}
}

func TestUpdateTicketSingleField(t *testing.T) {
	h, b, _ := testSetup(t)

	req := postForm("/ticket/1/edit", url.Values{"status": {"done"}})
	req.SetPathValue("id", "1")
	req.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()

	h.UpdateTicket(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	got, _ := b.Get(1)
	if got.Status != ticket.StatusClosed || got.ClosedAt == nil {
		t.Errorf("status = %q closedAt = %v", got.Status, got.ClosedAt)
	}
	if got.Title != "VPN fora do ar" || got.Note == "" {
		t.Error("fields missing from the form were changed")
	}
}

func TestUpdateTicketForm(t *testing.T) {
	h, b, _ := testSetup(t)

	req := postForm("/ticket/1/edit", url.Values{
		"title": {"VPN instável"},
		"owner": {"carla"},
		"age":   {"1 d 2 hrs"},
		"note":  {""},
	})
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	h.UpdateTicket(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	got, _ := b.Get(1)
	if got.Title != "VPN instável" || got.Owner != "carla" || got.Age != 26*60 || got.Note != "" {
		t.Errorf("updated = %+v", got)
	}
}

func TestUpdateTicketInvalidStatus(t *testing.T) {
	h, b, _ := testSetup(t)

	req := postForm("/ticket/1/edit", url.Values{"title": {"x"}, "status": {"bogus"}})
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()

	h.UpdateTicket(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	got, _ := b.Get(1)
	if got.Title != "VPN fora do ar" {
		t.Error("rejected edit was partially applied")
	}
}

func TestDeleteTicket(t *testing.T) {
	h, b, _ := testSetup(t)

	req := postForm("/ticket/2/delete", url.Values{})
	req.SetPathValue("id", "2")
	w := httptest.NewRecorder()
	h.DeleteTicket(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if _, err := b.Get(2); err == nil {
		t.Error("ticket still on the board")
	}

	w = httptest.NewRecorder()
	h.DeleteTicket(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
}

func TestReorder(t *testing.T) {
	h, b, _ := testSetup(t)
	ctx := context.Background()
	if _, err := b.Add(ctx, ticket.Ticket{Title: "terceiro"}); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.Reorder(w, postForm("/reorder", url.Values{"ids": {"3", "1"}}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}

	first, _ := b.Get(3)
	second, _ := b.Get(1)
	if first.OrderIndex != 0 || second.OrderIndex != 1 {
		t.Errorf("orderIndex = %d, %d; want 0, 1", first.OrderIndex, second.OrderIndex)
	}

	w = httptest.NewRecorder()
	h.Reorder(w, postJSON("/reorder", `{"ids":[1,3]}`))
	if w.Code != http.StatusNoContent {
		t.Fatalf("json: expected 204, got %d", w.Code)
	}
	if got, _ := b.Get(1); got.OrderIndex != 0 {
		t.Errorf("json reorder not applied: %+v", got)
	}
}

func TestReorderRejectedWhileSearching(t *testing.T) {
	h, _, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Reorder(w, postForm("/reorder", url.Values{"ids": {"1"}, "q": {"vpn"}}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestReorderUnknownID(t *testing.T) {
	h, _, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Reorder(w, postForm("/reorder", url.Values{"ids": {"1,42"}}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReorderRejectsFinishedTicket(t *testing.T) {
	h, b, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Reorder(w, postForm("/reorder", url.Values{"ids": {"2", "1"}}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if got, _ := b.Get(1); got.OrderIndex != 0 {
		t.Errorf("order changed: %+v", got)
	}
}

func TestSyncIgnoresOtherMessages(t *testing.T) {
	h, b, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Sync(w, postJSON("/api/sync", `{"type":"PING","payload":[]}`))

	if w.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", w.Code)
	}
	if n := len(b.Tickets()); n != 2 {
		t.Errorf("tickets = %d, want 2", n)
	}
}

func TestSyncMalformed(t *testing.T) {
	h, _, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Sync(w, postJSON("/api/sync", `{"type":`))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSyncConflictAndReopen(t *testing.T) {
	h, b, _ := testSetup(t)

	body := `{
		"type": "OTRS_TICKETS_SYNC",
		"payload": [
			{"ticketId": "1001", "title": "VPN fora do ar", "owner": "ana", "priority": "3 normal", "age": "2 h 5 min"},
			{"ticketId": "1002", "title": "Impressora travada de novo", "owner": "bruno", "priority": "4 high", "age": 30},
			{"ticketId": "1003", "title": "Novo acesso", "owner": "", "priority": "", "age": null}
		]
	}`
	w := httptest.NewRecorder()
	h.Sync(w, postJSON("/api/sync", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		Inserted  int             `json:"inserted"`
		Updated   int             `json:"updated"`
		Conflicts []ticket.Ticket `json:"conflicts"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Inserted != 1 || len(res.Conflicts) != 1 || res.Conflicts[0].ID != 2 {
		t.Fatalf("result = %+v", res)
	}
	if got, _ := b.Get(2); got.Status != ticket.StatusClosed {
		t.Fatal("done ticket reopened without confirmation")
	}

	w = httptest.NewRecorder()
	h.ReopenConfirm(w, postJSON("/api/sync/reopen", `{"ids":[2]}`))
	if w.Code != http.StatusOK {
		t.Fatalf("reopen: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got, _ := b.Get(2)
	if got.Status != ticket.StatusPending || got.Title != "Impressora travada de novo" || got.ClosedAt != nil {
		t.Errorf("reopened = %+v", got)
	}

	w = httptest.NewRecorder()
	h.ReopenConfirm(w, postJSON("/api/sync/reopen", `{"ids":[2]}`))
	if w.Code != http.StatusConflict {
		t.Errorf("second reopen: expected 409, got %d", w.Code)
	}
}

func TestSyncDecline(t *testing.T) {
	h, b, _ := testSetup(t)

	body := `{"type":"OTRS_TICKETS_SYNC","payload":[{"ticketId":"1002","title":"outra vez","owner":"","priority":"","age":0}]}`
	w := httptest.NewRecorder()
	h.Sync(w, postJSON("/api/sync", body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ReopenDecline(w, postForm("/api/sync/decline", url.Values{}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if b.PendingReopen() != nil {
		t.Error("pending reopen kept after decline")
	}
	if got, _ := b.Get(2); got.Status != ticket.StatusClosed || got.Title != "Impressora travada" {
		t.Errorf("declined ticket changed: %+v", got)
	}
}

func TestClearAndUndo(t *testing.T) {
	h, b, _ := testSetup(t)

	w := httptest.NewRecorder()
	h.Clear(w, postForm("/clear", url.Values{}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("clear: expected 303, got %d", w.Code)
	}
	if n := len(b.Tickets()); n != 0 {
		t.Fatalf("tickets after clear = %d", n)
	}

	w = httptest.NewRecorder()
	h.Board(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Body.String(), `id="undo-remaining"`) {
		t.Error("expected undo countdown on the board")
	}

	w = httptest.NewRecorder()
	h.Undo(w, postForm("/undo", url.Values{}))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("undo: expected 303, got %d", w.Code)
	}
	if n := len(b.Tickets()); n != 2 {
		t.Errorf("tickets after undo = %d, want 2", n)
	}

	req := postForm("/undo", url.Values{})
	req.Header.Set("HX-Request", "true")
	w = httptest.NewRecorder()
	h.Undo(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("second undo: expected 409, got %d", w.Code)
	}
}

func TestEvents(t *testing.T) {
	h, _, broker := testSetup(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	// Run the SSE handler in a goroutine since it blocks.
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Events(w, req)
	}()

	deadline := time.Now().Add(time.Second)
	for broker.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	broker.Broadcast(sse.Message{Name: sse.Undo, Data: "12"})
	broker.Broadcast(sse.Message{Name: sse.Refresh})
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	for _, want := range []string{": keepalive", "event: undo\ndata: 12\n\n", "event: refresh\ndata: refresh\n\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in SSE stream, got %q", want, body)
		}
	}
	if w.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
}

func TestActivityRecordsWebActor(t *testing.T) {
	h, _, _ := testSetup(t)

	req := postForm("/ticket/1/edit", url.Values{"owner": {"dora"}})
	req.SetPathValue("id", "1")
	w := httptest.NewRecorder()
	h.UpdateTicket(w, req)

	req = httptest.NewRequest(http.MethodGet, "/ticket/1", nil)
	req.SetPathValue("id", "1")
	w = httptest.NewRecorder()
	h.Ticket(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "editado") || !strings.Contains(body, event.ActorWeb) {
		t.Error("expected edit by the web actor in the activity list")
	}
}
