package undo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/ticket"
)

func board(ids ...int) []ticket.Ticket {
	out := make([]ticket.Ticket, len(ids))
	for i, id := range ids {
		out[i] = ticket.Ticket{ID: id, Title: "t", Priority: ticket.PriorityLow, Status: ticket.StatusPending, OrderIndex: i}
	}
	return out
}

func ids(tickets []ticket.Ticket) []int {
	out := make([]int, len(tickets))
	for i, t := range tickets {
		out[i] = t.ID
	}
	return out
}

func TestUndoPreservesPostClearAdditions(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryBackend(), time.Minute)
	defer c.Close()

	if err := c.Clear(ctx, board(1, 2)); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	// A manual add on the empty board reuses ID 1.
	added := []ticket.Ticket{ticket.NewEmpty(1, 0, time.Now())}

	res, ok, err := c.Undo(ctx, added)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	got := res.Tickets
	if len(res.Dropped) != 0 {
		t.Errorf("dropped = %v, want none", ids(res.Dropped))
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3: %+v", len(got), got)
	}
	seen := map[int]bool{}
	for i, tk := range got {
		if seen[tk.ID] {
			t.Fatalf("duplicate id %d in %v", tk.ID, ids(got))
		}
		seen[tk.ID] = true
		if tk.OrderIndex != i {
			t.Errorf("ticket %d orderIndex = %d, want %d", tk.ID, tk.OrderIndex, i)
		}
	}
	if got[0].ID != 1 || got[1].ID != 2 || got[2].ID != 3 {
		t.Errorf("ids = %v, want [1 2 3]", ids(got))
	}
	if c.Active() {
		t.Error("window still active after undo")
	}
}

func TestUndoDropsResyncedDuplicates(t *testing.T) {
	snapshot := []ticket.Ticket{{ID: 5, TicketID: "A", OrderIndex: 0}}
	current := []ticket.Ticket{
		{ID: 1, TicketID: "A", OrderIndex: 0},
		{ID: 2, TicketID: "B", OrderIndex: 1},
	}

	got, dropped := Merge(snapshot, current)
	if len(got) != 2 || got[0].ID != 5 || got[1].TicketID != "B" {
		t.Errorf("Merge = %+v", got)
	}
	if len(dropped) != 1 || dropped[0].ID != 1 {
		t.Errorf("dropped = %+v, want the re-synced A", dropped)
	}
	if got[1].OrderIndex != 1 {
		t.Errorf("appended orderIndex = %d, want 1", got[1].OrderIndex)
	}
}

func TestUndoWithoutSnapshotIsNoop(t *testing.T) {
	c := New(storage.NewMemoryBackend(), time.Minute)
	got, ok, err := c.Undo(context.Background(), board(1))
	if err != nil || ok || got.Tickets != nil {
		t.Fatalf("Undo = %v, %v, %v; want nil, false, nil", got, ok, err)
	}
}

func TestUndoAfterExpiry(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	c := New(backend, 40*time.Millisecond)
	c.Tick = 10 * time.Millisecond
	expired := make(chan struct{})
	c.OnExpire = func() { close(expired) }
	defer c.Close()

	if err := c.Clear(ctx, board(1, 2)); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("OnExpire not called")
	}

	got, ok, err := c.Undo(ctx, nil)
	if err != nil || ok || got.Tickets != nil {
		t.Fatalf("Undo after expiry = %v, %v, %v", got, ok, err)
	}
	if _, err := backend.Get(ctx, storage.KeyUndo); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("snapshot still persisted: %v", err)
	}
}

func TestClearReplacesLiveWindow(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryBackend(), time.Minute)
	defer c.Close()

	if err := c.Clear(ctx, board(1, 2)); err != nil {
		t.Fatal(err)
	}
	if err := c.Clear(ctx, board(7)); err != nil {
		t.Fatal(err)
	}

	res, ok, err := c.Undo(ctx, nil)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if got := res.Tickets; len(got) != 1 || got[0].ID != 7 {
		t.Errorf("restored %v, want only the latest snapshot", ids(got))
	}
}

func TestTicksReportRemainingSeconds(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryBackend(), 3*time.Second)
	c.Tick = 10 * time.Millisecond
	var last atomic.Int64
	ticked := make(chan struct{}, 1)
	c.OnTick = func(remaining int) {
		last.Store(int64(remaining))
		select {
		case ticked <- struct{}{}:
		default:
		}
	}
	defer c.Close()

	if err := c.Clear(ctx, board(1)); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick")
	}
	if got := last.Load(); got < 1 || got > 3 {
		t.Errorf("remaining = %d, want 1..3", got)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	ctx := context.Background()
	c := New(storage.NewMemoryBackend(), 30*time.Millisecond)
	c.Tick = 5 * time.Millisecond
	var calls atomic.Int32
	c.OnTick = func(int) { calls.Add(1) }
	c.OnExpire = func() { calls.Add(1) }

	if err := c.Clear(ctx, board(1)); err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	before := calls.Load()
	time.Sleep(80 * time.Millisecond)
	if after := calls.Load(); after != before {
		t.Errorf("callbacks after Close: %d -> %d", before, after)
	}
}

func TestUndoAcrossControllers(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	first := New(backend, time.Minute)
	if err := first.Clear(ctx, board(1, 2)); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := New(backend, time.Minute)
	defer second.Close()
	res, ok, err := second.Undo(ctx, nil)
	if err != nil || !ok {
		t.Fatalf("Undo = %v, %v", ok, err)
	}
	if len(res.Tickets) != 2 {
		t.Errorf("restored %v", ids(res.Tickets))
	}
}

func TestRecoverHonoursExpiresAt(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()

	first := New(backend, time.Minute)
	if err := first.Clear(ctx, board(1)); err != nil {
		t.Fatal(err)
	}
	first.Close()

	later := New(backend, time.Minute)
	later.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	defer later.Close()

	if err := later.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if later.Active() {
		t.Error("expired snapshot recovered as active")
	}
	if _, ok, _ := later.Undo(ctx, nil); ok {
		t.Error("undo resurrected expired snapshot")
	}
	if _, err := backend.Get(ctx, storage.KeyUndo); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expired snapshot not deleted: %v", err)
	}
}

func TestSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{29*time.Second + 1, 30},
	}
	for _, tt := range tests {
		if got := seconds(tt.d); got != tt.want {
			t.Errorf("seconds(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
