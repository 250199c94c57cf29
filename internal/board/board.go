// Package board is the single write path for the ticket board. Every command
// runs under one lock so merge, persistence and the activity log stay in
// step.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/otrs"
	"github.com/boozedog/ticketflow/internal/reconcile"
	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/undo"
	"github.com/boozedog/ticketflow/internal/view"
	"github.com/boozedog/ticketflow/internal/workflow"
)

// ErrNoPendingReopen is returned when a reopen is confirmed with nothing pending.
var ErrNoPendingReopen = errors.New("no reopen pending")

// Options configures a Board.
type Options struct {
	Backend storage.Backend
	// EventsDir enables the activity log when set.
	EventsDir       string
	Priorities      otrs.PriorityTable
	UndoWindow      time.Duration
	SeedPlaceholder bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Board owns the ticket store, the undo window and the pending reopen.
type Board struct {
	mu         sync.Mutex
	store      *ticket.Store
	undo       *undo.Controller
	events     *event.EventLog
	priorities otrs.PriorityTable
	seed       bool
	now        func() time.Time

	pending     *PendingReopen
	placeholder *ticket.Ticket

	undoMu   sync.Mutex
	undoSubs map[int]func(int)
	undoSeq  int
}

// PendingReopen holds the candidates of a sync that targeted done tickets,
// waiting for the user to pick which ones to reopen.
type PendingReopen struct {
	Conflicts  []ticket.Ticket
	Candidates []ticket.Ticket
	At         time.Time
}

// IDs returns the board IDs awaiting a decision.
func (p *PendingReopen) IDs() []int {
	return view.IDs(p.Conflicts)
}

// SyncResult summarizes one sync.
type SyncResult struct {
	Inserted  int
	Updated   int
	Conflicts []ticket.Ticket
}

// UndoState describes the clear/undo window.
type UndoState struct {
	Active    bool
	Remaining int
}

// Open loads the board from opts.Backend and recovers a live undo window.
func Open(ctx context.Context, opts Options) (*Board, error) {
	if opts.Backend == nil {
		return nil, errors.New("board: nil backend")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	priorities := opts.Priorities
	if priorities == nil {
		priorities = otrs.DefaultPriorities()
	}

	b := &Board{
		store:      ticket.NewStore(opts.Backend),
		undo:       undo.New(opts.Backend, opts.UndoWindow),
		priorities: priorities,
		seed:       opts.SeedPlaceholder,
		now:        now,
		undoSubs:   make(map[int]func(int)),
	}
	if opts.EventsDir != "" {
		b.events = event.NewEventLog(opts.EventsDir)
	}
	b.undo.OnTick = b.broadcastUndo
	b.undo.OnExpire = b.undoExpired

	if err := b.store.Load(ctx); err != nil {
		return nil, err
	}
	if err := b.undo.Recover(ctx); err != nil {
		slog.Warn("recover undo window", "err", err)
	}
	return b, nil
}

// Close stops the undo timers. The backend is owned by the caller.
func (b *Board) Close() {
	b.undo.Close()
}

// Tickets returns the whole board in manual order.
func (b *Board) Tickets() []ticket.Ticket {
	return b.store.All()
}

// Get returns one ticket.
func (b *Board) Get(id int) (ticket.Ticket, error) {
	return b.store.Get(id)
}

// Subscribe registers fn to receive the board after every commit.
func (b *Board) Subscribe(fn func([]ticket.Ticket)) (cancel func()) {
	return b.store.Subscribe(fn)
}

// OnUndoTick registers fn to receive the seconds left in the undo window once
// per second, and 0 when the window closes.
func (b *Board) OnUndoTick(fn func(remaining int)) (cancel func()) {
	b.undoMu.Lock()
	id := b.undoSeq
	b.undoSeq++
	b.undoSubs[id] = fn
	b.undoMu.Unlock()

	return func() {
		b.undoMu.Lock()
		delete(b.undoSubs, id)
		b.undoMu.Unlock()
	}
}

func (b *Board) broadcastUndo(remaining int) {
	b.undoMu.Lock()
	subs := make([]func(int), 0, len(b.undoSubs))
	for _, fn := range b.undoSubs {
		subs = append(subs, fn)
	}
	b.undoMu.Unlock()

	for _, fn := range subs {
		fn(remaining)
	}
}

func (b *Board) undoExpired() {
	b.mu.Lock()
	b.placeholder = nil
	b.mu.Unlock()

	b.record(context.Background(), event.ActorSystem, event.BoardUndoExpired, 0, nil)
	b.broadcastUndo(0)
}

// Reload re-reads the blob after an external write.
func (b *Board) Reload(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Load(ctx); err != nil {
		return err
	}
	b.recordDeclined(ctx, b.prunePending())
	return nil
}

// Add inserts t at the end of the manual order. Blank priority and status
// default to Baixa and Pendente.
func (b *Board) Add(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t.Priority == "" {
		t.Priority = ticket.DefaultPriority
	}
	if t.Status == "" {
		t.Status = ticket.StatusPending
	}
	added, err := b.store.Insert(ctx, t, b.now())
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("add ticket: %w", err)
	}
	b.record(ctx, actorFrom(ctx), event.TicketCreated, added.ID, map[string]any{
		"title":    added.Title,
		"ticketId": added.TicketID,
	})
	return added, nil
}

// Update applies fn to ticket id. A status change made by fn is logged as a
// status event.
func (b *Board) Update(ctx context.Context, id int, fn func(*ticket.Ticket)) (ticket.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	before, err := b.store.Get(id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	updated, err := b.store.Update(ctx, id, b.now(), fn)
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("update ticket %d: %w", id, err)
	}

	if changes := diff(before, updated); len(changes) > 0 {
		b.record(ctx, actorFrom(ctx), event.TicketUpdated, id, map[string]any{"fields": changes})
	}
	if before.Status != updated.Status {
		b.record(ctx, actorFrom(ctx), event.StatusEvent(updated.Status), id, map[string]any{"from": string(before.Status)})
	}
	b.recordDeclined(ctx, b.prunePending())
	return updated, nil
}

// SetStatus moves ticket id to s.
func (b *Board) SetStatus(ctx context.Context, id int, s ticket.Status) (ticket.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.store.Get(id)
	if err != nil {
		return ticket.Ticket{}, err
	}
	if err := workflow.ValidateTransition(current.Status, s); err != nil {
		return ticket.Ticket{}, err
	}
	updated, err := b.store.Update(ctx, id, b.now(), func(t *ticket.Ticket) { t.Status = s })
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("set status: %w", err)
	}
	b.record(ctx, actorFrom(ctx), event.StatusEvent(s), id, map[string]any{"from": string(current.Status)})
	b.recordDeclined(ctx, b.prunePending())
	return updated, nil
}

// Delete removes ticket id.
func (b *Board) Delete(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.store.Get(id)
	if err != nil {
		return err
	}
	if err := b.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete ticket %d: %w", id, err)
	}
	b.record(ctx, actorFrom(ctx), event.TicketDeleted, id, map[string]any{"title": t.Title, "ticketId": t.TicketID})
	b.recordDeclined(ctx, b.prunePending())
	return nil
}

// Reorder sets the manual order of the in-progress tab. Listed tickets take
// the first positions and in-progress tickets left out follow in their
// current order, so orderIndex stays dense. Done, unknown or repeated IDs
// reject the call.
func (b *Board) Reorder(ctx context.Context, ids []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ordered, err := inProgressOrder(b.store.All(), ids)
	if err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	if err := b.store.Reorder(ctx, ordered); err != nil {
		return fmt.Errorf("reorder: %w", err)
	}
	b.record(ctx, actorFrom(ctx), event.TicketReordered, 0, map[string]any{"ids": ordered})
	return nil
}

// inProgressOrder completes ids into a full ordering of the in-progress tab.
func inProgressOrder(all []ticket.Ticket, ids []int) ([]int, error) {
	current := view.IDs(view.InProgress(all, ""))
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(current))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("ticket %d listed twice", id)
		}
		seen[id] = true
		if !slices.Contains(current, id) {
			if slices.ContainsFunc(all, func(t ticket.Ticket) bool { return t.ID == id }) {
				return nil, fmt.Errorf("ticket %d is not in progress", id)
			}
			return nil, fmt.Errorf("ticket %d: %w", id, ticket.ErrNotFound)
		}
		out = append(out, id)
	}
	for _, id := range current {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

// Move places in-progress ticket id at position (0-based) of the in-progress
// tab, as a drag and drop would.
func (b *Board) Move(ctx context.Context, id, position int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := view.IDs(view.InProgress(b.store.All(), ""))
	from := slices.Index(ids, id)
	if from < 0 {
		return fmt.Errorf("ticket %d is not in progress", id)
	}
	if position < 0 || position >= len(ids) {
		return fmt.Errorf("position %d out of range (0-%d)", position, len(ids)-1)
	}
	ordered := view.Reorder(ids, from, position)
	if err := b.store.Reorder(ctx, ordered); err != nil {
		return fmt.Errorf("move ticket %d: %w", id, err)
	}
	b.record(ctx, actorFrom(ctx), event.TicketReordered, id, map[string]any{"from": from, "to": position})
	return nil
}

// Sync merges a batch of scraped records. In-progress updates and new tickets
// are committed at once; updates to done tickets are held as a pending reopen
// and returned as conflicts. A newer sync replaces any pending reopen.
func (b *Board) Sync(ctx context.Context, records []otrs.ExternalTicket) (SyncResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	current := b.store.All()
	candidates := otrs.Map(records, current, b.priorities, now)
	res := reconcile.Reconcile(current, candidates, nil, now)

	if res.Changed() {
		if err := b.store.Replace(ctx, res.Tickets); err != nil {
			return SyncResult{}, fmt.Errorf("sync: %w", err)
		}
	}

	b.pending = nil
	if len(res.Conflicts) > 0 {
		b.pending = &PendingReopen{
			Conflicts:  res.Conflicts,
			Candidates: reconcile.Conflicting(candidates, res.Conflicts),
			At:         now,
		}
		b.record(ctx, event.ActorSync, event.SyncConflict, 0, map[string]any{"ids": res.ConflictIDs()})
	}
	b.record(ctx, event.ActorSync, event.SyncMerged, 0, map[string]any{
		"records":  len(records),
		"inserted": res.Inserted,
		"updated":  res.Updated,
	})

	slog.Debug("sync merged", "records", len(records), "inserted", res.Inserted, "updated", res.Updated, "conflicts", len(res.Conflicts))
	return SyncResult{Inserted: res.Inserted, Updated: res.Updated, Conflicts: res.Conflicts}, nil
}

// PendingReopen returns the conflicts awaiting a decision, or nil.
func (b *Board) PendingReopen() *PendingReopen {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return nil
	}
	return &PendingReopen{
		Conflicts:  ticket.Clone(b.pending.Conflicts),
		Candidates: ticket.Clone(b.pending.Candidates),
		At:         b.pending.At,
	}
}

// ConfirmReopen reopens the selected conflicting tickets with their synced
// data. Only the selected candidates are merged, against the current board.
// A selected ticket that was deleted or reopened by hand since the sync is
// skipped, so later edits win. IDs that were not in conflict are ignored;
// unselected conflicts are declined.
func (b *Board) ConfirmReopen(ctx context.Context, ids []int) ([]ticket.Ticket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return nil, ErrNoPendingReopen
	}
	declined := b.prunePending()
	if b.pending == nil {
		b.recordDeclined(ctx, declined)
		return nil, nil
	}

	keys := make(map[string]bool)
	var selected []int
	for _, c := range b.pending.Conflicts {
		if slices.Contains(ids, c.ID) {
			selected = append(selected, c.ID)
			keys[c.Key()] = true
		} else {
			declined = append(declined, c.ID)
		}
	}
	candidates := slices.DeleteFunc(ticket.Clone(b.pending.Candidates), func(c ticket.Ticket) bool {
		return !keys[c.Key()]
	})
	b.pending = nil

	var reopened []ticket.Ticket
	if len(candidates) > 0 {
		res := reconcile.Reconcile(b.store.All(), candidates, selected, b.now())
		if res.Changed() {
			if err := b.store.Replace(ctx, res.Tickets); err != nil {
				return nil, fmt.Errorf("reopen: %w", err)
			}
		}
		for _, t := range res.Tickets {
			if slices.Contains(selected, t.ID) && !ticket.IsDone(t.Status) {
				reopened = append(reopened, t)
				b.record(ctx, actorFrom(ctx), event.SyncReopened, t.ID, nil)
			}
		}
	}
	b.recordDeclined(ctx, declined)
	return reopened, nil
}

// prunePending drops pending conflicts whose ticket is gone, no longer done
// or re-keyed, and returns their IDs.
func (b *Board) prunePending() []int {
	if b.pending == nil {
		return nil
	}
	current := b.store.All()
	var stale []int
	conflicts := slices.DeleteFunc(b.pending.Conflicts, func(c ticket.Ticket) bool {
		i := slices.IndexFunc(current, func(t ticket.Ticket) bool { return t.ID == c.ID })
		if i >= 0 && ticket.IsDone(current[i].Status) && current[i].Key() == c.Key() {
			return false
		}
		stale = append(stale, c.ID)
		return true
	})
	if len(conflicts) == 0 {
		b.pending = nil
		return stale
	}
	b.pending.Conflicts = conflicts
	b.pending.Candidates = reconcile.Conflicting(b.pending.Candidates, conflicts)
	return stale
}

func (b *Board) recordDeclined(ctx context.Context, ids []int) {
	if len(ids) > 0 {
		b.record(ctx, actorFrom(ctx), event.SyncDeclined, 0, map[string]any{"ids": ids})
	}
}

// DeclineReopen drops the pending reopen; done tickets stay untouched.
func (b *Board) DeclineReopen(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending == nil {
		return
	}
	b.recordDeclined(ctx, b.pending.IDs())
	b.pending = nil
}

// Clear empties the board, keeping a snapshot for the undo window. With
// SeedPlaceholder the board is left with one blank ticket.
func (b *Board) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.store.All()
	if err := b.undo.Clear(ctx, current); err != nil {
		return fmt.Errorf("clear: %w", err)
	}

	next := []ticket.Ticket{}
	b.placeholder = nil
	if b.seed {
		seed := ticket.NewEmpty(ticket.NextID(current), 0, b.now())
		next = append(next, seed)
		b.placeholder = &seed
	}
	if err := b.store.Replace(ctx, next); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	b.pending = nil

	b.record(ctx, actorFrom(ctx), event.BoardCleared, 0, map[string]any{"count": len(current)})
	b.broadcastUndo(b.undoSeconds())
	return nil
}

// Undo restores the last cleared board, keeping tickets created since. It
// reports false when there is nothing to undo.
func (b *Board) Undo(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.store.All()
	if b.placeholder != nil {
		seed := *b.placeholder
		current = slices.DeleteFunc(current, func(t ticket.Ticket) bool { return t == seed })
	}

	res, ok, err := b.undo.Undo(ctx, current)
	if err != nil {
		return false, fmt.Errorf("undo: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := b.store.Replace(ctx, res.Tickets); err != nil {
		return false, fmt.Errorf("undo: %w", err)
	}
	b.placeholder = nil

	data := map[string]any{"count": len(res.Tickets)}
	if len(res.Dropped) > 0 {
		data["dropped"] = len(res.Dropped)
		data["droppedIds"] = view.IDs(res.Dropped)
		slog.Info("undo dropped re-synced tickets", "ids", view.IDs(res.Dropped))
	}
	b.record(ctx, actorFrom(ctx), event.BoardRestored, 0, data)
	b.broadcastUndo(0)
	return true, nil
}

// UndoStatus reports the undo window, including one opened by another
// process sharing the backend.
func (b *Board) UndoStatus(ctx context.Context) UndoState {
	if !b.undo.Active() {
		if err := b.undo.Recover(ctx); err != nil {
			slog.Warn("recover undo window", "err", err)
		}
	}
	if !b.undo.Active() {
		return UndoState{}
	}
	return UndoState{Active: true, Remaining: b.undoSeconds()}
}

func (b *Board) undoSeconds() int {
	return int((b.undo.Remaining() + time.Second - 1) / time.Second)
}

// record appends to the activity log. Failures are logged, never returned.
func (b *Board) record(ctx context.Context, actor, typ string, id int, data map[string]any) {
	if b.events == nil {
		return
	}
	e := event.Event{
		TS:     b.now().UTC(),
		Event:  typ,
		Ticket: id,
		Actor:  actor,
		Data:   data,
	}
	if err := b.events.Append(e); err != nil {
		slog.WarnContext(ctx, "append event", "event", typ, "err", err)
	}
}

// diff lists the names of the user-visible fields that changed.
func diff(a, b ticket.Ticket) []string {
	var changed []string
	if a.TicketID != b.TicketID {
		changed = append(changed, "ticketId")
	}
	if a.Title != b.Title {
		changed = append(changed, "title")
	}
	if a.Owner != b.Owner {
		changed = append(changed, "owner")
	}
	if a.Priority != b.Priority {
		changed = append(changed, "priority")
	}
	if a.Age != b.Age {
		changed = append(changed, "age")
	}
	if a.Note != b.Note {
		changed = append(changed, "note")
	}
	return changed
}
