// Package undo keeps a time-boxed snapshot of a cleared board.
package undo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/ticket"
)

const (
	DefaultWindow = 30 * time.Second
	DefaultTick   = time.Second
)

// Snapshot is the board as it was when cleared. It is persisted so another
// process (the CLI after a web clear, or the reverse) can still undo.
type Snapshot struct {
	Tickets   []ticket.Ticket `json:"tickets"`
	ClearedAt int64           `json:"clearedAt"`
	ExpiresAt int64           `json:"expiresAt"`
}

// Expired reports whether the undo window has closed at now.
func (s Snapshot) Expired(now time.Time) bool {
	return ticket.Millis(now) >= s.ExpiresAt
}

// Remaining returns the time left in the window, never negative.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	d := time.UnixMilli(s.ExpiresAt).Sub(now)
	return max(d, 0)
}

// Controller owns at most one live snapshot and the timers counting it down.
//
// OnTick receives the whole seconds left once per Tick; OnExpire fires once
// when the window closes without an undo. Both run on timer goroutines with no
// controller lock held. Set them before the first Clear.
type Controller struct {
	Window   time.Duration
	Tick     time.Duration
	OnTick   func(remaining int)
	OnExpire func()

	backend storage.Backend
	now     func() time.Time

	mu     sync.Mutex
	snap   *Snapshot
	gen    int
	stop   chan struct{}
	expiry *time.Timer
}

// New returns a Controller persisting snapshots to backend.
func New(backend storage.Backend, window time.Duration) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Controller{
		Window:  window,
		Tick:    DefaultTick,
		backend: backend,
		now:     time.Now,
	}
}

// Clear snapshots current and starts a new window, discarding any live one.
func (c *Controller) Clear(ctx context.Context, current []ticket.Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	now := c.now()
	snap := Snapshot{
		Tickets:   ticket.Clone(current),
		ClearedAt: ticket.Millis(now),
		ExpiresAt: ticket.Millis(now.Add(c.Window)),
	}
	if snap.Tickets == nil {
		snap.Tickets = []ticket.Ticket{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode undo snapshot: %w", err)
	}
	if err := c.backend.Set(ctx, storage.KeyUndo, data); err != nil {
		return fmt.Errorf("persist undo snapshot: %w", err)
	}

	c.armLocked(snap)
	return nil
}

// Recover loads a snapshot persisted by another process and re-arms the
// countdown if its window is still open. Expired snapshots are deleted.
func (c *Controller) Recover(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.recoverLocked(ctx)
	return err
}

// Restored is the board rebuilt by Undo.
type Restored struct {
	Tickets []ticket.Ticket
	// Dropped holds post-clear tickets whose external ID was already in the
	// snapshot.
	Dropped []ticket.Ticket
}

// Undo returns the snapshot merged with current and releases the window.
// With no snapshot, or after expiry, it returns ok == false and no error.
//
// The merge keeps the snapshot in its original order followed by every ticket
// created after the clear. A post-clear ticket whose external ID is already in
// the snapshot is dropped; one whose board ID collides is given a fresh ID.
func (c *Controller) Undo(ctx context.Context, current []ticket.Ticket) (Restored, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live, err := c.recoverLocked(ctx)
	if err != nil {
		return Restored{}, false, err
	}
	if !live {
		return Restored{}, false, nil
	}

	merged, dropped := Merge(c.snap.Tickets, current)
	c.releaseLocked()
	if err := c.backend.Delete(ctx, storage.KeyUndo); err != nil {
		slog.Warn("delete undo snapshot", "err", err)
	}
	return Restored{Tickets: merged, Dropped: dropped}, true, nil
}

// Active reports whether an undo window is open in this process.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap != nil && !c.snap.Expired(c.now())
}

// Remaining returns the time left in this process's window, or 0.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return 0
	}
	return c.snap.Remaining(c.now())
}

// Close stops the timers. The persisted snapshot is kept so another process
// can still undo before it expires. Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	c.releaseLocked()
	c.mu.Unlock()
}

// recoverLocked makes sure c.snap reflects the persisted state and reports
// whether a live window exists.
func (c *Controller) recoverLocked(ctx context.Context) (bool, error) {
	now := c.now()
	if c.snap != nil {
		if !c.snap.Expired(now) {
			return true, nil
		}
		c.releaseLocked()
	}

	data, err := c.backend.Get(ctx, storage.KeyUndo)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load undo snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("discarding malformed undo snapshot", "err", err)
		return false, c.deleteLocked(ctx)
	}
	if snap.Expired(now) {
		return false, c.deleteLocked(ctx)
	}

	c.armLocked(snap)
	return true, nil
}

func (c *Controller) deleteLocked(ctx context.Context) error {
	if err := c.backend.Delete(ctx, storage.KeyUndo); err != nil {
		return fmt.Errorf("delete undo snapshot: %w", err)
	}
	return nil
}

// armLocked installs snap and starts its ticker and expiry timer.
func (c *Controller) armLocked(snap Snapshot) {
	c.gen++
	gen := c.gen
	c.snap = &snap

	stop := make(chan struct{})
	c.stop = stop
	c.expiry = time.AfterFunc(snap.Remaining(c.now()), func() { c.expire(gen) })

	tick := c.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	go c.countdown(gen, tick, stop)
}

func (c *Controller) countdown(gen int, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen || c.snap == nil {
				c.mu.Unlock()
				return
			}
			left := c.snap.Remaining(c.now())
			onTick := c.OnTick
			c.mu.Unlock()

			if left <= 0 {
				return
			}
			if onTick != nil {
				onTick(seconds(left))
			}
		}
	}
}

func (c *Controller) expire(gen int) {
	c.mu.Lock()
	if c.gen != gen || c.snap == nil {
		c.mu.Unlock()
		return
	}
	c.releaseLocked()
	err := c.deleteLocked(context.Background())
	onExpire := c.OnExpire
	c.mu.Unlock()

	if err != nil {
		slog.Warn("undo window expired", "err", err)
	}
	if onExpire != nil {
		onExpire()
	}
}

// releaseLocked stops any running timers and drops the in-memory snapshot.
// Safe to call repeatedly.
func (c *Controller) releaseLocked() {
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.expiry != nil {
		c.expiry.Stop()
		c.expiry = nil
	}
	c.snap = nil
}

// seconds rounds d up to whole seconds for the countdown display.
func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// Merge restores snapshot and appends the tickets in current that were
// created after the clear. Tickets skipped as duplicates are returned
// separately.
func Merge(snapshot, current []ticket.Ticket) (merged, dropped []ticket.Ticket) {
	out := ticket.Clone(snapshot)
	if out == nil {
		out = []ticket.Ticket{}
	}
	ticket.SortByOrder(out)

	ids := make(map[int]bool, len(out))
	extIDs := make(map[string]bool, len(out))
	for _, t := range out {
		ids[t.ID] = true
		if t.TicketID != "" {
			extIDs[t.TicketID] = true
		}
	}

	added := ticket.Clone(current)
	ticket.SortByOrder(added)
	nextOrder := ticket.NextOrderIndex(out)
	for _, t := range added {
		if t.TicketID != "" && extIDs[t.TicketID] {
			dropped = append(dropped, t)
			continue
		}
		if ids[t.ID] {
			t.ID = ticket.NextID(out)
		}
		t.OrderIndex = nextOrder
		nextOrder++

		ids[t.ID] = true
		if t.TicketID != "" {
			extIDs[t.TicketID] = true
		}
		out = append(out, t)
	}
	return out, dropped
}
