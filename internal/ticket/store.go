package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/boozedog/ticketflow/internal/storage"
)

// ErrNotFound is returned when a ticket ID is not on the board.
var ErrNotFound = errors.New("ticket not found")

// Store is the single owner of the board's tickets. It keeps them in memory in
// orderIndex order and overwrites the persisted blob on every committed mutation.
type Store struct {
	mu      sync.Mutex
	backend storage.Backend
	key     string
	tickets []Ticket

	subMu  sync.Mutex
	subs   map[int]func([]Ticket)
	subSeq int
}

// NewStore creates a Store persisting to backend under storage.KeyTickets.
// Call Load to read the current blob.
func NewStore(backend storage.Backend) *Store {
	return &Store{
		backend: backend,
		key:     storage.KeyTickets,
		subs:    make(map[int]func([]Ticket)),
	}
}

// Load replaces the in-memory state with the persisted blob. A missing or
// malformed blob yields an empty board; only backend failures are errors.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load tickets: %w", err)
	}

	tickets := decodeTickets(data)

	s.mu.Lock()
	s.tickets = tickets
	s.mu.Unlock()
	return nil
}

func decodeTickets(data []byte) []Ticket {
	if len(data) == 0 {
		return []Ticket{}
	}
	var tickets []Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		slog.Warn("discarding malformed ticket blob", "err", err)
		return []Ticket{}
	}
	if tickets == nil {
		tickets = []Ticket{}
	}
	SortByOrder(tickets)
	return tickets
}

// All returns a copy of the current tickets in orderIndex order.
func (s *Store) All() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.tickets)
}

// Get returns a copy of the ticket with the given ID.
func (s *Store) Get(id int) (Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	return Clone(s.tickets[i : i+1])[0], nil
}

// Add appends an empty ticket at the end of the manual order.
func (s *Store) Add(ctx context.Context, now time.Time) (Ticket, error) {
	var added Ticket
	err := s.mutate(ctx, func(current []Ticket) ([]Ticket, error) {
		added = NewEmpty(NextID(current), NextOrderIndex(current), now)
		return append(current, added), nil
	})
	return added, err
}

// Insert appends a fully populated ticket, allocating its ID and orderIndex.
func (s *Store) Insert(ctx context.Context, t Ticket, now time.Time) (Ticket, error) {
	if err := Validate(t); err != nil {
		return Ticket{}, err
	}
	err := s.mutate(ctx, func(current []Ticket) ([]Ticket, error) {
		if t.TicketID != "" && slices.ContainsFunc(current, func(c Ticket) bool { return c.TicketID == t.TicketID }) {
			return nil, fmt.Errorf("ticket %s already on the board", t.TicketID)
		}
		status := t.Status
		t.Status = StatusPending
		t.ID = NextID(current)
		t.OrderIndex = NextOrderIndex(current)
		t.LastSync = Millis(now)
		t.ClosedAt = nil
		ApplyStatus(&t, status, now)
		return append(current, t), nil
	})
	return t, err
}

// Update applies fn to a copy of ticket id and commits the result. Status
// changes made by fn go through ApplyStatus so closedAt stays consistent.
func (s *Store) Update(ctx context.Context, id int, now time.Time, fn func(*Ticket)) (Ticket, error) {
	var updated Ticket
	err := s.mutate(ctx, func(current []Ticket) ([]Ticket, error) {
		i := indexOf(current, id)
		if i < 0 {
			return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
		}
		before := current[i]
		t := Clone(current[i : i+1])[0]
		fn(&t)

		// ID is the row identity; edits never move it.
		t.ID = before.ID
		if t.Status != before.Status {
			next := t.Status
			t.Status = before.Status
			ApplyStatus(&t, next, now)
		}
		if err := Validate(t); err != nil {
			return nil, err
		}
		if t.TicketID != "" && t.TicketID != before.TicketID {
			for j, c := range current {
				if j != i && c.TicketID == t.TicketID {
					return nil, fmt.Errorf("ticket %s already on the board", t.TicketID)
				}
			}
		}
		current[i] = t
		updated = t
		return current, nil
	})
	return updated, err
}

// Delete removes ticket id.
func (s *Store) Delete(ctx context.Context, id int) error {
	return s.mutate(ctx, func(current []Ticket) ([]Ticket, error) {
		i := indexOf(current, id)
		if i < 0 {
			return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
		}
		return slices.Delete(current, i, i+1), nil
	})
}

// Reorder assigns orderIndex = position to each listed ticket. Tickets not in
// orderedIDs keep their index. Unknown or repeated IDs reject the whole call.
func (s *Store) Reorder(ctx context.Context, orderedIDs []int) error {
	return s.mutate(ctx, func(current []Ticket) ([]Ticket, error) {
		pos := make(map[int]int, len(orderedIDs))
		for i, id := range orderedIDs {
			if _, dup := pos[id]; dup {
				return nil, fmt.Errorf("ticket %d listed twice", id)
			}
			if indexOf(current, id) < 0 {
				return nil, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
			}
			pos[id] = i
		}
		for i := range current {
			if p, ok := pos[current[i].ID]; ok {
				current[i].OrderIndex = p
			}
		}
		return current, nil
	})
}

// Replace commits an entirely new ticket set.
func (s *Store) Replace(ctx context.Context, tickets []Ticket) error {
	return s.mutate(ctx, func([]Ticket) ([]Ticket, error) {
		return Clone(tickets), nil
	})
}

// Subscribe registers fn to receive the committed tickets after each mutation.
// The returned function removes the subscription.
func (s *Store) Subscribe(fn func([]Ticket)) (cancel func()) {
	s.subMu.Lock()
	id := s.subSeq
	s.subSeq++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// mutate runs fn on a working copy, persists the result, and only then makes
// it visible. A failed write leaves the in-memory state untouched.
func (s *Store) mutate(ctx context.Context, fn func([]Ticket) ([]Ticket, error)) error {
	s.mu.Lock()
	next, err := fn(Clone(s.tickets))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next == nil {
		next = []Ticket{}
	}
	SortByOrder(next)

	data, err := json.Marshal(next)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("encode tickets: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("persist tickets: %w", err)
	}
	s.tickets = next
	snapshot := Clone(next)
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) notify(tickets []Ticket) {
	s.subMu.Lock()
	subs := make([]func([]Ticket), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(Clone(tickets))
	}
}

func (s *Store) indexOf(id int) int {
	return indexOf(s.tickets, id)
}

func indexOf(tickets []Ticket, id int) int {
	return slices.IndexFunc(tickets, func(t Ticket) bool { return t.ID == id })
}

// Validate checks enumerated fields.
func Validate(t Ticket) error {
	if !ValidStatuses[t.Status] {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !ValidPriorities[t.Priority] {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	return nil
}
