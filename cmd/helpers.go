package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/config"
	"github.com/boozedog/ticketflow/internal/event"
	"github.com/boozedog/ticketflow/internal/storage"
)

// session is an open board plus the resources backing it.
type session struct {
	cfg     *config.Config
	board   *board.Board
	backend storage.Backend
	ctx     context.Context
}

// openSession loads config and opens the board on the configured backend.
// Commands run as the CLI actor.
func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	ctx := board.WithActor(context.Background(), event.ActorCLI)
	opts, err := cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	eventsDir, err := cfg.EventsDir()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	b, err := board.Open(ctx, board.Options{
		Backend:         backend,
		EventsDir:       eventsDir,
		Priorities:      cfg.PriorityTable(),
		UndoWindow:      cfg.UndoWindow(),
		SeedPlaceholder: cfg.Undo.SeedPlaceholder,
	})
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open board: %w", err)
	}
	return &session{cfg: cfg, board: b, backend: backend, ctx: ctx}, nil
}

func (s *session) Close() {
	s.board.Close()
	if err := s.backend.Close(); err != nil {
		slog.Warn("close storage", "err", err)
	}
}

// parseID accepts a board ID with or without a leading '#'.
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ticket id %q", s)
	}
	return id, nil
}

// parseIDs splits a comma-separated list of board IDs.
func parseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
