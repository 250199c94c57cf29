package web

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/boozedog/ticketflow/internal/board"
	"github.com/boozedog/ticketflow/internal/config"
	"github.com/boozedog/ticketflow/internal/storage"
	"github.com/boozedog/ticketflow/internal/ticket"
	"github.com/boozedog/ticketflow/internal/web/handler"
	"github.com/boozedog/ticketflow/internal/web/middleware"
	"github.com/boozedog/ticketflow/internal/web/sse"
	"github.com/boozedog/ticketflow/internal/web/static"
)

// Server is the web UI server for ticketflow.
type Server struct {
	cfg    *config.Config
	board  *board.Board
	port   int
	broker *sse.Broker
	srv    *http.Server
}

// NewServer creates a new web server for b.
func NewServer(cfg *config.Config, b *board.Board, port int) *Server {
	return &Server{
		cfg:    cfg,
		board:  b,
		port:   port,
		broker: sse.NewBroker(),
	}
}

// Handler builds the routed and wrapped HTTP handler. The rate limiter's
// cleanup goroutine stops with ctx.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	eventsDir, err := s.cfg.EventsDir()
	if err != nil {
		return nil, fmt.Errorf("get events dir: %w", err)
	}
	h := handler.New(s.board, eventsDir, s.broker, s.cfg.Location())

	mux := http.NewServeMux()

	staticFS, err := fs.Sub(static.Assets, "dist")
	if err != nil {
		return nil, fmt.Errorf("static fs: %w", err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Pages.
	mux.HandleFunc("GET /{$}", h.Board)
	mux.HandleFunc("GET /ticket/{id}", h.Ticket)

	// Commands.
	mux.HandleFunc("POST /tickets", h.CreateTicket)
	mux.HandleFunc("POST /ticket/{id}/edit", h.UpdateTicket)
	mux.HandleFunc("POST /ticket/{id}/delete", h.DeleteTicket)
	mux.HandleFunc("POST /reorder", h.Reorder)
	mux.HandleFunc("POST /clear", h.Clear)
	mux.HandleFunc("POST /undo", h.Undo)

	// Sync endpoint for the browser extension.
	mux.HandleFunc("POST /api/sync", h.Sync)
	mux.HandleFunc("POST /api/sync/reopen", h.ReopenConfirm)
	mux.HandleFunc("POST /api/sync/decline", h.ReopenDecline)

	// SSE endpoint.
	mux.HandleFunc("GET /events", h.Events)

	// Partials for htmx.
	mux.HandleFunc("GET /partials/board", h.PartialBoard)

	return middleware.Chain(mux,
		middleware.Logger("/events"),
		middleware.CORS(),
		middleware.RateLimit(ctx, middleware.DefaultRateLimitConfig()),
	), nil
}

// Broker returns the SSE broker fed by board changes.
func (s *Server) Broker() *sse.Broker {
	return s.broker
}

// Watch forwards board commits and undo ticks to SSE clients. The returned
// function stops forwarding.
func (s *Server) Watch() (stop func()) {
	cancelCommits := s.board.Subscribe(func([]ticket.Ticket) {
		s.broker.Broadcast(sse.Message{Name: sse.Refresh})
	})
	cancelTicks := s.board.OnUndoTick(func(remaining int) {
		s.broker.Broadcast(sse.Message{Name: sse.Undo, Data: strconv.Itoa(remaining)})
		if remaining == 0 {
			s.broker.Broadcast(sse.Message{Name: sse.Refresh})
		}
	})
	return func() {
		cancelCommits()
		cancelTicks()
	}
}

// watchStore reloads the board when another process rewrites the file
// backend's blobs. Other drivers have no files to watch.
func (s *Server) watchStore(ctx context.Context) (*sse.Watcher, error) {
	opts, err := s.cfg.StorageOptions()
	if err != nil {
		return nil, err
	}
	if opts.Driver != "" && opts.Driver != storage.DriverFile {
		return nil, nil
	}
	return sse.NewWatcher(opts.Path, "*.json", time.Second, func() {
		if err := s.board.Reload(ctx); err != nil {
			slog.Warn("reload board", "err", err)
			return
		}
		s.broker.Broadcast(sse.Message{Name: sse.Refresh})
	})
}

// ListenAndServe starts the server and blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	h, err := s.Handler(ctx)
	if err != nil {
		return err
	}

	stop := s.Watch()
	defer stop()

	watcher, err := s.watchStore(ctx)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	if watcher != nil {
		defer func() { _ = watcher.Close() }()
	}

	addr := fmt.Sprintf("localhost:%d", s.port)
	s.srv = &http.Server{
		Addr:        addr,
		Handler:     h,
		ReadTimeout: 5 * time.Second,
		// WriteTimeout stays unset: /events responses are long-lived.
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		slog.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", "http://"+addr)
	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
