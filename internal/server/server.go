// Package server is the HTTP transport over pagination and live tailing.
// Pages and live events are streamed as server-sent events; live events
// are also available over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SteelMorgan/hostlog-checker/internal/domain"
	"github.com/SteelMorgan/hostlog-checker/internal/livetail"
	"github.com/SteelMorgan/hostlog-checker/internal/pagination"
	"github.com/SteelMorgan/hostlog-checker/internal/registry"
)

const (
	defaultLimit = 100
	keepAlive    = 15 * time.Second
)

// Server serves the HTTP API
type Server struct {
	port       int
	registry   *registry.Registry
	paginator  *pagination.Paginator
	hub        *livetail.Hub
	keepAlive  time.Duration
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(port int, reg *registry.Registry, p *pagination.Paginator, hub *livetail.Hub) (*Server, error) {
	if reg == nil || p == nil || hub == nil {
		return nil, fmt.Errorf("registry, paginator and hub are required")
	}
	s := &Server{
		port:      port,
		registry:  reg,
		paginator: p,
		hub:       hub,
		keepAlive: keepAlive,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/drain", s.handleDrain(pagination.Initial))
	mux.HandleFunc("/drain_older", s.handleDrain(pagination.Older))
	mux.HandleFunc("/drain_previous", s.handleDrain(pagination.Previous))
	mux.HandleFunc("/live", s.handleLive)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/classes", s.handleClasses)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// Start serves until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info().Int("port", s.port).Msg("HTTP server started")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop() error {
	log.Info().Msg("HTTP server stopping...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

// filter holds the query parameters shared by every endpoint
type filter struct {
	class      string
	keyword    string
	eventTypes []string
}

func parseFilter(r *http.Request) (filter, error) {
	q := r.URL.Query()
	f := filter{
		class:   q.Get("event_name"),
		keyword: q.Get("query"),
	}
	if f.class == "" {
		return f, fmt.Errorf("%w: event_name is required", domain.ErrInvalidRequest)
	}
	// both event_type=a&event_type=b and event_type=a,b are accepted
	for _, v := range q["event_type"] {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				f.eventTypes = append(f.eventTypes, name)
			}
		}
	}
	return f, nil
}

func (s *Server) handleDrain(mode pagination.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		req, err := parseDrainRequest(r, mode)
		if err != nil {
			writeError(w, err)
			return
		}

		page, err := s.paginator.Paginate(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}

		var token *string
		if page.Cursor != nil {
			t, err := domain.RenderCursor(page.Cursor)
			if err != nil {
				writeError(w, err)
				return
			}
			token = &t
		}

		sse, ok := newSSE(w)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}
		if err := sse.send("cursor", map[string]*string{"cursor": token}); err != nil {
			return
		}
		for _, ev := range page.Events {
			if err := sse.send("log", ev); err != nil {
				log.Debug().Err(err).Str("log_class", req.LogClass).Msg("Client went away during drain")
				return
			}
		}
	}
}

func parseDrainRequest(r *http.Request, mode pagination.Mode) (pagination.Request, error) {
	f, err := parseFilter(r)
	if err != nil {
		return pagination.Request{}, err
	}
	req := pagination.Request{
		LogClass:   f.class,
		Mode:       mode,
		Limit:      defaultLimit,
		Keyword:    f.keyword,
		EventTypes: f.eventTypes,
	}

	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: invalid limit %q", domain.ErrInvalidRequest, v)
		}
		req.Limit = n
	}
	if v := q.Get("cursor"); v != "" {
		c, err := domain.ParseCursor(v)
		if err != nil {
			return req, err
		}
		req.Cursor = c
	}
	return req, nil
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := s.hub.SubscribeLive(r.Context(), f.class, f.keyword, f.eventTypes)
	if err != nil {
		writeError(w, err)
		return
	}

	sse, ok := newSSE(w)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	sse.flush()

	log.Info().Str("log_class", f.class).Str("remote", r.RemoteAddr).Msg("Live SSE client connected")
	defer log.Info().Str("log_class", f.class).Str("remote", r.RemoteAddr).Msg("Live SSE client disconnected")

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.send("log", ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := sse.comment("keep-alive"); err != nil {
				return
			}
		}
	}
}

type classInfo struct {
	Name       string   `json:"name"`
	Backend    string   `json:"backend"`
	Path       string   `json:"path,omitempty"`
	Table      string   `json:"table"`
	EventTypes []string `json:"event_types"`
	Buffered   int      `json:"buffered"`
	Dropped    uint64   `json:"dropped"`
	Missed     uint64   `json:"missed"`
}

func (s *Server) classes() []classInfo {
	b := s.hub.Broadcaster()
	out := make([]classInfo, 0)
	for _, c := range s.registry.All() {
		out = append(out, classInfo{
			Name:       c.Name,
			Backend:    c.Backend.String(),
			Path:       c.Path,
			Table:      c.Table.Name,
			EventTypes: c.Table.EventNames(),
			Buffered:   b.Buffered(c.Name),
			Dropped:    b.Dropped(c.Name),
			Missed:     b.Missed(c.Name),
		})
	}
	return out
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.classes())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps request errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownLogClass):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCursorMismatch):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrJournalUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	body := map[string]any{"error": err.Error()}
	var cme *domain.CursorMismatchError
	if errors.As(err, &cme) {
		body["reason"] = cme.Reason
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
