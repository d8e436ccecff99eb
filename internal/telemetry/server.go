// Package telemetry serves a scheduler's metrics over HTTP while the demo or
// the bench command runs: Prometheus text on /metrics, a JSON snapshot on
// /stats and a health check on /health.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kingrea/deferview/internal/config"
	"github.com/kingrea/deferview/internal/deferral"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 2 * time.Second
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// ErrDisabled is returned by Start when the config disables the server.
var ErrDisabled = errors.New("telemetry: server disabled")

// Source is what the server exposes. *deferral.Scheduler implements it.
type Source interface {
	ID() string
	Stats() deferral.Stats
	WriteMetrics(w io.Writer)
}

// Server wraps the HTTP listener and handlers.
type Server struct {
	cfg      config.MetricsConfig
	source   Source
	logger   *slog.Logger
	clock    func() time.Time

	mu        sync.RWMutex
	server    *http.Server
	listener  net.Listener
	status    ServerStatus
	startTime time.Time
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock allows tests to control timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewServer prepares a server exposing source on the address in cfg.
func NewServer(cfg config.MetricsConfig, source Source, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		source:   source,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    func() time.Time { return time.Now().UTC() },
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = s.logger.With("component", "telemetry")
	return s
}

// Handler returns the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Head("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/stats", s.handleStats)
	return r
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("telemetry: server is nil")
	}
	if !s.cfg.Enabled {
		return ErrDisabled
	}
	if s.source == nil {
		return fmt.Errorf("telemetry: no metrics source")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("telemetry: server already started")
	}
	addr := s.bindAddr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("telemetry: listen %s: %w", addr, err)
	}
	s.listener = listener
	s.startTime = s.clock()
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	s.logger.Info("listening", "addr", listener.Addr().String(), "scheduler", s.source.ID())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		addr = s.bindAddr()
	}
	return "http://" + addr
}

func (s *Server) bindAddr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) uptimeSeconds() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startTime.IsZero() {
		return 0
	}
	return int64(s.clock().Sub(s.startTime).Seconds())
}

type healthResponse struct {
	Status        string `json:"status"`
	Scheduler     string `json:"scheduler"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type statsResponse struct {
	State      string `json:"state"`
	Queued     int    `json:"queued"`
	InFlight   int    `json:"in_flight"`
	Registered uint64 `json:"registered"`
	Committed  uint64 `json:"committed"`
	Cancelled  uint64 `json:"cancelled"`
	Panicked   uint64 `json:"panicked"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Scheduler:     s.source.ID(),
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.source.WriteMetrics(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.source.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		State:      st.State.String(),
		Queued:     st.Queued,
		InFlight:   st.InFlight,
		Registered: st.Registered,
		Committed:  st.Committed,
		Cancelled:  st.Cancelled,
		Panicked:   st.Panicked,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
