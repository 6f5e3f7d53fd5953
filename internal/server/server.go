package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"league-digest/internal/config"
	"league-digest/internal/metrics"
	"league-digest/internal/model"
)

// Latest holds the most recently rendered digest.
type Latest struct {
	mu sync.RWMutex
	d  model.Digest
	ok bool
}

func (l *Latest) Set(d model.Digest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.d, l.ok = d, true
}

func (l *Latest) Get() (model.Digest, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.d, l.ok
}

type Server struct {
	latest *Latest
	server *http.Server
}

func New(cfg config.ServerConfig, latest *Latest) *Server {
	s := &Server{latest: latest}
	s.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/digest", s.handleDigest)
	r.Get("/digest/events", s.handleEvents)
	return r
}

func (s *Server) handleDigest(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.latest.Get()
	if !ok {
		http.Error(w, "no digest rendered yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Run-ID", d.RunID.String())
	_, _ = w.Write([]byte(d.HTML))
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.latest.Get()
	if !ok {
		http.Error(w, "no digest rendered yet", http.StatusNotFound)
		return
	}
	events := d.Events
	if events == nil {
		events = []model.CombinedEvent{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"run_id":       d.RunID.String(),
		"league":       d.League,
		"window":       d.Window,
		"generated_at": d.GeneratedAt,
		"events":       events,
	})
}

func (s *Server) Serve() error                       { return s.server.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.server.Shutdown(ctx) }
