// Package httpapi exposes the operator's read-only maintenance surface:
// the outstanding job boxes, the global counter and Prometheus metrics.
// It never mutates jobs; only the contract may do that.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirrorledger/textoracle/internal/ledger"
)

type Server struct {
	svc   ledger.Service
	appID uint64

	registry *prometheus.Registry

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

// WithMetricsRegistry serves the registry at /metrics.
func WithMetricsRegistry(registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = registry
	}
}

func NewServer(svc ledger.Service, appID uint64, opts ...Option) *Server {
	s := &Server{
		svc:   svc,
		appID: appID,
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/jobs", s.handleListJobs)
	s.mux.HandleFunc("/api/counter", s.handleCounter)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.registry != nil {
		s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}
