// Package api exposes the order ingest and read endpoints over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domain "github.com/Ben-Nachmanson/Fill-Flow/internal/domain/order/v1"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/logger"
	"github.com/Ben-Nachmanson/Fill-Flow/pkg/util"
)

// Server handles the REST API.
type Server struct {
	usecase domain.Usecase
	logger  logger.Interface
	router  *mux.Router
	server  *http.Server
}

// NewServer creates an API server bound to the given usecase. The prometheus
// registry backs the /metrics endpoint; pass the registry the service metrics
// were registered on.
func NewServer(usecase domain.Usecase, log logger.Interface, registry *prometheus.Registry, addr string) *Server {
	s := &Server{
		usecase: usecase,
		logger:  log,
		router:  mux.NewRouter(),
	}

	s.setupRoutes(registry)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.requestID(s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) setupRoutes(registry *prometheus.Registry) {
	s.router.HandleFunc("/orders", s.handlePlaceOrder).Methods(http.MethodPost)
	s.router.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet)
	s.router.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	s.router.HandleFunc("/positions", s.handleListPositions).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
}

// Handler returns the routed handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.requestID(s.router)
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("api server starting", logger.Field{Key: "addr", Value: s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestID stamps every request context with a request id so handler logs
// can be correlated.
func (s *Server) requestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := util.WithRequestID(r.Context(), r.Header.Get("X-Request-ID"))
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}
