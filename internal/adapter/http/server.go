package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Feed exposes the latest polled batch and accepts refresh requests.
type Feed interface {
	Latest() (domain.Batch, bool)
	Refresh()
}

// Server exposes health, readiness, metrics, and earthquake list endpoints.
type Server struct {
	httpServer *http.Server
	feed       Feed
	location   *time.Location
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /earthquakes routes. Dates in the list are rendered in loc.
func NewServer(addr string, ready ReadinessChecker, feed Feed, loc *time.Location, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		feed:     feed,
		location: loc,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /earthquakes", s.handleList)
	mux.HandleFunc("POST /earthquakes/refresh", s.handleRefresh)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// listResponse is the body of GET /earthquakes.
type listResponse struct {
	Outcome     string            `json:"outcome"`
	FetchedAt   *time.Time        `json:"fetched_at,omitempty"`
	Count       int               `json:"count"`
	Earthquakes []domain.ListItem `json:"earthquakes"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	batch, ok := s.feed.Latest()
	if !ok {
		writeJSON(w, http.StatusOK, listResponse{Outcome: "pending", Earthquakes: []domain.ListItem{}})
		return
	}

	fetchedAt := batch.FetchedAt.UTC()
	items := domain.NewListItems(batch.Earthquakes, s.location)
	writeJSON(w, http.StatusOK, listResponse{
		Outcome:     string(batch.Outcome),
		FetchedAt:   &fetchedAt,
		Count:       len(items),
		Earthquakes: items,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, _ *http.Request) {
	s.feed.Refresh()
	s.logger.Debug("refresh requested")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
