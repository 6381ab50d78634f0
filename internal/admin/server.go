// Package admin implements the observability-only HTTP surface (C12):
// liveness/readiness, Prometheus metrics, and read-only job/queue-state
// endpoints for dashboards. No authentication is added here — the same
// scope decision spec.md's Non-goals make for the store itself.
package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.triggerstore.dev/internal/common/health"
	"go.triggerstore.dev/internal/common/metrics"
	"go.triggerstore.dev/internal/triggerstore"
)

// Server wires the chi router, health checker, and store reader together.
type Server struct {
	router  chi.Router
	checker *health.Checker
	store   *triggerstore.Store
}

// New builds the admin HTTP surface. checker should already have its
// liveness/readiness checks registered (DB ping, NATS connectivity).
func New(store *triggerstore.Store, checker *health.Checker, corsOrigins []string) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		checker: checker,
		store:   store,
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.instrumentRequest)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", checker.HandleHealth)
	r.Get("/healthz/live", checker.HandleLive)
	r.Get("/healthz/ready", checker.HandleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/jobs", s.handleJobs)
		r.Get("/queue-state", s.handleQueueState)
		r.Get("/job-counts", s.handleJobCounts)
	})

	return s
}

// ServeHTTP makes Server usable directly with net/http.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrumentRequest records HTTPRequestsTotal/HTTPRequestDuration for every
// request the chi router handles.
func (s *Server) instrumentRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, routePattern).Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, routePattern, strconv.Itoa(ww.Status())).Inc()
	})
}

type jobsResponse struct {
	Executing []triggerstore.ExecutingEntry `json:"executing"`
	Queued    []*triggerstore.Trigger       `json:"queued"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	queued, executing, err := s.store.GetJobs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, jobsResponse{Executing: executing, Queued: queued})
}

func (s *Server) handleQueueState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	waiting, err := s.store.GetWaitingTriggersCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	blocked, err := s.store.GetBlockedTriggersCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	total, err := s.store.GetTotalWaitingTriggersCount(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, triggerstore.QueueStateContext{
		WaitingCount: waiting,
		BlockedCount: blocked,
		TotalCount:   total,
	})
}

func (s *Server) handleJobCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.GetJobCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
