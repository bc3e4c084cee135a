// Package api exposes the simulator and the verifier over HTTP.
package api

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"liquidity-mining-lab/internal/observability"
	"liquidity-mining-lab/internal/storage"
)

// Route names, also used as the route metric label.
const (
	RouteSimulate = "simulate"
	RouteVerify   = "verify"
	RouteClaims   = "claims"
	RouteHealth   = "health"
	RouteMetrics  = "metrics"
)

// Options configures the API.
type Options struct {
	ScenarioStore    storage.ScenarioStore
	ActionStore      storage.ActionStore
	ClaimStore       storage.ClaimStore
	ExpectationStore storage.ExpectationStore

	Metrics *observability.Metrics // defaults to a fresh registry
	Logger  *log.Logger            // defaults to discarding output
}

// API serves simulation and verification requests.
type API struct {
	scenarioStore    storage.ScenarioStore
	actionStore      storage.ActionStore
	claimStore       storage.ClaimStore
	expectationStore storage.ExpectationStore

	metrics *observability.Metrics
	logger  *log.Logger
}

// New creates an API.
func New(opts Options) *API {
	m := opts.Metrics
	if m == nil {
		m = observability.NewMetrics(observability.DefaultNamespace)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &API{
		scenarioStore:    opts.ScenarioStore,
		actionStore:      opts.ActionStore,
		claimStore:       opts.ClaimStore,
		expectationStore: opts.ExpectationStore,
		metrics:          m,
		logger:           logger,
	}
}

// Mount registers every route on root.
func (a *API) Mount(root *mux.Router) {
	v1 := root.PathPrefix("/v1").Subrouter()
	v1.Path("/simulate").
		Methods(http.MethodPost).
		Name(RouteSimulate).
		HandlerFunc(WrapHandlerFunc(a.handleSimulate))
	v1.Path("/verify").
		Methods(http.MethodPost).
		Name(RouteVerify).
		HandlerFunc(WrapHandlerFunc(a.handleVerify))
	v1.Path("/claims").
		Methods(http.MethodPost).
		Name(RouteClaims).
		HandlerFunc(WrapHandlerFunc(a.handleClaims))

	root.Path("/healthz").
		Methods(http.MethodGet).
		Name(RouteHealth).
		HandlerFunc(WrapHandlerFunc(a.handleHealth))
	root.Path("/metrics").
		Methods(http.MethodGet).
		Name(RouteMetrics).
		Handler(a.metrics.Handler())

	root.Use(a.metricsMiddleware)
}

// Handler returns the full HTTP handler with compression enabled.
func (a *API) Handler() http.Handler {
	router := mux.NewRouter()
	a.Mount(router)
	return handlers.CompressHandler(router)
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status      string `json:"status"`
	Persistence bool   `json:"persistence"`
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, HealthResponse{
		Status:      "ok",
		Persistence: a.scenarioStore != nil,
	})
}

// statusWriter captures the status code written by a handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records count and latency per named route.
func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}
		a.metrics.RecordHTTPRequest(route, sw.status, time.Since(start))
	})
}
