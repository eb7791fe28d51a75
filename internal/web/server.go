package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/elys-network/curator/internal/curator"
	"github.com/elys-network/curator/internal/logger"
	"github.com/elys-network/curator/internal/state"
	"github.com/elys-network/curator/internal/types"
	"github.com/gorilla/mux"
)

var webLogger = logger.GetForComponent("web_server")

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the curator surface the HTTP layer depends on.
type Service interface {
	Recommend(ctx context.Context, req curator.RecommendRequest) (types.AllocationRecord, error)
	GetAllocation(ctx context.Context, id string) (types.AllocationRecord, error)
	ListAllocations(ctx context.Context, userID string, limit int) ([]types.AllocationRecord, error)
	Backtest(ctx context.Context, req curator.BacktestRequest) (types.BacktestResponse, error)
	Catalog() []types.CuratedPool
	LastRefresh() time.Time
	Score(pool types.PoolMetrics) types.ScoredPool
	Ping(ctx context.Context) error
}

// WebServer exposes the curator over HTTP
type WebServer struct {
	router        *mux.Router
	port          string
	service       Service
	allowedOrigin string
	server        *http.Server
	startedAt     time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, service Service, allowedOrigin string) *WebServer {
	if port == "" {
		port = "8080"
	}
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}

	server := &WebServer{
		router:        mux.NewRouter(),
		port:          port,
		service:       service,
		allowedOrigin: allowedOrigin,
		startedAt:     time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/score", ws.handleScore).Methods("POST")
	api.HandleFunc("/allocations", ws.handleCreateAllocation).Methods("POST")
	api.HandleFunc("/allocations", ws.handleListAllocations).Methods("GET")
	api.HandleFunc("/allocations/{id}", ws.handleGetAllocation).Methods("GET")
	api.HandleFunc("/backtest", ws.handleBacktest).Methods("POST")

	// Preflight requests must reach the CORS middleware.
	ws.router.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler returns the routed handler, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server. It returns http.ErrServerClosed after Shutdown.
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // Backtests fan out to the market feed.
		IdleTimeout:  60 * time.Second,
	}

	return ws.server.ListenAndServe()
}

// Shutdown gracefully stops the web server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

type allocationRequest struct {
	Amount        float64 `json:"amount"`
	RiskTolerance string  `json:"riskTolerance"`
	UserID        string  `json:"userId"`
}

type backtestRequest struct {
	PoolIDs       []string `json:"poolIds"`
	InitialAmount float64  `json:"initialAmount"`
	Days          int      `json:"days"`
	Compounding   string   `json:"compounding"`
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	catalog := ws.service.Catalog()
	lastRefresh := ws.service.LastRefresh()

	storeHealthy := true
	if err := ws.service.Ping(r.Context()); err != nil {
		webLogger.Warn().Err(err).Msg("Allocation store ping failed")
		storeHealthy = false
	}

	hasErrors := len(catalog) == 0 || !storeHealthy
	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	var lastRefreshValue interface{}
	if !lastRefresh.IsZero() {
		lastRefreshValue = lastRefresh.UTC()
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.startedAt).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "yield-curator",
			"version": "1.0.0",
		},
		"curator_status": map[string]interface{}{
			"store_healthy":  storeHealthy,
			"catalog_size":   len(catalog),
			"last_refreshed": lastRefreshValue,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns the scored catalog
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	catalog := ws.service.Catalog()
	if len(catalog) == 0 {
		ws.writeServiceError(w, curator.ErrCatalogUnavailable)
		return
	}

	response := map[string]interface{}{
		"pools":          catalog,
		"count":          len(catalog),
		"last_refreshed": ws.service.LastRefresh().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleScore scores ad-hoc pool metrics
func (ws *WebServer) handleScore(w http.ResponseWriter, r *http.Request) {
	var pool types.PoolMetrics
	if !ws.decodeBody(w, r, &pool) {
		return
	}
	pool.ILRisk = types.ParseILRisk(string(pool.ILRisk))

	ws.writeJSONResponse(w, http.StatusOK, ws.service.Score(pool))
}

// handleCreateAllocation builds and stores an allocation recommendation
func (ws *WebServer) handleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req allocationRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	record, err := ws.service.Recommend(r.Context(), curator.RecommendRequest{
		Amount:        req.Amount,
		RiskTolerance: req.RiskTolerance,
		UserID:        req.UserID,
	})
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	// The recommendation is the body; id is empty when the store failed.
	response := struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		types.AllocationRecommendation
	}{
		ID:                       record.ID,
		CreatedAt:                record.CreatedAt,
		AllocationRecommendation: record.Recommendation,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetAllocation returns a stored allocation by ID
func (ws *WebServer) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := ws.service.GetAllocation(r.Context(), id)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, record)
}

// handleListAllocations returns recent allocations, optionally for one user
func (ws *WebServer) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	limit := state.DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > state.MaxListLimit {
			ws.writeErrorResponse(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(state.MaxListLimit))
			return
		}
		limit = parsedLimit
	}

	records, err := ws.service.ListAllocations(r.Context(), r.URL.Query().Get("userId"), limit)
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	response := map[string]interface{}{
		"allocations": records,
		"count":       len(records),
		"limit":       limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleBacktest simulates historical performance for up to five pools
func (ws *WebServer) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if !ws.decodeBody(w, r, &req) {
		return
	}

	resp, err := ws.service.Backtest(r.Context(), curator.BacktestRequest{
		PoolIDs:       req.PoolIDs,
		InitialAmount: req.InitialAmount,
		Days:          req.Days,
		Compounding:   req.Compounding,
	})
	if err != nil {
		ws.writeServiceError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, resp)
}

// decodeBody decodes a JSON body and writes a 400 on failure.
func (ws *WebServer) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps curator errors onto HTTP status codes.
func (ws *WebServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrValidation):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, state.ErrNotFound):
		ws.writeErrorResponse(w, http.StatusNotFound, "Allocation not found")
	case errors.Is(err, curator.ErrCatalogUnavailable):
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		webLogger.Error().Err(err).Msg("Request failed")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", ws.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		event := webLogger.Info()
		if wrapper.statusCode >= http.StatusInternalServerError {
			event = webLogger.Error()
		} else if strings.HasPrefix(r.URL.Path, "/health") || strings.HasPrefix(r.URL.Path, "/api/health") {
			event = webLogger.Debug()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
