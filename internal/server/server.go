package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"tranche-calculator-go/internal/config"
	"tranche-calculator-go/internal/grid"
	"tranche-calculator-go/internal/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestBody  = 1 << 20
)

// APIServer provides an HTTP interface for the sizing calculator.
type APIServer struct {
	server     *http.Server
	calculator atomic.Pointer[grid.Calculator]
	logger     *zap.Logger
	root       *zap.Logger
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer

	InstanceID string
	StartTime  time.Time
}

// NewAPIServer creates a new APIServer. Metrics are registered with reg.
func NewAPIServer(cfg config.Server, calc *grid.Calculator, logger *zap.Logger, reg *prometheus.Registry) *APIServer {
	s := &APIServer{
		logger:     logger.Named("api-server"),
		root:       logger,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		metrics:    metrics.New(reg),
		gatherer:   reg,
		InstanceID: uuid.NewString(),
		StartTime:  time.Now(),
	}
	s.calculator.Store(calc)
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routes of the API wrapped in the request middleware.
// Only the /api/ routes are rate limited.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/api/calculate", s.withRateLimit(http.HandlerFunc(s.calculateHandler)))
	mux.Handle("/api/status", s.withRateLimit(http.HandlerFunc(s.statusHandler)))
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return s.withRequestID(mux)
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

// Reload swaps in a calculator built from cfg. On error the current
// calculator stays active.
func (s *APIServer) Reload(cfg config.Grid) error {
	calc, err := grid.NewCalculator(s.root, cfg)
	if err != nil {
		s.metrics.ObserveReload(false)
		return fmt.Errorf("could not reload grid config: %w", err)
	}
	s.calculator.Store(calc)
	s.metrics.ObserveReload(true)
	s.logger.Info("Grid configuration reloaded",
		zap.Float64("total_range", cfg.TotalRange),
		zap.Float64("base_step", cfg.BaseStep))
	return nil
}

// Metrics returns the collectors of the server.
func (s *APIServer) Metrics() *metrics.Metrics {
	return s.metrics
}

func (s *APIServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		s.logger.Debug("Handling request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func (s *APIServer) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.ObserveError("rate_limited")
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeRequest reads a calculation request from the query string (GET) or a
// JSON body of at most maxRequestBody bytes (POST).
func decodeRequest(w http.ResponseWriter, r *http.Request) (grid.Request, error) {
	var req grid.Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		price, err := strconv.ParseFloat(q.Get("starting_price"), 64)
		if err != nil {
			return req, fmt.Errorf("%w: %q", grid.ErrInvalidPrice, q.Get("starting_price"))
		}
		req.StartingPrice = price
		req.Direction = grid.Direction(q.Get("direction"))
		req.Mode = grid.Mode(q.Get("mode"))
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, maxRequestBody)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, fmt.Errorf("malformed request body: %w", err)
		}
	}
	return req, nil
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, grid.ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, grid.ErrInvalidMode):
		return "invalid_mode"
	case errors.Is(err, grid.ErrInvalidPrice):
		return "invalid_price"
	default:
		return "bad_request"
	}
}

func (s *APIServer) calculateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	req, err := decodeRequest(w, r)
	if err != nil {
		s.metrics.ObserveError(errorReason(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	table, err := s.calculator.Load().Calculate(req)
	if err != nil {
		s.metrics.ObserveError(errorReason(err))
		s.logger.Info("Rejected calculation", zap.String("request_id", w.Header().Get(requestIDHeader)), zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.metrics.ObserveCalculation(string(table.Direction), string(table.Mode), len(table.Rows), time.Since(start))

	writeJSON(w, s.logger, http.StatusOK, table)
}

// StatusResponse is the structure for the /api/status endpoint.
type StatusResponse struct {
	InstanceID string      `json:"instance_id"`
	StartTime  string      `json:"start_time"`
	Uptime     string      `json:"uptime"`
	Grid       config.Grid `json:"grid"`
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := StatusResponse{
		InstanceID: s.InstanceID,
		StartTime:  s.StartTime.Format(time.RFC3339),
		Uptime:     time.Since(s.StartTime).String(),
		Grid:       s.calculator.Load().Config(),
	}
	writeJSON(w, s.logger, http.StatusOK, status)
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", zap.Error(err))
	}
}
