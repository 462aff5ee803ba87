// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"stock-analyst/internal/engine"
	"stock-analyst/internal/interfaces"
	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

const (
	apiName    = "Stock Analysis API"
	apiVersion = "1.0.0"
	// maxBodyBytes bounds POST /analyze payloads.
	maxBodyBytes = 1 << 16
)

type Server struct {
	analyzer interfaces.Analyzer
	access   *zap.Logger
	srv      *http.Server
}

type Option func(*Server)

func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.srv.ReadTimeout = read
		s.srv.WriteTimeout = write
	}
}

// New builds the server. access receives one line per request; nil disables access logs.
func New(addr string, analyzer interfaces.Analyzer, access *zap.Logger, opts ...Option) *Server {
	if access == nil {
		access = zap.NewNop()
	}
	s := &Server{
		analyzer: analyzer,
		access:   access,
		srv: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.srv.Handler = s.Handler()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in the access log and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyzePost)
	mux.HandleFunc("GET /analyze", s.handleAnalyzeGet)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return accessLog(s.access, cors(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	logger.Info(ctx, "Shutting down HTTP server")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleAnalyzePost(w http.ResponseWriter, r *http.Request) {
	var req types.AnalysisRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Invalid request body",
			Message: `Please provide a JSON body such as {"ticker": "000001"}`,
		})
		return
	}
	s.analyze(w, r, req)
}

func (s *Server) handleAnalyzeGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.analyze(w, r, types.AnalysisRequest{
		Ticker:    q.Get("ticker"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, req types.AnalysisRequest) {
	if req.Ticker == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Missing ticker parameter",
			Message: `Please provide a ticker, e.g. {"ticker": "000001"} or /analyze?ticker=000001`,
		})
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req)
	switch {
	case errors.Is(err, engine.ErrInvalidTicker):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Invalid ticker format",
			Message: `Ticker must be exactly 6 digits (e.g., "000001")`,
		})
	case errors.Is(err, engine.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request", Message: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Analysis failed", Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Stock analysis API is running",
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    apiName,
		"version": apiVersion,
		"endpoints": map[string]string{
			"POST /analyze": "Analyze a stock using a 6-digit ticker",
			"GET /analyze":  "Same as POST, with ?ticker=&start_date=&end_date=",
			"GET /health":   "Health check",
			"GET /":         "This information",
		},
		"usage": map[string]string{
			"analyze": `Send POST request to /analyze with {"ticker": "000001"}`,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
