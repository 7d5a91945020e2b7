package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"factlink/internal/linking"
	"factlink/internal/metrics"
	"factlink/internal/operations"
)

const version = "1.0.0"

// Server provides HTTP API using the operations layer
type Server struct {
	port     int
	token    string
	ops      *operations.Operations
	metrics  *metrics.Metrics
	logger   *slog.Logger
	server   *http.Server
	mu       sync.RWMutex
	lastPing time.Time
	busy     bool
}

// NewServer creates a new HTTP server using operations
func NewServer(port int, token string, ops *operations.Operations, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		port:     port,
		token:    token,
		ops:      ops,
		metrics:  m,
		logger:   logger,
		lastPing: time.Now(),
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/answer", s.handleAnswer)
	mux.HandleFunc("/api/link", s.handleLink)
	mux.HandleFunc("/api/verify", s.handleVerify)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}

	return s.corsMiddleware(mux)
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("API server starting", "addr", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers for browser extension access
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Chrome/Edge extensions have origins like chrome-extension://[id]
		// Firefox extensions have origins like moz-extension://[id]
		if strings.HasPrefix(origin, "chrome-extension://") ||
			strings.HasPrefix(origin, "moz-extension://") ||
			strings.HasPrefix(origin, "edge-extension://") ||
			origin == "null" || origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin == "" || origin == "null" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// validateToken checks the authorization token
func (s *Server) validateToken(r *http.Request) bool {
	if s.token == "" {
		return true // No token required if not set
	}
	return r.Header.Get("Authorization") == "Bearer "+s.token
}

// acquire marks the server busy. Questions are processed one at a time; a
// concurrent request gets 429.
func (s *Server) acquire(w http.ResponseWriter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		http.Error(w, "Server busy", http.StatusTooManyRequests)
		return false
	}
	s.busy = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// guard applies the method, token and busy checks shared by the POST
// endpoints and decodes the JSON body into req.
func (s *Server) guard(w http.ResponseWriter, r *http.Request, req any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if !s.validateToken(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return false
	}
	return s.acquire(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
}

// handleStatus returns server status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	s.lastPing = time.Now()
	busy := s.busy
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   version,
		"busy":      busy,
		"timestamp": time.Now().Unix(),
	})
}

// handleAnswer runs the full pipeline for one question.
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	if !s.guard(w, r, &req) {
		return
	}
	defer s.release()

	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, "question is required", http.StatusBadRequest)
		return
	}

	record, err := s.ops.Answer.Answer(r.Context(), req.ID, req.Question)
	if err != nil {
		s.logger.Error("answer failed", "question_id", req.ID, "error", err)
		status := http.StatusBadGateway
		if errors.Is(err, operations.ErrNoAnswer) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleLink links entities in arbitrary text.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text"`
		Context string `json:"context"`
	}
	if !s.guard(w, r, &req) {
		return
	}
	defer s.release()

	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	entities, err := s.ops.Link.Link(r.Context(), req.Text, req.Context)
	if err != nil {
		s.logger.Error("link failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if entities == nil {
		entities = []linking.LinkedEntity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": entities})
}

// handleVerify verifies a given answer.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
		Kind     string `json:"kind"`
	}
	if !s.guard(w, r, &req) {
		return
	}
	defer s.release()

	result, err := s.ops.Verify.Verify(r.Context(), req.Question, req.Answer, req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
