// Package httpapi is the HTTP shell over a substrate: a thin adapter
// that marshals requests into in-process API calls and maps sentinel
// errors onto the status codes the external interface promises.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ehrlich-b/noetic/internal/logger"
	"github.com/ehrlich-b/noetic/internal/memory"
	"github.com/ehrlich-b/noetic/internal/store"
	"github.com/ehrlich-b/noetic/internal/substrate"
)

// requestsPerSecond and requestBurst bound how fast one client can hit
// the HTTP surface before getting a 429.
const (
	requestsPerSecond = 20
	requestBurst      = 40
	limiterSweep      = 5 * time.Minute
	limiterMaxAge     = 10 * time.Minute
)

// Server serves the substrate's HTTP surface.
type Server struct {
	sub     *substrate.Substrate
	limiter *rateLimiter

	mu       sync.Mutex
	listener net.Listener
}

// New wraps sub in an HTTP server.
func New(sub *substrate.Substrate) *Server {
	return &Server{sub: sub, limiter: newRateLimiter(requestsPerSecond, requestBurst)}
}

// Start begins listening on addr and blocks serving requests until the
// listener is closed.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /heartbeat", s.handleHeartbeat)
	mux.HandleFunc("POST /thoughts", s.handlePostThought)
	mux.HandleFunc("GET /thoughts/recent", s.handleRecentThoughts)
	mux.HandleFunc("GET /thoughts/stream", s.handleThoughtStream)
	mux.HandleFunc("GET /monologue", s.handleMonologue)
	mux.HandleFunc("GET /identity", s.handleIdentity)
	mux.HandleFunc("POST /shadow", s.handleShadow)
	mux.HandleFunc("POST /oracle", s.handleOracle)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("httpapi: listen: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	stopSweep := make(chan struct{})
	go func() {
		ticker := time.NewTicker(limiterSweep)
		defer ticker.Stop()
		for {
			select {
			case <-stopSweep:
				return
			case <-ticker.C:
				s.limiter.evictStale(limiterMaxAge)
			}
		}
	}()
	defer close(stopSweep)

	logger.Component("httpapi").Info("listening", "addr", addr)
	return http.Serve(ln, s.limiter.middleware(mux))
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln != nil {
		return ln.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a sentinel store error to the status code the
// external interface promises, defaulting to 500 for anything else.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrPersistence):
		status = http.StatusInternalServerError
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrPatternMismatch):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrDirectoryLocked):
		status = http.StatusConflict
	case errors.Is(err, store.ErrCancelled):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"jobs":   s.sub.Scheduler.Jobs(),
		"oracle": s.sub.Oracle.Name(),
	})
}

type postThoughtRequest struct {
	Content string             `json:"content"`
	Type    memory.ThoughtType `json:"type"`
	Origin  string             `json:"origin"`
}

func (s *Server) handlePostThought(w http.ResponseWriter, r *http.Request) {
	var req postThoughtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if req.Origin == "" {
		req.Origin = "http"
	}
	t, err := s.sub.Memory.Save(req.Content, memory.Metadata{}, req.Type, req.Origin)
	if err != nil {
		writeError(w, err)
		return
	}
	if vec, ok := s.sub.Memory.Index().Get(t.ID); ok {
		if _, err := s.sub.Concepts.Integrate(t, vec); err != nil {
			logger.Component("httpapi").Warn("concept integration failed", "thought", t.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleRecentThoughts(w http.ResponseWriter, r *http.Request) {
	n := 20
	typ := memory.ThoughtType(r.URL.Query().Get("type"))
	writeJSON(w, http.StatusOK, s.sub.Memory.Recent(n, typ))
}

func (s *Server) handleMonologue(w http.ResponseWriter, r *http.Request) {
	thoughts := s.sub.Memory.Recent(5, memory.TypeMonologue)
	writeJSON(w, http.StatusOK, thoughts)
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	concepts := s.sub.Concepts.List("central")
	if len(concepts) == 0 {
		concepts = s.sub.Concepts.List("established")
	}
	writeJSON(w, http.StatusOK, map[string]any{"concepts": concepts})
}

// handleShadow serves the unresolved-contradictions substore referenced
// by the external interface but left out of scope; it always returns an
// empty set rather than 404ing, so fixtures built against this surface
// keep working once that substore exists.
func (s *Server) handleShadow(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"contradictions": []any{}})
}

type oracleRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleOracle(w http.ResponseWriter, r *http.Request) {
	var req oracleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	reply, err := s.sub.Oracle.Generate(r.Context(), req.Prompt)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}
