// Package server exposes stateless planning over HTTP. Missions travel in
// MAVLink mission item form in both directions.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"mavplan/internal/config"
	"mavplan/internal/logger"
	"mavplan/internal/mavlink"
	"mavplan/internal/mission"
	"mavplan/internal/planner"
	"mavplan/internal/session"
	"mavplan/internal/units"
)

const defaultSessionID = "default"

type Options struct {
	Verbose bool
	// PlanRate is the sustained /api/plan rate per second; <= 0 disables
	// limiting.
	PlanRate  float64
	PlanBurst int
	// MaxSessions bounds the number of cached planning sessions.
	MaxSessions int
}

type Server struct {
	cfg      config.Config
	gen      planner.Generator
	opts     Options
	limiter  *rate.Limiter
	mu       sync.Mutex
	sessions *lru.Cache[string, *session.Session]
	mux      *http.ServeMux
}

// New builds a server. A nil gen is allowed: /api/plan then answers 500,
// and the other endpoints keep working.
func New(cfg config.Config, gen planner.Generator, opts Options) (*Server, error) {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 64
	}
	if opts.PlanBurst <= 0 {
		opts.PlanBurst = 1
	}
	cache, err := lru.New[string, *session.Session](opts.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}

	s := &Server{cfg: cfg, gen: gen, opts: opts, sessions: cache, mux: http.NewServeMux()}
	if opts.PlanRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.PlanRate), opts.PlanBurst)
	}
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/plan", s.handlePlan)
	s.mux.HandleFunc("/api/validate", s.handleValidate)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Printf("[Server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger.Log.Printf("[Server] %s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Printf("[Server] failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Output  string `json:"output,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, output string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg, Output: output})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "running",
		"agent_initialized": s.gen != nil,
		"verbose":           s.opts.Verbose,
	})
}

type planRequest struct {
	UserInput    *string        `json:"user_input"`
	Mode         string         `json:"mode"`
	SessionID    string         `json:"session_id"`
	MissionState []mavlink.Item `json:"mission_state"`
	HomePosition *units.LatLon  `json:"home_position"`
}

type planResponse struct {
	Success       bool               `json:"success"`
	SessionID     string             `json:"session_id"`
	Mode          mission.Mode       `json:"mode"`
	Output        string             `json:"output"`
	MissionItems  []mavlink.Item     `json:"mission_items"`
	AddedItems    []mavlink.Item     `json:"added_items"`
	ModifiedItems []mavlink.Item     `json:"modified_items"`
	DeletedItems  []mavlink.Item     `json:"deleted_items"`
	Validation    session.Validation `json:"validation"`
	Summary       session.Summary    `json:"summary"`
	Metrics       any                `json:"metrics,omitempty"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	if s.gen == nil {
		writeError(w, http.StatusInternalServerError, "planner not initialized", "Server error: Agent not available")
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry shortly", "")
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err), "")
		return
	}
	if req.UserInput == nil || strings.TrimSpace(*req.UserInput) == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: user_input", "")
		return
	}
	if req.Mode == "" {
		req.Mode = string(mission.ModeMission)
	}
	mode, ok := mission.ParseMode(req.Mode)
	if !ok || req.Mode != string(mode) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode: %s. Must be 'mission' or 'command'", req.Mode), "")
		return
	}
	if len(req.MissionState) == 0 && req.HomePosition == nil {
		writeError(w, http.StatusBadRequest, "Missing required data: Either 'mission_state' or 'home_position' required. Connect to GCS or provide mission state.", "")
		return
	}
	if req.HomePosition != nil && !req.HomePosition.Valid() {
		writeError(w, http.StatusBadRequest, "Validation error: home_position is out of range", "")
		return
	}

	var state *mission.Mission
	if len(req.MissionState) > 0 {
		state = mavlink.Decode(req.MissionState)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	sess := s.session(sessionID)

	resp, err := sess.Plan(r.Context(), session.PlanRequest{
		UserInput:    *req.UserInput,
		Mode:         mode,
		MissionState: state,
		Home:         req.HomePosition,
	})
	if err != nil {
		msg := err.Error()
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		writeError(w, http.StatusInternalServerError, msg, fmt.Sprintf("Planning request failed: %s", msg))
		return
	}

	out := planResponse{
		Success:       resp.Success,
		SessionID:     sessionID,
		Mode:          resp.Mode,
		Output:        resp.Output,
		MissionItems:  mavlink.Encode(resp.Mission),
		AddedItems:    encodeItems(resp.Added),
		ModifiedItems: encodeItems(resp.Modified),
		DeletedItems:  encodeItems(resp.Deleted),
		Validation:    resp.Validation,
		Summary:       resp.Summary,
	}
	if s.opts.Verbose && resp.Metrics != nil {
		out.Metrics = resp.Metrics
	}
	writeJSON(w, http.StatusOK, out)
}

func encodeItems(items []mission.Item) []mavlink.Item {
	out := make([]mavlink.Item, 0, len(items))
	for _, it := range items {
		out = append(out, mavlink.EncodeItem(it))
	}
	return out
}

// session returns the cached session for id, creating it on first use.
func (s *Server) session(id string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions.Get(id); ok {
		return sess
	}
	sess := session.New(s.cfg, s.gen, mission.ModeMission)
	sess.ID = id
	s.sessions.Add(id, sess)
	return sess
}

type validateRequest struct {
	Mode         string         `json:"mode"`
	MissionState []mavlink.Item `json:"mission_state"`
	HomePosition *units.LatLon  `json:"home_position"`
}

type validateResponse struct {
	session.Validation
	Summary session.Summary `json:"summary"`
}

// handleValidate runs the final mission check on a MAVLink mission without
// planning anything.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err), "")
		return
	}
	if req.Mode == "" {
		req.Mode = string(mission.ModeMission)
	}
	mode, ok := mission.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode: %s. Must be 'mission' or 'command'", req.Mode), "")
		return
	}

	m := mavlink.Decode(req.MissionState)
	v, sum := session.Check(m, mode, s.cfg.Agent, req.HomePosition)
	writeJSON(w, http.StatusOK, validateResponse{Validation: v, Summary: sum})
}
