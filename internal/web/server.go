// Package web provides the HTTP status server: a status page, JSON snapshot
// and statistics, start/stop controls and a websocket live feed.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/runstate"
	"github.com/jamesEmerson112/virtual-cursor/internal/status"
)

// ErrNotReady is returned by Controls.RequestStart while the event source
// has not signalled session and profile readiness.
var ErrNotReady = errors.New("event source not ready")

// Controls lets HTTP clients start and stop mouse control.
type Controls interface {
	RequestStart() error
	RequestStop()
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	controls   Controls
	hub        *Hub
	log        *zap.Logger
}

// New creates a Server that reads state from the given tracker. controls may
// be nil, in which case /start and /stop answer 503.
func New(addr string, tracker *status.Tracker, controls Controls, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tracker:  tracker,
		controls: controls,
		hub:      NewHub(logger),
		log:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/ws", s.handleWS)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Hub returns the live feed hub; register it as a power.Sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and drops websocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatStats(snap))
}

// ControlResponse is the body of /start and /stop.
type ControlResponse struct {
	Controller string `json:"controller"`
	Error      string `json:"error,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if !s.controlAllowed(w, r) {
		return
	}
	code := http.StatusOK
	resp := ControlResponse{}
	if err := s.controls.RequestStart(); err != nil {
		resp.Error = err.Error()
		switch {
		case errors.Is(err, ErrNotReady):
			code = http.StatusServiceUnavailable
		case errors.Is(err, runstate.ErrStopped):
			code = http.StatusConflict
		default:
			code = http.StatusInternalServerError
		}
		s.log.Info("start request refused", zap.Error(err))
	}
	s.writeControl(w, code, resp)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.controlAllowed(w, r) {
		return
	}
	s.controls.RequestStop()
	s.writeControl(w, http.StatusOK, ControlResponse{})
}

func (s *Server) controlAllowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if s.controls == nil {
		http.Error(w, "controls not available", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) writeControl(w http.ResponseWriter, code int, resp ControlResponse) {
	resp.Controller = s.tracker.Snapshot().Controller.String()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	first, _ := json.Marshal(struct {
		Type string `json:"type"`
		status.StatusJSON
	}{
		Type:       "snapshot",
		StatusJSON: status.Build(s.tracker.Snapshot()),
	})
	s.hub.serve(w, r, first)
}
