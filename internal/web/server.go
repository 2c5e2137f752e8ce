// Package web provides the HTTP trigger surface for the sound-trigger
// daemon. The listener is only started while the network is connected; the
// connectivity check in the trigger handler is defense in depth.
package web

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sweeney/sound-trigger/internal/status"
	"github.com/sweeney/sound-trigger/internal/trigger"
)

// Connectivity is the read-only query into the network monitor.
type Connectivity interface {
	IsConnected() bool
}

// Server serves the trigger and status endpoints over HTTP.
type Server struct {
	httpServer *http.Server
	controller *trigger.Controller
	tracker    *status.Tracker
	conn       Connectivity

	// OnTrigger, if set, is called after each successful pulse (e.g. to
	// publish an MQTT event). Must not block for long.
	OnTrigger func(d time.Duration, remote string)
}

// New creates a Server firing pulses through the given controller.
func New(addr string, controller *trigger.Controller, tracker *status.Tracker, conn Connectivity) *Server {
	s := &Server{
		controller: controller,
		tracker:    tracker,
		conn:       conn,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/trigger", s.handleTrigger)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(formatIndex(snap))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// ms is optional; anything unparseable is treated as absent so the
	// controller falls back to its default pulse.
	ms, _ := strconv.Atoi(r.FormValue("ms"))

	req := trigger.Request{
		DurationMs: ms,
		Token:      r.FormValue("token"),
	}

	d, err := s.controller.Fire(req, s.conn.IsConnected())
	switch err {
	case nil:
	case trigger.ErrUnauthorized:
		s.tracker.SetCounts(s.controller.Counts())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	case trigger.ErrUnavailable:
		s.tracker.SetCounts(s.controller.Counts())
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	default:
		http.Error(w, "trigger failed", http.StatusInternalServerError)
		return
	}

	s.tracker.RecordPulse(d, time.Now(), s.controller.Counts())
	if s.OnTrigger != nil {
		s.OnTrigger(d, r.RemoteAddr)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(formatTrigger(d))
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("not found\n"))
}
