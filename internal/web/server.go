// Package web serves the gap-filler status page, a JSON snapshot and a
// health check. It only reads from the tracker and never drives the
// mechanism.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/gap-filler/internal/status"
)

// Server serves status over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /index.json", s.handleJSON)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.tracker.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.tracker.Snapshot()))
}

// Health is the /healthz response body.
type Health struct {
	Healthy    bool     `json:"healthy"`
	State      string   `json:"state"`
	LastSample string   `json:"last_sample,omitempty"`
	Problems   []string `json:"problems,omitempty"`
}

// handleHealth answers 200 while the loop is sampling and both drivers
// work, 503 otherwise, so a supervisor can restart a wedged daemon.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	h := Health{
		State:    string(snap.State),
		Problems: snap.Problems(),
	}
	h.Healthy = len(h.Problems) == 0
	if !snap.LastSample.IsZero() {
		h.LastSample = snap.LastSample.UTC().Format(time.RFC3339Nano)
	}

	w.Header().Set("Content-Type", "application/json")
	if !h.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}
