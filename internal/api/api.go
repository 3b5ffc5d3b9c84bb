// Package api is the HTTP/JSON control plane: a thin gorilla/mux router
// in front of SimRuntime, translating each endpoint from
// original_source/mnet/driver.py's FastAPI routes into a net/http
// handler set. Every handler acquires no lock itself — it calls straight
// into a SimRuntime method, which owns its own critical section.
//
// Responses are JSON; failures of the mutation endpoints (unknown node,
// exhausted pool, backend failure) are reported as {"error": "..."} with
// HTTP 200, matching driver.py's set_link/set_uplinks error shape rather
// than net/http status codes — the original web UI branches on the error
// field, not on transport status. The view endpoints report an unknown
// name with HTTP 404 and the same {"error": "..."} body.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/simlog"
)

// Server owns the router and the SimRuntime it fronts.
type Server struct {
	rt       *runtime.SimRuntime
	router   *mux.Router
	shutdown func()
}

// New builds a Server wired to rt. onShutdown is invoked by the
// /shutdown endpoint (the process's graceful-stop hook); it may be nil.
func New(rt *runtime.SimRuntime, onShutdown func()) *Server {
	s := &Server{rt: rt, router: mux.NewRouter(), shutdown: onShutdown}
	s.routes()
	return s
}

// Handler returns the server's http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/view/router/{name}", s.handleViewRouter).Methods(http.MethodGet)
	s.router.HandleFunc("/view/station/{name}", s.handleViewStation).Methods(http.MethodGet)
	s.router.HandleFunc("/link", s.handleSetLink).Methods(http.MethodPut)
	s.router.HandleFunc("/uplinks", s.handleSetUplinks).Methods(http.MethodPut)
	s.router.HandleFunc("/stats/total", s.handleStatsTotal).Methods(http.MethodGet)
	s.router.HandleFunc("/shutdown", s.handleShutdown).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		simlog.WithField("err", err).Warn("api: encoding response failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, map[string]string{"error": err.Error()})
}
