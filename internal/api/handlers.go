package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/leosat-network/leosim/internal/runtime"
)

type linkRequest struct {
	Node1Name string `json:"node1_name"`
	Node2Name string `json:"node2_name"`
	Up        bool   `json:"up"`
}

type uplinkCandidate struct {
	SatNode  string  `json:"sat_node"`
	Distance float64 `json:"distance"`
}

type uplinksRequest struct {
	GroundNode string            `json:"ground_node"`
	Uplinks    []uplinkCandidate `json:"uplinks"`
}

type rootResponse struct {
	Rings        int                  `json:"rings"`
	PerRing      int                  `json:"per_ring"`
	RingList     [][]string           `json:"ring_list"`
	RouterCount  int                  `json:"router_count"`
	LinkCount    int                  `json:"link_count"`
	UpLinkCount  int                  `json:"up_link_count"`
	RunTime      string               `json:"run_time"`
	Stations     []string             `json:"stations"`
	RecentEvents []runtime.Event      `json:"recent_events"`
	Stats        []runtime.StatSample `json:"stats"`
}

// handleRoot serves the landing-page summary, grounded on driver.py's
// root() info dict — rings, ring_nodes, routers, links, stats, events —
// re-expressed as JSON, with the ring membership lists and the last ten
// events named ring_list/recent_events per the FULL spec.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	summary := s.rt.GetTopoSummary()
	writeJSON(w, rootResponse{
		Rings:        summary.Rings,
		PerRing:      summary.PerRing,
		RingList:     summary.RingNodeLists,
		RouterCount:  summary.RouterCount,
		LinkCount:    summary.LinkCount,
		UpLinkCount:  summary.UpLinkCount,
		RunTime:      summary.RunTime,
		Stations:     summary.Stations,
		RecentEvents: summary.RecentEvents,
		Stats:        summary.StatSeries,
	})
}

// handleViewRouter serves a single satellite's neighbor table. Unlike
// the mutation endpoints, an unknown router is reported with HTTP 404 —
// spec.md's control-API table calls this out explicitly for this route.
func (s *Server) handleViewRouter(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	view, err := s.rt.GetRouter(r.Context(), name)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

// handleViewStation serves a ground station's coordinates and uplink
// set, 404 on an unknown name for the same reason as handleViewRouter.
func (s *Server) handleViewStation(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	view, err := s.rt.GetStation(name)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

// handleSetLink sets a satellite-satellite edge's admin state. Errors
// are reported in-body at HTTP 200, per spec.md §7's chosen contract for
// mutation endpoints.
func (s *Server) handleSetLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.rt.SetLinkState(r.Context(), req.Node1Name, req.Node2Name, req.Up); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "OK"})
}

// handleSetUplinks replaces a station's full desired uplink set in one
// atomic diff-and-apply call.
func (s *Server) handleSetUplinks(w http.ResponseWriter, r *http.Request) {
	var req uplinksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, err)
		return
	}
	candidates := make([]runtime.Candidate, 0, len(req.Uplinks))
	for _, c := range req.Uplinks {
		candidates = append(candidates, runtime.Candidate{Satellite: c.SatNode, Distance: c.Distance})
	}
	if err := s.rt.SetStationUplinks(r.Context(), req.GroundNode, candidates); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "OK"})
}

// handleStatsTotal reports the most recently aggregated sampler counters,
// stable and dynamic combined, matching driver.py's stats_total (with
// total_count spelled correctly, unlike the original's "toital_count").
func (s *Server) handleStatsTotal(w http.ResponseWriter, r *http.Request) {
	samples := s.rt.GetStatSamples()
	var good, total int
	if n := len(samples); n > 0 {
		last := samples[n-1]
		good = last.StableGood + last.DynamicGood
		total = last.StableTotal + last.DynamicTotal
	}
	writeJSON(w, map[string]int{"good_count": good, "total_count": total})
}

// handleShutdown invokes the process's shutdown hook and reports OK;
// idempotent since the hook itself is expected to be safe to call more
// than once (a closed-channel-style flag flip).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if s.shutdown != nil {
		s.shutdown()
	}
	writeJSON(w, map[string]string{"status": "OK"})
}
