package runtime

import (
	"context"

	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/simerr"
	"github.com/leosat-network/leosim/internal/topo"
)

// Uplink is one active ground-station-to-satellite link.
type Uplink struct {
	Satellite string
	Distance  float64
	Default   bool
	PoolEntry *ipalloc.PoolEntry
}

// Station is a ground station's live state: its fixed location plus its
// current uplink set, keyed by satellite name.
type Station struct {
	Name       string
	Lat, Lon   float64
	Uplinks    map[string]*Uplink
}

// NeighborView is one router's-eye view of a directly attached peer.
type NeighborView struct {
	Peer          string
	LocalIP       string
	RemoteIP      string
	LocalIntf     string
	RemoteIntf    string
	UpLocal       bool
	UpRemote      bool
}

// RouterView is the full read-model for GetRouter: loopback plus every
// neighbor's interface/admin-state detail.
type RouterView struct {
	Name      string
	Loopback  string
	Neighbors []NeighborView
}

// StationView is the full read-model for GetStation.
type StationView struct {
	Name    string
	Lat     float64
	Lon     float64
	Uplinks []Uplink
}

// TopoSummary is the read-model for GetTopoSummary — the control API's
// landing-page contract.
type TopoSummary struct {
	Rings         int
	PerRing       int
	RingNodeLists [][]string
	RouterCount   int
	LinkCount     int
	UpLinkCount   int
	RunTime       string
	Stations      []string
	RecentEvents  []Event
	StatSeries    []StatSample
}

// GetTopoSummary returns a snapshot of the whole topology's shape and
// recent activity.
func (r *SimRuntime) GetTopoSummary() TopoSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	linkCount, upCount := 0, 0
	for _, e := range r.graph.Edges() {
		if e.Ground {
			continue
		}
		linkCount++
		if e.Up {
			upCount++
		}
	}

	ringNodes := make([][]string, len(r.graph.RingMembers))
	for i, members := range r.graph.RingMembers {
		ringNodes[i] = append([]string(nil), members...)
	}

	events := make([]Event, 0, 10)
	start := len(r.events) - 10
	if start < 0 {
		start = 0
	}
	events = append(events, r.events[start:]...)

	stats := make([]StatSample, len(r.stats))
	copy(stats, r.stats)

	return TopoSummary{
		Rings:         r.graph.Rings,
		PerRing:       r.graph.PerRing,
		RingNodeLists: ringNodes,
		RouterCount:   len(r.graph.Satellites()),
		LinkCount:     linkCount,
		UpLinkCount:   upCount,
		RunTime:       durationString(r.startTime),
		Stations:      r.sortedStationNames(),
		RecentEvents:  events,
		StatSeries:    stats,
	}
}

// GetRouter returns name's loopback address and per-neighbor detail,
// querying the backend for each edge's live admin state.
func (r *SimRuntime) GetRouter(ctx context.Context, name string) (*RouterView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.graph.Node(name)
	if !ok || n.Kind != topo.KindSatellite {
		return nil, simerr.NewNotFound("router", name)
	}

	loopback, ok := r.alloc.Loopbacks[name]
	if !ok {
		return nil, simerr.NewNotFound("router", name)
	}

	view := &RouterView{Name: name, Loopback: loopback.String()}
	for _, neighbor := range r.graph.Neighbors(name) {
		edge, ok := r.graph.Edge(name, neighbor)
		if !ok || edge.Ground {
			continue
		}
		ea, ok := r.alloc.Edges[topo.EdgeKey(name, neighbor)]
		if !ok {
			continue
		}
		local, _ := ea.EndpointFor(name)
		remote, _ := ea.EndpointFor(neighbor)

		upLocal, upRemote, err := r.backend.LinkState(ctx, name, neighbor)
		if err != nil {
			upLocal, upRemote = edge.Up, edge.Up
		}

		view.Neighbors = append(view.Neighbors, NeighborView{
			Peer:       neighbor,
			LocalIP:    local.IP.String(),
			RemoteIP:   remote.IP.String(),
			LocalIntf:  local.Interface,
			RemoteIntf: remote.Interface,
			UpLocal:    upLocal,
			UpRemote:   upRemote,
		})
	}
	return view, nil
}

// GetStation returns station's coordinates and its current uplink set.
func (r *SimRuntime) GetStation(name string) (*StationView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[name]
	if !ok {
		return nil, simerr.NewNotFound("station", name)
	}

	view := &StationView{Name: st.Name, Lat: st.Lat, Lon: st.Lon}
	for _, sat := range sortedKeys(st.Uplinks) {
		view.Uplinks = append(view.Uplinks, *st.Uplinks[sat])
	}
	return view, nil
}
