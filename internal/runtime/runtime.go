// Package runtime holds SimRuntime, the single-writer-locked in-memory
// control-plane state: the annotated graph, per-station uplink sets, the
// stats and event rings, and the Backend reference every mutation goes
// through.
//
// Grounded on original_source/mnet/driver.py's NetxContext (single lock
// guarding all state, add_event capped at 1000, run_time()), generalized
// to the fuller operation set spec.md §4.7 names. The uplink diff-and-apply
// logic (SetStationUplinks) has no original_source equivalent — driver.py's
// /uplinks handler is an explicit TODO stub there — so that logic is built
// fresh from spec.md §4.6 step 4, in the same locking idiom.
package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/leosat-network/leosim/internal/backend"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/simerr"
	"github.com/leosat-network/leosim/internal/simlog"
	"github.com/leosat-network/leosim/internal/topo"
)

const (
	statsRingCap  = 200
	eventsRingCap = 1000
)

// Event is one recorded control-plane occurrence, kept in a capped ring.
type Event struct {
	Time    time.Time
	Message string
}

// StatSample is one aggregator tick's liveness summary, partitioned into
// stable (satellite) and dynamic (ground-station) targets.
type StatSample struct {
	Time         time.Time
	StableGood   int
	StableTotal  int
	DynamicGood  int
	DynamicTotal int
}

// ProbeStatusProvider is the read-side view into the liveness sampler
// that SimRuntime delegates GetNodeStatusList/GetLastFiveProbes to. A nil
// provider makes both calls report simerr.ErrNotFound, so SimRuntime
// remains usable (e.g. in tests) before a sampler is wired in.
type ProbeStatusProvider interface {
	NodeStatusList(node string) ([]ProbeStatus, error)
	LastFiveProbes(node string) ([]ProbeResult, error)
}

// ProbeStatus is one target's current liveness summary for a node.
type ProbeStatus struct {
	Target        string
	Responded     bool
	TotalCount    int
	TotalSuccess  int
}

// ProbeResult is one historical probe outcome in a node's rolling window.
type ProbeResult struct {
	Target    string
	Responded bool
	Time      time.Time
}

// SimRuntime is the control plane's single writer-authority. Every
// exported method that reads or mutates SimRuntime's own state acquires
// mu for its full duration — no such operation yields the lock
// mid-sequence, per spec.md §5. GetNodeStatusList and GetLastFiveProbes
// only read the provider reference under mu and call the provider after
// releasing it.
type SimRuntime struct {
	mu sync.Mutex

	graph   *topo.Graph
	alloc   *ipalloc.Allocation
	backend backend.Backend
	probes  ProbeStatusProvider

	stations map[string]*Station

	stats  []StatSample
	events []Event

	startTime time.Time
}

// New builds a SimRuntime over an already-built graph and address
// allocation, with every ground station initialized to an empty uplink
// set. probes may be nil until a sampler is constructed; SetProbeProvider
// wires it in after the fact to avoid an import cycle between runtime and
// sampler.
func New(g *topo.Graph, alloc *ipalloc.Allocation, be backend.Backend) *SimRuntime {
	r := &SimRuntime{
		graph:     g,
		alloc:     alloc,
		backend:   be,
		stations:  make(map[string]*Station),
		startTime: time.Now(),
	}
	for _, name := range g.GroundStations() {
		r.stations[name] = &Station{Name: name, Uplinks: make(map[string]*Uplink)}
		if n, ok := g.Node(name); ok {
			r.stations[name].Lat = n.Lat
			r.stations[name].Lon = n.Lon
		}
	}
	return r
}

// SetProbeProvider wires in the liveness sampler's read-side view after
// construction.
func (r *SimRuntime) SetProbeProvider(p ProbeStatusProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes = p
}

// RunTime reports how long this SimRuntime has been alive.
func (r *SimRuntime) RunTime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.startTime)
}

// addEvent appends to the capped event ring. Caller must hold mu.
func (r *SimRuntime) addEvent(format string, args ...interface{}) {
	r.events = append(r.events, Event{Time: time.Now(), Message: fmt.Sprintf(format, args...)})
	if len(r.events) > eventsRingCap {
		r.events = r.events[len(r.events)-eventsRingCap:]
	}
}

// GetLinkState queries the backend for both sides' admin state of the
// a-b edge.
func (r *SimRuntime) GetLinkState(ctx context.Context, a, b string) (upA, upB bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.graph.Edge(a, b); !ok {
		return false, false, simerr.NewNotFound("edge", topo.EdgeKey(a, b))
	}
	upA, upB, err = r.backend.LinkState(ctx, a, b)
	if err != nil {
		return false, false, simerr.NewBackendFailure("GetLinkState", err)
	}
	return upA, upB, nil
}

// SetLinkState verifies both endpoints and the edge exist, records an
// event, and applies the new admin state through the backend and the
// graph's own bookkeeping.
func (r *SimRuntime) SetLinkState(ctx context.Context, a, b string, up bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	edge, ok := r.graph.Edge(a, b)
	if !ok {
		return simerr.NewNotFound("edge", topo.EdgeKey(a, b))
	}
	state := "down"
	if up {
		state = "up"
	}
	r.addEvent("set link %s - %s %s", a, b, state)

	if err := r.backend.ConfigureLink(ctx, a, b, up); err != nil {
		simlog.WithFields(map[string]interface{}{"a": a, "b": b}).WithField("err", err).Warn("backend failure setting link state")
		return simerr.NewBackendFailure("SetLinkState", err)
	}
	edge.Up = up
	return nil
}

// GetStatSamples returns a copy of the stat ring.
func (r *SimRuntime) GetStatSamples() []StatSample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatSample, len(r.stats))
	copy(out, r.stats)
	return out
}

// SampleStats appends one aggregator-produced sample to the stat ring,
// evicting the oldest entry once the 200-entry cap is exceeded. The
// sampler's aggregator does the actual per-node-store reading and
// counting (internal/sampler); SimRuntime only owns the ring.
func (r *SimRuntime) SampleStats(sample StatSample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, sample)
	if len(r.stats) > statsRingCap {
		r.stats = r.stats[len(r.stats)-statsRingCap:]
	}
}

// GetNodeStatusList returns the per-target liveness summary recorded by
// node's sampler worker.
func (r *SimRuntime) GetNodeStatusList(node string) ([]ProbeStatus, error) {
	r.mu.Lock()
	probes := r.probes
	r.mu.Unlock()
	if probes == nil {
		return nil, simerr.NewNotFound("node", node)
	}
	return probes.NodeStatusList(node)
}

// GetLastFiveProbes returns node's rolling window of recent probe results.
func (r *SimRuntime) GetLastFiveProbes(node string) ([]ProbeResult, error) {
	r.mu.Lock()
	probes := r.probes
	r.mu.Unlock()
	if probes == nil {
		return nil, simerr.NewNotFound("node", node)
	}
	return probes.LastFiveProbes(node)
}

// RecentEvents returns up to n of the most recently recorded events,
// oldest first.
func (r *SimRuntime) RecentEvents(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n > len(r.events) {
		n = len(r.events)
	}
	out := make([]Event, n)
	copy(out, r.events[len(r.events)-n:])
	return out
}

// WithGraph runs fn with the underlying topology graph and address
// allocation while holding SimRuntime's lock. Callers outside this
// package (the geo-loop) use it to read or mutate the graph safely.
func (r *SimRuntime) WithGraph(fn func(g *topo.Graph, alloc *ipalloc.Allocation)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.graph, r.alloc)
}

// sortedStationNames returns every ground station name, sorted, for
// deterministic iteration in read views.
func (r *SimRuntime) sortedStationNames() []string {
	names := make([]string, 0, len(r.stations))
	for name := range r.stations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
