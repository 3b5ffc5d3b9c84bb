package topo

import "fmt"

// GroundStationSpec is a canonical ground station location (§8 of the
// spec names four fixed stations).
type GroundStationSpec struct {
	Name     string
	Lat, Lon float64
}

// DefaultGroundStations are the four canonical ground stations listed in
// spec.md §8 (Palo Alto, New York, London, Tokyo — representative
// globally-distributed sites for uplink-churn testing).
var DefaultGroundStations = []GroundStationSpec{
	{Name: "G_PAO", Lat: 37.4419, Lon: -122.1430},
	{Name: "G_NYC", Lat: 40.7128, Lon: -74.0060},
	{Name: "G_LON", Lat: 51.5074, Lon: -0.1278},
	{Name: "G_TOK", Lat: 35.6762, Lon: 139.6503},
}

// BuildTorus constructs a connected R×N torus: R rings of N satellites
// each, intra-ring cycles plus node-for-node inter-ring links between
// adjacent rings (including wraparound ring R-1 -> 0).
//
// Grounded on original_source/torus_topo.py's create_network/create_ring/
// connect_rings. Orbit parameters per spec.md §4.1: right ascension =
// 360*ring/rings, inclination = the graph default, mean anomaly =
// 360*node/perRing plus a 180/perRing stagger offset on odd rings.
func BuildTorus(rings, perRing int, includeGround bool) (*Graph, error) {
	if rings < 1 || rings > 30 {
		return nil, fmt.Errorf("rings must be in [1,30], got %d", rings)
	}
	if perRing < 1 || perRing > 30 {
		return nil, fmt.Errorf("routers (per-ring) must be in [1,30], got %d", perRing)
	}

	g := NewGraph(rings, perRing, DefaultInclination)
	g.RingMembers = make([][]string, rings)

	for r := 0; r < rings; r++ {
		members := make([]string, 0, perRing)
		for i := 0; i < perRing; i++ {
			name := NodeName(r, i)
			meanAnomaly := 360.0 * float64(i) / float64(perRing)
			if r%2 == 1 {
				meanAnomaly += 180.0 / float64(perRing)
			}
			g.AddNode(&Node{
				Name: name,
				Kind: KindSatellite,
				Orbit: OrbitParams{
					RightAscension: 360.0 * float64(r) / float64(rings),
					Inclination:    DefaultInclination,
					MeanAnomaly:    meanAnomaly,
				},
			})
			members = append(members, name)
		}
		g.RingMembers[r] = members
		createRingCycle(g, members)
	}

	for r := 0; r < rings; r++ {
		next := (r + 1) % rings
		connectRings(g, g.RingMembers[r], g.RingMembers[next])
	}

	if includeGround {
		addGroundStations(g)
	}

	return g, nil
}

// createRingCycle links consecutive nodes in a ring and closes the cycle
// back to the first node (no-op for a single-node ring).
func createRingCycle(g *Graph, members []string) {
	for i := 1; i < len(members); i++ {
		g.AddEdge(members[i-1], members[i], false, false)
	}
	if len(members) > 1 {
		g.AddEdge(members[len(members)-1], members[0], false, false)
	}
}

// connectRings links node i of one ring to node i of the next ring.
func connectRings(g *Graph, ring1, ring2 []string) {
	for i := range ring1 {
		g.AddEdge(ring1[i], ring2[i], true, false)
	}
}

// addGroundStations adds the canonical ground stations and connects them
// to each other in a cycle purely to satisfy backend expectations —
// spec.md §4.1: these pseudo-edges carry no IP allocation and are not
// part of the routed topology.
func addGroundStations(g *Graph) {
	for _, gs := range DefaultGroundStations {
		g.AddNode(&Node{Name: gs.Name, Kind: KindGroundStation, Lat: gs.Lat, Lon: gs.Lon})
	}
	for i, gs := range DefaultGroundStations {
		next := DefaultGroundStations[(i+1)%len(DefaultGroundStations)]
		if gs.Name == next.Name {
			continue
		}
		g.AddEdge(gs.Name, next.Name, false, true)
	}
}

// DownInterRingLinks brings down every inter-ring edge incident to any
// satellite in the given per-ring slot numbers, across all rings.
// Recovered from original_source/torus_topo.py's down_inter_ring_links —
// a standalone bulk debug operation independent of the geo-loop's
// per-tick latitude-driven link evaluation (internal/geosim).
func DownInterRingLinks(g *Graph, slots []int) {
	for _, slot := range slots {
		for r := 0; r < g.Rings; r++ {
			name := NodeName(r, slot)
			for _, neighbor := range g.Neighbors(name) {
				if e, ok := g.Edge(name, neighbor); ok && e.InterRing {
					e.Up = false
				}
			}
		}
	}
}
