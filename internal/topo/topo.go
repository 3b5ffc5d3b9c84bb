// Package topo builds and holds the torus-shaped inter-satellite mesh: a
// pure graph of satellite and ground-station nodes connected by undirected
// edges, with no IP or OSPF annotation (see internal/ipalloc and
// internal/frrconfig for the annotation passes).
//
// Grounded on original_source/torus_topo.py: rings of satellites connected
// in a cycle, adjacent rings connected node-for-node, ground stations added
// as a separate cosmetic cycle.
package topo

import (
	"fmt"
	"sort"
)

// NodeKind distinguishes a satellite from a ground station.
type NodeKind int

const (
	KindSatellite NodeKind = iota
	KindGroundStation
)

func (k NodeKind) String() string {
	if k == KindSatellite {
		return "satellite"
	}
	return "ground_station"
}

// DefaultInclination is the graph-level default orbital inclination in
// degrees, matching the 53.9° Starlink-shell value used throughout the
// reference implementation.
const DefaultInclination = 53.9

// OrbitParams holds the static, builder-assigned orbital elements for a
// satellite node. internal/geosim builds a full orbit.OrbitData from
// these plus a catalog number drawn from its own injected
// orbit.CatalogSequence.
type OrbitParams struct {
	RightAscension float64 // degrees, 360*ring/rings
	Inclination    float64 // degrees, graph-level default
	MeanAnomaly    float64 // degrees, 360*node/perRing (+ stagger offset)
}

// Node is either a satellite or a ground station.
type Node struct {
	Name string
	Kind NodeKind

	// Satellite fields (Kind == KindSatellite)
	Orbit OrbitParams

	// GroundStation fields (Kind == KindGroundStation)
	Lat, Lon float64
}

// Edge is an undirected link between two nodes, identified canonically by
// the lexicographically-smaller endpoint name first.
type Edge struct {
	Node1, Node2 string
	InterRing    bool // true iff the edge crosses orbital planes
	Up           bool // current admin state

	// Ground indicates this edge touches a ground station and carries no
	// IP allocation — either the cosmetic ground-station cycle edge, or a
	// dynamically created/destroyed uplink (see internal/runtime).
	Ground bool
}

// EdgeKey returns the canonical (ordered) edge identity used as a map key.
func EdgeKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// Graph is the torus topology: nodes, edges, and ring membership.
type Graph struct {
	Rings        int
	PerRing      int
	Inclination  float64
	RingMembers  [][]string // RingMembers[r] = ordered node names in ring r

	nodes map[string]*Node
	edges map[string]*Edge // keyed by EdgeKey
	adj   map[string]map[string]struct{}

	nodeOrder []string // insertion order, for IP allocation determinism
	edgeOrder []string // insertion order (edge keys), ditto
}

// NewGraph creates an empty graph shell (used by the builder and by tests
// constructing small graphs directly).
func NewGraph(rings, perRing int, inclination float64) *Graph {
	return &Graph{
		Rings:       rings,
		PerRing:     perRing,
		Inclination: inclination,
		nodes:       make(map[string]*Node),
		edges:       make(map[string]*Edge),
		adj:         make(map[string]map[string]struct{}),
	}
}

// AddNode inserts a node. Overwrites silently if the name already exists,
// matching the builder's single-pass construction (no duplicate names are
// ever generated by BuildTorus).
func (g *Graph) AddNode(n *Node) {
	if _, exists := g.nodes[n.Name]; !exists {
		g.nodeOrder = append(g.nodeOrder, n.Name)
	}
	g.nodes[n.Name] = n
	if g.adj[n.Name] == nil {
		g.adj[n.Name] = make(map[string]struct{})
	}
}

// AddEdge inserts an undirected edge between two existing nodes.
func (g *Graph) AddEdge(a, b string, interRing, ground bool) *Edge {
	e := &Edge{Node1: a, Node2: b, InterRing: interRing, Up: true, Ground: ground}
	key := EdgeKey(a, b)
	if _, exists := g.edges[key]; !exists {
		g.edgeOrder = append(g.edgeOrder, key)
	}
	g.edges[key] = e
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]struct{})
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]struct{})
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
	return e
}

// RemoveEdge deletes an edge, used when a ground-station uplink is torn
// down. Satellite-satellite edges are never removed (spec.md §3 invariant 6).
func (g *Graph) RemoveEdge(a, b string) {
	key := EdgeKey(a, b)
	delete(g.edges, key)
	delete(g.adj[a], b)
	delete(g.adj[b], a)
	for i, k := range g.edgeOrder {
		if k == key {
			g.edgeOrder = append(g.edgeOrder[:i], g.edgeOrder[i+1:]...)
			break
		}
	}
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Edge looks up an edge by its two endpoints (order-independent).
func (g *Graph) Edge(a, b string) (*Edge, bool) {
	e, ok := g.edges[EdgeKey(a, b)]
	return e, ok
}

// Neighbors returns the sorted set of node names adjacent to name.
func (g *Graph) Neighbors(name string) []string {
	var out []string
	for n := range g.adj[name] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Nodes returns all node names, sorted.
func (g *Graph) Nodes() []string {
	var out []string
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Satellites returns the names of all satellite nodes, sorted lexically.
// For builder-insertion order (required by internal/ipalloc), use
// NodesInOrder and filter by Kind instead.
func (g *Graph) Satellites() []string {
	var out []string
	for name, n := range g.nodes {
		if n.Kind == KindSatellite {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GroundStations returns the names of all ground-station nodes, sorted.
func (g *Graph) GroundStations() []string {
	var out []string
	for name, n := range g.nodes {
		if n.Kind == KindGroundStation {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Edges returns every edge, in a stable order (sorted by canonical key).
func (g *Graph) Edges() []*Edge {
	keys := make([]string, 0, len(g.edges))
	for k := range g.edges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Edge, 0, len(keys))
	for _, k := range keys {
		out = append(out, g.edges[k])
	}
	return out
}

// NodesInOrder returns every node name in the exact order AddNode was
// called, matching original_source/topo_annotate.py's iteration over
// graph.nodes.values() (networkx preserves insertion order). The address
// allocator (internal/ipalloc) must walk nodes in this order, not sorted
// order, to reproduce deterministic loopback assignment.
func (g *Graph) NodesInOrder() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// EdgesInOrder returns every edge in the exact order AddEdge was called,
// matching topo_annotate.py's iteration over graph.edges.values(). The
// address allocator walks edges in this order to reproduce deterministic
// per-edge /30 subnet assignment.
func (g *Graph) EdgesInOrder() []*Edge {
	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		if e, ok := g.edges[key]; ok {
			out = append(out, e)
		}
	}
	return out
}

// EdgeCount returns the number of edges currently in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeCount returns the number of nodes currently in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Connected reports whether the graph (restricted to non-ground nodes, the
// routed satellite mesh) is a single connected component via BFS over all
// edges regardless of admin state — connectivity is a structural property
// of the static torus, independent of runtime link-state churn.
func (g *Graph) Connected() bool {
	sats := g.Satellites()
	if len(sats) == 0 {
		return true
	}
	visited := map[string]bool{sats[0]: true}
	queue := []string{sats[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := range g.adj[cur] {
			if nd, ok := g.nodes[n]; !ok || nd.Kind != KindSatellite {
				continue
			}
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}
	return len(visited) == len(sats)
}

// NodeName formats the canonical satellite name for a (ring, slot) pair.
func NodeName(ring, node int) string {
	return fmt.Sprintf("R%d_%d", ring, node)
}
