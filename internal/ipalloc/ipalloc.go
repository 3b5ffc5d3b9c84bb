// Package ipalloc assigns deterministic loopback, point-to-point, and
// ground-station pool addresses over a built topo.Graph.
//
// Grounded on original_source/topo_annotate.py's annotate_graph: a single
// pass over nodes (in builder insertion order) assigns loopbacks, a second
// pass over edges (in builder insertion order, excluding ground-station
// pseudo-edges) assigns /30 subnets and per-node interface names, and a
// third pass hands each ground station the next `PoolSize` /30 subnets off
// the same edge counter. Each /30 network is computed from its counter
// value with integer arithmetic and net.ParseCIDR; its two host addresses
// are enumerated with github.com/apparentlymart/go-cidr/cidr's cidr.Host,
// following the usage pattern in elupevg-golab/topology/topology.go.
package ipalloc

import (
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"

	"github.com/leosat-network/leosim/internal/simerr"
	"github.com/leosat-network/leosim/internal/topo"
)

const (
	// loopbackBase is 10.1.0.0 — node k's loopback is loopbackBase+k, a /31.
	loopbackBase uint32 = 0x0a010000
	// edgeBase is 10.15.0.0 — edge e's subnet is edgeBase+4e, a /30.
	edgeBase uint32 = 0x0a0f0000

	// PoolSize is the number of /30 subnets reserved per ground station.
	PoolSize = 4
)

// Loopback is a node's assigned point-to-point loopback address.
type Loopback struct {
	IP     net.IP
	Number int // the 1-indexed node counter value that produced IP
}

func (l Loopback) String() string {
	return fmt.Sprintf("%s/31", l.IP)
}

// Endpoint is one side of an allocated edge: its interface address inside
// the edge's /30, and its synthesized interface name.
type Endpoint struct {
	IP        net.IP
	Interface string
}

// EdgeAlloc is the per-edge allocation: the /30 subnet plus each endpoint's
// host address and interface name, keyed by node name.
type EdgeAlloc struct {
	Network  *net.IPNet
	Number   int // the 1-indexed edge counter value that produced Network
	Node1    string
	Node2    string
	Side1    Endpoint
	Side2    Endpoint
}

// EndpointFor returns the allocation's Endpoint for the named node, or the
// zero Endpoint and false if node isn't one of the edge's two endpoints.
func (e EdgeAlloc) EndpointFor(node string) (Endpoint, bool) {
	switch node {
	case e.Node1:
		return e.Side1, true
	case e.Node2:
		return e.Side2, true
	default:
		return Endpoint{}, false
	}
}

// PoolEntry is a single /30 subnet reserved in a ground station's uplink
// pool, with its two usable host addresses. Used marks whether the
// runtime has handed this subnet out to an active uplink.
type PoolEntry struct {
	Network *net.IPNet
	Number  int
	IP1     net.IP
	IP2     net.IP
	Used    bool
}

// Allocation is the complete result of allocating addresses over a graph.
type Allocation struct {
	Loopbacks map[string]Loopback    // by node name
	Edges     map[string]*EdgeAlloc  // by topo.EdgeKey(node1,node2)
	Pools     map[string][]*PoolEntry // by ground-station node name
}

// Allocate walks g's nodes then non-ground edges in builder insertion
// order (topo.Graph.NodesInOrder / EdgesInOrder), assigning loopbacks and
// per-edge subnets/interfaces, then hands each ground station PoolSize
// successive /30 subnets continuing the same edge counter.
func Allocate(g *topo.Graph) (*Allocation, error) {
	alloc := &Allocation{
		Loopbacks: make(map[string]Loopback),
		Edges:     make(map[string]*EdgeAlloc),
		Pools:     make(map[string][]*PoolEntry),
	}

	nodeCount := 1
	for _, name := range g.NodesInOrder() {
		ip := intToIPv4(loopbackBase + uint32(nodeCount))
		alloc.Loopbacks[name] = Loopback{IP: ip, Number: nodeCount}
		nodeCount += 2
	}

	ifaceCount := make(map[string]int)
	edgeCount := 1
	for _, e := range g.EdgesInOrder() {
		if e.Ground {
			continue
		}
		network, err := edgeNetwork(edgeCount)
		if err != nil {
			return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
		}
		ip1, err := cidr.Host(network, 1)
		if err != nil {
			return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
		}
		ip2, err := cidr.Host(network, 2)
		if err != nil {
			return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
		}

		ifaceCount[e.Node1]++
		ifaceCount[e.Node2]++

		ea := &EdgeAlloc{
			Network: network,
			Number:  edgeCount,
			Node1:   e.Node1,
			Node2:   e.Node2,
			Side1:   Endpoint{IP: ip1, Interface: fmt.Sprintf("%s-eth%d", e.Node1, ifaceCount[e.Node1])},
			Side2:   Endpoint{IP: ip2, Interface: fmt.Sprintf("%s-eth%d", e.Node2, ifaceCount[e.Node2])},
		}
		alloc.Edges[topo.EdgeKey(e.Node1, e.Node2)] = ea
		edgeCount++
	}

	for _, name := range g.GroundStations() {
		entries := make([]*PoolEntry, 0, PoolSize)
		for i := 0; i < PoolSize; i++ {
			network, err := edgeNetwork(edgeCount)
			if err != nil {
				return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
			}
			ip1, err := cidr.Host(network, 1)
			if err != nil {
				return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
			}
			ip2, err := cidr.Host(network, 2)
			if err != nil {
				return nil, simerr.NewBackendFailure("ipalloc.Allocate", err)
			}
			entries = append(entries, &PoolEntry{Network: network, Number: edgeCount, IP1: ip1, IP2: ip2})
			edgeCount++
		}
		alloc.Pools[name] = entries
	}

	return alloc, nil
}

// edgeNetwork returns the /30 network for the e'th (1-indexed) edge
// counter value, per topo_annotate.py: ip = edgeBase + e*4.
func edgeNetwork(e int) (*net.IPNet, error) {
	ip := intToIPv4(edgeBase + uint32(e)*4)
	_, network, err := net.ParseCIDR(fmt.Sprintf("%s/30", ip))
	if err != nil {
		return nil, err
	}
	return network, nil
}

func intToIPv4(n uint32) net.IP {
	return net.IPv4(byte(n>>24), byte(n>>16), byte(n>>8), byte(n)).To4()
}

// LeaseFromPool finds the first unused subnet in station's pool and marks
// it used, returning it. Returns simerr.ErrPoolExhausted (wrapped in a
// PoolExhaustedError) if every subnet is already in use.
func (a *Allocation) LeaseFromPool(station string) (*PoolEntry, error) {
	pool, ok := a.Pools[station]
	if !ok {
		return nil, simerr.NewNotFound("ground_station", station)
	}
	for _, entry := range pool {
		if !entry.Used {
			entry.Used = true
			return entry, nil
		}
	}
	return nil, simerr.NewPoolExhausted(station)
}

// ReleaseToPool marks network as unused again in station's pool. No-op if
// the network isn't currently leased from that pool.
func (a *Allocation) ReleaseToPool(station string, network *net.IPNet) {
	for _, entry := range a.Pools[station] {
		if entry.Network.String() == network.String() {
			entry.Used = false
			return
		}
	}
}
