// Package frrconfig renders the opaque FRR/OSPF configuration blobs a
// satellite's control agent is expected to apply: an ospfd config, a
// vtysh integration snippet, and a fixed daemons manifest. The core never
// interprets these blobs — they're handed to internal/backend verbatim,
// mirroring the teacher's opaque-config-blob convention in
// pkg/newtron/network/node (e.g. CreateBGPGlobalsConfig builds a string
// consumed by the backend without further parsing).
//
// Grounded on original_source/topo_annotate.py's create_ospf_config,
// create_vtysh_config, and create_daemons_config — the literal text is
// carried over, plus a redistribute-static stanza, rendered with
// text/template the way pkg/newtlab/patch.go renders its boot-patch
// templates.
package frrconfig

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/topo"
)

const ospfTemplateText = `
hostname {{.Name}}
frr defaults datacenter
log syslog informational
ip forwarding
no ipv6 forwarding
service integrated-vtysh-config
!
router ospf
 ospf router-id {{.RouterID}}
 redistribute static
{{range .Networks}} network {{.}} area 0.0.0.0
{{end}}exit
!
`

const vtyshTemplateText = `service integrated-vtysh-config
hostname {{.Name}}`

// DaemonsConfig is fixed across every node: it enables ospfd and binds
// management sockets to loopback only.
const DaemonsConfig = `#
ospfd=yes
vtysh_enable=yes
zebra_options="  -A 127.0.0.1 -s 90000000"
mgmtd_options="  -A 127.0.0.1"
ospfd_options="  -A 127.0.0.1"
`

var (
	ospfTemplate  = template.Must(template.New("ospf").Parse(ospfTemplateText))
	vtyshTemplate = template.Must(template.New("vtysh").Parse(vtyshTemplateText))
)

type ospfVars struct {
	Name     string
	RouterID string
	Networks []string
}

// NodeConfig is the full set of rendered blobs for one satellite.
type NodeConfig struct {
	OSPF    string
	VTYSH   string
	Daemons string
}

// Render produces the OSPF/vtysh/daemons blobs for node, given the
// topology and its address allocation. Networks are emitted for the
// node's loopback (/32) followed by one per directly attached,
// non-ground edge, walked in the order the builder created those edges
// (original_source iterates graph.adj[name], a networkx insertion-order
// dict, so AddEdge insertion order over the node's incident edges is the
// matching order here).
func Render(g *topo.Graph, alloc *ipalloc.Allocation, node string) (*NodeConfig, error) {
	n, ok := g.Node(node)
	if err := requireSatellite(n, ok, node); err != nil {
		return nil, err
	}

	loopback, ok := alloc.Loopbacks[node]
	if !ok {
		return nil, fmt.Errorf("no loopback allocated for node %q", node)
	}

	networks := []string{fmt.Sprintf("%s/32", loopback.IP)}
	for _, e := range g.EdgesInOrder() {
		if e.Ground {
			continue
		}
		var peer string
		switch node {
		case e.Node1:
			peer = e.Node2
		case e.Node2:
			peer = e.Node1
		default:
			continue
		}
		ea, ok := alloc.Edges[topo.EdgeKey(node, peer)]
		if !ok {
			continue
		}
		side, ok := ea.EndpointFor(node)
		if !ok {
			continue
		}
		networks = append(networks, fmt.Sprintf("%s/%d", side.IP, 30))
	}

	var ospfBuf bytes.Buffer
	if err := ospfTemplate.Execute(&ospfBuf, ospfVars{
		Name:     node,
		RouterID: loopback.IP.String(),
		Networks: networks,
	}); err != nil {
		return nil, fmt.Errorf("render ospf config for %s: %w", node, err)
	}

	var vtyshBuf bytes.Buffer
	if err := vtyshTemplate.Execute(&vtyshBuf, ospfVars{Name: node}); err != nil {
		return nil, fmt.Errorf("render vtysh config for %s: %w", node, err)
	}

	return &NodeConfig{
		OSPF:    ospfBuf.String(),
		VTYSH:   vtyshBuf.String(),
		Daemons: DaemonsConfig,
	}, nil
}

func requireSatellite(n *topo.Node, ok bool, name string) error {
	if !ok {
		return fmt.Errorf("node %q not found", name)
	}
	if n.Kind != topo.KindSatellite {
		return fmt.Errorf("node %q is not a satellite, no OSPF config applies", name)
	}
	return nil
}
