package frrconfig

import (
	"strings"
	"testing"

	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/topo"
)

func buildAndAllocate(t *testing.T, rings, perRing int) (*topo.Graph, *ipalloc.Allocation) {
	t.Helper()
	g, err := topo.BuildTorus(rings, perRing, false)
	if err != nil {
		t.Fatalf("BuildTorus error: %v", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	return g, alloc
}

func TestRenderOSPFIncludesLoopbackAndNeighbors(t *testing.T) {
	g, alloc := buildAndAllocate(t, 4, 4)

	cfg, err := Render(g, alloc, "R0_0")
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if !strings.Contains(cfg.OSPF, "hostname R0_0") {
		t.Error("ospf config missing hostname stanza")
	}
	loopback := alloc.Loopbacks["R0_0"]
	if !strings.Contains(cfg.OSPF, "ospf router-id "+loopback.IP.String()) {
		t.Error("ospf config missing router-id stanza")
	}
	if !strings.Contains(cfg.OSPF, "redistribute static") {
		t.Error("ospf config missing redistribute static")
	}
	if !strings.Contains(cfg.OSPF, loopback.IP.String()+"/32") {
		t.Error("ospf config missing loopback /32 network stanza")
	}
	if got := len(g.Neighbors("R0_0")); got != 4 {
		t.Fatalf("R0_0 should have 4 neighbors, got %d", got)
	}
	for _, neighbor := range g.Neighbors("R0_0") {
		ea, ok := alloc.Edges[topo.EdgeKey("R0_0", neighbor)]
		if !ok {
			t.Fatalf("missing edge allocation for R0_0-%s", neighbor)
		}
		side, _ := ea.EndpointFor("R0_0")
		if !strings.Contains(cfg.OSPF, side.IP.String()+"/30") {
			t.Errorf("ospf config missing network stanza for neighbor %s", neighbor)
		}
	}
}

func TestRenderVTYSHAndDaemons(t *testing.T) {
	g, alloc := buildAndAllocate(t, 2, 2)
	cfg, err := Render(g, alloc, "R0_0")
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	want := "service integrated-vtysh-config\nhostname R0_0"
	if cfg.VTYSH != want {
		t.Errorf("vtysh config = %q, want %q", cfg.VTYSH, want)
	}
	if cfg.Daemons != DaemonsConfig {
		t.Error("daemons config should be the fixed manifest for every node")
	}
	if !strings.Contains(cfg.Daemons, "ospfd=yes") {
		t.Error("daemons config missing ospfd=yes")
	}
}

func TestRenderUnknownNode(t *testing.T) {
	g, alloc := buildAndAllocate(t, 2, 2)
	if _, err := Render(g, alloc, "R9_9"); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestRenderGroundStationRejected(t *testing.T) {
	g, err := topo.BuildTorus(2, 2, true)
	if err != nil {
		t.Fatalf("BuildTorus error: %v", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if _, err := Render(g, alloc, g.GroundStations()[0]); err == nil {
		t.Error("expected error when rendering OSPF config for a ground station")
	}
}

func TestRenderDeterministic(t *testing.T) {
	g, alloc := buildAndAllocate(t, 4, 4)
	first, err := Render(g, alloc, "R0_0")
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	second, err := Render(g, alloc, "R0_0")
	if err != nil {
		t.Fatalf("Render error: %v", err)
	}
	if first.OSPF != second.OSPF {
		t.Error("rendering the same node twice should be byte-identical")
	}
}
