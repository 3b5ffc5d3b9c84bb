package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leosat-network/leosim/internal/config"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/topo"
)

func TestBuildSamplerFleetOneStorePerNode(t *testing.T) {
	g, err := topo.BuildTorus(2, 2, true)
	if err != nil {
		t.Fatalf("BuildTorus error: %v", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	cfg := &config.Config{}
	cfg.Redis.Addr = "localhost:6379"

	stores, targets := buildSamplerFleet(g, alloc, cfg)

	wantNodes := len(g.Satellites()) + len(g.GroundStations())
	if len(stores) != wantNodes {
		t.Errorf("stores = %d, want %d (one per node)", len(stores), wantNodes)
	}
	for _, node := range g.Satellites() {
		list, ok := targets[node]
		if !ok {
			t.Fatalf("no target list for %s", node)
		}
		if len(list) != wantNodes {
			t.Errorf("targets[%s] has %d entries, want %d (every node, including itself)", node, len(list), wantNodes)
		}
	}
}

func TestBuildSamplerFleetPartitionsStableFlag(t *testing.T) {
	g, err := topo.BuildTorus(2, 2, true)
	if err != nil {
		t.Fatalf("BuildTorus error: %v", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	cfg := &config.Config{}
	cfg.Redis.Addr = "localhost:6379"

	_, targets := buildSamplerFleet(g, alloc, cfg)
	list := targets[g.Satellites()[0]]

	var stableCount, dynamicCount int
	for _, target := range list {
		if target.Stable {
			stableCount++
		} else {
			dynamicCount++
		}
	}
	if stableCount != len(g.Satellites()) {
		t.Errorf("stable targets = %d, want %d", stableCount, len(g.Satellites()))
	}
	if dynamicCount != len(g.GroundStations()) {
		t.Errorf("dynamic targets = %d, want %d", dynamicCount, len(g.GroundStations()))
	}
}

func TestParseSlotList(t *testing.T) {
	got, err := parseSlotList("0,2")
	if err != nil {
		t.Fatalf("parseSlotList error: %v", err)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("parseSlotList(\"0,2\") = %v, want [0 2]", got)
	}
}

func TestParseSlotListRejectsGarbage(t *testing.T) {
	if _, err := parseSlotList("0,x"); err == nil {
		t.Error("expected an error for a non-numeric slot")
	}
}

func TestRunBuildTopoRejectsInvalidConfig(t *testing.T) {
	configPath = "/nonexistent/leosim.yaml"
	if err := runBuildTopo(); err == nil {
		t.Error("expected an error reading a nonexistent config file")
	}
}

func TestConfigDefaultsSurviveLoad(t *testing.T) {
	// sanity check that the Monitor defaults this package relies on for
	// the sampler cadence survive loading a file that does not set them.
	path := filepath.Join(t.TempDir(), "leosim.yaml")
	if err := os.WriteFile(path, []byte("network:\n  rings: 2\n  routers: 2\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Monitor.ProbeTimeout <= 0 || c.Monitor.AggregatorPeriod <= 0 {
		t.Error("monitor cadence fields must be positive")
	}
}
