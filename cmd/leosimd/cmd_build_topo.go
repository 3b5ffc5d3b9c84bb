package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leosat-network/leosim/internal/config"
	"github.com/leosat-network/leosim/internal/frrconfig"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/topo"
)

var (
	buildTopoShowConfig bool
	buildTopoDownSlots  string
)

func newBuildTopoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build-topo",
		Short: "Build the torus topology and print a summary without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuildTopo()
		},
	}
	cmd.Flags().BoolVar(&buildTopoShowConfig, "show-config", false, "print each satellite's rendered OSPF config")
	cmd.Flags().StringVar(&buildTopoDownSlots, "down", "", "comma-separated per-ring slot numbers to bring down inter-ring links for (debug)")
	return cmd
}

func runBuildTopo() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	g, err := topo.BuildTorus(cfg.Network.Rings, cfg.Network.Routers, cfg.Network.GroundStations)
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		return fmt.Errorf("allocating addresses: %w", err)
	}

	if buildTopoDownSlots != "" {
		slots, err := parseSlotList(buildTopoDownSlots)
		if err != nil {
			return fmt.Errorf("parsing --down: %w", err)
		}
		topo.DownInterRingLinks(g, slots)
		fmt.Printf("down: inter-ring links at slots %v\n", slots)
	}

	fmt.Printf("rings=%d per_ring=%d satellites=%d ground_stations=%d edges=%d connected=%v\n",
		g.Rings, g.PerRing, len(g.Satellites()), len(g.GroundStations()), g.EdgeCount(), g.Connected())

	if !buildTopoShowConfig {
		return nil
	}
	for _, name := range g.Satellites() {
		nc, err := frrconfig.Render(g, alloc, name)
		if err != nil {
			return fmt.Errorf("rendering config for %s: %w", name, err)
		}
		fmt.Printf("--- %s ---\n%s\n", name, nc.OSPF)
	}
	return nil
}

// parseSlotList parses a comma-separated list of per-ring slot numbers,
// e.g. "0,2" for --down.
func parseSlotList(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
