package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leosat-network/leosim/internal/api"
	"github.com/leosat-network/leosim/internal/backend"
	"github.com/leosat-network/leosim/internal/config"
	"github.com/leosat-network/leosim/internal/geosim"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/probestore"
	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/sampler"
	"github.com/leosat-network/leosim/internal/simlog"
	"github.com/leosat-network/leosim/internal/topo"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build the topology and run the control plane (API, geo-loop, sampler)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe wires every long-running component from spec.md §5's process
// model — the API server, the geo-simulation tick loop, and one sampler
// worker per node plus its aggregator — and blocks until ctx is canceled
// or the control API's /shutdown endpoint is hit.
func runServe(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !verbose {
		if err := simlog.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}

	g, err := topo.BuildTorus(cfg.Network.Rings, cfg.Network.Routers, cfg.Network.GroundStations)
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		return fmt.Errorf("allocating addresses: %w", err)
	}

	be := backend.NewStubBackend(1, 0)
	rt := runtime.New(g, alloc, be)

	stores, targets := buildSamplerFleet(g, alloc, cfg)
	defer closeStores(stores)

	manager := sampler.NewManager(rt, stores, cfg.Monitor.AggregatorPeriod)
	rt.SetProbeProvider(manager)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := api.New(rt, cancel)
	httpServer := &http.Server{Addr: cfg.Server.ListenAddr, Handler: srv.Handler()}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		simlog.WithField("addr", cfg.Server.ListenAddr).Info("control API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			simlog.WithField("err", err).Error("control API stopped unexpectedly")
		}
	}()

	loop := geosim.New(rt, cfg.Physical.TimeSlice, cfg.Physical.MinAltitude)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(runCtx); err != nil {
			simlog.WithField("err", err).Info("geo-simulation loop stopped")
		}
	}()

	for node, target := range targets {
		node, target := node, target
		worker := sampler.NewWorker(node, rt, stores[node], target, cfg.Monitor.ProbeTimeout)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(runCtx, cfg.Monitor.ProbeTimeout)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := manager.Run(runCtx); err != nil {
			simlog.WithField("err", err).Info("sampler aggregator stopped")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		simlog.Info("received shutdown signal")
	case <-runCtx.Done():
		simlog.Info("shutdown requested via control API")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Monitor.ProbeTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	wg.Wait()
	return nil
}

// buildSamplerFleet assigns one Redis DB to each node's probe store and
// builds the shared targets table every worker rotates over — one entry
// per node in the topology, satellites marked stable, ground stations
// dynamic, per spec.md §4.9.
func buildSamplerFleet(g *topo.Graph, alloc *ipalloc.Allocation, cfg *config.Config) (map[string]sampler.Store, map[string][]sampler.Target) {
	nodes := append(append([]string{}, g.Satellites()...), g.GroundStations()...)
	sort.Strings(nodes)

	sharedTargets := make([]sampler.Target, 0, len(nodes))
	for _, name := range nodes {
		loopback, ok := alloc.Loopbacks[name]
		if !ok {
			continue
		}
		n, _ := g.Node(name)
		sharedTargets = append(sharedTargets, sampler.Target{
			Name:    name,
			Address: loopback.IP.String(),
			Stable:  n.Kind == topo.KindSatellite,
		})
	}

	stores := make(map[string]sampler.Store, len(nodes))
	perNodeTargets := make(map[string][]sampler.Target, len(nodes))
	for i, name := range nodes {
		stores[name] = probestore.New(cfg.Redis.Addr, i)
		perNodeTargets[name] = sharedTargets
	}
	return stores, perNodeTargets
}

func closeStores(stores map[string]sampler.Store) {
	for _, s := range stores {
		if c, ok := s.(*probestore.Store); ok {
			c.Close()
		}
	}
}
