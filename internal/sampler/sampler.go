// Package sampler runs one liveness-probe worker per node plus a coarser-
// cadence aggregator, implementing runtime.ProbeStatusProvider over a
// fleet of per-node internal/probestore.Store instances.
//
// Grounded on original_source/mnet/pmonitor.py: per-worker target-list
// rotation (monitor_targets), the can_run/running lifecycle flags
// (generalized to a context.Context + atomic flag, per spec.md §9's
// "threaded sampler + DB-file IPC becomes message passing" redesign
// note), and the aggregator's stable/dynamic partitioned StatSample.
package sampler

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/leosat-network/leosim/internal/probestore"
	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/simerr"
	"github.com/leosat-network/leosim/internal/simlog"
)

// Target is one entry in the shared targets table a worker samples
// against: a peer's name, its display address, and whether it is a
// stable (satellite) or dynamic (ground-station) target.
type Target struct {
	Name    string
	Address string
	Stable  bool
}

// Store is the collaborator a Worker or Manager needs from a per-node
// probe backing store — small enough to fake in tests without a real
// Redis server, matching the teacher's collaborator-interface convention
// (e.g. internal/backend.Backend, pkg/audit.Logger). probestore.Store
// satisfies this directly.
type Store interface {
	RecordResult(ctx context.Context, name, address string, stable, responded bool) error
	StatusCount(ctx context.Context, stable bool) (good, total int, err error)
	StatusList(ctx context.Context) ([]probestore.Record, error)
	LastFive(ctx context.Context) ([]probestore.Result, error)
}

// Worker is a single node's probe loop: it walks a rotated copy of the
// shared targets table, issuing one bounded-deadline reachability check
// per target and recording the outcome to its own Store.
type Worker struct {
	node    string
	rt      *runtime.SimRuntime
	store   Store
	targets []Target
	timeout time.Duration
	canRun  int32
}

// NewWorker builds a Worker for node, rotating targets so this worker
// starts past its own entry — different workers therefore sample
// different targets first, per spec.md §4.9.
func NewWorker(node string, rt *runtime.SimRuntime, store Store, targets []Target, timeout time.Duration) *Worker {
	return &Worker{
		node:    node,
		rt:      rt,
		store:   store,
		targets: rotateTargets(targets, node),
		timeout: timeout,
		canRun:  1,
	}
}

func rotateTargets(targets []Target, node string) []Target {
	idx := -1
	for i, t := range targets {
		if t.Name == node {
			idx = i
			break
		}
	}
	if idx == -1 {
		out := make([]Target, len(targets))
		copy(out, targets)
		return out
	}
	out := make([]Target, 0, len(targets))
	out = append(out, targets[idx+1:]...)
	out = append(out, targets[:idx]...)
	return out
}

// Stop commands the worker to exit at its next target boundary —
// pmonitor.py's can_run flag, generalized to an atomic int32 since there
// is no shared external process to flip a database flag for.
func (w *Worker) Stop() {
	atomic.StoreInt32(&w.canRun, 0)
}

// Run probes every target in rotation order once per pass, sleeping
// interval between each individual probe, until ctx is canceled or Stop
// is called.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	for atomic.LoadInt32(&w.canRun) == 1 {
		for _, target := range w.targets {
			if atomic.LoadInt32(&w.canRun) == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			w.probeOne(ctx, target)

			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

// probeOne issues one bounded reachability check and records the
// outcome. A reachability error (e.g. unknown node) is recorded as a
// failed probe rather than propagated — spec.md §7's policy that probe
// failures are first-class data, never errors.
func (w *Worker) probeOne(ctx context.Context, target Target) {
	probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	responded, err := w.rt.Reachable(probeCtx, w.node, target.Name)
	if err != nil {
		simlog.WithField("node", w.node).WithField("target", target.Name).Debug("probe treated as unreachable: " + err.Error())
		responded = false
	}

	if err := w.store.RecordResult(ctx, target.Name, target.Address, target.Stable, responded); err != nil {
		simlog.WithField("node", w.node).WithField("target", target.Name).Warn("recording probe result failed: " + err.Error())
	}
}

// Manager owns every node's Store, implements runtime.ProbeStatusProvider
// over them, and runs the coarser-cadence aggregator that folds every
// store's counts into one StatSample.
type Manager struct {
	rt     *runtime.SimRuntime
	stores map[string]Store
	period time.Duration
}

// NewManager builds a Manager over one Store per node.
func NewManager(rt *runtime.SimRuntime, stores map[string]Store, period time.Duration) *Manager {
	return &Manager{rt: rt, stores: stores, period: period}
}

// Run invokes the aggregator every period until ctx is canceled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.aggregate(ctx)
		}
	}
}

// aggregate reads every node's store and appends one StatSample to
// SimRuntime's stats ring, partitioned into stable (satellite) and
// dynamic (ground-station) totals, per spec.md §4.9.
func (m *Manager) aggregate(ctx context.Context) {
	var stableGood, stableTotal, dynamicGood, dynamicTotal int
	for _, node := range m.sortedNodes() {
		store := m.stores[node]
		sg, st, err := store.StatusCount(ctx, true)
		if err != nil {
			simlog.WithField("node", node).Warn("aggregator: reading stable counts failed: " + err.Error())
			continue
		}
		dg, dt, err := store.StatusCount(ctx, false)
		if err != nil {
			simlog.WithField("node", node).Warn("aggregator: reading dynamic counts failed: " + err.Error())
			continue
		}
		stableGood += sg
		stableTotal += st
		dynamicGood += dg
		dynamicTotal += dt
	}

	m.rt.SampleStats(runtime.StatSample{
		Time:         time.Now(),
		StableGood:   stableGood,
		StableTotal:  stableTotal,
		DynamicGood:  dynamicGood,
		DynamicTotal: dynamicTotal,
	})
}

func (m *Manager) sortedNodes() []string {
	names := make([]string, 0, len(m.stores))
	for name := range m.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NodeStatusList implements runtime.ProbeStatusProvider.
func (m *Manager) NodeStatusList(node string) ([]runtime.ProbeStatus, error) {
	store, ok := m.stores[node]
	if !ok {
		return nil, simerr.NewNotFound("node", node)
	}
	records, err := store.StatusList(context.Background())
	if err != nil {
		return nil, err
	}
	out := make([]runtime.ProbeStatus, 0, len(records))
	for _, r := range records {
		out = append(out, runtime.ProbeStatus{
			Target:       r.Name,
			Responded:    r.Responded,
			TotalCount:   r.TotalCount,
			TotalSuccess: r.TotalSuccess,
		})
	}
	return out, nil
}

// LastFiveProbes implements runtime.ProbeStatusProvider.
func (m *Manager) LastFiveProbes(node string) ([]runtime.ProbeResult, error) {
	store, ok := m.stores[node]
	if !ok {
		return nil, simerr.NewNotFound("node", node)
	}
	results, err := store.LastFive(context.Background())
	if err != nil {
		return nil, err
	}
	out := make([]runtime.ProbeResult, 0, len(results))
	for _, r := range results {
		out = append(out, runtime.ProbeResult{Target: r.Name, Responded: r.Responded, Time: r.Time})
	}
	return out, nil
}
