package sampler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leosat-network/leosim/internal/backend"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/probestore"
	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/topo"
)

// fakeStore is an in-memory Store for tests that never touch Redis.
type fakeStore struct {
	mu      sync.Mutex
	records []probestore.Record
	fives   []probestore.Result
}

func (f *fakeStore) RecordResult(ctx context.Context, name, address string, stable, responded bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].Name == name {
			f.records[i].Responded = responded
			f.records[i].TotalCount++
			if responded {
				f.records[i].TotalSuccess++
			}
			f.fives = append([]probestore.Result{{Name: name, Address: address, Responded: responded}}, f.fives...)
			return nil
		}
	}
	f.records = append(f.records, probestore.Record{
		Name: name, Address: address, Stable: stable, Responded: responded,
		TotalCount: 1, TotalSuccess: boolToInt(responded),
	})
	f.fives = append([]probestore.Result{{Name: name, Address: address, Responded: responded}}, f.fives...)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (f *fakeStore) StatusCount(ctx context.Context, stable bool) (good, total int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.Stable != stable || r.TotalCount == 0 {
			continue
		}
		total++
		if r.Responded {
			good++
		}
	}
	return good, total, nil
}

func (f *fakeStore) StatusList(ctx context.Context) ([]probestore.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]probestore.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) LastFive(ctx context.Context) ([]probestore.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 5
	if len(f.fives) < n {
		n = len(f.fives)
	}
	out := make([]probestore.Result, n)
	copy(out, f.fives[:n])
	return out, nil
}

func newTestRuntime(t *testing.T) *runtime.SimRuntime {
	t.Helper()
	g, err := topo.BuildTorus(2, 2, true)
	if err != nil {
		t.Fatalf("BuildTorus error: %v", err)
	}
	alloc, err := ipalloc.Allocate(g)
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	be := backend.NewStubBackend(1, 0)
	return runtime.New(g, alloc, be)
}

func TestRotateTargetsStartsPastOwnEntry(t *testing.T) {
	targets := []Target{
		{Name: "R0_0"}, {Name: "R0_1"}, {Name: "R1_0"}, {Name: "R1_1"},
	}
	rotated := rotateTargets(targets, "R0_1")
	want := []string{"R1_0", "R1_1", "R0_0"}
	if len(rotated) != len(want) {
		t.Fatalf("rotated = %+v, want %d entries", rotated, len(want))
	}
	for i, name := range want {
		if rotated[i].Name != name {
			t.Errorf("rotated[%d] = %s, want %s", i, rotated[i].Name, name)
		}
	}
}

func TestRotateTargetsUnknownNodeUnchanged(t *testing.T) {
	targets := []Target{{Name: "R0_0"}, {Name: "R0_1"}}
	rotated := rotateTargets(targets, "R9_9")
	if len(rotated) != 2 || rotated[0].Name != "R0_0" {
		t.Errorf("rotated = %+v, want unchanged order", rotated)
	}
}

func TestWorkerProbeOneRecordsResult(t *testing.T) {
	rt := newTestRuntime(t)
	store := &fakeStore{}
	w := NewWorker("R0_0", rt, store, []Target{{Name: "R0_1", Address: "10.1.0.3", Stable: true}}, time.Second)

	w.probeOne(context.Background(), Target{Name: "R0_1", Address: "10.1.0.3", Stable: true})

	if len(store.records) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(store.records))
	}
	if !store.records[0].Responded {
		t.Error("expected R0_1 to be reachable from R0_0 over an intact torus")
	}
}

func TestWorkerProbeOneUnknownTargetRecordsUnreachable(t *testing.T) {
	rt := newTestRuntime(t)
	store := &fakeStore{}
	w := NewWorker("R0_0", rt, store, nil, time.Second)

	w.probeOne(context.Background(), Target{Name: "R9_9", Address: "10.9.9.9", Stable: true})

	if len(store.records) != 1 || store.records[0].Responded {
		t.Errorf("expected an unreachable-recorded result for an unknown target, got %+v", store.records)
	}
}

func TestWorkerStopEndsRun(t *testing.T) {
	rt := newTestRuntime(t)
	store := &fakeStore{}
	w := NewWorker("R0_0", rt, store, []Target{{Name: "R0_1", Stable: true}}, 100*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background(), 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestManagerAggregateProducesPartitionedSample(t *testing.T) {
	rt := newTestRuntime(t)
	stores := map[string]Store{
		"R0_0": &fakeStore{records: []probestore.Record{
			{Name: "R0_1", Stable: true, Responded: true, TotalCount: 1, TotalSuccess: 1},
			{Name: "G_PAO", Stable: false, Responded: false, TotalCount: 1},
		}},
	}
	m := NewManager(rt, stores, time.Hour)
	m.aggregate(context.Background())

	samples := rt.GetStatSamples()
	if len(samples) != 1 {
		t.Fatalf("expected one sample, got %d", len(samples))
	}
	s := samples[0]
	if s.StableGood != 1 || s.StableTotal != 1 {
		t.Errorf("stable counts = %d/%d, want 1/1", s.StableGood, s.StableTotal)
	}
	if s.DynamicGood != 0 || s.DynamicTotal != 1 {
		t.Errorf("dynamic counts = %d/%d, want 0/1", s.DynamicGood, s.DynamicTotal)
	}
}

// TestManagerAggregateFourReachableOneUnreachable pins spec.md §8
// scenario 6: 4 satellites each probe the other 4 nodes in the system
// (3 reachable peers plus the 1 unreachable one), yielding
// stable_ok=4*3=12 and stable_total=4*4=16 in a single aggregation pass.
func TestManagerAggregateFourReachableOneUnreachable(t *testing.T) {
	rt := newTestRuntime(t)
	reachable := []string{"R0_0", "R0_1", "R1_0", "R1_1"}
	const unreachable = "R_DOWN"

	stores := make(map[string]Store, len(reachable)+1)
	for _, node := range reachable {
		store := &fakeStore{}
		for _, peer := range reachable {
			if peer == node {
				continue
			}
			store.RecordResult(context.Background(), peer, "", true, true)
		}
		store.RecordResult(context.Background(), unreachable, "", true, false)
		stores[node] = store
	}
	stores[unreachable] = &fakeStore{}

	m := NewManager(rt, stores, time.Hour)
	m.aggregate(context.Background())

	samples := rt.GetStatSamples()
	if len(samples) != 1 {
		t.Fatalf("expected one sample, got %d", len(samples))
	}
	s := samples[0]
	if s.StableGood != 12 {
		t.Errorf("stable_ok = %d, want 12", s.StableGood)
	}
	if s.StableTotal != 16 {
		t.Errorf("stable_total = %d, want 16", s.StableTotal)
	}
}

func TestManagerNodeStatusListUnknownNode(t *testing.T) {
	rt := newTestRuntime(t)
	m := NewManager(rt, map[string]Store{}, time.Hour)
	if _, err := m.NodeStatusList("R0_0"); err == nil {
		t.Error("expected error for a node with no store")
	}
}

func TestManagerLastFiveProbes(t *testing.T) {
	rt := newTestRuntime(t)
	store := &fakeStore{}
	store.RecordResult(context.Background(), "R0_1", "10.1.0.3", true, true)
	m := NewManager(rt, map[string]Store{"R0_0": store}, time.Hour)

	results, err := m.LastFiveProbes("R0_0")
	if err != nil {
		t.Fatalf("LastFiveProbes error: %v", err)
	}
	if len(results) != 1 || results[0].Target != "R0_1" {
		t.Errorf("results = %+v, want a single R0_1 entry", results)
	}
}
