package backend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/leosat-network/leosim/internal/simlog"
)

// linkKey canonically orders two endpoint names for map lookups.
func linkKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// StubBackend is a no-op Backend for running the control plane without an
// emulation host: every mutation only updates in-memory bookkeeping, and
// LinkState occasionally reports a randomized flake (simulating transient
// emulation-host noise) rather than always echoing back the last
// ConfigureLink call, so callers exercise their own failure handling.
type StubBackend struct {
	mu    sync.Mutex
	up    map[string]bool
	rng   *rand.Rand
	flake float64 // probability LinkState reports a stale/flipped reading
}

// NewStubBackend returns a StubBackend seeded from seed, with flake set
// to the fraction of LinkState calls that report randomized (not
// necessarily last-set) state. Pass flake=0 for fully deterministic
// behavior in tests.
func NewStubBackend(seed int64, flake float64) *StubBackend {
	return &StubBackend{
		up:    make(map[string]bool),
		rng:   rand.New(rand.NewSource(seed)),
		flake: flake,
	}
}

func (b *StubBackend) ConfigureLink(ctx context.Context, a, b2 string, up bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.up[linkKey(a, b2)] = up
	simlog.WithFields(map[string]interface{}{"a": a, "b": b2, "up": up}).Debug("stub backend: configure link")
	return nil
}

func (b *StubBackend) AddLink(ctx context.Context, a, b2, ipA, ipB string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.up[linkKey(a, b2)] = true
	simlog.WithFields(map[string]interface{}{"a": a, "b": b2, "ipA": ipA, "ipB": ipB}).Debug("stub backend: add link")
	return nil
}

func (b *StubBackend) RemoveLink(ctx context.Context, a, b2 string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.up, linkKey(a, b2))
	simlog.WithFields(map[string]interface{}{"a": a, "b": b2}).Debug("stub backend: remove link")
	return nil
}

func (b *StubBackend) SetStaticRoute(ctx context.Context, onNode, destCidr, viaIP string) error {
	simlog.WithFields(map[string]interface{}{"node": onNode, "dest": destCidr, "via": viaIP}).Debug("stub backend: set static route")
	return nil
}

func (b *StubBackend) ClearStaticRoute(ctx context.Context, onNode, destCidr, viaIP string) error {
	simlog.WithFields(map[string]interface{}{"node": onNode, "dest": destCidr, "via": viaIP}).Debug("stub backend: clear static route")
	return nil
}

func (b *StubBackend) SetDefaultRoute(ctx context.Context, onNode, viaIP string) error {
	simlog.WithFields(map[string]interface{}{"node": onNode, "via": viaIP}).Debug("stub backend: set default route")
	return nil
}

func (b *StubBackend) LinkState(ctx context.Context, a, b2 string) (upA, upB bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, ok := b.up[linkKey(a, b2)]
	if !ok {
		return false, false, fmt.Errorf("stub backend: no such link %s-%s", a, b2)
	}
	if b.flake > 0 && b.rng.Float64() < b.flake {
		return !state, !state, nil
	}
	return state, state, nil
}
