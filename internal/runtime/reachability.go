package runtime

import (
	"context"

	"github.com/leosat-network/leosim/internal/simerr"
)

// Reachable reports whether to is reachable from from by breadth-first
// search over currently-up edges — the control plane's stand-in for an
// actual packet path, since internal/backend is a pure link-admin-state
// abstraction with no data-plane to send a real probe over. The sampler
// (internal/sampler) uses this in place of original_source/mnet/
// pmonitor.py's subprocess ping, each call bounded by the caller's ctx
// deadline.
func (r *SimRuntime) Reachable(ctx context.Context, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.graph.Node(from); !ok {
		return false, simerr.NewNotFound("node", from)
	}
	if _, ok := r.graph.Node(to); !ok {
		return false, simerr.NewNotFound("node", to)
	}
	if from == to {
		return true, nil
	}

	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		cur := queue[0]
		queue = queue[1:]
		for _, n := range r.graph.Neighbors(cur) {
			if visited[n] {
				continue
			}
			edge, ok := r.graph.Edge(cur, n)
			if !ok || !edge.Up {
				continue
			}
			if n == to {
				return true, nil
			}
			visited[n] = true
			queue = append(queue, n)
		}
	}
	return false, nil
}
