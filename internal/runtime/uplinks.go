package runtime

import (
	"context"

	"github.com/leosat-network/leosim/internal/simerr"
	"github.com/leosat-network/leosim/internal/simlog"
)

// Candidate is a ground-station-visible satellite the geo-loop has
// proposed as an uplink, with its current line-of-sight distance.
type Candidate struct {
	Satellite string
	Distance  float64
}

// SetStationUplinks atomically diffs station's current uplink set against
// wanted and applies the difference: removals (and their pool releases)
// always precede additions in the same call, per spec.md §4.6 step 4.
// Records no per-change event — uplink churn is high-volume and only
// observable via GetStation — but is itself one atomic critical section.
func (r *SimRuntime) SetStationUplinks(ctx context.Context, station string, wanted []Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[station]
	if !ok {
		return simerr.NewNotFound("station", station)
	}

	distanceBySat := make(map[string]float64, len(wanted))
	order := make([]string, 0, len(wanted))
	for _, c := range wanted {
		distanceBySat[c.Satellite] = c.Distance
		order = append(order, c.Satellite)
	}

	for sat, up := range st.Uplinks {
		if _, stillWanted := distanceBySat[sat]; stillWanted {
			continue
		}
		if err := r.removeUplink(ctx, station, st, sat, up); err != nil {
			simlog.WithField("station", station).WithField("sat", sat).Warn("uplink removal failed: " + err.Error())
		}
	}

	for _, sat := range order {
		if _, exists := st.Uplinks[sat]; exists {
			continue
		}
		if err := r.addUplink(ctx, station, st, sat, distanceBySat[sat]); err != nil {
			// Pool exhaustion and backend failures are no-ops here, per
			// spec.md §4.6: "Adding an uplink fails gracefully (no-op,
			// logged) if the station's IP pool is exhausted."
			simlog.WithField("station", station).WithField("sat", sat).Warn("uplink add failed: " + err.Error())
		}
	}

	r.updateDefaultRoute(ctx, station, st)
	return nil
}

func (r *SimRuntime) addUplink(ctx context.Context, station string, st *Station, sat string, distance float64) error {
	entry, err := r.alloc.LeaseFromPool(station)
	if err != nil {
		return err
	}

	stationCIDR := entry.IP1.String() + "/30"
	satCIDR := entry.IP2.String() + "/30"
	if err := r.backend.AddLink(ctx, station, sat, stationCIDR, satCIDR); err != nil {
		r.alloc.ReleaseToPool(station, entry.Network)
		return simerr.NewBackendFailure("AddUplink", err)
	}

	if loopback, ok := r.alloc.Loopbacks[station]; ok {
		if err := r.backend.SetStaticRoute(ctx, sat, loopback.String(), entry.IP1.String()); err != nil {
			simlog.WithField("station", station).WithField("sat", sat).Warn("set static route failed: " + err.Error())
		}
	}

	r.graph.AddEdge(station, sat, false, true)
	st.Uplinks[sat] = &Uplink{Satellite: sat, Distance: distance, PoolEntry: entry}
	return nil
}

func (r *SimRuntime) removeUplink(ctx context.Context, station string, st *Station, sat string, up *Uplink) error {
	if up.PoolEntry != nil {
		if loopback, ok := r.alloc.Loopbacks[station]; ok {
			if err := r.backend.ClearStaticRoute(ctx, sat, loopback.String(), up.PoolEntry.IP1.String()); err != nil {
				simlog.WithField("station", station).WithField("sat", sat).Warn("clear static route failed: " + err.Error())
			}
		}
	}
	if err := r.backend.RemoveLink(ctx, station, sat); err != nil {
		return simerr.NewBackendFailure("RemoveUplink", err)
	}
	if up.PoolEntry != nil {
		r.alloc.ReleaseToPool(station, up.PoolEntry.Network)
	}
	r.graph.RemoveEdge(station, sat)
	delete(st.Uplinks, sat)
	return nil
}

// updateDefaultRoute picks the minimum-distance remaining uplink,
// iterating candidates in satellite-name order so equal-distance ties
// resolve deterministically to "first in iteration order" per spec.md
// §4.6 — and, per the strict less-than tie-break (spec.md §9), a tied
// incumbent default is never displaced.
func (r *SimRuntime) updateDefaultRoute(ctx context.Context, station string, st *Station) {
	var best, current *Uplink
	for _, sat := range sortedKeys(st.Uplinks) {
		up := st.Uplinks[sat]
		if up.Default {
			current = up
		}
		if best == nil || up.Distance < best.Distance {
			best = up
		}
	}

	if best == nil {
		if current != nil {
			current.Default = false
		}
		return
	}
	if current != nil && !(best.Distance < current.Distance) {
		return
	}

	for _, up := range st.Uplinks {
		up.Default = false
	}
	best.Default = true

	if best.PoolEntry != nil {
		if err := r.backend.SetDefaultRoute(ctx, station, best.PoolEntry.IP2.String()); err != nil {
			simlog.WithField("station", station).WithField("sat", best.Satellite).Warn("set default route failed: " + err.Error())
		}
	}
}
