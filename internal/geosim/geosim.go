// Package geosim runs the fixed-cadence geo-simulation loop: at each tick
// it propagates every satellite, evaluates inter-plane link visibility,
// recomputes each ground station's uplink candidates, and applies the
// diff to the control plane.
//
// Grounded on original_source/mnet/driver.py's background_thread (a
// dedicated goroutine sleeping a fixed period between cycles, each cycle
// acquiring the shared context), generalized from its single sample_stats
// call to the full propagate/evaluate/diff sequence spec.md §4.6 names.
package geosim

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/orbit"
	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/simlog"
	"github.com/leosat-network/leosim/internal/topo"
)

// interPlaneMarginDeg is the degrees subtracted from inclination to get
// the inter-plane-link latitude threshold (spec.md §4.6 step 2).
const interPlaneMarginDeg = 2.0

// boundingBoxDeg is the cheap pre-filter window (spec.md §4.6 step 3)
// applied to a satellite's subpoint before the expensive elevation-angle
// computation.
const boundingBoxDeg = 20.0

// firstCatalogNumber is an arbitrary starting point for the geo-loop's
// injected catalog-number sequence, clear of the 1-9999 "real" NORAD
// catalog range reserved for skyfield-sourced objects elsewhere in the
// retrieval pack's original_source material.
const firstCatalogNumber = 10000

// Loop is the geo-simulation driver: one instance owns the tick cadence,
// the per-satellite catalog-number assignment, and the prior tick's
// inter-plane-link state used to detect transitions.
type Loop struct {
	rt          *runtime.SimRuntime
	tickPeriod  time.Duration
	minAltitude float64

	catalog map[string]int
	seq     *orbit.CatalogSequence

	lastInterPlaneOK map[string]bool
	lastTick         time.Time
}

// New builds a Loop driving rt at tickPeriod, evaluating ground uplinks
// against minAltitude degrees.
func New(rt *runtime.SimRuntime, tickPeriod time.Duration, minAltitude float64) *Loop {
	return &Loop{
		rt:               rt,
		tickPeriod:       tickPeriod,
		minAltitude:      minAltitude,
		catalog:          make(map[string]int),
		seq:              orbit.NewCatalogSequence(firstCatalogNumber),
		lastInterPlaneOK: make(map[string]bool),
	}
}

// Run executes ticks until ctx is canceled. Each tick sleeps until the
// wall-clock arrival of its target timestamp — never relative to the
// previous sleep's return — and a tick whose computation overruns
// tickPeriod skips the sleep and proceeds immediately, per spec.md §4.6.
func (l *Loop) Run(ctx context.Context) error {
	l.lastTick = time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		target := l.lastTick.Add(l.tickPeriod)
		l.step(ctx, target)
		l.lastTick = target

		wait := time.Until(target)
		if wait <= 0 {
			simlog.WithField("overrun_by", (-wait).String()).Warn("geo-loop tick overran its period, skipping sleep")
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type satSnapshot struct {
	name  string
	orbit topo.OrbitParams
}

type edgeSnapshot struct {
	node1, node2 string
}

type stationSnapshot struct {
	name     string
	lat, lon float64
}

type subpoint struct {
	lat, lon, height float64
}

// step runs one full tick: propagate, inter-plane evaluation, uplink
// evaluation, diff-and-apply. It reads a consistent snapshot of the
// graph under SimRuntime's lock, then does all computation and mutation
// outside it — SimRuntime's own methods (SetLinkState, SetStationUplinks)
// each acquire the lock for their own duration, so step must never call
// them from inside a WithGraph closure.
func (l *Loop) step(ctx context.Context, t time.Time) {
	var sats []satSnapshot
	var interRingEdges []edgeSnapshot
	var stations []stationSnapshot

	l.rt.WithGraph(func(g *topo.Graph, alloc *ipalloc.Allocation) {
		for _, name := range g.Satellites() {
			if n, ok := g.Node(name); ok {
				sats = append(sats, satSnapshot{name: name, orbit: n.Orbit})
			}
		}
		for _, e := range g.Edges() {
			if e.InterRing && !e.Ground {
				interRingEdges = append(interRingEdges, edgeSnapshot{node1: e.Node1, node2: e.Node2})
			}
		}
		for _, name := range g.GroundStations() {
			if n, ok := g.Node(name); ok {
				stations = append(stations, stationSnapshot{name: name, lat: n.Lat, lon: n.Lon})
			}
		}
	})

	positions := make(map[string]orbit.ECEF, len(sats))
	subpoints := make(map[string]subpoint, len(sats))
	interPlaneOK := make(map[string]bool, len(sats))

	for _, s := range sats {
		catalogNumber, known := l.catalog[s.name]
		if !known {
			catalogNumber = l.seq.Next()
			l.catalog[s.name] = catalogNumber
		}
		data := orbit.OrbitData{
			CatalogNumber:  catalogNumber,
			RightAscension: s.orbit.RightAscension,
			Inclination:    s.orbit.Inclination,
			MeanAnomaly:    s.orbit.MeanAnomaly,
		}
		pos := orbit.Propagate(data, t)
		if pos.HasNaN() {
			simlog.WithField("satellite", s.name).Warn("propagate produced NaN position, skipping this tick")
			continue
		}
		lat, lon, height := orbit.Subpoint(pos)
		positions[s.name] = pos
		subpoints[s.name] = subpoint{lat: lat, lon: lon, height: height}
		interPlaneOK[s.name] = math.Abs(lat) <= s.orbit.Inclination-interPlaneMarginDeg
	}

	l.applyInterPlaneTransitions(ctx, sats, interRingEdges, interPlaneOK)
	l.lastInterPlaneOK = interPlaneOK

	for _, st := range stations {
		candidates := l.uplinkCandidates(sats, positions, subpoints, st)
		if err := l.rt.SetStationUplinks(ctx, st.name, candidates); err != nil {
			simlog.WithField("station", st.name).Warn("set station uplinks failed: " + err.Error())
		}
	}
}

// applyInterPlaneTransitions emits SetLinkState for every inter-ring edge
// incident to a satellite whose inter_plane_ok value changed since the
// prior tick. Satellites are visited in sorted-name order so two
// transitioning endpoints of the same edge apply deterministically.
func (l *Loop) applyInterPlaneTransitions(ctx context.Context, sats []satSnapshot, edges []edgeSnapshot, current map[string]bool) {
	incident := make(map[string][]edgeSnapshot)
	for _, e := range edges {
		incident[e.node1] = append(incident[e.node1], e)
		incident[e.node2] = append(incident[e.node2], e)
	}

	names := make([]string, 0, len(sats))
	for _, s := range sats {
		names = append(names, s.name)
	}
	sort.Strings(names)

	for _, name := range names {
		newVal, ok := current[name]
		if !ok {
			continue
		}
		prior, known := l.lastInterPlaneOK[name]
		if known && prior == newVal {
			continue
		}
		for _, e := range incident[name] {
			if err := l.rt.SetLinkState(ctx, e.node1, e.node2, newVal); err != nil {
				simlog.WithField("edge", topo.EdgeKey(e.node1, e.node2)).Warn("set link state failed: " + err.Error())
			}
		}
	}
}

// uplinkCandidates applies the bounding-box pre-filter and elevation-
// angle test (spec.md §4.6 step 3), returning the station's new
// candidate list in satellite-name order.
func (l *Loop) uplinkCandidates(sats []satSnapshot, positions map[string]orbit.ECEF, subpoints map[string]subpoint, st stationSnapshot) []runtime.Candidate {
	var out []runtime.Candidate
	for _, s := range sats {
		sub, ok := subpoints[s.name]
		if !ok {
			continue
		}
		if !withinBoundingBox(st.lat, st.lon, sub.lat, sub.lon) {
			continue
		}
		elevation, distance := orbit.Elevation(positions[s.name], st.lat, st.lon, 0)
		if elevation >= l.minAltitude {
			out = append(out, runtime.Candidate{Satellite: s.name, Distance: distance})
		}
	}
	return out
}

func withinBoundingBox(stationLat, stationLon, satLat, satLon float64) bool {
	if math.Abs(satLat-stationLat) > boundingBoxDeg {
		return false
	}
	lonDiff := math.Abs(satLon - stationLon)
	if lonDiff > 180 {
		lonDiff = 360 - lonDiff
	}
	return lonDiff <= boundingBoxDeg
}
