package runtime

import (
	"sort"
	"time"
)

// durationString renders the time since start the way original_source's
// NetxContext.run_time() is displayed: Go's default Duration.String().
func durationString(start time.Time) string {
	return time.Since(start).String()
}

// sortedKeys returns the keys of an uplink map, sorted, for deterministic
// read-view iteration.
func sortedKeys(m map[string]*Uplink) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
