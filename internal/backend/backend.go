// Package backend defines the small collaborator interface the core
// depends on to apply link-layer mutations, and a no-op stub satisfying
// it for running without an emulation host.
//
// Grounded on the teacher's collaborator-interface convention (e.g.
// pkg/audit.Logger: a handful of total operations behind an interface,
// with one concrete implementation doing the real work and callers
// coded only against the interface).
package backend

import "context"

// Backend is the link-layer collaborator SimRuntime mutates through.
// Every method is total over its inputs — callers are responsible for
// validating names/edges exist before calling; Backend itself reports
// failures as plain errors, which callers wrap as simerr.BackendFailureError.
type Backend interface {
	// ConfigureLink sets the admin state of an existing edge between a
	// and b.
	ConfigureLink(ctx context.Context, a, b string, up bool) error

	// AddLink creates a new link between a and b with the given
	// per-endpoint interface addresses (CIDR notation, e.g. "10.15.0.5/30").
	AddLink(ctx context.Context, a, b, ipA, ipB string) error

	// RemoveLink tears down an existing link between a and b.
	RemoveLink(ctx context.Context, a, b string) error

	// SetStaticRoute installs a static route on node onNode for destCidr
	// via viaIP.
	SetStaticRoute(ctx context.Context, onNode, destCidr, viaIP string) error

	// ClearStaticRoute removes a previously installed static route.
	ClearStaticRoute(ctx context.Context, onNode, destCidr, viaIP string) error

	// SetDefaultRoute installs or replaces onNode's default route via viaIP.
	SetDefaultRoute(ctx context.Context, onNode, viaIP string) error

	// LinkState reports the admin state of each side of the a-b link.
	LinkState(ctx context.Context, a, b string) (upA, upB bool, err error)
}
