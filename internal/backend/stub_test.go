package backend

import (
	"context"
	"testing"
)

func TestStubBackendConfigureAndQuery(t *testing.T) {
	b := NewStubBackend(1, 0)
	ctx := context.Background()

	if err := b.AddLink(ctx, "R0_0", "R0_1", "10.15.0.5/30", "10.15.0.6/30"); err != nil {
		t.Fatalf("AddLink error: %v", err)
	}
	upA, upB, err := b.LinkState(ctx, "R0_0", "R0_1")
	if err != nil {
		t.Fatalf("LinkState error: %v", err)
	}
	if !upA || !upB {
		t.Errorf("newly added link should be up on both sides, got %v/%v", upA, upB)
	}

	if err := b.ConfigureLink(ctx, "R0_0", "R0_1", false); err != nil {
		t.Fatalf("ConfigureLink error: %v", err)
	}
	upA, upB, err = b.LinkState(ctx, "R0_0", "R0_1")
	if err != nil {
		t.Fatalf("LinkState error: %v", err)
	}
	if upA || upB {
		t.Errorf("configured-down link should report down, got %v/%v", upA, upB)
	}
}

func TestStubBackendRemoveLink(t *testing.T) {
	b := NewStubBackend(1, 0)
	ctx := context.Background()
	if err := b.AddLink(ctx, "A", "B", "10.0.0.1/30", "10.0.0.2/30"); err != nil {
		t.Fatalf("AddLink error: %v", err)
	}
	if err := b.RemoveLink(ctx, "B", "A"); err != nil {
		t.Fatalf("RemoveLink error: %v", err)
	}
	if _, _, err := b.LinkState(ctx, "A", "B"); err == nil {
		t.Error("expected error querying a removed link")
	}
}

func TestStubBackendNoFlakeIsDeterministic(t *testing.T) {
	b := NewStubBackend(42, 0)
	ctx := context.Background()
	if err := b.AddLink(ctx, "A", "B", "10.0.0.1/30", "10.0.0.2/30"); err != nil {
		t.Fatalf("AddLink error: %v", err)
	}
	for i := 0; i < 20; i++ {
		upA, upB, err := b.LinkState(ctx, "A", "B")
		if err != nil {
			t.Fatalf("LinkState error: %v", err)
		}
		if !upA || !upB {
			t.Fatalf("flake=0 backend must always report the last-set state")
		}
	}
}

func TestStubBackendRouteOpsAreNoOps(t *testing.T) {
	b := NewStubBackend(1, 0)
	ctx := context.Background()
	if err := b.SetStaticRoute(ctx, "R0_0", "10.1.0.1/32", "10.15.0.5"); err != nil {
		t.Fatalf("SetStaticRoute error: %v", err)
	}
	if err := b.ClearStaticRoute(ctx, "R0_0", "10.1.0.1/32", "10.15.0.5"); err != nil {
		t.Fatalf("ClearStaticRoute error: %v", err)
	}
	if err := b.SetDefaultRoute(ctx, "R0_0", "10.15.0.5"); err != nil {
		t.Fatalf("SetDefaultRoute error: %v", err)
	}
}

var _ Backend = (*StubBackend)(nil)
