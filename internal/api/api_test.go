package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leosat-network/leosim/internal/backend"
	"github.com/leosat-network/leosim/internal/ipalloc"
	"github.com/leosat-network/leosim/internal/runtime"
	"github.com/leosat-network/leosim/internal/topo"
)

func newTestServer(t *testing.T) *Server {
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
	for _, e := range g.Edges() {
		if e.Ground {
			continue
		}
		if err := be.AddLink(context.Background(), e.Node1, e.Node2, "0.0.0.0/30", "0.0.0.0/30"); err != nil {
			t.Fatalf("seeding backend link: %v", err)
		}
	}
	rt := runtime.New(g, alloc, be)
	return New(rt, nil)
}

func do(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var r *http.Request
	if body != nil {
		buf, _ := json.Marshal(body)
		r = httptest.NewRequest(method, path, bytes.NewReader(buf))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp rootResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Rings != 2 || resp.PerRing != 2 {
		t.Errorf("rings/per_ring = %d/%d, want 2/2", resp.Rings, resp.PerRing)
	}
}

func TestHandleViewRouterUnknown(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/view/router/R9_9", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Error("expected an error field in the response body")
	}
}

func TestHandleViewRouterKnown(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/view/router/R0_0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var view runtime.RouterView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if view.Name != "R0_0" {
		t.Errorf("name = %s, want R0_0", view.Name)
	}
}

func TestHandleSetLinkUnknownEdge(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodPut, "/link", linkRequest{Node1Name: "R0_0", Node2Name: "R9_9", Up: false})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (error-in-body contract)", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] == "" {
		t.Error("expected an error field for an unknown edge")
	}
}

func TestHandleSetLinkOK(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodPut, "/link", linkRequest{Node1Name: "R0_0", Node2Name: "R0_1", Up: false})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "OK" {
		t.Errorf("body = %+v, want status OK", body)
	}
}

func TestHandleSetUplinks(t *testing.T) {
	s := newTestServer(t)
	req := uplinksRequest{
		GroundNode: "G_PAO",
		Uplinks:    []uplinkCandidate{{SatNode: "R0_0", Distance: 1200}},
	}
	w := do(s, http.MethodPut, "/uplinks", req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "OK" {
		t.Errorf("body = %+v, want status OK", body)
	}

	w2 := do(s, http.MethodGet, "/view/station/G_PAO", nil)
	var view runtime.StationView
	json.Unmarshal(w2.Body.Bytes(), &view)
	if len(view.Uplinks) != 1 || view.Uplinks[0].Satellite != "R0_0" {
		t.Errorf("station uplinks = %+v, want a single R0_0 entry", view.Uplinks)
	}
}

func TestHandleStatsTotalEmpty(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/stats/total", nil)
	var body map[string]int
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["good_count"] != 0 || body["total_count"] != 0 {
		t.Errorf("body = %+v, want zeroed counters with no samples yet", body)
	}
}

func TestHandleShutdownInvokesHook(t *testing.T) {
	g, _ := topo.BuildTorus(2, 2, false)
	alloc, _ := ipalloc.Allocate(g)
	be := backend.NewStubBackend(1, 0)
	rt := runtime.New(g, alloc, be)

	called := 0
	s := New(rt, func() { called++ })
	do(s, http.MethodGet, "/shutdown", nil)
	do(s, http.MethodGet, "/shutdown", nil)
	if called != 2 {
		t.Errorf("shutdown hook called %d times, want 2 (idempotent, not deduped by the server)", called)
	}
}
