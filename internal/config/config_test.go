package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
network:
  rings: 6
  routers: 6
  ground_stations: true
monitor:
  stable_monitors: true
physical:
  min_altitude: 35
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Network.Rings != 6 || c.Network.Routers != 6 {
		t.Errorf("network dims = %d/%d, want 6/6", c.Network.Rings, c.Network.Routers)
	}
	if !c.Network.GroundStations {
		t.Error("ground_stations should be true")
	}
	if c.Physical.MinAltitude != 35 {
		t.Errorf("min_altitude = %v, want 35", c.Physical.MinAltitude)
	}
	if c.Physical.TimeSlice.Seconds() != 10 {
		t.Errorf("time_slice default = %v, want 10s", c.Physical.TimeSlice)
	}
}

func TestLoadRangeViolationsAccumulate(t *testing.T) {
	path := writeConfig(t, `
network:
  rings: 0
  routers: 99
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "rings") || !strings.Contains(msg, "routers") {
		t.Errorf("expected both violations in combined message, got %q", msg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "network: [this is not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}
