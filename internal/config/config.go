// Package config loads the process configuration file: network topology
// parameters, monitor behavior, and physical link thresholds.
//
// Grounded on the teacher's pkg/newtest/parser.go (ParseScenario:
// os.ReadFile + yaml.Unmarshal + wrapped errors + post-parse defaulting)
// and pkg/util/errors.go's ValidationBuilder for range checking.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leosat-network/leosim/internal/simerr"
)

// Config is the full process configuration, as spec.md §6: network
// topology parameters, monitor behavior, and physical link thresholds,
// plus the ambient server/logging/runtime knobs this module adds.
type Config struct {
	Network struct {
		Rings          int  `yaml:"rings"`
		Routers        int  `yaml:"routers"`
		GroundStations bool `yaml:"ground_stations"`
	} `yaml:"network"`

	Monitor struct {
		StableMonitors   bool          `yaml:"stable_monitors"`
		ProbeTimeout     time.Duration `yaml:"probe_timeout"`
		AggregatorPeriod time.Duration `yaml:"aggregator_period"`
	} `yaml:"monitor"`

	Physical struct {
		MinAltitude float64       `yaml:"min_altitude"`
		TimeSlice   time.Duration `yaml:"time_slice"`
	} `yaml:"physical"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`

	LogLevel string `yaml:"log_level"`
}

// defaults returns a Config pre-populated with every spec-mandated
// default, applied before the YAML file's values are merged in.
func defaults() Config {
	var c Config
	c.Physical.MinAltitude = 35.0
	c.Physical.TimeSlice = 10 * time.Second
	c.Monitor.ProbeTimeout = 3 * time.Second
	c.Monitor.AggregatorPeriod = 20 * time.Second
	c.Server.ListenAddr = ":8080"
	c.Redis.Addr = "localhost:6379"
	c.LogLevel = "info"
	return c
}

// Load reads and validates the YAML config file at path. Range
// violations on rings/routers accumulate and are returned together as a
// single error, per spec.md §6 ("violations exit non-zero with a message").
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	c := defaults()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks range constraints, accumulating every violation via
// simerr.ValidationBuilder before returning.
func (c *Config) Validate() error {
	var v simerr.ValidationBuilder
	v.Addf(c.Network.Rings >= 1 && c.Network.Rings <= 30,
		"network.rings must be in [1,30], got %d", c.Network.Rings)
	v.Addf(c.Network.Routers >= 1 && c.Network.Routers <= 30,
		"network.routers must be in [1,30], got %d", c.Network.Routers)
	v.Addf(c.Physical.MinAltitude >= 0 && c.Physical.MinAltitude <= 90,
		"physical.min_altitude must be in [0,90], got %v", c.Physical.MinAltitude)
	v.Addf(c.Physical.TimeSlice > 0,
		"physical.time_slice must be positive, got %v", c.Physical.TimeSlice)
	return v.Build()
}
