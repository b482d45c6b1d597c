/*
file: lucidkv/internal/config/config.go

Config is the typed, YAML-decoded settings tree spec.md §6 describes,
generalizing the teacher's hand-rolled redis.conf line parser (conf.go)
into a structured gopkg.in/yaml.v3 document -- the same config-file
shape the orchestration example's deployment manifests use.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// clusterSlotCount mirrors internal/cluster.SlotCount; duplicated here
// rather than imported so this package stays free of internal/cluster,
// which in turn has no reason to know about YAML config shapes.
const clusterSlotCount = 16384

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Slowlog SlowlogConfig `yaml:"slowlog"`
	Cluster ClusterConfig `yaml:"cluster"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	RequirePass   string `yaml:"requirepass"`
	MetricsAddr   string `yaml:"metrics_addr"` // "" disables the /metrics endpoint
}

type StorageConfig struct {
	Engine    string `yaml:"engine"` // "memory" or "persistent"
	DataDir   string `yaml:"data_dir"`
	Databases int    `yaml:"databases"`
	SyncMode  string `yaml:"sync_mode"` // "always", "everysec", "never"
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type SlowlogConfig struct {
	LogSlowerThanMicros int64 `yaml:"log_slower_than_micros"`
	MaxLen              int   `yaml:"max_len"`
}

type ClusterConfig struct {
	Enabled        bool     `yaml:"enabled"`
	NodeID         string   `yaml:"node_id"`
	BindAddr       string   `yaml:"bind_addr"`
	BusAddr        string   `yaml:"bus_addr"`
	IsBootstrap    bool     `yaml:"is_bootstrap"`
	InitialMembers []string `yaml:"initial_members"`
	RaftDataDir    string   `yaml:"raft_data_dir"`

	// DataGroupID is the raft group (1..G) this node's data group
	// participates in -- group 0 is always the meta group, so this must
	// be positive. Several nodes across a deployment share the same
	// DataGroupID when they replicate the same slot range.
	DataGroupID int `yaml:"data_group_id"`

	// SlotStart/SlotEnd (inclusive, 0..16383) is the slot range this
	// node's data group owns at bootstrap. Only consulted when
	// IsBootstrap is set: the bootstrapping node submits the
	// corresponding assign_slot_range entry to the meta group's
	// replicated log once it is elected leader, so every node's Router
	// -- not just this one's in-process copy -- starts with a real
	// ownership table instead of Go's zero-valued "everything belongs
	// to group 0" default.
	SlotStart int `yaml:"slot_start"`
	SlotEnd   int `yaml:"slot_end"`
}

// Default returns the settings a bare `lucidkv-server serve` run uses
// when no config file is given: standalone, in-memory, port 6379.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "0.0.0.0", Port: 6379},
		Storage: StorageConfig{Engine: "memory", Databases: 16, SyncMode: "everysec"},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Slowlog: SlowlogConfig{LogSlowerThanMicros: 10000, MaxLen: 128},
	}
}

// Load reads and decodes the YAML file at path over the defaults, so a
// config file only needs to specify the fields it overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Storage.Databases <= 0 {
		return fmt.Errorf("storage.databases must be positive")
	}
	switch c.Storage.Engine {
	case "memory", "persistent":
	default:
		return fmt.Errorf("storage.engine must be 'memory' or 'persistent', got %q", c.Storage.Engine)
	}
	if c.Storage.Engine == "persistent" && c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required when storage.engine is 'persistent'")
	}
	if c.Cluster.Enabled {
		if c.Cluster.NodeID == "" {
			return fmt.Errorf("cluster.node_id is required when cluster.enabled")
		}
		if c.Cluster.BindAddr == "" || c.Cluster.BusAddr == "" {
			return fmt.Errorf("cluster.bind_addr and cluster.bus_addr are required when cluster.enabled")
		}
		if c.Cluster.DataGroupID <= 0 {
			return fmt.Errorf("cluster.data_group_id must be positive (0 is reserved for the meta group)")
		}
		if c.Cluster.SlotStart < 0 || c.Cluster.SlotEnd >= clusterSlotCount || c.Cluster.SlotStart > c.Cluster.SlotEnd {
			return fmt.Errorf("cluster.slot_start/slot_end must describe a valid range within 0..%d", clusterSlotCount-1)
		}
	}
	return nil
}

// SlowlogThreshold returns the slowlog sampling threshold as a
// time.Duration, the unit the slowlog recorder actually compares
// against.
func (c *Config) SlowlogThreshold() time.Duration {
	return time.Duration(c.Slowlog.LogSlowerThanMicros) * time.Microsecond
}
