// Package config loads the server configuration: a YAML file with
// environment overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts "10s" style values.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Redis configures the optional redis-backed memory adapter. An empty
// Addr selects the in-process adapter.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config is the server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// TopologyDir holds one YAML topology per agent.
	TopologyDir string `yaml:"topology_dir"`

	// RegistryFile is the YAML capability registry, hot-reloaded on change.
	RegistryFile string `yaml:"registry_file"`

	// NodeTimeout bounds a single node invocation.
	NodeTimeout Duration `yaml:"node_timeout"`

	Redis Redis `yaml:"redis"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:        ":8080",
		TopologyDir: "topologies",
		NodeTimeout: Duration(30 * time.Second),
	}
}

// Load reads a YAML config file and applies environment overrides. An
// empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.NodeTimeout <= 0 {
		cfg.NodeTimeout = Duration(30 * time.Second)
	}
	return cfg, nil
}

// applyEnv overlays ARBOR_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ARBOR_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("ARBOR_TOPOLOGY_DIR"); v != "" {
		cfg.TopologyDir = v
	}
	if v := os.Getenv("ARBOR_REGISTRY_FILE"); v != "" {
		cfg.RegistryFile = v
	}
	if v := os.Getenv("ARBOR_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ARBOR_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ARBOR_NODE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.NodeTimeout = Duration(d)
		}
	}
}
