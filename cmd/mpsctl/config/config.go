// Package config loads mpsctl's configuration from a YAML file, the same
// Config-struct-plus-LoadConfig shape the teacher's client config package
// uses for ClientConfig.
package config

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
	"gopkg.in/yaml.v3"
)

// Config is mpsctl's top-level configuration.
type Config struct {
	// Grain is the arena's allocation grain, in bytes.
	Grain uint64 `yaml:"grain"`
	// CommitLimit is the soft ceiling on committed memory, in bytes. Zero
	// means unlimited.
	CommitLimit uint64 `yaml:"commit_limit"`
	// PollInterval is how often the driver calls Arena.Poll.
	PollInterval time.Duration `yaml:"poll_interval"`
	// AllocThreshold is the mutator-allocation byte count that triggers
	// starting a new incremental trace.
	AllocThreshold float64 `yaml:"alloc_threshold"`
	// MaxPollSlice bounds a single ArenaPoll call's working time.
	MaxPollSlice time.Duration `yaml:"max_poll_slice"`
	// MetricsAddr, if set, is the address mpsctl serves /metrics on.
	MetricsAddr string `yaml:"metrics_addr"`
	// ConsoleAddr, if set, is the address mpsctl serves its describe
	// websocket console on.
	ConsoleAddr string `yaml:"console_addr"`
}

func (c *Config) validate() error {
	if c.Grain == 0 {
		return fmt.Errorf("config: grain must be nonzero")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: poll_interval must be positive")
	}
	return nil
}

// Default returns a Config with conservative defaults, used when no
// config file is given. Grain defaults to the host's native page size
// (falling back to 4096 if it cannot be determined), so a grain-aligned
// segment request lines up with what the OS would actually commit.
func Default() *Config {
	grain := uint64(unix.Getpagesize())
	if grain == 0 {
		grain = 4096
	}
	return &Config{
		Grain:          grain,
		PollInterval:   50 * time.Millisecond,
		AllocThreshold: 1 << 20,
		MaxPollSlice:   5 * time.Millisecond,
	}
}

// LoadConfig reads and validates a Config from path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
