// Package config loads the deployment description shared by the master,
// the workers and the reducer. The worker count is fixed by the length of
// the workers list and is not renegotiated at runtime.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"booking/utils"
)

const (
	DefaultMaxFrameBytes = 16 << 20
	DefaultDialTimeout   = 2 * time.Second
	DefaultRoundTimeout  = 10 * time.Second
)

type Master struct {
	// ClientAddr is where clients and managers connect.
	ClientAddr string `yaml:"client_addr"`
	// ReducerAddr receives aggregated results. Defaults to ClientAddr's
	// port plus one.
	ReducerAddr string `yaml:"reducer_addr"`
	CatalogPath string `yaml:"catalog_path"`
	UserDBPath  string `yaml:"user_db_path"`
}

type Worker struct {
	Addr string `yaml:"addr"`
}

type Reducer struct {
	Addr string `yaml:"addr"`
	// MasterAddr is the master's reducer facing listener.
	MasterAddr string `yaml:"master_addr"`
	// RoundTimeout bounds how long a scatter round waits for missing
	// workers. Zero waits forever.
	RoundTimeout time.Duration `yaml:"round_timeout"`
}

type Transport struct {
	DialTimeout   time.Duration `yaml:"dial_timeout"`
	MaxFrameBytes int           `yaml:"max_frame_bytes"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Master    Master    `yaml:"master"`
	Workers   []Worker  `yaml:"workers"`
	Reducer   Reducer   `yaml:"reducer"`
	Transport Transport `yaml:"transport"`
	Logging   Logging   `yaml:"logging"`
}

// Default describes a single host deployment with three workers.
func Default() *Config {
	return &Config{
		Master: Master{
			ClientAddr:  ":5000",
			ReducerAddr: ":5001",
			CatalogPath: "hotels.json",
			UserDBPath:  "bookingdb",
		},
		Workers: []Worker{
			{Addr: "localhost:6001"},
			{Addr: "localhost:6002"},
			{Addr: "localhost:6003"},
		},
		Reducer: Reducer{
			Addr:         ":7000",
			MasterAddr:   "localhost:5001",
			RoundTimeout: DefaultRoundTimeout,
		},
		Transport: Transport{
			DialTimeout:   DefaultDialTimeout,
			MaxFrameBytes: DefaultMaxFrameBytes,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults, then validates.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// a workers list in the file replaces the default list
	cfg.Workers = nil
	cfg.Master.ReducerAddr = ""
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if len(cfg.Workers) == 0 {
		cfg.Workers = Default().Workers
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyDefaults() error {
	if c.Master.ReducerAddr == "" {
		addr, err := utils.OffsetPort(c.Master.ClientAddr, 1)
		if err != nil {
			return errors.Wrap(err, "derive master.reducer_addr")
		}
		c.Master.ReducerAddr = addr
	}
	if c.Transport.DialTimeout <= 0 {
		c.Transport.DialTimeout = DefaultDialTimeout
	}
	if c.Transport.MaxFrameBytes <= 0 {
		c.Transport.MaxFrameBytes = DefaultMaxFrameBytes
	}
	return nil
}

// Validate filters out evident errors.
func (c *Config) Validate() error {
	if len(c.Workers) == 0 {
		return errors.New("config: no workers configured")
	}
	addrs := map[string]string{
		"master.client_addr":  c.Master.ClientAddr,
		"master.reducer_addr": c.Master.ReducerAddr,
		"reducer.addr":        c.Reducer.Addr,
		"reducer.master_addr": c.Reducer.MasterAddr,
	}
	for name, addr := range addrs {
		if err := utils.CheckAddr(addr); err != nil {
			return errors.Wrapf(err, "config: %s", name)
		}
	}
	seen := map[string]bool{}
	for i, w := range c.Workers {
		if err := utils.CheckAddr(w.Addr); err != nil {
			return errors.Wrapf(err, "config: workers[%d]", i)
		}
		if seen[w.Addr] {
			return errors.Errorf("config: workers[%d]: duplicate address %s", i, w.Addr)
		}
		seen[w.Addr] = true
	}
	if c.Reducer.RoundTimeout < 0 {
		return errors.New("config: reducer.round_timeout must not be negative")
	}
	return nil
}

// NumWorkers is the fixed partition count.
func (c *Config) NumWorkers() int {
	return len(c.Workers)
}

// WorkerAddrs lists worker addresses in id order.
func (c *Config) WorkerAddrs() []string {
	out := make([]string, len(c.Workers))
	for i, w := range c.Workers {
		out[i] = w.Addr
	}
	return out
}
