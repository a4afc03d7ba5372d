// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime configuration: typed YAML-backed Config plus a thread-safe
// key/value store with reload propagation.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/momentics/hioload-page/api"
	"gopkg.in/yaml.v3"
)

// Config is the file-level configuration of a page process.
type Config struct {
	Listen     string `yaml:"listen"`
	LogLevel   string `yaml:"log_level"`
	CPUPinning bool   `yaml:"cpu_pinning"`
	// Cores overrides detected CPU count for unused-core accounting. 0 detects.
	Cores     int  `yaml:"cores"`
	NoDelay   bool `yaml:"no_delay"`
	Backlog   int  `yaml:"backlog"`
	ChunkSize int  `yaml:"chunk_size"`
	MaxEvents int  `yaml:"max_events"`
	Clients   int  `yaml:"clients"`

	// FaultLogWindow and FaultLogBurst bound how many repeated fault
	// lines of one kind are logged per window.
	FaultLogWindow time.Duration `yaml:"fault_log_window"`
	FaultLogBurst  int           `yaml:"fault_log_burst"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:         "127.0.0.1:21135",
		LogLevel:       "info",
		Backlog:        128,
		ChunkSize:      8 * 1024,
		MaxEvents:      128,
		Clients:        1,
		FaultLogWindow: time.Second,
		FaultLogBurst:  5,
	}
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	invalid := func(field string, value any) error {
		return api.NewError(api.ErrCodeInvalidArgument, "invalid config value").
			WithContext("field", field).
			WithContext("value", value)
	}
	switch {
	case c.Listen == "":
		return invalid("listen", c.Listen)
	case c.Cores < 0:
		return invalid("cores", c.Cores)
	case c.Backlog <= 0:
		return invalid("backlog", c.Backlog)
	case c.ChunkSize <= 0:
		return invalid("chunk_size", c.ChunkSize)
	case c.MaxEvents <= 0:
		return invalid("max_events", c.MaxEvents)
	case c.Clients <= 0:
		return invalid("clients", c.Clients)
	case c.FaultLogWindow <= 0:
		return invalid("fault_log_window", c.FaultLogWindow)
	case c.FaultLogBurst <= 0:
		return invalid("fault_log_burst", c.FaultLogBurst)
	}
	return nil
}

// Map flattens the config into store keys.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"listen":           c.Listen,
		"log_level":        c.LogLevel,
		"cpu_pinning":      c.CPUPinning,
		"cores":            c.Cores,
		"no_delay":         c.NoDelay,
		"backlog":          c.Backlog,
		"chunk_size":       c.ChunkSize,
		"max_events":       c.MaxEvents,
		"clients":          c.Clients,
		"fault_log_window": c.FaultLogWindow.String(),
		"fault_log_burst":  c.FaultLogBurst,
	}
}

// ParseConfig decodes YAML over the defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns one value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// SetConfig merges new values and notifies listeners synchronously, after
// the store lock is released.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Apply stores every field of cfg.
func (cs *ConfigStore) Apply(cfg *Config) {
	cs.SetConfig(cfg.Map())
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
