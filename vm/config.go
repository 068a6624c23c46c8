package vm

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Tuning defaults. The zero Config is not usable; go through DefaultConfig
// or LoadConfig.
const (
	// DefaultArenaCapacity is the initial capacity of each arena store.
	DefaultArenaCapacity = 128
	// DefaultStackCapacity is the initial operand stack capacity.
	DefaultStackCapacity = 1024
)

// Config carries runtime tuning, loadable from an oriole.toml file.
type Config struct {
	Arena ArenaConfig `toml:"arena"`
	GC    GCConfig    `toml:"gc"`
	Stack StackConfig `toml:"stack"`
}

// ArenaConfig tunes the arena stores.
type ArenaConfig struct {
	Capacity int `toml:"capacity"`
}

// GCConfig tunes cycle collection.
type GCConfig struct {
	// Interval between background collection passes, e.g. "30s".
	Interval duration `toml:"interval"`
	// Background disables the collection goroutine when false; Collect
	// can still be called manually.
	Background bool `toml:"background"`
}

// StackConfig tunes operand stacks.
type StackConfig struct {
	Capacity int `toml:"capacity"`
}

// duration lets toml parse Go duration strings.
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// ArenaCapacity returns the configured arena capacity, defaulted.
func (c Config) ArenaCapacity() int {
	if c.Arena.Capacity <= 0 {
		return DefaultArenaCapacity
	}
	return c.Arena.Capacity
}

// StackCapacity returns the configured stack capacity, defaulted.
func (c Config) StackCapacity() int {
	if c.Stack.Capacity <= 0 {
		return DefaultStackCapacity
	}
	return c.Stack.Capacity
}

// GCInterval returns the configured collection interval, defaulted.
func (c Config) GCInterval() time.Duration {
	if c.GC.Interval.Duration <= 0 {
		return DefaultGCInterval
	}
	return c.GC.Interval.Duration
}

// DefaultConfig returns the built-in tuning.
func DefaultConfig() Config {
	return Config{
		Arena: ArenaConfig{Capacity: DefaultArenaCapacity},
		GC:    GCConfig{Interval: duration{DefaultGCInterval}, Background: true},
		Stack: StackConfig{Capacity: DefaultStackCapacity},
	}
}

// LoadConfig parses a toml config file. Missing fields keep their
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return cfg, nil
}
