// Package config describes a complete machine setup for the rvsim command.
// Configurations are read from YAML (.yaml, .yml) or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// DefaultMemorySize is large enough for ELF programs with a stack and BSS.
const DefaultMemorySize uint64 = 1 << 20

// DefaultUARTBase is where the UART is mapped when enabled.
const DefaultUARTBase uint64 = 0x1000_0000

// UARTConfig controls the optional UART device.
type UARTConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Base    uint64 `json:"base" yaml:"base"`
}

// TimingConfig controls the optional timing model.
type TimingConfig struct {
	Enabled bool                  `json:"enabled" yaml:"enabled"`
	Latency *latency.TimingConfig `json:"latency,omitempty" yaml:"latency,omitempty"`
	L1I     *cache.Config         `json:"l1i,omitempty" yaml:"l1i,omitempty"`
	L1D     *cache.Config         `json:"l1d,omitempty" yaml:"l1d,omitempty"`
}

// Config is a machine configuration.
type Config struct {
	XLEN            int    `json:"xlen" yaml:"xlen"`
	MemoryBase      uint64 `json:"memory_base" yaml:"memory_base"`
	MemorySize      uint64 `json:"memory_size" yaml:"memory_size"`
	MaxInstructions uint64 `json:"max_instructions" yaml:"max_instructions"`
	HaltOnZeroPC    bool   `json:"halt_on_zero_pc" yaml:"halt_on_zero_pc"`

	// HaltOnECall stops at the first ECALL. It is ignored when Syscalls is
	// set.
	HaltOnECall bool `json:"halt_on_ecall" yaml:"halt_on_ecall"`

	// Syscalls proxies ECALL to the host through the Linux RISC-V ABI.
	Syscalls bool `json:"syscalls" yaml:"syscalls"`

	// HostFiles lets guest openat reach the host file system.
	HostFiles bool `json:"host_files" yaml:"host_files"`

	UART   UARTConfig   `json:"uart" yaml:"uart"`
	Timing TimingConfig `json:"timing" yaml:"timing"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		XLEN:         64,
		MemoryBase:   emu.DefaultMemoryBase,
		MemorySize:   DefaultMemorySize,
		HaltOnZeroPC: true,
		UART: UARTConfig{
			Base: DefaultUARTBase,
		},
		Timing: TimingConfig{
			Latency: latency.DefaultTimingConfig(),
		},
	}
}

// Load reads a configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if c.Timing.Latency == nil {
		c.Timing.Latency = latency.DefaultTimingConfig()
	}

	logrus.WithField("path", path).Debug("loaded config")

	return c, nil
}

// Save writes the configuration in the format implied by the extension of
// path.
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects configurations the emulator cannot run.
func (c *Config) Validate() error {
	xlen, err := insts.ParseXLEN(c.XLEN)
	if err != nil {
		return err
	}
	if c.MemorySize == 0 {
		return fmt.Errorf("memory_size must be > 0")
	}

	last := c.MemoryBase + c.MemorySize - 1
	if last < c.MemoryBase || last&xlen.Mask() != last {
		return fmt.Errorf("memory window 0x%X+0x%X does not fit in %v addresses",
			c.MemoryBase, c.MemorySize, xlen)
	}

	if c.UART.Enabled && c.UART.Base < c.MemoryBase+c.MemorySize && c.UART.Base+emu.UARTSize > c.MemoryBase {
		return fmt.Errorf("uart at 0x%X overlaps memory", c.UART.Base)
	}

	if c.Timing.Latency != nil {
		if err := c.Timing.Latency.Validate(); err != nil {
			return fmt.Errorf("invalid timing latency: %w", err)
		}
	}
	if c.Timing.L1I != nil {
		if err := c.Timing.L1I.Validate(); err != nil {
			return fmt.Errorf("invalid l1i: %w", err)
		}
	}
	if c.Timing.L1D != nil {
		if err := c.Timing.L1D.Validate(); err != nil {
			return fmt.Errorf("invalid l1d: %w", err)
		}
	}

	return nil
}

// MachineXLEN returns the configured width. Call Validate first.
func (c *Config) MachineXLEN() insts.XLEN {
	return insts.XLEN(c.XLEN)
}

// EmulatorOptions translates the machine fields into emulator options.
func (c *Config) EmulatorOptions() []emu.EmulatorOption {
	opts := []emu.EmulatorOption{
		emu.WithXLEN(c.MachineXLEN()),
		emu.WithMemory(c.MemoryBase, c.MemorySize),
		emu.WithMaxInstructions(c.MaxInstructions),
		emu.WithHaltOnZeroPC(c.HaltOnZeroPC),
	}
	if c.UART.Enabled {
		opts = append(opts, emu.WithUART(c.UART.Base))
	}
	if c.HaltOnECall && !c.Syscalls {
		opts = append(opts, emu.WithSystemHandler(emu.HaltOnECallHandler{}))
	}
	return opts
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
