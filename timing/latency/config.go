package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different instruction classes.
type TimingConfig struct {
	// ALULatency is the execution latency for integer arithmetic, logic,
	// compare, LUI and AUIPC. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency" yaml:"alu_latency"`

	// ShiftLatency is the execution latency for shifts. Default: 1 cycle.
	ShiftLatency uint64 `json:"shift_latency" yaml:"shift_latency"`

	// BranchLatency is the base execution latency for conditional branches.
	// This does not include misprediction penalty. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency" yaml:"branch_latency"`

	// JumpLatency is the base execution latency for JAL and JALR.
	// Default: 1 cycle.
	JumpLatency uint64 `json:"jump_latency" yaml:"jump_latency"`

	// BranchMispredictPenalty is the additional cycles lost on a taken
	// branch or an indirect jump. Default: 3 cycles.
	BranchMispredictPenalty uint64 `json:"branch_mispredict_penalty" yaml:"branch_mispredict_penalty"`

	// LoadLatency is the latency for load operations assuming L1 cache hit.
	// Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency" yaml:"load_latency"`

	// StoreLatency is the latency for store operations assuming L1 cache hit.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency" yaml:"store_latency"`

	// FenceLatency is the latency for FENCE and FENCE.I. Default: 1 cycle.
	FenceLatency uint64 `json:"fence_latency" yaml:"fence_latency"`

	// SystemLatency is the latency for ECALL and EBREAK.
	// Default: 1 cycle (handling is external).
	SystemLatency uint64 `json:"system_latency" yaml:"system_latency"`

	// MemoryLatency is the penalty of an L1 miss served by main memory.
	// Default: 50 cycles.
	MemoryLatency uint64 `json:"memory_latency" yaml:"memory_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:              1,
		ShiftLatency:            1,
		BranchLatency:           1,
		JumpLatency:             1,
		BranchMispredictPenalty: 3,
		LoadLatency:             2,
		StoreLatency:            1,
		FenceLatency:            1,
		SystemLatency:           1,
		MemoryLatency:           50,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep
// their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all execution latencies are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.ShiftLatency == 0 {
		return fmt.Errorf("shift_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.JumpLatency == 0 {
		return fmt.Errorf("jump_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.FenceLatency == 0 {
		return fmt.Errorf("fence_latency must be > 0")
	}
	if c.SystemLatency == 0 {
		return fmt.Errorf("system_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
