// Package latency provides instruction timing models for cycle estimation.
//
// Latency values describe a simple in-order RISC-V core and can be
// configured via TimingConfig.
package latency

import (
	"github.com/sarchlab/rvsim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given
// instruction, assuming cache hits and a correctly predicted branch.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch {
	case inst.Op.IsLoad():
		return t.config.LoadLatency
	case inst.Op.IsStore():
		return t.config.StoreLatency
	case inst.Op.IsBranch():
		return t.config.BranchLatency
	case inst.Op.IsJump():
		return t.config.JumpLatency
	case isShift(inst.Op):
		return t.config.ShiftLatency
	}

	switch inst.Op {
	case insts.OpECALL, insts.OpEBREAK:
		return t.config.SystemLatency
	case insts.OpFENCE, insts.OpFENCEI:
		return t.config.FenceLatency
	case insts.OpUnknown:
		return 1
	default:
		return t.config.ALULatency
	}
}

// BranchPenalty returns the extra cycles charged for a control transfer.
// The core predicts conditional branches not taken, so taken branches pay
// the misprediction penalty. Jumps always redirect fetch.
func (t *Table) BranchPenalty(inst *insts.Instruction, taken bool) uint64 {
	if inst == nil {
		return 0
	}
	switch {
	case inst.Op.IsBranch() && taken:
		return t.config.BranchMispredictPenalty
	case inst.Op == insts.OpJALR:
		return t.config.BranchMispredictPenalty
	default:
		return 0
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op.IsLoad() || inst.Op.IsStore()
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op.IsLoad()
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op.IsStore()
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Op.IsBranch() || inst.Op.IsJump()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

func isShift(op insts.Op) bool {
	switch op {
	case insts.OpSLL, insts.OpSRL, insts.OpSRA,
		insts.OpSLLI, insts.OpSRLI, insts.OpSRAI,
		insts.OpSLLW, insts.OpSRLW, insts.OpSRAW,
		insts.OpSLLIW, insts.OpSRLIW, insts.OpSRAIW:
		return true
	default:
		return false
	}
}
